package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
)

const Version = 1

type (
	// Snapshot is the complete scheduling data set.
	Snapshot struct {
		Version    int               `json:"version"`
		ExportedAt time.Time         `json:"exportedAt"`
		Teachers   []teacher.Teacher `json:"teachers"`
		Schools    []school.School   `json:"schools"`
		Lessons    []lesson.Lesson   `json:"lessons"`
	}

	Summary struct {
		Teachers int `json:"teachers"`
		Schools  int `json:"schools"`
		Lessons  int `json:"lessons"`
	}

	// PlacementChecker enforces the lesson references and the teacher/room booking rules.
	PlacementChecker interface {
		CheckPlacement(ctx context.Context, l lesson.Lesson, exec ...core.DBExecutor) error
	}

	Service struct {
		db        core.DB
		teachers  teacher.Repository
		schools   school.Repository
		lessons   lesson.Repository
		placement PlacementChecker
		validate  *validator.Validate
		listeners core.ChangeListeners

		NowFunc func() time.Time
	}
)

func NewService(db core.DB, teachers teacher.Repository, schools school.Repository, lessons lesson.Repository,
	placement PlacementChecker, validate *validator.Validate, listeners ...core.ChangeListener) *Service {
	return &Service{
		db:        db,
		teachers:  teachers,
		schools:   schools,
		lessons:   lessons,
		placement: placement,
		validate:  validate,
		listeners: listeners,
		NowFunc:   time.Now,
	}
}

func (svc *Service) Export(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Version: Version, ExportedAt: svc.NowFunc().UTC().Truncate(time.Second)}
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if snap.Teachers, err = svc.teachers.QueryTeachers(ctx, nil, tx); err != nil {
			return err
		}
		if snap.Schools, err = svc.schools.QuerySchools(ctx, nil, tx); err != nil {
			return err
		}
		snap.Lessons, err = svc.lessons.QueryLessons(ctx, nil, nil, tx)
		return err
	})
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "exporting snapshot")
	}
	return snap, nil
}

// Import upserts every record of snap in one transaction: either all of them are saved or none.
// Records are matched by ID; records missing from snap are left untouched.
// Each lesson must reference existing teachers & schools (stored or imported) and must not
// double-book a teacher or room, against both stored and previously imported lessons.
func (svc *Service) Import(ctx context.Context, snap Snapshot) (Summary, error) {
	if snap.Version != Version {
		return Summary{}, core.NewFieldValidationError("version", fmt.Sprintf("unsupported snapshot version %d", snap.Version))
	}
	if err := svc.check(&snap); err != nil {
		return Summary{}, err
	}

	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		for _, t := range snap.Teachers {
			if _, err := svc.teachers.UpsertTeacher(ctx, t, tx); err != nil {
				return err
			}
		}
		for _, s := range snap.Schools {
			if _, err := svc.schools.UpsertSchool(ctx, s, tx); err != nil {
				return err
			}
		}
		for _, l := range snap.Lessons {
			if err := svc.placement.CheckPlacement(ctx, l, tx); err != nil {
				var vErr *core.ValidationError
				if errors.As(err, &vErr) {
					return core.NewFieldValidationError("lessons", fmt.Sprintf("lesson %s is invalid: %v", l.ID, err))
				}
				return err
			}
			if _, err := svc.lessons.UpsertLesson(ctx, l, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	svc.listeners.DataChanged(ctx)
	return Summary{Teachers: len(snap.Teachers), Schools: len(snap.Schools), Lessons: len(snap.Lessons)}, nil
}

// check validates every record the way the API would, reporting the first offender.
// Lessons are cleaned and their defaults (subject, status, end time) filled in.
func (svc *Service) check(snap *Snapshot) error {
	fail := func(kind string, i int, id string, err error) error {
		if id == "" {
			return core.NewFieldValidationError(kind, fmt.Sprintf("%s #%d has no id", kind, i+1))
		}
		return core.NewFieldValidationError(kind, fmt.Sprintf("%s %s is invalid: %v", kind, id, err))
	}
	for i, t := range snap.Teachers {
		nt := teacher.NewTeacher{ID: t.ID, FirstName: t.FirstName, LastName: t.LastName, Color: t.Color}
		if err := nt.Validate(svc.validate); err != nil || t.ID == "" {
			return fail("teachers", i, t.ID, err)
		}
	}
	for i, s := range snap.Schools {
		ns := school.NewSchool{ID: s.ID, Name: s.Name, Address: s.Address, SortOrder: s.SortOrder}
		if err := ns.Validate(svc.validate); err != nil || s.ID == "" {
			return fail("schools", i, s.ID, err)
		}
	}
	for i, l := range snap.Lessons {
		nl := l.ToNew()
		if err := nl.Validate(svc.validate); err != nil || nl.ID == "" {
			return fail("lessons", i, nl.ID, err)
		}
		snap.Lessons[i] = nl.ToLesson(nl.ID)
	}
	return nil
}
