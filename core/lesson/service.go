package lesson

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/calendar"
)

var (
	// errors
	ErrNotFound   = errors.New("lesson not found")
	ErrEmptyWeek  = core.NewFieldValidationError("weekStart", "no lessons found to copy")
	errNoTeacher  = "teacher not found"
	errNoSchool   = "school not found"
	conflictField = "startTime"
)

type (
	Repository interface {
		UpsertLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		QueryLessons(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Lesson, error)
		GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (Lesson, error)
		DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// ExistenceChecker reports whether a referenced record (teacher, school) exists.
	ExistenceChecker interface {
		Exists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		db        core.DB
		repo      Repository
		teachers  ExistenceChecker
		schools   ExistenceChecker
		listeners core.ChangeListeners
	}

	// Conflict describes an existing lesson that a new placement would collide with.
	Conflict struct {
		Kind   string // teacher | room
		Lesson Lesson
	}
)

func (c Conflict) Error() string {
	if c.Kind == "room" {
		return fmt.Sprintf("room %s is already booked from %s to %s", c.Lesson.Room, c.Lesson.StartTime, c.Lesson.EndTime)
	}
	return fmt.Sprintf("teacher is already booked from %s to %s", c.Lesson.StartTime, c.Lesson.EndTime)
}

func NewService(db core.DB, repo Repository, teachers, schools ExistenceChecker, listeners ...core.ChangeListener) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		teachers:  teachers,
		schools:   schools,
		listeners: listeners,
	}
}

// Create inserts a new Lesson, or overwrites the one with the same ID.
// nl must have been validated already. Placement checks and the write share one transaction.
func (svc *Service) Create(ctx context.Context, nl NewLesson) (Lesson, error) {
	id := nl.ID
	if id == "" {
		id = core.NewID()
	}
	l := nl.ToLesson(id)
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.CheckPlacement(ctx, l, tx); err != nil {
			return err
		}
		var err error
		l, err = svc.repo.UpsertLesson(ctx, l, tx)
		return err
	})
	if err != nil {
		return Lesson{}, err
	}
	svc.listeners.DataChanged(ctx)
	return l, nil
}

// CheckPlacement reports, as a validation error, a lesson referencing an unknown teacher or school,
// or one that would double-book its teacher or room.
func (svc *Service) CheckPlacement(ctx context.Context, l Lesson, exec ...core.DBExecutor) error {
	if err := svc.checkReferences(ctx, l, exec...); err != nil {
		return err
	}
	conflict, err := svc.findConflict(ctx, l, exec...)
	if err != nil {
		return err
	}
	if conflict != nil {
		return core.NewFieldValidationError(conflictField, conflict.Error())
	}
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

// Query returns the lessons matching filter, by date then start time unless ordering says otherwise.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lesson, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryLessons(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, nl NewLesson) (Lesson, error) {
	nl.ID = id
	return svc.Create(ctx, nl)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteLesson(ctx, id); err != nil {
		return err
	}
	svc.listeners.DataChanged(ctx)
	return nil
}

// CopyWeek duplicates every lesson of the school week starting at req.WeekStart seven days later.
// Copies are upcoming, get new IDs and lose their teacher unless req.KeepTeachers.
// Copies colliding with existing lessons are skipped and reported.
func (svc *Service) CopyWeek(ctx context.Context, req CopyWeekRequest) (CopyWeekResult, error) {
	start, err := calendar.ParseDate(req.WeekStart)
	if err != nil {
		return CopyWeekResult{}, core.NewFieldValidationError("weekStart", err.Error())
	}
	filter := &QueryFilter{Dates: calendar.WeekDates(start, calendar.WeekLength)}
	res := CopyWeekResult{Copied: []Lesson{}, Skipped: []SkippedCopy{}}

	err = core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		sources, err := svc.repo.QueryLessons(ctx, filter, nil, tx)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return ErrEmptyWeek
		}
		for _, src := range sources {
			date, err := calendar.AddDays(src.Date, 7)
			if err != nil {
				return errors.Wrapf(err, "copying lesson %s", src.ID)
			}
			cp := src
			cp.ID = core.NewID()
			cp.Date = date
			cp.Status = StatusUpcoming
			if !req.KeepTeachers {
				cp.TeacherID = ""
			}

			conflict, err := svc.findConflict(ctx, cp, tx)
			if err != nil {
				return err
			}
			if conflict != nil {
				res.Skipped = append(res.Skipped, SkippedCopy{SourceID: src.ID, Date: date, Reason: conflict.Error()})
				continue
			}
			if cp, err = svc.repo.UpsertLesson(ctx, cp, tx); err != nil {
				return err
			}
			res.Copied = append(res.Copied, cp)
		}
		return nil
	})
	if err != nil {
		return CopyWeekResult{}, err
	}
	if len(res.Copied) > 0 {
		svc.listeners.DataChanged(ctx)
	}
	return res, nil
}

func (svc *Service) checkReferences(ctx context.Context, l Lesson, exec ...core.DBExecutor) error {
	var flds []core.FieldError
	if l.TeacherID != "" {
		ok, err := svc.teachers.Exists(ctx, l.TeacherID, exec...)
		if err != nil {
			return err
		}
		if !ok {
			flds = append(flds, core.FieldError{Field: "teacherId", Error: errNoTeacher})
		}
	}
	if l.SchoolID != "" {
		ok, err := svc.schools.Exists(ctx, l.SchoolID, exec...)
		if err != nil {
			return err
		}
		if !ok {
			flds = append(flds, core.FieldError{Field: "schoolId", Error: errNoSchool})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// findConflict returns the first non-cancelled lesson on the same date that l overlaps with,
// either through the same teacher or the same room at the same school.
func (svc *Service) findConflict(ctx context.Context, l Lesson, exec ...core.DBExecutor) (*Conflict, error) {
	if l.IsCancelled() {
		return nil, nil
	}
	sameDay, err := svc.repo.QueryLessons(ctx, &QueryFilter{DateFrom: l.Date, DateTo: l.Date}, nil, exec...)
	if err != nil {
		return nil, err
	}
	for _, other := range sameDay {
		if other.ID == l.ID || other.IsCancelled() {
			continue
		}
		if !calendar.Overlaps(l.StartTime, l.EndTime, other.StartTime, other.EndTime) {
			continue
		}
		if l.TeacherID != "" && l.TeacherID == other.TeacherID {
			return &Conflict{Kind: "teacher", Lesson: other}, nil
		}
		if l.Room != "" && l.SchoolID == other.SchoolID && l.Room == other.Room {
			return &Conflict{Kind: "room", Lesson: other}, nil
		}
	}
	return nil, nil
}
