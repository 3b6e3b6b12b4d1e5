package timetable

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/calendar"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
)

type (
	LessonQuerier interface {
		Query(ctx context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering) ([]lesson.Lesson, error)
	}

	TeacherQuerier interface {
		Query(ctx context.Context, ordering []core.DBOrdering) ([]teacher.Teacher, error)
	}

	SchoolQuerier interface {
		Query(ctx context.Context, ordering []core.DBOrdering) ([]school.School, error)
	}

	// Cache stores rendered grids. Keys embed the current generation, which is bumped
	// whenever scheduling data changes.
	Cache interface {
		Generation(ctx context.Context) (int64, error)
		Get(ctx context.Context, key string) ([]byte, bool, error)
		Set(ctx context.Context, key string, val []byte) error
	}

	Service struct {
		lessons  LessonQuerier
		teachers TeacherQuerier
		schools  SchoolQuerier
		cache    Cache
		logger   core.Logger
		slots    []string

		NowFunc func() time.Time
	}
)

func NewService(lessons LessonQuerier, teachers TeacherQuerier, schools SchoolQuerier, cache Cache,
	logger core.Logger, conf *core.Config) *Service {
	return &Service{
		lessons:  lessons,
		teachers: teachers,
		schools:  schools,
		cache:    cache,
		logger:   logger,
		slots:    calendar.TimeSlots(conf.Server.FirstSlotHour, conf.Server.LastSlotHour),
		NowFunc:  time.Now,
	}
}

func (svc *Service) Slots() []string {
	return svc.slots
}

// WeekStart resolves the first day of the requested week: f.WeekStart rolled back to its Monday,
// or the current week shifted by f.Offset weeks.
func (svc *Service) WeekStart(f Filter) (time.Time, error) {
	if f.WeekStart != "" {
		t, err := calendar.ParseDate(f.WeekStart)
		if err != nil {
			return time.Time{}, core.NewFieldValidationError("weekStart", err.Error())
		}
		return calendar.StartOfWeek(t, 0), nil
	}
	return calendar.StartOfWeek(svc.NowFunc(), f.Offset), nil
}

// Week builds the grid for the six school days of the week selected by f.
func (svc *Service) Week(ctx context.Context, f Filter) (Week, error) {
	f.Clean()
	start, err := svc.WeekStart(f)
	if err != nil {
		return Week{}, err
	}
	// the generation is read once: a grid built before a write must not be stored under a newer one
	key := svc.cacheKey(ctx, fmt.Sprintf("week:%s:%s:%s", calendar.FormatDate(start), f.SchoolID, f.TeacherID))

	var week Week
	if svc.fromCache(ctx, key, &week) {
		return week, nil
	}

	dates := calendar.WeekDates(start, calendar.WeekLength)
	g, err := svc.load(ctx, dates, f)
	if err != nil {
		return Week{}, err
	}
	week = Week{
		WeekStart: dates[0],
		WeekEnd:   dates[len(dates)-1],
		Slots:     svc.slots,
		Days:      make([]Day, 0, len(dates)),
	}
	for _, d := range dates {
		week.Days = append(week.Days, g.day(d, svc.slots))
	}
	svc.toCache(ctx, key, week)
	return week, nil
}

// Day builds the grid for a single date (today when f.Date is empty).
func (svc *Service) Day(ctx context.Context, f Filter) (Day, error) {
	f.Clean()
	date := f.Date
	if date == "" {
		date = calendar.FormatDate(svc.NowFunc())
	}
	if _, err := calendar.ParseDate(date); err != nil {
		return Day{}, core.NewFieldValidationError("date", err.Error())
	}
	key := svc.cacheKey(ctx, fmt.Sprintf("day:%s:%s:%s", date, f.SchoolID, f.TeacherID))

	var day Day
	if svc.fromCache(ctx, key, &day) {
		return day, nil
	}

	g, err := svc.load(ctx, []string{date}, f)
	if err != nil {
		return Day{}, err
	}
	day = g.day(date, svc.slots)
	svc.toCache(ctx, key, day)
	return day, nil
}

func (svc *Service) load(ctx context.Context, dates []string, f Filter) (*grid, error) {
	lessons, err := svc.lessons.Query(ctx, &lesson.QueryFilter{
		Dates:     dates,
		SchoolID:  f.SchoolID,
		TeacherID: f.TeacherID,
	}, nil)
	if err != nil {
		return nil, err
	}
	teachers, err := svc.teachers.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	schools, err := svc.schools.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	if f.SchoolID != "" {
		var selected []school.School
		for _, s := range schools {
			if s.ID == f.SchoolID {
				selected = append(selected, s)
			}
		}
		schools = selected
	}
	return newGrid(lessons, teachers, schools), nil
}

// cacheKey qualifies key with the current generation; "" disables caching for the request.
func (svc *Service) cacheKey(ctx context.Context, key string) string {
	if svc.cache == nil {
		return ""
	}
	gen, err := svc.cache.Generation(ctx)
	if err != nil {
		svc.logger.Warn("timetable cache generation: "+err.Error(), err)
		return ""
	}
	return fmt.Sprintf("timetable:%d:%s", gen, key)
}

func (svc *Service) fromCache(ctx context.Context, key string, dst interface{}) bool {
	if key == "" {
		return false
	}
	data, found, err := svc.cache.Get(ctx, key)
	if err != nil {
		svc.logger.Warn("timetable cache get: "+err.Error(), err)
		return false
	}
	return found && json.Unmarshal(data, dst) == nil
}

func (svc *Service) toCache(ctx context.Context, key string, val interface{}) {
	if key == "" {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err = svc.cache.Set(ctx, key, data); err != nil {
		svc.logger.Warn("timetable cache set: "+err.Error(), err)
	}
}
