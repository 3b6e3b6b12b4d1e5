package timetable_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
	"github.com/scheduleme/backend/core/timetable"
	"github.com/scheduleme/backend/storage/cache"
)

// writingLessons stores a lesson (and notifies the cache) while the first query is in flight.
type writingLessons struct {
	cache   *cache.MemoryCache
	stored  []lesson.Lesson
	queries int
}

func (q *writingLessons) Query(ctx context.Context, _ *lesson.QueryFilter, _ []core.DBOrdering) ([]lesson.Lesson, error) {
	q.queries++
	res := append([]lesson.Lesson(nil), q.stored...)
	if q.queries == 1 {
		q.stored = append(q.stored, lesson.Lesson{
			ID: "l1", SchoolID: "s1", Date: "2024-03-12", StartTime: "09:00", EndTime: "09:45", Status: lesson.StatusUpcoming,
		})
		q.cache.DataChanged(ctx)
	}
	return res, nil
}

type staticTeachers []teacher.Teacher

func (s staticTeachers) Query(context.Context, []core.DBOrdering) ([]teacher.Teacher, error) { return s, nil }

type staticSchools []school.School

func (s staticSchools) Query(context.Context, []core.DBOrdering) ([]school.School, error) { return s, nil }

func countLessons(week timetable.Week) int {
	n := 0
	for _, d := range week.Days {
		for _, col := range d.Schools {
			for _, slot := range col.Slots {
				n += len(slot.Lessons)
			}
		}
	}
	return n
}

func TestService_Week_writeDuringBuild(t *testing.T) {
	ctx := context.Background()
	memCache := cache.NewMemoryCache()
	lessons := &writingLessons{cache: memCache}
	svc := timetable.NewService(lessons, staticTeachers{}, staticSchools{{ID: "s1", Name: "North"}}, memCache, nil, core.NewTestConfig())
	f := timetable.Filter{WeekStart: "2024-03-11"}

	first, err := svc.Week(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 0, countLessons(first))

	// the grid built before the write must not be served after it
	second, err := svc.Week(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, countLessons(second))
	assert.Equal(t, 2, lessons.queries)

	third, err := svc.Week(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, countLessons(third))
	assert.Equal(t, 2, lessons.queries)
	assert.Equal(t, 1, memCache.Hits)
}
