package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
)

func Test_grid_day(t *testing.T) {
	teachers := []teacher.Teacher{{ID: "t1", FirstName: "Jane", LastName: "Austen", Color: "#ff0000"}}
	schools := []school.School{{ID: "s1", Name: "North"}, {ID: "s2", Name: "South"}}
	lessons := []lesson.Lesson{
		{ID: "l1", TeacherID: "t1", SchoolID: "s1", Date: "2024-03-13", StartTime: "09:15", EndTime: "10:00"},
		{ID: "l2", TeacherID: "gone", SchoolID: "s2", Date: "2024-03-13", StartTime: "10:00", EndTime: "10:45"},
		{ID: "l3", SchoolID: "s1", Date: "2024-03-13", StartTime: "07:00", EndTime: "07:45"},
		{ID: "l4", SchoolID: "lol", Date: "2024-03-13", StartTime: "09:00", EndTime: "09:45"},
		{ID: "l5", SchoolID: "s1", Date: "2024-03-14", StartTime: "09:00", EndTime: "09:45"},
	}
	slots := []string{"08:00", "09:00", "10:00"}

	d := newGrid(lessons, teachers, schools).day("2024-03-13", slots)
	assert.Equal(t, "Wednesday", d.Weekday)
	require.Len(t, d.Schools, 2)
	assert.Equal(t, "North", d.Schools[0].SchoolName)
	require.Len(t, d.Schools[0].Slots, 3)

	assert.Empty(t, d.Schools[0].Slots[0].Lessons)
	nine := d.Schools[0].Slots[1]
	assert.Equal(t, "09:00", nine.Time)
	require.Len(t, nine.Lessons, 1)
	assert.Equal(t, "l1", nine.Lessons[0].ID)
	assert.Equal(t, "Jane Austen", nine.Lessons[0].TeacherName)
	assert.Equal(t, "#ff0000", nine.Lessons[0].TeacherColor)
	assert.Equal(t, "North", nine.Lessons[0].SchoolName)

	ten := d.Schools[1].Slots[2]
	require.Len(t, ten.Lessons, 1)
	assert.Equal(t, "l2", ten.Lessons[0].ID)
	assert.Equal(t, "", ten.Lessons[0].TeacherName)
	assert.Equal(t, teacher.DefaultColor, ten.Lessons[0].TeacherColor)

	// before the first slot, or at an unknown school
	require.Len(t, d.Unslotted, 2)
	assert.ElementsMatch(t, []string{"l3", "l4"}, []string{d.Unslotted[0].ID, d.Unslotted[1].ID})

	empty := newGrid(nil, nil, schools).day("2024-03-16", slots)
	assert.Equal(t, "Saturday", empty.Weekday)
	assert.NotNil(t, empty.Unslotted)
	assert.Len(t, empty.Schools, 2)
}
