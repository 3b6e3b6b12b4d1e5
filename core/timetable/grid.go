package timetable

import (
	"github.com/scheduleme/backend/core/calendar"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
)

type grid struct {
	byDate   map[string][]lesson.Lesson
	teachers map[string]teacher.Teacher
	schools  []school.School
	names    map[string]string // school id -> name
}

func newGrid(lessons []lesson.Lesson, teachers []teacher.Teacher, schools []school.School) *grid {
	g := &grid{
		byDate:   make(map[string][]lesson.Lesson),
		teachers: make(map[string]teacher.Teacher, len(teachers)),
		schools:  schools,
		names:    make(map[string]string, len(schools)),
	}
	for _, l := range lessons {
		g.byDate[l.Date] = append(g.byDate[l.Date], l)
	}
	for _, t := range teachers {
		g.teachers[t.ID] = t
	}
	for _, s := range schools {
		g.names[s.ID] = s.Name
	}
	return g
}

func (g *grid) place(l lesson.Lesson) Placement {
	p := Placement{Lesson: l, TeacherColor: teacher.DefaultColor, SchoolName: g.names[l.SchoolID]}
	if t, ok := g.teachers[l.TeacherID]; ok {
		p.TeacherName = t.FullName()
		p.TeacherColor = t.Color
	}
	return p
}

// day lays out the lessons of date: one column per school, one row per hourly slot.
// A lesson lands in the slot matching the hour it starts in.
func (g *grid) day(date string, slots []string) Day {
	d := Day{
		Date:      date,
		Schools:   make([]SchoolColumn, 0, len(g.schools)),
		Unslotted: []Placement{},
	}
	if t, err := calendar.ParseDate(date); err == nil {
		d.Weekday = t.Weekday().String()
	}

	slotIdx := make(map[int]int, len(slots))
	for i, s := range slots {
		if h, err := calendar.Hour(s); err == nil {
			slotIdx[h] = i
		}
	}
	colIdx := make(map[string]int, len(g.schools))
	for i, s := range g.schools {
		col := SchoolColumn{SchoolID: s.ID, SchoolName: s.Name, Slots: make([]Slot, len(slots))}
		for j, slot := range slots {
			col.Slots[j] = Slot{Time: slot, Lessons: []Placement{}}
		}
		d.Schools = append(d.Schools, col)
		colIdx[s.ID] = i
	}

	for _, l := range g.byDate[date] {
		p := g.place(l)
		ci, okCol := colIdx[l.SchoolID]
		h, err := calendar.Hour(l.StartTime)
		si, okSlot := slotIdx[h]
		if !okCol || err != nil || !okSlot {
			d.Unslotted = append(d.Unslotted, p)
			continue
		}
		slot := &d.Schools[ci].Slots[si]
		slot.Lessons = append(slot.Lessons, p)
	}
	return d
}
