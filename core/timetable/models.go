package timetable

import "github.com/scheduleme/backend/core/lesson"

type (
	// Placement is a lesson as drawn on the grid.
	Placement struct {
		lesson.Lesson
		TeacherName  string `json:"teacherName"`
		TeacherColor string `json:"teacherColor"`
		SchoolName   string `json:"schoolName"`
	}

	Slot struct {
		Time    string      `json:"time"`
		Lessons []Placement `json:"lessons"`
	}

	SchoolColumn struct {
		SchoolID   string `json:"schoolId"`
		SchoolName string `json:"schoolName"`
		Slots      []Slot `json:"slots"`
	}

	Day struct {
		Date    string         `json:"date"`
		Weekday string         `json:"weekday"`
		Schools []SchoolColumn `json:"schools"`
		// Unslotted holds the lessons starting outside the slot range or at an unknown school.
		Unslotted []Placement `json:"unslotted"`
	}

	Week struct {
		WeekStart string   `json:"weekStart"`
		WeekEnd   string   `json:"weekEnd"`
		Slots     []string `json:"slots"`
		Days      []Day    `json:"days"`
	}

	Filter struct {
		WeekStart string `query:"weekStart" json:"weekStart" validate:"omitempty,isodate"`
		Offset    int    `query:"offset" json:"offset"`
		Date      string `query:"date" json:"date" validate:"omitempty,isodate"`
		SchoolID  string `query:"schoolId" json:"schoolId"`
		TeacherID string `query:"teacherId" json:"teacherId"`
	}
)

func (f *Filter) Clean() {
	if f.SchoolID == "all" {
		f.SchoolID = ""
	}
	if f.TeacherID == "all" {
		f.TeacherID = ""
	}
}
