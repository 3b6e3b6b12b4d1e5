package report

import "github.com/scheduleme/backend/core"

const UnknownName = "Unknown"

type (
	Filter struct {
		DateFrom  string `query:"dateFrom" json:"dateFrom" validate:"omitempty,isodate"`
		DateTo    string `query:"dateTo" json:"dateTo" validate:"omitempty,isodate"`
		TeacherID string `query:"teacherId" json:"teacherId"`
		SchoolID  string `query:"schoolId" json:"schoolId"`
	}

	// Row is one lesson of the teacher hours report.
	Row struct {
		LessonID        string `json:"lessonId"`
		TeacherName     string `json:"teacherName"`
		TeacherID       string `json:"teacherId"`
		Date            string `json:"date"`
		StartTime       string `json:"startTime"`
		EndTime         string `json:"endTime"`
		DurationMinutes int    `json:"durationMinutes"`
		SchoolName      string `json:"schoolName"`
		Subject         string `json:"subject"`
		Grade           string `json:"grade"`
		Room            string `json:"room"`
		Status          string `json:"status"`
		Topic           string `json:"topic"`
	}

	TeacherTotal struct {
		TeacherID   string `json:"teacherId"`
		TeacherName string `json:"teacherName"`
		Lessons     int    `json:"lessons"`
		Minutes     int    `json:"minutes"`
	}

	TeacherHours struct {
		Rows             []Row          `json:"rows"`
		TotalLessons     int            `json:"totalLessons"`
		TotalMinutes     int            `json:"totalMinutes"`
		TotalHours       int            `json:"totalHours"`
		RemainingMinutes int            `json:"remainingMinutes"`
		AverageMinutes   int            `json:"averageMinutes"`
		ByTeacher        []TeacherTotal `json:"byTeacher"`
	}

	EmailRequest struct {
		To       []string          `json:"to" validate:"required,min=1,dive,email"`
		Cc       []string          `json:"cc" validate:"omitempty,dive,email"`
		Format   string            `json:"format" validate:"omitempty,oneof=csv xlsx"`
		Filter   Filter            `json:"filter"`
		Ordering []core.DBOrdering `json:"-"`
	}

	Dashboard struct {
		Teachers        int            `json:"teachers"`
		Schools         int            `json:"schools"`
		Lessons         int            `json:"lessons"`
		LessonsByStatus map[string]int `json:"lessonsByStatus"`
		LessonsThisWeek int            `json:"lessonsThisWeek"`
		LessonsToday    int            `json:"lessonsToday"`
		WeekStart       string         `json:"weekStart"`
		Today           string         `json:"today"`
		MinutesThisWeek int            `json:"minutesThisWeek"`
	}
)

func (f *Filter) Clean() {
	clean := func(s string) string {
		s = core.CleanString(s)
		if s == "all" {
			return ""
		}
		return s
	}
	f.DateFrom = clean(f.DateFrom)
	f.DateTo = clean(f.DateTo)
	f.TeacherID = clean(f.TeacherID)
	f.SchoolID = clean(f.SchoolID)
}
