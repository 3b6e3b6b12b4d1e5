package lesson

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/calendar"
)

const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	DefaultSubject         = "English"
	DefaultDurationMinutes = 45
)

var Statuses = []string{StatusUpcoming, StatusCompleted, StatusCancelled}

type Lesson struct {
	ID        string      `json:"id" db:"id"`
	Subject   string      `json:"subject" db:"subject"`
	Grade     string      `json:"grade" db:"grade"`
	TeacherID string      `json:"teacherId" db:"teacher_id"`
	SchoolID  string      `json:"schoolId" db:"school_id"`
	Date      string      `json:"date" db:"date"`
	StartTime string      `json:"startTime" db:"start_time"`
	EndTime   string      `json:"endTime" db:"end_time"`
	Room      string      `json:"room" db:"room"`
	Status    string      `json:"status" db:"status"`
	Topic     null.String `json:"topic" db:"topic"`
	Notes     null.String `json:"notes" db:"notes"`
}

func (l Lesson) IsCancelled() bool {
	return l.Status == StatusCancelled
}

// DurationMinutes returns 0 when the times are malformed.
func (l Lesson) DurationMinutes() int {
	return calendar.DurationMinutes(l.StartTime, l.EndTime)
}

// ToNew returns l as input, ready to be merged with changes and validated again.
func (l Lesson) ToNew() NewLesson {
	nl := NewLesson{
		ID:        l.ID,
		Subject:   l.Subject,
		Grade:     l.Grade,
		TeacherID: l.TeacherID,
		SchoolID:  l.SchoolID,
		Date:      l.Date,
		StartTime: l.StartTime,
		EndTime:   l.EndTime,
		Room:      l.Room,
		Status:    l.Status,
	}
	if l.Topic.Valid {
		nl.Topic = l.Topic.String
	}
	if l.Notes.Valid {
		nl.Notes = l.Notes.String
	}
	return nl
}

// NewLesson contains information needed to create (or overwrite) a Lesson.
type NewLesson struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Grade     string `json:"grade"`
	TeacherID string `json:"teacherId"`
	SchoolID  string `json:"schoolId"`
	Date      string `json:"date" validate:"required,isodate"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Room      string `json:"room"`
	Status    string `json:"status" validate:"required,lessonstatus"`
	Topic     string `json:"topic"`
	Notes     string `json:"notes"`
}

// Validate cleans the input, fills in defaults and validates the result.
// The end time defaults to 45 minutes after the start time.
func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.ID = core.CleanString(nl.ID)
	nl.Subject = core.CleanString(nl.Subject)
	nl.Grade = core.CleanString(nl.Grade)
	nl.TeacherID = core.CleanString(nl.TeacherID)
	nl.SchoolID = core.CleanString(nl.SchoolID)
	nl.Date = core.CleanString(nl.Date)
	nl.StartTime = core.CleanString(nl.StartTime)
	nl.EndTime = core.CleanString(nl.EndTime)
	nl.Room = core.CleanString(nl.Room)
	nl.Status = core.CleanString(nl.Status, true /* lower */)
	nl.Topic = core.CleanString(nl.Topic)
	nl.Notes = core.CleanString(nl.Notes)

	if nl.Subject == "" {
		nl.Subject = DefaultSubject
	}
	if nl.Status == "" {
		nl.Status = StatusUpcoming
	}
	if nl.EndTime == "" && nl.StartTime != "" {
		if end, err := calendar.AddMinutes(nl.StartTime, DefaultDurationMinutes); err == nil {
			nl.EndTime = end
		}
	}
	return validate.Struct(nl)
}

// ToLesson builds the Lesson stored under id; empty topic and notes become NULL.
func (nl NewLesson) ToLesson(id string) Lesson {
	return Lesson{
		ID:        id,
		Subject:   nl.Subject,
		Grade:     nl.Grade,
		TeacherID: nl.TeacherID,
		SchoolID:  nl.SchoolID,
		Date:      nl.Date,
		StartTime: nl.StartTime,
		EndTime:   nl.EndTime,
		Room:      nl.Room,
		Status:    nl.Status,
		Topic:     null.NewString(nl.Topic, nl.Topic != ""),
		Notes:     null.NewString(nl.Notes, nl.Notes != ""),
	}
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
// An empty topic or notes clears the stored value.
type UpdateLesson struct {
	Subject   *string `json:"subject"`
	Grade     *string `json:"grade"`
	TeacherID *string `json:"teacherId"`
	SchoolID  *string `json:"schoolId"`
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Room      *string `json:"room"`
	Status    *string `json:"status"`
	Topic     *string `json:"topic"`
	Notes     *string `json:"notes"`
}

// Validate merges the provided fields into orig and validates the result.
func (ul UpdateLesson) Validate(orig Lesson, validate *validator.Validate) (NewLesson, error) {
	nl := orig.ToNew()
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&nl.Subject, ul.Subject)
	set(&nl.Grade, ul.Grade)
	set(&nl.TeacherID, ul.TeacherID)
	set(&nl.SchoolID, ul.SchoolID)
	set(&nl.Date, ul.Date)
	set(&nl.StartTime, ul.StartTime)
	set(&nl.EndTime, ul.EndTime)
	set(&nl.Room, ul.Room)
	set(&nl.Status, ul.Status)
	set(&nl.Topic, ul.Topic)
	set(&nl.Notes, ul.Notes)
	return nl, nl.Validate(validate)
}

// QueryFilter narrows lesson queries. Empty fields (and "all") match everything.
type QueryFilter struct {
	DateFrom  string   `query:"dateFrom" json:"dateFrom" validate:"omitempty,isodate"`
	DateTo    string   `query:"dateTo" json:"dateTo" validate:"omitempty,isodate"`
	TeacherID string   `query:"teacherId" json:"teacherId"`
	SchoolID  string   `query:"schoolId" json:"schoolId"`
	Status    string   `query:"status" json:"status" validate:"omitempty,lessonstatus"`
	Dates     []string `query:"-" json:"-"`
}

func (f *QueryFilter) Clean() {
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
	f.Status = core.CleanString(clean(f.Status), true /* lower */)
}

// CopyWeekRequest duplicates the week starting at WeekStart into the following week.
type CopyWeekRequest struct {
	WeekStart    string `json:"weekStart" validate:"required,isodate"`
	KeepTeachers bool   `json:"keepTeachers"`
}

type SkippedCopy struct {
	SourceID string `json:"sourceId"`
	Date     string `json:"date"`
	Reason   string `json:"reason"`
}

type CopyWeekResult struct {
	Copied  []Lesson      `json:"copied"`
	Skipped []SkippedCopy `json:"skipped"`
}
