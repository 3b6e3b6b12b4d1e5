package report

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/calendar"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
)

var defaultOrdering = []core.DBOrdering{{Field: "date", Ascending: false}}

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

	Service struct {
		lessons  LessonQuerier
		teachers TeacherQuerier
		schools  SchoolQuerier
		mailSvc  core.EmailService

		NowFunc func() time.Time
	}
)

func NewService(lessons LessonQuerier, teachers TeacherQuerier, schools SchoolQuerier, mailSvc core.EmailService) *Service {
	return &Service{
		lessons:  lessons,
		teachers: teachers,
		schools:  schools,
		mailSvc:  mailSvc,
		NowFunc:  time.Now,
	}
}

// TeacherHours lists every lesson matching f (whatever its status) with its duration,
// sorted by ordering (date descending by default), plus totals.
func (svc *Service) TeacherHours(ctx context.Context, f Filter, ordering []core.DBOrdering) (TeacherHours, error) {
	f.Clean()
	lessons, err := svc.lessons.Query(ctx, &lesson.QueryFilter{
		DateFrom:  f.DateFrom,
		DateTo:    f.DateTo,
		TeacherID: f.TeacherID,
		SchoolID:  f.SchoolID,
	}, nil)
	if err != nil {
		return TeacherHours{}, errors.Wrap(err, "querying report lessons")
	}
	teacherNames, err := svc.teacherNames(ctx)
	if err != nil {
		return TeacherHours{}, err
	}
	schoolNames, err := svc.schoolNames(ctx)
	if err != nil {
		return TeacherHours{}, err
	}

	rows := make([]Row, 0, len(lessons))
	for _, l := range lessons {
		rows = append(rows, newRow(l, teacherNames, schoolNames))
	}
	if len(ordering) == 0 {
		ordering = defaultOrdering
	}
	SortRows(rows, ordering)
	return summarize(rows), nil
}

func newRow(l lesson.Lesson, teacherNames, schoolNames map[string]string) Row {
	row := Row{
		LessonID:        l.ID,
		TeacherName:     UnknownName,
		TeacherID:       l.TeacherID,
		Date:            l.Date,
		StartTime:       l.StartTime,
		EndTime:         l.EndTime,
		DurationMinutes: l.DurationMinutes(),
		SchoolName:      UnknownName,
		Subject:         l.Subject,
		Grade:           l.Grade,
		Room:            l.Room,
		Status:          l.Status,
		Topic:           l.Topic.String,
	}
	if name, ok := teacherNames[l.TeacherID]; ok {
		row.TeacherName = name
	}
	if name, ok := schoolNames[l.SchoolID]; ok && name != "" {
		row.SchoolName = name
	}
	return row
}

func summarize(rows []Row) TeacherHours {
	rep := TeacherHours{Rows: rows, TotalLessons: len(rows), ByTeacher: []TeacherTotal{}}
	byTeacher := make(map[string]*TeacherTotal)
	for _, row := range rows {
		rep.TotalMinutes += row.DurationMinutes
		tt, ok := byTeacher[row.TeacherID]
		if !ok {
			tt = &TeacherTotal{TeacherID: row.TeacherID, TeacherName: row.TeacherName}
			byTeacher[row.TeacherID] = tt
		}
		tt.Lessons++
		tt.Minutes += row.DurationMinutes
	}
	rep.TotalHours = rep.TotalMinutes / 60
	rep.RemainingMinutes = rep.TotalMinutes % 60
	if len(rows) > 0 {
		rep.AverageMinutes = int(math.Round(float64(rep.TotalMinutes) / float64(len(rows))))
	}
	for _, tt := range byTeacher {
		rep.ByTeacher = append(rep.ByTeacher, *tt)
	}
	sort.Slice(rep.ByTeacher, func(i, j int) bool {
		a, b := rep.ByTeacher[i], rep.ByTeacher[j]
		if a.Minutes != b.Minutes {
			return a.Minutes > b.Minutes
		}
		return a.TeacherName < b.TeacherName
	})
	return rep
}

// SortRows sorts rows in place by the given row fields (JSON names). Unknown fields are ignored.
// Text compares case-insensitively; numbers numerically.
func SortRows(rows []Row, ordering []core.DBOrdering) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareRows(rows[i], rows[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareRows(a, b Row, field string) int {
	text := func(x, y string) int {
		if c := strings.Compare(strings.ToLower(x), strings.ToLower(y)); c != 0 {
			return c
		}
		return strings.Compare(x, y)
	}
	switch field {
	case "lessonId":
		return text(a.LessonID, b.LessonID)
	case "teacherId":
		return text(a.TeacherID, b.TeacherID)
	case "teacherName":
		return text(a.TeacherName, b.TeacherName)
	case "date":
		return text(a.Date, b.Date)
	case "startTime":
		return text(a.StartTime, b.StartTime)
	case "endTime":
		return text(a.EndTime, b.EndTime)
	case "durationMinutes":
		return a.DurationMinutes - b.DurationMinutes
	case "schoolName":
		return text(a.SchoolName, b.SchoolName)
	case "subject":
		return text(a.Subject, b.Subject)
	case "grade":
		return text(a.Grade, b.Grade)
	case "room":
		return text(a.Room, b.Room)
	case "status":
		return text(a.Status, b.Status)
	case "topic":
		return text(a.Topic, b.Topic)
	}
	return 0
}

// Filename returns the download name of a report export made now.
func (svc *Service) Filename(ext string) string {
	return fmt.Sprintf("teacher_hours_%s.%s", calendar.FormatDate(svc.NowFunc().UTC()), ext)
}

// EmailTeacherHours sends the report matching req.Filter, as a CSV (default) or XLSX attachment.
func (svc *Service) EmailTeacherHours(ctx context.Context, req EmailRequest) error {
	rep, err := svc.TeacherHours(ctx, req.Filter, req.Ordering)
	if err != nil {
		return err
	}

	format, ct := "csv", "text/csv"
	buf := new(bytes.Buffer)
	if req.Format == "xlsx" {
		format, ct = "xlsx", XLSXContentType
		err = WriteXLSX(buf, rep)
	} else {
		err = WriteCSV(buf, rep.Rows)
	}
	if err != nil {
		return errors.Wrap(err, "writing report attachment")
	}

	msg := &core.EmailMessage{
		To:      toAddresses(req.To),
		Cc:      toAddresses(req.Cc),
		Subject: "Teacher hours report",
		BodyStr: fmt.Sprintf(
			"Teacher hours%s: %d lessons, %dh %dm in total (average %d min).",
			describeFilter(req.Filter), rep.TotalLessons, rep.TotalHours, rep.RemainingMinutes, rep.AverageMinutes,
		),
	}
	if err = msg.Attach(buf, svc.Filename(format), ct); err != nil {
		return errors.Wrap(err, "attaching report")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func describeFilter(f Filter) string {
	switch {
	case f.DateFrom != "" && f.DateTo != "":
		return fmt.Sprintf(" from %s to %s", f.DateFrom, f.DateTo)
	case f.DateFrom != "":
		return " since " + f.DateFrom
	case f.DateTo != "":
		return " until " + f.DateTo
	}
	return ""
}

func toAddresses(emails []string) []mail.Address {
	addrs := make([]mail.Address, 0, len(emails))
	for _, e := range emails {
		addrs = append(addrs, mail.Address{Address: core.CleanString(e, true /* lower */)})
	}
	return addrs
}

// Dashboard counts the scheduling data, for the week containing today.
func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := svc.NowFunc()
	today := calendar.FormatDate(now)
	weekDates := calendar.WeekDates(calendar.StartOfWeek(now, 0), calendar.WeekLength)

	teachers, err := svc.teachers.Query(ctx, nil)
	if err != nil {
		return Dashboard{}, err
	}
	schools, err := svc.schools.Query(ctx, nil)
	if err != nil {
		return Dashboard{}, err
	}
	lessons, err := svc.lessons.Query(ctx, nil, nil)
	if err != nil {
		return Dashboard{}, err
	}

	inWeek := make(map[string]bool, len(weekDates))
	for _, d := range weekDates {
		inWeek[d] = true
	}
	dash := Dashboard{
		Teachers:        len(teachers),
		Schools:         len(schools),
		Lessons:         len(lessons),
		LessonsByStatus: make(map[string]int, len(lesson.Statuses)),
		WeekStart:       weekDates[0],
		Today:           today,
	}
	for _, st := range lesson.Statuses {
		dash.LessonsByStatus[st] = 0
	}
	for _, l := range lessons {
		dash.LessonsByStatus[l.Status]++
		if l.IsCancelled() {
			continue
		}
		if inWeek[l.Date] {
			dash.LessonsThisWeek++
			dash.MinutesThisWeek += l.DurationMinutes()
		}
		if l.Date == today {
			dash.LessonsToday++
		}
	}
	return dash, nil
}

func (svc *Service) teacherNames(ctx context.Context) (map[string]string, error) {
	teachers, err := svc.teachers.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.FirstName + " " + t.LastName
	}
	return names, nil
}

func (svc *Service) schoolNames(ctx context.Context) (map[string]string, error) {
	schools, err := svc.schools.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(schools))
	for _, s := range schools {
		names[s.ID] = s.Name
	}
	return names, nil
}
