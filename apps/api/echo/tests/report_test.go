package tests

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/report"
	"github.com/scheduleme/backend/tests"
)

type reportFixture struct {
	env                *testEnv
	adminToken         string
	jane, emily        string
	north              string
	l1, l2, l3, l4, l5 lesson.Lesson
}

func newReportFixture(t *testing.T) *reportFixture {
	env := setup(t)
	_, adminToken := env.admin(t)

	jane := testutil.CreateTeacher(t, env.teacherRepo, "Jane", "Austen")
	emily := testutil.CreateTeacher(t, env.teacherRepo, "Emily", "Bronte")
	north := testutil.CreateSchool(t, env.schoolRepo, "North", 0)

	return &reportFixture{
		env:        env,
		adminToken: adminToken,
		jane:       jane.ID,
		emily:      emily.ID,
		north:      north.ID,
		l1:         testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-11", "09:00", "09:45", ""),
		l2:         testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-12", "09:00", "10:30", "", lesson.StatusCompleted),
		l3:         testutil.CreateLesson(t, env.lessonRepo, emily.ID, north.ID, "2024-03-13", "10:00", "10:45", "", lesson.StatusCancelled),
		l4:         testutil.CreateLesson(t, env.lessonRepo, "ghost", "nowhere", "2024-03-13", "11:00", "11:30", ""),
		l5:         testutil.CreateLesson(t, env.lessonRepo, emily.ID, north.ID, "2024-04-02", "08:00", "08:45", ""),
	}
}

func Test_reportApi_teacherHours(t *testing.T) {
	fx := newReportFixture(t)
	env := fx.env
	_, viewerToken := env.viewer(t)

	env.serve(t, httpTest{path: "/api/reports/teacher-hours", token: viewerToken, wantCode: http.StatusForbidden})
	env.serve(t, httpTest{
		path: "/api/reports/teacher-hours?dateFrom=lol", token: fx.adminToken, wantCode: http.StatusBadRequest,
		wantData: []byte(`{"dateFrom": "dateFrom must be a date formatted as YYYY-MM-DD"}`),
	})

	rec := env.serve(t, httpTest{path: "/api/reports/teacher-hours?dateFrom=2024-03-01&dateTo=2024-03-31", token: fx.adminToken, wantCode: http.StatusOK})
	var rep report.TeacherHours
	unmarshal(t, rec, &rep)

	// all statuses, newest first by default
	require.Len(t, rep.Rows, 4)
	ids := []string{rep.Rows[0].LessonID, rep.Rows[1].LessonID, rep.Rows[2].LessonID, rep.Rows[3].LessonID}
	assert.ElementsMatch(t, []string{fx.l3.ID, fx.l4.ID}, ids[:2])
	assert.Equal(t, []string{fx.l2.ID, fx.l1.ID}, ids[2:])

	assert.Equal(t, 4, rep.TotalLessons)
	assert.Equal(t, 45+90+45+30, rep.TotalMinutes)
	assert.Equal(t, 3, rep.TotalHours)
	assert.Equal(t, 30, rep.RemainingMinutes)
	assert.Equal(t, 53, rep.AverageMinutes) // 210 / 4 = 52.5

	for _, row := range rep.Rows {
		if row.LessonID == fx.l4.ID {
			assert.Equal(t, report.UnknownName, row.TeacherName)
			assert.Equal(t, report.UnknownName, row.SchoolName)
		}
	}
	require.Len(t, rep.ByTeacher, 3)
	assert.Equal(t, report.TeacherTotal{TeacherID: fx.jane, TeacherName: "Jane Austen", Lessons: 2, Minutes: 135}, rep.ByTeacher[0])

	// filters & ordering
	rec = env.serve(t, httpTest{path: "/api/reports/teacher-hours?teacherId=" + fx.emily + "&ordering=date", token: fx.adminToken, wantCode: http.StatusOK})
	unmarshal(t, rec, &rep)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, fx.l3.ID, rep.Rows[0].LessonID)
	assert.Equal(t, fx.l5.ID, rep.Rows[1].LessonID)

	rec = env.serve(t, httpTest{path: "/api/reports/teacher-hours?ordering=-durationMinutes", token: fx.adminToken, wantCode: http.StatusOK})
	unmarshal(t, rec, &rep)
	require.Len(t, rep.Rows, 5)
	assert.Equal(t, fx.l2.ID, rep.Rows[0].LessonID)
	assert.Equal(t, fx.l4.ID, rep.Rows[4].LessonID)
}

func Test_reportApi_teacherHoursCSV(t *testing.T) {
	fx := newReportFixture(t)

	rec := fx.env.serve(t, httpTest{
		path: "/api/reports/teacher-hours.csv?dateFrom=2024-03-11&dateTo=2024-03-12&ordering=date", token: fx.adminToken, wantCode: http.StatusOK,
	})
	assert.Equal(t, report.CSVContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=teacher_hours_2024-03-13.csv", rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		report.CSVHeader,
		{"Jane Austen", "2024-03-11", "09:00", "09:45", "45", "North", "English", "5"},
		{"Jane Austen", "2024-03-12", "09:00", "10:30", "90", "North", "English", "5"},
	}, records)
}

func Test_reportApi_teacherHoursXLSX(t *testing.T) {
	fx := newReportFixture(t)

	rec := fx.env.serve(t, httpTest{path: "/api/reports/teacher-hours.xlsx", token: fx.adminToken, wantCode: http.StatusOK})
	assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Teacher Hours", "By Teacher"}, f.GetSheetList())
	rows, err := f.GetRows("Teacher Hours")
	require.NoError(t, err)
	require.Len(t, rows, 8) // header, 5 lessons, blank, totals
	assert.Equal(t, report.CSVHeader, rows[0])
	assert.Equal(t, "Total", rows[7][0])
	assert.Equal(t, "5 lessons", rows[7][1])

	summary, err := f.GetRows("By Teacher")
	require.NoError(t, err)
	assert.Len(t, summary, 4)
}

func Test_reportApi_emailTeacherHours(t *testing.T) {
	fx := newReportFixture(t)
	env := fx.env

	tests := []httpTest{
		{name: "recipients required", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"to": "this field is required"}`)},
		{
			name: "invalid recipient", body: []byte(`{"to": ["lol"], "format": "pdf"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"to[0]": "to[0] must be a valid email address", "format": "format must be one of [csv xlsx]"}`),
		},
		{name: "csv", body: []byte(`{"to": ["Boss@test.cd"], "filter": {"dateFrom": "2024-03-11", "dateTo": "2024-03-12"}}`), wantCode: http.StatusAccepted},
		{name: "xlsx", body: []byte(`{"to": ["boss@test.cd"], "cc": ["jane@test.cd"], "format": "xlsx"}`), wantCode: http.StatusAccepted},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/reports/teacher-hours/email"
		tt.token = fx.adminToken

		t.Run(tt.name, func(t *testing.T) {
			env.serve(t, tt)
		})
	}

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 2)

	csvMsg := sent[0]
	assert.Equal(t, "boss@test.cd", csvMsg.To[0].Address)
	assert.Equal(t, "Teacher hours from 2024-03-11 to 2024-03-12: 2 lessons, 2h 15m in total (average 68 min).", csvMsg.BodyStr)
	require.Len(t, csvMsg.Attachments, 1)
	assert.Equal(t, "teacher_hours_2024-03-13.csv", csvMsg.Attachments[0].Filename)
	content, err := base64.StdEncoding.DecodeString(csvMsg.Attachments[0].Content.String())
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	xlsxMsg := sent[1]
	assert.Equal(t, "jane@test.cd", xlsxMsg.Cc[0].Address)
	require.Len(t, xlsxMsg.Attachments, 1)
	assert.Equal(t, "teacher_hours_2024-03-13.xlsx", xlsxMsg.Attachments[0].Filename)
	assert.Equal(t, report.XLSXContentType, xlsxMsg.Attachments[0].ContentType)
}

func Test_reportApi_dashboard(t *testing.T) {
	fx := newReportFixture(t)
	env := fx.env
	_, viewerToken := env.viewer(t)

	env.serve(t, httpTest{path: "/api/dashboard", wantCode: http.StatusUnauthorized})
	env.serve(t, httpTest{
		path: "/api/dashboard", token: viewerToken, wantCode: http.StatusOK,
		wantData: marchallObj(t, report.Dashboard{
			Teachers:        2,
			Schools:         1,
			Lessons:         5,
			LessonsByStatus: map[string]int{"upcoming": 3, "completed": 1, "cancelled": 1},
			LessonsThisWeek: 3,
			LessonsToday:    1,
			WeekStart:       "2024-03-11",
			Today:           "2024-03-13",
			MinutesThisWeek: 45 + 90 + 30,
		}),
	})
}
