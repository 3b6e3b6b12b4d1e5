package tests

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/report"
	"github.com/scheduleme/backend/tests"
)

func Test_lessonApi_query(t *testing.T) {
	env := setup(t)
	_, token := env.viewer(t)

	jane := testutil.CreateTeacher(t, env.teacherRepo, "Jane", "Austen")
	emily := testutil.CreateTeacher(t, env.teacherRepo, "Emily", "Bronte")
	north := testutil.CreateSchool(t, env.schoolRepo, "North", 0)
	south := testutil.CreateSchool(t, env.schoolRepo, "South", 1)

	l1 := testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-11", "09:00", "09:45", "")
	l2 := testutil.CreateLesson(t, env.lessonRepo, emily.ID, south.ID, "2024-03-11", "08:00", "08:45", "")
	l3 := testutil.CreateLesson(t, env.lessonRepo, jane.ID, south.ID, "2024-03-12", "10:00", "10:45", "", lesson.StatusCancelled)
	l4 := testutil.CreateLesson(t, env.lessonRepo, emily.ID, north.ID, "2024-03-18", "11:00", "11:45", "")

	tests := []httpTest{
		{name: "auth required", path: "/api/lessons", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "all (by date, start time)", path: "/api/lessons", token: token, wantCode: http.StatusOK, wantData: marchallList(t, l2, l1, l3, l4)},
		{name: "date range", path: "/api/lessons?dateFrom=2024-03-12&dateTo=2024-03-17", token: token, wantCode: http.StatusOK, wantData: marchallList(t, l3)},
		{name: "teacher", path: "/api/lessons?teacherId=" + jane.ID, token: token, wantCode: http.StatusOK, wantData: marchallList(t, l1, l3)},
		{name: "school", path: "/api/lessons?schoolId=" + north.ID, token: token, wantCode: http.StatusOK, wantData: marchallList(t, l1, l4)},
		{name: "status", path: "/api/lessons?status=cancelled", token: token, wantCode: http.StatusOK, wantData: marchallList(t, l3)},
		{name: "all means no filter", path: "/api/lessons?status=all&teacherId=all", token: token, wantCode: http.StatusOK, wantData: marchallList(t, l2, l1, l3, l4)},
		{name: "ordering", path: "/api/lessons?ordering=-date,startTime", token: token, wantCode: http.StatusOK, wantData: marchallList(t, l4, l3, l2, l1)},
		{
			name: "invalid filter", path: "/api/lessons?dateFrom=11/03/2024&status=lol", token: token, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"dateFrom": "dateFrom must be a date formatted as YYYY-MM-DD", "status": "status must be one of upcoming, completed, cancelled"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.serve(t, tt)
		})
	}
}

func Test_lessonApi_create(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)
	_, viewerToken := env.viewer(t)

	jane := testutil.CreateTeacher(t, env.teacherRepo, "Jane", "Austen")
	emily := testutil.CreateTeacher(t, env.teacherRepo, "Emily", "Bronte")
	north := testutil.CreateSchool(t, env.schoolRepo, "North", 0)
	testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-11", "09:00", "09:45", "A1")

	body := func(teacherID, start, end, room, status string) []byte {
		return marchallObj(t, map[string]string{
			"teacherId": teacherID, "schoolId": north.ID, "date": "2024-03-11",
			"startTime": start, "endTime": end, "room": room, "status": status,
		})
	}

	tests := []httpTest{
		{name: "admin required", body: body(emily.ID, "10:00", "", "", ""), token: viewerToken, wantCode: http.StatusForbidden},
		{
			name: "missing date & times", body: []byte(`{"schoolId": "` + north.ID + `"}`), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date": "this field is required", "startTime": "this field is required", "endTime": "this field is required"}`),
		},
		{
			name: "malformed values", body: []byte(`{"date": "2024-13-01", "startTime": "9h", "status": "done"}`), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date": "date must be a date formatted as YYYY-MM-DD", "startTime": "startTime must be a time formatted as HH:mm", "endTime": "this field is required", "status": "status must be one of upcoming, completed, cancelled"}`),
		},
		{
			name: "end before start", body: body(emily.ID, "10:00", "09:30", "", ""), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"endTime": "endTime must be after the start time"}`),
		},
		{
			name: "unknown references", body: []byte(`{"teacherId": "lol", "schoolId": "lol", "date": "2024-03-11", "startTime": "10:00"}`),
			token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"teacherId": "teacher not found", "schoolId": "school not found"}`),
		},
		{
			name: "teacher double booked", body: body(jane.ID, "09:30", "", "", ""), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"startTime": "teacher is already booked from 09:00 to 09:45"}`),
		},
		{
			name: "room double booked", body: body(emily.ID, "09:15", "", "A1", ""), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"startTime": "room A1 is already booked from 09:00 to 09:45"}`),
		},
		{name: "back to back is fine", body: body(jane.ID, "09:45", "", "A1", ""), token: adminToken, wantCode: http.StatusCreated},
		{name: "cancelled lessons never conflict", body: body(jane.ID, "09:00", "09:45", "A1", "cancelled"), token: adminToken, wantCode: http.StatusCreated},
		{name: "same time in another room", body: body(emily.ID, "09:00", "", "B2", ""), token: adminToken, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/lessons"

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(t, tt)
			if rec.Code != http.StatusCreated {
				return
			}
			var resp struct {
				Lesson lesson.Lesson `json:"lesson"`
			}
			unmarshal(t, rec, &resp)
			assert.NotEmpty(t, resp.Lesson.ID)
			assert.Equal(t, lesson.DefaultSubject, resp.Lesson.Subject)
			assert.Equal(t, 45, resp.Lesson.DurationMinutes())
		})
	}
}

func Test_lessonApi_retrieveUpdateDestroy(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)
	_, viewerToken := env.viewer(t)

	jane := testutil.CreateTeacher(t, env.teacherRepo, "Jane", "Austen")
	north := testutil.CreateSchool(t, env.schoolRepo, "North", 0)
	l := testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-11", "09:00", "09:45", "")
	other := testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-11", "11:00", "11:45", "")
	path := "/api/lessons/" + l.ID

	withTopic := l
	withTopic.Topic = null.StringFrom("Past tense")
	withTopic.Status = lesson.StatusCompleted
	cleared := withTopic
	cleared.Topic = null.String{}

	tests := []httpTest{
		{name: "retrieve", path: path, token: viewerToken, wantCode: http.StatusOK, wantData: marchallObj(t, l)},
		{name: "retrieve unknown", path: "/api/lessons/lol", token: viewerToken, wantCode: http.StatusNotFound},
		{name: "update: admin required", method: http.MethodPatch, path: path, body: []byte(`{"topic": "x"}`), token: viewerToken, wantCode: http.StatusForbidden},
		{
			name: "update: partial", method: http.MethodPatch, path: path, body: []byte(`{"topic": " Past tense ", "status": "Completed"}`),
			token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, map[string]lesson.Lesson{"lesson": withTopic}),
		},
		{
			name: "update: empty topic clears it", method: http.MethodPatch, path: path, body: []byte(`{"topic": ""}`),
			token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, map[string]lesson.Lesson{"lesson": cleared}),
		},
		{
			name: "update: moving onto another lesson conflicts", method: http.MethodPatch, path: path, body: []byte(`{"startTime": "11:30", "endTime": "12:15"}`),
			token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"startTime": "teacher is already booked from 11:00 to 11:45"}`),
		},
		{name: "destroy: admin required", method: http.MethodDelete, path: path, token: viewerToken, wantCode: http.StatusForbidden},
		{name: "destroy", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNoContent},
		{name: "destroy: gone", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.serve(t, tt)
		})
	}

	_, err := env.lessonRepo.GetLesson(context.Background(), other.ID)
	assert.NoError(t, err)
}

func Test_lessonApi_copyWeek(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)

	jane := testutil.CreateTeacher(t, env.teacherRepo, "Jane", "Austen")
	north := testutil.CreateSchool(t, env.schoolRepo, "North", 0)
	monday := testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-11", "09:00", "09:45", "A1", lesson.StatusCompleted)
	saturday := testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-16", "09:00", "09:45", "A1")
	testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-17", "09:00", "09:45", "") // sunday: not part of the school week
	// already booked next saturday
	testutil.CreateLesson(t, env.lessonRepo, "", north.ID, "2024-03-23", "09:30", "10:15", "A1")

	tests := []httpTest{
		{
			name: "week start required", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"weekStart": "this field is required"}`),
		},
		{
			name: "empty week", body: []byte(`{"weekStart": "2024-01-01"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"weekStart": "no lessons found to copy"}`),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/lessons/copy-week"
		tt.token = adminToken

		t.Run(tt.name, func(t *testing.T) {
			env.serve(t, tt)
		})
	}

	rec := env.serve(t, httpTest{
		method: http.MethodPost, path: "/api/lessons/copy-week", token: adminToken,
		body: []byte(`{"weekStart": "2024-03-11", "keepTeachers": true}`), wantCode: http.StatusOK,
	})
	var res lesson.CopyWeekResult
	unmarshal(t, rec, &res)

	require.Len(t, res.Copied, 1)
	cp := res.Copied[0]
	assert.NotEqual(t, monday.ID, cp.ID)
	assert.Equal(t, "2024-03-18", cp.Date)
	assert.Equal(t, lesson.StatusUpcoming, cp.Status)
	assert.Equal(t, jane.ID, cp.TeacherID)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, saturday.ID, res.Skipped[0].SourceID)
	assert.Equal(t, "2024-03-23", res.Skipped[0].Date)
	assert.Equal(t, "room A1 is already booked from 09:30 to 10:15", res.Skipped[0].Reason)

	// without keepTeachers, copies are unassigned
	rec = env.serve(t, httpTest{
		method: http.MethodPost, path: "/api/lessons/copy-week", token: adminToken,
		body: []byte(`{"weekStart": "2024-03-18"}`), wantCode: http.StatusOK,
	})
	var next lesson.CopyWeekResult
	unmarshal(t, rec, &next)
	require.Len(t, next.Copied, 2)
	assert.Empty(t, next.Skipped)
	assert.Equal(t, "2024-03-25", next.Copied[0].Date)
	assert.Equal(t, "2024-03-30", next.Copied[1].Date)
	for _, cp := range next.Copied {
		assert.Empty(t, cp.TeacherID)
	}
}

func newXLSXUpload(t *testing.T, token string, rows [][]interface{}) *http.Request {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, 0, len(lesson.ImportColumns))
	for _, col := range lesson.ImportColumns {
		header = append(header, col)
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	content, err := f.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "lessons.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(content.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/lessons/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func Test_lessonApi_import(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)
	_, viewerToken := env.viewer(t)

	jane := testutil.CreateTeacher(t, env.teacherRepo, "Jane", "Austen")
	north := testutil.CreateSchool(t, env.schoolRepo, "North", 0)

	rows := [][]interface{}{
		{"2024-03-11", "9:00", "", "", "5", jane.ID, north.ID, "A1", "Greetings"},
		{},
		{"2024-03-11", "09:15", "10:00", "Maths", "5", jane.ID, north.ID},            // teacher conflict
		{"not a date", "10:00", "", "", "", "", north.ID},                             // invalid date
		{"2024-03-12", "14:00", "15:00", "Music", "", "lol", north.ID, "", "", "Bring"}, // unknown teacher
	}

	req := newXLSXUpload(t, viewerToken, rows)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = newXLSXUpload(t, adminToken, rows)
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res lesson.ImportResult
	unmarshal(t, rec, &res)
	require.Len(t, res.Imported, 1)
	imported := res.Imported[0]
	assert.Equal(t, "09:00", imported.StartTime)
	assert.Equal(t, "09:45", imported.EndTime)
	assert.Equal(t, lesson.DefaultSubject, imported.Subject)
	assert.Equal(t, null.StringFrom("Greetings"), imported.Topic)

	assert.Equal(t, []lesson.ImportError{
		{Row: 4, Fields: map[string]string{"startTime": "teacher is already booked from 09:00 to 09:45"}},
		{Row: 5, Fields: map[string]string{"date": "date must be a date formatted as YYYY-MM-DD"}},
		{Row: 6, Fields: map[string]string{"teacherId": "teacher not found"}},
	}, res.Errors)
}

func Test_lessonApi_importRequiresWorkbook(t *testing.T) {
	env := setup(t)
	_, adminToken := env.admin(t)

	env.serve(t, httpTest{
		method: http.MethodPost, path: "/api/lessons/import", token: adminToken, wantCode: http.StatusBadRequest,
		wantData: []byte(`{"file": "an xlsx file is required"}`),
	})
}

func Test_lessonApi_exportICS(t *testing.T) {
	env := setup(t)
	_, token := env.viewer(t)

	jane := testutil.CreateTeacher(t, env.teacherRepo, "Jane", "Austen")
	north := testutil.CreateSchool(t, env.schoolRepo, "North", 0)
	l := testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-11", "09:00", "09:45", "A1")
	cancelled := testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-03-12", "09:00", "09:45", "", lesson.StatusCancelled)
	testutil.CreateLesson(t, env.lessonRepo, jane.ID, north.ID, "2024-04-01", "09:00", "09:45", "")

	rec := env.serve(t, httpTest{path: "/api/lessons/export.ics?dateFrom=2024-03-11&dateTo=2024-03-16", token: token, wantCode: http.StatusOK})
	assert.Equal(t, report.ICSContentType, rec.Header().Get("Content-Type"))

	ics := rec.Body.String()
	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Contains(t, ics, "UID:"+l.ID+"@scheduleme\r\n")
	assert.Contains(t, ics, "DTSTART:20240311T090000\r\n")
	assert.Contains(t, ics, "LOCATION:North\\, room A1\r\n")
	assert.Contains(t, ics, "UID:"+cancelled.ID+"@scheduleme\r\nDTSTAMP:20240313T103000Z\r\n")
	assert.Contains(t, ics, "STATUS:CANCELLED\r\n")
}
