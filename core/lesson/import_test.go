package lesson

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/scheduleme/backend/core"
)

func Test_normalizeDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{in: "", want: ""},
		{in: "2024-03-13", want: "2024-03-13"},
		{in: "45364", want: "2024-03-13"},
		{in: "13/03/2024", want: "13/03/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeDate(tt.in))
		})
	}
}

func Test_normalizeClock(t *testing.T) {
	tests := []struct{ in, want string }{
		{in: "", want: ""},
		{in: "09:00", want: "09:00"},
		{in: "9:05", want: "09:05"},
		{in: "14:30:00", want: "14:30"},
		{in: "0.375", want: "09:00"},
		{in: "0.6041666667", want: "14:30"},
		{in: "25:00", want: "25:00"},
		{in: "lol", want: "lol"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeClock(tt.in))
		})
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Date", "Start", "End", "Subject", "Grade", "Teacher ID", "School ID", "Room", "Topic", "Notes"},
		{"2024-03-13", "9:00", "09:45", "Math", "5", "t1", "s1", "A1", "Fractions"},
		{},
		{"2024-03-14", "10:00"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf := new(bytes.Buffer)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)

	parsed, err := ParseXLSX(buf)
	require.NoError(t, err)
	assert.Equal(t, []ImportRow{
		{Row: 2, Lesson: NewLesson{
			Date: "2024-03-13", StartTime: "09:00", EndTime: "09:45", Subject: "Math", Grade: "5",
			TeacherID: "t1", SchoolID: "s1", Room: "A1", Topic: "Fractions",
		}},
		{Row: 4, Lesson: NewLesson{Date: "2024-03-14", StartTime: "10:00"}},
	}, parsed)

	_, err = ParseXLSX(strings.NewReader("not a workbook"))
	var vErr *core.ValidationError
	if assert.ErrorAs(t, err, &vErr) {
		assert.Equal(t, "file", vErr.Fields[0].Field)
	}
}
