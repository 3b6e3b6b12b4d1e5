package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/scheduleme/backend/core/lesson"
)

const (
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ICSContentType  = "text/calendar; charset=utf-8"

	icsProductID = "-//ScheduleMe//Lessons//EN"
	icsStampFmt  = "20060102T150405Z"

	rowsSheet    = "Teacher Hours"
	totalsSheet  = "By Teacher"
	xlsxColWidth = 18
)

var CSVHeader = []string{"Teacher", "Date", "Start Time", "End Time", "Duration (min)", "School", "Subject", "Grade"}

func (row Row) record() []string {
	return []string{
		row.TeacherName,
		row.Date,
		row.StartTime,
		row.EndTime,
		strconv.Itoa(row.DurationMinutes),
		row.SchoolName,
		row.Subject,
		row.Grade,
	}
}

// WriteCSV writes the report rows under CSVHeader.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with the report rows and a totals line on the first sheet,
// and the per-teacher summary on the second.
func WriteXLSX(w io.Writer, rep TeacherHours) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", rowsSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}

	header := make([]interface{}, 0, len(CSVHeader))
	for _, h := range CSVHeader {
		header = append(header, h)
	}
	if err = f.SetSheetRow(rowsSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, row := range rep.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			row.TeacherName, row.Date, row.StartTime, row.EndTime,
			row.DurationMinutes, row.SchoolName, row.Subject, row.Grade,
		}
		if err = f.SetSheetRow(rowsSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}
	totalRow := len(rep.Rows) + 3
	totalCell, _ := excelize.CoordinatesToCellName(1, totalRow)
	totals := []interface{}{
		"Total", fmt.Sprintf("%d lessons", rep.TotalLessons), "", "", rep.TotalMinutes,
		fmt.Sprintf("%dh %dm", rep.TotalHours, rep.RemainingMinutes), "Average (min)", rep.AverageMinutes,
	}
	if err = f.SetSheetRow(rowsSheet, totalCell, &totals); err != nil {
		return errors.Wrap(err, "writing totals")
	}
	lastCell, _ := excelize.CoordinatesToCellName(len(CSVHeader), totalRow)
	_ = f.SetCellStyle(rowsSheet, "A1", "H1", bold)
	_ = f.SetCellStyle(rowsSheet, totalCell, lastCell, bold)
	_ = f.SetColWidth(rowsSheet, "A", "H", xlsxColWidth)

	if _, err = f.NewSheet(totalsSheet); err != nil {
		return errors.Wrap(err, "creating summary sheet")
	}
	if err = f.SetSheetRow(totalsSheet, "A1", &[]interface{}{"Teacher", "Lessons", "Minutes", "Hours"}); err != nil {
		return errors.Wrap(err, "writing summary header")
	}
	for i, tt := range rep.ByTeacher {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{tt.TeacherName, tt.Lessons, tt.Minutes, fmt.Sprintf("%dh %dm", tt.Minutes/60, tt.Minutes%60)}
		if err = f.SetSheetRow(totalsSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "writing summary row %d", i+2)
		}
	}
	_ = f.SetCellStyle(totalsSheet, "A1", "D1", bold)
	_ = f.SetColWidth(totalsSheet, "A", "D", xlsxColWidth)

	_, err = f.WriteTo(w)
	return errors.Wrap(err, "writing xlsx")
}

// WriteICS writes one VEVENT per row. Times are floating (local to the school).
func WriteICS(w io.Writer, calName string, rows []Row, now time.Time) error {
	b := new(strings.Builder)
	line := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(b, format+"\r\n", args...)
	}
	stamp := now.UTC().Format(icsStampFmt)

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:%s", icsProductID)
	line("CALSCALE:GREGORIAN")
	line("X-WR-CALNAME:%s", icsEscape(calName))
	for _, row := range rows {
		start, okStart := icsDateTime(row.Date, row.StartTime)
		end, okEnd := icsDateTime(row.Date, row.EndTime)
		if !okStart || !okEnd {
			continue
		}
		line("BEGIN:VEVENT")
		line("UID:%s@scheduleme", row.LessonID)
		line("DTSTAMP:%s", stamp)
		line("DTSTART:%s", start)
		line("DTEND:%s", end)
		line("SUMMARY:%s", icsEscape(summary(row)))
		location := row.SchoolName
		if row.Room != "" {
			location += ", room " + row.Room
		}
		line("LOCATION:%s", icsEscape(location))
		desc := "Teacher: " + row.TeacherName
		if row.Topic != "" {
			desc += "\nTopic: " + row.Topic
		}
		line("DESCRIPTION:%s", icsEscape(desc))
		if row.Status == lesson.StatusCancelled {
			line("STATUS:CANCELLED")
		} else {
			line("STATUS:CONFIRMED")
		}
		line("END:VEVENT")
	}
	line("END:VCALENDAR")

	_, err := io.WriteString(w, b.String())
	return err
}

func summary(row Row) string {
	if row.Grade == "" {
		return row.Subject
	}
	return row.Subject + " (" + row.Grade + ")"
}

func icsDateTime(date, clock string) (string, bool) {
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		return "", false
	}
	return t.Format("20060102T150405"), true
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func icsEscape(s string) string {
	return icsEscaper.Replace(s)
}
