package lesson

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/calendar"
)

// ImportColumns is the expected header of a lesson spreadsheet.
var ImportColumns = []string{"Date", "Start", "End", "Subject", "Grade", "Teacher ID", "School ID", "Room", "Topic", "Notes"}

type (
	ImportRow struct {
		Row    int // 1-based spreadsheet row
		Lesson NewLesson
	}

	ImportError struct {
		Row    int               `json:"row"`
		Error  string            `json:"error,omitempty"`
		Fields map[string]string `json:"fields,omitempty"`
	}

	ImportResult struct {
		Imported []Lesson      `json:"imported"`
		Errors   []ImportError `json:"errors"`
	}
)

// ParseXLSX reads lessons from the first sheet of an xlsx workbook, skipping the header row.
// Blank rows are ignored.
func ParseXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewFieldValidationError("file", "file is not a valid xlsx workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewFieldValidationError("file", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading xlsx rows")
	}

	var parsed []ImportRow
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		cell := func(col int) string {
			if col < len(cells) {
				return strings.TrimSpace(cells[col])
			}
			return ""
		}
		if strings.Join(cells, "") == "" {
			continue
		}
		parsed = append(parsed, ImportRow{
			Row: i + 1,
			Lesson: NewLesson{
				Date:      normalizeDate(cell(0)),
				StartTime: normalizeClock(cell(1)),
				EndTime:   normalizeClock(cell(2)),
				Subject:   cell(3),
				Grade:     cell(4),
				TeacherID: cell(5),
				SchoolID:  cell(6),
				Room:      cell(7),
				Topic:     cell(8),
				Notes:     cell(9),
			},
		})
	}
	return parsed, nil
}

// Import validates and creates every row. Rows failing validation (as told by describe, which
// turns validation errors into a field map) are collected in the result; any other error aborts.
func (svc *Service) Import(ctx context.Context, rows []ImportRow, validate *validator.Validate,
	describe func(error) (map[string]string, bool)) (ImportResult, error) {
	res := ImportResult{Imported: []Lesson{}, Errors: []ImportError{}}
	for _, row := range rows {
		nl := row.Lesson
		err := nl.Validate(validate)
		if err == nil {
			var l Lesson
			if l, err = svc.Create(ctx, nl); err == nil {
				res.Imported = append(res.Imported, l)
				continue
			}
		}
		if flds, ok := describe(err); ok {
			res.Errors = append(res.Errors, ImportError{Row: row.Row, Fields: flds})
			continue
		}
		return res, err
	}
	return res, nil
}

// normalizeDate accepts YYYY-MM-DD text or an Excel date serial number.
func normalizeDate(s string) string {
	if _, err := calendar.ParseDate(s); err == nil || s == "" {
		return s
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return calendar.FormatDate(t)
		}
	}
	return s
}

// normalizeClock accepts HH:mm, H:mm, HH:mm:ss or an Excel day fraction.
func normalizeClock(s string) string {
	if s == "" {
		return s
	}
	if frac, err := strconv.ParseFloat(s, 64); err == nil && frac >= 0 && frac < 1 {
		return calendar.FormatClock(int(frac*24*60 + 0.5))
	}
	parts := strings.Split(s, ":")
	if len(parts) >= 2 {
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		if errH == nil && errM == nil && h >= 0 && h < 24 && m >= 0 && m < 60 {
			return calendar.FormatClock(h*60 + m)
		}
	}
	return s
}
