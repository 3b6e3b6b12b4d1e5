// Package calendar holds the date & wall-clock arithmetic used to lay lessons out on
// weekly and daily timetables.
//
// Dates are calendar dates formatted as YYYY-MM-DD and clock times are HH:mm strings; both sort
// lexically in chronological order, which is why they are stored as plain text.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DateLayout = "2006-01-02"

	// WeekLength is the number of days displayed on a school week (Monday to Saturday).
	WeekLength = 6

	minutesPerDay = 24 * 60
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidClock = errors.New("invalid time")
)

// ParseDate parses a YYYY-MM-DD date. The result is at noon UTC so that day arithmetic never
// crosses a DST boundary.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC), nil
}

// FormatDate formats the calendar date of t (in t's own location).
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Date returns the calendar date of t at noon UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(d.AddDate(0, 0, n)), nil
}

// StartOfWeek returns the Monday of the week containing now, shifted by offsetWeeks weeks.
// Sunday belongs to the week that started six days earlier.
func StartOfWeek(now time.Time, offsetWeeks int) time.Time {
	d := Date(now)
	wd := int(d.Weekday())
	diff := 1 - wd
	if wd == 0 {
		diff = -6
	}
	return d.AddDate(0, 0, diff+offsetWeeks*7)
}

// WeekDays returns n consecutive dates starting at start.
func WeekDays(start time.Time, n int) []time.Time {
	start = Date(start)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}

// WeekDates is WeekDays formatted as YYYY-MM-DD.
func WeekDates(start time.Time, n int) []string {
	days := WeekDays(start, n)
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, FormatDate(d))
	}
	return dates
}

// TimeSlots returns hourly slot labels from firstHour to lastHour inclusive.
func TimeSlots(firstHour, lastHour int) []string {
	if firstHour < 0 {
		firstHour = 0
	}
	if lastHour > 23 {
		lastHour = 23
	}
	slots := make([]string, 0, lastHour-firstHour+1)
	for h := firstHour; h <= lastHour; h++ {
		slots = append(slots, FormatClock(h*60))
	}
	return slots
}

// ParseClock parses an HH:mm time into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

// FormatClock formats minutes since midnight as HH:mm, wrapping around midnight.
func FormatClock(minutes int) string {
	minutes %= minutesPerDay
	if minutes < 0 {
		minutes += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes adds n minutes to an HH:mm time the way a wall clock does.
func AddMinutes(clock string, n int) (string, error) {
	m, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	return FormatClock(m + n), nil
}

// Hour returns the hour component of an HH:mm time.
func Hour(clock string) (int, error) {
	m, err := ParseClock(clock)
	if err != nil {
		return 0, err
	}
	return m / 60, nil
}

// DurationMinutes returns end - start in minutes. Invalid times count as zero.
func DurationMinutes(start, end string) int {
	s, err := ParseClock(start)
	if err != nil {
		return 0
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0
	}
	return e - s
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}
