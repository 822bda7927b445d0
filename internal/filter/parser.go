package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
)

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "Mar 1-15" or "March 1-15" - Same month, different days
//   - "March 1 - April 15" - Different months
//   - "March" - Entire month
//
// Months earlier than now's month are taken to be next year. For cross-month
// ranges an end month before the start month rolls the end into the next year.
// Start time is at 00:00:00 UTC, end time is at 23:59:59 UTC.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	if matches := sameMonthRange.FindStringSubmatch(input); matches != nil {
		month := event.ParseMonth(matches[1])
		day1, err := parseDay(matches[2])
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(matches[3])
		if err != nil {
			return nil, nil, err
		}

		year := yearForMonth(month, now)
		from := time.Date(year, month, day1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, month, day2, 23, 59, 59, 0, time.UTC)

		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if matches := crossMonthRange.FindStringSubmatch(input); matches != nil {
		month1 := event.ParseMonth(matches[1])
		day1, err := parseDay(matches[2])
		if err != nil {
			return nil, nil, err
		}
		month2 := event.ParseMonth(matches[3])
		day2, err := parseDay(matches[4])
		if err != nil {
			return nil, nil, err
		}

		year1 := yearForMonth(month1, now)
		year2 := year1
		if month2 < month1 {
			year2++
		}

		from := time.Date(year1, month1, day1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year2, month2, day2, 23, 59, 59, 0, time.UTC)

		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if matches := wholeMonth.FindStringSubmatch(input); matches != nil {
		month := event.ParseMonth(matches[1])
		year := yearForMonth(month, now)
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		// Day 0 of the next month is the last day of this one
		to := time.Date(year, month+1, 0, 23, 59, 59, 0, time.UTC)
		return &from, &to, nil
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use 'Mar 1-15', 'March 1 - April 15', or 'March'")
}

// ParseDay parses a date bound. YYYY-MM-DD is taken literally; other listing formats
// ("Aug 5", "08/05/2025") go through event.ParseDate. endOfDay moves the result to 23:59:59.
func ParseDay(input string, endOfDay bool) (*time.Time, error) {
	input = strings.TrimSpace(input)
	t, err := time.Parse(event.DateLayout, input)
	if err != nil {
		if t = event.ParseDate(input); t.IsZero() {
			return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD", input)
		}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day: %s", s)
	}
	return day, nil
}

// yearForMonth returns now's year, or next year when the month has already passed
func yearForMonth(month time.Month, now time.Time) int {
	year := now.Year()
	if month < now.Month() {
		year++
	}
	return year
}
