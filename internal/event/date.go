package event

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

// dateParts is what a matcher pulls out of free text
type dateParts struct {
	month        time.Month
	day          int
	year         int
	explicitYear bool
}

// dateMatcher is one entry of the ordered date cascade
type dateMatcher struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string) (dateParts, bool)
}

// dateMatchers is evaluated in order, first match wins
var dateMatchers = []dateMatcher{
	{
		name:    "month-day",
		pattern: regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`),
		build: func(m []string) (dateParts, bool) {
			return namedParts(m[1], m[2], m[3])
		},
	},
	{
		name:    "day-month",
		pattern: regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b\.?(?:,?\s+(\d{4})\b)?`),
		build: func(m []string) (dateParts, bool) {
			return namedParts(m[2], m[1], m[3])
		},
	},
	{
		name:    "numeric-slash",
		pattern: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`),
		build: func(m []string) (dateParts, bool) {
			return numericParts(m[1], m[2], m[3])
		},
	},
	{
		name:    "numeric-dash",
		pattern: regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`),
		build: func(m []string) (dateParts, bool) {
			return numericParts(m[1], m[2], m[3])
		},
	},
	{
		name:    "iso",
		pattern: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:T|\b)`),
		build: func(m []string) (dateParts, bool) {
			return numericParts(m[2], m[3], m[1])
		},
	},
	{
		name:    "dotted",
		pattern: regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`),
		build: func(m []string) (dateParts, bool) {
			return numericParts(m[1], m[2], m[3])
		},
	},
}

// timePattern matches "8pm", "7:30 p.m.", "Doors: 7PM"
var timePattern = regexp.MustCompile(`(?i)(?:doors:?\s*)?\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?\s?m\b\.?`)

// Normalize converts venue free text into a calendar date and a display time.
// A date without a year that falls before today is assumed to be next year's
// occurrence. When nothing matches, today's date is returned.
func Normalize(dateText, timeText string, now time.Time) (CalendarDate, string) {
	return NormalizeWithYear(dateText, timeText, now.Year(), now)
}

// NormalizeWithYear is Normalize with an explicit reference year for dates that omit one
func NormalizeWithYear(dateText, timeText string, referenceYear int, now time.Time) (CalendarDate, string) {
	displayTime := ExtractTime(timeText)
	if displayTime == "" {
		displayTime = ExtractTime(dateText)
	}

	date, ok := matchDate(dateText, referenceYear, now)
	if !ok {
		return NewCalendarDate(now), displayTime
	}
	return date, displayTime
}

// ParseDate returns the normalized date for text, or the zero time if no pattern matches
func ParseDate(dateText string) time.Time {
	date, ok := matchDate(dateText, time.Now().Year(), time.Now())
	if !ok {
		return time.Time{}
	}
	return date.Time
}

// MatcherName reports which cascade entry matched text, or "" when none did
func MatcherName(dateText string) string {
	for _, m := range dateMatchers {
		if match := m.pattern.FindStringSubmatch(dateText); match != nil {
			if _, ok := m.build(match); ok {
				return m.name
			}
		}
	}
	return ""
}

func matchDate(dateText string, referenceYear int, now time.Time) (CalendarDate, bool) {
	text := strings.TrimSpace(dateText)
	if text == "" {
		return CalendarDate{}, false
	}

	for _, m := range dateMatchers {
		match := m.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		parts, ok := m.build(match)
		if !ok {
			continue
		}
		if !parts.explicitYear {
			parts.year = referenceYear
		}
		t := time.Date(parts.year, parts.month, parts.day, 0, 0, 0, 0, time.UTC)
		// Reject rollovers such as Feb 31
		if t.Month() != parts.month || t.Day() != parts.day {
			continue
		}
		return applyFutureBias(NewCalendarDate(t), now), true
	}

	return CalendarDate{}, false
}

// applyFutureBias adds exactly one year to a date that is before today
func applyFutureBias(date CalendarDate, now time.Time) CalendarDate {
	today := NewCalendarDate(now)
	if date.Before(today.Time) {
		return NewCalendarDate(date.AddDate(1, 0, 0))
	}
	return date
}

// ExtractTime finds a clock time in text and renders it as "7:00 PM"
func ExtractTime(text string) string {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return ""
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return ""
		}
	}
	meridiem := "AM"
	if strings.EqualFold(m[3], "p") {
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, meridiem)
}

func namedParts(monthText, dayText, yearText string) (dateParts, bool) {
	month := ParseMonth(monthText)
	if month == 0 {
		return dateParts{}, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 || day > 31 {
		return dateParts{}, false
	}
	parts := dateParts{month: month, day: day}
	if yearText != "" {
		year, err := strconv.Atoi(yearText)
		if err != nil {
			return dateParts{}, false
		}
		parts.year = year
		parts.explicitYear = true
	}
	return parts, true
}

func numericParts(monthText, dayText, yearText string) (dateParts, bool) {
	month, err := strconv.Atoi(monthText)
	if err != nil || month < 1 || month > 12 {
		return dateParts{}, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 || day > 31 {
		return dateParts{}, false
	}
	parts := dateParts{month: time.Month(month), day: day}
	if yearText != "" {
		year, err := strconv.Atoi(yearText)
		if err != nil {
			return dateParts{}, false
		}
		if len(yearText) == 2 {
			year += 2000
		} else if len(yearText) != 4 {
			return dateParts{}, false
		}
		parts.year = year
		parts.explicitYear = true
	}
	return parts, true
}

// ParseMonth converts a month name or abbreviation to time.Month, 0 if unknown
func ParseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if len(name) < 3 {
		return 0
	}
	months := map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
	return months[name[:3]]
}

// FormatDateNice renders a date for humans, with a relative hint for the next two weeks
func FormatDateNice(date CalendarDate, now time.Time) string {
	if date.IsZero() {
		return ""
	}
	formatted := date.Format("Mon, Jan 2, 2006")

	days := int(date.Sub(NewCalendarDate(now).Time).Hours() / 24)
	switch {
	case days == 0:
		return formatted + " (today)"
	case days == 1:
		return formatted + " (tomorrow)"
	case days > 1 && days < 7:
		return fmt.Sprintf("%s (in %d days)", formatted, days)
	case days >= 7 && days < 14:
		return formatted + " (in 1 week)"
	case days >= 14 && days < 21:
		return formatted + " (in 2 weeks)"
	}
	return formatted
}
