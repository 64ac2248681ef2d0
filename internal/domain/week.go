package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date used for every date on the wire and in storage.
const DateLayout = "2006-01-02"

func CurrentWeekRange(loc *time.Location) (time.Time, time.Time) {
	return CurrentWeekRangeAt(time.Now().In(loc))
}

// CurrentWeekRangeAt returns Monday 00:00 and the following Monday 00:00.
func CurrentWeekRangeAt(now time.Time) (time.Time, time.Time) {
	weekday := now.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	daysFromMonday := int(weekday) - int(time.Monday)
	monday := time.Date(now.Year(), now.Month(), now.Day()-daysFromMonday, 0, 0, 0, 0, now.Location())
	nextMonday := monday.AddDate(0, 0, 7)
	return monday, nextMonday
}

// WorkWeekAt returns the Monday and Friday of the week containing now.
func WorkWeekAt(now time.Time) (time.Time, time.Time) {
	monday, _ := CurrentWeekRangeAt(now)
	return monday, monday.AddDate(0, 0, 4)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the calendar date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if len(s) > len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// NormalizeDate parses s and formats it back as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// DatesBetween lists every calendar date from start to end inclusive.
func DatesBetween(start, end time.Time) []string {
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out
}

// NextQuarterLabel names the calendar quarter after now, e.g. "2026第一季度".
func NextQuarterLabel(now time.Time) string {
	names := []string{"第一季度", "第二季度", "第三季度", "第四季度"}
	q := (int(now.Month()) - 1) / 3
	year := now.Year()
	q++
	if q == 4 {
		q = 0
		year++
	}
	return fmt.Sprintf("%d%s", year, names[q])
}
