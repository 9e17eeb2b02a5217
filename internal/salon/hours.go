package salon

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayNames lists weekday codes in calendar order starting on Monday.
var DayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var dayIndex = map[string]int{"Mon": 0, "Tue": 1, "Wed": 2, "Thu": 3, "Fri": 4, "Sat": 5, "Sun": 6}

var closedKeywords = []string{"closed", "cerrado", "выход", "festivo"}

// WeekdayCode maps a time.Weekday onto its three-letter code.
func WeekdayCode(wd time.Weekday) string {
	return DayNames[(int(wd)+6)%7]
}

// IsDayCode reports whether s is one of DayNames.
func IsDayCode(s string) bool {
	_, ok := dayIndex[s]
	return ok
}

// Clock is a time of day in minutes since midnight. 24:00 is allowed as an end.
type Clock int

// ParseClock parses "H:MM" or "HH:MM".
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("bad time value: %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("bad hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return Clock(hour*60 + minute), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On returns the instant of c on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

// ParseInterval parses "HH:MM-HH:MM". End must be after start.
func ParseInterval(s string) (start, end Clock, err error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("interval %q has no '-'", s)
	}
	if start, err = ParseClock(a); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(b); err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("interval %q ends before it starts", s)
	}
	return start, end, nil
}

// WeekHours is the parsed form of an opening-hours line.
type WeekHours struct {
	Hours      map[string][]string
	ClosedDays []string
	Warnings   []string
}

func replaceDashes(s string) string {
	return strings.NewReplacer("—", "-", "–", "-").Replace(s)
}

func expandDayToken(token string) ([]string, bool) {
	token = strings.TrimSpace(token)
	first, last, isRange := strings.Cut(token, "-")
	if !isRange {
		d, ok := dayCode(first)
		if !ok {
			return nil, false
		}
		return []string{d}, true
	}
	from, ok1 := dayCode(first)
	to, ok2 := dayCode(last)
	if !ok1 || !ok2 {
		return nil, false
	}
	i, j := dayIndex[from], dayIndex[to]
	if j < i {
		j += 7
	}
	days := make([]string, 0, j-i+1)
	for k := i; k <= j; k++ {
		days = append(days, DayNames[k%7])
	}
	return days, true
}

// dayCode accepts "mon", "MON", "Monday" and friends.
func dayCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return "", false
	}
	code := strings.ToUpper(s[:1]) + strings.ToLower(s[1:3])
	if _, ok := dayIndex[code]; !ok {
		return "", false
	}
	return code, true
}

// ParseHoursLine parses lines like
// "Mon-Fri: 09:00-14:00/16:00-20:00; Sat: 10:00-14:00; Sun: closed".
// Every weekday is present in the result. Days without intervals, and days
// explicitly marked closed, end up in ClosedDays in first-seen order.
func ParseHoursLine(line string) WeekHours {
	wh := WeekHours{Hours: make(map[string][]string, len(DayNames))}
	for _, d := range DayNames {
		wh.Hours[d] = []string{}
	}
	var closed []string
	clean := strings.TrimRight(strings.TrimSpace(line), ".;")

	for _, part := range strings.Split(clean, ";") {
		part = replaceDashes(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		daysRaw, timesRaw, ok := strings.Cut(part, ":")
		if !ok {
			wh.Warnings = append(wh.Warnings, fmt.Sprintf("hours clause %q has no ':'", part))
			continue
		}
		var days []string
		for _, tok := range strings.Split(daysRaw, ",") {
			if strings.TrimSpace(tok) == "" {
				continue
			}
			expanded, ok := expandDayToken(tok)
			if !ok {
				wh.Warnings = append(wh.Warnings, fmt.Sprintf("unknown day token %q", strings.TrimSpace(tok)))
				continue
			}
			days = append(days, expanded...)
		}

		value := strings.Trim(strings.TrimSpace(timesRaw), ".")
		if isClosedValue(value) {
			closed = append(closed, days...)
			continue
		}
		var segments []string
		for _, chunk := range strings.Split(value, "/") {
			chunk = strings.ReplaceAll(strings.TrimSpace(chunk), " ", "")
			if chunk == "" {
				continue
			}
			start, end, err := ParseInterval(chunk)
			if err != nil {
				wh.Warnings = append(wh.Warnings, fmt.Sprintf("dropped hours segment %q: %v", chunk, err))
				continue
			}
			segments = append(segments, start.String()+"-"+end.String())
		}
		if len(segments) == 0 {
			closed = append(closed, days...)
			continue
		}
		for _, d := range days {
			wh.Hours[d] = append(wh.Hours[d], segments...)
		}
	}

	for _, d := range DayNames {
		if len(wh.Hours[d]) == 0 {
			closed = append(closed, d)
		}
	}
	wh.ClosedDays = uniqueOrdered(closed)
	for _, d := range wh.ClosedDays {
		wh.Hours[d] = []string{}
	}
	return wh
}

func isClosedValue(v string) bool {
	lower := strings.ToLower(v)
	for _, k := range closedKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// FormatHoursLine writes hours back in the grammar ParseHoursLine reads.
// Closed days come first so that re-parsing keeps their order.
func FormatHoursLine(hours map[string][]string, closedDays []string) string {
	closed := make(map[string]bool, len(closedDays))
	parts := make([]string, 0, len(DayNames))
	for _, d := range closedDays {
		if !closed[d] {
			closed[d] = true
			parts = append(parts, d+": closed")
		}
	}
	for _, d := range DayNames {
		if closed[d] {
			continue
		}
		if len(hours[d]) == 0 {
			parts = append(parts, d+": closed")
			continue
		}
		parts = append(parts, d+": "+strings.Join(hours[d], "/"))
	}
	return strings.Join(parts, "; ")
}

// CopyHours returns a deep copy of a weekday schedule.
func CopyHours(hours map[string][]string) map[string][]string {
	out := make(map[string][]string, len(hours))
	for d, segs := range hours {
		out[d] = append([]string{}, segs...)
	}
	return out
}

func uniqueOrdered(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
