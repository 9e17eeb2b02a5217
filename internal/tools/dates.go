package tools

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"salonagent/internal/salon"
)

var errBadTimestamp = errors.New("bad timestamp")

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// parseTimestamp reads an ISO-8601 timestamp. Without an offset the value is
// taken as wall time in loc; with one it is converted to loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errBadTimestamp
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.Parse("2006-01-02T15:04Z07:00", s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadTimestamp
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func addDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	shortDateRe = regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})(?:[./](\d{2}|\d{4}))?\b`)
	inDaysRe    = regexp.MustCompile(`(?:^|\s)(?:через|en|dentro de|in)\s+(\d{1,2})\s+(?:дн|ден|dia|day)`)
)

// Relative day words, already lower-cased and stripped of accents.
var (
	inWeekWords   = []string{"через неделю", "en una semana", "dentro de una semana", "in a week", "in one week"}
	dayAfterWords = []string{"послезавтра", "pasado manana", "day after tomorrow"}
	tomorrowWords = []string{"завтра", "manana", "tomorrow"}
	todayWords    = []string{"сегодня", "hoy", "today", "tonight"}
)

type weekdayStem struct {
	stem string
	day  time.Weekday
}

var weekdayStems = []weekdayStem{
	{"понедельн", time.Monday}, {"вторник", time.Tuesday}, {"сред", time.Wednesday},
	{"четверг", time.Thursday}, {"пятниц", time.Friday}, {"суббот", time.Saturday},
	{"воскресен", time.Sunday},
	{"lunes", time.Monday}, {"martes", time.Tuesday}, {"miercoles", time.Wednesday},
	{"jueves", time.Thursday}, {"viernes", time.Friday}, {"sabado", time.Saturday},
	{"domingo", time.Sunday},
	{"monday", time.Monday}, {"tuesday", time.Tuesday}, {"wednesday", time.Wednesday},
	{"thursday", time.Thursday}, {"friday", time.Friday}, {"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

// ResolveDate maps a spoken day reference in Russian, Spanish or English to a
// calendar day (midnight in now's location). Weekday names resolve to their
// next occurrence and never to today. Explicit dates without a year that
// already passed roll over to next year.
func ResolveDate(query string, now time.Time) (time.Time, bool) {
	today := midnight(now)
	raw := strings.ToLower(strings.TrimSpace(query))
	if raw == "" {
		return time.Time{}, false
	}

	if m := isoDateRe.FindStringSubmatch(raw); m != nil {
		if t, ok := buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), now.Location()); ok {
			return t, true
		}
	}
	if m := shortDateRe.FindStringSubmatch(raw); m != nil {
		if t, ok := shortDate(m, today); ok {
			return t, true
		}
	}

	text := salon.Normalize(raw)
	if m := inDaysRe.FindStringSubmatch(text); m != nil {
		return addDays(today, atoi(m[1])), true
	}
	if containsAny(text, inWeekWords) {
		return addDays(today, 7), true
	}
	if containsAny(text, dayAfterWords) {
		return addDays(today, 2), true
	}
	for _, tok := range strings.Fields(text) {
		for _, ws := range weekdayStems {
			if strings.HasPrefix(tok, ws.stem) {
				ahead := (int(ws.day) - int(today.Weekday()) + 7) % 7
				if ahead == 0 {
					ahead = 7
				}
				return addDays(today, ahead), true
			}
		}
	}
	if containsAny(text, tomorrowWords) {
		return addDays(today, 1), true
	}
	if containsAny(text, todayWords) {
		return today, true
	}
	return time.Time{}, false
}

func shortDate(m []string, today time.Time) (time.Time, bool) {
	day, month := atoi(m[1]), atoi(m[2])
	if m[3] != "" {
		year := atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return buildDate(year, month, day, today.Location())
	}
	t, ok := buildDate(today.Year(), month, day, today.Location())
	if ok && t.Before(today) {
		t, ok = buildDate(today.Year()+1, month, day, today.Location())
	}
	return t, ok
}

func buildDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func containsAny(text string, words []string) bool {
	padded := " " + text + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
