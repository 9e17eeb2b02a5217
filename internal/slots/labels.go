package slots

import (
	"fmt"
	"strings"
	"time"

	"salonagent/internal/salon"
)

// Supported locales.
const (
	LocaleRU = "ru"
	LocaleES = "es"
	LocaleEN = "en"
)

var weekdayNames = map[string][]string{
	LocaleRU: {"понедельник", "вторник", "среда", "четверг", "пятница", "суббота", "воскресенье"},
	LocaleES: {"lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo"},
	LocaleEN: {"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
}

// NormalizeLocale maps a language tag ("ru-RU", "es_ES", "EN") to a supported
// locale, defaulting to Spanish.
func NormalizeLocale(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case strings.HasPrefix(tag, LocaleRU):
		return LocaleRU
	case strings.HasPrefix(tag, LocaleEN):
		return LocaleEN
	default:
		return LocaleES
	}
}

// WeekdayName returns the lower-case local name of a weekday code.
func WeekdayName(locale, code string) string {
	names := weekdayNames[NormalizeLocale(locale)]
	for i, d := range salon.DayNames {
		if d == code {
			return names[i]
		}
	}
	return code
}

// Label renders a slot start for speech, e.g. "Понедельник 20.10 в 09:30".
func Label(locale string, t time.Time) string {
	locale = NormalizeLocale(locale)
	day := capitalize(WeekdayName(locale, salon.WeekdayCode(t.Weekday())))
	switch locale {
	case LocaleRU:
		return fmt.Sprintf("%s %s в %s", day, t.Format("02.01"), t.Format("15:04"))
	case LocaleEN:
		return fmt.Sprintf("%s %s at %s", day, t.Format("02.01"), t.Format("15:04"))
	default:
		return fmt.Sprintf("%s %s a las %s", day, t.Format("02/01"), t.Format("15:04"))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// FormatDuration renders minutes for speech in the given locale.
func FormatDuration(locale string, minutes int) string {
	hours, mins := minutes/60, minutes%60
	switch NormalizeLocale(locale) {
	case LocaleRU:
		switch {
		case hours == 0:
			return fmt.Sprintf("%d мин", mins)
		case mins == 0:
			return fmt.Sprintf("%d ч", hours)
		default:
			return fmt.Sprintf("%d ч %d мин", hours, mins)
		}
	case LocaleEN:
		switch {
		case hours == 0:
			return fmt.Sprintf("%d min", mins)
		case mins == 0:
			return fmt.Sprintf("%d h", hours)
		default:
			return fmt.Sprintf("%d h %d min", hours, mins)
		}
	default:
		switch {
		case hours == 0:
			return fmt.Sprintf("%d min", mins)
		case mins == 0:
			return fmt.Sprintf("%d h", hours)
		default:
			return fmt.Sprintf("%d h y %d min", hours, mins)
		}
	}
}
