package salon

import (
	"regexp"
	"strings"
)

// Defaults used when the facts text does not say otherwise.
const (
	DefaultStoreName = "Betrán Estilistas"
	DefaultTimezone  = "Europe/Madrid"
)

// StoreInfo holds salon-wide facts and opening hours.
type StoreInfo struct {
	Name       string              `json:"name" yaml:"name"`
	Address    string              `json:"address" yaml:"address"`
	Phone      string              `json:"phone" yaml:"phone"`
	Email      string              `json:"email" yaml:"email"`
	Timezone   string              `json:"timezone" yaml:"timezone"`
	Hours      map[string][]string `json:"hours" yaml:"hours"`
	ClosedDays []string            `json:"closed_days" yaml:"closed_days"`
	Holidays   []string            `json:"holidays" yaml:"holidays,omitempty"`
	Socials    map[string]string   `json:"socials,omitempty" yaml:"socials,omitempty"`
	Notes      map[string]string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IsClosedDay reports whether the weekday code is a regular closed day.
func (s *StoreInfo) IsClosedDay(weekday string) bool {
	return contains(s.ClosedDays, weekday) || len(s.Hours[weekday]) == 0
}

// IsHoliday reports whether the ISO date (or any ISO timestamp on that date)
// is a declared holiday.
func (s *StoreInfo) IsHoliday(dateISO string) bool {
	if len(dateISO) > 10 {
		dateISO = dateISO[:10]
	}
	return contains(s.Holidays, dateISO)
}

type factPattern struct {
	re      *regexp.Regexp
	trimDot bool
}

var (
	addressPatterns = []factPattern{
		{regexp.MustCompile(`Address:\s*([^\n]+)`), true},
		{regexp.MustCompile(`Адрес:\s*([^\n]+)`), true},
		{regexp.MustCompile(`Dirección:\s*([^\n]+)`), true},
	}
	phonePatterns = []factPattern{
		{re: regexp.MustCompile(`Phone:\s*([^,\n]+)`)},
		{re: regexp.MustCompile(`Телефон:\s*([^,\n]+)`)},
		{re: regexp.MustCompile(`Teléfono:\s*([^,\n]+)`)},
	}
	emailPatterns = []factPattern{
		{re: regexp.MustCompile(`(?i)e-?mail:\s*([^\s;]+)`)},
	}
	hoursPatterns = []factPattern{
		{re: regexp.MustCompile(`Hours:\s*([^\n]+)`)},
		{re: regexp.MustCompile(`Часы:\s*([^\n]+)`)},
		{re: regexp.MustCompile(`Horario:\s*([^\n]+)`)},
	}
	nameRe      = regexp.MustCompile(`(?m)^(?:Name|Название|Nombre):\s*([^\n]+)`)
	timezoneRe  = regexp.MustCompile(`(?m)^(?:Timezone|Часовой пояс|Zona horaria):\s*([A-Za-z_]+/[A-Za-z_]+)`)
	instagramRe = regexp.MustCompile(`Instagram\s*\(@([^)]+)\)`)
	notesRes    = map[string]*regexp.Regexp{
		"philosophy": regexp.MustCompile(`(?:Философия|Philosophy|Filosofía):([^\[\n]+)`),
		"community":  regexp.MustCompile(`(?:Комьюнити|Community|Comunidad):([^\[\n]+)`),
	}
)

func firstMatch(text string, patterns []factPattern) string {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(m[1])
		if p.trimDot {
			v = strings.TrimRight(v, ".")
		}
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseStoreFacts extracts store facts from free prose. English labels win
// over Russian and Spanish ones.
func ParseStoreFacts(text string) (StoreInfo, []string) {
	store := StoreInfo{
		Name:     DefaultStoreName,
		Address:  firstMatch(text, addressPatterns),
		Phone:    firstMatch(text, phonePatterns),
		Email:    firstMatch(text, emailPatterns),
		Timezone: DefaultTimezone,
		Holidays: []string{},
		Socials:  map[string]string{},
		Notes:    map[string]string{},
	}
	if m := nameRe.FindStringSubmatch(text); m != nil {
		store.Name = strings.TrimSpace(m[1])
	}
	if m := timezoneRe.FindStringSubmatch(text); m != nil {
		store.Timezone = m[1]
	}

	wh := ParseHoursLine(firstMatch(text, hoursPatterns))
	store.Hours, store.ClosedDays = wh.Hours, wh.ClosedDays

	if m := instagramRe.FindStringSubmatch(text); m != nil {
		store.Socials["instagram"] = "@" + strings.TrimSpace(m[1])
	}
	for key, re := range notesRes {
		if m := re.FindStringSubmatch(text); m != nil {
			store.Notes[key] = strings.TrimSpace(m[1])
		}
	}
	return store, wh.Warnings
}
