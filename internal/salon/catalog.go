package salon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultCategory is assigned to services listed before any category header.
const DefaultCategory = "General"

// Service is one bookable catalog entry.
type Service struct {
	Code        string   `json:"id" yaml:"code"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	PriceText   string   `json:"price_text" yaml:"price_text"`
	PriceAmount *float64 `json:"price_eur,omitempty" yaml:"price_amount,omitempty"`
	DurationMin *int     `json:"duration_min,omitempty" yaml:"duration_min,omitempty"`
	Tags        []string `json:"tags" yaml:"-"`
}

// Schedulable reports whether the service has a known positive duration.
func (s *Service) Schedulable() bool {
	return s.DurationMin != nil && *s.DurationMin > 0
}

// Duration returns the duration in minutes, zero when unknown.
func (s *Service) Duration() int {
	if !s.Schedulable() {
		return 0
	}
	return *s.DurationMin
}

var (
	priceRe    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	firstIntRe = regexp.MustCompile(`\d+`)

	catalogSkipPrefixes = []string{"Каталог", "Catalog", "Catálogo", "Примечание", "Nota"}
)

// ParseCatalog reads a services listing:
//
//	— Cortes:
//	SVC001 — Corte caballero — 18 € — 30 min
//
// Lines with fewer than four "—" separated fields are ignored. A repeated code
// replaces the earlier entry and yields a warning.
func ParseCatalog(text string) ([]Service, []string) {
	var (
		services []Service
		warnings []string
		position = make(map[string]int)
	)
	category := DefaultCategory

	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || hasAnyPrefix(line, catalogSkipPrefixes) {
			continue
		}
		if strings.HasSuffix(line, ":") {
			category = strings.TrimSpace(strings.Trim(line, "—-–: "))
			if category == "" {
				category = DefaultCategory
			}
			continue
		}
		if !strings.Contains(line, "—") {
			continue
		}
		parts := strings.Split(line, "—")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 4 {
			continue
		}
		svc := Service{
			Code:      strings.ReplaceAll(parts[0], " ", ""),
			Name:      parts[1],
			Category:  category,
			PriceText: parts[2],
		}
		if svc.Code == "" || svc.Name == "" {
			warnings = append(warnings, fmt.Sprintf("catalog line %d: empty code or name", n+1))
			continue
		}
		svc.PriceAmount = ParsePrice(svc.PriceText)
		svc.DurationMin = parseDuration(parts[3])
		if svc.DurationMin == nil {
			warnings = append(warnings, fmt.Sprintf("catalog line %d: service %s has no duration and cannot be booked", n+1, svc.Code))
		}

		key := strings.ToLower(svc.Code)
		if idx, dup := position[key]; dup {
			warnings = append(warnings, fmt.Sprintf("catalog line %d: duplicate service code %s overrides earlier entry", n+1, svc.Code))
			services[idx] = svc
			continue
		}
		position[key] = len(services)
		services = append(services, svc)
	}
	return services, warnings
}

// ParsePrice extracts a numeric amount from texts like "18 €", "22,50eur".
// Anything else ("desde 20", "consultar") has no amount.
func ParsePrice(text string) *float64 {
	clean := strings.ToLower(text)
	clean = strings.NewReplacer("€", "", "eur", "", " ", "", ",", ".").Replace(clean)
	if !priceRe.MatchString(clean) {
		return nil
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseDuration(text string) *int {
	m := firstIntRe.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

type tagRule struct {
	tag   string
	stems []string
}

var serviceTagRules = []tagRule{
	{"men_cuts", []string{"hombre", "caballer"}},
	{"women_cuts", []string{"mujer", "senora", "dama"}},
	{"barber_beard", []string{"barba", "barber", "afeitado"}},
	{"kids", []string{" nin", "kid", "peques"}},
	{"color", []string{"color", "mech", "balay", "ilumin", "bano"}},
	{"highlights", []string{"mech", "balay", "ilumin"}},
	{"styling", []string{"secado", "peinad", "waves", "plancha", "iron"}},
	{"treatments", []string{"enzimo", "tanino", "tratamiento", "therapy", "keratin", "nutric"}},
	{"smoothing", []string{"alis", "tanino", "enzimo"}},
	{"braids", []string{"trenza"}},
	{"perms", []string{"perman"}},
}

// ClassifyService derives sorted capability tags from category and name.
// Unclassified services are tagged "generalist". A stem starting with a
// space only matches at the start of a word.
func ClassifyService(category, name string) []string {
	words := Tokens(category + " " + name)
	text := " " + strings.Join(words, " ") + " "
	var tags []string
	for _, rule := range serviceTagRules {
		for _, stem := range rule.stems {
			if strings.Contains(text, stem) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	for _, w := range words {
		switch w {
		case "men", "mens":
			tags = append(tags, "men_cuts")
		case "women", "woman":
			tags = append(tags, "women_cuts")
		}
	}
	if len(tags) == 0 {
		return []string{TagGeneralist}
	}
	return sortedUnique(tags)
}
