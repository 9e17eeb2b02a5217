package salon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultCurrency is reported with every price.
const DefaultCurrency = "EUR"

// ErrInvalidKnowledge is returned by strict builds that produced warnings.
var ErrInvalidKnowledge = errors.New("knowledge base has validation warnings")

// Sources are the raw knowledge texts a DB is built from.
type Sources struct {
	Facts    string
	Services string
	Masters  string
	Story    string
	Playbook string
}

// Options tune a build beyond what the prose says.
type Options struct {
	// Holidays are ISO dates on which the salon is closed.
	Holidays []string
	// DefaultServices maps a tag to the service code the generic "haircut"
	// request resolves to for that audience.
	DefaultServices map[string]string
	// StaffOverrides are keyed by staff id.
	StaffOverrides map[string]StaffOverride
	// Calendars maps staff id to external calendar id.
	Calendars map[string]string
	// Strict turns load warnings into ErrInvalidKnowledge.
	Strict bool
}

// DB is the immutable, fully derived salon knowledge base.
type DB struct {
	Store           StoreInfo
	Services        []Service
	Staff           []StaffMember
	Currency        string
	Knowledge       map[string]string
	DefaultServices map[string]string
	Warnings        []string
	LoadedAt        time.Time

	serviceIndex    map[string]*Service
	serviceKeywords map[string][]string
	staffIndex      map[string]*StaffMember
}

// Build parses the sources and derives every index.
func Build(src Sources, opts Options) (*DB, error) {
	store, warnings := ParseStoreFacts(src.Facts)
	if strings.TrimSpace(src.Facts) == "" {
		warnings = append(warnings, "store facts are empty")
	}
	services, w := ParseCatalog(src.Services)
	warnings = append(warnings, w...)
	staff, w := ParseStaff(src.Masters, store.Hours, store.ClosedDays)
	warnings = append(warnings, w...)

	db, w := assemble(store, services, staff, opts)
	warnings = append(warnings, w...)
	db.Knowledge = map[string]string{
		"facts":            strings.TrimSpace(src.Facts),
		"services_catalog": strings.TrimSpace(src.Services),
		"masters":          strings.TrimSpace(src.Masters),
		"salon_story":      strings.TrimSpace(src.Story),
		"playbook":         strings.TrimSpace(src.Playbook),
	}
	db.Warnings = warnings
	if opts.Strict && len(warnings) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKnowledge, strings.Join(warnings, "; "))
	}
	return db, nil
}

// assemble applies options and derives tags, indices and staff capabilities.
func assemble(store StoreInfo, services []Service, staff []StaffMember, opts Options) (*DB, []string) {
	var warnings []string
	if store.Timezone == "" {
		store.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(store.Timezone); err != nil {
		warnings = append(warnings, fmt.Sprintf("unknown timezone %q, using %s", store.Timezone, DefaultTimezone))
		store.Timezone = DefaultTimezone
	}
	for _, h := range opts.Holidays {
		if _, err := time.Parse(time.DateOnly, h); err != nil {
			warnings = append(warnings, fmt.Sprintf("bad holiday date %q", h))
			continue
		}
		store.Holidays = append(store.Holidays, h)
	}
	store.Holidays = sortedUnique(store.Holidays)
	if len(store.ClosedDays) == len(DayNames) {
		warnings = append(warnings, "store has no opening hours")
	}

	for i := range services {
		services[i].Tags = ClassifyService(services[i].Category, services[i].Name)
	}

	db := &DB{
		Store:           store,
		Services:        services,
		Staff:           staff,
		Currency:        DefaultCurrency,
		DefaultServices: map[string]string{},
		LoadedAt:        time.Now(),
		serviceIndex:    make(map[string]*Service, len(services)),
		serviceKeywords: make(map[string][]string),
		staffIndex:      make(map[string]*StaffMember, len(staff)),
	}
	for i := range db.Services {
		svc := &db.Services[i]
		db.serviceIndex[strings.ToLower(svc.Code)] = svc
		for _, kw := range serviceKeywordSources(svc) {
			db.addKeyword(kw, svc.Code)
		}
	}

	known := make(map[string]bool, len(staff))
	for i := range db.Staff {
		known[db.Staff[i].ID] = true
	}
	for id := range opts.StaffOverrides {
		if !known[id] {
			warnings = append(warnings, fmt.Sprintf("override for unknown staff %q", id))
		}
	}
	for id := range opts.Calendars {
		if !known[id] {
			warnings = append(warnings, fmt.Sprintf("calendar for unknown staff %q", id))
		}
	}
	for i := range db.Staff {
		m := &db.Staff[i]
		if o, ok := opts.StaffOverrides[m.ID]; ok {
			warnings = append(warnings, m.ApplyOverride(o)...)
		}
		if cal := opts.Calendars[m.ID]; cal != "" {
			m.CalendarID = cal
		}
		m.ServiceCodes = deriveServiceCodes(m, db.Services)
		db.staffIndex[m.ID] = m
	}

	for tag, code := range opts.DefaultServices {
		svc := db.serviceIndex[strings.ToLower(code)]
		if svc == nil {
			warnings = append(warnings, fmt.Sprintf("default service %s for %s is not in the catalog", code, tag))
			continue
		}
		db.DefaultServices[tag] = svc.Code
	}
	return db, warnings
}

func serviceKeywordSources(svc *Service) []string {
	out := []string{svc.Code, svc.Name}
	if base := StripBrackets(svc.Name); base != "" && !strings.EqualFold(base, svc.Name) {
		out = append(out, base)
	}
	return append(out, fragmentSepRe.Split(svc.Name, -1)...)
}

func (db *DB) addKeyword(key, code string) {
	k := Normalize(key)
	if k == "" {
		return
	}
	if !contains(db.serviceKeywords[k], code) {
		db.serviceKeywords[k] = append(db.serviceKeywords[k], code)
	}
}

// Service looks a service up by code, case-insensitively.
func (db *DB) Service(code string) *Service {
	return db.serviceIndex[strings.ToLower(strings.TrimSpace(code))]
}

// ServicesByKeyword returns candidate codes for a normalized keyword.
func (db *DB) ServicesByKeyword(keyword string) []string {
	return db.serviceKeywords[Normalize(keyword)]
}

// StaffMember looks a member up by id.
func (db *DB) StaffMember(id string) *StaffMember {
	return db.staffIndex[id]
}

// BookableStaff returns members with an external calendar, in profile order.
func (db *DB) BookableStaff() []*StaffMember {
	var out []*StaffMember
	for i := range db.Staff {
		if db.Staff[i].Bookable() {
			out = append(out, &db.Staff[i])
		}
	}
	return out
}

// Location returns the store's time zone.
func (db *DB) Location() *time.Location {
	loc, err := time.LoadLocation(db.Store.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var haircutStems = []string{"corte", "cut", "стриж"}

// DefaultService returns the service a bare haircut request resolves to for
// the given tag: the declared default if any, otherwise the first schedulable
// haircut carrying the tag, otherwise the first schedulable service with it.
func (db *DB) DefaultService(tag string) *Service {
	if code, ok := db.DefaultServices[tag]; ok {
		if svc := db.Service(code); svc != nil {
			return svc
		}
	}
	var fallback *Service
	for i := range db.Services {
		svc := &db.Services[i]
		if !svc.Schedulable() || !contains(svc.Tags, tag) {
			continue
		}
		name := Normalize(svc.Name)
		for _, stem := range haircutStems {
			if strings.Contains(name, stem) {
				return svc
			}
		}
		if fallback == nil {
			fallback = svc
		}
	}
	return fallback
}

// Source file names inside a knowledge directory.
const (
	FactsFile    = "kb_facts.txt"
	ServicesFile = "services_catalog.txt"
	MastersFile  = "master_profiles.txt"
	StoryFile    = "salon_story.txt"
	PlaybookFile = "conversation_playbook.txt"
)

// SourcePaths lists the files ReadSources looks at.
func SourcePaths(dir string) []string {
	names := []string{FactsFile, ServicesFile, MastersFile, StoryFile, PlaybookFile}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths
}

// ReadSources reads the knowledge directory. Missing files read as empty.
func ReadSources(dir string) (Sources, error) {
	read := func(name string) (string, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		return string(data), nil
	}
	var (
		src Sources
		err error
	)
	if src.Facts, err = read(FactsFile); err != nil {
		return src, err
	}
	if src.Services, err = read(ServicesFile); err != nil {
		return src, err
	}
	if src.Masters, err = read(MastersFile); err != nil {
		return src, err
	}
	if src.Story, err = read(StoryFile); err != nil {
		return src, err
	}
	if src.Playbook, err = read(PlaybookFile); err != nil {
		return src, err
	}
	return src, nil
}

// LoadDir reads and builds a knowledge directory.
func LoadDir(dir string, opts Options) (*DB, error) {
	src, err := ReadSources(dir)
	if err != nil {
		return nil, err
	}
	return Build(src, opts)
}

// Holder publishes the current DB to concurrent readers.
type Holder struct {
	db atomic.Pointer[DB]
}

// NewHolder returns a holder serving db.
func NewHolder(db *DB) *Holder {
	h := &Holder{}
	h.db.Store(db)
	return h
}

// Current returns the latest snapshot; nil before the first load.
func (h *Holder) Current() *DB {
	return h.db.Load()
}

// Swap publishes a new snapshot.
func (h *Holder) Swap(db *DB) {
	h.db.Store(db)
}

// SortedTags lists every tag used by the catalog.
func (db *DB) SortedTags() []string {
	var tags []string
	for i := range db.Services {
		tags = append(tags, db.Services[i].Tags...)
	}
	out := uniqueOrdered(tags)
	sort.Strings(out)
	return out
}
