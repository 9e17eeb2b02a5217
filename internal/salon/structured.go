package salon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KnowledgeFile is the structured form of the knowledge base. The prose
// parsers can migrate into it once; after that it is the edited source.
type KnowledgeFile struct {
	Store           StoreInfo         `yaml:"store"`
	Services        []Service         `yaml:"services"`
	Staff           []StaffMember     `yaml:"staff"`
	DefaultServices map[string]string `yaml:"default_services,omitempty"`
	Knowledge       map[string]string `yaml:"knowledge,omitempty"`
}

// Validate checks the file the way an editor would want to hear about it.
func (k *KnowledgeFile) Validate() error {
	if k.Store.Name == "" {
		return fmt.Errorf("store.name is required")
	}
	for day, segs := range k.Store.Hours {
		if !IsDayCode(day) {
			return fmt.Errorf("store.hours: unknown day %q", day)
		}
		for i, seg := range segs {
			if _, _, err := ParseInterval(seg); err != nil {
				return fmt.Errorf("store.hours[%s][%d]: %w", day, i, err)
			}
		}
	}
	for i, d := range k.Store.ClosedDays {
		if !IsDayCode(d) {
			return fmt.Errorf("store.closed_days[%d]: unknown day %q", i, d)
		}
	}
	codes := make(map[string]bool, len(k.Services))
	for i, svc := range k.Services {
		if svc.Code == "" || svc.Name == "" {
			return fmt.Errorf("services[%d]: code and name are required", i)
		}
		key := strings.ToLower(svc.Code)
		if codes[key] {
			return fmt.Errorf("services[%d]: duplicate code %s", i, svc.Code)
		}
		codes[key] = true
		if svc.DurationMin != nil && *svc.DurationMin <= 0 {
			return fmt.Errorf("services[%d]: duration_min must be positive", i)
		}
	}
	ids := make(map[string]bool, len(k.Staff))
	for i, m := range k.Staff {
		if m.Name == "" {
			return fmt.Errorf("staff[%d]: name is required", i)
		}
		id := m.ID
		if id == "" {
			id = Slugify(m.Name)
		}
		if ids[id] {
			return fmt.Errorf("staff[%d]: duplicate id %s", i, id)
		}
		ids[id] = true
	}
	for tag, code := range k.DefaultServices {
		if !codes[strings.ToLower(code)] {
			return fmt.Errorf("default_services.%s: unknown service %s", tag, code)
		}
	}
	return nil
}

// LoadStructured reads and validates a YAML knowledge file.
func LoadStructured(path string) (*KnowledgeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var k KnowledgeFile
	if err = yaml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err = k.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return &k, nil
}

// BuildStructured derives a DB from a validated knowledge file. Declared
// defaults in the file win over opts.DefaultServices.
func BuildStructured(k *KnowledgeFile, opts Options) (*DB, error) {
	store := k.Store
	hours := make(map[string][]string, len(DayNames))
	for _, d := range DayNames {
		hours[d] = append([]string{}, k.Store.Hours[d]...)
	}
	closed := append([]string{}, k.Store.ClosedDays...)
	for _, d := range DayNames {
		if len(hours[d]) == 0 {
			closed = append(closed, d)
		}
	}
	store.ClosedDays = uniqueOrdered(closed)
	for _, d := range store.ClosedDays {
		hours[d] = []string{}
	}
	store.Hours = hours
	if store.Holidays == nil {
		store.Holidays = []string{}
	}

	services := append([]Service{}, k.Services...)
	staff := make([]StaffMember, len(k.Staff))
	for i, m := range k.Staff {
		if m.ID == "" {
			m.ID = Slugify(m.Name)
		}
		if len(m.Schedule) == 0 {
			m.Schedule = CopyHours(store.Hours)
		} else {
			m.Schedule = CopyHours(m.Schedule)
		}
		m.WeeklyDaysOff = uniqueOrdered(append(append([]string{}, store.ClosedDays...), m.WeeklyDaysOff...))
		m.TimeOffDates = append([]string{}, m.TimeOffDates...)
		if len(m.Specialties) == 0 {
			m.Specialties = InferSpecialties(m.Summary)
		}
		staff[i] = m
	}

	defaults := make(map[string]string, len(opts.DefaultServices)+len(k.DefaultServices))
	for tag, code := range opts.DefaultServices {
		defaults[tag] = code
	}
	for tag, code := range k.DefaultServices {
		defaults[tag] = code
	}
	opts.DefaultServices = defaults

	db, warnings := assemble(store, services, staff, opts)
	db.Knowledge = k.Knowledge
	if db.Knowledge == nil {
		db.Knowledge = map[string]string{}
	}
	db.Warnings = warnings
	if opts.Strict && len(warnings) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKnowledge, strings.Join(warnings, "; "))
	}
	return db, nil
}

// Export converts a DB back into its structured form.
func Export(db *DB) *KnowledgeFile {
	k := &KnowledgeFile{
		Store:           db.Store,
		Services:        append([]Service{}, db.Services...),
		Staff:           make([]StaffMember, len(db.Staff)),
		DefaultServices: map[string]string{},
		Knowledge:       map[string]string{},
	}
	for i, m := range db.Staff {
		m.Schedule = CopyHours(m.Schedule)
		k.Staff[i] = m
	}
	for _, tag := range []string{TagMenCuts, TagWomenCuts, TagKids, TagBarberBeard} {
		if svc := db.DefaultService(tag); svc != nil {
			k.DefaultServices[tag] = svc.Code
		}
	}
	for key, text := range db.Knowledge {
		if key == "facts" || key == "services_catalog" || key == "masters" || text == "" {
			continue
		}
		k.Knowledge[key] = text
	}
	return k
}

// Marshal renders the knowledge file as YAML.
func (k *KnowledgeFile) Marshal() ([]byte, error) {
	return yaml.Marshal(k)
}
