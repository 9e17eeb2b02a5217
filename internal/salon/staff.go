package salon

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TagGeneralist marks staff who can perform any schedulable service, and
// services no specific tag applies to.
const TagGeneralist = "generalist"

// StaffMember is a stylist with a weekly schedule and derived capabilities.
type StaffMember struct {
	ID            string              `json:"id" yaml:"id"`
	Name          string              `json:"name" yaml:"name"`
	Summary       string              `json:"summary" yaml:"summary"`
	Specialties   []string            `json:"specialties" yaml:"specialties"`
	Schedule      map[string][]string `json:"schedule" yaml:"schedule,omitempty"`
	WeeklyDaysOff []string            `json:"weekly_days_off" yaml:"weekly_days_off,omitempty"`
	TimeOffDates  []string            `json:"time_off_dates" yaml:"time_off_dates,omitempty"`
	ServiceCodes  []string            `json:"service_codes" yaml:"-"`
	CalendarID    string              `json:"-" yaml:"calendar_id,omitempty"`
}

// Bookable reports whether the member has an external calendar.
func (m *StaffMember) Bookable() bool {
	return m.CalendarID != ""
}

// HasSpecialty reports whether tag is among the member's specialties.
func (m *StaffMember) HasSpecialty(tag string) bool {
	for _, s := range m.Specialties {
		if s == tag {
			return true
		}
	}
	return false
}

// CanPerform reports whether code is among the member's derived services.
func (m *StaffMember) CanPerform(code string) bool {
	for _, c := range m.ServiceCodes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// StaffOverride adjusts a parsed profile.
type StaffOverride struct {
	Schedule      map[string][]string `yaml:"schedule"`
	WeeklyDaysOff []string            `yaml:"weekly_days_off"`
	TimeOffDates  []string            `yaml:"time_off_dates"`
	Specialties   []string            `yaml:"specialties"`
	CalendarID    string              `yaml:"calendar_id"`
}

type specialtyStem struct {
	stem string
	tag  string
}

var specialtyStems = []specialtyStem{
	{"мужские", "men_cuts"},
	{"женские", "women_cuts"},
	{"уклад", "styling"},
	{"цвет", "color"},
	{"мелир", "highlights"},
	{"блон", "blond"},
	{"бров", "brows"},
	{"fade", "fade"},
	{"дет", "kids"},
	{"бород", "barber_beard"},
	{"barb", "barber"},
	{"alz", "smoothing"},
	{"универс", TagGeneralist},
	{"enzimo", "treatments"},
	{"терап", "treatments"},
	{"tanino", "smoothing"},
	{"trenz", "braids"},
	{"perman", "perms"},
}

// InferSpecialties maps keyword stems found in a profile summary to tags.
func InferSpecialties(summary string) []string {
	lower := strings.ToLower(summary)
	var tags []string
	for _, s := range specialtyStems {
		if strings.Contains(lower, s.stem) {
			tags = append(tags, s.tag)
		}
	}
	if len(tags) == 0 {
		return []string{TagGeneralist}
	}
	return sortedUnique(tags)
}

var (
	staffSkipPrefixes = []string{"Профили", "Profiles", "Perfiles"}
	tipsPrefixes      = []string{"Совет", "Tips", "Consejo"}
)

// ParseStaff reads master profiles of the form "— Name — summary". Each member
// starts with a copy of the store hours and the store's closed days off.
// Everything after a tips header is ignored.
func ParseStaff(text string, storeHours map[string][]string, storeClosed []string) ([]StaffMember, []string) {
	var (
		staff    []StaffMember
		warnings []string
		seen     = make(map[string]int)
	)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || hasAnyPrefix(line, staffSkipPrefixes) {
			continue
		}
		if hasAnyPrefix(line, tipsPrefixes) {
			break
		}
		if !strings.HasPrefix(line, "—") {
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(line, "—"))
		name, summary, ok := strings.Cut(body, "—")
		if !ok {
			continue
		}
		name, summary = strings.TrimSpace(name), strings.TrimSpace(summary)
		if name == "" {
			continue
		}

		id := Slugify(name)
		seen[id]++
		if seen[id] > 1 {
			warnings = append(warnings, fmt.Sprintf("duplicate staff id %s for %q", id, name))
			id = fmt.Sprintf("%s_%d", id, seen[id])
		}
		staff = append(staff, StaffMember{
			ID:            id,
			Name:          name,
			Summary:       summary,
			Specialties:   InferSpecialties(summary),
			Schedule:      CopyHours(storeHours),
			WeeklyDaysOff: append([]string{}, storeClosed...),
			TimeOffDates:  []string{},
		})
	}
	return staff, warnings
}

// ApplyOverride merges o into m. Days off and time-off dates are added to the
// existing ones; a schedule replaces the inherited one day by day.
func (m *StaffMember) ApplyOverride(o StaffOverride) []string {
	var warnings []string
	for day, segs := range o.Schedule {
		if !IsDayCode(day) {
			warnings = append(warnings, fmt.Sprintf("staff %s: unknown day %q in schedule override", m.ID, day))
			continue
		}
		clean := make([]string, 0, len(segs))
		for _, seg := range segs {
			start, end, err := ParseInterval(strings.ReplaceAll(replaceDashes(seg), " ", ""))
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("staff %s: dropped schedule segment %q: %v", m.ID, seg, err))
				continue
			}
			clean = append(clean, start.String()+"-"+end.String())
		}
		m.Schedule[day] = clean
	}
	for _, day := range o.WeeklyDaysOff {
		if !IsDayCode(day) {
			warnings = append(warnings, fmt.Sprintf("staff %s: unknown day off %q", m.ID, day))
			continue
		}
		m.WeeklyDaysOff = append(m.WeeklyDaysOff, day)
	}
	m.WeeklyDaysOff = uniqueOrdered(m.WeeklyDaysOff)
	for _, d := range o.TimeOffDates {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			warnings = append(warnings, fmt.Sprintf("staff %s: bad time-off date %q", m.ID, d))
			continue
		}
		m.TimeOffDates = append(m.TimeOffDates, d)
	}
	m.TimeOffDates = uniqueOrdered(m.TimeOffDates)
	if len(o.Specialties) > 0 {
		m.Specialties = sortedUnique(o.Specialties)
	}
	if o.CalendarID != "" {
		m.CalendarID = o.CalendarID
	}
	return warnings
}

// Day-off reasons reported by DayStatus.
const (
	ReasonStoreClosed  = "store_closed"
	ReasonHoliday      = "holiday"
	ReasonWeeklyDayOff = "weekly_day_off"
	ReasonTimeOff      = "time_off"
)

// DayStatus describes whether a member works on a given date.
type DayStatus struct {
	Date        string   `json:"date"`
	Weekday     string   `json:"weekday"`
	Working     bool     `json:"working"`
	Shifts      []string `json:"shifts"`
	Reason      string   `json:"day_off_reason,omitempty"`
	Holiday     bool     `json:"holiday"`
	StoreClosed bool     `json:"store_closed"`
}

// DayStatus evaluates the member's schedule on the calendar day of date.
func (m *StaffMember) DayStatus(store *StoreInfo, date time.Time) DayStatus {
	weekday := WeekdayCode(date.Weekday())
	dateKey := date.Format(time.DateOnly)
	st := DayStatus{
		Date:        dateKey,
		Weekday:     weekday,
		Shifts:      []string{},
		Holiday:     store.IsHoliday(dateKey),
		StoreClosed: store.IsClosedDay(weekday),
	}
	shifts := m.Schedule[weekday]
	switch {
	case st.StoreClosed:
		st.Reason = ReasonStoreClosed
	case st.Holiday:
		st.Reason = ReasonHoliday
	case contains(m.WeeklyDaysOff, weekday):
		st.Reason = ReasonWeeklyDayOff
	case contains(m.TimeOffDates, dateKey):
		st.Reason = ReasonTimeOff
	case len(shifts) == 0:
		st.Reason = ReasonWeeklyDayOff
	default:
		st.Working = true
		st.Shifts = append(st.Shifts, shifts...)
	}
	return st
}

// WorksOn reports whether the member is scheduled on date at all.
func (m *StaffMember) WorksOn(store *StoreInfo, date time.Time) bool {
	return m.DayStatus(store, date).Working
}

func deriveServiceCodes(m *StaffMember, services []Service) []string {
	generalist := m.HasSpecialty(TagGeneralist)
	codes := []string{}
	for i := range services {
		svc := &services[i]
		if generalist {
			if svc.Schedulable() {
				codes = append(codes, svc.Code)
			}
			continue
		}
		if intersects(m.Specialties, svc.Tags) {
			codes = append(codes, svc.Code)
		}
	}
	sort.Strings(codes)
	return codes
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedUnique(in []string) []string {
	out := uniqueOrdered(in)
	sort.Strings(out)
	return out
}
