package slots

import (
	"sort"
	"time"

	"salonagent/internal/salon"
)

const (
	// DefaultStep is the slot grid and the length of one block.
	DefaultStep = 30 * time.Minute
	// WindowDays is how far ahead raw slots are generated.
	WindowDays = 7
)

// Slot is one bookable window.
type Slot struct {
	Start   time.Time
	End     time.Time
	Weekday string
	Label   string
}

// Date returns the slot's calendar day as YYYY-MM-DD.
func (s Slot) Date() string {
	return s.Start.Format(time.DateOnly)
}

// DayFilter decides whether raw slots are generated on a calendar day.
type DayFilter func(day time.Time) bool

// Generator produces grid-aligned raw slots from store opening hours.
type Generator struct {
	store  *salon.StoreInfo
	loc    *time.Location
	step   time.Duration
	locale string
}

// Option configures a Generator.
type Option func(*Generator)

// WithStep overrides the 30-minute grid.
func WithStep(step time.Duration) Option {
	return func(g *Generator) {
		if step >= time.Minute {
			g.step = step.Truncate(time.Minute)
		}
	}
}

// WithLocale sets the label language.
func WithLocale(locale string) Option {
	return func(g *Generator) { g.locale = NormalizeLocale(locale) }
}

// NewGenerator creates a generator for the store's time zone.
func NewGenerator(store *salon.StoreInfo, opts ...Option) *Generator {
	g := &Generator{store: store, step: DefaultStep, locale: LocaleRU, loc: LoadLocation(store.Timezone)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoadLocation resolves an IANA zone, falling back to Europe/Madrid and then UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = salon.DefaultTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation(salon.DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// Location returns the generator's time zone.
func (g *Generator) Location() *time.Location {
	return g.loc
}

// Generate walks the seven calendar days starting at base's day and returns
// up to count slots (all of them when count <= 0) in chronological order.
// Slots never start before base, never cross an interval end and start on
// the step grid counted from midnight. Closed days and holidays are skipped,
// as are days rejected by keep.
func (g *Generator) Generate(base time.Time, count int, keep DayFilter) []Slot {
	base = base.In(g.loc)
	y, m, d := base.Date()
	var out []Slot

	for offset := 0; offset < WindowDays; offset++ {
		day := time.Date(y, m, d+offset, 0, 0, 0, 0, g.loc)
		weekday := salon.WeekdayCode(day.Weekday())
		if g.store.IsClosedDay(weekday) || g.store.IsHoliday(day.Format(time.DateOnly)) {
			continue
		}
		if keep != nil && !keep(day) {
			continue
		}

		daySlots := g.daySlots(day, weekday, base, offset == 0)
		for _, s := range daySlots {
			out = append(out, s)
			if count > 0 && len(out) == count {
				return out
			}
		}
	}
	return out
}

func (g *Generator) daySlots(day time.Time, weekday string, base time.Time, firstDay bool) []Slot {
	var out []Slot
	seen := make(map[int64]bool)
	for _, seg := range g.store.Hours[weekday] {
		openAt, closeAt, err := salon.ParseInterval(seg)
		if err != nil {
			continue
		}
		start, end := openAt.On(day), closeAt.On(day)
		if firstDay {
			if !end.After(base) {
				continue
			}
			if start.Before(base) {
				start = base
			}
		}
		for cursor := g.align(start); !cursor.Add(g.step).After(end); cursor = cursor.Add(g.step) {
			if seen[cursor.Unix()] {
				continue
			}
			seen[cursor.Unix()] = true
			out = append(out, g.slot(cursor, cursor.Add(g.step), weekday))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (g *Generator) slot(start, end time.Time, weekday string) Slot {
	return Slot{Start: start, End: end, Weekday: weekday, Label: Label(g.locale, start)}
}

// align rounds t up to the next whole minute and then up to the step grid.
func (g *Generator) align(t time.Time) time.Time {
	if t.Second() != 0 || t.Nanosecond() != 0 {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location()).Add(time.Minute)
	}
	step := int(g.step / time.Minute)
	minutes := t.Hour()*60 + t.Minute()
	if r := minutes % step; r != 0 {
		t = t.Add(time.Duration(step-r) * time.Minute)
	}
	return t
}

// contiguous reports whether b starts exactly where a ends on the same day.
func contiguous(a, b Slot) bool {
	return a.End.Equal(b.Start) && a.Date() == b.Date()
}

// FindConsecutiveSlots splits slots into runs of back-to-back slots.
func FindConsecutiveSlots(slots []Slot) [][]Slot {
	if len(slots) == 0 {
		return nil
	}
	var groups [][]Slot
	current := []Slot{slots[0]}
	for i := 1; i < len(slots); i++ {
		if contiguous(current[len(current)-1], slots[i]) {
			current = append(current, slots[i])
			continue
		}
		groups = append(groups, current)
		current = []Slot{slots[i]}
	}
	return append(groups, current)
}
