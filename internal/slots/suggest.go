package slots

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"salonagent/internal/calendar"
	"salonagent/internal/metrics"
	"salonagent/internal/salon"
)

const (
	// DefaultCount is how many suggestions are returned when none is asked for.
	DefaultCount = 3
	// MaxParty caps group bookings.
	MaxParty = 4
	// DefaultOversample multiplies the raw slot budget to survive filtering.
	DefaultOversample = 4

	minRawSlots = 48
	blockMin    = 30
)

// ErrStaffNotFound is returned for an unknown staff id.
var ErrStaffNotFound = errors.New("staff not found")

// Request describes what the caller wants to book.
type Request struct {
	// Start is the earliest acceptable instant; zero means now.
	Start time.Time
	Count int
	// Services are free-text or code queries; durations add up.
	Services []string
	Party    int
	StaffID  string
	Locale   string
}

// Candidate is a suggested window. For a party it spans all members' blocks.
type Candidate struct {
	Slot
	Blocks       int
	Party        int
	Group        []Slot
	ServiceCodes []string
	Staff        []string
}

// Result is the outcome of Suggest. An empty Candidates list is not an error.
type Result struct {
	Timezone    string
	Start       time.Time
	DurationMin int
	Candidates  []Candidate
	// Degraded is set when the calendar could not be consulted.
	Degraded bool
}

// Suggester ranks bookable windows against store hours, staff rules and
// calendar busy data.
type Suggester struct {
	busy       calendar.BusyProvider
	logger     *zerolog.Logger
	now        func() time.Time
	oversample int
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SuggesterOption {
	return func(s *Suggester) { s.now = now }
}

// WithOversample sets the raw slot multiplier.
func WithOversample(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.oversample = n
		}
	}
}

// NewSuggester builds a suggester. busy may be nil when no calendar is set up.
func NewSuggester(busy calendar.BusyProvider, logger *zerolog.Logger, opts ...SuggesterOption) *Suggester {
	l := logger.With().Str("component", "slots").Logger()
	s := &Suggester{busy: busy, logger: &l, now: time.Now, oversample: DefaultOversample}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BlockCount returns how many 30-minute blocks a total duration needs.
// Anything up to 30 minutes, including an unknown duration, is one block.
func BlockCount(totalMin int) int {
	if totalMin < blockMin {
		totalMin = blockMin
	}
	return (totalMin + blockMin - 1) / blockMin
}

// ClampParty keeps party sizes within 1..MaxParty.
func ClampParty(party int) int {
	switch {
	case party < 1:
		return 1
	case party > MaxParty:
		return MaxParty
	default:
		return party
	}
}

// Suggest returns up to req.Count windows.
func (s *Suggester) Suggest(ctx context.Context, db *salon.DB, req Request) (*Result, error) {
	started := time.Now()
	defer func() { metrics.ObserveSuggest(time.Since(started)) }()

	loc := LoadLocation(db.Store.Timezone)
	base := req.Start
	if base.IsZero() {
		base = s.now()
	}
	base = base.In(loc)
	count := req.Count
	if count <= 0 {
		count = DefaultCount
	}
	party := ClampParty(req.Party)

	var staff *salon.StaffMember
	if req.StaffID != "" {
		if staff = db.StaffMember(req.StaffID); staff == nil {
			return nil, ErrStaffNotFound
		}
	}

	matched, missing := db.MatchServices(req.Services)
	if len(missing) > 0 {
		s.logger.Debug().Strs("queries", missing).Msg("services not matched, ignored for duration")
	}
	total := 0
	var codes []string
	for _, svc := range matched {
		total += svc.Duration()
		codes = append(codes, svc.Code)
	}
	blocks := BlockCount(total)

	res := &Result{Timezone: loc.String(), Start: base, DurationMin: total}

	rawBudget := count * blocks * party * s.oversample
	if rawBudget < minRawSlots {
		rawBudget = minRawSlots
	}
	gen := NewGenerator(&db.Store, WithLocale(req.Locale))
	var keep DayFilter
	if staff != nil {
		keep = func(day time.Time) bool { return staff.WorksOn(&db.Store, day) }
	}
	raw := gen.Generate(base, rawBudget, keep)
	if staff != nil {
		raw = withinShifts(raw, staff)
	}

	if len(raw) == 0 {
		return res, nil
	}
	span := calendar.Interval{Start: raw[0].Start, End: raw[len(raw)-1].End}

	var accept acceptFunc
	switch {
	case staff == nil:
		accept, res.Degraded = s.unionFilter(ctx, db, matched, span)
	case s.busy == nil:
		accept = assign(staff.ID)
	default:
		accept, res.Degraded = s.staffFilter(ctx, staff, span)
	}

	candidates := group(raw, blocks, party, codes, accept)
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	res.Candidates = candidates
	return res, nil
}

// acceptFunc decides whether a window is offered and records who can take it.
type acceptFunc func(c *Candidate) bool

// group turns runs of contiguous raw slots into windows of blocks*party
// slots. After an accepted window the scan skips past it; after a rejected
// one it moves by a single slot. Windows never straddle a gap.
func group(raw []Slot, blocks, party int, codes []string, accept acceptFunc) []Candidate {
	need := blocks * party
	var out []Candidate
	for _, run := range FindConsecutiveSlots(raw) {
		for i := 0; i+need <= len(run); {
			win := run[i : i+need]
			c := Candidate{
				Slot: Slot{
					Start:   win[0].Start,
					End:     win[need-1].End,
					Weekday: win[0].Weekday,
					Label:   win[0].Label,
				},
				Blocks:       blocks,
				Party:        party,
				ServiceCodes: codes,
			}
			if party > 1 {
				for p := 0; p < party; p++ {
					first, last := win[p*blocks], win[(p+1)*blocks-1]
					c.Group = append(c.Group, Slot{Start: first.Start, End: last.End, Weekday: first.Weekday, Label: first.Label})
				}
			}
			if accept != nil && !accept(&c) {
				i++
				continue
			}
			out = append(out, c)
			i += need
		}
	}
	return out
}

func withinShifts(raw []Slot, m *salon.StaffMember) []Slot {
	out := raw[:0:0]
	for _, sl := range raw {
		if coveredByShift(m.Schedule[sl.Weekday], sl.Start, sl.End) {
			out = append(out, sl)
		}
	}
	return out
}

func coveredByShift(shifts []string, start, end time.Time) bool {
	for _, seg := range shifts {
		from, to, err := salon.ParseInterval(seg)
		if err != nil {
			continue
		}
		if !start.Before(from.On(start)) && !end.After(to.On(start)) {
			return true
		}
	}
	return false
}

func assign(staffID string) acceptFunc {
	return func(c *Candidate) bool {
		c.Staff = []string{staffID}
		return true
	}
}

func (s *Suggester) staffFilter(ctx context.Context, staff *salon.StaffMember, span calendar.Interval) (acceptFunc, bool) {
	if !staff.Bookable() {
		return assign(staff.ID), false
	}
	busy, err := s.busy.Busy(ctx, []string{staff.CalendarID}, span)
	if err != nil {
		s.logger.Warn().Err(err).Str("staff_id", staff.ID).Msg("calendar unavailable, returning unfiltered slots")
		return assign(staff.ID), true
	}
	periods := busy[staff.CalendarID]
	return func(c *Candidate) bool {
		c.Staff = []string{staff.ID}
		return !calendar.AnyOverlap(periods, c.Start, c.End)
	}, false
}

// unionFilter accepts a window when at least one capable member works all of
// it and, once calendars are in play, is free for all of it. Every such member
// is listed on the window. Without a calendar provider, or when nobody is
// bookable, only schedules are checked. When calendars are in play but no
// bookable member can perform the services, nothing is offered.
func (s *Suggester) unionFilter(ctx context.Context, db *salon.DB, services []*salon.Service, span calendar.Interval) (acceptFunc, bool) {
	if len(db.Staff) == 0 {
		return nil, false
	}
	var capable []*salon.StaffMember
	for i := range db.Staff {
		if canPerformAll(&db.Staff[i], services) {
			capable = append(capable, &db.Staff[i])
		}
	}
	if s.busy == nil || len(db.BookableStaff()) == 0 {
		return freeMembers(db, capable, nil), false
	}

	var eligible []*salon.StaffMember
	for _, m := range capable {
		if m.Bookable() {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return rejectAll, false
	}

	ids := make([]string, len(eligible))
	for i, m := range eligible {
		ids[i] = m.CalendarID
	}
	busy, err := s.busy.Busy(ctx, ids, span)
	if err != nil {
		s.logger.Warn().Err(err).Int("calendars", len(ids)).Msg("calendar unavailable, filtering by schedules only")
		return freeMembers(db, eligible, nil), true
	}
	return freeMembers(db, eligible, busy), false
}

// freeMembers lists on each window the members whose shifts cover it and,
// when busy is non-nil, whose calendars have no overlap with it.
func freeMembers(db *salon.DB, members []*salon.StaffMember, busy map[string][]calendar.Interval) acceptFunc {
	return func(c *Candidate) bool {
		var free []string
		for _, m := range members {
			if !m.WorksOn(&db.Store, c.Start) || !coveredByShift(m.Schedule[c.Weekday], c.Start, c.End) {
				continue
			}
			if busy != nil && calendar.AnyOverlap(busy[m.CalendarID], c.Start, c.End) {
				continue
			}
			free = append(free, m.ID)
		}
		c.Staff = free
		return len(free) > 0
	}
}

func rejectAll(*Candidate) bool { return false }

// canPerformAll ignores services without a duration; they are never
// scheduled and so never derived onto anyone's service list.
func canPerformAll(m *salon.StaffMember, services []*salon.Service) bool {
	for _, svc := range services {
		if !svc.Schedulable() {
			continue
		}
		if !m.CanPerform(svc.Code) {
			return false
		}
	}
	return true
}
