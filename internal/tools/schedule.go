package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"salonagent/internal/salon"
	"salonagent/internal/slots"
)

const (
	defaultWeekDays = 7
	maxWeekDays     = 14
)

type StaffDayArgs struct {
	StaffID string `json:"staff_id"`
	DateISO string `json:"date_iso"`
}

type StaffDayResult struct {
	Status
	StaffID string `json:"staff_id,omitempty"`
	*salon.DayStatus
}

// GetStaffDay reports whether a member works on a date and why not.
func (t *Toolbox) GetStaffDay(_ context.Context, args StaffDayArgs) *StaffDayResult {
	db := t.db()
	m := db.StaffMember(args.StaffID)
	if m == nil {
		return &StaffDayResult{Status: fail(CodeStaffNotFound)}
	}
	ts, err := parseTimestamp(args.DateISO, db.Location())
	if err != nil {
		return &StaffDayResult{Status: fail(CodeBadDate)}
	}
	st := m.DayStatus(&db.Store, ts)
	return &StaffDayResult{Status: success(), StaffID: m.ID, DayStatus: &st}
}

type StaffWeekArgs struct {
	StaffID  string `json:"staff_id"`
	StartISO string `json:"start_iso"`
	Days     int    `json:"days"`
}

type StaffWeekResult struct {
	Status
	StaffID string            `json:"staff_id,omitempty"`
	Start   string            `json:"start,omitempty"`
	Days    []salon.DayStatus `json:"days,omitempty"`
}

// GetStaffWeek reports DayStatus for 1 to 14 consecutive days.
func (t *Toolbox) GetStaffWeek(_ context.Context, args StaffWeekArgs) *StaffWeekResult {
	db := t.db()
	m := db.StaffMember(args.StaffID)
	if m == nil {
		return &StaffWeekResult{Status: fail(CodeStaffNotFound)}
	}
	base := t.clock(db)
	if args.StartISO != "" {
		ts, err := parseTimestamp(args.StartISO, db.Location())
		if err != nil {
			return &StaffWeekResult{Status: fail(CodeBadStartISO)}
		}
		base = ts
	}
	n := args.Days
	switch {
	case n <= 0:
		n = defaultWeekDays
	case n > maxWeekDays:
		n = maxWeekDays
	}

	day := midnight(base)
	out := make([]salon.DayStatus, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, m.DayStatus(&db.Store, addDays(day, i)))
	}
	return &StaffWeekResult{Status: success(), StaffID: m.ID, Start: formatTimestamp(base), Days: out}
}

type ResolveDateArgs struct {
	Query         string `json:"query"`
	PreferMorning bool   `json:"prefer_morning"`
}

type ResolveDateResult struct {
	Status
	Date     string `json:"date,omitempty"`
	Weekday  string `json:"weekday,omitempty"`
	StartISO string `json:"start_iso,omitempty"`
}

// ResolveDate turns a spoken day into a date and a search start: 09:00 when
// a morning is preferred, 08:00 otherwise.
func (t *Toolbox) ResolveDate(_ context.Context, args ResolveDateArgs) *ResolveDateResult {
	db := t.db()
	day, ok := ResolveDate(args.Query, t.clock(db))
	if !ok {
		return &ResolveDateResult{Status: fail(CodeCouldNotParse)}
	}
	hour := 8
	if args.PreferMorning {
		hour = 9
	}
	y, mo, d := day.Date()
	start := time.Date(y, mo, d, hour, 0, 0, 0, day.Location())
	return &ResolveDateResult{
		Status:   success(),
		Date:     day.Format("2006-01-02"),
		Weekday:  salon.WeekdayCode(day.Weekday()),
		StartISO: formatTimestamp(start),
	}
}

type SuggestArgs struct {
	Count     int      `json:"count"`
	StartISO  string   `json:"start_iso"`
	ServiceID string   `json:"service_id"`
	Services  []string `json:"services"`
	Party     int      `json:"party"`
	StaffID   string   `json:"staff_id"`
	Locale    string   `json:"locale"`
}

type SlotView struct {
	ISO       string      `json:"iso"`
	EndISO    string      `json:"end_iso"`
	Date      string      `json:"date"`
	Time      string      `json:"time"`
	EndTime   string      `json:"end_time"`
	Weekday   string      `json:"weekday"`
	Label     string      `json:"label"`
	Blocks    int         `json:"blocks"`
	Party     int         `json:"party,omitempty"`
	Group     []GroupSlot `json:"group,omitempty"`
	ServiceID string      `json:"service_id,omitempty"`
	Services  []string    `json:"services"`
	Staff     []string    `json:"staff,omitempty"`
}

type GroupSlot struct {
	ISO     string `json:"iso"`
	Time    string `json:"time"`
	EndTime string `json:"end_time"`
}

type SuggestResult struct {
	Status
	Timezone    string     `json:"timezone,omitempty"`
	Start       string     `json:"start,omitempty"`
	DurationMin int        `json:"duration_min,omitempty"`
	Degraded    bool       `json:"degraded"`
	Slots       []SlotView `json:"slots"`
}

// SuggestSlots proposes bookable windows. No window in the search horizon
// is reported as ok=false with an empty list, not as an error.
func (t *Toolbox) SuggestSlots(ctx context.Context, args SuggestArgs) *SuggestResult {
	db := t.db()
	req := slots.Request{
		Count:   args.Count,
		Party:   args.Party,
		StaffID: strings.TrimSpace(args.StaffID),
		Locale:  args.Locale,
	}
	switch {
	case len(args.Services) > 0:
		req.Services = args.Services
	case args.ServiceID != "":
		req.Services = []string{args.ServiceID}
	}
	if args.StartISO != "" {
		ts, err := parseTimestamp(args.StartISO, db.Location())
		if err != nil {
			return &SuggestResult{Status: fail(CodeBadStartISO), Slots: []SlotView{}}
		}
		req.Start = ts
	} else {
		req.Start = t.clock(db)
	}

	res, err := t.suggester.Suggest(ctx, db, req)
	if err != nil {
		if errors.Is(err, slots.ErrStaffNotFound) {
			return &SuggestResult{Status: fail(CodeStaffNotFound), Slots: []SlotView{}}
		}
		return &SuggestResult{Status: failDetail(CodeInternal, err.Error()), Slots: []SlotView{}}
	}

	out := &SuggestResult{
		Timezone:    res.Timezone,
		Start:       formatTimestamp(res.Start),
		DurationMin: res.DurationMin,
		Degraded:    res.Degraded,
		Slots:       make([]SlotView, 0, len(res.Candidates)),
	}
	out.OK = len(res.Candidates) > 0
	for _, c := range res.Candidates {
		out.Slots = append(out.Slots, slotView(c, args.ServiceID))
	}
	return out
}

func slotView(c slots.Candidate, serviceID string) SlotView {
	v := SlotView{
		ISO:       formatTimestamp(c.Start),
		EndISO:    formatTimestamp(c.End),
		Date:      c.Date(),
		Time:      c.Start.Format("15:04"),
		EndTime:   c.End.Format("15:04"),
		Weekday:   c.Weekday,
		Label:     c.Label,
		Blocks:    c.Blocks,
		ServiceID: serviceID,
		Services:  nonNil(c.ServiceCodes),
		Staff:     c.Staff,
	}
	if c.Party > 1 {
		v.Party = c.Party
		for _, g := range c.Group {
			v.Group = append(v.Group, GroupSlot{
				ISO:     formatTimestamp(g.Start),
				Time:    g.Start.Format("15:04"),
				EndTime: g.End.Format("15:04"),
			})
		}
	}
	return v
}
