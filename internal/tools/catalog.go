package tools

import (
	"context"

	"salonagent/internal/salon"
	"salonagent/internal/slots"
)

// ServiceView is a catalog entry as tools report it.
type ServiceView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	DurationMin  *int     `json:"duration_min"`
	DurationText string   `json:"duration_text,omitempty"`
	PriceText    string   `json:"price_text"`
	PriceEUR     *float64 `json:"price_eur"`
	Tags         []string `json:"tags"`
}

func serviceView(svc *salon.Service, locale string) ServiceView {
	v := ServiceView{
		ID:          svc.Code,
		Name:        svc.Name,
		Category:    svc.Category,
		DurationMin: svc.DurationMin,
		PriceText:   svc.PriceText,
		PriceEUR:    svc.PriceAmount,
		Tags:        svc.Tags,
	}
	if svc.Schedulable() {
		v.DurationText = slots.FormatDuration(locale, svc.Duration())
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return v
}

type GetServicesArgs struct {
	Locale string `json:"locale"`
}

type ServicesResult struct {
	Status
	Currency string        `json:"currency"`
	Services []ServiceView `json:"services"`
	Tags     []string      `json:"tags"`
}

// GetServices lists the whole catalog in file order.
func (t *Toolbox) GetServices(_ context.Context, args GetServicesArgs) *ServicesResult {
	db := t.db()
	out := make([]ServiceView, 0, len(db.Services))
	for i := range db.Services {
		out = append(out, serviceView(&db.Services[i], args.Locale))
	}
	return &ServicesResult{Status: success(), Currency: db.Currency, Services: out, Tags: nonNil(db.SortedTags())}
}

type GetPriceArgs struct {
	Service string `json:"service"`
	Locale  string `json:"locale"`
}

type PriceResult struct {
	Status
	Query    string       `json:"query,omitempty"`
	Service  *ServiceView `json:"service,omitempty"`
	Currency string       `json:"currency,omitempty"`
}

// GetPrice resolves a service by code or free text.
func (t *Toolbox) GetPrice(_ context.Context, args GetPriceArgs) *PriceResult {
	db := t.db()
	svc := db.MatchService(args.Service)
	if svc == nil {
		return &PriceResult{Status: fail(CodeServiceNotFound), Query: args.Service}
	}
	v := serviceView(svc, args.Locale)
	return &PriceResult{Status: success(), Service: &v, Currency: db.Currency}
}

type OpenHoursArgs struct {
	DateISO string `json:"date_iso"`
}

type StoreView struct {
	Name       string              `json:"name"`
	Address    string              `json:"address"`
	Phone      string              `json:"phone"`
	Email      string              `json:"email"`
	Timezone   string              `json:"timezone"`
	Hours      map[string][]string `json:"hours"`
	HoursText  string              `json:"hours_text"`
	ClosedDays []string            `json:"closed_days"`
	Holidays   []string            `json:"holidays"`
}

type OpenHoursResult struct {
	Status
	Store   *StoreView `json:"store,omitempty"`
	Date    string     `json:"date,omitempty"`
	Weekday string     `json:"weekday,omitempty"`
	Open    *bool      `json:"open,omitempty"`
	Hours   []string   `json:"hours,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// Reasons a store day is closed.
const (
	ReasonClosed  = "closed"
	ReasonHoliday = "holiday"
)

// GetOpenHours returns the weekly table, or the status of a single day when
// a date is given.
func (t *Toolbox) GetOpenHours(_ context.Context, args OpenHoursArgs) *OpenHoursResult {
	db := t.db()
	store := &db.Store
	if args.DateISO == "" {
		return &OpenHoursResult{Status: success(), Store: &StoreView{
			Name:       store.Name,
			Address:    store.Address,
			Phone:      store.Phone,
			Email:      store.Email,
			Timezone:   store.Timezone,
			Hours:      store.Hours,
			HoursText:  salon.FormatHoursLine(store.Hours, store.ClosedDays),
			ClosedDays: nonNil(store.ClosedDays),
			Holidays:   nonNil(store.Holidays),
		}}
	}

	ts, err := parseTimestamp(args.DateISO, db.Location())
	if err != nil {
		return &OpenHoursResult{Status: fail(CodeBadDate)}
	}
	weekday := salon.WeekdayCode(ts.Weekday())
	date := ts.Format("2006-01-02")
	res := &OpenHoursResult{Status: success(), Date: date, Weekday: weekday, Hours: []string{}}
	open := false
	switch {
	case store.IsHoliday(date):
		res.Reason = ReasonHoliday
	case store.IsClosedDay(weekday):
		res.Reason = ReasonClosed
	default:
		open = true
		res.Hours = append(res.Hours, store.Hours[weekday]...)
	}
	res.Open = &open
	return res
}

type ListStaffArgs struct {
	Locale       string `json:"locale"`
	BookableOnly bool   `json:"bookable_only"`
}

type StaffView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Summary      string   `json:"summary"`
	Specialties  []string `json:"specialties"`
	ServiceCodes []string `json:"service_codes"`
	Bookable     bool     `json:"bookable"`
}

type StaffResult struct {
	Status
	Staff []StaffView `json:"staff"`
}

// ListStaff lists members in profile order. With bookable_only set, members
// without a calendar are dropped unless nobody has one.
func (t *Toolbox) ListStaff(_ context.Context, args ListStaffArgs) *StaffResult {
	db := t.db()
	filter := args.BookableOnly && len(db.BookableStaff()) > 0
	out := make([]StaffView, 0, len(db.Staff))
	for i := range db.Staff {
		m := &db.Staff[i]
		if filter && !m.Bookable() {
			continue
		}
		out = append(out, StaffView{
			ID:           m.ID,
			Name:         m.Name,
			Summary:      m.Summary,
			Specialties:  nonNil(m.Specialties),
			ServiceCodes: nonNil(m.ServiceCodes),
			Bookable:     m.Bookable(),
		})
	}
	return &StaffResult{Status: success(), Staff: out}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
