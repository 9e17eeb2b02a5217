package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"salonagent/internal/booking"
	"salonagent/internal/contacts"
	"salonagent/internal/events"
)

const (
	fallbackDurationMin = 30
	defaultLookupDays   = 30
)

var errNoGateway = errors.New("booking gateway not configured")

type CreateBookingArgs struct {
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	StartISO    string   `json:"start_iso"`
	StaffID     string   `json:"staff_id"`
	ServiceID   string   `json:"service_id"`
	Services    []string `json:"services"`
	DurationMin int      `json:"duration_min"`
}

type BookingResult struct {
	Status
	BookingID string `json:"booking_id,omitempty"`
	StartISO  string `json:"start_iso,omitempty"`
	EndISO    string `json:"end_iso,omitempty"`
	StaffID   string `json:"staff_id,omitempty"`
}

// CreateBooking books a window through the gateway. The end is derived from
// duration_min, else from the sum of the matched services.
func (t *Toolbox) CreateBooking(ctx context.Context, args CreateBookingArgs) *BookingResult {
	name, phone := strings.TrimSpace(args.Name), strings.TrimSpace(args.Phone)
	if name == "" || phone == "" {
		return &BookingResult{Status: fail(CodeMissingNameOrPhone)}
	}
	db := t.db()
	start, err := parseTimestamp(args.StartISO, db.Location())
	if err != nil {
		return &BookingResult{Status: fail(CodeBadStartISO)}
	}
	staffID := strings.TrimSpace(args.StaffID)
	if staffID != "" && db.StaffMember(staffID) == nil {
		return &BookingResult{Status: fail(CodeStaffNotFound)}
	}

	queries := args.Services
	if len(queries) == 0 && args.ServiceID != "" {
		queries = []string{args.ServiceID}
	}
	matched, _ := db.MatchServices(queries)
	meta := make([]booking.ServiceMeta, 0, len(matched))
	codes := make([]string, 0, len(matched))
	total := 0
	for _, svc := range matched {
		meta = append(meta, booking.ServiceMeta{
			ID:          svc.Code,
			Name:        svc.Name,
			PriceText:   svc.PriceText,
			DurationMin: svc.DurationMin,
		})
		codes = append(codes, svc.Code)
		total += svc.Duration()
	}
	duration := args.DurationMin
	if duration <= 0 {
		duration = total
	}
	if duration <= 0 {
		duration = fallbackDurationMin
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	if t.bookings == nil {
		return &BookingResult{Status: gatewayFailure(errNoGateway)}
	}
	b, err := t.bookings.Create(ctx, booking.CreateRequest{
		Name:         name,
		Phone:        phone,
		StartISO:     formatTimestamp(start),
		EndISO:       formatTimestamp(end),
		StaffID:      staffID,
		ServiceID:    args.ServiceID,
		Services:     codes,
		ServicesMeta: meta,
		DurationMin:  duration,
		TimeZone:     db.Store.Timezone,
	})
	if err != nil {
		return &BookingResult{Status: t.writeFailure("create", err)}
	}

	t.publish(events.BookingCreated, events.BookingPayload{
		BookingID: b.ID,
		StaffID:   b.StaffID,
		Name:      name,
		Phone:     phone,
		StartISO:  b.StartISO,
		EndISO:    b.EndISO,
		Services:  codes,
	})
	return &BookingResult{Status: success(), BookingID: b.ID, StartISO: b.StartISO, EndISO: b.EndISO, StaffID: b.StaffID}
}

type CancelBookingArgs struct {
	BookingID string `json:"booking_id"`
	StaffID   string `json:"staff_id"`
}

// CancelBooking cancels by booking id.
func (t *Toolbox) CancelBooking(ctx context.Context, args CancelBookingArgs) *BookingResult {
	id := strings.TrimSpace(args.BookingID)
	if id == "" {
		return &BookingResult{Status: fail(CodeMissingBookingID)}
	}
	if t.bookings == nil {
		return &BookingResult{Status: gatewayFailure(errNoGateway)}
	}
	if err := t.bookings.Cancel(ctx, booking.CancelRequest{BookingID: id, StaffID: args.StaffID}); err != nil {
		return &BookingResult{Status: t.writeFailure("cancel", err)}
	}
	t.publish(events.BookingCancelled, events.BookingPayload{BookingID: id, StaffID: args.StaffID})
	return &BookingResult{Status: success(), BookingID: id}
}

type RescheduleBookingArgs struct {
	BookingID   string `json:"booking_id"`
	StaffID     string `json:"staff_id"`
	NewStartISO string `json:"new_start_iso"`
	DurationMin int    `json:"duration_min"`
}

// RescheduleBooking moves a booking. Without a duration the gateway keeps
// the original length and reports the new end.
func (t *Toolbox) RescheduleBooking(ctx context.Context, args RescheduleBookingArgs) *BookingResult {
	id := strings.TrimSpace(args.BookingID)
	if id == "" {
		return &BookingResult{Status: fail(CodeMissingBookingID)}
	}
	db := t.db()
	start, err := parseTimestamp(args.NewStartISO, db.Location())
	if err != nil {
		return &BookingResult{Status: fail(CodeBadStartISO)}
	}
	if t.bookings == nil {
		return &BookingResult{Status: gatewayFailure(errNoGateway)}
	}
	b, err := t.bookings.Reschedule(ctx, booking.RescheduleRequest{
		BookingID:   id,
		StaffID:     args.StaffID,
		NewStartISO: formatTimestamp(start),
		DurationMin: args.DurationMin,
	})
	if err != nil {
		return &BookingResult{Status: t.writeFailure("reschedule", err)}
	}

	res := &BookingResult{Status: success(), BookingID: id, StartISO: formatTimestamp(start), StaffID: args.StaffID}
	if b != nil {
		if b.ID != "" {
			res.BookingID = b.ID
		}
		if b.StartISO != "" {
			res.StartISO = b.StartISO
		}
		res.EndISO = b.EndISO
		if b.StaffID != "" {
			res.StaffID = b.StaffID
		}
	}
	if res.EndISO == "" && args.DurationMin > 0 {
		res.EndISO = formatTimestamp(start.Add(time.Duration(args.DurationMin) * time.Minute))
	}
	t.publish(events.BookingRescheduled, events.BookingPayload{
		BookingID: res.BookingID,
		StaffID:   res.StaffID,
		StartISO:  res.StartISO,
		EndISO:    res.EndISO,
	})
	return res
}

type FindBookingArgs struct {
	Phone   string `json:"phone"`
	StaffID string `json:"staff_id"`
	Days    int    `json:"days"`
}

type FindBookingResult struct {
	Status
	Bookings []booking.Booking `json:"bookings"`
}

// FindBookingByPhone lists upcoming bookings for a phone number.
func (t *Toolbox) FindBookingByPhone(ctx context.Context, args FindBookingArgs) *FindBookingResult {
	phone := strings.TrimSpace(args.Phone)
	if phone == "" {
		return &FindBookingResult{Status: fail(CodeMissingPhone), Bookings: []booking.Booking{}}
	}
	days := args.Days
	if days <= 0 {
		days = defaultLookupDays
	}
	if t.bookings == nil {
		return &FindBookingResult{Status: gatewayFailure(errNoGateway), Bookings: []booking.Booking{}}
	}
	found, err := t.bookings.FindByPhone(ctx, booking.FindRequest{Phone: phone, StaffID: args.StaffID, Days: days})
	if err != nil {
		t.logger.Warn().Err(err).Msg("find bookings failed")
		return &FindBookingResult{Status: gatewayFailure(err), Bookings: []booking.Booking{}}
	}
	if found == nil {
		found = []booking.Booking{}
	}
	return &FindBookingResult{Status: success(), Bookings: found}
}

type RememberContactArgs struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ContactResult struct {
	Status
	Ref string `json:"ref,omitempty"`
}

// RememberContact stores a client contact and returns its stable reference.
func (t *Toolbox) RememberContact(ctx context.Context, args RememberContactArgs) *ContactResult {
	name, phone := strings.TrimSpace(args.Name), strings.TrimSpace(args.Phone)
	if name == "" || phone == "" {
		return &ContactResult{Status: fail(CodeMissingNameOrPhone)}
	}
	if t.contacts == nil {
		return &ContactResult{Status: failDetail(CodeStorageError, "contact store not configured")}
	}
	ref, err := t.contacts.Remember(ctx, name, phone)
	switch {
	case errors.Is(err, contacts.ErrMissingNameOrPhone):
		return &ContactResult{Status: fail(CodeMissingNameOrPhone)}
	case err != nil:
		t.logger.Error().Err(err).Msg("remember contact")
		return &ContactResult{Status: failDetail(CodeStorageError, err.Error())}
	}
	return &ContactResult{Status: success(), Ref: ref}
}

func (t *Toolbox) writeFailure(op string, err error) Status {
	if errors.Is(err, booking.ErrTimeConflict) {
		return fail(CodeTimeConflict)
	}
	t.logger.Warn().Err(err).Str("op", op).Msg("booking gateway failed")
	return gatewayFailure(err)
}
