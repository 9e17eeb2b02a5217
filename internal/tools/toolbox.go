package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"salonagent/internal/booking"
	"salonagent/internal/events"
	"salonagent/internal/metrics"
	"salonagent/internal/salon"
	"salonagent/internal/slots"
)

// Error codes reported in the "error" field of a failed result.
const (
	CodeServiceNotFound    = "service_not_found"
	CodeBadDate            = "bad_date"
	CodeStaffNotFound      = "staff_not_found"
	CodeBadStartISO        = "bad_start_iso"
	CodeCouldNotParse      = "could_not_parse"
	CodeMissingNameOrPhone = "missing_name_or_phone"
	CodeMissingBookingID   = "missing_booking_id"
	CodeMissingPhone       = "missing_phone"
	CodeTimeConflict       = "time_conflict"
	CodeGatewayError       = "gateway_error"
	CodeStorageError       = "storage_error"
	CodeUnknownTool        = "unknown_tool"
	CodeBadArguments       = "bad_arguments"
	CodeInternal           = "internal_error"
)

// Status is embedded in every tool result.
type Status struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (s Status) status() Status { return s }

func success() Status { return Status{OK: true} }

func fail(code string) Status { return Status{Error: code} }

func failDetail(code, detail string) Status { return Status{Error: code, Detail: detail} }

type statusCarrier interface {
	status() Status
}

// Suggester ranks bookable windows.
type Suggester interface {
	Suggest(ctx context.Context, db *salon.DB, req slots.Request) (*slots.Result, error)
}

// BookingGateway is the write side of the calendar.
type BookingGateway interface {
	Create(ctx context.Context, req booking.CreateRequest) (*booking.Booking, error)
	Cancel(ctx context.Context, req booking.CancelRequest) error
	Reschedule(ctx context.Context, req booking.RescheduleRequest) (*booking.Booking, error)
	FindByPhone(ctx context.Context, req booking.FindRequest) ([]booking.Booking, error)
}

// ContactStore keeps client contacts.
type ContactStore interface {
	Remember(ctx context.Context, name, phone string) (string, error)
}

// Publisher receives domain events.
type Publisher interface {
	Publish(event events.Event) error
}

// Toolbox exposes the salon knowledge base and booking operations as named
// tools with JSON arguments and JSON-serializable results.
type Toolbox struct {
	kb        *salon.Holder
	suggester Suggester
	bookings  BookingGateway
	contacts  ContactStore
	bus       Publisher
	now       func() time.Time
	logger    *zerolog.Logger

	handlers map[string]handler
}

// Option configures a Toolbox.
type Option func(*Toolbox)

// WithBookings sets the booking gateway.
func WithBookings(g BookingGateway) Option {
	return func(t *Toolbox) { t.bookings = g }
}

// WithContacts sets the contact store.
func WithContacts(s ContactStore) Option {
	return func(t *Toolbox) { t.contacts = s }
}

// WithPublisher sets where booking events go.
func WithPublisher(p Publisher) Option {
	return func(t *Toolbox) { t.bus = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Toolbox) { t.now = now }
}

// New builds a toolbox reading the knowledge base from kb.
func New(kb *salon.Holder, suggester Suggester, logger *zerolog.Logger, opts ...Option) *Toolbox {
	l := logger.With().Str("component", "tools").Logger()
	t := &Toolbox{kb: kb, suggester: suggester, now: time.Now, logger: &l}
	for _, opt := range opts {
		opt(t)
	}
	t.handlers = map[string]handler{
		"get_services":          bind(t.GetServices),
		"get_price":             bind(t.GetPrice),
		"get_open_hours":        bind(t.GetOpenHours),
		"list_staff":            bind(t.ListStaff),
		"get_staff_day":         bind(t.GetStaffDay),
		"get_staff_week":        bind(t.GetStaffWeek),
		"resolve_date":          bind(t.ResolveDate),
		"suggest_slots":         bind(t.SuggestSlots),
		"create_booking":        bind(t.CreateBooking),
		"cancel_booking":        bind(t.CancelBooking),
		"reschedule_booking":    bind(t.RescheduleBooking),
		"find_booking_by_phone": bind(t.FindBookingByPhone),
		"remember_contact":      bind(t.RememberContact),
	}
	return t
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

func bind[A any, R any](fn func(context.Context, A) R) handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args A
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
		}
		return fn(ctx, args), nil
	}
}

// Names lists the registered tools in alphabetical order.
func (t *Toolbox) Names() []string {
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs a tool by name. It never returns a Go error: failures, unknown
// tools, malformed arguments and panics all come back as a failed Status.
func (t *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) (result any) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Str("tool", name).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("tool panicked")
			result = fail(CodeInternal)
		}
		st := Status{}
		if sc, ok := result.(statusCarrier); ok {
			st = sc.status()
		}
		outcome := "ok"
		switch {
		case st.Error != "":
			outcome = st.Error
		case !st.OK:
			outcome = "empty"
		}
		metrics.IncToolCall(name, outcome)
		t.logger.Debug().Str("tool", name).Str("outcome", outcome).Dur("took", time.Since(started)).Msg("tool call")
	}()

	h, ok := t.handlers[name]
	if !ok {
		return failDetail(CodeUnknownTool, name)
	}
	res, err := h(ctx, args)
	if err != nil {
		return failDetail(CodeBadArguments, err.Error())
	}
	return res
}

func (t *Toolbox) db() *salon.DB {
	return t.kb.Current()
}

func (t *Toolbox) clock(db *salon.DB) time.Time {
	return t.now().In(db.Location())
}

func (t *Toolbox) publish(eventType string, payload events.BookingPayload) {
	if t.bus == nil {
		return
	}
	ev, err := events.New(eventType, payload)
	if err != nil {
		t.logger.Error().Err(err).Msg("build event")
		return
	}
	if err := t.bus.Publish(ev); err != nil {
		t.logger.Warn().Err(err).Str("type", eventType).Msg("event delivery incomplete")
	}
}

func gatewayFailure(err error) Status {
	return failDetail(CodeGatewayError, fmt.Sprint(err))
}
