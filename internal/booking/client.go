package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"salonagent/internal/metrics"
)

const (
	DefaultTimeout = 3 * time.Second

	codeTimeConflict = "time_conflict"
	maxDetailBytes   = 512
)

var (
	// ErrNotConfigured means no booking base URL is set.
	ErrNotConfigured = errors.New("booking gateway not configured")
	// ErrTimeConflict means the requested time is already taken.
	ErrTimeConflict = errors.New("time conflict")
)

// GatewayError is any non-conflict failure talking to the booking workflow.
type GatewayError struct {
	Op     string
	Status int
	Code   string
	Detail string
	Err    error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "booking %s", e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": http %d", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Paths are the workflow endpoints relative to the base URL.
type Paths struct {
	Book        string `yaml:"book"`
	Cancel      string `yaml:"cancel"`
	Reschedule  string `yaml:"reschedule"`
	FindByPhone string `yaml:"find_by_phone"`
}

// DefaultPaths are the n8n webhook routes.
func DefaultPaths() Paths {
	return Paths{
		Book:        "/api/booking/book",
		Cancel:      "/api/booking/cancel",
		Reschedule:  "/api/booking/reschedule",
		FindByPhone: "/api/booking/find-by-phone",
	}
}

// Config configures the client.
type Config struct {
	BaseURL  string
	User     string
	Password string
	Timeout  time.Duration
	Paths    Paths
}

// ServiceMeta describes one booked service for the calendar event body.
type ServiceMeta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceText   string `json:"price_text"`
	DurationMin *int   `json:"duration_min"`
}

// CreateRequest is the payload of a new booking.
type CreateRequest struct {
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	StartISO     string        `json:"start_iso"`
	EndISO       string        `json:"end_iso"`
	StaffID      string        `json:"staff_id"`
	ServiceID    string        `json:"service_id"`
	Services     []string      `json:"services"`
	ServicesMeta []ServiceMeta `json:"services_meta"`
	DurationMin  int           `json:"duration_min"`
	TimeZone     string        `json:"timeZone"`
}

// CancelRequest cancels a booking.
type CancelRequest struct {
	BookingID string `json:"booking_id"`
	StaffID   string `json:"staff_id"`
}

// RescheduleRequest moves a booking to a new start.
type RescheduleRequest struct {
	BookingID   string `json:"booking_id"`
	StaffID     string `json:"staff_id"`
	NewStartISO string `json:"new_start_iso"`
	DurationMin int    `json:"duration_min,omitempty"`
}

// FindRequest looks bookings up by client phone.
type FindRequest struct {
	Phone   string `json:"phone"`
	StaffID string `json:"staff_id"`
	Days    int    `json:"days"`
}

// Booking is a booking as reported by the workflow.
type Booking struct {
	ID       string   `json:"booking_id"`
	StartISO string   `json:"start_iso,omitempty"`
	EndISO   string   `json:"end_iso,omitempty"`
	StaffID  string   `json:"staff_id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Services []string `json:"services,omitempty"`
}

type envelope struct {
	OK       bool            `json:"ok"`
	Error    json.RawMessage `json:"error"`
	Detail   string          `json:"detail"`
	Bookings []Booking       `json:"bookings"`
	Booking
}

// Client calls the booking workflow over HTTP. It never retries: a conflict
// goes back to the caller, who picks another time with the client.
type Client struct {
	baseURL    string
	user       string
	password   string
	paths      Paths
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewClient builds a client. An empty base URL yields ErrNotConfigured.
func NewClient(cfg Config, logger *zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	paths := DefaultPaths()
	if cfg.Paths.Book != "" {
		paths.Book = cfg.Paths.Book
	}
	if cfg.Paths.Cancel != "" {
		paths.Cancel = cfg.Paths.Cancel
	}
	if cfg.Paths.Reschedule != "" {
		paths.Reschedule = cfg.Paths.Reschedule
	}
	if cfg.Paths.FindByPhone != "" {
		paths.FindByPhone = cfg.Paths.FindByPhone
	}
	l := logger.With().Str("component", "booking").Logger()
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		user:       cfg.User,
		password:   cfg.Password,
		paths:      paths,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     &l,
	}, nil
}

// Create books a new appointment.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	var resp envelope
	if err := c.post(ctx, "book", c.paths.Book, req, &resp); err != nil {
		return nil, err
	}
	b := resp.Booking
	if b.StartISO == "" {
		b.StartISO = req.StartISO
	}
	if b.EndISO == "" {
		b.EndISO = req.EndISO
	}
	if b.StaffID == "" {
		b.StaffID = req.StaffID
	}
	return &b, nil
}

// Cancel cancels an appointment.
func (c *Client) Cancel(ctx context.Context, req CancelRequest) error {
	var resp envelope
	return c.post(ctx, "cancel", c.paths.Cancel, req, &resp)
}

// Reschedule moves an appointment.
func (c *Client) Reschedule(ctx context.Context, req RescheduleRequest) (*Booking, error) {
	var resp envelope
	if err := c.post(ctx, "reschedule", c.paths.Reschedule, req, &resp); err != nil {
		return nil, err
	}
	b := resp.Booking
	if b.ID == "" {
		b.ID = req.BookingID
	}
	if b.StartISO == "" {
		b.StartISO = req.NewStartISO
	}
	return &b, nil
}

// FindByPhone lists upcoming appointments for a phone number.
func (c *Client) FindByPhone(ctx context.Context, req FindRequest) ([]Booking, error) {
	var resp envelope
	if err := c.post(ctx, "find_by_phone", c.paths.FindByPhone, req, &resp); err != nil {
		return nil, err
	}
	if resp.Bookings == nil {
		return []Booking{}, nil
	}
	return resp.Bookings, nil
}

func (c *Client) post(ctx context.Context, op, path string, body any, out *envelope) error {
	err := c.doPost(ctx, op, path, body, out)
	switch {
	case err == nil:
		metrics.IncBookingRequest(op, "ok")
	case errors.Is(err, ErrTimeConflict):
		metrics.IncBookingRequest(op, "conflict")
	default:
		metrics.IncBookingRequest(op, "error")
	}
	return err
}

func (c *Client) doPost(ctx context.Context, op, path string, body any, out *envelope) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Op: op, Status: resp.StatusCode, Err: err}
	}
	c.logger.Debug().Str("op", op).Str("request_id", requestID).Int("status", resp.StatusCode).Msg("booking workflow call")

	if resp.StatusCode == http.StatusConflict {
		return ErrTimeConflict
	}
	if resp.StatusCode >= 300 {
		return &GatewayError{Op: op, Status: resp.StatusCode, Detail: truncate(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Op: op, Status: resp.StatusCode, Detail: truncate(string(raw)), Err: err}
	}
	if !out.OK {
		code := errorCode(out.Error)
		if code == codeTimeConflict {
			return ErrTimeConflict
		}
		return &GatewayError{Op: op, Status: resp.StatusCode, Code: code, Detail: out.Detail}
	}
	return nil
}

// errorCode accepts both "error": "code" and "error": {"code": "..."}.
func errorCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "n8n_error"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	var obj struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Code != "" {
		return obj.Code
	}
	return "n8n_error"
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDetailBytes {
		return s[:maxDetailBytes]
	}
	return s
}
