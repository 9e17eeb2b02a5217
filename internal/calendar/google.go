package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"salonagent/internal/metrics"
)

const (
	// maxItemsPerQuery is the free/busy API limit on calendars per request.
	maxItemsPerQuery = 50

	defaultTimeout = 3 * time.Second
	defaultRate    = 5
	defaultBurst   = 10
)

// GoogleConfig configures the Google Calendar free/busy provider.
type GoogleConfig struct {
	// CredentialsFile is a service account JSON key with read access to the
	// staff calendars.
	CredentialsFile string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	// TimeZone is sent with every query; busy periods come back in UTC either way.
	TimeZone string
}

// GoogleProvider answers busy queries with the Calendar v3 freeBusy endpoint.
type GoogleProvider struct {
	srv      *gcal.Service
	limiter  *rate.Limiter
	timeout  time.Duration
	timeZone string
	logger   *zerolog.Logger
}

// NewGoogleProvider authenticates with the service account in cfg. Extra
// client options are appended, which lets tests point it at a local server.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig, logger *zerolog.Logger, opts ...option.ClientOption) (*GoogleProvider, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read calendar credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, gcal.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse calendar credentials: %w", err)
		}
		opts = append([]option.ClientOption{option.WithTokenSource(creds.TokenSource)}, opts...)
	} else if len(opts) == 0 {
		return nil, ErrNotConfigured
	}

	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	l := logger.With().Str("component", "gcal").Logger()
	return &GoogleProvider{
		srv:      srv,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		timeout:  cfg.Timeout,
		timeZone: cfg.TimeZone,
		logger:   &l,
	}, nil
}

// Busy returns busy periods per calendar id. Any failed batch or calendar
// level error fails the whole call so that callers never treat an unknown
// calendar as free.
func (p *GoogleProvider) Busy(ctx context.Context, calendarIDs []string, window Interval) (map[string][]Interval, error) {
	out := make(map[string][]Interval, len(calendarIDs))
	ids := uniqueIDs(calendarIDs)
	if len(ids) == 0 || !window.Valid() {
		return out, nil
	}

	for start := 0; start < len(ids); start += maxItemsPerQuery {
		end := start + maxItemsPerQuery
		if end > len(ids) {
			end = len(ids)
		}
		if err := p.query(ctx, ids[start:end], window, out); err != nil {
			metrics.IncCalendarRequest("error")
			return nil, err
		}
		metrics.IncCalendarRequest("ok")
	}
	return out, nil
}

func (p *GoogleProvider) query(ctx context.Context, ids []string, window Interval, out map[string][]Interval) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return &GatewayError{Op: "rate limit", Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &gcal.FreeBusyRequest{
		TimeMin:  window.Start.Format(time.RFC3339),
		TimeMax:  window.End.Format(time.RFC3339),
		TimeZone: p.timeZone,
	}
	for _, id := range ids {
		req.Items = append(req.Items, &gcal.FreeBusyRequestItem{Id: id})
	}

	started := time.Now()
	resp, err := p.srv.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return &GatewayError{Op: "freebusy", Err: err}
	}
	p.logger.Debug().Int("calendars", len(ids)).Dur("took", time.Since(started)).Msg("freebusy query")

	for _, id := range ids {
		cal, ok := resp.Calendars[id]
		if !ok {
			return &GatewayError{Op: "freebusy", Err: fmt.Errorf("calendar %s missing from response", id)}
		}
		if len(cal.Errors) > 0 {
			return &GatewayError{Op: "freebusy", Err: fmt.Errorf("calendar %s: %s", id, cal.Errors[0].Reason)}
		}
		busy := make([]Interval, 0, len(cal.Busy))
		for _, period := range cal.Busy {
			iv, err := parsePeriod(period)
			if err != nil {
				return &GatewayError{Op: "freebusy", Err: err}
			}
			busy = append(busy, iv)
		}
		out[id] = busy
	}
	return nil
}

func parsePeriod(p *gcal.TimePeriod) (Interval, error) {
	start, err := time.Parse(time.RFC3339, p.Start)
	if err != nil {
		return Interval{}, fmt.Errorf("bad busy start %q: %w", p.Start, err)
	}
	end, err := time.Parse(time.RFC3339, p.End)
	if err != nil {
		return Interval{}, fmt.Errorf("bad busy end %q: %w", p.End, err)
	}
	return Interval{Start: start, End: end}, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
