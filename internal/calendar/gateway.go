package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConfigured means no calendar backend or credentials are set up.
	ErrNotConfigured = errors.New("calendar not configured")
	// ErrUnavailable wraps transport, timeout and authentication failures.
	ErrUnavailable = errors.New("calendar unavailable")
)

// Interval is a half-open [Start, End) range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the interval intersects [start, end).
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && start.Before(i.End)
}

// Valid reports whether the interval has positive length.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// BusyProvider returns busy intervals per calendar for a window. A single call
// covers any number of calendars.
type BusyProvider interface {
	Busy(ctx context.Context, calendarIDs []string, window Interval) (map[string][]Interval, error)
}

// AnyOverlap reports whether [start, end) intersects any of the intervals.
func AnyOverlap(busy []Interval, start, end time.Time) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// GatewayError records which calendar operation failed.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}
