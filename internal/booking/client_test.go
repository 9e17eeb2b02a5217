package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/"
	logger := zerolog.New(io.Discard)
	c, err := NewClient(cfg, &logger)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Create(t *testing.T) {
	var got CreateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/booking/book", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "agent", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "booking_id": "evt-1"})
	}, Config{User: "agent", Password: "secret"})

	b, err := c.Create(context.Background(), CreateRequest{
		Name:        "Carmen",
		Phone:       "+34600111222",
		StartISO:    "2025-10-21T10:00:00+02:00",
		EndISO:      "2025-10-21T10:45:00+02:00",
		StaffID:     "ruben",
		Services:    []string{"SVC002"},
		DurationMin: 45,
		TimeZone:    "Europe/Madrid",
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", b.ID)
	assert.Equal(t, "2025-10-21T10:00:00+02:00", b.StartISO)
	assert.Equal(t, "2025-10-21T10:45:00+02:00", b.EndISO)
	assert.Equal(t, "ruben", b.StaffID)

	assert.Equal(t, "Carmen", got.Name)
	assert.Equal(t, 45, got.DurationMin)
	assert.Equal(t, "Europe/Madrid", got.TimeZone)
}

func TestClient_NoAuthWithoutCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}, Config{User: "only-user"})

	require.NoError(t, c.Cancel(context.Background(), CancelRequest{BookingID: "evt-1", StaffID: "ana"}))
}

func TestClient_TimeConflict(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http 409",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusConflict, map[string]any{"ok": false})
			},
		},
		{
			name: "error string",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "time_conflict"})
			},
		},
		{
			name: "error object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": map[string]any{"code": "time_conflict"}})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, Config{})
			_, err := c.Create(context.Background(), CreateRequest{Name: "a", Phone: "1"})
			assert.ErrorIs(t, err, ErrTimeConflict)
		})
	}
}

func TestClient_GatewayErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "workflow crashed", http.StatusBadGateway)
		}, Config{})
		_, err := c.Reschedule(context.Background(), RescheduleRequest{BookingID: "evt-1", NewStartISO: "2025-10-21T11:00:00+02:00"})
		var gwErr *GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, "reschedule", gwErr.Op)
		assert.Equal(t, http.StatusBadGateway, gwErr.Status)
		assert.Equal(t, "workflow crashed", gwErr.Detail)
	})

	t.Run("ok false with code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "not_found", "detail": "no such event"})
		}, Config{})
		err := c.Cancel(context.Background(), CancelRequest{BookingID: "x"})
		var gwErr *GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, "not_found", gwErr.Code)
		assert.Equal(t, "no such event", gwErr.Detail)
		assert.NotErrorIs(t, err, ErrTimeConflict)
	})

	t.Run("not json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>")
		}, Config{})
		_, err := c.FindByPhone(context.Background(), FindRequest{Phone: "1"})
		var gwErr *GatewayError
		assert.True(t, errors.As(err, &gwErr))
	})

	t.Run("timeout", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}, Config{Timeout: 50 * time.Millisecond})
		_, err := c.Create(context.Background(), CreateRequest{})
		var gwErr *GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, "book", gwErr.Op)
		assert.Error(t, gwErr.Err)
	})
}

func TestClient_RescheduleAndFind(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/booking/reschedule":
			var req RescheduleRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 60, req.DurationMin)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "end_iso": "2025-10-22T12:00:00+02:00"})
		case "/api/booking/find-by-phone":
			var req FindRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 30, req.Days)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "bookings": []map[string]any{
				{"booking_id": "evt-1", "start_iso": "2025-10-22T11:00:00+02:00", "staff_id": "ana"},
			}})
		default:
			http.NotFound(w, r)
		}
	}, Config{})

	b, err := c.Reschedule(context.Background(), RescheduleRequest{
		BookingID: "evt-1", StaffID: "ana", NewStartISO: "2025-10-22T11:00:00+02:00", DurationMin: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", b.ID)
	assert.Equal(t, "2025-10-22T11:00:00+02:00", b.StartISO)
	assert.Equal(t, "2025-10-22T12:00:00+02:00", b.EndISO)

	found, err := c.FindByPhone(context.Background(), FindRequest{Phone: "+34600111222", StaffID: "ana", Days: 30})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "evt-1", found[0].ID)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	logger := zerolog.New(io.Discard)
	_, err := NewClient(Config{BaseURL: "  "}, &logger)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
