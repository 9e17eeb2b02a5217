package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, cfg GoogleConfig) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := zerolog.New(io.Discard)
	p, err := NewGoogleProvider(context.Background(), cfg, &logger,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return p
}

func testWindow() Interval {
	start := time.Date(2025, 10, 20, 7, 0, 0, 0, time.UTC)
	return Interval{Start: start, End: start.Add(12 * time.Hour)}
}

func TestGoogleProvider_Busy(t *testing.T) {
	var seen struct {
		TimeMin string `json:"timeMin"`
		TimeMax string `json:"timeMax"`
		Items   []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/freeBusy"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"kind": "calendar#freeBusy",
			"calendars": {
				"cal-ana": {"busy": [{"start": "2025-10-20T08:00:00Z", "end": "2025-10-20T08:30:00Z"}]},
				"cal-ruben": {"busy": []}
			}
		}`)
	}, GoogleConfig{TimeZone: "Europe/Madrid"})

	busy, err := p.Busy(context.Background(), []string{"cal-ana", "cal-ruben", "cal-ana", ""}, testWindow())
	require.NoError(t, err)

	require.Len(t, seen.Items, 2)
	assert.Equal(t, "cal-ana", seen.Items[0].ID)
	assert.Equal(t, "2025-10-20T07:00:00Z", seen.TimeMin)
	assert.Equal(t, "2025-10-20T19:00:00Z", seen.TimeMax)

	require.Len(t, busy["cal-ana"], 1)
	assert.True(t, busy["cal-ana"][0].Start.Equal(time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30*time.Minute, busy["cal-ana"][0].End.Sub(busy["cal-ana"][0].Start))
	assert.Empty(t, busy["cal-ruben"])
}

func TestGoogleProvider_CalendarErrorFailsCall(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"calendars": {"cal-x": {"errors": [{"domain": "global", "reason": "notFound"}]}}}`)
	}, GoogleConfig{})

	_, err := p.Busy(context.Background(), []string{"cal-x"}, testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "notFound")
}

func TestGoogleProvider_HTTPErrorIsUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "forbidden"}}`, http.StatusForbidden)
	}, GoogleConfig{})

	_, err := p.Busy(context.Background(), []string{"cal-a"}, testWindow())
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "freebusy", gwErr.Op)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGoogleProvider_Timeout(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, GoogleConfig{Timeout: 50 * time.Millisecond})

	_, err := p.Busy(context.Background(), []string{"cal-a"}, testWindow())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGoogleProvider_BatchesLargeRequests(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Items), maxItemsPerQuery)
		cals := map[string]any{}
		for _, it := range req.Items {
			cals[it.ID] = map[string]any{"busy": []any{}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"calendars": cals})
	}, GoogleConfig{RatePerSecond: 100, Burst: 10})

	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		ids = append(ids, "cal-"+strings.Repeat("x", i+1))
	}
	busy, err := p.Busy(context.Background(), ids, testWindow())
	require.NoError(t, err)
	assert.Len(t, busy, 120)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGoogleProvider_EmptyInput(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, GoogleConfig{})

	busy, err := p.Busy(context.Background(), nil, testWindow())
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestNewGoogleProvider_NotConfigured(t *testing.T) {
	logger := zerolog.New(io.Discard)
	_, err := NewGoogleProvider(context.Background(), GoogleConfig{}, &logger)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGoogleProvider(context.Background(), GoogleConfig{CredentialsFile: "/nonexistent/key.json"}, &logger)
	assert.Error(t, err)
}
