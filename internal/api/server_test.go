package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonagent/internal/tools"
)

const testAPIKey = "valid-key"

type fakeTools struct {
	lastName string
	lastArgs json.RawMessage
	result   any
}

func (f *fakeTools) Call(_ context.Context, name string, args json.RawMessage) any {
	f.lastName, f.lastArgs = name, args
	return f.result
}

func (f *fakeTools) Names() []string {
	return []string{"get_price", "suggest_slots"}
}

func setupTestServer(t *testing.T, apiKey string, result any) (*httptest.Server, *fakeTools) {
	t.Helper()
	fake := &fakeTools{result: result}
	logger := zerolog.New(io.Discard)
	srv := httptest.NewServer(NewHTTPServer(Config{APIKey: apiKey}, fake, &logger).Handler())
	t.Cleanup(srv.Close)
	return srv, fake
}

func do(t *testing.T, method, url, key, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestCallTool(t *testing.T) {
	srv, fake := setupTestServer(t, testAPIKey, map[string]any{"ok": true, "currency": "EUR"})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/tools/get_price", testAPIKey, `{"service":"barba"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "get_price", fake.lastName)
	assert.JSONEq(t, `{"service":"barba"}`, string(fake.lastArgs))
}

func TestCallTool_EmptyBody(t *testing.T) {
	srv, fake := setupTestServer(t, "", map[string]any{"ok": false, "slots": []any{}})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/tools/suggest_slots", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["ok"])
	assert.Empty(t, fake.lastArgs)
}

func TestCallTool_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		key        string
		body       string
		result     any
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing api key",
			method:     http.MethodPost,
			path:       "/api/tools/get_price",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "wrong api key",
			method:     http.MethodPost,
			path:       "/api/tools/get_price",
			key:        "guess",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "unknown tool",
			method:     http.MethodPost,
			path:       "/api/tools/make_coffee",
			key:        testAPIKey,
			body:       `{}`,
			wantStatus: http.StatusNotFound,
			wantError:  tools.CodeUnknownTool,
		},
		{
			name:       "invalid json",
			method:     http.MethodPost,
			path:       "/api/tools/get_price",
			key:        testAPIKey,
			body:       `{"service":`,
			wantStatus: http.StatusBadRequest,
			wantError:  tools.CodeBadArguments,
		},
		{
			name:       "arguments of the wrong type",
			method:     http.MethodPost,
			path:       "/api/tools/get_price",
			key:        testAPIKey,
			body:       `{"service":5}`,
			result:     tools.Status{Error: tools.CodeBadArguments, Detail: "cannot unmarshal"},
			wantStatus: http.StatusBadRequest,
			wantError:  tools.CodeBadArguments,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			path:       "/api/tools/get_price",
			key:        testAPIKey,
			wantStatus: http.StatusMethodNotAllowed,
			wantError:  "method not allowed",
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/nowhere",
			wantStatus: http.StatusNotFound,
			wantError:  "not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := setupTestServer(t, testAPIKey, tt.result)
			resp, body := do(t, tt.method, srv.URL+tt.path, tt.key, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestListTools(t *testing.T) {
	srv, _ := setupTestServer(t, testAPIKey, nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/tools", testAPIKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list, ok := body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "get_price", first["name"])
	assert.NotEmpty(t, first["parameters"])
}
