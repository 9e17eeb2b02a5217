package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"salonagent/internal/metrics"
	"salonagent/internal/tools"
)

const maxBodyBytes = 1 << 20

// ToolCaller runs named tools.
type ToolCaller interface {
	Call(ctx context.Context, name string, args json.RawMessage) any
	Names() []string
}

// Config controls the HTTP listener.
type Config struct {
	Addr         string
	APIKey       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// HTTPServer exposes the toolbox to the voice agent over HTTP.
type HTTPServer struct {
	tools  ToolCaller
	apiKey string
	known  map[string]bool
	logger *zerolog.Logger
	server *http.Server
}

// NewHTTPServer wires routes. An empty APIKey disables authentication.
func NewHTTPServer(cfg Config, caller ToolCaller, logger *zerolog.Logger) *HTTPServer {
	l := logger.With().Str("component", "api").Logger()
	s := &HTTPServer{
		tools:  caller,
		apiKey: cfg.APIKey,
		known:  map[string]bool{},
		logger: &l,
	}
	for _, name := range caller.Names() {
		s.known[name] = true
	}

	r := mux.NewRouter()
	r.Use(s.countRequests)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAPIKey)
	api.HandleFunc("/tools", s.handleListTools).Methods(http.MethodGet)
	api.HandleFunc("/tools/{name}", s.handleCallTool).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving until Shutdown.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight calls.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type toolList struct {
	Tools []tools.Definition `json:"tools"`
}

// GET /api/tools
func (s *HTTPServer) handleListTools(w http.ResponseWriter, _ *http.Request) {
	defs := make([]tools.Definition, 0, len(s.known))
	for _, d := range tools.Definitions() {
		if s.known[d.Name] {
			defs = append(defs, d)
		}
	}
	writeJSON(w, http.StatusOK, toolList{Tools: defs})
}

// POST /api/tools/{name}
func (s *HTTPServer) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.known[name] {
		writeJSON(w, http.StatusNotFound, tools.Status{Error: tools.CodeUnknownTool, Detail: name})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, tools.Status{Error: tools.CodeBadArguments, Detail: "invalid JSON body"})
		return
	}

	result := s.tools.Call(r.Context(), name, body)
	if st, ok := result.(tools.Status); ok && st.Error == tools.CodeBadArguments {
		writeJSON(w, http.StatusBadRequest, st)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			got := r.Header.Get("x-api-key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
				s.logger.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("rejected request without valid API key")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.IncHTTP(route, rec.code)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.code).
			Dur("took", time.Since(started)).
			Msg("request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
