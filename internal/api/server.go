// Package api serves the yard picture, alerts and performance history over
// HTTP.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/yardwatch/internal/db"
	"github.com/banshee-data/yardwatch/internal/httputil"
	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/serialmux"
	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/version"
	"github.com/banshee-data/yardwatch/internal/yard"
)

// ANSI escape codes for the request log.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	engine     *yard.Engine
	db         *db.DB
	m          serialmux.SerialMuxInterface
	hub        *StatusHub
	recorder   *yard.AsyncRecorder
	resetRoles []string
	clock      timeutil.Clock
	started    time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder exposes the persistence queue counters on /api/health.
func WithRecorder(r *yard.AsyncRecorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithResetRoles sets the roles allowed to reset section state.
func WithResetRoles(roles []string) Option {
	return func(s *Server) { s.resetRoles = roles }
}

// WithClock sets the clock used for uptime and chart subtitles.
func WithClock(c timeutil.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// NewServer builds the API over a running engine. hub may be nil, in which
// case the status stream is not mounted.
func NewServer(e *yard.Engine, store *db.DB, m serialmux.SerialMuxInterface, hub *StatusHub, opts ...Option) *Server {
	s := &Server{
		engine:     e,
		db:         store,
		m:          m,
		hub:        hub,
		resetRoles: []string{"admin", "supervisor"},
		clock:      timeutil.RealClock{},
	}
	for _, o := range opts {
		o(s)
	}
	s.started = s.clock.Now()
	return s
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration. Streams are
// logged when they end.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.showHealth)
	mux.HandleFunc("/api/status", s.showStatus)
	if s.hub != nil {
		mux.HandleFunc("/api/status/stream", s.hub.serveStream)
	}
	mux.HandleFunc("/api/sections", s.listSections)
	mux.HandleFunc("/api/sections/", s.handleSectionByID)
	mux.HandleFunc("/api/sections/reset", s.resetSections)
	mux.HandleFunc("/api/trail-through", s.listTrailThrough)
	mux.HandleFunc("/api/trail-through/audit", s.listTrailThroughAudit)
	mux.HandleFunc("/api/trail-through/clear", s.clearTrailThrough)
	mux.HandleFunc("/api/transits", s.listTransits)
	mux.HandleFunc("/api/traces", s.listTraces)
	mux.HandleFunc("/api/events", s.listSystemEvents)
	mux.HandleFunc("/api/dpus/", s.listDetectionPoints)
	mux.HandleFunc("/api/performance", s.showPerformance)
	mux.HandleFunc("/api/charts/performance", s.showPerformanceChart)
	mux.HandleFunc("/api/charts/dwell.png", s.showDwellHistogram)
	mux.HandleFunc("/command", s.sendCommandHandler)
	return mux
}

// limitParam parses ?limit=. Missing means 0, which the store treats as its
// default.
func limitParam(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// pathID returns the path segments after prefix.
func pathID(r *http.Request, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

type healthResponse struct {
	Version       string              `json:"version"`
	GitSHA        string              `json:"git_sha"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Ticks         uint64              `json:"ticks"`
	TraceCounter  int                 `json:"trace_counter"`
	OpenAlerts    int                 `json:"open_alerts"`
	Recorder      *yard.RecorderStats `json:"recorder,omitempty"`
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	resp := healthResponse{
		Version:       version.Version,
		GitSHA:        version.GitSHA,
		UptimeSeconds: s.clock.Since(s.started).Seconds(),
		Ticks:         s.engine.Ticks(),
		TraceCounter:  s.engine.TraceCounter(),
		OpenAlerts:    len(s.engine.Alerts()),
	}
	if s.recorder != nil {
		st := s.recorder.Stats()
		resp.Recorder = &st
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.engine.LastStatus())
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		httputil.BadRequest(w, "missing command")
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		monitoring.Errorf("failed to send command %q: %v", command, err)
		httputil.InternalServerError(w, "failed to send command")
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "sent"})
}
