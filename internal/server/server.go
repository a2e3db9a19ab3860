// Package server exposes a runner.Loop over HTTP so a control surface can
// load modes, drive the loop and turn knobs.
//
// Endpoints:
//
//	GET   /health      liveness
//	GET   /status      loop status, mode and error budget
//	POST  /mode        load {"path"} or {"source","name","root"}
//	POST  /start       start ticking the loaded mode
//	POST  /stop        stop ticking
//	PUT   /fps         {"fps": n}
//	GET   /state       hardware state as mode code sees it
//	PATCH /state       apply control changes, e.g. {"knob1": 0.3}
//	GET   /frame.png   current screen contents
//	GET   /metrics     Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/caffeineduck/eyesy/hardware"
	"github.com/caffeineduck/eyesy/runner"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the control API for one Loop.
type Server struct {
	loop     *runner.Loop
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the registry served at /metrics. Without one,
// /metrics is not routed.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New creates a Server for loop.
func New(loop *runner.Loop, opts ...Option) *Server {
	s := &Server{loop: loop}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Post("/mode", s.loadMode)
	r.Post("/start", s.start)
	r.Post("/stop", s.stop)
	r.Put("/fps", s.setFPS)
	r.Get("/state", s.state)
	r.Patch("/state", s.applyState)
	r.Get("/frame.png", s.frame)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type statusResponse struct {
	Status            string  `json:"status"`
	Mode              string  `json:"mode,omitempty"`
	ModeID            string  `json:"mode_id,omitempty"`
	Root              string  `json:"root,omitempty"`
	FPS               float64 `json:"fps"`
	FrameIntervalMs   float64 `json:"frame_interval_ms"`
	ConsecutiveErrors int     `json:"consecutive_errors"`
	LastError         string  `json:"last_error,omitempty"`
}

type modeRequest struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Name   string `json:"name"`
	Root   string `json:"root"`
}

type modeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Root string `json:"root"`
}

type fpsRequest struct {
	FPS *float64 `json:"fps"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) snapshot() statusResponse {
	resp := statusResponse{
		Status:            s.loop.Status().String(),
		FPS:               s.loop.FPS(),
		FrameIntervalMs:   s.loop.FrameInterval(),
		ConsecutiveErrors: s.loop.ConsecutiveErrors(),
	}
	if p := s.loop.Program(); p != nil {
		resp.Mode = p.Name
		resp.ModeID = p.ID.String()
		resp.Root = p.RootPath
	}
	if err := s.loop.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return resp
}

func (s *Server) loadMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}

	var (
		prog *runner.Program
		err  error
	)
	switch {
	case req.Path != "":
		prog, err = s.loop.LoadModeFile(r.Context(), req.Path)
	case req.Source != "":
		name := req.Name
		if name == "" {
			name = "inline"
		}
		prog, err = s.loop.LoadMode(r.Context(), req.Source, name, req.Root)
	default:
		writeError(w, http.StatusBadRequest, "path or source required", "")
		return
	}
	if err != nil {
		code, kind := loadStatus(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("mode load failed", "kind", kind, "error", err)
		}
		writeError(w, code, err.Error(), kind)
		return
	}

	writeJSON(w, http.StatusOK, modeResponse{ID: prog.ID.String(), Name: prog.Name, Root: prog.RootPath})
}

// loadStatus maps a LoadMode failure to an HTTP status. Failures caused by
// the mode itself are 422; a runtime that cannot load is 503.
func loadStatus(err error) (int, string) {
	kind := runner.ErrorKind(err)
	switch kind {
	case "contract", "setup", "interpreter":
		return http.StatusUnprocessableEntity, kind
	case "load":
		return http.StatusServiceUnavailable, kind
	}
	if errors.Is(err, fs.ErrNotExist) {
		return http.StatusNotFound, kind
	}
	return http.StatusInternalServerError, kind
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	if err := s.loop.Start(); err != nil {
		writeError(w, http.StatusConflict, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	s.loop.Stop()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) setFPS(w http.ResponseWriter, r *http.Request) {
	var req fpsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FPS == nil {
		writeError(w, http.StatusBadRequest, "fps required", "")
		return
	}
	if err := s.loop.SetFPS(*req.FPS); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	st := s.loop.Bridge().Snapshot()
	writeJSON(w, http.StatusOK, hardware.Values(&st))
}

func (s *Server) applyState(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}
	if err := s.loop.Bridge().Apply(values); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	s.state(w, r)
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	surf := s.loop.Surface()
	if surf == nil {
		writeError(w, http.StatusNotFound, "no screen yet; load a mode first", "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, surf.Image()); err != nil {
		s.logger.Error("frame encode failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg, kind string) {
	writeJSON(w, code, errorResponse{Error: msg, Kind: kind})
}

// Serve listens on addr and serves the API until ctx is canceled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
