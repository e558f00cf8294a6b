package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeebo/xxh3"

	"github.com/itaame/MCC-COMMS/types"
)

const maxJSONBodyBytes = 64 << 10

// Controller is the coordinator surface the API drives.
// *comms.Coordinator satisfies it.
type Controller interface {
	SetChannelState(ctx context.Context, name string, desired types.State) (types.Result, error)
	Toggle(ctx context.Context, name string) (types.Result, error)
	TurnOff(ctx context.Context, name string) (types.Result, error)
	ToggleDelay(ctx context.Context) (types.DelayPolicy, error)
	View() types.View
	Refresh(ctx context.Context) int
	Channels() []types.Channel
}

// Config holds server dependencies.
type Config struct {
	Logger types.Logger

	// Gatherer, if set, is exposed on /metrics.
	Gatherer prometheus.Gatherer
}

// Server maps HTTP requests onto a Controller.
type Server struct {
	ctrl     Controller
	logger   types.Logger
	gatherer prometheus.Gatherer
}

// New creates a server.
//
// Parameters:
//   - ctrl: Coordinator to drive
//   - cfg: Logger and optional metrics gatherer
//
// Returns:
//   - *Server: Server whose Routes can be mounted on an http.Server
func New(ctrl Controller, cfg Config) *Server {
	return &Server{ctrl: ctrl, logger: cfg.Logger, gatherer: cfg.Gatherer}
}

type loopRequest struct {
	Loop string `json:"loop"`
}

type stateRequest struct {
	State *types.State `json:"state"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type statusResponse struct {
	Loops        map[string]types.ChannelView `json:"loops"`
	Delay        bool                         `json:"delay"`
	DelaySeconds float64                      `json:"delay_seconds"`
}

type delayResponse struct {
	Delay        bool    `json:"delay"`
	DelaySeconds float64 `json:"delay_seconds"`
}

type stateResponse struct {
	OK      bool        `json:"ok"`
	Outcome string      `json:"outcome"`
	State   types.State `json:"state"`
	Worker  string      `json:"worker,omitempty"`
}

// Routes returns the API handler wrapped in logging and panic recovery.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/off", s.handleOff)
	mux.HandleFunc("POST /api/delay", s.handleDelay)
	mux.HandleFunc("GET /api/loops", s.handleLoops)
	mux.HandleFunc("POST /api/loops/{name}/state", s.handleSetState)

	return s.logRequests(s.recoverPanics(mux))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("http handler panic", "path", r.URL.Path, "panic", fmt.Sprint(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleStatus refreshes user counts, then answers with the view. The ETag
// is a hash of the body, so pollers get 304 while nothing changes.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Refresh(r.Context())
	view := s.ctrl.View()

	loops := view.Channels
	if loops == nil {
		loops = map[string]types.ChannelView{}
	}
	body, err := json.Marshal(statusResponse{
		Loops:        loops,
		Delay:        view.Delay.Enabled,
		DelaySeconds: view.Delay.Seconds(),
	})
	if err != nil {
		s.logger.Error("failed to encode status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req loopRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Loop == "" {
		writeJSON(w, http.StatusBadRequest, okResponse{OK: false})
		return
	}

	res, err := s.ctrl.Toggle(r.Context(), req.Loop)
	switch {
	case errors.Is(err, types.ErrUnknownChannel):
		writeJSON(w, http.StatusBadRequest, okResponse{OK: false})
	case err != nil:
		s.writeError(w, err)
	case res.Outcome == types.OutcomeRejected:
		writeJSON(w, http.StatusOK, okResponse{OK: false})
	default:
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// handleOff answers ok for unknown loops too; dashboards send off blindly.
func (s *Server) handleOff(w http.ResponseWriter, r *http.Request) {
	var req loopRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, okResponse{OK: false})
		return
	}

	if req.Loop != "" {
		_, err := s.ctrl.TurnOff(r.Context(), req.Loop)
		if err != nil && !errors.Is(err, types.ErrUnknownChannel) {
			s.writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	policy, err := s.ctrl.ToggleDelay(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, delayResponse{Delay: policy.Enabled, DelaySeconds: policy.Seconds()})
}

func (s *Server) handleLoops(w http.ResponseWriter, _ *http.Request) {
	channels := s.ctrl.Channels()
	if channels == nil {
		channels = []types.Channel{}
	}

	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req stateRequest
	if err := decodeJSON(w, r, &req); err != nil || req.State == nil || !req.State.Valid() {
		http.Error(w, "state must be 0, 1 or 2", http.StatusBadRequest)
		return
	}

	res, err := s.ctrl.SetChannelState(r.Context(), name, *req.State)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ok := res.Outcome == types.OutcomeApplied || res.Outcome == types.OutcomeUnchanged
	writeJSON(w, http.StatusOK, stateResponse{
		OK:      ok,
		Outcome: res.Outcome.String(),
		State:   res.State.State,
		Worker:  res.State.Worker,
	})
}

// writeError maps coordinator errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrUnknownChannel):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, types.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, types.ErrNotStarted):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
