// Package server provides the local HTTP and WebSocket surface for the
// Akshara browser UI.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kataras/golog"

	"github.com/ayusman/akshara/internal/backend"
	"github.com/ayusman/akshara/internal/server/api"
	"github.com/ayusman/akshara/internal/store"
	"github.com/ayusman/akshara/internal/tracker"
)

var (
	logger = golog.Child("[server]")
	json   = jsoniter.ConfigCompatibleWithStandardLibrary
)

// DefaultCursorInterval is the snapshot push interval of the cursor socket.
const DefaultCursorInterval = 33 * time.Millisecond

// Tracker is the tracker surface the server exposes.
type Tracker interface {
	api.Tracker
	SetEnabled(enabled bool)
	Preview() []byte
	OnSelection(fn func(tracker.Selection))
}

// DeliveryStats reports progress delivery counters.
type DeliveryStats interface {
	Stats() backend.ReporterStats
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Tracker   Tracker
	Reporter  DeliveryStats
	// CursorInterval defaults to DefaultCursorInterval.
	CursorInterval time.Duration
}

// Server represents the HTTP server for the Akshara daemon.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *CursorHub
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.CursorInterval <= 0 {
		config.CursorInterval = DefaultCursorInterval
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		levels := api.NewLevelHandler(s.config.Store)
		s.mux.Handle("/api/levels", levels)
		s.mux.Handle("/api/levels/", levels)

		attempts := api.NewAttemptHandler(s.config.Store)
		s.mux.Handle("/api/attempts", attempts)
		s.mux.Handle("/api/attempts/", attempts)
	}

	if t := s.config.Tracker; t != nil {
		s.hub = NewCursorHub(t.Snapshot, s.config.CursorInterval)
		t.OnSelection(s.hub.Selection)

		s.mux.HandleFunc("/api/cursor", s.handleCursor)
		s.mux.Handle("/api/cursor/ws", s.hub)
		s.mux.HandleFunc("/api/tracking", s.handleTracking)
		s.mux.Handle("/api/stream", NewStreamHandler(t.Preview))

		game := api.NewGameHandler(s.config.Store, t)
		s.mux.Handle("/api/game", game)
		s.mux.Handle("/api/game/", game)

		if s.config.Store != nil {
			s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store, t))

			calibration := api.NewCalibrationHandler(s.config.Store, t)
			s.mux.Handle("/api/calibration", calibration)
			s.mux.Handle("/api/calibration/", calibration)
		}
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status   string                 `json:"status"`
	Uptime   string                 `json:"uptime"`
	Tracking *trackingStatus        `json:"tracking,omitempty"`
	Delivery *backend.ReporterStats `json:"delivery,omitempty"`
	Clients  int                    `json:"clients"`
}

type trackingStatus struct {
	Running bool   `json:"running"`
	Enabled bool   `json:"enabled"`
	Error   string `json:"error,omitempty"`
}

// handleHealth handles GET requests to /api/health. A tracker that failed to
// start reports "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Tracker != nil {
		snap := s.config.Tracker.Snapshot()
		resp.Tracking = &trackingStatus{Running: snap.Running, Enabled: snap.Enabled, Error: snap.Error}
		if snap.Error != "" {
			resp.Status = "degraded"
		}
	}
	if s.config.Reporter != nil {
		st := s.config.Reporter.Stats()
		resp.Delivery = &st
	}
	if s.hub != nil {
		resp.Clients = s.hub.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCursor returns the current snapshot for clients that poll.
func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.Tracker.Snapshot())
}

type trackingRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleTracking pauses or resumes tracking: PUT {"enabled": false}.
func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req trackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		http.Error(w, `Body must be {"enabled": bool}`, http.StatusBadRequest)
		return
	}
	s.config.Tracker.SetEnabled(*req.Enabled)
	logger.Infof("tracking enabled=%v via api", *req.Enabled)
	writeJSON(w, http.StatusOK, s.config.Tracker.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnf("encode response: %v", err)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// disconnects every cursor client.
func (s *Server) Run(ctx context.Context, addr string) error {
	// Streams run until their request context ends, so shutdown cancels the
	// base context rather than waiting on them.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	cancelBase()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the cursor broadcaster and disconnects its clients.
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
}
