package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
)

// Engine is the part of the policy engine the HTTP API drives.
type Engine interface {
	Armed(ctx context.Context) bool
	SetArmed(ctx context.Context, actor *domain.Actor, armed bool) bool
	ArmAfter(ctx context.Context, actor *domain.Actor, delay time.Duration) bool
	RequestCaptures(ctx context.Context)
}

// Options configures the HTTP API.
type Options struct {
	// ListenAddress is the bind address.
	ListenAddress string
	// SigningSecret verifies slash commands.
	SigningSecret string
	// SignatureTolerance is the accepted timestamp skew.
	SignatureTolerance time.Duration
	// FrontPassword gates the wall panel.
	FrontPassword string
	// ArmDelay is announced by the arm-delayed command.
	ArmDelay time.Duration
	// Metrics is served on /metrics and counts rejections. Optional.
	Metrics *metrics.Metrics
	// Now overrides the clock for signature checks.
	Now func() time.Time
}

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server is the HTTP API of the bridge.
type Server struct {
	// engine applies commands.
	engine Engine
	// opts holds the settings.
	opts Options
	// router dispatches requests.
	router *mux.Router
}

// New creates the server and registers every route.
func New(engine Engine, opts Options) *Server {
	s := &Server{
		engine: engine,
		opts:   opts,
		router: mux.NewRouter(),
	}

	s.router.Use(recovery, logging)

	commands := s.router.PathPrefix("/command").Subrouter()
	commands.Use(s.signed)
	commands.HandleFunc("/arm", s.handleArm).Methods(http.MethodPost)
	commands.HandleFunc("/disarm", s.handleDisarm).Methods(http.MethodPost)
	commands.HandleFunc("/arm-delayed", s.handleArmDelayed).Methods(http.MethodPost)
	commands.HandleFunc("/status", s.handleCommandStatus).Methods(http.MethodPost)
	commands.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodPost)

	wall := s.router.NewRoute().Subrouter()
	wall.Use(s.authorized)
	wall.HandleFunc("/status", s.handleWallStatus).Methods(http.MethodGet)
	wall.HandleFunc("/enable", s.handleWallSet(true)).Methods(http.MethodPost)
	wall.HandleFunc("/disable", s.handleWallSet(false)).Methods(http.MethodPost)

	s.router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	logger.InfoKV(ctx, "HTTP server listening", "listen_address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

func (s *Server) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now()
	}

	return time.Now()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	//nolint:errchkjson // A failed write means the client is gone.
	_ = json.NewEncoder(w).Encode(payload)
}
