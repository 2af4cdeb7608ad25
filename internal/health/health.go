// Package health exposes agent liveness over the standard gRPC health
// protocol so sibling agents can probe whether dictation is active.
package health

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/leia/internal/fsm"
)

// ServiceName is the named health service agents query; the empty
// overall service carries the same status.
const ServiceName = "leia"

// Server wraps the stock gRPC health service with session lifecycle.
// An empty address disables the surface entirely.
type Server struct {
	logger *slog.Logger
	addr   string

	mu        sync.Mutex
	grpc      *grpc.Server
	hs        *health.Server
	boundAddr string
	last      healthpb.HealthCheckResponse_ServingStatus
	started   bool
}

// NewServer builds a health server for the configured listen address.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, addr: strings.TrimSpace(addr)}
}

// Enabled reports whether an address is configured.
func (s *Server) Enabled() bool { return s.addr != "" }

// Addr returns the bound listen address, empty until Start succeeds.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// Start begins serving in the background. Disabled servers return nil
// immediately. The surface starts out SERVING to match the initial
// listening state.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addr == "" {
		s.logger.Debug("health surface disabled")
		return nil
	}
	if s.started {
		return errors.New("health surface already started")
	}

	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen health %q: %w", s.addr, err)
	}

	s.grpc = grpc.NewServer()
	s.hs = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.hs)
	s.setStatusLocked(healthpb.HealthCheckResponse_SERVING)
	s.boundAddr = lis.Addr().String()
	s.started = true

	server := s.grpc
	go func() {
		if err := server.Serve(lis); err != nil {
			s.logger.Error("health surface serve failed", "error", err)
		}
	}()

	s.logger.Info("health surface listening", "addr", s.boundAddr)
	return nil
}

// SetState mirrors listening state onto the surface: SERVING only while
// actively listening, NOT_SERVING while paused or stopped.
func (s *Server) SetState(state fsm.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == fsm.StateListening {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || status == s.last {
		return
	}
	s.setStatusLocked(status)
	s.logger.Debug("health status changed", "status", status.String())
}

func (s *Server) setStatusLocked(status healthpb.HealthCheckResponse_ServingStatus) {
	s.last = status
	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(ServiceName, status)
}

// Stop marks every service NOT_SERVING and drains open RPCs. Safe to
// call on a disabled or already stopped server.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	server := s.grpc
	hs := s.hs
	s.mu.Unlock()

	hs.Shutdown()
	server.GracefulStop()
	s.logger.Info("health surface stopped")
}
