// Package server serves the HTTP API and the gRPC health service on one port.
// cmux sniffs each connection: HTTP/2 with content-type application/grpc goes
// to the gRPC server, everything else to net/http.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Config holds the HTTP timeouts. Zero values take net/http defaults.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server owns both listeners. Create it with New, run it with Serve or
// ListenAndServe, and stop it with Shutdown.
type Server struct {
	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	mux      cmux.CMux
	closing  atomic.Bool
}

// New builds a Server around handler. The gRPC side exposes
// grpc.health.v1.Health and server reflection.
func New(handler http.Handler, cfg Config, logger *slog.Logger) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{
		http: &http.Server{
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		grpc:   gs,
		health: hs,
		logger: logger,
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.logger.Info("server listening", "addr", l.Addr().String())
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown is called or one of the
// servers fails. It returns nil after a clean shutdown.
func (s *Server) Serve(l net.Listener) error {
	m := cmux.New(l)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	s.mu.Lock()
	s.listener = l
	s.mux = m
	s.mu.Unlock()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var g errgroup.Group
	g.Go(func() error {
		return s.watch("grpc", s.grpc.Serve(grpcL))
	})
	g.Go(func() error {
		err := s.http.Serve(httpL)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return s.watch("http", err)
	})
	g.Go(func() error {
		return s.watch("cmux", m.Serve())
	})
	return g.Wait()
}

// watch turns an unexpected serve error into a full stop so Serve returns.
func (s *Server) watch(name string, err error) error {
	if err == nil || s.closing.Load() {
		return nil
	}
	s.stop()
	return fmt.Errorf("server: %s: %w", name, err)
}

func (s *Server) stop() {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	s.closeMux()
	s.grpc.Stop()
	_ = s.http.Close()
}

// closeMux stops accepting connections. The matched listeners only unblock
// once the mux is closed, and grpc.Server waits for its Serve to return, so
// this must run before the gRPC server is stopped.
func (s *Server) closeMux() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mux != nil {
		s.mux.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// Shutdown reports NOT_SERVING to health checkers, closes the listener and
// drains in-flight HTTP requests and gRPC calls. gRPC calls still running
// when ctx expires are cut off.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	s.health.Shutdown()
	s.closeMux()

	err := s.http.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}

	if err != nil {
		return fmt.Errorf("server: http shutdown: %w", err)
	}
	return nil
}

// WatchReadiness runs ping every interval until ctx is done and mirrors the
// result into the gRPC health status, so probes see the database state.
func (s *Server) WatchReadiness(ctx context.Context, ping func(context.Context) error, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.closing.Load() {
			return
		}

		pingCtx, cancel := context.WithTimeout(ctx, interval)
		err := ping(pingCtx)
		cancel()

		switch {
		case err != nil && serving:
			s.logger.Warn("server: readiness check failed", "error", err)
			s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			serving = false
		case err == nil && !serving:
			s.logger.Info("server: readiness restored")
			s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			serving = true
		}
	}
}
