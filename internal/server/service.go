package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service owns the HTTP listener. Binding happens explicitly in Start so a
// taken port surfaces as an error to the caller instead of killing the host
// process; the embedding side checks Running before trusting any data.
type Service struct {
	server *http.Server
	logger *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// NewService creates a service for the given bind address and handler.
func NewService(addr string, handler http.Handler, logger *zap.Logger) *Service {
	return &Service{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			IdleTimeout:  120 * time.Second,
			// No WriteTimeout: /events connections are long-lived.
		},
		logger: logger,
	}
}

// Start binds the listener and begins serving in the background. A bind
// failure returns a wrapped error and leaves the service not running.
func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.logger.Info("server listening", zap.String("addr", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", zap.Error(err))
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return nil
}

// Running reports whether the service is accepting connections.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound address, or "" before a successful Start. Useful
// when the configured port is 0.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains connections gracefully until ctx expires.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return s.server.Shutdown(ctx)
}
