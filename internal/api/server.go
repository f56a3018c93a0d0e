package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"cutagent/internal/logging"
)

// Server is the local HTTP API.
type Server struct {
	bind     string
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer builds a Server around NewRouter(cfg).
func NewServer(cfg ServerConfig) *Server {
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	return &Server{
		bind:   cfg.Bind,
		logger: logging.NewComponentLogger(cfg.Logger, "api"),
		server: &http.Server{
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Executions can run for as long as the encode timeout allows.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// Serve handles requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
