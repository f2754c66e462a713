// SPDX-License-Identifier: MIT

// Package daemon owns the bridge process lifecycle: building the component
// graph, serving HTTP, running the store janitors and shutting down.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/modikodi/bridge/internal/log"
	"github.com/rs/zerolog"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured.
const DefaultShutdownTimeout = 10 * time.Second

// Manager runs the HTTP server.
type Manager interface {
	// Start serves until ctx is cancelled or the server fails, then shuts down.
	Start(ctx context.Context) error
	// Shutdown stops the server and runs the registered close hooks.
	Shutdown(ctx context.Context) error
}

// CloseHook releases a resource during shutdown.
type CloseHook struct {
	Name  string
	Close func(ctx context.Context) error
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// ServerManager is the Manager backed by net/http.
type ServerManager struct {
	cfg     ServerConfig
	handler http.Handler
	logger  zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	hooks    []CloseHook
	ready    chan struct{}
	shutOnce sync.Once
	shutErr  error
}

// NewManager validates its inputs and returns a ServerManager.
func NewManager(cfg ServerConfig, handler http.Handler, logger zerolog.Logger, hooks ...CloseHook) (*ServerManager, error) {
	if handler == nil {
		return nil, ErrMissingServer
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &ServerManager{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		hooks:   hooks,
		ready:   make(chan struct{}),
	}, nil
}

// Ready is closed once the listener is bound.
func (m *ServerManager) Ready() <-chan struct{} { return m.ready }

// Addr returns the bound listen address, or "" before Start.
func (m *ServerManager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Start binds the listener, serves, and shuts down when ctx is done.
func (m *ServerManager) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		return errors.Join(fmt.Errorf("%w: %w", ErrServerStartFailed, err), m.closeHooks(sctx))
	}

	srv := &http.Server{
		Handler:           m.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	m.mu.Lock()
	m.server = srv
	m.listener = ln
	m.mu.Unlock()
	close(m.ready)

	errChan := make(chan error, 1)
	go func() {
		m.logger.Info().
			Str(log.FieldEvent, "api.server.started").
			Str("addr", ln.Addr().String()).
			Msg("bridge listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str(log.FieldEvent, "api.server.failed").Msg("HTTP server failed")
			errChan <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := m.Shutdown(sctx); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Str(log.FieldEvent, "api.server.stopping").Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		return m.Shutdown(sctx)
	}
}

// Shutdown stops the server once and then runs every close hook in order.
func (m *ServerManager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown context is nil")
	}
	m.mu.Lock()
	srv := m.server
	m.mu.Unlock()
	if srv == nil {
		return ErrManagerNotStarted
	}

	m.shutOnce.Do(func() {
		var errs []error
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
		errs = append(errs, m.closeHooks(ctx))
		m.shutErr = errors.Join(errs...)
		m.logger.Info().Str(log.FieldEvent, "api.server.stopped").Msg("shutdown complete")
	})
	return m.shutErr
}

func (m *ServerManager) closeHooks(ctx context.Context) error {
	var errs []error
	for _, h := range m.hooks {
		if err := h.Close(ctx); err != nil {
			m.logger.Warn().Err(err).
				Str(log.FieldEvent, "shutdown.hook_failed").
				Str("hook", h.Name).
				Msg("close hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
		}
	}
	return errors.Join(errs...)
}
