// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"time"

	"github.com/modikodi/bridge/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Janitor periodically removes expired entries from a store.
type Janitor interface {
	Name() string
	RunJanitor(ctx context.Context, interval time.Duration)
}

// App owns the long-lived runtime: the server manager and one janitor per store.
type App struct {
	logger        zerolog.Logger
	manager       Manager
	janitors      []Janitor
	sweepInterval time.Duration
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, sweepInterval time.Duration, janitors ...Janitor) *App {
	return &App{
		logger:        logger,
		manager:       manager,
		janitors:      janitors,
		sweepInterval: sweepInterval,
	}
}

// Run starts the janitors and the server and blocks until ctx is cancelled
// or the server fails. Janitors stop together with the server.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, j := range a.janitors {
		g.Go(func() error {
			a.logger.Debug().
				Str(log.FieldEvent, "janitor.started").
				Str("store", j.Name()).
				Dur("interval", a.sweepInterval).
				Msg("store janitor running")
			j.RunJanitor(gctx, a.sweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	return g.Wait()
}
