// Package console keeps the admin console's view of the targets backend:
// a store of targets, probes and selection, a sync engine that reloads
// it, a gateway for mutations and a poller for background refreshes.
package console

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// Inspector reads single targets and summaries straight from the
// backend, bypassing the cache.
type Inspector interface {
	GetTarget(ctx context.Context, id int64) (*domain.Target, error)
	Statistics(ctx context.Context) (*domain.Statistics, error)
	Health(ctx context.Context) error
}

// API is everything the console needs from the targets backend.
type API interface {
	TargetSource
	Backend
	Inspector
}

// Console wires the store, sync engine, gateway and poller together.
// The console process holds a single Console.
type Console struct {
	Store   *Store
	Sync    *SyncEngine
	Gateway *Gateway
	Poller  *Poller

	api    API
	logger *zap.Logger
}

// New creates a Console. Polling does not start until StartPolling.
func New(api API, pollInterval time.Duration, logger *zap.Logger) *Console {
	store := NewStore()
	engine := NewSyncEngine(api, store, logger)
	c := &Console{
		Store:   store,
		Sync:    engine,
		Gateway: NewGateway(api, engine, store, logger),
		api:     api,
		logger:  logger,
	}
	c.Poller = NewPoller(pollInterval, engine.Refresh, logger)
	return c
}

// BootstrapOptions controls retries of the initial load.
type BootstrapOptions struct {
	Attempts uint
	Delay    time.Duration
}

// Bootstrap loads probes and targets concurrently, retrying the pair
// with backoff while the backend is unavailable.
func (c *Console) Bootstrap(ctx context.Context, opts BootstrapOptions) error {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	return retry.Do(
		func() error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				_, err := c.Sync.RefreshProbes(gctx)
				return err
			})
			g.Go(func() error {
				_, err := c.Sync.RefreshTargets(gctx, "")
				return err
			})
			return g.Wait()
		},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			c.logger.Warn("console_bootstrap_retry", zap.Uint("attempt", attempt+1), zap.Error(err))
		}),
	)
}

// LookupTarget fetches the current copy of target id from the backend.
func (c *Console) LookupTarget(ctx context.Context, id int64) (*domain.Target, error) {
	return c.api.GetTarget(ctx, id)
}

// Statistics fetches inventory counts from the backend.
func (c *Console) Statistics(ctx context.Context) (*domain.Statistics, error) {
	return c.api.Statistics(ctx)
}

// BackendHealth reports whether the backend answers its health check.
func (c *Console) BackendHealth(ctx context.Context) error {
	return c.api.Health(ctx)
}

// StartPolling starts, or restarts, background refreshes.
func (c *Console) StartPolling(ctx context.Context) {
	c.Poller.Start(ctx)
}

// Close stops background work.
func (c *Console) Close() {
	c.Poller.Stop()
}
