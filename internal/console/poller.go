package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Poller runs a task on a fixed interval. It has a single owner handle:
// Start cancels any loop already running before starting a new one, and
// Stop is safe to call at any time, any number of times.
type Poller struct {
	interval time.Duration
	task     func(ctx context.Context) error
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// loops counts running loop goroutines.
	loops atomic.Int32
}

// NewPoller creates a stopped Poller.
func NewPoller(interval time.Duration, task func(ctx context.Context) error, logger *zap.Logger) *Poller {
	return &Poller{
		interval: interval,
		task:     task,
		logger:   logger,
	}
}

// Start begins polling until ctx is done or Stop is called. The first
// run happens one interval after Start.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.loops.Add(1)
	go p.run(ctx, done)
	p.logger.Info("console_poller_started", zap.Duration("interval", p.interval))
}

// Stop cancels the running loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopLocked() {
		p.logger.Info("console_poller_stopped")
	}
}

// Running reports whether a loop is active.
func (p *Poller) Running() bool {
	return p.loops.Load() > 0
}

func (p *Poller) stopLocked() bool {
	if p.cancel == nil {
		return false
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	return true
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.loops.Add(-1)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	err := p.task(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		p.logger.Debug("console_poll_skipped", zap.Error(err))
	default:
		// Poll failures are never surfaced to the user.
		p.logger.Warn("console_poll_failed", zap.Error(err))
	}
}
