package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// ErrSuperseded is returned by a refresh whose response arrived after a
// newer refresh had already been issued. Its result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// SyncError wraps a failed fetch. The store keeps its previous contents.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// TargetSource is the read side of the targets API.
type TargetSource interface {
	ListTargets(ctx context.Context, filter string) ([]*domain.Target, error)
	ListProbes(ctx context.Context) ([]*domain.Probe, error)
}

// SyncEngine fetches targets and probes and republishes them into the
// store. Every fetch is tagged with a sequence number when it is issued
// and its result is committed only if no newer fetch of the same kind
// has been issued since.
type SyncEngine struct {
	source TargetSource
	store  *Store
	logger *zap.Logger

	targetSeq atomic.Uint64
	probeSeq  atomic.Uint64
	commitMu  sync.Mutex

	filterMu sync.RWMutex
	filter   string
}

// NewSyncEngine creates a new SyncEngine.
func NewSyncEngine(source TargetSource, store *Store, logger *zap.Logger) *SyncEngine {
	return &SyncEngine{
		source: source,
		store:  store,
		logger: logger,
	}
}

// Filter returns the active search filter.
func (e *SyncEngine) Filter() string {
	e.filterMu.RLock()
	defer e.filterMu.RUnlock()
	return e.filter
}

// RefreshTargets makes filter the active search and reloads the target
// cache with the backend's matches.
func (e *SyncEngine) RefreshTargets(ctx context.Context, filter string) ([]*domain.Target, error) {
	filter = strings.TrimSpace(filter)
	e.filterMu.Lock()
	e.filter = filter
	e.filterMu.Unlock()
	return e.fetchTargets(ctx, filter)
}

// Refresh reloads the target cache using the active filter.
func (e *SyncEngine) Refresh(ctx context.Context) error {
	_, err := e.fetchTargets(ctx, e.Filter())
	return err
}

func (e *SyncEngine) fetchTargets(ctx context.Context, filter string) ([]*domain.Target, error) {
	seq := e.targetSeq.Add(1)

	targets, err := e.source.ListTargets(ctx, filter)
	if err != nil {
		return nil, &SyncError{Op: "targets", Err: err}
	}
	if targets == nil {
		targets = []*domain.Target{}
	}

	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	if seq != e.targetSeq.Load() {
		e.logger.Debug("console_refresh_discarded", zap.Uint64("seq", seq), zap.String("filter", filter))
		return nil, ErrSuperseded
	}
	e.store.SetTargets(targets)
	return targets, nil
}

// RefreshProbes reloads the probe cache.
func (e *SyncEngine) RefreshProbes(ctx context.Context) ([]*domain.Probe, error) {
	seq := e.probeSeq.Add(1)

	probes, err := e.source.ListProbes(ctx)
	if err != nil {
		return nil, &SyncError{Op: "probes", Err: err}
	}
	if probes == nil {
		probes = []*domain.Probe{}
	}

	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	if seq != e.probeSeq.Load() {
		return nil, ErrSuperseded
	}
	e.store.SetProbes(probes)
	return probes, nil
}
