package console

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
	"github.com/bcnelson/blackbox-target-manager/internal/validation"
)

// Backend is the write side of the targets API.
type Backend interface {
	CreateTarget(ctx context.Context, fields domain.TargetFields) (*domain.Target, error)
	UpdateTarget(ctx context.Context, id int64, fields domain.TargetFields) (*domain.Target, error)
	DeleteTarget(ctx context.Context, id int64) error
	Batch(ctx context.Context, req domain.BatchRequest) (*domain.BatchResult, error)
}

// Refresher reloads the target cache after a mutation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// TargetError is the failure of one id within a multi-target operation.
type TargetError struct {
	ID  int64
	Err error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %d: %v", e.ID, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// DeleteResult reports the outcome of DeleteTargets per id.
type DeleteResult struct {
	Deleted []int64
	Failed  map[int64]error
}

// Err combines the per-id failures, in id order, or returns nil.
func (r *DeleteResult) Err() error {
	ids := make([]int64, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	var err error
	for _, id := range ids {
		err = multierr.Append(err, &TargetError{ID: id, Err: r.Failed[id]})
	}
	return err
}

// Gateway issues mutations against the backend. Input is validated
// before any request is sent, and every successful mutation is followed
// by a full refresh; entities are never patched locally.
type Gateway struct {
	backend   Backend
	refresher Refresher
	store     *Store
	logger    *zap.Logger
}

// NewGateway creates a new Gateway.
func NewGateway(backend Backend, refresher Refresher, store *Store, logger *zap.Logger) *Gateway {
	return &Gateway{
		backend:   backend,
		refresher: refresher,
		store:     store,
		logger:    logger,
	}
}

// CreateTarget validates fields and creates a target.
func (g *Gateway) CreateTarget(ctx context.Context, fields domain.TargetFields) (*domain.Target, error) {
	fields = fields.Normalized()
	if err := validation.ValidateTargetFields(fields).Err(); err != nil {
		return nil, err
	}

	target, err := g.backend.CreateTarget(ctx, fields)
	if err != nil {
		g.logger.Warn("console_create_failed", zap.String("hostname", fields.Hostname), zap.Error(err))
		return nil, err
	}

	g.logger.Info("console_target_created", zap.Int64("id", target.ID), zap.String("hostname", target.Hostname))
	g.refresh(ctx, "create")
	return target, nil
}

// UpdateTarget validates fields and replaces target id. The request is
// sent even when nothing changed.
func (g *Gateway) UpdateTarget(ctx context.Context, id int64, fields domain.TargetFields) (*domain.Target, error) {
	fields = fields.Normalized()
	if err := validation.ValidateTargetFields(fields).Err(); err != nil {
		return nil, err
	}

	target, err := g.backend.UpdateTarget(ctx, id, fields)
	if err != nil {
		g.logger.Warn("console_update_failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	g.logger.Info("console_target_updated", zap.Int64("id", id))
	g.refresh(ctx, "update")
	return target, nil
}

// DeleteTargets deletes every named target. A single id goes through the
// single-target endpoint, several ids through one batch request. Either
// way an id that could not be deleted is reported on its own in the
// result without stopping the others. The returned error combines the
// per-id failures. A batch clears the selection; a single delete only
// deselects its id.
func (g *Gateway) DeleteTargets(ctx context.Context, ids []int64) (*DeleteResult, error) {
	if err := validation.ValidateTargetIDs(ids); err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)
	result := &DeleteResult{Failed: make(map[int64]error)}

	if len(ids) == 1 {
		id := ids[0]
		if err := g.backend.DeleteTarget(ctx, id); err != nil {
			result.Failed[id] = err
		} else {
			result.Deleted = append(result.Deleted, id)
		}
	} else {
		res, err := g.backend.Batch(ctx, domain.BatchRequest{Operation: domain.BatchDelete, TargetIDs: ids})
		if err != nil {
			for _, id := range ids {
				result.Failed[id] = err
			}
		} else {
			missing := make(map[int64]bool, len(res.MissingIDs))
			for _, id := range res.MissingIDs {
				missing[id] = true
			}
			for _, id := range ids {
				if missing[id] {
					result.Failed[id] = domain.ErrNotFound
					continue
				}
				result.Deleted = append(result.Deleted, id)
			}
		}
	}

	g.logger.Info("console_targets_deleted",
		zap.Int64s("deleted", result.Deleted),
		zap.Int("failed", len(result.Failed)),
	)
	if len(result.Deleted) > 0 {
		if len(ids) > 1 {
			g.store.ClearSelection()
		} else {
			g.store.Deselect(result.Deleted...)
		}
		g.refresh(ctx, "delete")
	}
	return result, result.Err()
}

// BatchSetEnabled enables or disables every named target in one request.
// An empty id list is rejected without contacting the backend.
func (g *Gateway) BatchSetEnabled(ctx context.Context, ids []int64, enabled bool) (*domain.BatchResult, error) {
	if err := validation.ValidateTargetIDs(ids); err != nil {
		return nil, err
	}

	op := domain.BatchDisable
	if enabled {
		op = domain.BatchEnable
	}
	res, err := g.backend.Batch(ctx, domain.BatchRequest{Operation: op, TargetIDs: uniqueIDs(ids)})
	if err != nil {
		g.logger.Warn("console_batch_failed", zap.String("operation", string(op)), zap.Error(err))
		return nil, err
	}

	g.logger.Info("console_batch_applied",
		zap.String("operation", string(op)),
		zap.Int("affected", res.AffectedCount),
		zap.Int64s("missing_ids", res.MissingIDs),
	)
	g.store.ClearSelection()
	g.refresh(ctx, string(op))
	return res, nil
}

// refresh reloads the cache after a successful mutation. A failed or
// superseded refresh is logged; the mutation itself already succeeded.
func (g *Gateway) refresh(ctx context.Context, after string) {
	err := g.refresher.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSuperseded):
		g.logger.Debug("console_refresh_after_mutation_superseded", zap.String("after", after))
	default:
		g.logger.Warn("console_refresh_after_mutation_failed", zap.String("after", after), zap.Error(err))
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
