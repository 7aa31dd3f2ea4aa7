package storage

import (
	"context"
	"time"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// Storage defines the interface for the backend's storage layer.
// Implementations must be safe for concurrent use and must never reuse
// a target id once assigned.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Targets
	CreateTarget(ctx context.Context, target *domain.Target) error
	GetTarget(ctx context.Context, id int64) (*domain.Target, error)
	ListTargets(ctx context.Context) ([]*domain.Target, error)
	// ModifyTarget applies fn to target id atomically and returns the
	// stored result. The last_status fields are never written by it; an
	// error from fn leaves the target unchanged.
	ModifyTarget(ctx context.Context, id int64, fn func(t *domain.Target) error) (*domain.Target, error)
	DeleteTarget(ctx context.Context, id int64) error
	UpdateTargetStatus(ctx context.Context, id int64, status domain.Status, code *int, checkedAt time.Time) error

	// Probes
	CreateProbe(ctx context.Context, probe *domain.Probe) error
	ListProbes(ctx context.Context) ([]*domain.Probe, error)
	CountProbes(ctx context.Context) (int, error)
}
