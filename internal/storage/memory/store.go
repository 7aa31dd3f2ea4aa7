package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
	"github.com/bcnelson/blackbox-target-manager/internal/storage"
)

// Store is an in-memory implementation of the storage interface.
// Entities are copied on the way in and out so callers never share
// memory with the store.
type Store struct {
	mu sync.RWMutex

	targets map[int64]*domain.Target
	probes  map[int64]*domain.Probe

	nextTargetID int64
	nextProbeID  int64

	now func() time.Time
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		targets: make(map[int64]*domain.Target),
		probes:  make(map[int64]*domain.Probe),
		now:     time.Now,
	}
}

func (s *Store) Close() error { return nil }

func copyTarget(t *domain.Target) *domain.Target {
	c := *t
	if t.Port != nil {
		p := *t.Port
		c.Port = &p
	}
	if t.LastStatusCode != nil {
		code := *t.LastStatusCode
		c.LastStatusCode = &code
	}
	if t.LastCheck != nil {
		at := *t.LastCheck
		c.LastCheck = &at
	}
	c.ProbeIDs = append([]int64(nil), t.ProbeIDs...)
	return &c
}

// CreateTarget stores target and writes the assigned id back into it.
func (s *Store) CreateTarget(ctx context.Context, target *domain.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTargetID++
	target.ID = s.nextTargetID
	target.LastUpdated = s.now().UTC()
	s.targets[target.ID] = copyTarget(target)
	return nil
}

func (s *Store) GetTarget(ctx context.Context, id int64) (*domain.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, exists := s.targets[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyTarget(t), nil
}

// ListTargets returns all targets ordered by id.
func (s *Store) ListTargets(ctx context.Context) ([]*domain.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	targets := make([]*domain.Target, 0, len(s.targets))
	for _, t := range s.targets {
		targets = append(targets, copyTarget(t))
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].ID < targets[j].ID
	})
	return targets, nil
}

// ModifyTarget runs fn on a copy of target id under the write lock.
// fn must not call back into the store.
func (s *Store) ModifyTarget(ctx context.Context, id int64, fn func(t *domain.Target) error) (*domain.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.targets[id]
	if !exists {
		return nil, domain.ErrNotFound
	}

	next := copyTarget(current)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.LastStatus = current.LastStatus
	next.LastStatusCode = current.LastStatusCode
	next.LastCheck = current.LastCheck
	next.LastUpdated = s.now().UTC()

	s.targets[id] = next
	return copyTarget(next), nil
}

func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.targets[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.targets, id)
	return nil
}

func (s *Store) UpdateTargetStatus(ctx context.Context, id int64, status domain.Status, code *int, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, exists := s.targets[id]
	if !exists {
		return domain.ErrNotFound
	}
	t.LastStatus = status
	t.LastStatusCode = nil
	if code != nil {
		c := *code
		t.LastStatusCode = &c
	}
	at := checkedAt.UTC()
	t.LastCheck = &at
	return nil
}

func (s *Store) CreateProbe(ctx context.Context, probe *domain.Probe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProbeID++
	probe.ID = s.nextProbeID
	probe.LastUpdated = s.now().UTC()
	p := *probe
	s.probes[p.ID] = &p
	return nil
}

// ListProbes returns all probes ordered by id.
func (s *Store) ListProbes(ctx context.Context) ([]*domain.Probe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	probes := make([]*domain.Probe, 0, len(s.probes))
	for _, p := range s.probes {
		c := *p
		probes = append(probes, &c)
	}
	sort.Slice(probes, func(i, j int) bool {
		return probes[i].ID < probes[j].ID
	})
	return probes, nil
}

func (s *Store) CountProbes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.probes), nil
}
