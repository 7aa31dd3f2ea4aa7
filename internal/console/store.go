package console

import (
	"slices"
	"sync"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// Snapshot is a point-in-time copy of the store. The slices and map are
// owned by the snapshot; the entities they point to must not be modified.
type Snapshot struct {
	Targets  []*domain.Target
	Probes   []*domain.Probe
	Selected map[int64]bool
}

// IsSelected reports whether id is in the selection set.
func (s Snapshot) IsSelected(id int64) bool {
	return s.Selected[id]
}

// HasSelection reports whether the selection set is non-empty.
func (s Snapshot) HasSelection() bool {
	return len(s.Selected) > 0
}

// SelectedIDs returns the selection in ascending order.
func (s Snapshot) SelectedIDs() []int64 {
	ids := make([]int64, 0, len(s.Selected))
	for id := range s.Selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// AllSelected reports whether every cached target is selected.
func (s Snapshot) AllSelected() bool {
	return len(s.Targets) > 0 && len(s.Selected) == len(s.Targets)
}

// Store holds the target cache, the probe cache and the selection set.
// The selection is always a subset of the cached target ids.
// Subscribers are called after every change, outside the lock.
type Store struct {
	mu       sync.Mutex
	targets  []*domain.Target
	index    map[int64]*domain.Target
	probes   []*domain.Probe
	selected map[int64]bool

	subs    map[int]func(Snapshot)
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index:    make(map[int64]*domain.Target),
		selected: make(map[int64]bool),
		subs:     make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	selected := make(map[int64]bool, len(s.selected))
	for id := range s.selected {
		selected[id] = true
	}
	return Snapshot{
		Targets:  slices.Clone(s.targets),
		Probes:   slices.Clone(s.probes),
		Selected: selected,
	}
}

// SetTargets replaces the target cache and drops selected ids that are
// no longer present.
func (s *Store) SetTargets(targets []*domain.Target) {
	s.update(func() bool {
		s.targets = slices.Clone(targets)
		s.index = make(map[int64]*domain.Target, len(targets))
		for _, t := range targets {
			s.index[t.ID] = t
		}
		for id := range s.selected {
			if _, ok := s.index[id]; !ok {
				delete(s.selected, id)
			}
		}
		return true
	})
}

// SetProbes replaces the probe cache.
func (s *Store) SetProbes(probes []*domain.Probe) {
	s.update(func() bool {
		s.probes = slices.Clone(probes)
		return true
	})
}

// ToggleSelection flips id in the selection set. Ids that are not in
// the target cache are ignored. It returns whether id is now selected.
func (s *Store) ToggleSelection(id int64) bool {
	var now bool
	s.update(func() bool {
		if _, ok := s.index[id]; !ok {
			return false
		}
		if s.selected[id] {
			delete(s.selected, id)
		} else {
			s.selected[id] = true
		}
		now = s.selected[id]
		return true
	})
	return now
}

// SelectAll selects every cached target, or clears the selection when
// selected is false.
func (s *Store) SelectAll(selected bool) {
	s.update(func() bool {
		clear(s.selected)
		if selected {
			for id := range s.index {
				s.selected[id] = true
			}
		}
		return true
	})
}

// Deselect removes ids from the selection set.
func (s *Store) Deselect(ids ...int64) {
	s.update(func() bool {
		changed := false
		for _, id := range ids {
			if s.selected[id] {
				delete(s.selected, id)
				changed = true
			}
		}
		return changed
	})
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection() {
	s.SelectAll(false)
}

// Selected returns the selected ids in ascending order.
func (s *Store) Selected() []int64 {
	return s.Snapshot().SelectedIDs()
}

// HasSelection reports whether any target is selected.
func (s *Store) HasSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected) > 0
}

// Target returns the cached target with the given id.
func (s *Store) Target(id int64) (*domain.Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.index[id]
	return t, ok
}

// Subscribe registers fn to be called with a snapshot after every change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// update runs mutate under the lock and notifies subscribers if it
// reports a change.
func (s *Store) update(mutate func() bool) {
	s.mu.Lock()
	if !mutate() {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
