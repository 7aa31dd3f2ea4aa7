package console

import (
	"context"
	"sync"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// fakeAPI is an in-process backend that counts every call.
type fakeAPI struct {
	mu sync.Mutex

	targets []*domain.Target
	probes  []*domain.Probe
	nextID  int64

	listErr  error
	probeErr error
	writeErr error
	batchRes *domain.BatchResult

	listCalls   int
	probeCalls  int
	createCalls int
	updateCalls int
	deleteCalls int
	batchCalls  int
	lastBatch   domain.BatchRequest
}

func (f *fakeAPI) ListTargets(ctx context.Context, filter string) ([]*domain.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.Target, len(f.targets))
	for i, t := range f.targets {
		c := *t
		out[i] = &c
	}
	return out, nil
}

func (f *fakeAPI) ListProbes(ctx context.Context) ([]*domain.Probe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.probes, nil
}

func (f *fakeAPI) CreateTarget(ctx context.Context, fields domain.TargetFields) (*domain.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.nextID++
	t := &domain.Target{ID: f.nextID}
	fields.Apply(t)
	f.targets = append(f.targets, t)
	return t, nil
}

func (f *fakeAPI) UpdateTarget(ctx context.Context, id int64, fields domain.TargetFields) (*domain.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	for _, t := range f.targets {
		if t.ID == id {
			fields.Apply(t)
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) DeleteTarget(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.writeErr != nil {
		return f.writeErr
	}
	for i, t := range f.targets {
		if t.ID == id {
			f.targets = append(f.targets[:i], f.targets[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeAPI) Batch(ctx context.Context, req domain.BatchRequest) (*domain.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.lastBatch = req
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if f.batchRes != nil {
		return f.batchRes, nil
	}
	res := &domain.BatchResult{Message: "ok"}
	for _, id := range req.TargetIDs {
		found := false
		for i, t := range f.targets {
			if t.ID != id {
				continue
			}
			found = true
			switch req.Operation {
			case domain.BatchDelete:
				f.targets = append(f.targets[:i], f.targets[i+1:]...)
			case domain.BatchEnable:
				t.Enabled = true
			case domain.BatchDisable:
				t.Enabled = false
			}
			break
		}
		if found {
			res.AffectedCount++
		} else {
			res.MissingIDs = append(res.MissingIDs, id)
		}
	}
	return res, nil
}

func (f *fakeAPI) seed(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.targets = append(f.targets, &domain.Target{ID: id, Hostname: "h", Enabled: true})
		if id > f.nextID {
			f.nextID = id
		}
	}
}

func (f *fakeAPI) calls() (list, create, update, del, batch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.createCalls, f.updateCalls, f.deleteCalls, f.batchCalls
}

// countingRefresher counts refreshes and optionally fails them.
type countingRefresher struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func (r *countingRefresher) n() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (f *fakeAPI) GetTarget(ctx context.Context, id int64) (*domain.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.targets {
		if t.ID == id {
			c := *t
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) Statistics(ctx context.Context) (*domain.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.Statistics{Total: len(f.targets)}
	for _, t := range f.targets {
		if t.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
	}
	return stats, nil
}

func (f *fakeAPI) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listErr
}
