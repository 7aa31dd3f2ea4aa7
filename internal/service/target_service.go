package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
	"github.com/bcnelson/blackbox-target-manager/internal/query"
	"github.com/bcnelson/blackbox-target-manager/internal/storage"
	"github.com/bcnelson/blackbox-target-manager/internal/validation"
)

// TargetService holds the backend's target business logic.
type TargetService struct {
	store  storage.Storage
	logger *zap.Logger
	now    func() time.Time
}

// NewTargetService creates a new TargetService.
func NewTargetService(store storage.Storage, logger *zap.Logger) *TargetService {
	return &TargetService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureDefaultProbes seeds the default probes into an empty store.
func (s *TargetService) EnsureDefaultProbes(ctx context.Context) error {
	n, err := s.store.CountProbes(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, p := range domain.DefaultProbes() {
		p := p
		if err := s.store.CreateProbe(ctx, &p); err != nil {
			return fmt.Errorf("seeding probe %q: %w", p.Name, err)
		}
	}
	s.logger.Info("probes_seeded", zap.Int("count", len(domain.DefaultProbes())))
	return nil
}

// ListProbes returns every probe.
func (s *TargetService) ListProbes(ctx context.Context) ([]*domain.Probe, error) {
	return s.store.ListProbes(ctx)
}

// Search returns the targets matching the search string q.
func (s *TargetService) Search(ctx context.Context, q string) ([]*domain.Target, error) {
	targets, err := s.store.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	parsed := query.Parse(q)
	if len(parsed.Unknown) > 0 {
		s.logger.Debug("search_unknown_keys", zap.Strings("keys", parsed.Unknown))
	}
	return parsed.Filter(targets), nil
}

// Get returns a single target.
func (s *TargetService) Get(ctx context.Context, id int64) (*domain.Target, error) {
	return s.store.GetTarget(ctx, id)
}

// Create validates fields and stores a new target.
func (s *TargetService) Create(ctx context.Context, fields domain.TargetFields) (*domain.Target, error) {
	fields = fields.Normalized()
	if err := validation.ValidateTargetFields(fields).Err(); err != nil {
		return nil, err
	}
	known, err := s.probeSet(ctx)
	if err != nil {
		return nil, err
	}
	fields.ProbeIDs = filterProbeIDs(fields.ProbeIDs, known)

	t := &domain.Target{}
	fields.Apply(t)
	if err := s.store.CreateTarget(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("target_created", zap.Int64("id", t.ID), zap.String("hostname", t.Hostname))
	return t, nil
}

// Update applies patch to target id. Keys absent from patch keep their
// stored values. precondition, when set, runs against the current target
// inside the same atomic step and aborts the update with its error.
func (s *TargetService) Update(ctx context.Context, id int64, patch domain.TargetPatch, precondition func(*domain.Target) error) (*domain.Target, error) {
	known, err := s.probeSet(ctx)
	if err != nil {
		return nil, err
	}

	t, err := s.store.ModifyTarget(ctx, id, func(t *domain.Target) error {
		if precondition != nil {
			if err := precondition(t); err != nil {
				return err
			}
		}
		fields, err := patch.Merge(t.Fields())
		if err != nil {
			return err
		}
		fields = fields.Normalized()
		if err := validation.ValidateTargetFields(fields).Err(); err != nil {
			return err
		}
		fields.ProbeIDs = filterProbeIDs(fields.ProbeIDs, known)
		fields.Apply(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("target_updated", zap.Int64("id", t.ID))
	return t, nil
}

// Delete removes target id.
func (s *TargetService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTarget(ctx, id); err != nil {
		return err
	}
	s.logger.Info("target_deleted", zap.Int64("id", id))
	return nil
}

// ReportStatus records the outcome of a probe run.
func (s *TargetService) ReportStatus(ctx context.Context, id int64, report domain.StatusReport) error {
	return s.store.UpdateTargetStatus(ctx, id, report.Status.Normalize(), report.StatusCode, s.now())
}

// Batch applies one operation to many targets, each id in its own atomic
// step. Ids that do not exist are reported in MissingIDs while the rest
// are still applied. It fails with domain.ErrNoTargets only when none of
// the ids exist.
func (s *TargetService) Batch(ctx context.Context, req domain.BatchRequest) (*domain.BatchResult, error) {
	if err := validation.ValidateTargetIDs(req.TargetIDs); err != nil {
		return nil, err
	}
	if !req.Operation.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedOperation, req.Operation)
	}

	var patch func(t *domain.Target)
	if req.Operation == domain.BatchUpdate {
		if len(req.Fields) == 0 {
			return nil, fmt.Errorf("%w: update requires fields", domain.ErrUnsupportedOperation)
		}
		p, err := fieldPatch(req.Fields)
		if err != nil {
			return nil, err
		}
		patch = p
	}

	var (
		affected int
		missing  []int64
		seen     = make(map[int64]bool, len(req.TargetIDs))
	)
	for _, id := range req.TargetIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		var err error
		switch req.Operation {
		case domain.BatchDelete:
			err = s.store.DeleteTarget(ctx, id)
		default:
			_, err = s.store.ModifyTarget(ctx, id, func(t *domain.Target) error {
				switch req.Operation {
				case domain.BatchEnable:
					t.Enabled = true
				case domain.BatchDisable:
					t.Enabled = false
				case domain.BatchUpdate:
					patch(t)
				}
				return nil
			})
		}
		if errors.Is(err, domain.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		affected++
	}
	if affected == 0 {
		return nil, domain.ErrNoTargets
	}

	s.logger.Info("batch_applied",
		zap.String("operation", string(req.Operation)),
		zap.Int("affected", affected),
		zap.Int64s("missing_ids", missing),
	)

	return &domain.BatchResult{
		Message:       fmt.Sprintf("Batch %s successful", req.Operation),
		AffectedCount: affected,
		MissingIDs:    missing,
	}, nil
}

// fieldPatch turns a batch update's field map into a setter. Unknown keys
// and values of the wrong type are rejected before anything is written.
func fieldPatch(fields map[string]any) (func(t *domain.Target), error) {
	var setters []func(t *domain.Target)
	for key, raw := range fields {
		if key == "enabled" {
			b, ok := raw.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: enabled must be a boolean", domain.ErrInvalidInput)
			}
			setters = append(setters, func(t *domain.Target) { t.Enabled = b })
			continue
		}
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", domain.ErrInvalidInput, key)
		}
		v = strings.TrimSpace(v)
		if v == "" && key != "assignees" {
			return nil, validation.NewValidationError(key, v, "is required")
		}
		switch key {
		case "hostname":
			setters = append(setters, func(t *domain.Target) { t.Hostname = v })
		case "address":
			setters = append(setters, func(t *domain.Target) { t.Address = v })
		case "region":
			setters = append(setters, func(t *domain.Target) { t.Region = v })
		case "zone":
			setters = append(setters, func(t *domain.Target) { t.Zone = v })
		case "probe_type":
			pt := domain.ProbeType(strings.ToUpper(v))
			setters = append(setters, func(t *domain.Target) { t.ProbeType = pt })
		case "assignees":
			setters = append(setters, func(t *domain.Target) { t.Assignees = v })
		default:
			return nil, fmt.Errorf("%w: field %q cannot be batch updated", domain.ErrInvalidInput, key)
		}
	}
	return func(t *domain.Target) {
		for _, set := range setters {
			set(t)
		}
	}, nil
}

// probeSet returns the ids of every probe.
func (s *TargetService) probeSet(ctx context.Context) (map[int64]bool, error) {
	probes, err := s.store.ListProbes(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(probes))
	for _, p := range probes {
		known[p.ID] = true
	}
	return known, nil
}

// filterProbeIDs drops ids that name no probe.
func filterProbeIDs(ids []int64, known map[int64]bool) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

// Statistics summarises the inventory by state, type and region.
func (s *TargetService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	targets, err := s.store.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.Statistics{
		Total:    len(targets),
		ByStatus: make(map[string]int),
		ByType:   make(map[string]int),
		ByRegion: make(map[string]int),
	}
	for _, t := range targets {
		if t.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		if t.LastStatus != domain.StatusUnknown {
			stats.ByStatus[string(t.LastStatus)]++
		}
		if t.ProbeType != "" {
			stats.ByType[string(t.ProbeType)]++
		}
		if t.Region != "" {
			stats.ByRegion[t.Region]++
		}
	}
	return stats, nil
}

var protocolAliases = map[string][]string{
	"icmp": {"icmp", "ping"},
	"http": {"http", "web", "url"},
	"tcp":  {"tcp", "socket"},
}

// PrometheusTargets renders enabled targets for the given blackbox
// module as a Prometheus HTTP service discovery document.
func (s *TargetService) PrometheusTargets(ctx context.Context, protocol string) ([]domain.SDGroup, error) {
	targets, err := s.store.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	protocol = strings.ToLower(protocol)
	needles, ok := protocolAliases[protocol]
	if !ok {
		needles = []string{protocol}
	}

	groups := make([]domain.SDGroup, 0)
	for _, t := range targets {
		if !t.Enabled {
			continue
		}
		probeType := strings.ToLower(string(t.ProbeType))
		matched := false
		for _, n := range needles {
			if strings.Contains(probeType, n) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		addr := t.Address
		if protocol == "tcp" && t.Port != nil {
			addr = fmt.Sprintf("%s:%d", t.Address, *t.Port)
		}
		groups = append(groups, domain.SDGroup{
			Targets: []string{addr},
			Labels: map[string]string{
				"id":        strconv.FormatInt(t.ID, 10),
				"hostname":  t.Hostname,
				"module":    protocol,
				"region":    t.Region,
				"assignees": t.Assignees,
				"job":       "blackbox_" + protocol,
			},
		})
	}
	s.logger.Debug("prometheus_sd", zap.String("protocol", protocol), zap.Int("targets", len(groups)))
	return groups, nil
}
