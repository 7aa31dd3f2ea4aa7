package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
	"github.com/bcnelson/blackbox-target-manager/internal/service"
)

// TargetHandler handles target endpoints.
type TargetHandler struct {
	svc    *service.TargetService
	logger *zap.Logger
}

// NewTargetHandler creates a new TargetHandler.
func NewTargetHandler(svc *service.TargetService, logger *zap.Logger) *TargetHandler {
	return &TargetHandler{svc: svc, logger: logger}
}

// List lists targets, filtered by the optional q search parameter.
func (h *TargetHandler) List(w http.ResponseWriter, r *http.Request) {
	targets, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleError(w, err)
		return
	}
	if targets == nil {
		targets = []*domain.Target{}
	}
	respondJSON(w, http.StatusOK, targets)
}

// Create creates a new target.
func (h *TargetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.TargetFields
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := h.svc.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	setTargetETag(w, target)
	respondJSON(w, http.StatusCreated, target)
}

// Get gets a target by id.
func (h *TargetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	target, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	setTargetETag(w, target)
	respondJSON(w, http.StatusOK, target)
}

// Update changes the fields present in the request body. An If-Match
// header is compared with the target's current ETag in the same step
// that writes it.
func (h *TargetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	var req domain.TargetPatch
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var currentETag string
	target, err := h.svc.Update(r.Context(), id, req, func(current *domain.Target) error {
		currentETag = targetETag(current)
		if !checkTargetIfMatch(r, current) {
			return domain.ErrPreconditionFailed
		}
		return nil
	})
	if errors.Is(err, domain.ErrPreconditionFailed) {
		w.Header().Set("ETag", currentETag)
		respondError(w, http.StatusPreconditionFailed, "target has been modified")
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}

	setTargetETag(w, target)
	respondJSON(w, http.StatusOK, target)
}

// Delete deletes a target.
func (h *TargetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &domain.MessageResponse{Message: "Target deleted successfully"})
}

// UpdateStatus records a probe result for a target.
func (h *TargetHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	var req domain.StatusReport
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.ReportStatus(r.Context(), id, req); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &domain.MessageResponse{Message: "Status updated successfully"})
}

// Batch applies one operation to several targets.
func (h *TargetHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Operation == "" {
		respondError(w, http.StatusBadRequest, "operation is required")
		return
	}

	result, err := h.svc.Batch(r.Context(), req)
	if err != nil {
		if !errors.Is(err, domain.ErrNoTargets) {
			h.logger.Warn("batch_rejected", zap.String("operation", string(req.Operation)), zap.Error(err))
		}
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Statistics returns inventory counts.
func (h *TargetHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
