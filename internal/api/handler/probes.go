package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
	"github.com/bcnelson/blackbox-target-manager/internal/service"
)

// ProbeHandler handles probe and service discovery endpoints.
type ProbeHandler struct {
	svc *service.TargetService
}

// NewProbeHandler creates a new ProbeHandler.
func NewProbeHandler(svc *service.TargetService) *ProbeHandler {
	return &ProbeHandler{svc: svc}
}

// List lists every probe.
func (h *ProbeHandler) List(w http.ResponseWriter, r *http.Request) {
	probes, err := h.svc.ListProbes(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if probes == nil {
		probes = []*domain.Probe{}
	}
	respondJSON(w, http.StatusOK, probes)
}

// Prometheus serves enabled targets of one blackbox module in the
// Prometheus HTTP service discovery format.
func (h *ProbeHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.PrometheusTargets(r.Context(), chi.URLParam(r, "protocol"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}
