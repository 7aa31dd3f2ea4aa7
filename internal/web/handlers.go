package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/client"
	"github.com/bcnelson/blackbox-target-manager/internal/console"
	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// handleHealth reports liveness and whether the backend answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backend := "ok"
	if err := s.console.BackendHealth(r.Context()); err != nil {
		s.logger.Warn("backend_health_failed", zap.Error(err))
		backend = "unreachable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "backend": backend})
}

// handleIndex renders the console page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, nil)
}

// handleSearch makes q the active filter and reloads the list. On
// failure the previous list stays on screen with a notice.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	_, err := s.console.Sync.RefreshTargets(r.Context(), r.URL.Query().Get("q"))
	if err != nil && !errors.Is(err, console.ErrSuperseded) {
		s.logger.Warn("console_search_failed", zap.Error(err))
		redirect(w, r, "error", "Search failed: "+noticeFor(err))
		return
	}
	if isHTMX(r) {
		s.renderFragment(w, tmplListSurface, s.table())
		return
	}
	redirect(w, r, "", "")
}

// handleRefresh reloads probes and targets on demand.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.console.Sync.RefreshProbes(ctx); err != nil && !errors.Is(err, console.ErrSuperseded) {
		redirect(w, r, "error", "Refresh failed: "+noticeFor(err))
		return
	}
	if err := s.console.Sync.Refresh(ctx); err != nil && !errors.Is(err, console.ErrSuperseded) {
		redirect(w, r, "error", "Refresh failed: "+noticeFor(err))
		return
	}
	redirect(w, r, "", "")
}

// handleTable renders just the list surface.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	s.renderFragment(w, tmplListSurface, s.table())
}

// handleTargetForm renders the add dialog.
func (s *Server) handleTargetForm(w http.ResponseWriter, r *http.Request) {
	form := NewFormView(nil, s.console.Store.Snapshot().Probes)
	s.renderForm(w, r, &form)
}

// handleTargetEditForm renders the edit dialog pre-filled from the
// backend's current copy of the target.
func (s *Server) handleTargetEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		s.renderError(w, "Invalid target id", http.StatusBadRequest)
		return
	}
	target, err := s.console.LookupTarget(r.Context(), id)
	if client.IsNotFound(err) {
		s.renderError(w, "Target not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.renderError(w, noticeFor(err), http.StatusBadGateway)
		return
	}
	form := NewFormView(target, s.console.Store.Snapshot().Probes)
	s.renderForm(w, r, &form)
}

// handleTargetCreate creates a target from the add dialog.
func (s *Server) handleTargetCreate(w http.ResponseWriter, r *http.Request) {
	fields, err := parseTargetForm(r, domain.TargetFields{}, s.console.Store.Snapshot().Probes)
	if err != nil {
		redirect(w, r, "error", noticeFor(err))
		return
	}
	t, err := s.console.Gateway.CreateTarget(r.Context(), fields)
	if err != nil {
		redirect(w, r, "error", noticeFor(err))
		return
	}
	redirect(w, r, "success", fmt.Sprintf("Target %s created.", t.Hostname))
}

// handleTargetUpdate saves the edit dialog on top of the backend's
// current copy, so fields the dialog does not show are kept.
func (s *Server) handleTargetUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		s.renderError(w, "Invalid target id", http.StatusBadRequest)
		return
	}
	current, err := s.console.LookupTarget(r.Context(), id)
	if err != nil {
		redirect(w, r, "error", noticeFor(err))
		return
	}
	fields, err := parseTargetForm(r, current.Fields(), s.console.Store.Snapshot().Probes)
	if err != nil {
		redirect(w, r, "error", noticeFor(err))
		return
	}
	t, err := s.console.Gateway.UpdateTarget(r.Context(), id, fields)
	if err != nil {
		redirect(w, r, "error", noticeFor(err))
		return
	}
	redirect(w, r, "success", fmt.Sprintf("Target %s updated.", t.Hostname))
}

// handleTargetDelete deletes a single target.
func (s *Server) handleTargetDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		s.renderError(w, "Invalid target id", http.StatusBadRequest)
		return
	}
	res, err := s.console.Gateway.DeleteTargets(r.Context(), []int64{id})
	level, notice := deleteNotice(res, err)
	redirect(w, r, level, notice)
}

// handleSelectionToggle flips one row's checkbox.
func (s *Server) handleSelectionToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		s.renderError(w, "Invalid target id", http.StatusBadRequest)
		return
	}
	s.console.Store.ToggleSelection(id)
	s.selectionDone(w, r)
}

// handleSelectAll selects every listed target.
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	s.console.Store.SelectAll(true)
	s.selectionDone(w, r)
}

// handleSelectionClear empties the selection.
func (s *Server) handleSelectionClear(w http.ResponseWriter, r *http.Request) {
	s.console.Store.ClearSelection()
	s.selectionDone(w, r)
}

func (s *Server) selectionDone(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		s.renderFragment(w, tmplListSurface, s.table())
		return
	}
	redirect(w, r, "", "")
}

// handleBatch applies enable, disable or delete to the selection.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ids := s.console.Store.Selected()
	ctx := r.Context()

	switch op := chi.URLParam(r, "op"); op {
	case "enable", "disable":
		res, err := s.console.Gateway.BatchSetEnabled(ctx, ids, op == "enable")
		if err != nil {
			redirect(w, r, "error", noticeFor(err))
			return
		}
		notice := fmt.Sprintf("%d target(s) %sd.", res.AffectedCount, op)
		if len(res.MissingIDs) > 0 {
			notice += fmt.Sprintf(" %d no longer existed.", len(res.MissingIDs))
		}
		redirect(w, r, "success", notice)
	case "delete":
		res, err := s.console.Gateway.DeleteTargets(ctx, ids)
		level, notice := deleteNotice(res, err)
		redirect(w, r, level, notice)
	default:
		s.renderError(w, "Unknown batch operation", http.StatusNotFound)
	}
}

// table builds the list view from the current store.
func (s *Server) table() TableView {
	return BuildTable(s.console.Store.Snapshot(), s.console.Sync.Filter())
}

// renderPage renders the full console page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, form *FormView) {
	data := PageData{
		Title: "Targets",
		Flash: flashFromQuery(r),
		Table: s.table(),
		Form:  form,
	}
	if stats, err := s.console.Statistics(r.Context()); err == nil {
		data.Stats = stats
	} else {
		s.logger.Debug("statistics_unavailable", zap.Error(err))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, tmplPage, data); err != nil {
		s.logger.Error("render_failed", zap.String("template", tmplPage), zap.Error(err))
	}
}

// renderForm renders the dialog alone for htmx, or inside the page.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, form *FormView) {
	if isHTMX(r) {
		s.renderFragment(w, tmplModalSurface, form)
		return
	}
	s.renderPage(w, r, form)
}

// renderFragment renders a single named template.
func (s *Server) renderFragment(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	out, err := s.renderer.Fragment(name, data)
	if err != nil {
		s.logger.Error("render_failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Write(out)
}

// renderError renders an error message.
func (s *Server) renderError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`<div class="flash flash-error">` + template.HTMLEscapeString(message) + `</div>`))
}
