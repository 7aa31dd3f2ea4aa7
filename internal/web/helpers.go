package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/blackbox-target-manager/internal/client"
	"github.com/bcnelson/blackbox-target-manager/internal/console"
	"github.com/bcnelson/blackbox-target-manager/internal/domain"
	"github.com/bcnelson/blackbox-target-manager/internal/validation"
)

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect finishes a form post by sending the browser back to the list
// with an optional flash notice in the query string.
func redirect(w http.ResponseWriter, r *http.Request, level, notice string) {
	target := "/"
	if notice != "" {
		target += "?" + url.Values{"level": {level}, "notice": {notice}}.Encode()
	}
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// flashFromQuery reads the notice left by redirect.
func flashFromQuery(r *http.Request) *FlashMessage {
	msg := r.URL.Query().Get("notice")
	if msg == "" {
		return nil
	}
	level := r.URL.Query().Get("level")
	if level != "success" {
		level = "error"
	}
	return &FlashMessage{Type: level, Message: msg}
}

// noticeFor turns a gateway or sync error into a user-facing message.
func noticeFor(err error) string {
	var (
		verrs validation.ValidationErrors
		verr  *validation.ValidationError
		te    *client.TransportError
		se    *client.ServerError
	)
	switch {
	case errors.As(err, &verrs):
		parts := make([]string, 0, len(verrs))
		for _, e := range verrs {
			parts = append(parts, e.Error())
		}
		return "Please fix: " + strings.Join(parts, "; ")
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &te):
		return "The targets backend is unreachable, please try again."
	case errors.As(err, &se):
		return se.Message
	default:
		return err.Error()
	}
}

// deleteNotice summarises a DeleteResult.
func deleteNotice(res *console.DeleteResult, err error) (level, notice string) {
	if err == nil {
		return "success", fmt.Sprintf("Deleted %d target(s).", len(res.Deleted))
	}
	if res == nil || len(res.Failed) == 0 {
		return "error", noticeFor(err)
	}
	failed := make([]string, 0, len(res.Failed))
	ids := make([]int64, 0, len(res.Failed))
	for id := range res.Failed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		msg := noticeFor(res.Failed[id])
		if errors.Is(res.Failed[id], domain.ErrNotFound) {
			msg = "not found"
		}
		failed = append(failed, fmt.Sprintf("#%d (%s)", id, msg))
	}
	return "error", fmt.Sprintf("Deleted %d target(s); failed: %s", len(res.Deleted), strings.Join(failed, ", "))
}

// urlID parses the {id} URL parameter.
func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseTargetForm overlays the submitted dialog fields on base. Keys the
// form did not send keep their base values. The aggregate probe option
// expands to every known probe.
func parseTargetForm(r *http.Request, base domain.TargetFields, probes []*domain.Probe) (domain.TargetFields, error) {
	if err := r.ParseForm(); err != nil {
		return base, validation.NewValidationError("form", "", "invalid form data")
	}

	f := base
	text := map[string]*string{
		"hostname":           &f.Hostname,
		"address":            &f.Address,
		"region":             &f.Region,
		"zone":               &f.Zone,
		"assignees":          &f.Assignees,
		"protocol":           &f.Protocol,
		"path":               &f.Path,
		"expect_status_code": &f.ExpectStatusCode,
	}
	for key, dst := range text {
		if _, ok := r.PostForm[key]; ok {
			*dst = r.PostFormValue(key)
		}
	}
	if _, ok := r.PostForm["probe_type"]; ok {
		f.ProbeType = domain.ProbeType(r.PostFormValue("probe_type"))
	}

	// The dialog sends a hidden "false" ahead of the checkbox.
	if values, ok := r.PostForm["enabled"]; ok {
		f.Enabled = false
		for _, v := range values {
			switch strings.ToLower(v) {
			case "true", "on", "1", "yes":
				f.Enabled = true
			}
		}
	}

	if _, ok := r.PostForm["port"]; ok {
		f.Port = nil
		if raw := strings.TrimSpace(r.PostFormValue("port")); raw != "" {
			port, err := strconv.Atoi(raw)
			if err != nil {
				return f, validation.NewValidationError("port", raw, "must be a number")
			}
			f.Port = &port
		}
	}
	if _, ok := r.PostForm["timeout"]; ok {
		f.Timeout = 0
		if raw := strings.TrimSpace(r.PostFormValue("timeout")); raw != "" {
			timeout, err := strconv.Atoi(raw)
			if err != nil {
				return f, validation.NewValidationError("timeout", raw, "must be a number")
			}
			f.Timeout = timeout
		}
	}

	if values, ok := r.PostForm["probe_ids"]; ok {
		seen := make(map[int64]bool)
		for _, raw := range values {
			if raw == AllProbesValue {
				for _, p := range probes {
					seen[p.ID] = true
				}
				continue
			}
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				seen[id] = true
			}
		}
		f.ProbeIDs = nil
		for id := range seen {
			f.ProbeIDs = append(f.ProbeIDs, id)
		}
		slices.Sort(f.ProbeIDs)
	}

	return f, nil
}
