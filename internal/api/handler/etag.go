package handler

import (
	"fmt"
	"net/http"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// targetETag is derived from the target id and its last update.
// Format: "target-<id>-<last_updated_unix_nano>"
func targetETag(t *domain.Target) string {
	return fmt.Sprintf(`"target-%d-%d"`, t.ID, t.LastUpdated.UnixNano())
}

func setTargetETag(w http.ResponseWriter, t *domain.Target) {
	w.Header().Set("ETag", targetETag(t))
}

// checkTargetIfMatch reports whether the request may modify t.
// Requests without an If-Match header are always allowed.
func checkTargetIfMatch(r *http.Request, t *domain.Target) bool {
	ifMatch := r.Header.Get("If-Match")
	if ifMatch == "" {
		return true
	}
	return ifMatch == targetETag(t)
}
