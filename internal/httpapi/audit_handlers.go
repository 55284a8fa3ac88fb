package httpapi

import (
	"net/http"
	"strings"

	"warden.gg/internal/audit"
	"warden.gg/internal/auth"
)

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermAuditView); err != nil {
		handleAuthError(w, r, err)
		return
	}
	q := r.URL.Query()
	limit, err := parsePositiveInt(q.Get("limit"), 100, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.recorder.List(r.Context(), audit.Filter{
		AdminUserID: strings.TrimSpace(q.Get("admin_user_id")),
		Category:    audit.Category(strings.TrimSpace(q.Get("category"))),
		TargetType:  strings.TrimSpace(q.Get("target_type")),
		TargetID:    strings.TrimSpace(q.Get("target_id")),
		Limit:       limit,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
