package httpapi

import (
	"net/http"
	"strings"
	"time"

	"warden.gg/internal/audit"
	"warden.gg/internal/auth"
)

type assignRoleRequest struct {
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	Notes       string     `json:"notes"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// handleUserScoped dispatches /v1/users/{id}/... subresources: roles,
// permissions, unmute, restrictions.
func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]
	if len(parts) < 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch parts[1] {
	case "roles":
		switch len(parts) {
		case 2:
			a.assignRole(w, r, userID)
		case 3:
			a.revokeRole(w, r, userID, parts[2])
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
	case "permissions":
		if len(parts) != 2 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.listPermissions(w, r, userID)
	case "unmute":
		if len(parts) != 2 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.unmuteUser(w, r, userID)
	case "restrictions":
		if len(parts) != 2 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.listRestrictions(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	grant, err := a.guard.RequirePermission(r.Context(), auth.PermRolesAssign)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("user", userID)
	assignment, err := a.guard.AssignRole(r.Context(), auth.RoleAssignment{
		UserID:      userID,
		Role:        req.Role,
		Permissions: req.Permissions,
		AssignedBy:  grant.UserID,
		Notes:       req.Notes,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (a *API) revokeRole(w http.ResponseWriter, r *http.Request, userID, role string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermRolesRevoke); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("user", userID)
	if err := a.guard.RevokeRole(r.Context(), userID, role); err != nil {
		handleAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listPermissions(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, err := a.guard.RequireAdmin(r.Context()); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("user", userID)
	perms, err := a.guard.EffectivePermissions(r.Context(), userID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"permissions": perms,
	})
}
