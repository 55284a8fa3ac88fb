package httpapi

import (
	"net/http"
	"strings"

	"warden.gg/internal/audit"
	"warden.gg/internal/auth"
	"warden.gg/internal/modaction"
)

type createActionRequest struct {
	TargetUserID  string `json:"target_user_id"`
	Action        string `json:"action"`
	Reason        string `json:"reason"`
	AdminNotes    string `json:"admin_notes"`
	DurationHours int    `json:"duration_hours"`
	IsPublic      bool   `json:"is_public"`
}

type reverseActionRequest struct {
	Reason string `json:"reason"`
}

// kindPermission maps each action kind to the permission that gates it.
var kindPermission = map[modaction.Kind]string{
	modaction.KindMute:      auth.PermUsersMute,
	modaction.KindWarn:      auth.PermUsersWarn,
	modaction.KindRestrict:  auth.PermUsersRestrict,
	modaction.KindBan:       auth.PermUsersBan,
	modaction.KindUnban:     auth.PermUsersBan,
	modaction.KindShadowban: auth.PermUsersShadowban,
	modaction.KindSuspend:   auth.PermUsersSuspend,
	modaction.KindNote:      auth.PermUsersNote,
}

func (a *API) handleActionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAction(w, r)
	case http.MethodGet:
		a.listActions(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleActionResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/moderation/actions/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getAction(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "reverse":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.reverseAction(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createAction(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := modaction.ParseKind(req.Action)
	if err != nil {
		handleActionError(w, r, err)
		return
	}
	grant, err := a.guard.RequirePermission(r.Context(), kindPermission[kind])
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	req.TargetUserID = strings.TrimSpace(req.TargetUserID)
	if req.TargetUserID == "" {
		writeError(w, r, http.StatusBadRequest, "target_user_id is required")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, r, http.StatusBadRequest, "reason is required")
		return
	}
	if req.DurationHours < 0 {
		writeError(w, r, http.StatusBadRequest, "duration_hours must be >= 0")
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("user", req.TargetUserID)
	action, err := a.actions.Create(r.Context(), grant.UserID, req.TargetUserID, kind, req.Reason, modaction.CreateParams{
		DurationHours: req.DurationHours,
		IsPublic:      req.IsPublic,
		AdminNotes:    req.AdminNotes,
	})
	if err != nil {
		handleActionError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/moderation/actions/"+action.ID)
	writeJSON(w, http.StatusCreated, action)
}

func (a *API) getAction(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueView); err != nil {
		handleAuthError(w, r, err)
		return
	}
	action, err := a.actions.Get(r.Context(), id)
	if err != nil {
		handleActionError(w, r, err)
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("moderation_action", action.ID)
	writeJSON(w, http.StatusOK, action)
}

func (a *API) reverseAction(w http.ResponseWriter, r *http.Request, id string) {
	grant, err := a.guard.RequireAnyPermission(r.Context(),
		auth.PermUsersMute, auth.PermUsersRestrict, auth.PermUsersBan)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req reverseActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("moderation_action", id)
	action, err := a.actions.Reverse(r.Context(), id, grant.UserID, req.Reason)
	if err != nil {
		handleActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (a *API) unmuteUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	grant, err := a.guard.RequirePermission(r.Context(), auth.PermUsersMute)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req reverseActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("user", userID)
	action, err := a.actions.Unmute(r.Context(), userID, grant.UserID, req.Reason)
	if err != nil {
		handleActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (a *API) listActions(w http.ResponseWriter, r *http.Request) {
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueView); err != nil {
		handleAuthError(w, r, err)
		return
	}
	q := r.URL.Query()
	limit, err := parsePositiveInt(q.Get("limit"), 100, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	f := modaction.Filter{
		TargetUserID: strings.TrimSpace(q.Get("target_user_id")),
		ModeratorID:  strings.TrimSpace(q.Get("moderator_id")),
		Limit:        limit,
	}
	if raw := strings.TrimSpace(q.Get("action")); raw != "" {
		f.Kind = modaction.Kind(raw)
	}
	if raw := strings.TrimSpace(q.Get("active")); raw != "" {
		active := raw == "true"
		f.Active = &active
	}
	actions, err := a.actions.List(r.Context(), f)
	if err != nil {
		handleActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": actions})
}

func (a *API) listRestrictions(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueView); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("user", userID)
	active, err := a.actions.ActiveForUser(r.Context(), userID)
	if err != nil {
		handleActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": active})
}
