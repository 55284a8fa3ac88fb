package httpapi

import (
	"net/http"
	"strings"

	"warden.gg/internal/audit"
	"warden.gg/internal/auth"
	"warden.gg/internal/modqueue"
)

type submitItemRequest struct {
	ItemType       string `json:"item_type"`
	Priority       int    `json:"priority"`
	ReportedUserID string `json:"reported_user_id"`
	ContentRef     string `json:"content_ref"`
	Reason         string `json:"reason"`
}

type assignItemRequest struct {
	ModeratorID string `json:"moderator_id"`
}

type bulkAssignRequest struct {
	ItemIDs     []string `json:"item_ids"`
	ModeratorID string   `json:"moderator_id"`
}

type autoAssignRequest struct {
	ItemType string `json:"item_type"`
}

type completeItemRequest struct {
	Resolution  string `json:"resolution"`
	ActionTaken string `json:"action_taken"`
}

type skipItemRequest struct {
	Reason string `json:"reason"`
}

type priorityRequest struct {
	Priority int `json:"priority"`
}

type escalateRequest struct {
	ThresholdHours int `json:"threshold_hours"`
}

func (a *API) handleQueueCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.submitItem(w, r)
	case http.MethodGet:
		a.listItems(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleQueueItemResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/queue/items/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	itemID := parts[0]
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getItem(w, r, itemID)
	case len(parts) == 2 && parts[1] == "assign":
		a.assignItem(w, r, itemID)
	case len(parts) == 2 && parts[1] == "start":
		a.startItem(w, r, itemID)
	case len(parts) == 2 && parts[1] == "complete":
		a.completeItem(w, r, itemID)
	case len(parts) == 2 && parts[1] == "skip":
		a.skipItem(w, r, itemID)
	case len(parts) == 2 && parts[1] == "priority":
		a.updatePriority(w, r, itemID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) submitItem(w http.ResponseWriter, r *http.Request) {
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueView); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req submitItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	itemType, err := modqueue.ParseItemType(req.ItemType)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	item, err := a.queue.Submit(r.Context(), itemType, modqueue.SubmitParams{
		Priority:       req.Priority,
		ReportedUserID: req.ReportedUserID,
		ContentRef:     req.ContentRef,
		Reason:         req.Reason,
	})
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("queue_item", item.ID)
	w.Header().Set("Location", "/v1/queue/items/"+item.ID)
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) getItem(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueView); err != nil {
		handleAuthError(w, r, err)
		return
	}
	item, err := a.queue.Get(r.Context(), id)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("queue_item", item.ID)
	writeJSON(w, http.StatusOK, item)
}

func (a *API) listItems(w http.ResponseWriter, r *http.Request) {
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
	f := modqueue.Filter{
		Status:    modqueue.Status(strings.TrimSpace(q.Get("status"))),
		ItemType:  modqueue.ItemType(strings.TrimSpace(q.Get("item_type"))),
		Moderator: strings.TrimSpace(q.Get("moderator")),
		Limit:     limit,
	}
	items, err := a.queue.List(r.Context(), f)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) assignItem(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueAssign); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req assignItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("queue_item", id)
	item, err := a.queue.Assign(r.Context(), id, req.ModeratorID)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleBulkAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueAssign); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req bulkAssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.ItemIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "item_ids are required")
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("moderator", req.ModeratorID)
	assigned, err := a.queue.BulkAssign(r.Context(), req.ItemIDs, req.ModeratorID)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assigned": assigned})
}

func (a *API) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueAssign); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req autoAssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	itemType := modqueue.ItemType(strings.TrimSpace(req.ItemType))
	assigned, err := a.queue.AutoAssign(r.Context(), itemType)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assigned": assigned})
}

func (a *API) startItem(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueResolve); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("queue_item", id)
	item, err := a.queue.Start(r.Context(), id)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) completeItem(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueResolve); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req completeItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("queue_item", id)
	item, err := a.queue.Complete(r.Context(), id, req.Resolution, req.ActionTaken)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) skipItem(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueResolve); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req skipItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("queue_item", id)
	item, err := a.queue.Skip(r.Context(), id, req.Reason)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) updatePriority(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueEscalate); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req priorityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	audit.CaptureFromContext(r.Context()).SetTarget("queue_item", id)
	item, err := a.queue.UpdatePriority(r.Context(), id, req.Priority)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) handleEscalate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueEscalate); err != nil {
		handleAuthError(w, r, err)
		return
	}
	var req escalateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	touched, err := a.queue.EscalateOverdue(r.Context(), req.ThresholdHours)
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"escalated": touched})
}

func (a *API) handleWorkload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, err := a.guard.RequirePermission(r.Context(), auth.PermQueueView); err != nil {
		handleAuthError(w, r, err)
		return
	}
	workload, err := a.queue.GetWorkload(r.Context(), strings.TrimSpace(r.URL.Query().Get("moderator")))
	if err != nil {
		handleQueueError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workload)
}
