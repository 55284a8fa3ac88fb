package httpapi

import (
	"net/http"
	"strings"
	"time"

	"warden.gg/internal/auth"
)

type tokenRequest struct {
	UserID     string `json:"user_id"`
	TTLMinutes int    `json:"ttl_minutes"`
}

// handleTokenMint issues a development bearer token for a user id. The
// token carries identity only; permissions are always resolved from the
// assignment store per request.
func (a *API) handleTokenMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	ttl := time.Duration(req.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	if ttl > 24*time.Hour {
		writeError(w, r, http.StatusBadRequest, "ttl_minutes must be at most 1440")
		return
	}
	token, err := auth.GenerateToken(req.UserID, ttl)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(ttl.Seconds()),
	})
}
