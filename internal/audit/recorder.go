package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"warden.gg/internal/ids"
	"warden.gg/internal/obs"
)

// UnknownActor is recorded when the request carried no authenticated
// identity (for example a rejected or anonymous call).
const UnknownActor = "unknown"

// Category buckets a response by its status-code class.
type Category string

const (
	CategorySuccess     Category = "success"
	CategoryClientError Category = "client_error"
	CategoryAuthReject  Category = "auth_rejected"
	CategoryRateLimited Category = "rate_limited"
	CategoryServerError Category = "server_error"
)

// CategoryForStatus maps an HTTP status to its audit category.
func CategoryForStatus(status int) Category {
	switch {
	case status == 401 || status == 403:
		return CategoryAuthReject
	case status == 429:
		return CategoryRateLimited
	case status >= 500:
		return CategoryServerError
	case status >= 400:
		return CategoryClientError
	default:
		return CategorySuccess
	}
}

// Entry is one append-only audit record of a privileged request.
type Entry struct {
	ID          string    `json:"id"`
	AdminUserID string    `json:"admin_user_id"`
	Action      string    `json:"action"`
	Category    Category  `json:"category"`
	TargetType  string    `json:"target_type,omitempty"`
	TargetID    string    `json:"target_id,omitempty"`
	Status      int       `json:"status"`
	Parameters  []byte    `json:"parameters,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows List queries.
type Filter struct {
	AdminUserID string
	Category    Category
	TargetType  string
	TargetID    string
	Limit       int
}

var (
	ErrNotFound     = errors.New("audit: not found")
	ErrInvalidInput = errors.New("audit: invalid input")
)

// Store persists audit entries. There is no update or delete.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// Recorder builds and persists audit entries. Persistence is best
// effort: a storage failure is logged and swallowed so it can never
// fail the response it describes.
type Recorder struct {
	store Store
	now   func() time.Time
}

// Option configures Recorder behavior.
type Option func(*Recorder)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a recorder over the given store.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Params carries the raw request material for one audit entry. Query,
// Body and Response hold decoded JSON values; they are sanitized before
// persistence.
type Params struct {
	AdminUserID string
	Method      string
	Path        string
	Status      int
	TargetType  string
	TargetID    string
	Query       any
	Body        any
	Response    any
	IPAddress   string
}

// Record sanitizes and persists one entry. It never returns an error to
// the caller; storage failures go to the fallback log channel.
func (r *Recorder) Record(ctx context.Context, p Params) {
	actor := strings.TrimSpace(p.AdminUserID)
	if actor == "" {
		actor = UnknownActor
	}
	params := map[string]any{}
	if p.Query != nil {
		params["query"] = Sanitize(p.Query)
	}
	if p.Body != nil {
		params["body"] = Sanitize(p.Body)
	}
	if p.Response != nil {
		params["response"] = Sanitize(p.Response)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte(`{"marshal_error":true}`)
	}
	entry := Entry{
		ID:          ids.New(),
		AdminUserID: actor,
		Action:      p.Method + " " + p.Path,
		Category:    CategoryForStatus(p.Status),
		TargetType:  p.TargetType,
		TargetID:    p.TargetID,
		Status:      p.Status,
		Parameters:  raw,
		IPAddress:   p.IPAddress,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.store.Append(ctx, &entry); err != nil {
		obs.LogRequest(map[string]any{
			"type":   "audit_append_failed",
			"action": entry.Action,
			"actor":  entry.AdminUserID,
			"error":  err.Error(),
		})
	}
}

// List queries stored entries, newest first, default limit 100 capped
// at 500.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return r.store.List(ctx, f)
}
