package modaction

import (
	"errors"
	"strings"
	"time"
)

// Kind identifies a moderation action type. "unmute" is intentionally not
// a kind: unmuting reverses the most recent active mute instead of adding
// a parallel record (see Service.Unmute).
type Kind string

const (
	KindMute      Kind = "mute"
	KindWarn      Kind = "warn"
	KindRestrict  Kind = "restrict"
	KindBan       Kind = "ban"
	KindUnban     Kind = "unban"
	KindShadowban Kind = "shadowban"
	KindSuspend   Kind = "account_suspend"
	KindNote      Kind = "note"
)

var kinds = map[Kind]struct{}{
	KindMute: {}, KindWarn: {}, KindRestrict: {}, KindBan: {},
	KindUnban: {}, KindShadowban: {}, KindSuspend: {}, KindNote: {},
}

// ParseKind validates an action identifier received from the outside.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := kinds[k]; !ok {
		return "", ErrUnknownAction
	}
	return k, nil
}

// StandingRestriction reports whether an action of this kind represents a
// standing restriction (active at creation). Unban, warn and note are
// informational records, not restrictions.
func (k Kind) StandingRestriction() bool {
	switch k {
	case KindUnban, KindWarn, KindNote:
		return false
	}
	return true
}

// Reversible reports whether an action of this kind may be reversed.
func (k Kind) Reversible() bool {
	return k.StandingRestriction()
}

// Action is one discrete restriction or record imposed on a target user.
type Action struct {
	ID           string     `json:"id"`
	ModeratorID  string     `json:"moderator_id"`
	TargetUserID string     `json:"target_user_id"`
	Kind         Kind       `json:"action"`
	Reason       string     `json:"reason"`
	AdminNotes   string     `json:"admin_notes,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsPublic     bool       `json:"is_public"`
	IsReversible bool       `json:"is_reversible"`
	DurationHrs  int        `json:"duration_hours,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ReversedAt   *time.Time `json:"reversed_at,omitempty"`
	ReversedBy   string     `json:"reversed_by,omitempty"`
	ReverseNote  string     `json:"reverse_note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired reports whether a time-bound action has lapsed at now. Lapsed
// actions stay in storage; active-restriction queries filter them lazily.
func (a Action) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

var (
	ErrNotFound      = errors.New("modaction: not found")
	ErrUnknownAction = errors.New("modaction: unknown action")
	ErrInvalidState  = errors.New("modaction: invalid state")
	ErrInvalidInput  = errors.New("modaction: invalid input")
)

// Filter narrows List queries. Nil/zero fields match everything.
type Filter struct {
	TargetUserID string
	ModeratorID  string
	Kind         Kind
	Active       *bool
	Limit        int
}
