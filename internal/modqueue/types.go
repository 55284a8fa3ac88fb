package modqueue

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ItemType classifies a unit of triage work.
type ItemType string

const (
	TypeReport     ItemType = "report"
	TypeAutoFlag   ItemType = "auto_flag"
	TypeAppeal     ItemType = "appeal"
	TypeBanEvasion ItemType = "ban_evasion"
)

var itemTypes = map[ItemType]struct{}{
	TypeReport: {}, TypeAutoFlag: {}, TypeAppeal: {}, TypeBanEvasion: {},
}

// ParseItemType validates a type identifier received from the outside.
func ParseItemType(raw string) (ItemType, error) {
	t := ItemType(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := itemTypes[t]; !ok {
		return "", ErrUnknownType
	}
	return t, nil
}

// Status is the triage lifecycle state:
// open -> assigned -> in_progress -> {completed | skipped}.
type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Priority bounds for queue items.
const (
	MinPriority = 1
	MaxPriority = 10
)

// Item is one unit of moderator triage work.
type Item struct {
	ID                string     `json:"id"`
	ItemType          ItemType   `json:"item_type"`
	Status            Status     `json:"status"`
	Priority          int        `json:"priority"`
	AssignedModerator string     `json:"assigned_moderator,omitempty"`
	ReportedUserID    string     `json:"reported_user_id,omitempty"`
	ContentRef        string     `json:"content_ref,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	Resolution        string     `json:"resolution,omitempty"`
	ActionTaken       string     `json:"action_taken,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

var (
	ErrNotFound     = errors.New("modqueue: not found")
	ErrUnknownType  = errors.New("modqueue: unknown item type")
	ErrInvalidInput = errors.New("modqueue: invalid input")
	// ErrInvalidState marks an illegal lifecycle transition. Use
	// NewStateError so the attempted and current states travel with it.
	ErrInvalidState = errors.New("modqueue: invalid state")
)

// StateError carries the attempted transition and the state that blocked it.
type StateError struct {
	Attempted Status
	Current   Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("modqueue: invalid state: cannot move %s item to %s", e.Current, e.Attempted)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// NewStateError builds the typed transition failure.
func NewStateError(current, attempted Status) error {
	return &StateError{Attempted: attempted, Current: current}
}

// Filter narrows List queries.
type Filter struct {
	Status    Status
	ItemType  ItemType
	Moderator string
	Limit     int
}
