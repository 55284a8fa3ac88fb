package modaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warden.gg/internal/ids"
)

// Service is the moderation-action ledger: it creates, reverses and
// queries discrete restriction/record actions against users.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the ledger over a store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the optional fields of a new action.
type CreateParams struct {
	DurationHours int
	IsPublic      bool
	AdminNotes    string
}

// Create records a new moderation action. A positive duration sets
// expires_at = now + duration hours; informational kinds (unban, warn,
// note) are created inactive.
func (s *Service) Create(ctx context.Context, moderatorID, targetUserID string, kind Kind, reason string, p CreateParams) (Action, error) {
	moderatorID = strings.TrimSpace(moderatorID)
	targetUserID = strings.TrimSpace(targetUserID)
	if moderatorID == "" || targetUserID == "" {
		return Action{}, fmt.Errorf("%w: moderator_id and target_user_id are required", ErrInvalidInput)
	}
	if _, ok := kinds[kind]; !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Action{}, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if p.DurationHours < 0 {
		return Action{}, fmt.Errorf("%w: duration must be >= 0", ErrInvalidInput)
	}

	now := s.now().UTC()
	action := Action{
		ID:           ids.New(),
		ModeratorID:  moderatorID,
		TargetUserID: targetUserID,
		Kind:         kind,
		Reason:       reason,
		AdminNotes:   strings.TrimSpace(p.AdminNotes),
		IsActive:     kind.StandingRestriction(),
		IsPublic:     p.IsPublic,
		IsReversible: kind.Reversible(),
		DurationHrs:  p.DurationHours,
		CreatedAt:    now,
	}
	if p.DurationHours > 0 {
		exp := now.Add(time.Duration(p.DurationHours) * time.Hour)
		action.ExpiresAt = &exp
	}
	if err := s.store.Create(ctx, &action); err != nil {
		return Action{}, err
	}
	return action, nil
}

// Reverse undoes a standing action. An action can be reversed at most
// once and only while is_active and is_reversible both hold.
func (s *Service) Reverse(ctx context.Context, actionID, reversedBy, reason string) (Action, error) {
	actionID = strings.TrimSpace(actionID)
	reversedBy = strings.TrimSpace(reversedBy)
	if actionID == "" || reversedBy == "" {
		return Action{}, fmt.Errorf("%w: action_id and reversed_by are required", ErrInvalidInput)
	}
	action, err := s.store.Find(ctx, actionID)
	if err != nil {
		return Action{}, err
	}
	if !action.IsReversible {
		return Action{}, fmt.Errorf("%w: action %s is not reversible", ErrInvalidState, action.Kind)
	}
	if !action.IsActive {
		return Action{}, fmt.Errorf("%w: action already reversed or inactive", ErrInvalidState)
	}

	at := s.now().UTC()
	ok, err := s.store.MarkReversed(ctx, actionID, reversedBy, strings.TrimSpace(reason), at)
	if err != nil {
		return Action{}, err
	}
	if !ok {
		// Lost a race with a concurrent reverser.
		return Action{}, fmt.Errorf("%w: action already reversed or inactive", ErrInvalidState)
	}
	updated, err := s.store.Find(ctx, actionID)
	if err != nil {
		return Action{}, err
	}
	return *updated, nil
}

// Unmute reverses the target's most recent active mute. There is no
// stored "unmute" kind; restriction state stays consistent with what was
// actually imposed.
func (s *Service) Unmute(ctx context.Context, targetUserID, reversedBy, reason string) (Action, error) {
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return Action{}, fmt.Errorf("%w: target_user_id is required", ErrInvalidInput)
	}
	active, err := s.store.ActiveByTarget(ctx, targetUserID)
	if err != nil {
		return Action{}, err
	}
	now := s.now().UTC()
	for _, a := range active {
		if a.Kind == KindMute && !a.Expired(now) {
			return s.Reverse(ctx, a.ID, reversedBy, reason)
		}
	}
	return Action{}, fmt.Errorf("%w: no active mute to reverse", ErrInvalidState)
}

// List queries the ledger by target, moderator, kind and active flag.
func (s *Service) List(ctx context.Context, f Filter) ([]Action, error) {
	if f.Kind != "" {
		if _, ok := kinds[f.Kind]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, f.Kind)
		}
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.store.List(ctx, f)
}

// ActiveForUser lists the target's currently standing restrictions,
// excluding lapsed time-bound actions (lazy check-on-read; no sweeper).
func (s *Service) ActiveForUser(ctx context.Context, targetUserID string) ([]Action, error) {
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return nil, fmt.Errorf("%w: target_user_id is required", ErrInvalidInput)
	}
	rows, err := s.store.ActiveByTarget(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]Action, 0, len(rows))
	for _, a := range rows {
		if a.Expired(now) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Get returns one action by id.
func (s *Service) Get(ctx context.Context, id string) (Action, error) {
	action, err := s.store.Find(ctx, strings.TrimSpace(id))
	if err != nil {
		return Action{}, err
	}
	return *action, nil
}
