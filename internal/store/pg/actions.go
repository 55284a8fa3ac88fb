package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden.gg/internal/modaction"
)

var _ modaction.Store = (*actionStore)(nil)

// actionStore narrows Store to the moderation-action ledger so the one
// pool can satisfy several single-method-set interfaces without name
// clashes.
type actionStore struct {
	*Store
}

// Actions exposes the moderation-action ledger over the shared pool.
func (s *Store) Actions() modaction.Store { return &actionStore{s} }

const actionColumns = `id, moderator_id, target_user_id, action, reason, admin_notes, is_active, is_public, is_reversible, duration_hours, expires_at, reversed_at, reversed_by, reverse_note, created_at`

func (s *actionStore) Create(ctx context.Context, a *modaction.Action) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into moderation_actions (`+actionColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, a.ID, a.ModeratorID, a.TargetUserID, string(a.Kind), a.Reason, nullIfEmpty(a.AdminNotes),
		a.IsActive, a.IsPublic, a.IsReversible, a.DurationHrs, nullTime(a.ExpiresAt),
		nullTime(a.ReversedAt), nullIfEmpty(a.ReversedBy), nullIfEmpty(a.ReverseNote), a.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: duplicate action id", modaction.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *actionStore) Find(ctx context.Context, id string) (*modaction.Action, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+actionColumns+`
		from moderation_actions
		where id = $1
	`, id)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, modaction.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *actionStore) List(ctx context.Context, f modaction.Filter) ([]modaction.Action, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		conds []string
		args  []any
		idx   = 1
	)
	if f.TargetUserID != "" {
		conds = append(conds, fmt.Sprintf("target_user_id = $%d", idx))
		args = append(args, f.TargetUserID)
		idx++
	}
	if f.ModeratorID != "" {
		conds = append(conds, fmt.Sprintf("moderator_id = $%d", idx))
		args = append(args, f.ModeratorID)
		idx++
	}
	if f.Kind != "" {
		conds = append(conds, fmt.Sprintf("action = $%d", idx))
		args = append(args, string(f.Kind))
		idx++
	}
	if f.Active != nil {
		conds = append(conds, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *f.Active)
		idx++
	}
	where := ""
	if len(conds) > 0 {
		where = "where " + strings.Join(conds, " and ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`
		select `+actionColumns+`
		from moderation_actions
		%s
		order by created_at desc
		limit $%d
	`, where, idx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []modaction.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *actionStore) ActiveByTarget(ctx context.Context, targetUserID string) ([]modaction.Action, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+actionColumns+`
		from moderation_actions
		where target_user_id = $1 and is_active
		order by created_at desc
	`, targetUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []modaction.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *actionStore) MarkReversed(ctx context.Context, id, reversedBy, note string, at time.Time) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	// The predicate re-checks reversibility so a concurrent reversal
	// cannot stamp the record twice.
	res, err := s.db.ExecContext(ctx, `
		update moderation_actions
		set is_active = false, reversed_at = $2, reversed_by = $3, reverse_note = $4
		where id = $1 and is_active and is_reversible
	`, id, at, reversedBy, nullIfEmpty(note))
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (modaction.Action, error) {
	var (
		a       modaction.Action
		kind    string
		notes   sql.NullString
		expires sql.NullTime
		revAt   sql.NullTime
		revBy   sql.NullString
		revNote sql.NullString
	)
	err := row.Scan(&a.ID, &a.ModeratorID, &a.TargetUserID, &kind, &a.Reason, &notes,
		&a.IsActive, &a.IsPublic, &a.IsReversible, &a.DurationHrs, &expires,
		&revAt, &revBy, &revNote, &a.CreatedAt)
	if err != nil {
		return modaction.Action{}, err
	}
	a.Kind = modaction.Kind(kind)
	if notes.Valid {
		a.AdminNotes = notes.String
	}
	if expires.Valid {
		t := expires.Time
		a.ExpiresAt = &t
	}
	if revAt.Valid {
		t := revAt.Time
		a.ReversedAt = &t
	}
	if revBy.Valid {
		a.ReversedBy = revBy.String
	}
	if revNote.Valid {
		a.ReverseNote = revNote.String
	}
	return a, nil
}
