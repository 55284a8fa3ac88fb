package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden.gg/internal/modqueue"
)

var _ modqueue.Store = (*queueStore)(nil)

type queueStore struct {
	*Store
}

// Queue exposes the moderation queue over the shared pool.
func (s *Store) Queue() modqueue.Store { return &queueStore{s} }

const queueColumns = `id, item_type, status, priority, assigned_moderator, reported_user_id, content_ref, reason, resolution, action_taken, created_at, updated_at, completed_at`

func (s *queueStore) Create(ctx context.Context, item *modqueue.Item) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into queue_items (`+queueColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, item.ID, string(item.ItemType), string(item.Status), item.Priority,
		nullIfEmpty(item.AssignedModerator), nullIfEmpty(item.ReportedUserID),
		nullIfEmpty(item.ContentRef), nullIfEmpty(item.Reason),
		nullIfEmpty(item.Resolution), nullIfEmpty(item.ActionTaken),
		item.CreatedAt, item.UpdatedAt, nullTime(item.CompletedAt))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: duplicate item id", modqueue.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *queueStore) Find(ctx context.Context, id string) (*modqueue.Item, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+queueColumns+`
		from queue_items
		where id = $1
	`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, modqueue.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *queueStore) List(ctx context.Context, f modqueue.Filter) ([]modqueue.Item, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		conds []string
		args  []any
		idx   = 1
	)
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(f.Status))
		idx++
	}
	if f.ItemType != "" {
		conds = append(conds, fmt.Sprintf("item_type = $%d", idx))
		args = append(args, string(f.ItemType))
		idx++
	}
	if f.Moderator != "" {
		conds = append(conds, fmt.Sprintf("assigned_moderator = $%d", idx))
		args = append(args, f.Moderator)
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
		select `+queueColumns+`
		from queue_items
		%s
		order by priority desc, created_at asc
		limit $%d
	`, where, idx)
	args = append(args, limit)

	return s.queryItems(ctx, query, args...)
}

func (s *queueStore) Assign(ctx context.Context, id, moderatorID string, at time.Time) (bool, error) {
	return s.transition(ctx, `
		update queue_items
		set status = 'assigned', assigned_moderator = $2, updated_at = $3
		where id = $1 and status in ('open', 'assigned')
	`, id, moderatorID, at)
}

func (s *queueStore) Start(ctx context.Context, id string, at time.Time) (bool, error) {
	return s.transition(ctx, `
		update queue_items
		set status = 'in_progress', updated_at = $2
		where id = $1 and status = 'assigned'
	`, id, at)
}

func (s *queueStore) Finish(ctx context.Context, id string, to modqueue.Status, resolution, actionTaken string, at time.Time) (bool, error) {
	return s.transition(ctx, `
		update queue_items
		set status = $2, resolution = $3, action_taken = $4, updated_at = $5, completed_at = $5
		where id = $1 and status in ('assigned', 'in_progress')
	`, id, string(to), nullIfEmpty(resolution), nullIfEmpty(actionTaken), at)
}

func (s *queueStore) SetPriority(ctx context.Context, id string, priority int, at time.Time) (bool, error) {
	return s.transition(ctx, `
		update queue_items
		set priority = $2, updated_at = $3
		where id = $1 and status in ('open', 'assigned')
	`, id, priority, at)
}

// transition runs a guarded update and reports whether a row matched
// both the id and the allowed source states. A missing id surfaces as
// ErrNotFound so callers can tell it apart from a lost state race.
func (s *queueStore) transition(ctx context.Context, query string, id string, args ...any) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	all := append([]any{id}, args...)
	res, err := s.db.ExecContext(ctx, query, all...)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if aff > 0 {
		return true, nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `select 1 from queue_items where id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, modqueue.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *queueStore) ListUnassignedOpen(ctx context.Context, itemType modqueue.ItemType) ([]modqueue.Item, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	query := `
		select ` + queueColumns + `
		from queue_items
		where status = 'open' and assigned_moderator is null
		order by priority desc, created_at asc
	`
	args := []any{}
	if itemType != "" {
		query = `
		select ` + queueColumns + `
		from queue_items
		where status = 'open' and assigned_moderator is null and item_type = $1
		order by priority desc, created_at asc
	`
		args = append(args, string(itemType))
	}
	return s.queryItems(ctx, query, args...)
}

func (s *queueStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]modqueue.Item, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	return s.queryItems(ctx, `
		select `+queueColumns+`
		from queue_items
		where status in ('open', 'assigned') and created_at < $1 and priority < $2
		order by priority desc, created_at asc
	`, cutoff, modqueue.MaxPriority)
}

func (s *queueStore) CountByModerator(ctx context.Context) (map[string]int, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select assigned_moderator, count(*)
		from queue_items
		where status in ('assigned', 'in_progress') and assigned_moderator is not null
		group by assigned_moderator
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			mod string
			n   int
		)
		if err := rows.Scan(&mod, &n); err != nil {
			return nil, err
		}
		counts[mod] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *queueStore) CountOpenWork(ctx context.Context, moderatorID string) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var n int
	if moderatorID != "" {
		err := s.db.QueryRowContext(ctx, `
			select count(*) from queue_items
			where status in ('assigned', 'in_progress') and assigned_moderator = $1
		`, moderatorID).Scan(&n)
		return n, err
	}
	err := s.db.QueryRowContext(ctx, `
		select count(*) from queue_items
		where status in ('assigned', 'in_progress')
	`).Scan(&n)
	return n, err
}

func (s *queueStore) queryItems(ctx context.Context, query string, args ...any) ([]modqueue.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []modqueue.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanItem(row rowScanner) (modqueue.Item, error) {
	var (
		item      modqueue.Item
		itemType  string
		status    string
		mod       sql.NullString
		reported  sql.NullString
		ref       sql.NullString
		reason    sql.NullString
		res       sql.NullString
		taken     sql.NullString
		completed sql.NullTime
	)
	err := row.Scan(&item.ID, &itemType, &status, &item.Priority, &mod, &reported,
		&ref, &reason, &res, &taken, &item.CreatedAt, &item.UpdatedAt, &completed)
	if err != nil {
		return modqueue.Item{}, err
	}
	item.ItemType = modqueue.ItemType(itemType)
	item.Status = modqueue.Status(status)
	if mod.Valid {
		item.AssignedModerator = mod.String
	}
	if reported.Valid {
		item.ReportedUserID = reported.String
	}
	if ref.Valid {
		item.ContentRef = ref.String
	}
	if reason.Valid {
		item.Reason = reason.String
	}
	if res.Valid {
		item.Resolution = res.String
	}
	if taken.Valid {
		item.ActionTaken = taken.String
	}
	if completed.Valid {
		t := completed.Time
		item.CompletedAt = &t
	}
	return item, nil
}
