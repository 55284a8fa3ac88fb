package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"warden.gg/internal/audit"
)

var _ audit.Store = (*auditStore)(nil)

type auditStore struct {
	*Store
}

// Audit exposes the append-only audit log over the shared pool.
func (s *Store) Audit() audit.Store { return &auditStore{s} }

func (s *auditStore) Append(ctx context.Context, e *audit.Entry) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	params := e.Parameters
	if len(params) == 0 {
		params = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log (id, admin_user_id, action, category, target_type, target_id, status, parameters, ip_address, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.AdminUserID, e.Action, string(e.Category), nullIfEmpty(e.TargetType),
		nullIfEmpty(e.TargetID), e.Status, params, nullIfEmpty(e.IPAddress), e.CreatedAt)
	return err
}

func (s *auditStore) List(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		conds []string
		args  []any
		idx   = 1
	)
	if f.AdminUserID != "" {
		conds = append(conds, fmt.Sprintf("admin_user_id = $%d", idx))
		args = append(args, f.AdminUserID)
		idx++
	}
	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", idx))
		args = append(args, string(f.Category))
		idx++
	}
	if f.TargetType != "" {
		conds = append(conds, fmt.Sprintf("target_type = $%d", idx))
		args = append(args, f.TargetType)
		idx++
	}
	if f.TargetID != "" {
		conds = append(conds, fmt.Sprintf("target_id = $%d", idx))
		args = append(args, f.TargetID)
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
		select id, admin_user_id, action, category, target_type, target_id, status, parameters, ip_address, created_at
		from audit_log
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

	var result []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			category   string
			targetType sql.NullString
			targetID   sql.NullString
			ip         sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.AdminUserID, &e.Action, &category, &targetType,
			&targetID, &e.Status, &e.Parameters, &ip, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Category = audit.Category(category)
		if targetType.Valid {
			e.TargetType = targetType.String
		}
		if targetID.Valid {
			e.TargetID = targetID.String
		}
		if ip.Valid {
			e.IPAddress = ip.String
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
