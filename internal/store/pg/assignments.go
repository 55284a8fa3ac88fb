package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"warden.gg/internal/auth"
)

var _ auth.AssignmentStore = (*assignmentStore)(nil)

type assignmentStore struct {
	*Store
}

// Assignments exposes role-assignment persistence over the shared pool.
func (s *Store) Assignments() auth.AssignmentStore { return &assignmentStore{s} }

func (s *assignmentStore) Create(ctx context.Context, a *auth.RoleAssignment) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	permsJSON := []byte("[]")
	if len(a.Permissions) > 0 {
		bytes, err := json.Marshal(a.Permissions)
		if err != nil {
			return fmt.Errorf("marshal permissions: %w", err)
		}
		permsJSON = bytes
	}
	_, err := s.db.ExecContext(ctx, `
		insert into role_assignments (id, user_id, role, permissions, assigned_by, notes, expires_at, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.UserID, a.Role, permsJSON, a.AssignedBy, nullIfEmpty(a.Notes), nullTime(a.ExpiresAt), a.IsActive, a.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *assignmentStore) Deactivate(ctx context.Context, userID, role string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update role_assignments
		set is_active = false
		where user_id = $1 and role = $2 and is_active
	`, userID, role)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *assignmentStore) ActiveForUser(ctx context.Context, userID string) ([]auth.RoleAssignment, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, role, permissions, assigned_by, notes, expires_at, is_active, created_at
		from role_assignments
		where user_id = $1 and is_active
		order by created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.RoleAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
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

func (s *assignmentStore) HoldersOf(ctx context.Context, roles []string) ([]string, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roles))
	args := make([]any, len(roles))
	for i, role := range roles {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = role
	}
	query := fmt.Sprintf(`
		select distinct user_id
		from role_assignments
		where role in (%s) and is_active
		  and (expires_at is null or expires_at > now())
		order by user_id
	`, strings.Join(placeholders, ", "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanAssignment(rows *sql.Rows) (auth.RoleAssignment, error) {
	var (
		a        auth.RoleAssignment
		rawPerms []byte
		notes    sql.NullString
		exp      sql.NullTime
	)
	if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &rawPerms, &a.AssignedBy, &notes, &exp, &a.IsActive, &a.CreatedAt); err != nil {
		return auth.RoleAssignment{}, err
	}
	if len(rawPerms) > 0 {
		if err := json.Unmarshal(rawPerms, &a.Permissions); err != nil {
			return auth.RoleAssignment{}, fmt.Errorf("decode permissions: %w", err)
		}
	}
	if notes.Valid {
		a.Notes = notes.String
	}
	if exp.Valid {
		t := exp.Time
		a.ExpiresAt = &t
	}
	return a, nil
}
