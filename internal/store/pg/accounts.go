package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"amicus.org/internal/membership"
)

func (s *Store) CreateAssociation(ctx context.Context, assoc *membership.Association) error {
	_, err := s.db.ExecContext(ctx, `
		insert into associations (id, name, code, status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, assoc.ID, assoc.Name, assoc.Code, assoc.Status, assoc.CreatedAt, assoc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return membership.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *Store) GetAssociation(ctx context.Context, id string) (*membership.Association, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, code, status, created_at, updated_at
		from associations where id = $1
	`, id)
	var a membership.Association
	if err := row.Scan(&a.ID, &a.Name, &a.Code, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) ListAssociations(ctx context.Context) ([]*membership.Association, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, code, status, created_at, updated_at
		from associations order by created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*membership.Association
	for rows.Next() {
		var a membership.Association
		if err := rows.Scan(&a.ID, &a.Name, &a.Code, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

const userColumns = `id, email, name, password_hash, role, association_id, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*membership.User, error) {
	var (
		u         membership.User
		assocID   sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &assocID, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrNotFound
		}
		return nil, err
	}
	u.AssociationID = assocID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*membership.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *Store) GetUser(ctx context.Context, id string) (*membership.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

// CreateAccount inserts the user and its member profile in one transaction.
// Either both rows exist afterwards or neither does; the unique email index
// catches registrations racing past the service-level pre-check.
func (s *Store) CreateAccount(ctx context.Context, user *membership.User, member *membership.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	assocID := sql.NullString{String: user.AssociationID, Valid: user.AssociationID != ""}
	if _, err := tx.ExecContext(ctx, `
		insert into users (id, email, name, password_hash, role, association_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.Role, assocID, user.CreatedAt, user.UpdatedAt); err != nil {
		return mapWriteError(err)
	}

	if _, err := tx.ExecContext(ctx, `
		insert into members (id, user_id, association_id, code, status, phone, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, member.ID, member.UserID, member.AssociationID, member.Code, member.Status, member.Phone, member.CreatedAt, member.UpdatedAt); err != nil {
		return mapWriteError(err)
	}

	return tx.Commit()
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return s.updateUserColumn(ctx, userID, `last_login_at`, at)
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.updateUserColumn(ctx, userID, `password_hash`, passwordHash)
}

func (s *Store) updateUserColumn(ctx context.Context, userID, column string, value any) error {
	res, err := s.db.ExecContext(ctx,
		`update users set `+column+` = $2, updated_at = now() where id = $1`, userID, value)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return membership.ErrNotFound
	}
	return nil
}
