package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"amicus.org/internal/auth"
	"amicus.org/internal/membership"
)

const memberColumns = `m.id, m.user_id, m.association_id, m.code, m.status,
	u.name, u.email, m.phone, m.created_at, m.updated_at`

const memberFrom = `from members m join users u on u.id = m.user_id`

func scanMember(row interface{ Scan(...any) error }) (*membership.Member, error) {
	var m membership.Member
	err := row.Scan(&m.ID, &m.UserID, &m.AssociationID, &m.Code, &m.Status,
		&m.Name, &m.Email, &m.Phone, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, membership.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetMember(ctx context.Context, actor auth.Actor, memberID string) (*membership.Member, error) {
	var member *membership.Member
	err := s.withScope(ctx, actor, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`select `+memberColumns+` `+memberFrom+` where m.id = $1`, memberID)
		var err error
		member, err = scanMember(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Store) GetMemberByUser(ctx context.Context, actor auth.Actor, userID string) (*membership.Member, error) {
	var member *membership.Member
	err := s.withScope(ctx, actor, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`select `+memberColumns+` `+memberFrom+` where m.user_id = $1`, userID)
		var err error
		member, err = scanMember(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Store) ListMembers(ctx context.Context, actor auth.Actor, filter membership.MemberFilter) ([]*membership.Member, int, error) {
	where, args := memberPredicates(filter)

	var (
		items []*membership.Member
		total int
	)
	err := s.withScope(ctx, actor, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `select count(*) `+memberFrom+where, args...)
		if err := row.Scan(&total); err != nil {
			return err
		}

		limit := filter.Limit
		offset := (filter.Page - 1) * filter.Limit
		pageArgs := append(append([]any{}, args...), limit, offset)
		query := fmt.Sprintf(`select %s %s%s order by m.created_at, m.id limit $%d offset $%d`,
			memberColumns, memberFrom, where, len(args)+1, len(args)+2)

		rows, err := tx.QueryContext(ctx, query, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMember(rows)
			if err != nil {
				return err
			}
			items = append(items, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// memberPredicates builds the WHERE clause shared by the count and page
// queries.
func memberPredicates(filter membership.MemberFilter) (string, []any) {
	var (
		preds []string
		args  []any
	)
	if filter.AssociationID != "" {
		args = append(args, filter.AssociationID)
		preds = append(preds, fmt.Sprintf("m.association_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		preds = append(preds, fmt.Sprintf("m.status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		preds = append(preds, fmt.Sprintf("(u.name ilike $%d or u.email ilike $%d or m.code ilike $%d)", n, n, n))
	}
	if len(preds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(preds, " and "), args
}

// TransitionMember locks the row, verifies the expected source status and
// applies the transition, all inside one scoped transaction. A concurrent
// transition surfaces as membership.ErrStatusConflict.
func (s *Store) TransitionMember(ctx context.Context, actor auth.Actor, memberID string, from, to membership.MemberStatus) (*membership.Member, error) {
	var member *membership.Member
	err := s.withScope(ctx, actor, func(tx *sql.Tx) error {
		var current string
		row := tx.QueryRowContext(ctx,
			`select status from members where id = $1 for update`, memberID)
		if err := row.Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return membership.ErrNotFound
			}
			return err
		}
		if membership.MemberStatus(current) != from {
			return membership.ErrStatusConflict
		}
		if _, err := tx.ExecContext(ctx,
			`update members set status = $2, updated_at = now() where id = $1`, memberID, string(to)); err != nil {
			return err
		}
		row = tx.QueryRowContext(ctx,
			`select `+memberColumns+` `+memberFrom+` where m.id = $1`, memberID)
		var err error
		member, err = scanMember(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Store) MemberStats(ctx context.Context, actor auth.Actor, associationID string) (membership.Stats, error) {
	var stats membership.Stats
	err := s.withScope(ctx, actor, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			select
				count(*) filter (where status = 'pending'),
				count(*) filter (where status = 'active'),
				count(*) filter (where status = 'inactive'),
				count(*) filter (where status = 'suspended'),
				count(*)
			from members where association_id = $1
		`, associationID)
		return row.Scan(&stats.Pending, &stats.Active, &stats.Inactive, &stats.Suspended, &stats.Total)
	})
	if err != nil {
		return membership.Stats{}, err
	}
	return stats, nil
}
