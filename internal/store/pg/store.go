// Package pg implements the tenant-scoped data gateway on PostgreSQL.
//
// Scoped operations bind the caller's identity to the connection through
// set_config(..., true) inside the operation's transaction, so row-level
// security policies (see migrations) enforce tenant isolation as a second
// line of defense behind the access-control evaluator. The SET LOCAL
// semantics guarantee the binding dies with the transaction and never leaks
// across pooled connections.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"amicus.org/internal/auth"
	"amicus.org/internal/membership"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"

	defaultMaxConns       = 20
	defaultAcquireTimeout = 2 * time.Second
)

var _ membership.Store = (*Store)(nil)

// Store is safe for concurrent use. Each logical operation acquires its own
// connection from the bounded pool; acquisition waits at most the configured
// timeout before failing with membership.ErrResourceExhausted.
type Store struct {
	db             *sql.DB
	acquireTimeout time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithAcquireTimeout bounds how long an operation waits for a connection.
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.acquireTimeout = d
		}
	}
}

// Open connects to PostgreSQL and applies the bounded-pool defaults.
func Open(dsn string, maxConns int, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewStore(db, opts...), nil
}

// NewStore wraps an existing handle; used by tests with sqlmock.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, acquireTimeout: defaultAcquireTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for health probes.
func (s *Store) DB() *sql.DB { return s.db }

// withScope runs fn inside one transaction on a dedicated connection with
// the actor's identity bound via SET LOCAL. Any failure rolls the whole
// transaction back before the error surfaces; the binding never outlives it.
func (s *Store) withScope(ctx context.Context, actor auth.Actor, fn func(tx *sql.Tx) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	conn, err := s.db.Conn(acquireCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return membership.ErrResourceExhausted
		}
		return err
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		select set_config('app.user_id', $1, true),
		       set_config('app.association_id', $2, true),
		       set_config('app.role', $3, true)
	`, actor.UserID, actor.AssociationID, string(actor.Role)); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// mapWriteError converts driver-level constraint violations into the domain
// error taxonomy.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return membership.ErrDuplicateAccount
		case pgErrForeignKeyViolation:
			return membership.ErrInvalidAssociation
		}
	}
	return err
}
