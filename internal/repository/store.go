package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVersionConflict reports a lost optimistic-concurrency race: the
// ticket row changed between read and write.
var ErrVersionConflict = errors.New("ticket version conflict")

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx,
// letting the same repository code run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store aggregates the repositories and provides transaction scoping.
// WithinTx runs fn against a store bound to a single transaction;
// ticket mutation plus notification fan-out always run through it so a
// crash cannot persist one without the other.
type Store interface {
	Accounts() AccountRepository
	Tickets() TicketRepository
	Notifications() NotificationRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type postgresStore struct {
	pool          *pgxpool.Pool
	accounts      AccountRepository
	tickets       TicketRepository
	notifications NotificationRepository
}

// NewPostgresStore builds the pgx-backed store.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return newPostgresStore(pool, pool)
}

func newPostgresStore(pool *pgxpool.Pool, q Querier) *postgresStore {
	return &postgresStore{
		pool:          pool,
		accounts:      NewAccountRepository(q),
		tickets:       NewTicketRepository(q),
		notifications: NewNotificationRepository(q),
	}
}

func (s *postgresStore) Accounts() AccountRepository           { return s.accounts }
func (s *postgresStore) Tickets() TicketRepository             { return s.tickets }
func (s *postgresStore) Notifications() NotificationRepository { return s.notifications }

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// already transaction-bound; join the enclosing transaction
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(newPostgresStore(nil, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// IsUniqueViolation reports whether err is a Postgres unique violation,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
