package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a row is absent or logically deleted.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a guarded write matched no row.
	ErrConflict = errors.New("record modified concurrently")
)

// DBTX is satisfied by both the pool and an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repositories bundles every repository bound to one connection or transaction.
type Repositories struct {
	Tickets      TicketRepository
	Approvals    ApprovalRepository
	Audit        AuditRepository
	Articles     ArticleRepository
	Comments     CommentRepository
	Regions      RegionRepository
	Applications ApplicationRepository
	Users        UserRepository
}

// Store is the persistence boundary used by services.
type Store interface {
	// Repos returns repositories outside any transaction, for reads.
	Repos() Repositories
	// WithinTx runs fn in a transaction; any returned error rolls everything back.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewRepositories binds every repository to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:      NewTicketRepository(db),
		Approvals:    NewApprovalRepository(db),
		Audit:        NewAuditRepository(db),
		Articles:     NewArticleRepository(db),
		Comments:     NewCommentRepository(db),
		Regions:      NewRegionRepository(db),
		Applications: NewApplicationRepository(db),
		Users:        NewUserRepository(db),
	}
}

func (s *PostgresStore) Repos() Repositories {
	return NewRepositories(s.pool)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Repositories) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
