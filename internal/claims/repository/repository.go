// Package repository persists the claims bounded context: clients, cases,
// involved vehicles, case documents and the communication log. All writes that
// mutate a case go through WithCase, which serializes them on a row lock.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"claims_intake_backend/internal/claims/domain"
)

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrCaseNotFound     = errors.New("case not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// serializationRetries bounds the retry loop on SQLSTATE 40001/40P01.
const serializationRetries = 3

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx so every query method
// works inside and outside a WithCase transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool as a Querier for reads that do not need a
// case lock.
func (r *Repository) Pool() Querier {
	return r.pool
}

// WithCase runs fn holding an exclusive row lock on the case. Every writer of
// a given case serializes here, so fn can read flags, reconcile and write back
// without losing concurrent updates. Serialization and deadlock failures are
// retried a bounded number of times with the lock released in between.
func (r *Repository) WithCase(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, c domain.Case) error) error {
	var lastErr error
	for attempt := 0; attempt < serializationRetries; attempt++ {
		err := r.withCaseOnce(ctx, caseID, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return lastErr
}

func (r *Repository) withCaseOnce(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, c domain.Case) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	c, err := r.getCaseForUpdate(ctx, tx, caseID)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx, c); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
