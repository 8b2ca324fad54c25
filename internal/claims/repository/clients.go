package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/claims/domain"
)

const clientColumns = `id, phone_number, first_name, last_name, cnp, iban, created_at`

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.PhoneNumber, &c.FirstName, &c.LastName, &c.CNP, &c.IBAN, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Client{}, ErrClientNotFound
	}
	return c, err
}

func (r *Repository) GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE id = $1
	`, id))
}

func (r *Repository) GetClientByPhone(ctx context.Context, phone string) (domain.Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE phone_number = $1
	`, phone))
}

// GetOrCreateClientByPhone is the first-contact entry point. The upsert keeps
// concurrent first messages from the same number from racing into duplicates.
func (r *Repository) GetOrCreateClientByPhone(ctx context.Context, phone string) (domain.Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		INSERT INTO clients (id, phone_number)
		VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE SET phone_number = EXCLUDED.phone_number
		RETURNING `+clientColumns+`
	`, uuid.New(), phone))
}

// UpdateClient writes the reconciled identity fields back. Called inside a
// WithCase transaction so extraction merges never interleave.
func (r *Repository) UpdateClient(ctx context.Context, q Querier, c domain.Client) error {
	tag, err := q.Exec(ctx, `
		UPDATE clients SET first_name = $2, last_name = $3, cnp = $4, iban = $5
		WHERE id = $1
	`, c.ID, c.FirstName, c.LastName, c.CNP, c.IBAN)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}
