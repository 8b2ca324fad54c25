// Package insurer resolves which RCA insurer a claim is filed against and
// dispatches the claim email with the case file attached.
package insurer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInsurerNotFound = errors.New("insurer not found")

// Insurer is one known RCA insurer with its claims inbox.
type Insurer struct {
	ID          uuid.UUID
	Name        string
	ClaimsEmail string
	Aliases     []string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]Insurer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, claims_email, aliases
		FROM insurers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	insurers := make([]Insurer, 0)
	for rows.Next() {
		var ins Insurer
		if err := rows.Scan(&ins.ID, &ins.Name, &ins.ClaimsEmail, &ins.Aliases); err != nil {
			return nil, err
		}
		insurers = append(insurers, ins)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return insurers, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Insurer, error) {
	var ins Insurer
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, claims_email, aliases FROM insurers WHERE id = $1
	`, id).Scan(&ins.ID, &ins.Name, &ins.ClaimsEmail, &ins.Aliases)
	if errors.Is(err, pgx.ErrNoRows) {
		return Insurer{}, ErrInsurerNotFound
	}
	return ins, err
}
