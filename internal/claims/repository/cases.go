package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/claims/domain"
)

const caseColumns = `id, client_id, stage, resolution, is_human_managed,
	has_id_card, has_car_coupon, has_accident_report, has_scene_video,
	has_bank_statement, has_repair_auth, has_mandate_signed,
	insurer_name, insurer_email, offer_cents, last_channel, created_at, updated_at`

func scanCase(row pgx.Row) (domain.Case, error) {
	var c domain.Case
	err := row.Scan(
		&c.ID, &c.ClientID, &c.Stage, &c.Resolution, &c.IsHumanManaged,
		&c.HasIDCard, &c.HasCarCoupon, &c.HasAccidentReport, &c.HasSceneVideo,
		&c.HasBankStatement, &c.HasRepairAuth, &c.HasMandateSigned,
		&c.InsurerName, &c.InsurerEmail, &c.OfferCents, &c.LastChannel,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Case{}, ErrCaseNotFound
	}
	return c, err
}

func (r *Repository) GetCase(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	return scanCase(r.pool.QueryRow(ctx, `
		SELECT `+caseColumns+` FROM cases WHERE id = $1
	`, id))
}

func (r *Repository) getCaseForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Case, error) {
	return scanCase(tx.QueryRow(ctx, `
		SELECT `+caseColumns+` FROM cases WHERE id = $1 FOR UPDATE
	`, id))
}

// GetActiveCaseByClient returns the client's single non-CLOSED case.
func (r *Repository) GetActiveCaseByClient(ctx context.Context, clientID uuid.UUID) (domain.Case, error) {
	return scanCase(r.pool.QueryRow(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE client_id = $1 AND stage <> $2
		ORDER BY created_at DESC
		LIMIT 1
	`, clientID, domain.StageClosed))
}

// GetOrCreateActiveCase finds the client's open case or opens a new one in
// GREETING, reporting whether this call created it. A partial unique index on
// (client_id) WHERE stage <> 'CLOSED' enforces the one-active-case invariant;
// a concurrent insert loses the conflict and picks up the winner's row.
func (r *Repository) GetOrCreateActiveCase(ctx context.Context, clientID uuid.UUID, channel domain.Channel) (domain.Case, bool, error) {
	c, err := r.GetActiveCaseByClient(ctx, clientID)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrCaseNotFound) {
		return domain.Case{}, false, err
	}

	c, err = scanCase(r.pool.QueryRow(ctx, `
		INSERT INTO cases (id, client_id, stage, resolution, last_channel)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (client_id) WHERE stage <> 'CLOSED' DO NOTHING
		RETURNING `+caseColumns+`
	`, uuid.New(), clientID, domain.StageGreeting, domain.ResolutionUndecided, channel))
	if errors.Is(err, ErrCaseNotFound) {
		// Lost the insert race; the winner's case is now visible.
		c, err = r.GetActiveCaseByClient(ctx, clientID)
		return c, false, err
	}
	return c, err == nil, err
}

// UpdateCase writes the full mutable state of a case back. Stage changes must
// already have passed domain.CanTransition; the repository only rejects values
// outside the closed enum via the column check constraints.
func (r *Repository) UpdateCase(ctx context.Context, q Querier, c domain.Case) error {
	tag, err := q.Exec(ctx, `
		UPDATE cases SET
			stage = $2, resolution = $3, is_human_managed = $4,
			has_id_card = $5, has_car_coupon = $6, has_accident_report = $7,
			has_scene_video = $8, has_bank_statement = $9, has_repair_auth = $10,
			has_mandate_signed = $11, insurer_name = $12, insurer_email = $13,
			offer_cents = $14, last_channel = $15, updated_at = now()
		WHERE id = $1
	`,
		c.ID, c.Stage, c.Resolution, c.IsHumanManaged,
		c.HasIDCard, c.HasCarCoupon, c.HasAccidentReport,
		c.HasSceneVideo, c.HasBankStatement, c.HasRepairAuth,
		c.HasMandateSigned, c.InsurerName, c.InsurerEmail,
		c.OfferCents, c.LastChannel,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// SetHumanManaged flips the takeover flag outside any case lock; an operator
// toggling it must take effect even while a bot write is in flight.
func (r *Repository) SetHumanManaged(ctx context.Context, id uuid.UUID, managed bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cases SET is_human_managed = $2, updated_at = now() WHERE id = $1
	`, id, managed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}
