// Package mandate handles the representation mandate the claimant signs before
// the claim goes to the insurer. The signature itself happens in the frontend;
// this module records the fact and announces it.
package mandate

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/platform/apperr"
	"claims_intake_backend/platform/logger"
)

// Service records mandate signatures.
type Service struct {
	store caseStore
	bus   events.Bus
	log   *logger.Logger
}

// caseStore is satisfied by *repository.Repository.
type caseStore interface {
	GetCase(ctx context.Context, id uuid.UUID) (domain.Case, error)
	WithCase(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, c domain.Case) error) error
}

func NewService(store caseStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Status returns what the signing page needs to render.
type Status struct {
	CaseID     uuid.UUID
	ClientID   uuid.UUID
	Stage      domain.Stage
	Signed     bool
	Signable   bool
	Resolution domain.Resolution
}

// GetStatus loads the signing state for a case.
func (s *Service) GetStatus(ctx context.Context, caseID uuid.UUID) (Status, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		CaseID:     c.ID,
		ClientID:   c.ClientID,
		Stage:      c.Stage,
		Signed:     c.HasMandateSigned,
		Signable:   c.Stage == domain.StageSigningMandate && !c.HasMandateSigned,
		Resolution: c.Resolution,
	}, nil
}

// Sign records the claimant's signature. Signing twice is a no-op; signing a
// closed case is rejected.
func (s *Service) Sign(ctx context.Context, caseID uuid.UUID, signerName string) error {
	var alreadySigned bool
	err := s.store.WithCase(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c domain.Case) error {
		if domain.IsTerminalStage(c.Stage) {
			return apperr.Conflict("case is closed")
		}
		alreadySigned = c.HasMandateSigned
		return nil
	})
	if err != nil {
		return err
	}
	if alreadySigned {
		return nil
	}

	s.log.WithCaseID(caseID.String()).Info("mandate signed", "signer", signerName)

	// The flag itself is flipped by the conversation flow reacting to this
	// event, under the same case lock as its stage transition.
	s.bus.Publish(ctx, events.MandateSigned{
		BaseEvent: events.NewBaseEvent(),
		CaseID:    caseID,
	})
	return nil
}
