// Package conversation drives the claimant-facing intake dialogue: it owns
// the stage machine transitions, renders the document checklist into messages
// and reacts to extraction, mandate and insurer events.
package conversation

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/claims/repository"
)

// Store is the slice of the claims repository the controller needs. The
// claims repository satisfies it; tests plug in an in-memory fake.
type Store interface {
	WithCase(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, c domain.Case) error) error
	GetOrCreateClientByPhone(ctx context.Context, phone string) (domain.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (domain.Client, error)
	GetOrCreateActiveCase(ctx context.Context, clientID uuid.UUID, channel domain.Channel) (domain.Case, bool, error)
	GetCase(ctx context.Context, id uuid.UUID) (domain.Case, error)
	UpdateCase(ctx context.Context, q repository.Querier, c domain.Case) error
	AppendMessage(ctx context.Context, q repository.Querier, m domain.Message) (domain.Message, error)
	ListMessages(ctx context.Context, caseID uuid.UUID, afterID int64, limit int) ([]domain.Message, error)
	CreateDocument(ctx context.Context, q repository.Querier, d domain.Document) (domain.Document, error)
	CountDamagePhotos(ctx context.Context, q repository.Querier, caseID uuid.UUID) (int, error)
	CountPendingExtractions(ctx context.Context, q repository.Querier, caseID uuid.UUID) (int, error)
	MarkInboundSeen(ctx context.Context, providerMessageID string) (bool, error)
	Pool() repository.Querier
}

// Deliverer sends an outbound message over the claimant's channel.
type Deliverer interface {
	Deliver(ctx context.Context, client domain.Client, msg domain.Message) error
}

// Uploader is the slice of object storage the controller needs for inbound
// media.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	ValidateContentType(contentType string) error
	ValidateFileSize(sizeBytes int64) error
}
