package mandate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/platform/logger"
)

type fakeStore struct {
	c domain.Case
}

func (s *fakeStore) GetCase(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	return s.c, nil
}

func (s *fakeStore) WithCase(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, c domain.Case) error) error {
	return fn(ctx, nil, s.c)
}

type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(eventName string, handler events.Handler) {}

func TestSign_PublishesMandateSignedOnce(t *testing.T) {
	store := &fakeStore{c: domain.Case{ID: uuid.New(), Stage: domain.StageSigningMandate}}
	bus := &fakeBus{}
	svc := NewService(store, bus, logger.New("development"))

	if err := svc.Sign(context.Background(), store.c.ID, "Popescu Ion"); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.MandateSigned); !ok {
		t.Fatalf("published %T, want MandateSigned", bus.published[0])
	}
}

func TestSign_SecondSignatureIsNoOp(t *testing.T) {
	store := &fakeStore{c: domain.Case{ID: uuid.New(), Stage: domain.StageProcessingInsurer, HasMandateSigned: true}}
	bus := &fakeBus{}
	svc := NewService(store, bus, logger.New("development"))

	if err := svc.Sign(context.Background(), store.c.ID, "Popescu Ion"); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("re-signing published %d events, want 0", len(bus.published))
	}
}

func TestSign_ClosedCaseIsRejected(t *testing.T) {
	store := &fakeStore{c: domain.Case{ID: uuid.New(), Stage: domain.StageClosed}}
	svc := NewService(store, &fakeBus{}, logger.New("development"))

	if err := svc.Sign(context.Background(), store.c.ID, "Popescu Ion"); err == nil {
		t.Fatal("expected signing a closed case to fail")
	}
}

func TestGetStatus_SignableOnlyInSigningStage(t *testing.T) {
	store := &fakeStore{c: domain.Case{ID: uuid.New(), Stage: domain.StageCollectingDocs}}
	svc := NewService(store, &fakeBus{}, logger.New("development"))

	status, err := svc.GetStatus(context.Background(), store.c.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Signable {
		t.Fatal("case outside SIGNING_MANDATE must not be signable")
	}

	store.c.Stage = domain.StageSigningMandate
	status, err = svc.GetStatus(context.Background(), store.c.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.Signable {
		t.Fatal("SIGNING_MANDATE case without signature must be signable")
	}
}
