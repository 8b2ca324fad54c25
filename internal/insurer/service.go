package insurer

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"claims_intake_backend/internal/adapters/storage"
	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/claims/repository"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/platform/config"
	"claims_intake_backend/platform/logger"
)

type ServiceConfig interface {
	config.InsurerMailConfig
	config.MinIOConfig
}

// Service files claims with insurers and records their settlement offers.
type Service struct {
	claims   *repository.Repository
	insurers *Repository
	mailer   Mailer
	storage  storage.Service
	bucket   string
	fallback string
	bus      events.Bus
	log      *logger.Logger
}

func NewService(cfg ServiceConfig, claims *repository.Repository, insurers *Repository, mailer Mailer, store storage.Service, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		claims:   claims,
		insurers: insurers,
		mailer:   mailer,
		storage:  store,
		bucket:   cfg.GetMinioBucketCaseDocuments(),
		fallback: cfg.GetFallbackClaimsAddress(),
		bus:      bus,
		log:      log,
	}
}

// RegisterHandlers subscribes the submission and relay flows to their events.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.MandateSigned{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		signed, ok := event.(events.MandateSigned)
		if !ok {
			return nil
		}
		return s.SubmitClaim(ctx, signed.CaseID)
	}))
	bus.Subscribe(events.InsurerRelayRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		relay, ok := event.(events.InsurerRelayRequested)
		if !ok {
			return nil
		}
		return s.RelayMessage(ctx, relay.CaseID, relay.Text)
	}))
}

// SubmitClaim builds the claim email for a mandated case and sends it to the
// offender's insurer, falling back to the office claims inbox when the insurer
// could not be resolved. The insurer choice is persisted under the case lock.
func (s *Service) SubmitClaim(ctx context.Context, caseID uuid.UUID) error {
	log := s.log.WithCaseID(caseID.String())

	c, err := s.claims.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if !c.HasMandateSigned {
		return fmt.Errorf("case %s has no signed mandate", caseID)
	}

	client, err := s.claims.GetClient(ctx, c.ClientID)
	if err != nil {
		return err
	}

	insurerName := ""
	guiltyPlate := ""
	if offender, found, err := s.claims.FindOffenderVehicle(ctx, caseID); err != nil {
		return err
	} else if found {
		insurerName = offender.InsurerName
		guiltyPlate = offender.Plate
	}

	to := s.fallback
	matchedName := insurerName
	if insurerName != "" {
		known, err := s.insurers.List(ctx)
		if err != nil {
			return err
		}
		if matched, ok := MatchInsurer(insurerName, known); ok {
			to = matched.ClaimsEmail
			matchedName = matched.Name
		} else {
			log.Warn("insurer not matched, using fallback inbox", "insurer_name", insurerName)
		}
	}

	attachments, err := s.collectAttachments(ctx, caseID)
	if err != nil {
		return err
	}

	if s.mailer == nil {
		return fmt.Errorf("insurer mail is not configured")
	}
	err = s.mailer.SendClaim(ctx, ClaimEmail{
		To:          to,
		ClientName:  client.FullName(),
		ClientPhone: client.PhoneNumber,
		ClientCNP:   client.CNP,
		ClientIBAN:  client.IBAN,
		VictimPlate: s.victimPlate(ctx, caseID),
		GuiltyPlate: guiltyPlate,
		Resolution:  string(c.Resolution),
		Attachments: attachments,
	})
	if err != nil {
		return fmt.Errorf("send claim email: %w", err)
	}

	err = s.claims.WithCase(ctx, caseID, func(ctx context.Context, tx pgx.Tx, locked domain.Case) error {
		locked.InsurerName = matchedName
		locked.InsurerEmail = to
		return s.claims.UpdateCase(ctx, tx, locked)
	})
	if err != nil {
		return err
	}

	log.Info("claim submitted", "insurer", matchedName, "to", to, "attachments", len(attachments))
	if s.bus != nil {
		s.bus.Publish(ctx, events.ClaimSubmitted{
			BaseEvent:    events.NewBaseEvent(),
			CaseID:       caseID,
			InsurerName:  matchedName,
			InsurerEmail: to,
		})
	}
	return nil
}

// RelayMessage forwards a claimant message to the mailbox the claim was filed
// with. Cases submitted before the insurer could be matched have no recorded
// address; those messages stay in the communication log for the operator.
func (s *Service) RelayMessage(ctx context.Context, caseID uuid.UUID, text string) error {
	c, err := s.claims.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if c.InsurerEmail == "" {
		s.log.WithCaseID(caseID.String()).Warn("relay skipped, no insurer address on case")
		return nil
	}
	if s.mailer == nil {
		return fmt.Errorf("insurer mail is not configured")
	}

	client, err := s.claims.GetClient(ctx, c.ClientID)
	if err != nil {
		return err
	}
	return s.mailer.SendRelay(ctx, RelayEmail{
		To:         c.InsurerEmail,
		ClientName: client.FullName(),
		Text:       text,
	})
}

// RecordOffer persists the insurer's settlement offer and announces it; the
// conversation layer moves the case to the offer decision on the event.
func (s *Service) RecordOffer(ctx context.Context, caseID uuid.UUID, offerCents int64) error {
	err := s.claims.WithCase(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c domain.Case) error {
		if domain.IsTerminalStage(c.Stage) {
			return fmt.Errorf("case %s is closed", caseID)
		}
		c.OfferCents = &offerCents
		return s.claims.UpdateCase(ctx, tx, c)
	})
	if err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.OfferReceived{
			BaseEvent:  events.NewBaseEvent(),
			CaseID:     caseID,
			OfferCents: offerCents,
		})
	}
	return nil
}

// collectAttachments downloads every non-video case file. Scene videos stay
// out of the email; insurers get a storage link on request instead of a
// hundred-megabyte attachment.
func (s *Service) collectAttachments(ctx context.Context, caseID uuid.UUID) ([]Attachment, error) {
	docs, err := s.claims.ListDocuments(ctx, caseID)
	if err != nil {
		return nil, err
	}

	attachable := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if storage.IsVideoContentType(doc.ContentType) {
			continue
		}
		attachable = append(attachable, doc)
	}

	attachments := make([]Attachment, len(attachable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, doc := range attachable {
		g.Go(func() error {
			reader, err := s.storage.DownloadFile(gctx, s.bucket, doc.FileKey)
			if err != nil {
				return err
			}
			data, err := io.ReadAll(reader)
			_ = reader.Close()
			if err != nil {
				return err
			}
			attachments[i] = Attachment{
				FileName:    fmt.Sprintf("%s_%s", doc.DocType, path.Base(doc.FileKey)),
				ContentType: doc.ContentType,
				Content:     data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attachments, nil
}

func (s *Service) victimPlate(ctx context.Context, caseID uuid.UUID) string {
	vehicles, err := s.claims.ListVehicles(ctx, s.claims.Pool(), caseID)
	if err != nil {
		return ""
	}
	for _, v := range vehicles {
		if v.Role == domain.RoleVictim {
			return v.Plate
		}
	}
	return ""
}
