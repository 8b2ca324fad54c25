package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/adapters/storage"
	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/internal/extraction"
	"claims_intake_backend/platform/config"
	"claims_intake_backend/platform/logger"
	"claims_intake_backend/platform/sanitize"
)

const msgStillProcessing = "Încă procesăm documentele trimise. Revenim imediat cu statusul dosarului."

// ControllerConfig combines the config slices the conversation flow needs.
type ControllerConfig interface {
	config.BotConfig
	config.MinIOConfig
}

// Controller is the conversation engine. Every path into it that mutates a
// case runs inside Store.WithCase, so two webhook deliveries or an extraction
// job and a user message never interleave their read-modify-write cycles.
type Controller struct {
	store          Store
	deliver        Deliverer
	enqueue        extraction.Enqueuer
	uploads        Uploader
	bucket         string
	classifier     domain.Classifier
	photoThreshold int
	signBase       string
	bus            events.Bus
	log            *logger.Logger
}

func NewController(cfg ControllerConfig, store Store, deliver Deliverer, enqueue extraction.Enqueuer, uploads Uploader, bus events.Bus, log *logger.Logger) *Controller {
	return &Controller{
		store:          store,
		deliver:        deliver,
		enqueue:        enqueue,
		uploads:        uploads,
		bucket:         cfg.GetMinioBucketCaseDocuments(),
		classifier:     domain.NewKeywordClassifier(),
		photoThreshold: cfg.GetDamagePhotoThreshold(),
		signBase:       cfg.GetSignBaseURL(),
		bus:            bus,
		log:            log,
	}
}

// RegisterHandlers subscribes the conversation flow to the pipeline events it
// reacts to.
func (ct *Controller) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DocumentExtracted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.DocumentExtracted); ok {
			return ct.Reevaluate(ctx, e.CaseID)
		}
		return nil
	}))
	bus.Subscribe(events.ExtractionFailed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.ExtractionFailed); ok {
			return ct.HandleExtractionFailed(ctx, e.CaseID)
		}
		return nil
	}))
	bus.Subscribe(events.MandateSigned{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.MandateSigned); ok {
			return ct.HandleMandateSigned(ctx, e.CaseID)
		}
		return nil
	}))
	bus.Subscribe(events.OfferReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.OfferReceived); ok {
			return ct.HandleOfferReceived(ctx, e.CaseID, e.OfferCents)
		}
		return nil
	}))
}

// ResolveCase finds or creates the client and their single active case for an
// inbound contact. A message on a CLOSED case opens a fresh one.
func (ct *Controller) ResolveCase(ctx context.Context, phone string, ch domain.Channel) (domain.Client, domain.Case, error) {
	client, err := ct.store.GetOrCreateClientByPhone(ctx, phone)
	if err != nil {
		return domain.Client{}, domain.Case{}, err
	}
	c, created, err := ct.store.GetOrCreateActiveCase(ctx, client.ID, ch)
	if err != nil {
		return domain.Client{}, domain.Case{}, err
	}
	if created && ct.bus != nil {
		ct.bus.Publish(ctx, events.CaseOpened{
			BaseEvent: events.NewBaseEvent(),
			CaseID:    c.ID,
			ClientID:  client.ID,
			Channel:   string(ch),
		})
	}
	return client, c, nil
}

type reply struct {
	text    string
	buttons []string
}

// HandleText processes one inbound user message.
func (ct *Controller) HandleText(ctx context.Context, caseID uuid.UUID, ch domain.Channel, text, providerMessageID string) error {
	fresh, err := ct.store.MarkInboundSeen(ctx, providerMessageID)
	if err != nil {
		return err
	}
	if !fresh {
		ct.log.WithCaseID(caseID.String()).Debug("dropping redelivered message", "provider_message_id", providerMessageID)
		return nil
	}

	text = sanitize.Text(text)

	return ct.converse(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error) {
		c.LastChannel = ch
		if _, err := ct.store.AppendMessage(ctx, tx, domain.Message{
			CaseID:    c.ID,
			Direction: domain.DirectionIn,
			Channel:   ch,
			Content:   text,
		}); err != nil {
			return nil, err
		}

		if c.IsHumanManaged {
			return nil, nil
		}
		return ct.advance(ctx, tx, c, text)
	})
}

// InboundMedia is one uploaded or forwarded file.
type InboundMedia struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// HandleMedia processes the attachments of one inbound message. Videos raise
// the scene-video flag synchronously; images and PDFs are stored and queued
// for extraction. A file that cannot be stored is skipped without losing the
// rest of the batch. While a human manages the case, web uploads are still
// stored and queued silently; uploads from other channels are dropped.
func (ct *Controller) HandleMedia(ctx context.Context, caseID uuid.UUID, ch domain.Channel, items []InboundMedia, providerMessageID string) error {
	if len(items) == 0 {
		return nil
	}
	fresh, err := ct.store.MarkInboundSeen(ctx, providerMessageID)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	log := ct.log.WithCaseID(caseID.String())

	// Dropped media must not reach the bucket: check the freeze before any
	// upload so no orphaned object is left behind.
	current, err := ct.store.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if current.IsHumanManaged && ch != domain.ChannelWeb {
		log.Debug("dropping media on human-managed case", "channel", string(ch), "files", len(items))
		return nil
	}

	type storedUpload struct {
		media   InboundMedia
		fileKey string
		isVideo bool
	}
	var (
		uploaded []storedUpload
		rejected int
		failures []error
	)
	for _, media := range items {
		if err := ct.uploads.ValidateContentType(media.ContentType); err != nil {
			rejected++
			continue
		}
		if media.Size > 0 {
			if err := ct.uploads.ValidateFileSize(media.Size); err != nil {
				rejected++
				continue
			}
		}
		fileKey, err := ct.uploads.UploadFile(ctx, ct.bucket, caseID.String(), media.FileName, media.ContentType, media.Reader, media.Size)
		if err != nil {
			// One bad file must not lose the rest of the batch.
			log.Error("store inbound media", "file", media.FileName, "error", err)
			failures = append(failures, err)
			continue
		}
		uploaded = append(uploaded, storedUpload{media: media, fileKey: fileKey, isVideo: storage.IsVideoContentType(media.ContentType)})
	}
	if len(uploaded) == 0 && rejected == 0 {
		return fmt.Errorf("store inbound media: %w", errors.Join(failures...))
	}

	var enqueueDocIDs []uuid.UUID
	err = ct.converse(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error) {
		c.LastChannel = ch
		enqueueDocIDs = enqueueDocIDs[:0]

		if c.IsHumanManaged && ch != domain.ChannelWeb {
			return nil, nil
		}

		hasVideo := false
		docCount := 0
		for _, up := range uploaded {
			if _, err := ct.store.AppendMessage(ctx, tx, domain.Message{
				CaseID:    c.ID,
				Direction: domain.DirectionIn,
				Channel:   ch,
				Content:   "[fișier] " + up.media.FileName,
			}); err != nil {
				return nil, err
			}

			docType := domain.DocUnknown
			if up.isVideo {
				docType = domain.DocSceneVideo
			}
			doc, err := ct.store.CreateDocument(ctx, tx, domain.Document{
				ID:          uuid.New(),
				CaseID:      c.ID,
				DocType:     docType,
				FileKey:     up.fileKey,
				ContentType: up.media.ContentType,
			})
			if err != nil {
				return nil, err
			}

			if up.isVideo {
				c.HasSceneVideo = true
				hasVideo = true
				continue
			}
			docCount++
			enqueueDocIDs = append(enqueueDocIDs, doc.ID)
		}

		if c.IsHumanManaged {
			return nil, nil
		}

		var replies []reply
		if hasVideo {
			replies = append(replies, reply{text: msgVideoReceived})
		}
		if docCount > 0 {
			replies = append(replies, reply{text: docsReceivedMessage(docCount)})
		}
		if rejected > 0 {
			replies = append(replies, reply{text: msgMediaRejected})
		}
		if hasVideo && docCount == 0 && (c.Stage == domain.StageCollectingDocs || c.Stage == domain.StageSelectingResolution) {
			status, err := ct.evaluateChecklist(ctx, tx, c)
			if err != nil {
				return nil, err
			}
			replies = append(replies, status...)
		}
		return replies, nil
	})
	if err != nil {
		return err
	}

	for _, docID := range enqueueDocIDs {
		if err := ct.enqueue.EnqueueExtraction(ctx, extraction.ExtractDocumentPayload{
			DocumentID: docID.String(),
			CaseID:     caseID.String(),
		}); err != nil {
			return fmt.Errorf("enqueue extraction: %w", err)
		}
	}
	return nil
}

// Reevaluate recomputes the checklist after an extraction lands. While more
// extractions are pending nothing is said: one combined status goes out when
// the last job finishes, instead of one message per processed file.
func (ct *Controller) Reevaluate(ctx context.Context, caseID uuid.UUID) error {
	return ct.converse(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error) {
		if c.IsHumanManaged {
			return nil, nil
		}
		if c.Stage != domain.StageCollectingDocs && c.Stage != domain.StageSelectingResolution {
			return nil, nil
		}

		pending, err := ct.store.CountPendingExtractions(ctx, tx, c.ID)
		if err != nil {
			return nil, err
		}
		if pending > 0 {
			return nil, nil
		}
		return ct.evaluateChecklist(ctx, tx, c)
	})
}

// HandleExtractionFailed tells the user a file could not be read.
func (ct *Controller) HandleExtractionFailed(ctx context.Context, caseID uuid.UUID) error {
	return ct.converse(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error) {
		if c.IsHumanManaged {
			return nil, nil
		}
		return []reply{{text: msgExtractionFailed}}, nil
	})
}

// HandleMandateSigned moves a mandated case into insurer processing.
func (ct *Controller) HandleMandateSigned(ctx context.Context, caseID uuid.UUID) error {
	return ct.converse(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error) {
		c.HasMandateSigned = true
		if c.Stage != domain.StageSigningMandate {
			return nil, nil
		}
		if err := ct.transition(c, domain.StageProcessingInsurer); err != nil {
			return nil, err
		}
		if c.IsHumanManaged {
			return nil, nil
		}
		return []reply{{text: msgProcessing}}, nil
	})
}

// HandleOfferReceived presents the insurer's settlement offer.
func (ct *Controller) HandleOfferReceived(ctx context.Context, caseID uuid.UUID, offerCents int64) error {
	return ct.converse(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error) {
		if c.Stage != domain.StageProcessingInsurer {
			return nil, nil
		}
		if err := ct.transition(c, domain.StageOfferDecision); err != nil {
			return nil, err
		}
		if c.IsHumanManaged {
			return nil, nil
		}
		return []reply{{text: offerMessage(offerCents), buttons: offerButtons}}, nil
	})
}

// advance runs one step of the stage machine for an inbound text.
func (ct *Controller) advance(ctx context.Context, tx pgx.Tx, c *domain.Case, text string) ([]reply, error) {
	switch c.Stage {
	case domain.StageGreeting:
		switch ct.classifier.Greeting(text) {
		case domain.IntentAffirm:
			if err := ct.transition(c, domain.StageCollectingDocs); err != nil {
				return nil, err
			}
			// Opening prompt pair: what to send, and how to settle.
			photos, err := ct.store.CountDamagePhotos(ctx, tx, c.ID)
			if err != nil {
				return nil, err
			}
			missing := domain.MissingItems(*c, photos, ct.photoThreshold)
			return []reply{
				{text: missingDocsMessage(missing)},
				{text: msgResolutionPrompt, buttons: resolutionButtons},
			}, nil
		case domain.IntentDecline:
			c.IsHumanManaged = true
			return []reply{{text: msgHandoff}}, nil
		default:
			return []reply{{text: msgGreeting, buttons: greetingButtons}}, nil
		}

	case domain.StageCollectingDocs, domain.StageSelectingResolution:
		var replies []reply
		switch ct.classifier.Resolution(text) {
		case domain.IntentServiceRAR:
			// RAR repairs need a human: pricing and service coordination are
			// outside the bot's remit.
			c.Resolution = domain.ResolutionServiceRAR
			c.IsHumanManaged = true
			return []reply{{text: msgHandoff}}, nil
		case domain.IntentOwnRegime:
			c.Resolution = domain.ResolutionOwnRegime
			replies = append(replies, reply{text: msgResolutionSaved})
		case domain.IntentTotalLoss:
			c.Resolution = domain.ResolutionTotalLoss
			replies = append(replies, reply{text: msgResolutionSaved})
		}
		status, err := ct.evaluateChecklist(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		return append(replies, status...), nil

	case domain.StageSigningMandate:
		return []reply{{text: signMandateMessage(ct.signLink(c.ID))}}, nil

	case domain.StageProcessingInsurer:
		// Messages written while the dossier sits with the insurer get
		// forwarded to the mailbox the claim was filed with.
		if ct.bus != nil {
			ct.bus.Publish(ctx, events.InsurerRelayRequested{
				BaseEvent: events.NewBaseEvent(),
				CaseID:    c.ID,
				Text:      text,
			})
		}
		return []reply{{text: msgProcessing}}, nil

	case domain.StageOfferDecision:
		intent := ct.classifier.Offer(text)
		switch intent {
		case domain.IntentAcceptOffer:
			if err := ct.transition(c, domain.StageProcessingInsurer); err != nil {
				return nil, err
			}
			return []reply{{text: msgAcceptanceSent}}, nil
		case domain.IntentServiceRAR, domain.IntentOwnRegime, domain.IntentTotalLoss:
			c.Resolution = resolutionFor(intent)
			if intent == domain.IntentServiceRAR {
				c.IsHumanManaged = true
			}
			if err := ct.transition(c, domain.StageProcessingInsurer); err != nil {
				return nil, err
			}
			return []reply{{text: msgOfferChangedPath}}, nil
		default:
			if c.OfferCents != nil {
				return []reply{{text: offerMessage(*c.OfferCents), buttons: offerButtons}}, nil
			}
			return []reply{{text: msgProcessing}}, nil
		}

	default: // CLOSED: a new case gets opened on the next contact
		return nil, nil
	}
}

// evaluateChecklist renders the case's current document status into replies
// and closes the collection stage when everything is in.
func (ct *Controller) evaluateChecklist(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error) {
	pending, err := ct.store.CountPendingExtractions(ctx, tx, c.ID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return []reply{{text: msgStillProcessing}}, nil
	}

	photos, err := ct.store.CountDamagePhotos(ctx, tx, c.ID)
	if err != nil {
		return nil, err
	}

	missing := domain.MissingItems(*c, photos, ct.photoThreshold)
	if len(missing) > 0 {
		return []reply{{text: missingDocsMessage(missing)}}, nil
	}

	if c.Resolution == domain.ResolutionUndecided {
		return []reply{{text: msgResolutionPrompt, buttons: resolutionButtons}}, nil
	}

	if err := ct.transition(c, domain.StageSigningMandate); err != nil {
		return nil, err
	}
	if ct.bus != nil {
		ct.bus.Publish(ctx, events.ChecklistCompleted{
			BaseEvent:  events.NewBaseEvent(),
			CaseID:     c.ID,
			Resolution: string(c.Resolution),
		})
	}
	return []reply{{text: signMandateMessage(ct.signLink(c.ID))}}, nil
}

func resolutionFor(intent domain.Intent) domain.Resolution {
	switch intent {
	case domain.IntentServiceRAR:
		return domain.ResolutionServiceRAR
	case domain.IntentOwnRegime:
		return domain.ResolutionOwnRegime
	case domain.IntentTotalLoss:
		return domain.ResolutionTotalLoss
	default:
		return domain.ResolutionUndecided
	}
}

func (ct *Controller) transition(c *domain.Case, to domain.Stage) error {
	if err := domain.CanTransition(c.Stage, to); err != nil {
		return err
	}
	c.Stage = to
	return nil
}

func (ct *Controller) signLink(caseID uuid.UUID) string {
	return fmt.Sprintf("%s/mandat/semneaza/%s", ct.signBase, caseID)
}

// converse wraps one case mutation: it locks the case, runs fn, persists the
// generated replies in the communication log and the mutated case, then, after
// commit, delivers the replies and publishes any stage change.
func (ct *Controller) converse(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx, c *domain.Case) ([]reply, error)) error {
	var (
		client   domain.Client
		outbound []domain.Message
		oldStage domain.Stage
		newStage domain.Stage
	)

	err := ct.store.WithCase(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c domain.Case) error {
		var err error
		client, err = ct.store.GetClient(ctx, c.ClientID)
		if err != nil {
			return err
		}
		oldStage = c.Stage

		replies, err := fn(ctx, tx, &c)
		if err != nil {
			return err
		}
		newStage = c.Stage

		outbound = outbound[:0]
		for _, r := range replies {
			msg, err := ct.store.AppendMessage(ctx, tx, domain.Message{
				CaseID:    c.ID,
				Direction: domain.DirectionOut,
				Channel:   c.LastChannel,
				Content:   r.text,
				Buttons:   r.buttons,
			})
			if err != nil {
				return err
			}
			outbound = append(outbound, msg)
		}

		return ct.store.UpdateCase(ctx, tx, c)
	})
	if err != nil {
		return err
	}

	log := ct.log.WithCaseID(caseID.String())
	for _, msg := range outbound {
		if err := ct.deliver.Deliver(ctx, client, msg); err != nil {
			// The reply is already in the log; delivery is best effort and the
			// next poll or message re-surfaces the state.
			log.Error("outbound delivery failed", "channel", msg.Channel, "error", err)
		}
	}

	if newStage != oldStage && ct.bus != nil {
		ct.bus.Publish(ctx, events.StageChanged{
			BaseEvent: events.NewBaseEvent(),
			CaseID:    caseID,
			OldStage:  string(oldStage),
			NewStage:  string(newStage),
		})
	}
	return nil
}
