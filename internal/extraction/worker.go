package extraction

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/adapters/storage"
	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/claims/repository"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/platform/config"
	"claims_intake_backend/platform/logger"
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	repo      *repository.Repository
	storage   storage.Service
	bucket    string
	extractor Extractor
	bus       events.Bus
	log       *logger.Logger
}

type WorkerConfig interface {
	config.RedisConfig
	config.MinIOConfig
}

func NewWorker(cfg WorkerConfig, repo *repository.Repository, store storage.Service, extractor Extractor, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		repo:      repo,
		storage:   store,
		bucket:    cfg.GetMinioBucketCaseDocuments(),
		extractor: extractor,
		bus:       bus,
		log:       log,
	}

	mux.HandleFunc(TaskExtractDocument, w.handleExtractDocument)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("extraction worker stopped", "error", err)
	}
}

func (w *Worker) handleExtractDocument(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseExtractDocumentPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	documentID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	caseID, err := uuid.Parse(payload.CaseID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	attempt, _ := asynq.GetRetryCount(ctx)

	doc, err := w.repo.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	// Redelivered job after the terminal write, or a scene video that never
	// belongs in the pipeline: nothing to do.
	if doc.Extracted() || doc.DocType == domain.DocSceneVideo {
		return nil
	}

	result, err := w.extractDocumentFile(ctx, doc)
	if err != nil {
		w.log.JobEvent(TaskExtractDocument, documentID.String(), attempt, err)
		return w.failOrRetry(ctx, caseID, documentID, attempt, err)
	}

	docType := domain.ResolveDocType(result.DocType)

	err = w.repo.WithCase(ctx, caseID, func(ctx context.Context, tx pgx.Tx, c domain.Case) error {
		wrote, err := w.repo.SetExtractionResult(ctx, tx, documentID, docType, result)
		if err != nil {
			return err
		}
		if !wrote {
			// Another delivery finished first; its transaction already
			// reconciled these facts.
			return nil
		}

		domain.ApplyDocFlags(&c, docType)

		existing, err := w.repo.ListVehicles(ctx, tx, caseID)
		if err != nil {
			return err
		}
		changes := domain.ReconcileVehicles(result, caseID, existing)
		if err := w.repo.ApplyVehicleChanges(ctx, tx, changes); err != nil {
			return err
		}

		client, err := w.repo.GetClient(ctx, c.ClientID)
		if err != nil {
			return err
		}
		if merged, updated := domain.ReconcileClient(result, client); updated {
			if err := w.repo.UpdateClient(ctx, tx, merged); err != nil {
				return err
			}
		}

		return w.repo.UpdateCase(ctx, tx, c)
	})
	if err != nil {
		w.log.JobEvent(TaskExtractDocument, documentID.String(), attempt, err)
		return w.failOrRetry(ctx, caseID, documentID, attempt, err)
	}

	w.log.JobEvent(TaskExtractDocument, documentID.String(), attempt, nil)

	if w.bus != nil {
		w.bus.Publish(ctx, events.DocumentExtracted{
			BaseEvent:  events.NewBaseEvent(),
			CaseID:     caseID,
			DocumentID: documentID,
			DocType:    string(docType),
		})
	}
	return nil
}

func (w *Worker) extractDocumentFile(ctx context.Context, doc domain.Document) (domain.ExtractionPayload, error) {
	reader, err := w.storage.DownloadFile(ctx, w.bucket, doc.FileKey)
	if err != nil {
		return domain.ExtractionPayload{}, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.ExtractionPayload{}, err
	}

	return w.extractor.ExtractDocument(ctx, data, doc.ContentType)
}

// failOrRetry returns the error so asynq retries with its exponential backoff,
// except on the last attempt, where the failure becomes terminal and the
// conversation layer is told so the user can resend the file.
func (w *Worker) failOrRetry(ctx context.Context, caseID, documentID uuid.UUID, attempt int, cause error) error {
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if attempt < maxRetry {
		return cause
	}

	if err := w.repo.MarkExtractionFailed(ctx, documentID); err != nil {
		return err
	}

	if w.bus != nil {
		w.bus.Publish(ctx, events.ExtractionFailed{
			BaseEvent:  events.NewBaseEvent(),
			CaseID:     caseID,
			DocumentID: documentID,
			Reason:     cause.Error(),
		})
	}
	return fmt.Errorf("%w: extraction exhausted retries: %v", asynq.SkipRetry, cause)
}
