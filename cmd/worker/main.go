package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"claims_intake_backend/internal/adapters/storage"
	"claims_intake_backend/internal/claims/repository"
	"claims_intake_backend/internal/conversation"
	"claims_intake_backend/internal/conversation/channel"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/internal/extraction"
	"claims_intake_backend/internal/insurer"
	"claims_intake_backend/internal/whatsapp"
	"claims_intake_backend/platform/config"
	"claims_intake_backend/platform/db"
	"claims_intake_backend/platform/logger"
	"claims_intake_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting extraction worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	extractor, err := extraction.NewGeminiExtractor(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize extractor", "error", err)
		panic("failed to initialize extractor: " + err.Error())
	}

	extractionClient, err := extraction.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize extraction queue client", "error", err)
		panic("failed to initialize extraction queue client: " + err.Error())
	}
	defer func() { _ = extractionClient.Close() }()

	claimsRepo := repository.New(pool)
	whatsappClient := whatsapp.NewClient(cfg, log)

	selector := channel.NewSelector(
		channel.NewWhatsAppSender(whatsappClient),
		channel.NewWebSender(),
	)

	// The conversation controller runs here too: extraction results fire
	// events on this process's bus, and the checklist replies go straight out.
	controller := conversation.NewController(cfg, claimsRepo, selector, extractionClient, storageSvc, eventBus, log)
	controller.RegisterHandlers(eventBus)

	insurerModule := insurer.NewModule(cfg, pool, claimsRepo, storageSvc, eventBus, val, log)
	insurerModule.Service().RegisterHandlers(eventBus)

	worker, err := extraction.NewWorker(cfg, claimsRepo, storageSvc, extractor, eventBus, log)
	if err != nil {
		log.Error("failed to initialize extraction worker", "error", err)
		panic("failed to initialize extraction worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
