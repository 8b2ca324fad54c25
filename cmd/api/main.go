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
	convhandler "claims_intake_backend/internal/conversation/handler"
	"claims_intake_backend/internal/conversation/session"
	"claims_intake_backend/internal/events"
	"claims_intake_backend/internal/extraction"
	apphttp "claims_intake_backend/internal/http"
	"claims_intake_backend/internal/http/router"
	"claims_intake_backend/internal/insurer"
	"claims_intake_backend/internal/mandate"
	"claims_intake_backend/internal/whatsapp"
	"claims_intake_backend/migrations"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	val := validator.New()

	// Storage service for case documents (MinIO)
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	ensureBucket(ctx, log, storageSvc, "case-documents", cfg.GetMinioBucketCaseDocuments())
	log.Info("storage service initialized", "caseDocumentsBucket", cfg.GetMinioBucketCaseDocuments())

	// Extraction job queue client (asynq)
	extractionClient, err := extraction.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize extraction queue client", "error", err)
		panic("failed to initialize extraction queue client: " + err.Error())
	}
	defer func() { _ = extractionClient.Close() }()

	sessions, err := session.NewStore(cfg)
	if err != nil {
		log.Error("failed to initialize session store", "error", err)
		panic("failed to initialize session store: " + err.Error())
	}
	defer func() { _ = sessions.Close() }()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	claimsRepo := repository.New(pool)
	whatsappClient := whatsapp.NewClient(cfg, log)

	selector := channel.NewSelector(
		channel.NewWhatsAppSender(whatsappClient),
		channel.NewWebSender(),
	)

	controller := conversation.NewController(cfg, claimsRepo, selector, extractionClient, storageSvc, eventBus, log)
	controller.RegisterHandlers(eventBus)

	conversationModule := convhandler.NewModule(cfg, controller, claimsRepo, sessions, whatsappClient, val, log)
	mandateModule := mandate.NewModule(claimsRepo, eventBus, val, log)
	insurerModule := insurer.NewModule(cfg, pool, claimsRepo, storageSvc, eventBus, val, log)
	insurerModule.Service().RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			conversationModule,
			mandateModule,
			insurerModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.Service, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
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
