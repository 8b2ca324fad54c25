package insurer

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"claims_intake_backend/internal/adapters/storage"
	"claims_intake_backend/internal/claims/repository"
	"claims_intake_backend/internal/events"
	apphttp "claims_intake_backend/internal/http"
	"claims_intake_backend/platform/config"
	"claims_intake_backend/platform/logger"
	"claims_intake_backend/platform/validator"
)

// ModuleConfig combines the config slices the insurer module needs.
type ModuleConfig interface {
	ServiceConfig
	config.BotConfig
}

// Module is the insurer bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *Handler
}

// NewModule creates the insurer module: repository, claim mailer and the
// operator-facing callback endpoints.
func NewModule(cfg ModuleConfig, pool *pgxpool.Pool, claims *repository.Repository, storageSvc storage.Service, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	var mailer Mailer
	if m := NewSMTPMailer(cfg); m != nil {
		mailer = m
	}
	service := NewService(cfg, claims, repo, mailer, storageSvc, bus, log)

	return &Module{
		service: service,
		handler: NewHandler(service, cfg.GetInsurerEventSecret(), val),
	}
}

// Service exposes the submission flow for event wiring in the composition root.
func (m *Module) Service() *Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "insurer"
}

// RegisterRoutes mounts the operator callback endpoints (shared-secret auth).
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/insurer")
	group.POST("/offers", m.handler.HandleOffer)
	group.POST("/resubmit/:caseId", m.handler.HandleResubmit)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
