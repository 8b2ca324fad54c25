package mandate

import (
	"claims_intake_backend/internal/events"
	apphttp "claims_intake_backend/internal/http"
	"claims_intake_backend/platform/logger"
	"claims_intake_backend/platform/validator"
)

// Module is the mandate bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the mandate module around the shared claims store.
func NewModule(store caseStore, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(store, bus, log)
	return &Module{handler: NewHandler(service, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "mandate"
}

// RegisterRoutes mounts the signing endpoints. They are public: the case ID in
// the sign link is the capability.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/mandate")
	group.Use(ctx.RateLimiter.Middleware())
	group.GET("/:caseId", m.handler.HandleGetStatus)
	group.POST("/:caseId/sign", m.handler.HandleSign)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
