package handler

import (
	"claims_intake_backend/internal/conversation"
	"claims_intake_backend/internal/conversation/session"
	apphttp "claims_intake_backend/internal/http"
	"claims_intake_backend/internal/whatsapp"
	"claims_intake_backend/platform/config"
	"claims_intake_backend/platform/logger"
	"claims_intake_backend/platform/validator"
)

// Module is the conversation bounded context module implementing http.Module.
type Module struct {
	whatsapp *WhatsAppHandler
	chat     *ChatHandler
}

// NewModule wires the conversation transports around a shared controller.
func NewModule(cfg config.WhatsAppConfig, ctrl *conversation.Controller, store conversation.Store, sessions *session.Store, wa *whatsapp.Client, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{
		whatsapp: NewWhatsAppHandler(cfg, ctrl, wa, log),
		chat:     NewChatHandler(ctrl, store, sessions, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversation"
}

// RegisterRoutes mounts the webhook and web chat routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Inbound gowa deliveries (shared-secret auth)
	ctx.V1.POST("/webhooks/whatsapp", m.whatsapp.HandleInbound)

	// Public web chat (session-token auth, IP rate limited)
	chat := ctx.V1.Group("/chat")
	chat.Use(ctx.RateLimiter.Middleware())
	chat.POST("/session", m.chat.HandleStartSession)
	chat.DELETE("/session", m.chat.HandleEndSession)
	chat.POST("/messages", m.chat.HandleSendMessage)
	chat.GET("/messages", m.chat.HandlePollMessages)
	chat.POST("/uploads", m.chat.HandleUpload)
	chat.GET("/case", m.chat.HandleCaseStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
