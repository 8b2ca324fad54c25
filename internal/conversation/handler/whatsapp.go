// Package handler exposes the conversation over its two transports: the gowa
// WhatsApp webhook and the web chat REST API.
package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/conversation"
	"claims_intake_backend/internal/whatsapp"
	"claims_intake_backend/platform/config"
	"claims_intake_backend/platform/httpkit"
	"claims_intake_backend/platform/logger"
	"claims_intake_backend/platform/phone"
)

// WhatsAppHandler receives gowa webhook deliveries. gowa retries on non-2xx,
// so everything past authentication answers 200: redeliveries are deduplicated
// by provider message ID and processing errors are logged, not surfaced to the
// relay.
type WhatsAppHandler struct {
	ctrl   *conversation.Controller
	media  *whatsapp.Client
	secret string
	log    *logger.Logger
}

func NewWhatsAppHandler(cfg config.WhatsAppConfig, ctrl *conversation.Controller, media *whatsapp.Client, log *logger.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		ctrl:   ctrl,
		media:  media,
		secret: cfg.GetWhatsAppWebhookSecret(),
		log:    log,
	}
}

// webhookPayload is the inbound message shape posted by the gowa relay. One
// delivery can carry several attachments (an album send).
type webhookPayload struct {
	SenderID  string `json:"sender_id"`
	MessageID string `json:"message_id"`
	Message   struct {
		Text string `json:"text"`
	} `json:"message"`
	Media []webhookMedia `json:"media,omitempty"`
}

type webhookMedia struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

// HandleInbound processes one webhook delivery.
// POST /api/v1/webhooks/whatsapp
func (h *WhatsAppHandler) HandleInbound(c *gin.Context) {
	if !h.authenticated(c) {
		httpkit.Error(c, http.StatusUnauthorized, "invalid webhook secret", nil)
		return
	}

	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	normalized := phone.NormalizeE164(payload.SenderID)
	if normalized == "" {
		httpkit.Error(c, http.StatusBadRequest, "unparseable sender", nil)
		return
	}

	ctx := c.Request.Context()
	_, cs, err := h.ctrl.ResolveCase(ctx, normalized, domain.ChannelWhatsApp)
	if err != nil {
		h.log.Error("resolve case for webhook", "sender", normalized, "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}
	log := h.log.WithCaseID(cs.ID.String())

	switch {
	case len(payload.Media) > 0:
		items := make([]conversation.InboundMedia, 0, len(payload.Media))
		for _, m := range payload.Media {
			body, contentType, size, err := h.media.FetchMedia(ctx, m.URL)
			if err != nil {
				// A dead media URL loses that attachment, not the delivery.
				log.Error("fetch webhook media", "url", m.URL, "error", err)
				continue
			}
			defer body.Close()

			if m.MimeType != "" {
				contentType = m.MimeType
			}
			items = append(items, conversation.InboundMedia{
				FileName:    m.FileName,
				ContentType: contentType,
				Size:        size,
				Reader:      body,
			})
		}
		if err := h.ctrl.HandleMedia(ctx, cs.ID, domain.ChannelWhatsApp, items, payload.MessageID); err != nil {
			log.Error("handle webhook media", "error", err)
		}

	case payload.Message.Text != "":
		if err := h.ctrl.HandleText(ctx, cs.ID, domain.ChannelWhatsApp, payload.Message.Text, payload.MessageID); err != nil {
			log.Error("handle webhook text", "error", err)
		}

	default:
		log.Debug("ignoring webhook delivery with no text or media", "message_id", payload.MessageID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WhatsAppHandler) authenticated(c *gin.Context) bool {
	if h.secret == "" {
		return true
	}
	got := c.GetHeader("X-Webhook-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
