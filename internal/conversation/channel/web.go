package channel

import (
	"context"

	"claims_intake_backend/internal/claims/domain"
)

// WebSender is a no-op: web messages are already persisted in the
// communication log and the browser picks them up by polling.
type WebSender struct{}

func NewWebSender() *WebSender {
	return &WebSender{}
}

func (s *WebSender) Name() domain.Channel {
	return domain.ChannelWeb
}

func (s *WebSender) Deliver(context.Context, domain.Client, domain.Message) error {
	return nil
}
