package channel

import (
	"context"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/internal/whatsapp"
)

// WhatsAppSender delivers messages through the gowa relay.
type WhatsAppSender struct {
	client *whatsapp.Client
}

func NewWhatsAppSender(client *whatsapp.Client) *WhatsAppSender {
	return &WhatsAppSender{client: client}
}

func (s *WhatsAppSender) Name() domain.Channel {
	return domain.ChannelWhatsApp
}

func (s *WhatsAppSender) Deliver(ctx context.Context, client domain.Client, msg domain.Message) error {
	if len(msg.Buttons) > 0 {
		return s.client.SendButtons(ctx, client.PhoneNumber, msg.Content, msg.Buttons)
	}
	return s.client.SendMessage(ctx, client.PhoneNumber, msg.Content)
}
