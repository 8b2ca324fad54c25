// Package channel routes outbound bot messages to the transport the claimant
// last wrote from.
package channel

import (
	"context"
	"fmt"

	"claims_intake_backend/internal/claims/domain"
)

// Sender delivers one outbound message over a single transport.
type Sender interface {
	Name() domain.Channel
	Deliver(ctx context.Context, client domain.Client, msg domain.Message) error
}

// Selector picks the sender matching the message's channel.
type Selector struct {
	senders map[domain.Channel]Sender
}

func NewSelector(senders ...Sender) *Selector {
	m := make(map[domain.Channel]Sender, len(senders))
	for _, s := range senders {
		m[s.Name()] = s
	}
	return &Selector{senders: m}
}

func (s *Selector) Deliver(ctx context.Context, client domain.Client, msg domain.Message) error {
	sender, ok := s.senders[msg.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %s", msg.Channel)
	}
	return sender.Deliver(ctx, client, msg)
}
