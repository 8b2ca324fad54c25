package repository

import (
	"context"

	"github.com/google/uuid"

	"claims_intake_backend/internal/claims/domain"
)

// AppendMessage writes one communication log entry. The log is append-only;
// there is no update or delete path.
func (r *Repository) AppendMessage(ctx context.Context, q Querier, m domain.Message) (domain.Message, error) {
	err := q.QueryRow(ctx, `
		INSERT INTO communication_log (case_id, direction, channel, content, buttons)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.CaseID, m.Direction, m.Channel, m.Content, m.Buttons).Scan(&m.ID, &m.CreatedAt)
	return m, err
}

// ListMessages returns the case's conversation history, oldest first.
// afterID > 0 narrows to entries newer than the given log id, which is what
// the web channel's polling endpoint uses.
func (r *Repository) ListMessages(ctx context.Context, caseID uuid.UUID, afterID int64, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, direction, channel, content, buttons, created_at
		FROM communication_log
		WHERE case_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`, caseID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.CaseID, &m.Direction, &m.Channel, &m.Content, &m.Buttons, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return messages, nil
}

// MarkInboundSeen claims a provider message id. Returns false when the id was
// already recorded, which is how webhook redeliveries are dropped before any
// side effect runs.
func (r *Repository) MarkInboundSeen(ctx context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		// Messages without a provider id (web channel) cannot be deduplicated.
		return true, nil
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO inbound_messages (provider_message_id)
		VALUES ($1)
		ON CONFLICT (provider_message_id) DO NOTHING
	`, providerMessageID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
