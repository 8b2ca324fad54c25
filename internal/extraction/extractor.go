// Package extraction runs the asynchronous document pipeline: uploaded case
// files are classified and their fields pulled out by a vision model, then the
// facts are reconciled into the case under its row lock.
package extraction

import (
	"context"

	"claims_intake_backend/internal/claims/domain"
)

// Extractor turns a stored document image or PDF into a structured payload.
type Extractor interface {
	ExtractDocument(ctx context.Context, data []byte, contentType string) (domain.ExtractionPayload, error)
}
