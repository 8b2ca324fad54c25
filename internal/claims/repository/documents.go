package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"claims_intake_backend/internal/claims/domain"
)

const documentColumns = `id, case_id, doc_type, file_key, content_type, payload, uploaded_at`

func scanDocument(row pgx.Row) (domain.Document, error) {
	var (
		d       domain.Document
		rawJSON []byte
	)
	err := row.Scan(&d.ID, &d.CaseID, &d.DocType, &d.FileKey, &d.ContentType, &rawJSON, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return domain.Document{}, err
	}
	if len(rawJSON) > 0 {
		var payload domain.ExtractionPayload
		if err := json.Unmarshal(rawJSON, &payload); err != nil {
			return domain.Document{}, err
		}
		d.Payload = &payload
	}
	return d, nil
}

// CreateDocument records an uploaded artifact. Extraction state starts empty;
// scene videos are the exception and arrive already typed.
func (r *Repository) CreateDocument(ctx context.Context, q Querier, d domain.Document) (domain.Document, error) {
	return scanDocument(q.QueryRow(ctx, `
		INSERT INTO case_documents (id, case_id, doc_type, file_key, content_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+documentColumns+`
	`, d.ID, d.CaseID, d.DocType, d.FileKey, d.ContentType))
}

func (r *Repository) GetDocument(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	return scanDocument(r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+` FROM case_documents WHERE id = $1
	`, id))
}

// SetExtractionResult is the single terminal write of the extraction pipeline.
// The payload-IS-NULL guard makes a redelivered job a no-op: the first writer
// wins and every later attempt reports false.
func (r *Repository) SetExtractionResult(ctx context.Context, q Querier, id uuid.UUID, docType domain.DocType, payload domain.ExtractionPayload) (bool, error) {
	rawJSON, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	tag, err := q.Exec(ctx, `
		UPDATE case_documents SET doc_type = $2, payload = $3
		WHERE id = $1 AND payload IS NULL
	`, id, docType, rawJSON)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkExtractionFailed records a terminal extraction failure so the document
// stops counting as pending. The empty payload closes it without facts; the
// user is asked to resend the file.
func (r *Repository) MarkExtractionFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE case_documents SET doc_type = $2, payload = '{}'::jsonb
		WHERE id = $1 AND payload IS NULL
	`, id, domain.DocUnknown)
	return err
}

func (r *Repository) ListDocuments(ctx context.Context, caseID uuid.UUID) ([]domain.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+` FROM case_documents
		WHERE case_id = $1
		ORDER BY uploaded_at ASC
	`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return docs, nil
}

// CountDamagePhotos feeds the checklist's damage-evidence threshold.
func (r *Repository) CountDamagePhotos(ctx context.Context, q Querier, caseID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM case_documents
		WHERE case_id = $1 AND doc_type = $2
	`, caseID, domain.DocDamagePhoto).Scan(&count)
	return count, err
}

// CountPendingExtractions reports uploads still waiting on the pipeline. The
// controller defers checklist messages while this is non-zero so the user is
// not told a document is missing that is sitting in the queue.
func (r *Repository) CountPendingExtractions(ctx context.Context, q Querier, caseID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM case_documents
		WHERE case_id = $1 AND payload IS NULL AND doc_type <> $2
	`, caseID, domain.DocSceneVideo).Scan(&count)
	return count, err
}
