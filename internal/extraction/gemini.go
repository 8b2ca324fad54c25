package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"claims_intake_backend/internal/claims/domain"
	"claims_intake_backend/platform/config"
)

const extractionPrompt = `Ești un sistem OCR pentru dosare de daune auto din România.
Analizează documentul atașat și răspunde DOAR cu un obiect JSON, fără alt text.

Clasifică documentul în "tip_document" ca una dintre valorile:
CI, PERMIS, TALON, AMIABILA, PROCURA, EXTRAS, POZA_DAUNA, ACTE_VINOVAT, ALTELE.

În "date_extrase" pune câmpurile citite de pe document (string, sau "null" dacă lipsesc):
- CI: nume, cnp
- TALON / PROCURA: nr_auto, vin, nume
- EXTRAS: iban, titular_cont
- AMIABILA: nr_auto_a, vin_a, nume_sofer_a, asigurator_a, nr_auto_b, vin_b, nume_sofer_b, asigurator_b

Pentru AMIABILA adaugă și "analiza_accident" cu "vinovat_probabil" una dintre:
"A", "B", "Comun", "Neculpa" — pe baza rubricilor bifate și a schiței accidentului.

Format:
{"tip_document": "...", "date_extrase": {...}, "analiza_accident": {"vinovat_probabil": "..."}}`

// GeminiExtractor classifies documents and extracts their fields with a
// Gemini vision model.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

func NewGeminiExtractor(ctx context.Context, cfg config.ExtractionConfig) (*GeminiExtractor, error) {
	if !cfg.IsExtractionEnabled() {
		return nil, fmt.Errorf("extraction is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiExtractor{
		client: client,
		model:  cfg.GetExtractionModel(),
	}, nil
}

func (e *GeminiExtractor) ExtractDocument(ctx context.Context, data []byte, contentType string) (domain.ExtractionPayload, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: contentType, Data: data}},
			{Text: extractionPrompt},
		},
	}}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return domain.ExtractionPayload{}, fmt.Errorf("extraction model call failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return domain.ExtractionPayload{}, fmt.Errorf("extraction model returned empty response")
	}

	var payload domain.ExtractionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &payload); err != nil {
		return domain.ExtractionPayload{}, fmt.Errorf("extraction model returned invalid JSON: %w", err)
	}
	if payload.DocType == "" {
		return domain.ExtractionPayload{}, fmt.Errorf("extraction model returned no document type")
	}

	return payload, nil
}

// stripCodeFence drops a markdown fence the model sometimes wraps JSON in even
// with a JSON response MIME type requested.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
