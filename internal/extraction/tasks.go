package extraction

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskExtractDocument = "extraction.document.extract"

type ExtractDocumentPayload struct {
	DocumentID string `json:"documentId"`
	CaseID     string `json:"caseId"`
}

func NewExtractDocumentTask(payload ExtractDocumentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExtractDocument, data), nil
}

func ParseExtractDocumentPayload(task *asynq.Task) (ExtractDocumentPayload, error) {
	var payload ExtractDocumentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExtractDocumentPayload{}, err
	}
	return payload, nil
}
