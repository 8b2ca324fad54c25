// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"claims_intake_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Case Domain Events
// =============================================================================

// CaseOpened is published when a new intake case is created in GREETING.
type CaseOpened struct {
	BaseEvent
	CaseID   uuid.UUID `json:"caseId"`
	ClientID uuid.UUID `json:"clientId"`
	Channel  string    `json:"channel"`
}

func (e CaseOpened) EventName() string { return "claims.case.opened" }

// StageChanged is published after a validated stage transition is persisted.
type StageChanged struct {
	BaseEvent
	CaseID   uuid.UUID `json:"caseId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
}

func (e StageChanged) EventName() string { return "claims.case.stage_changed" }

// ChecklistCompleted is published when the document checklist closes for the
// case's current resolution choice.
type ChecklistCompleted struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	Resolution string    `json:"resolution"`
}

func (e ChecklistCompleted) EventName() string { return "claims.case.checklist_completed" }

// MandateSigned is published when the claimant signs the representation
// mandate. The insurer submission flow hangs off this event.
type MandateSigned struct {
	BaseEvent
	CaseID uuid.UUID `json:"caseId"`
}

func (e MandateSigned) EventName() string { return "claims.mandate.signed" }

// =============================================================================
// Extraction Domain Events
// =============================================================================

// DocumentExtracted is published after the terminal extraction write for a
// document succeeds and the reconciled facts are persisted.
type DocumentExtracted struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	DocumentID uuid.UUID `json:"documentId"`
	DocType    string    `json:"docType"`
}

func (e DocumentExtracted) EventName() string { return "extraction.document.extracted" }

// ExtractionFailed is published when a document exhausts its extraction
// retries. The conversation layer tells the user to resend the file.
type ExtractionFailed struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	DocumentID uuid.UUID `json:"documentId"`
	Reason     string    `json:"reason"`
}

func (e ExtractionFailed) EventName() string { return "extraction.document.failed" }

// =============================================================================
// Insurer Domain Events
// =============================================================================

// ClaimSubmitted is published after the claim email to the insurer is sent.
type ClaimSubmitted struct {
	BaseEvent
	CaseID       uuid.UUID `json:"caseId"`
	InsurerName  string    `json:"insurerName"`
	InsurerEmail string    `json:"insurerEmail"`
}

func (e ClaimSubmitted) EventName() string { return "insurer.claim.submitted" }

// InsurerRelayRequested is published when the claimant writes while the case
// sits with the insurer. The insurer module forwards the message to the
// claims mailbox the case was filed with.
type InsurerRelayRequested struct {
	BaseEvent
	CaseID uuid.UUID `json:"caseId"`
	Text   string    `json:"text"`
}

func (e InsurerRelayRequested) EventName() string { return "insurer.relay.requested" }

// OfferReceived is published when the insurer's settlement offer is recorded.
type OfferReceived struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	OfferCents int64     `json:"offerCents"`
}

func (e OfferReceived) EventName() string { return "insurer.offer.received" }
