// Package domain provides core business rules for the claims bounded context:
// the conversation stage machine, the document checklist evaluator and the
// extraction fact reconciler. Everything in this package is pure; persistence
// and transport live above it.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies the transport a conversation runs over.
type Channel string

const (
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelWeb      Channel = "WEB"
)

// Direction of a communication log entry.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Resolution is the claimant's chosen settlement path.
type Resolution string

const (
	ResolutionUndecided  Resolution = "UNDECIDED"
	ResolutionOwnRegime  Resolution = "OWN_REGIME"
	ResolutionServiceRAR Resolution = "SERVICE_RAR"
	ResolutionTotalLoss  Resolution = "TOTAL_LOSS"
)

// VehicleRole tags a vehicle's part in the accident.
type VehicleRole string

const (
	RoleVictim      VehicleRole = "VICTIM"
	RolePerpetrator VehicleRole = "GUILTY"
	RoleUnknown     VehicleRole = "UNKNOWN"
)

// Client is a claimant identified by phone number. Created on first contact,
// enriched by reconciled CI/bank-statement extractions, never deleted.
type Client struct {
	ID          uuid.UUID
	PhoneNumber string
	FirstName   string
	LastName    string
	CNP         string
	IBAN        string
	CreatedAt   time.Time
}

// FullName joins the stored name parts for display and email use.
func (c Client) FullName() string {
	switch {
	case c.LastName == "":
		return c.FirstName
	case c.FirstName == "":
		return c.LastName
	default:
		return c.LastName + " " + c.FirstName
	}
}

// Case is one claim-intake workflow instance. At most one non-CLOSED case
// exists per client at a time.
type Case struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	Stage          Stage
	Resolution     Resolution
	IsHumanManaged bool

	HasIDCard         bool
	HasCarCoupon      bool
	HasAccidentReport bool
	HasSceneVideo     bool
	HasBankStatement  bool
	HasRepairAuth     bool
	HasMandateSigned  bool

	InsurerName  string
	InsurerEmail string
	OfferCents   *int64

	// LastChannel is the channel of the most recent inbound message; outbound
	// sends are routed through it.
	LastChannel Channel

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vehicle is one distinct license plate involved in a case. Created and merged
// by the fact reconciler only; (case, plate) is unique.
type Vehicle struct {
	ID          uuid.UUID
	CaseID      uuid.UUID
	Role        VehicleRole
	Plate       string
	VIN         string
	DriverName  string
	InsurerName string

	// Offender is meaningful only when OffenderKnown is true. A conclusive
	// verdict sets both; inconclusive verdicts never touch either.
	Offender      bool
	OffenderKnown bool
}

// DocType classifies an uploaded artifact. UNK until extraction decides.
type DocType string

const (
	DocUnknown        DocType = "UNK"
	DocIDCard         DocType = "CI"
	DocDriversLicense DocType = "PERMIS"
	DocCarCoupon      DocType = "TALON"
	DocAccidentReport DocType = "AMIABILA"
	DocMandate        DocType = "PROCURA"
	DocBankStatement  DocType = "EXTRAS"
	DocDamagePhoto    DocType = "POZA_DAUNA"
	DocSceneVideo     DocType = "VIDEO"
	DocOffenderPapers DocType = "ACTE_VINOVAT"
	DocOther          DocType = "ALTELE"
)

// Document is one uploaded artifact. The extraction pipeline writes Payload
// and DocType exactly once; a document with a non-nil Payload is terminal.
type Document struct {
	ID          uuid.UUID
	CaseID      uuid.UUID
	DocType     DocType
	FileKey     string
	ContentType string
	Payload     *ExtractionPayload
	UploadedAt  time.Time
}

// Extracted reports whether the single terminal extraction write happened.
func (d Document) Extracted() bool {
	return d.Payload != nil
}

// Message is one append-only communication log entry.
type Message struct {
	ID        int64
	CaseID    uuid.UUID
	Direction Direction
	Channel   Channel
	Content   string
	// Buttons holds the option set shown with a button prompt, for audit.
	Buttons   []string
	CreatedAt time.Time
}
