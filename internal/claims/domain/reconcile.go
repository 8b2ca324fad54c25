package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ExtractionPayload is the structured result of the document extraction model.
// Field names mirror the model's JSON contract (Romanian document OCR).
type ExtractionPayload struct {
	DocType string            `json:"tip_document"`
	Fields  map[string]string `json:"date_extrase"`
	Verdict *AccidentAnalysis `json:"analiza_accident,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// AccidentAnalysis is the model's fault assessment for an AMIABILA form.
// LikelyOffender is one of "A", "B", "Comun" or "Neculpa"; anything else is
// treated as inconclusive.
type AccidentAnalysis struct {
	LikelyOffender string `json:"vinovat_probabil"`
}

// Field returns a cleaned extracted field value. The model sometimes emits the
// literal string "null"; that and surrounding whitespace are stripped.
func (p ExtractionPayload) Field(name string) string {
	if p.Fields == nil {
		return ""
	}
	return cleanField(p.Fields[name])
}

func cleanField(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "null") {
		return ""
	}
	return v
}

// ResolveDocType maps the model's free-form document label onto the closed
// DocType enum. Unrecognized labels stay UNK.
func ResolveDocType(raw string) DocType {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(upper, "AMIABILA") || strings.Contains(upper, "CONSTATARE"):
		return DocAccidentReport
	case strings.Contains(upper, "TALON"):
		return DocCarCoupon
	case strings.Contains(upper, "PROCURA"):
		return DocMandate
	case strings.Contains(upper, "EXTRAS"):
		return DocBankStatement
	case strings.Contains(upper, "PERMIS"):
		return DocDriversLicense
	case strings.Contains(upper, "POZA") || strings.Contains(upper, "PHOTO"):
		return DocDamagePhoto
	case strings.Contains(upper, "VINOVAT"):
		return DocOffenderPapers
	case strings.Contains(upper, "CI") || strings.Contains(upper, "BULETIN"):
		return DocIDCard
	case strings.Contains(upper, "ALTELE"):
		return DocOther
	default:
		return DocUnknown
	}
}

// ApplyDocFlags raises the checklist flag matching a classified document.
// Flags only ever go from false to true here; re-processing the same document
// type is a no-op. Returns true when a flag changed.
func ApplyDocFlags(c *Case, dt DocType) bool {
	switch dt {
	case DocIDCard:
		if !c.HasIDCard {
			c.HasIDCard = true
			return true
		}
	case DocCarCoupon:
		if !c.HasCarCoupon {
			c.HasCarCoupon = true
			return true
		}
	case DocAccidentReport:
		if !c.HasAccidentReport {
			c.HasAccidentReport = true
			return true
		}
	case DocBankStatement:
		if !c.HasBankStatement {
			c.HasBankStatement = true
			return true
		}
	}
	return false
}

// NormalizePlate is the merge key normalization: uppercase with all spacing
// removed, so "ag 22 paw" and "AG22PAW" address the same vehicle.
func NormalizePlate(plate string) string {
	cleaned := cleanField(plate)
	cleaned = strings.ToUpper(cleaned)
	return strings.Join(strings.Fields(cleaned), "")
}

// vehicleCandidate is one vehicle record proposed by an extraction payload
// before merging. roleTag is "A" or "B" for AMIABILA columns, empty for
// generic single-vehicle documents.
type vehicleCandidate struct {
	roleTag     string
	plate       string
	vin         string
	driverName  string
	insurerName string
}

// vehicleCandidates routes a payload by document type into candidate vehicle
// records. AMIABILA yields the two columns; TALON and PROCURA yield one
// generic vehicle; everything else yields none.
func vehicleCandidates(p ExtractionPayload) []vehicleCandidate {
	switch ResolveDocType(p.DocType) {
	case DocAccidentReport:
		return []vehicleCandidate{
			{
				roleTag:     "A",
				plate:       p.Field("nr_auto_a"),
				vin:         p.Field("vin_a"),
				driverName:  p.Field("nume_sofer_a"),
				insurerName: p.Field("asigurator_a"),
			},
			{
				roleTag:     "B",
				plate:       p.Field("nr_auto_b"),
				vin:         p.Field("vin_b"),
				driverName:  p.Field("nume_sofer_b"),
				insurerName: p.Field("asigurator_b"),
			},
		}
	case DocCarCoupon, DocMandate:
		return []vehicleCandidate{
			{
				plate:      p.Field("nr_auto"),
				vin:        p.Field("vin"),
				driverName: p.Field("nume"),
			},
		}
	default:
		return nil
	}
}

// verdictFor resolves the fault verdict for one candidate. The verdict is
// conclusive only for tagged AMIABILA columns and only when the model names a
// column ("A", "B") or shared fault ("Comun"). "Neculpa", empty and anything
// else leave the offender determination untouched.
func verdictFor(roleTag string, v *AccidentAnalysis) (offender, known bool) {
	if v == nil || roleTag == "" {
		return false, false
	}
	switch strings.ToUpper(cleanField(v.LikelyOffender)) {
	case "A":
		return roleTag == "A", true
	case "B":
		return roleTag == "B", true
	case "COMUN":
		return true, true
	default:
		return false, false
	}
}

// VehicleChange is the reconciler's output for one vehicle: the full post-merge
// record plus whether it must be inserted or updated.
type VehicleChange struct {
	Vehicle Vehicle
	Created bool
	Updated bool
}

// ReconcileVehicles merges an extraction payload into the case's existing
// vehicles. The merge is monotonic and idempotent:
//
//   - the normalized plate is the merge key; candidates without a plate are
//     discarded entirely,
//   - only non-empty extracted fields overwrite stored fields,
//   - the offender determination is written only under a conclusive verdict,
//     so a later inconclusive document never erases established guilt,
//   - merging the same payload twice yields no change the second time.
func ReconcileVehicles(p ExtractionPayload, caseID uuid.UUID, existing []Vehicle) []VehicleChange {
	var changes []VehicleChange

	for _, cand := range vehicleCandidates(p) {
		plate := NormalizePlate(cand.plate)
		if plate == "" {
			continue
		}

		offender, known := verdictFor(cand.roleTag, p.Verdict)

		current := findVehicle(existing, plate)
		if current == nil {
			v := Vehicle{
				ID:          uuid.New(),
				CaseID:      caseID,
				Role:        roleFromVerdict(offender, known),
				Plate:       plate,
				VIN:         strings.ToUpper(cleanField(cand.vin)),
				DriverName:  cleanField(cand.driverName),
				InsurerName: cleanField(cand.insurerName),
			}
			if known {
				v.Offender = offender
				v.OffenderKnown = true
			}
			changes = append(changes, VehicleChange{Vehicle: v, Created: true})
			continue
		}

		merged := *current
		updated := false

		if vin := strings.ToUpper(cleanField(cand.vin)); vin != "" && vin != merged.VIN {
			merged.VIN = vin
			updated = true
		}
		if name := cleanField(cand.driverName); name != "" && name != merged.DriverName {
			merged.DriverName = name
			updated = true
		}
		if insurer := cleanField(cand.insurerName); insurer != "" && insurer != merged.InsurerName {
			merged.InsurerName = insurer
			updated = true
		}
		if known && (!merged.OffenderKnown || merged.Offender != offender) {
			merged.Offender = offender
			merged.OffenderKnown = true
			updated = true
		}
		if known && merged.Role == RoleUnknown {
			merged.Role = roleFromVerdict(offender, known)
			updated = true
		}

		if updated {
			changes = append(changes, VehicleChange{Vehicle: merged, Updated: true})
		}
	}

	return changes
}

func findVehicle(existing []Vehicle, plate string) *Vehicle {
	for i := range existing {
		if existing[i].Plate == plate {
			return &existing[i]
		}
	}
	return nil
}

func roleFromVerdict(offender, known bool) VehicleRole {
	if !known {
		return RoleUnknown
	}
	if offender {
		return RolePerpetrator
	}
	return RoleVictim
}

// ReconcileClient merges client identity fields from CI and bank-statement
// extractions. Same non-destructive rule as vehicles: only non-empty extracted
// values are written, so an all-null payload never changes stored state.
func ReconcileClient(p ExtractionPayload, client Client) (Client, bool) {
	merged := client
	updated := false

	switch ResolveDocType(p.DocType) {
	case DocIDCard:
		if name := cleanField(p.Field("nume")); name != "" {
			first, last := SplitName(name)
			if first != "" && first != merged.FirstName {
				merged.FirstName = first
				updated = true
			}
			if last != "" && last != merged.LastName {
				merged.LastName = last
				updated = true
			}
		}
		if cnp := p.Field("cnp"); cnp != "" && cnp != merged.CNP {
			merged.CNP = cnp
			updated = true
		}
	case DocBankStatement:
		if iban := strings.ToUpper(strings.ReplaceAll(p.Field("iban"), " ", "")); iban != "" && iban != merged.IBAN {
			merged.IBAN = iban
			updated = true
		}
		if holder := p.Field("titular_cont"); holder != "" && merged.FirstName == "" && merged.LastName == "" {
			merged.FirstName, merged.LastName = splitNameParts(holder)
			updated = true
		}
	}

	return merged, updated
}

// SplitName splits an OCR'd "NUME PRENUME" string. Romanian identity documents
// list the family name first.
func SplitName(full string) (first, last string) {
	return splitNameParts(full)
}

func splitNameParts(full string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(full))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return strings.Join(fields[1:], " "), fields[0]
	}
}
