package domain

import "fmt"

// MissingCode identifies one unmet checklist requirement.
type MissingCode string

const (
	MissingIDCard         MissingCode = "id_card"
	MissingCarCoupon      MissingCode = "car_coupon"
	MissingAccidentReport MissingCode = "accident_report"
	MissingDamageEvidence MissingCode = "damage_evidence"
	MissingBankStatement  MissingCode = "bank_statement"
)

// MissingItem is one unmet requirement with its user-facing label.
type MissingItem struct {
	Code  MissingCode
	Label string
}

// MissingItems recomputes the document checklist from the case's current
// flags. It is pure and never cached, so it is safe to call after every flag
// mutation. Completeness is not monotonic: changing the resolution choice can
// re-open the checklist (OWN_REGIME additionally requires a bank statement).
//
// damagePhotos is a live count over damage-classified case documents, not a
// flag, because "enough photos" is a threshold. The threshold itself is a
// parameter so product can tune it without a code change.
func MissingItems(c Case, damagePhotos, photoThreshold int) []MissingItem {
	var missing []MissingItem

	if !c.HasIDCard {
		missing = append(missing, MissingItem{MissingIDCard, "Buletin (CI)"})
	}
	if !c.HasCarCoupon {
		missing = append(missing, MissingItem{MissingCarCoupon, "Talon Auto"})
	}
	if !c.HasAccidentReport {
		missing = append(missing, MissingItem{MissingAccidentReport, "Amiabilă / Proces Verbal"})
	}
	if !c.HasSceneVideo && damagePhotos < photoThreshold {
		missing = append(missing, MissingItem{
			MissingDamageEvidence,
			fmt.Sprintf("Video de la fața locului sau minim %d poze cu daunele", photoThreshold),
		})
	}
	if c.Resolution == ResolutionOwnRegime && !c.HasBankStatement {
		missing = append(missing, MissingItem{MissingBankStatement, "Extras de cont (IBAN)"})
	}

	return missing
}

// ChecklistComplete reports whether every requirement for the case's current
// resolution choice is satisfied.
func ChecklistComplete(c Case, damagePhotos, photoThreshold int) bool {
	return len(MissingItems(c, damagePhotos, photoThreshold)) == 0
}
