package domain

import "testing"

func completeCase() Case {
	return Case{
		Stage:             StageCollectingDocs,
		Resolution:        ResolutionServiceRAR,
		HasIDCard:         true,
		HasCarCoupon:      true,
		HasAccidentReport: true,
		HasSceneVideo:     true,
	}
}

func TestMissingItems_EmptyCaseListsAllBaseRequirements(t *testing.T) {
	missing := MissingItems(Case{Resolution: ResolutionUndecided}, 0, 4)

	codes := map[MissingCode]bool{}
	for _, m := range missing {
		codes[m.Code] = true
	}
	for _, want := range []MissingCode{MissingIDCard, MissingCarCoupon, MissingAccidentReport, MissingDamageEvidence} {
		if !codes[want] {
			t.Fatalf("expected %s in missing list, got %v", want, missing)
		}
	}
	if codes[MissingBankStatement] {
		t.Fatal("bank statement must not be required before OWN_REGIME is chosen")
	}
}

func TestMissingItems_VideoSatisfiesDamageEvidence(t *testing.T) {
	c := completeCase()
	if !ChecklistComplete(c, 0, 4) {
		t.Fatalf("video case should be complete, missing %v", MissingItems(c, 0, 4))
	}
}

func TestMissingItems_PhotoThresholdSatisfiesDamageEvidence(t *testing.T) {
	c := completeCase()
	c.HasSceneVideo = false

	if ChecklistComplete(c, 3, 4) {
		t.Fatal("3 photos must not satisfy a threshold of 4")
	}
	if !ChecklistComplete(c, 4, 4) {
		t.Fatalf("4 photos should satisfy the threshold, missing %v", MissingItems(c, 4, 4))
	}
}

func TestMissingItems_OwnRegimeReopensChecklist(t *testing.T) {
	c := completeCase()
	if !ChecklistComplete(c, 0, 4) {
		t.Fatal("precondition: SERVICE_RAR case complete")
	}

	c.Resolution = ResolutionOwnRegime
	missing := MissingItems(c, 0, 4)
	if len(missing) != 1 || missing[0].Code != MissingBankStatement {
		t.Fatalf("switching to OWN_REGIME must require only the bank statement, got %v", missing)
	}

	c.HasBankStatement = true
	if !ChecklistComplete(c, 0, 4) {
		t.Fatal("bank statement should close the reopened checklist")
	}
}
