package domain

import "fmt"

// Stage is the case's position in the conversation state machine. The set is
// closed: repositories reject unknown values and transitions outside the table
// below fail with ErrUnknownTransition instead of falling through.
type Stage string

const (
	StageGreeting          Stage = "GREETING"
	StageCollectingDocs    Stage = "COLLECTING_DOCS"
	StageSigningMandate    Stage = "SIGNING_MANDATE"
	StageProcessingInsurer Stage = "PROCESSING_INSURER"
	StageOfferDecision     Stage = "OFFER_DECISION"
	StageClosed            Stage = "CLOSED"

	// StageSelectingResolution is a legacy dead-end kept for cases persisted
	// before resolution selection was folded into COLLECTING_DOCS. It handles
	// resolution intents exactly like COLLECTING_DOCS and is never entered by
	// new cases.
	StageSelectingResolution Stage = "SELECTING_RESOLUTION"
)

var knownStages = map[Stage]struct{}{
	StageGreeting:            {},
	StageCollectingDocs:      {},
	StageSelectingResolution: {},
	StageSigningMandate:      {},
	StageProcessingInsurer:   {},
	StageOfferDecision:       {},
	StageClosed:              {},
}

// IsKnownStage reports whether stage is part of the closed enumeration.
func IsKnownStage(stage Stage) bool {
	_, ok := knownStages[stage]
	return ok
}

// IsTerminalStage reports whether no further automated processing may occur.
func IsTerminalStage(stage Stage) bool {
	return stage == StageClosed
}

// stageTransitions is the exhaustive edge set of the conversation FSM.
// Self-loops are implicit: staying in the current stage is always legal.
// CLOSED is reachable from everywhere (a case can always be retired) and
// leads nowhere.
var stageTransitions = map[Stage][]Stage{
	StageGreeting:            {StageCollectingDocs},
	StageCollectingDocs:      {StageSigningMandate},
	StageSelectingResolution: {StageSigningMandate},
	StageSigningMandate:      {StageProcessingInsurer},
	StageProcessingInsurer:   {StageOfferDecision},
	StageOfferDecision:       {StageProcessingInsurer},
	StageClosed:              {},
}

// ErrUnknownTransition is returned for edges outside the transition table.
type ErrUnknownTransition struct {
	From Stage
	To   Stage
}

func (e ErrUnknownTransition) Error() string {
	return fmt.Sprintf("unknown stage transition %s -> %s", e.From, e.To)
}

// CanTransition validates an edge of the stage graph. Unknown stages and
// unlisted edges are errors; there is no permissive default branch.
func CanTransition(from, to Stage) error {
	if !IsKnownStage(from) || !IsKnownStage(to) {
		return ErrUnknownTransition{From: from, To: to}
	}
	if from == to {
		return nil
	}
	if to == StageClosed {
		return nil
	}
	for _, next := range stageTransitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrUnknownTransition{From: from, To: to}
}
