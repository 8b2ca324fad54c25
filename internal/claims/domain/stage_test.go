package domain

import (
	"errors"
	"testing"
)

func TestCanTransition_TableEdges(t *testing.T) {
	allowed := [][2]Stage{
		{StageGreeting, StageCollectingDocs},
		{StageCollectingDocs, StageSigningMandate},
		{StageSelectingResolution, StageSigningMandate},
		{StageSigningMandate, StageProcessingInsurer},
		{StageProcessingInsurer, StageOfferDecision},
		{StageOfferDecision, StageProcessingInsurer},
	}
	for _, edge := range allowed {
		if err := CanTransition(edge[0], edge[1]); err != nil {
			t.Fatalf("edge %s -> %s should be legal: %v", edge[0], edge[1], err)
		}
	}

	forbidden := [][2]Stage{
		{StageGreeting, StageSigningMandate},
		{StageCollectingDocs, StageProcessingInsurer},
		{StageClosed, StageGreeting},
		{StageProcessingInsurer, StageCollectingDocs},
	}
	for _, edge := range forbidden {
		err := CanTransition(edge[0], edge[1])
		var unknown ErrUnknownTransition
		if !errors.As(err, &unknown) {
			t.Fatalf("edge %s -> %s should fail with ErrUnknownTransition, got %v", edge[0], edge[1], err)
		}
	}
}

func TestCanTransition_SelfLoopAndClose(t *testing.T) {
	for stage := range knownStages {
		if err := CanTransition(stage, stage); err != nil {
			t.Fatalf("self-loop on %s should be legal: %v", stage, err)
		}
		if err := CanTransition(stage, StageClosed); err != nil {
			t.Fatalf("%s -> CLOSED should be legal: %v", stage, err)
		}
	}
}

func TestCanTransition_RejectsUnknownStage(t *testing.T) {
	if err := CanTransition(Stage("DRAFT"), StageGreeting); err == nil {
		t.Fatal("unknown source stage must be rejected")
	}
	if err := CanTransition(StageGreeting, Stage("ARCHIVED")); err == nil {
		t.Fatal("unknown target stage must be rejected")
	}
}
