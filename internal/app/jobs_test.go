package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/megabyte0x/accountable/internal/domain"
)

func TestReconcileStaleIntentsFlagsAcceptedRows(t *testing.T) {
	repo := newFakeRepo()

	staleID := uuid.New()
	repo.intents[staleID] = &domain.GoalIntent{
		ID:        staleID,
		GoalID:    "g1",
		Action:    domain.IntentActionComplete,
		TxHash:    "0xdead",
		Phase:     domain.IntentPhaseAccepted,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}

	freshID := uuid.New()
	repo.intents[freshID] = &domain.GoalIntent{
		ID:        freshID,
		GoalID:    "g2",
		Action:    domain.IntentActionCreate,
		TxHash:    "0xbeef",
		Phase:     domain.IntentPhaseAccepted,
		CreatedAt: time.Now().UTC(),
	}

	appliedID := uuid.New()
	repo.intents[appliedID] = &domain.GoalIntent{
		ID:        appliedID,
		GoalID:    "g3",
		Action:    domain.IntentActionFail,
		TxHash:    "0xfeed",
		Phase:     domain.IntentPhaseApplied,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}

	publisher := &capturingPublisher{}
	jobs := NewJobs(repo, publisher, "accountable.goal_events", 10*time.Minute, testLogger())

	flagged := jobs.ReconcileStaleIntents(context.Background())

	if flagged != 1 {
		t.Fatalf("expected exactly one flagged intent, got %d", flagged)
	}
	if len(publisher.keys) != 1 || publisher.keys[0] != domain.EventIntentStale {
		t.Fatalf("expected one goal.intent_stale event, got %v", publisher.keys)
	}
}

func TestReconcileStaleIntentsSurvivesStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("database unavailable")

	jobs := NewJobs(repo, &capturingPublisher{}, "accountable.goal_events", 10*time.Minute, testLogger())

	if flagged := jobs.ReconcileStaleIntents(context.Background()); flagged != 0 {
		t.Fatalf("expected zero flagged intents on store failure, got %d", flagged)
	}
}
