/**
 * @description
 * This file contains the core business logic for the goal-service. The Service
 * layer orchestrates data from the repository, applies the goal lifecycle
 * rules, and sequences off-chain persistence behind on-chain acceptance.
 *
 * @notes
 * - Mutating operations are two-phase: the wallet layer's transaction hash is
 *   recorded as an intent first, then the database write is applied. When the
 *   write fails after the hash was recorded the two systems disagree; that is
 *   surfaced as ErrInconsistentState so operators can reconcile manually.
 * - markCompleted/markFailed do not guard against re-transition. Re-invoking
 *   after a terminal state re-applies the terminal fields; if both are invoked
 *   the last write wins. There is no optimistic-concurrency check.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/megabyte0x/accountable/internal/domain"
	"github.com/megabyte0x/accountable/internal/store"
	"github.com/megabyte0x/accountable/pkg/rabbitmq"
)

var (
	// ErrNotOwner means the session wallet address does not own the goal.
	ErrNotOwner = errors.New("caller does not own this goal")

	// ErrInconsistentState means the chain accepted the transaction but the
	// off-chain write failed. The intent row stays in 'accepted' for the
	// reconciliation sweep.
	ErrInconsistentState = errors.New("transaction accepted but off-chain update failed")
)

// Repository defines the interface for database operations that the service needs.
type Repository interface {
	ListGoalsByOwner(ctx context.Context, address string) ([]domain.Goal, error)
	GetGoalByID(ctx context.Context, goalID string) (*domain.Goal, error)
	CreateGoal(ctx context.Context, goal domain.Goal) (*domain.Goal, error)
	UpdateGoal(ctx context.Context, goalID string, patch store.GoalPatch) (*domain.Goal, error)
	SupporterExists(ctx context.Context, goalID string, fid int64) (bool, error)
	AddSupporter(ctx context.Context, goalID string, supporter domain.Supporter) error
	ListSupporters(ctx context.Context, goalID string) ([]domain.Supporter, error)
	CreateIntent(ctx context.Context, intent domain.GoalIntent) error
	MarkIntentApplied(ctx context.Context, intentID uuid.UUID) error
	ListStaleIntents(ctx context.Context, cutoff time.Time) ([]domain.GoalIntent, error)
}

// Service provides the business logic for goal and supporter management.
type Service struct {
	repo      Repository
	publisher rabbitmq.Publisher
	exchange  string
	logger    *slog.Logger
}

// NewService creates a new goal service. The publisher may be nil when no
// broker is configured; events are then skipped.
func NewService(repo Repository, publisher rabbitmq.Publisher, exchange string, logger *slog.Logger) Service {
	return Service{repo: repo, publisher: publisher, exchange: exchange, logger: logger}
}

// ListGoalsByOwner retrieves all goals owned by a wallet address. A store
// failure degrades to an empty list with a logged diagnostic; it never
// propagates.
func (s Service) ListGoalsByOwner(ctx context.Context, address string) []domain.Goal {
	goals, err := s.repo.ListGoalsByOwner(ctx, address)
	if err != nil {
		s.logger.Warn("failed to list goals, returning empty list", "address", address, "error", err)
		return []domain.Goal{}
	}
	return goals
}

// GetGoalByID retrieves a single goal with supporters merged in. Absence and
// store failure both surface as ErrGoalNotFound; the failure is logged here.
func (s Service) GetGoalByID(ctx context.Context, goalID string) (*domain.Goal, error) {
	goal, err := s.repo.GetGoalByID(ctx, goalID)
	if err != nil {
		if !errors.Is(err, store.ErrGoalNotFound) {
			s.logger.Warn("failed to fetch goal", "goal_id", goalID, "error", err)
		}
		return nil, store.ErrGoalNotFound
	}
	return goal, nil
}

// CreateGoal persists a new goal after the stake transaction was accepted by
// the wallet layer. The new goal always starts active with is_completed false.
func (s Service) CreateGoal(ctx context.Context, req domain.CreateGoalRequest, ownerAddress string) (*domain.Goal, error) {
	goalID := strings.TrimSpace(req.ID)
	if goalID == "" {
		goalID = uuid.NewString()
	}

	intent := s.recordIntent(ctx, goalID, domain.IntentActionCreate, req.TxHash)

	supporters := req.Supporters
	if supporters == nil {
		supporters = []domain.Supporter{}
	}

	goal := domain.Goal{
		ID:           goalID,
		OwnerFID:     req.OwnerFID,
		OwnerAddress: ownerAddress,
		Title:        req.Title,
		Description:  req.Description,
		Deadline:     req.Deadline,
		StakeAmount:  req.StakeAmount,
		Status:       domain.GoalStatusActive,
		IsCompleted:  false,
		CreatedAt:    time.Now().UTC(),
		Supporters:   supporters,
	}

	created, err := s.repo.CreateGoal(ctx, goal)
	if err != nil {
		s.logger.Error("goal creation failed after transaction acceptance", "goal_id", goalID, "tx_hash", req.TxHash, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}

	s.applyIntent(ctx, intent)
	s.publishEvent(ctx, domain.EventGoalCreated, domain.GoalEvent{
		GoalID:       created.ID,
		Action:       domain.IntentActionCreate,
		OwnerAddress: created.OwnerAddress,
		TxHash:       req.TxHash,
		OccurredAt:   time.Now().UTC(),
	})

	return created, nil
}

// MarkCompleted transitions a goal to completed. Only the owner may invoke it.
func (s Service) MarkCompleted(ctx context.Context, goalID, callerAddress, txHash string) (*domain.Goal, error) {
	return s.transition(ctx, goalID, callerAddress, txHash, domain.GoalStatusCompleted, domain.IntentActionComplete, domain.EventGoalCompleted)
}

// MarkFailed transitions a goal to failed. Only the owner may invoke it.
func (s Service) MarkFailed(ctx context.Context, goalID, callerAddress, txHash string) (*domain.Goal, error) {
	return s.transition(ctx, goalID, callerAddress, txHash, domain.GoalStatusFailed, domain.IntentActionFail, domain.EventGoalFailed)
}

func (s Service) transition(ctx context.Context, goalID, callerAddress, txHash string, status domain.GoalStatus, action, eventKey string) (*domain.Goal, error) {
	goal, err := s.GetGoalByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(goal.OwnerAddress, callerAddress) {
		return nil, ErrNotOwner
	}

	intent := s.recordIntent(ctx, goalID, action, txHash)

	isCompleted := true
	patch := store.GoalPatch{Status: &status, IsCompleted: &isCompleted}
	updated, err := s.repo.UpdateGoal(ctx, goalID, patch)
	if err != nil {
		if errors.Is(err, store.ErrGoalNotFound) {
			return nil, store.ErrGoalNotFound
		}
		s.logger.Error("goal transition failed after transaction acceptance", "goal_id", goalID, "action", action, "tx_hash", txHash, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}

	s.applyIntent(ctx, intent)
	s.publishEvent(ctx, eventKey, domain.GoalEvent{
		GoalID:       goalID,
		Action:       action,
		OwnerAddress: updated.OwnerAddress,
		TxHash:       txHash,
		OccurredAt:   time.Now().UTC(),
	})

	return updated, nil
}

// AddSupporter attaches a supporter to a goal. Adding the same fid twice is a
// no-op; the existing row wins and the updated goal is returned either way.
func (s Service) AddSupporter(ctx context.Context, goalID, callerAddress string, supporter domain.Supporter) (*domain.Goal, error) {
	goal, err := s.GetGoalByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(goal.OwnerAddress, callerAddress) {
		return nil, ErrNotOwner
	}

	exists, err := s.repo.SupporterExists(ctx, goalID, supporter.FID)
	if err != nil {
		s.logger.Warn("supporter existence check failed", "goal_id", goalID, "fid", supporter.FID, "error", err)
		return nil, err
	}

	if !exists {
		if err := s.repo.AddSupporter(ctx, goalID, supporter); err != nil {
			s.logger.Warn("failed to add supporter", "goal_id", goalID, "fid", supporter.FID, "error", err)
			return nil, err
		}

		fid := supporter.FID
		s.publishEvent(ctx, domain.EventSupporterAdded, domain.GoalEvent{
			GoalID:       goalID,
			Action:       "supporter_added",
			OwnerAddress: goal.OwnerAddress,
			SupporterFID: &fid,
			OccurredAt:   time.Now().UTC(),
		})
	}

	return s.GetGoalByID(ctx, goalID)
}

// ListSupporters retrieves the supporters attached to a goal. A store failure
// degrades to an empty list with a logged diagnostic.
func (s Service) ListSupporters(ctx context.Context, goalID string) []domain.Supporter {
	supporters, err := s.repo.ListSupporters(ctx, goalID)
	if err != nil {
		s.logger.Warn("failed to list supporters, returning empty list", "goal_id", goalID, "error", err)
		return []domain.Supporter{}
	}
	return supporters
}

// recordIntent persists the phase-1 acceptance record. A failure to record the
// intent is logged and not fatal: the persistence write is still the priority.
func (s Service) recordIntent(ctx context.Context, goalID, action, txHash string) domain.GoalIntent {
	intent := domain.GoalIntent{
		ID:        uuid.New(),
		GoalID:    goalID,
		Action:    action,
		TxHash:    txHash,
		Phase:     domain.IntentPhaseAccepted,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateIntent(ctx, intent); err != nil {
		s.logger.Warn("failed to record transaction intent", "goal_id", goalID, "action", action, "error", err)
	}
	return intent
}

func (s Service) applyIntent(ctx context.Context, intent domain.GoalIntent) {
	if err := s.repo.MarkIntentApplied(ctx, intent.ID); err != nil {
		s.logger.Warn("failed to mark intent applied", "intent_id", intent.ID, "error", err)
	}
}

// publishEvent sends a lifecycle event to the broker. Publish failures are
// logged and never propagated to the caller.
func (s Service) publishEvent(ctx context.Context, routingKey string, event domain.GoalEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.exchange, routingKey, event); err != nil {
		s.logger.Warn("failed to publish goal event", "routing_key", routingKey, "goal_id", event.GoalID, "error", err)
	}
}
