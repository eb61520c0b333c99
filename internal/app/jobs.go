/**
 * @description
 * Scheduled job implementations for the goal-service. The reconciliation sweep
 * finds transaction intents stuck in the 'accepted' phase: the chain moved but
 * the off-chain write never landed. Those rows are reported for manual
 * reconciliation; the service never compensates on-chain.
 */

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/megabyte0x/accountable/internal/domain"
	"github.com/megabyte0x/accountable/pkg/rabbitmq"
)

// Jobs bundles the dependencies the scheduled jobs need.
type Jobs struct {
	repo       Repository
	publisher  rabbitmq.Publisher
	exchange   string
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewJobs creates the job set.
func NewJobs(repo Repository, publisher rabbitmq.Publisher, exchange string, staleAfter time.Duration, logger *slog.Logger) *Jobs {
	return &Jobs{
		repo:       repo,
		publisher:  publisher,
		exchange:   exchange,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// ReconcileStaleIntents reports intents that were accepted on-chain longer ago
// than the cutoff without the matching persistence write. It returns how many
// rows it flagged.
func (j *Jobs) ReconcileStaleIntents(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-j.staleAfter)

	intents, err := j.repo.ListStaleIntents(ctx, cutoff)
	if err != nil {
		j.logger.Warn("stale intent sweep failed", "error", err)
		return 0
	}

	for _, intent := range intents {
		j.logger.Error("inconsistent state: transaction accepted without off-chain write",
			"intent_id", intent.ID,
			"goal_id", intent.GoalID,
			"action", intent.Action,
			"tx_hash", intent.TxHash,
			"accepted_at", intent.CreatedAt,
		)

		if j.publisher != nil {
			event := domain.GoalEvent{
				GoalID:     intent.GoalID,
				Action:     intent.Action,
				TxHash:     intent.TxHash,
				OccurredAt: time.Now().UTC(),
			}
			if err := j.publisher.Publish(ctx, j.exchange, domain.EventIntentStale, event); err != nil {
				j.logger.Warn("failed to publish stale intent event", "intent_id", intent.ID, "error", err)
			}
		}
	}

	return len(intents)
}

// RunReconcileStaleIntents adapts the sweep to the cron entrypoint signature.
func (j *Jobs) RunReconcileStaleIntents() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	flagged := j.ReconcileStaleIntents(ctx)
	if flagged > 0 {
		j.logger.Info("stale intent sweep finished", "flagged", flagged)
	}
}
