/**
 * @description
 * This file defines the transaction-intent records that sequence on-chain
 * acceptance against off-chain persistence. Every mutating goal operation
 * records an intent carrying the wallet layer's transaction hash before the
 * database write is applied.
 *
 * @notes
 * - An intent stuck in the 'accepted' phase means the chain moved but the
 *   database write failed. The reconciliation sweep reports those rows so an
 *   operator can resolve them manually; the service never rolls back a chain
 *   transaction.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Intent actions. They match the goal operation that recorded them.
const (
	IntentActionCreate   = "create"
	IntentActionComplete = "complete"
	IntentActionFail     = "fail"
)

// Intent phases. 'accepted' means the transaction hash was recorded but the
// persistence write has not (yet) succeeded; 'applied' means both sides agree.
const (
	IntentPhaseAccepted = "accepted"
	IntentPhaseApplied  = "applied"
)

// GoalIntent maps to the `goal_intents` table.
type GoalIntent struct {
	ID        uuid.UUID  `json:"id"`
	GoalID    string     `json:"goal_id"`
	Action    string     `json:"action"`
	TxHash    string     `json:"tx_hash"`
	Phase     string     `json:"phase"`
	CreatedAt time.Time  `json:"created_at"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}
