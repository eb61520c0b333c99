/**
 * @description
 * This file defines the goal lifecycle events published to the message broker.
 * Downstream consumers (the frame webhook pipeline) turn these into host
 * notifications; this service only produces them.
 */

package domain

import "time"

// Event routing keys published on the goal events exchange.
const (
	EventGoalCreated    = "goal.created"
	EventGoalCompleted  = "goal.completed"
	EventGoalFailed     = "goal.failed"
	EventSupporterAdded = "goal.supporter_added"
	EventIntentStale    = "goal.intent_stale"
)

// GoalEvent is the payload published for every goal lifecycle change.
type GoalEvent struct {
	GoalID       string    `json:"goal_id"`
	Action       string    `json:"action"`
	OwnerAddress string    `json:"owner_address"`
	TxHash       string    `json:"tx_hash,omitempty"`
	SupporterFID *int64    `json:"supporter_fid,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
