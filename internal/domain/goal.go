/**
 * @description
 * This file defines the core domain models for the Accountable goal-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Stake amounts are carried as base-unit (wei) decimal strings end to end.
 *   They are never parsed into floats; payout math happens on-chain, not here.
 * - The supporter identity key is the Farcaster numeric id (fid). Wallet
 *   address, display name and avatar are optional presentation metadata.
 */

package domain

import (
	"time"
)

// GoalStatus enumerates the lifecycle states of a goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusFailed    GoalStatus = "failed"
)

// Terminal reports whether the status is an end state. There is no path back
// to 'active' once a goal has been completed or failed.
func (s GoalStatus) Terminal() bool {
	return s == GoalStatusCompleted || s == GoalStatusFailed
}

// Goal is the central entity: a staked commitment owned by one wallet address.
// It maps to the `goals` table in the database.
type Goal struct {
	ID           string      `json:"id"`
	OwnerFID     *int64      `json:"user_id,omitempty"`
	OwnerAddress string      `json:"address"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Deadline     time.Time   `json:"deadline"`
	StakeAmount  string      `json:"stake_amount"` // in wei
	Status       GoalStatus  `json:"status"`
	IsCompleted  bool        `json:"is_completed"`
	CreatedAt    time.Time   `json:"created_at"`
	Supporters   []Supporter `json:"supporters"`
}

// Supporter is an accountability partner attached to a goal. A supporter row
// belongs to exactly one goal and is keyed by (goal_id, fid).
type Supporter struct {
	FID           int64  `json:"user_id"`
	WalletAddress string `json:"user_address,omitempty"`
	DisplayName   string `json:"user_name,omitempty"`
	AvatarURL     string `json:"user_avatar,omitempty"`
}

// FarcasterUser is the ephemeral result of a social-graph lookup. It is never
// persisted; it only exists to populate a Supporter before it is added.
type FarcasterUser struct {
	FID           int64  `json:"fid"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url"`
	WalletAddress string `json:"wallet_address"`
}

// Supporter projects a FarcasterUser into the Supporter shape.
func (u FarcasterUser) Supporter() Supporter {
	return Supporter{
		FID:           u.FID,
		WalletAddress: u.WalletAddress,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
	}
}

// CreateGoalRequest is the DTO for incoming goal creation API requests.
// The transaction hash is the wallet layer's acceptance receipt for the stake
// transfer; persistence only happens once the client has it.
type CreateGoalRequest struct {
	ID          string      `json:"id"`
	OwnerFID    *int64      `json:"user_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Deadline    time.Time   `json:"deadline"`
	StakeAmount string      `json:"stake_amount"` // in wei
	Supporters  []Supporter `json:"supporters"`
	TxHash      string      `json:"tx_hash"`
}

// TransitionGoalRequest is the DTO for marking a goal completed or failed.
type TransitionGoalRequest struct {
	TxHash string `json:"tx_hash"`
}

// AddSupporterRequest is the DTO for attaching a supporter to a goal.
type AddSupporterRequest struct {
	Supporter Supporter `json:"supporter"`
}

// LookupResult is the normalized outcome of an identity lookup. A nil User
// with an empty Message means "no match"; a non-empty Message carries a
// human-readable failure description. Callers treat upstream errors and
// business "not found" identically.
type LookupResult struct {
	User    *FarcasterUser `json:"user"`
	Message string         `json:"message,omitempty"`
}
