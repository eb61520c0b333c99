/**
 * @description
 * This file implements the data access layer for the goal-service. It contains
 * all the SQL queries and logic for interacting with the goals, supporters and
 * goal_intents tables.
 *
 * @notes
 * - The supporters join table is the canonical representation; the legacy
 *   embedded `supporters` column on goals is read but never written.
 * - Supporter dedupe is a read-then-write existence check. Two near-simultaneous
 *   additions of the same fid can race; the (goal_id, user_id) primary key
 *   absorbs that on the write by treating the conflict as a no-op.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/megabyte0x/accountable/internal/domain"
)

// ErrGoalNotFound signals an absent goal. Callers translate it to an
// absence result rather than a failure.
var ErrGoalNotFound = errors.New("goal not found")

const goalColumns = "id, user_id, address, title, description, deadline, stake_amount, status, is_completed, created_at, supporters"

// Repository handles database operations for goals and supporters.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanGoalRow(row pgx.Row) (goalRow, error) {
	var g goalRow
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&g.Address,
		&g.Title,
		&g.Description,
		&g.Deadline,
		&g.StakeAmount,
		&g.Status,
		&g.IsCompleted,
		&g.CreatedAt,
		&g.Supporters,
	)
	return g, err
}

// ListGoalsByOwner retrieves all goals created by the given wallet address.
func (r *Repository) ListGoalsByOwner(ctx context.Context, address string) ([]domain.Goal, error) {
	query := fmt.Sprintf(`SELECT %s FROM goals WHERE address = $1 ORDER BY created_at DESC`, goalColumns)

	rows, err := r.db.Query(ctx, query, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []domain.Goal{}
	for rows.Next() {
		row, err := scanGoalRow(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, mapGoalFromRow(row, nil))
	}
	return goals, rows.Err()
}

// GetGoalByID retrieves a single goal with its supporters merged in.
func (r *Repository) GetGoalByID(ctx context.Context, goalID string) (*domain.Goal, error) {
	query := fmt.Sprintf(`SELECT %s FROM goals WHERE id = $1`, goalColumns)

	row, err := scanGoalRow(r.db.QueryRow(ctx, query, goalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}

	supporters, err := r.ListSupporters(ctx, goalID)
	if err != nil {
		return nil, err
	}
	// Joined rows win; fall back to the legacy embedded column for rows
	// written before the supporters table existed.
	if len(supporters) == 0 {
		supporters = nil
	}

	goal := mapGoalFromRow(row, supporters)
	return &goal, nil
}

// CreateGoal inserts a new goal and its initial supporter set.
func (r *Repository) CreateGoal(ctx context.Context, goal domain.Goal) (*domain.Goal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO goals (id, user_id, address, title, description, deadline, stake_amount, status, is_completed, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err = tx.Exec(ctx, query,
		goal.ID,
		goal.OwnerFID,
		goal.OwnerAddress,
		goal.Title,
		goal.Description,
		goal.Deadline,
		goal.StakeAmount,
		string(goal.Status),
		goal.IsCompleted,
		goal.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, supporter := range goal.Supporters {
		if err := insertSupporter(ctx, tx, goal.ID, supporter); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetGoalByID(ctx, goal.ID)
}

// UpdateGoal applies a sparse patch to a goal and returns the updated entity.
func (r *Repository) UpdateGoal(ctx context.Context, goalID string, patch GoalPatch) (*domain.Goal, error) {
	columns := prepareGoalForStorage(patch)
	if len(columns) == 0 {
		return r.GetGoalByID(ctx, goalID)
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := ""
	args := make([]any, 0, len(columns)+1)
	for i, name := range names {
		if i > 0 {
			assignments += ", "
		}
		assignments += fmt.Sprintf("%s = $%d", name, i+1)
		args = append(args, columns[name])
	}
	args = append(args, goalID)

	query := fmt.Sprintf(`UPDATE goals SET %s WHERE id = $%d`, assignments, len(args))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrGoalNotFound
	}

	return r.GetGoalByID(ctx, goalID)
}

// SupporterExists reports whether a supporter with the given fid is already
// attached to the goal.
func (r *Repository) SupporterExists(ctx context.Context, goalID string, fid int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM supporters WHERE goal_id = $1 AND user_id = $2)`
	if err := r.db.QueryRow(ctx, query, goalID, fid).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AddSupporter attaches a supporter to a goal. A duplicate fid is a no-op.
func (r *Repository) AddSupporter(ctx context.Context, goalID string, supporter domain.Supporter) error {
	return insertSupporter(ctx, r.db, goalID, supporter)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx so supporter inserts
// can run inside or outside the goal-creation transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertSupporter(ctx context.Context, db execer, goalID string, supporter domain.Supporter) error {
	query := `
        INSERT INTO supporters (goal_id, user_id, user_address, user_name, user_avatar)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (goal_id, user_id) DO NOTHING
    `
	_, err := db.Exec(ctx, query,
		goalID,
		supporter.FID,
		supporter.WalletAddress,
		supporter.DisplayName,
		supporter.AvatarURL,
	)
	return err
}

// ListSupporters retrieves the supporters attached to a goal.
func (r *Repository) ListSupporters(ctx context.Context, goalID string) ([]domain.Supporter, error) {
	query := `
        SELECT user_id, user_address, user_name, user_avatar
        FROM supporters
        WHERE goal_id = $1
        ORDER BY user_id
    `
	rows, err := r.db.Query(ctx, query, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	supporters := []domain.Supporter{}
	for rows.Next() {
		var s domain.Supporter
		if err := rows.Scan(&s.FID, &s.WalletAddress, &s.DisplayName, &s.AvatarURL); err != nil {
			return nil, err
		}
		supporters = append(supporters, s)
	}
	return supporters, rows.Err()
}

// CreateIntent records a transaction intent in the 'accepted' phase.
func (r *Repository) CreateIntent(ctx context.Context, intent domain.GoalIntent) error {
	query := `
        INSERT INTO goal_intents (id, goal_id, action, tx_hash, phase, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.db.Exec(ctx, query,
		intent.ID,
		intent.GoalID,
		intent.Action,
		intent.TxHash,
		intent.Phase,
		intent.CreatedAt,
	)
	return err
}

// MarkIntentApplied flips an intent to the 'applied' phase.
func (r *Repository) MarkIntentApplied(ctx context.Context, intentID uuid.UUID) error {
	query := `UPDATE goal_intents SET phase = $1, applied_at = $2 WHERE id = $3`
	_, err := r.db.Exec(ctx, query, domain.IntentPhaseApplied, time.Now().UTC(), intentID)
	return err
}

// ListStaleIntents returns intents still in the 'accepted' phase created
// before the cutoff. Those rows mean the chain moved but the database write
// never landed.
func (r *Repository) ListStaleIntents(ctx context.Context, cutoff time.Time) ([]domain.GoalIntent, error) {
	query := `
        SELECT id, goal_id, action, tx_hash, phase, created_at, applied_at
        FROM goal_intents
        WHERE phase = $1 AND created_at < $2
        ORDER BY created_at
    `
	rows, err := r.db.Query(ctx, query, domain.IntentPhaseAccepted, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := []domain.GoalIntent{}
	for rows.Next() {
		var intent domain.GoalIntent
		if err := rows.Scan(&intent.ID, &intent.GoalID, &intent.Action, &intent.TxHash, &intent.Phase, &intent.CreatedAt, &intent.AppliedAt); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}
