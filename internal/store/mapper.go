/**
 * @description
 * This file converts between the flat, snake-cased storage shape of a goal and
 * the application's Goal entity. The goals table has been through several
 * revisions: current rows keep supporters in a normalized join table, while
 * legacy rows embed them in a `supporters` column that may hold a native JSON
 * array, a string with stray escape characters and mismatched quoting, or a
 * single bare object. The mapper absorbs all of those shapes and never
 * propagates a parse error to the caller.
 *
 * @notes
 * - Timestamps on legacy rows can arrive as strings; unparseable input maps to
 *   the zero time, which the client renders as "invalid date".
 * - prepareGoalForStorage implements sparse-update semantics: only fields
 *   present on the patch are included, so absent fields are never overwritten
 *   with NULL in storage.
 */

package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/megabyte0x/accountable/internal/domain"
)

// goalRow mirrors one row of the goals table. Deadline, CreatedAt and
// Supporters are scanned as loose values because their storage type differs
// between schema revisions.
type goalRow struct {
	ID          string
	UserID      *int64
	Address     string
	Title       string
	Description string
	Deadline    any
	StakeAmount string
	Status      string
	IsCompleted bool
	CreatedAt   any
	Supporters  any
}

// GoalPatch is a sparse set of goal fields destined for storage. Nil fields
// are absent, not zero.
type GoalPatch struct {
	ID           *string
	OwnerFID     *int64
	OwnerAddress *string
	Title        *string
	Description  *string
	Deadline     *time.Time
	StakeAmount  *string
	Status       *domain.GoalStatus
	IsCompleted  *bool
	CreatedAt    *time.Time
}

// mapGoalFromRow produces a fully-typed Goal from a storage row. When joined
// supporter rows are supplied they win over the legacy embedded column.
func mapGoalFromRow(row goalRow, joined []domain.Supporter) domain.Goal {
	supporters := joined
	if supporters == nil {
		supporters = parseSupporters(row.Supporters)
	}

	return domain.Goal{
		ID:           row.ID,
		OwnerFID:     row.UserID,
		OwnerAddress: row.Address,
		Title:        row.Title,
		Description:  row.Description,
		Deadline:     parseTimestamp(row.Deadline),
		StakeAmount:  row.StakeAmount,
		Status:       domain.GoalStatus(row.Status),
		IsCompleted:  row.IsCompleted,
		CreatedAt:    parseTimestamp(row.CreatedAt),
		Supporters:   supporters,
	}
}

// parseTimestamp normalizes a storage timestamp. Current rows scan straight
// into time.Time; legacy rows carry strings. Anything unparseable degrades to
// the zero time rather than an error.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07", "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

// parseSupporters turns the legacy embedded supporters column into a supporter
// list. It attempts a primary parse, then a cleaned-up fallback parse, and
// defaults to an empty list on total failure.
func parseSupporters(v any) []domain.Supporter {
	switch raw := v.(type) {
	case nil:
		return []domain.Supporter{}
	case []domain.Supporter:
		return raw
	case []byte:
		return parseSupportersJSON(string(raw))
	case string:
		return parseSupportersJSON(raw)
	case []any, map[string]any:
		// pgx decodes a jsonb column scanned into `any` as generic JSON
		// values rather than raw bytes. Re-encode and reuse the string path,
		// which also wraps a bare object into a one-element list.
		encoded, err := json.Marshal(raw)
		if err != nil {
			return []domain.Supporter{}
		}
		return parseSupportersJSON(string(encoded))
	default:
		return []domain.Supporter{}
	}
}

func parseSupportersJSON(raw string) []domain.Supporter {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []domain.Supporter{}
	}

	if supporters, ok := decodeSupporters(trimmed); ok {
		return supporters
	}

	// Rows written by earlier revisions double-encode the column, leaving
	// stray backslashes and quoted braces behind. Strip those and retry.
	cleaned := cleanSupportersJSON(trimmed)
	if supporters, ok := decodeSupporters(cleaned); ok {
		return supporters
	}

	// Last resort: a single object without array brackets.
	if strings.HasPrefix(strings.TrimSpace(cleaned), "{") {
		if supporters, ok := decodeSupporters("[" + cleaned + "]"); ok {
			return supporters
		}
	}

	return []domain.Supporter{}
}

// decodeSupporters parses either a JSON array or a single object, wrapping
// the latter into a one-element list.
func decodeSupporters(s string) ([]domain.Supporter, bool) {
	var list []domain.Supporter
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return list, true
	}

	var single domain.Supporter
	if err := json.Unmarshal([]byte(s), &single); err == nil {
		return []domain.Supporter{single}, true
	}

	return nil, false
}

// cleanSupportersJSON strips the escape artifacts the double-encoded legacy
// column accumulates before a parse is attempted again.
func cleanSupportersJSON(s string) string {
	cleaned := strings.ReplaceAll(s, `\`, "")
	cleaned = strings.ReplaceAll(cleaned, `"{`, "{")
	cleaned = strings.ReplaceAll(cleaned, `}"`, "}")
	return cleaned
}

// prepareGoalForStorage converts a sparse goal patch into the snake-cased
// column map used for inserts and updates. Only fields set on the patch appear
// in the result.
func prepareGoalForStorage(patch GoalPatch) map[string]any {
	columns := make(map[string]any)

	if patch.ID != nil {
		columns["id"] = *patch.ID
	}
	if patch.OwnerFID != nil {
		columns["user_id"] = *patch.OwnerFID
	}
	if patch.OwnerAddress != nil {
		columns["address"] = *patch.OwnerAddress
	}
	if patch.Title != nil {
		columns["title"] = *patch.Title
	}
	if patch.Description != nil {
		columns["description"] = *patch.Description
	}
	if patch.Deadline != nil {
		columns["deadline"] = *patch.Deadline
	}
	if patch.StakeAmount != nil {
		columns["stake_amount"] = *patch.StakeAmount
	}
	if patch.Status != nil {
		columns["status"] = string(*patch.Status)
	}
	if patch.IsCompleted != nil {
		columns["is_completed"] = *patch.IsCompleted
	}
	if patch.CreatedAt != nil {
		columns["created_at"] = *patch.CreatedAt
	}

	return columns
}

// rowFromColumns rebuilds a goalRow from a storage column map. It is the read
// half of the round trip and is shared with the mapper tests.
func rowFromColumns(columns map[string]any) goalRow {
	row := goalRow{}
	if v, ok := columns["id"].(string); ok {
		row.ID = v
	}
	if v, ok := columns["user_id"].(int64); ok {
		row.UserID = &v
	}
	if v, ok := columns["address"].(string); ok {
		row.Address = v
	}
	if v, ok := columns["title"].(string); ok {
		row.Title = v
	}
	if v, ok := columns["description"].(string); ok {
		row.Description = v
	}
	row.Deadline = columns["deadline"]
	if v, ok := columns["stake_amount"].(string); ok {
		row.StakeAmount = v
	}
	if v, ok := columns["status"].(string); ok {
		row.Status = v
	}
	if v, ok := columns["is_completed"].(bool); ok {
		row.IsCompleted = v
	}
	row.CreatedAt = columns["created_at"]
	row.Supporters = columns["supporters"]
	return row
}
