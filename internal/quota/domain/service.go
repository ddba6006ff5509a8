// Package domain defines the quota allocation contract. Allocation writes
// against the two quota ledgers a contract may carry: per-file goals and
// program-type items. The ledgers count independently; one playback may
// increment both.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	// ErrNoQuotaLine means the contract carries neither an active file goal
	// for the aired file nor an item for the event's program type. Policy is
	// reject over guess: an event against such a contract stays unaccounted.
	ErrNoQuotaLine = errors.New("no_matching_quota_line")

	ErrInvalidQuantity = errors.New("invalid_allocation_quantity")
)

// Allocation records which ledger lines an allocate call incremented, and by
// how much. It is the exact inverse input for Rollback.
type Allocation struct {
	ContractID     snowflake.ID  `json:"contract_id"`
	FileGoalID     *snowflake.ID `json:"file_goal_id,omitempty"`
	ContractItemID *snowflake.ID `json:"contract_item_id,omitempty"`
	Quantity       int           `json:"quantity"`

	// GoalSaturated is set when a fixed-mode goal was already at or past its
	// target before this allocation. Saturation is surfaced for reporting
	// only; goals are targets, not caps, so the count still lands.
	GoalSaturated bool `json:"goal_saturated"`
}

type Service interface {
	// Allocate increments every quota line on the contract that matches the
	// event: the active FileGoal for audioFileID, and the ContractItem for
	// programType. Both increments happen in one transaction. Returns
	// ErrNoQuotaLine when neither line exists.
	Allocate(ctx context.Context, contractID, audioFileID snowflake.ID, programType string, quantity int) (*Allocation, error)

	// Rollback reverses a prior allocation, decrementing the same lines by
	// the same quantity. Counters never go below zero.
	Rollback(ctx context.Context, alloc Allocation) error

	// Reverse re-derives the ledger lines for (contract, file, programType)
	// and decrements them, for forced reprocessing where the original
	// Allocation was not retained. Missing lines are skipped, not an error.
	Reverse(ctx context.Context, contractID, audioFileID snowflake.ID, programType string, quantity int) error
}
