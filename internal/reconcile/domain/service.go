// Package domain defines the reconciliation contract: batch passes that
// drive every playback event in a window to a terminal state, either counted
// against a contract or classified with a persisted reason.
package domain

import (
	"context"
	"errors"
	"time"

	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
)

var (
	ErrInvalidWindow = errors.New("invalid_reconcile_window")

	// ErrLockContention surfaces after bounded retries on a contract lock.
	// The affected events stay unprocessed and settle on the next run.
	ErrLockContention = errors.New("contract_lock_contention")
)

type ReconcileRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// Force reprocesses already settled events. Previously counted events
	// are rolled back before re-attribution, so corrected catalog or
	// contract data can land without double counting.
	Force bool `json:"force"`
}

// Result is the structured outcome of one pass. Every scanned event is
// accounted for in exactly one bucket.
type Result struct {
	Scanned       int                               `json:"scanned"`
	Counted       int                               `json:"counted"`
	Skipped       int                               `json:"skipped"`
	Unaccounted   map[playbackdomain.ReasonCode]int `json:"unaccounted"`
	LockConflicts int                               `json:"lock_conflicts"`
	Errors        int                               `json:"errors"`
}

type Service interface {
	// Reconcile processes the window oldest first. Cancellation between
	// events returns the partial result with ctx.Err(); settled events stay
	// settled and the rest are picked up by the next run.
	Reconcile(ctx context.Context, req ReconcileRequest) (*Result, error)
}
