package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
)

var (
	ErrEventNotFound   = errors.New("playback_event_not_found")
	ErrInvalidFileName = errors.New("invalid_raw_file_name")
	ErrInvalidAiredAt  = errors.New("invalid_aired_at")
	ErrInvalidBatch    = errors.New("invalid_manual_batch")
)

type SubmitRequest struct {
	RawFileName string                   `json:"raw_file_name"`
	AiredAt     time.Time                `json:"aired_at"`
	Source      Source                   `json:"source"`
	ProgramType string                   `json:"program_type"`
	Frequency   contractdomain.Frequency `json:"frequency"`
}

// SubmitResult distinguishes a fresh row from a replayed log line.
type SubmitResult struct {
	Event           *PlaybackEvent `json:"event"`
	AlreadyExisting bool           `json:"already_existing"`
}

// BatchRequest is manual bulk entry: one audio file, one calendar day, a
// list of air times.
type BatchRequest struct {
	AudioFileID snowflake.ID             `json:"audio_file_id"`
	Date        time.Time                `json:"date"`
	Times       []string                 `json:"times"`
	ProgramType string                   `json:"program_type"`
	Frequency   contractdomain.Frequency `json:"frequency"`
}

// BatchResult reports per-entry outcomes; a malformed time never aborts the
// rest of the batch.
type BatchResult struct {
	Created         int      `json:"created"`
	AlreadyExisting int      `json:"already_existing"`
	InvalidTimes    []string `json:"invalid_times,omitempty"`
}

type ListRequest struct {
	From        time.Time  `json:"from"`
	To          time.Time  `json:"to"`
	Processed   *bool      `json:"processed"`
	Counted     *bool      `json:"counted"`
	ReasonCode  ReasonCode `json:"reason_code"`
	ProgramType string     `json:"program_type"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
}

// Outcome is the terminal state reconciliation writes back onto an event.
type Outcome struct {
	Counted              bool
	AttributedContractID *snowflake.ID
	AudioFileID          *snowflake.ID
	ReasonCode           *ReasonCode
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	CreateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
	List(ctx context.Context, req ListRequest) ([]*PlaybackEvent, error)
	GetByID(ctx context.Context, id snowflake.ID) (*PlaybackEvent, error)

	// ListPending returns unprocessed events in the window, oldest first.
	// With includeProcessed, processed events come back too (forced
	// reprocessing).
	ListPending(ctx context.Context, from, to time.Time, includeProcessed bool) ([]*PlaybackEvent, error)

	// MarkProcessed writes an event's terminal state. Each call is a single
	// row update, so an aborted batch leaves every event either untouched or
	// fully settled.
	MarkProcessed(ctx context.Context, id snowflake.ID, outcome Outcome) error
}
