// Package domain contains the playback event model. Events are the audit
// trail of the system: created by ingestion, mutated only by reconciliation,
// never deleted on successful processing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
)

// Source tags where an event came from.
type Source string

const (
	SourceWatcher Source = "watcher"
	SourceManual  Source = "manual"
)

// ReasonCode classifies why a processed event was not counted. The code is
// persisted on the event so nothing unmatched is silently lost.
type ReasonCode string

const (
	ReasonUnregisteredFile  ReasonCode = "unregistered-file"
	ReasonNoActiveContract  ReasonCode = "no-active-contract"
	ReasonAmbiguousContract ReasonCode = "ambiguous-contract"
	ReasonNoQuotaLine       ReasonCode = "no-matching-quota-line"
)

// PlaybackEvent is one "ad aired" record. The unique index over
// (raw_file_name, aired_at, source) is the idempotency guarantee: the same
// log line submitted twice creates one row.
type PlaybackEvent struct {
	ID          snowflake.ID             `gorm:"primaryKey" json:"id"`
	RawFileName string                   `gorm:"type:text;index:ux_playback_natural,unique;not null" json:"raw_file_name"`
	AiredAt     time.Time                `gorm:"index:ux_playback_natural,unique;not null" json:"aired_at"`
	Source      Source                   `gorm:"type:text;index:ux_playback_natural,unique;not null" json:"source"`
	ProgramType string                   `gorm:"type:text" json:"program_type,omitempty"`
	Frequency   contractdomain.Frequency `gorm:"type:text" json:"frequency,omitempty"`

	Processed            bool          `gorm:"not null;default:false;index" json:"processed"`
	Counted              bool          `gorm:"not null;default:false" json:"counted"`
	AttributedContractID *snowflake.ID `gorm:"index" json:"attributed_contract_id,omitempty"`
	AudioFileID          *snowflake.ID `gorm:"index" json:"audio_file_id,omitempty"`
	ReasonCode           *ReasonCode   `gorm:"type:text" json:"reason_code,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PlaybackEvent) TableName() string { return "playback_events" }
