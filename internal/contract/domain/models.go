// Package domain contains persistence models for advertising contracts and
// their quota lines.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Frequency is the station a contract (or playback event) belongs to.
type Frequency string

const (
	Frequency1027 Frequency = "102.7"
	Frequency1047 Frequency = "104.7"
	FrequencyBoth Frequency = "ambas"
)

// Valid reports whether f is a known station frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Frequency1027, Frequency1047, FrequencyBoth:
		return true
	}
	return false
}

// InvoiceDynamic selects how invoice records are keyed for a contract.
type InvoiceDynamic string

const (
	DynamicSingle  InvoiceDynamic = "single"
	DynamicMonthly InvoiceDynamic = "monthly"
)

// ContractStatus represents contract lifecycle states.
type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusCanceled  ContractStatus = "canceled"
)

// GoalMode selects how a per-file goal is delivered.
type GoalMode string

const (
	GoalModeFixed    GoalMode = "fixed"
	GoalModeRotation GoalMode = "rotation"
)

// Contract represents a sold advertising contract. EndDate is nil for
// open-ended (recurring) contracts.
type Contract struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	ClientID       snowflake.ID   `gorm:"index;not null" json:"client_id"`
	Number         string         `gorm:"type:text;uniqueIndex;not null" json:"number"`
	StartDate      time.Time      `gorm:"not null" json:"start_date"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	Frequency      Frequency      `gorm:"type:text;not null;default:'ambas'" json:"frequency"`
	InvoiceDynamic InvoiceDynamic `gorm:"type:text;not null;default:'monthly'" json:"invoice_dynamic"`
	Status         ContractStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	GrossValue     *float64       `json:"gross_value,omitempty"`
	Notes          *string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }

// ActiveAt reports whether the contract covers the calendar day of t.
// Comparison is by date, not instant: a contract ending 2024-01-31 still
// covers 2024-01-31T23:59.
func (c *Contract) ActiveAt(t time.Time) bool {
	if c.Status != ContractStatusActive {
		return false
	}
	day := truncateToDay(t)
	if day.Before(truncateToDay(c.StartDate)) {
		return false
	}
	if c.EndDate != nil && day.After(truncateToDay(*c.EndDate)) {
		return false
	}
	return true
}

// MatchesFrequency reports whether the contract can claim an event aired on
// the given station. Events without a station tag match any contract, and
// "ambas" contracts match any station.
func (c *Contract) MatchesFrequency(f Frequency) bool {
	if f == "" || f == FrequencyBoth {
		return true
	}
	return c.Frequency == f || c.Frequency == FrequencyBoth || c.Frequency == ""
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ContractItem is a program-type quota line. ExecutedQuantity only grows;
// reconciliation increments it and forced reprocessing decrements it back by
// the same amount it added.
type ContractItem struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	ContractID         snowflake.ID `gorm:"index;not null" json:"contract_id"`
	ProgramType        string       `gorm:"type:text;not null" json:"program_type"`
	ContractedQuantity *int         `json:"contracted_quantity,omitempty"`
	DailyGoalQuantity  *int         `json:"daily_goal_quantity,omitempty"`
	ExecutedQuantity   int          `gorm:"not null;default:0" json:"executed_quantity"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ContractItem) TableName() string { return "contract_items" }

// FileGoal is a per-audio-file playback target ("meta") attached to a
// contract. It counts independently of ContractItem: one allocation may
// increment both ledgers.
type FileGoal struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	ContractID       snowflake.ID `gorm:"index:ux_file_goals_contract_file,unique;not null" json:"contract_id"`
	AudioFileID      snowflake.ID `gorm:"index:ux_file_goals_contract_file,unique;not null" json:"audio_file_id"`
	GoalQuantity     int          `gorm:"not null" json:"goal_quantity"`
	Mode             GoalMode     `gorm:"type:text;not null;default:'fixed'" json:"mode"`
	Active           bool         `gorm:"not null;default:true" json:"active"`
	ExecutedQuantity int          `gorm:"not null;default:0" json:"executed_quantity"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (FileGoal) TableName() string { return "file_goals" }

// Saturated reports whether a fixed-mode goal has reached its target.
// Saturation is reported, not enforced; goals are targets, not caps.
func (g *FileGoal) Saturated() bool {
	return g.Mode == GoalModeFixed && g.ExecutedQuantity >= g.GoalQuantity
}
