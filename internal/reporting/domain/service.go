// Package domain defines the read-side reporting contract. Everything here
// is projection: reads may lag a running reconcile pass by one cycle but
// counted totals never regress.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
)

type UnaccountedRequest struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	ProgramType string    `json:"program_type"`
}

// UnaccountedRecord keeps the raw log name even when nothing matched it.
type UnaccountedRecord struct {
	EventID     snowflake.ID              `json:"event_id"`
	RawFileName string                    `json:"raw_file_name"`
	AiredAt     time.Time                 `json:"aired_at"`
	ProgramType string                    `json:"program_type,omitempty"`
	ReasonCode  playbackdomain.ReasonCode `json:"reason_code"`
	ClientName  *string                   `json:"client_name,omitempty"`
}

type UnaccountedReport struct {
	Total    int                                               `json:"total"`
	ByReason map[playbackdomain.ReasonCode][]UnaccountedRecord `json:"by_reason"`
}

// SeriesSummary is one of the two parallel quota series. Item and goal
// totals are reported side by side, never summed together.
type SeriesSummary struct {
	TotalGoal     int `json:"total_goal"`
	TotalExecuted int `json:"total_executed"`
}

type ItemLine struct {
	ProgramType        string `json:"program_type"`
	ContractedQuantity *int   `json:"contracted_quantity,omitempty"`
	DailyGoalQuantity  *int   `json:"daily_goal_quantity,omitempty"`
	ExecutedQuantity   int    `json:"executed_quantity"`
}

type GoalLine struct {
	AudioFileID      snowflake.ID            `json:"audio_file_id"`
	FileName         string                  `json:"file_name,omitempty"`
	GoalQuantity     int                     `json:"goal_quantity"`
	Mode             contractdomain.GoalMode `json:"mode"`
	Active           bool                    `json:"active"`
	ExecutedQuantity int                     `json:"executed_quantity"`
	Saturated        bool                    `json:"saturated"`
}

// DailySlice is the "today" view for daily-goal contracts. Alert is
// presentation only; no write path consults it.
type DailySlice struct {
	Date          time.Time `json:"date"`
	DailyGoal     int       `json:"daily_goal"`
	DailyExecuted int       `json:"daily_executed"`
	PercentMet    float64   `json:"percent_met"`
	Alert         bool      `json:"alert"`
}

type MonitoringSummary struct {
	ContractID     snowflake.ID  `json:"contract_id"`
	ContractNumber string        `json:"contract_number"`
	ClientName     string        `json:"client_name"`
	Items          []ItemLine    `json:"items"`
	Goals          []GoalLine    `json:"goals"`
	ItemSeries     SeriesSummary `json:"item_series"`
	GoalSeries     SeriesSummary `json:"goal_series"`
	Daily          *DailySlice   `json:"daily,omitempty"`
}

type DailyContractSummary struct {
	ContractID     snowflake.ID `json:"contract_id"`
	ContractNumber string       `json:"contract_number"`
	ClientName     string       `json:"client_name"`
	Daily          DailySlice   `json:"daily"`
}

type DashboardStats struct {
	ActiveContracts   int64 `json:"active_contracts"`
	PendingInvoices   int64 `json:"pending_invoices"`
	ExpiringSoon      int64 `json:"expiring_soon"`
	UnprocessedEvents int64 `json:"unprocessed_events"`
}

type Service interface {
	ListUnaccounted(ctx context.Context, req UnaccountedRequest) (*UnaccountedReport, error)

	// GetMonitoringSummary projects a contract's two quota series plus the
	// daily slice when the contract carries daily goals. A zero refDate
	// means today.
	GetMonitoringSummary(ctx context.Context, contractID snowflake.ID, refDate time.Time) (*MonitoringSummary, error)

	// TodaySummary rolls up the daily slice across all active contracts
	// that have daily goals.
	TodaySummary(ctx context.Context) ([]*DailyContractSummary, error)

	DashboardStats(ctx context.Context) (*DashboardStats, error)
}
