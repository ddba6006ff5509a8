package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrContractNotFound  = errors.New("contract_not_found")
	ErrNoActiveContract  = errors.New("no_active_contract")
	ErrAmbiguousContract = errors.New("ambiguous_contract")
	ErrInvalidPeriod     = errors.New("invalid_contract_period")
	ErrInvalidFrequency  = errors.New("invalid_frequency")
	ErrInvalidDynamic    = errors.New("invalid_invoice_dynamic")
	ErrInvalidStatus     = errors.New("invalid_contract_status")

	// ErrInvalidQuotaLine covers item validation: at least one quantity must
	// be set, open-ended contracts require a daily goal and closed contracts
	// require a contracted quantity.
	ErrInvalidQuotaLine = errors.New("invalid_quota_line")

	ErrItemNotFound     = errors.New("contract_item_not_found")
	ErrGoalNotFound     = errors.New("file_goal_not_found")
	ErrDuplicateGoal    = errors.New("duplicate_file_goal")
	ErrInvalidGoal      = errors.New("invalid_file_goal")
	ErrFileNotOwned     = errors.New("audio_file_not_owned_by_client")
)

type ItemInput struct {
	ProgramType        string `json:"program_type"`
	ContractedQuantity *int   `json:"contracted_quantity"`
	DailyGoalQuantity  *int   `json:"daily_goal_quantity"`
}

type CreateContractRequest struct {
	ClientID       snowflake.ID   `json:"client_id"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        *time.Time     `json:"end_date"`
	Frequency      Frequency      `json:"frequency"`
	InvoiceDynamic InvoiceDynamic `json:"invoice_dynamic"`
	GrossValue     *float64       `json:"gross_value"`
	Notes          *string        `json:"notes"`
	Items          []ItemInput    `json:"items"`
}

type AddFileGoalRequest struct {
	ContractID   snowflake.ID `json:"contract_id"`
	AudioFileID  snowflake.ID `json:"audio_file_id"`
	GoalQuantity int          `json:"goal_quantity"`
	Mode         GoalMode     `json:"mode"`
}

type ListContractRequest struct {
	ClientID snowflake.ID   `json:"client_id"`
	Status   ContractStatus `json:"status"`
}

type Service interface {
	Create(ctx context.Context, req CreateContractRequest) (*Contract, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Contract, error)
	List(ctx context.Context, req ListContractRequest) ([]*Contract, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status ContractStatus) (*Contract, error)

	AddItem(ctx context.Context, contractID snowflake.ID, input ItemInput) (*ContractItem, error)
	ListItems(ctx context.Context, contractID snowflake.ID) ([]*ContractItem, error)

	AddFileGoal(ctx context.Context, req AddFileGoalRequest) (*FileGoal, error)
	SetFileGoalActive(ctx context.Context, id snowflake.ID, active bool) (*FileGoal, error)
	ListFileGoals(ctx context.Context, contractID snowflake.ID) ([]*FileGoal, error)

	// ResolveActive finds the single contract active for the client on the
	// calendar day of at, optionally narrowed by station frequency. Zero
	// matches return ErrNoActiveContract; more than one return
	// ErrAmbiguousContract. Ambiguity is a data problem to surface, never a
	// reason to pick the newest contract.
	ResolveActive(ctx context.Context, clientID snowflake.ID, at time.Time, frequency Frequency) (*Contract, error)
}
