package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvoiceNotFound         = errors.New("invoice_record_not_found")
	ErrInvalidTransition       = errors.New("invalid_invoice_transition")
	ErrDuplicateCompetency     = errors.New("duplicate_competency")
	ErrInvalidCompetency       = errors.New("invalid_competency")
	ErrCompetencyRequired      = errors.New("competency_required")
	ErrCompetencyNotAllowed    = errors.New("competency_not_allowed")
	ErrCompetencyOutsidePeriod = errors.New("competency_outside_contract_period")
)

// ParseCompetency validates a YYYY-MM key and returns the first day of that
// month in UTC.
func ParseCompetency(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidCompetency, raw)
	}
	return t.UTC(), nil
}

// FormatCompetency renders the YYYY-MM key for a month.
func FormatCompetency(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// IssueData carries the fields written when a record is issued. Re-issuing
// an already issued record overwrites these, an idempotent edit rather than
// a new transition.
type IssueData struct {
	IssueNumber   *string    `json:"issue_number"`
	Series        *string    `json:"series"`
	ReceiptNumber *string    `json:"receipt_number"`
	IssueDate     *time.Time `json:"issue_date"`
	GrossValue    *float64   `json:"gross_value"`
	NetValue      *float64   `json:"net_value"`
	Agents        *string    `json:"agents"`
	Notes         *string    `json:"notes"`
}

type PayData struct {
	PaymentDate   *time.Time `json:"payment_date"`
	PaidValue     *float64   `json:"paid_value"`
	PaymentMethod *string    `json:"payment_method"`
}

// UpdateData edits bookkeeping fields without a status transition.
type UpdateData struct {
	IssueNumber   *string  `json:"issue_number"`
	Series        *string  `json:"series"`
	ReceiptNumber *string  `json:"receipt_number"`
	GrossValue    *float64 `json:"gross_value"`
	NetValue      *float64 `json:"net_value"`
	PaymentMethod *string  `json:"payment_method"`
	Agents        *string  `json:"agents"`
	Notes         *string  `json:"notes"`
}

type ListRequest struct {
	ContractID snowflake.ID `json:"contract_id"`
	Competency *string      `json:"competency"`

	// IncludeCanceled widens the listing; current lookups leave it false.
	IncludeCanceled bool `json:"include_canceled"`
}

type Service interface {
	// GetOrCreate returns the current (non-canceled) record for the
	// contract and competency, creating a pending one when absent.
	// Single-dynamic contracts take a nil competency and hold at most one
	// current record.
	GetOrCreate(ctx context.Context, contractID snowflake.ID, competency *string) (*InvoiceRecord, error)

	// Create is the strict variant: a current record for the same
	// competency rejects with ErrDuplicateCompetency.
	Create(ctx context.Context, contractID snowflake.ID, competency *string) (*InvoiceRecord, error)

	// Issue transitions pending → issued. Issuing an already issued record
	// overwrites the issue fields in place. Paid and canceled records
	// reject with ErrInvalidTransition.
	Issue(ctx context.Context, contractID snowflake.ID, competency *string, data IssueData) (*InvoiceRecord, error)

	// Pay transitions issued → paid.
	Pay(ctx context.Context, recordID snowflake.ID, data PayData) (*InvoiceRecord, error)

	// Cancel transitions pending or issued → canceled. The record is kept
	// for audit and a new current record may be created afterwards.
	Cancel(ctx context.Context, recordID snowflake.ID) (*InvoiceRecord, error)

	Update(ctx context.Context, recordID snowflake.ID, data UpdateData) (*InvoiceRecord, error)

	// Delete removes a record outright. Administrative correction only;
	// quota counters are never reopened.
	Delete(ctx context.Context, recordID snowflake.ID) error

	GetByID(ctx context.Context, recordID snowflake.ID) (*InvoiceRecord, error)
	List(ctx context.Context, req ListRequest) ([]*InvoiceRecord, error)
}
