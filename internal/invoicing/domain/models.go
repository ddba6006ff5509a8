// Package domain contains the invoice record model and state machine types.
// Invoicing is decoupled from quota: canceling or deleting a record never
// touches executed counters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus is the record lifecycle. Transitions are pending → issued →
// paid, with pending or issued → canceled. Paid and canceled are terminal.
type InvoiceStatus string

const (
	StatusPending  InvoiceStatus = "pending"
	StatusIssued   InvoiceStatus = "issued"
	StatusPaid     InvoiceStatus = "paid"
	StatusCanceled InvoiceStatus = "canceled"
)

// InvoiceRecord is one nota fiscal. Competencia is nil for single-dynamic
// contracts and a year-month for monthly ones. Canceled records stay in the
// table but are excluded from current lookups.
type InvoiceRecord struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	ContractID snowflake.ID  `gorm:"index;not null" json:"contract_id"`
	Competency *string       `gorm:"type:text;index" json:"competency,omitempty"`
	Status     InvoiceStatus `gorm:"type:text;not null;default:'pending'" json:"status"`

	IssueNumber   *string    `gorm:"type:text" json:"issue_number,omitempty"`
	Series        *string    `gorm:"type:text" json:"series,omitempty"`
	ReceiptNumber *string    `gorm:"type:text" json:"receipt_number,omitempty"`
	IssueDate     *time.Time `json:"issue_date,omitempty"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	GrossValue    *float64   `json:"gross_value,omitempty"`
	NetValue      *float64   `json:"net_value,omitempty"`
	PaidValue     *float64   `json:"paid_value,omitempty"`
	PaymentMethod *string    `gorm:"type:text" json:"payment_method,omitempty"`
	Agents        *string    `gorm:"type:text" json:"agents,omitempty"`
	Notes         *string    `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (InvoiceRecord) TableName() string { return "invoice_records" }

// Terminal reports whether no further status transition is allowed.
func (r *InvoiceRecord) Terminal() bool {
	return r.Status == StatusPaid || r.Status == StatusCanceled
}
