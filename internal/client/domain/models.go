// Package domain contains persistence models for advertiser clients.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ClientStatus represents client lifecycle states.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Client represents an advertiser whose spots air on the station.
type Client struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	TaxID     *string           `gorm:"type:text;uniqueIndex" json:"tax_id,omitempty"`
	Email     *string           `gorm:"type:text" json:"email,omitempty"`
	Phone     *string           `gorm:"type:text" json:"phone,omitempty"`
	Status    ClientStatus      `gorm:"type:text;not null;default:'active'" json:"status"`
	Notes     *string           `gorm:"type:text" json:"notes,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
