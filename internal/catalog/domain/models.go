// Package domain contains persistence models for the audio catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AudioFile links a physical spot file to the client that owns it.
// File identity comes from the stored name only; matching against the
// broadcast log is exact and case-sensitive.
type AudioFile struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ClientID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_audio_files_client_name" json:"client_id"`
	FileName        string       `gorm:"type:text;not null;uniqueIndex:ux_audio_files_client_name" json:"file_name"`
	Title           *string      `gorm:"type:text" json:"title,omitempty"`
	DurationSeconds *int         `gorm:"" json:"duration_seconds,omitempty"`
	Active          bool         `gorm:"not null;default:true" json:"active"`
	Notes           *string      `gorm:"type:text" json:"notes,omitempty"`
	UploadedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"uploaded_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (AudioFile) TableName() string { return "audio_files" }
