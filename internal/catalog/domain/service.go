package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrFileNotRegistered = errors.New("file_not_registered")
	ErrFileAmbiguous     = errors.New("ambiguous_file_name")
	ErrInvalidFileName   = errors.New("invalid_file_name")
	ErrDuplicateFileName = errors.New("duplicate_file_name")
	ErrFileNotFound      = errors.New("audio_file_not_found")
)

type RegisterFileRequest struct {
	ClientID        snowflake.ID `json:"client_id"`
	FileName        string       `json:"file_name"`
	Title           *string      `json:"title"`
	DurationSeconds *int         `json:"duration_seconds"`
	Notes           *string      `json:"notes"`
}

type ListFileRequest struct {
	ClientID   snowflake.ID `json:"client_id"`
	ActiveOnly bool         `json:"active_only"`
}

type Service interface {
	// ResolveFile maps a raw log file name to a registered active audio
	// file. The client hint narrows the search when the log source names a
	// client; zero means any client, and a name owned by more than one
	// client then resolves as ambiguous. Inactive files resolve as not
	// registered so they stop attracting new attribution.
	ResolveFile(ctx context.Context, clientHint snowflake.ID, rawFileName string) (*AudioFile, error)

	Register(ctx context.Context, req RegisterFileRequest) (*AudioFile, error)
	SetActive(ctx context.Context, id snowflake.ID, active bool) (*AudioFile, error)
	GetByID(ctx context.Context, id snowflake.ID) (*AudioFile, error)
	List(ctx context.Context, req ListFileRequest) ([]*AudioFile, error)
}
