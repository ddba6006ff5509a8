package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrClientNotFound = errors.New("client_not_found")
	ErrInvalidName    = errors.New("invalid_client_name")
	ErrDuplicateTaxID = errors.New("duplicate_tax_id")
)

type CreateClientRequest struct {
	Name     string         `json:"name"`
	TaxID    *string        `json:"tax_id"`
	Email    *string        `json:"email"`
	Phone    *string        `json:"phone"`
	Notes    *string        `json:"notes"`
	Metadata map[string]any `json:"metadata"`
}

type ListClientRequest struct {
	Status ClientStatus `json:"status"`
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (*Client, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Client, error)
	List(ctx context.Context, req ListClientRequest) ([]*Client, error)
}
