package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	"github.com/ondasul/airtrack/pkg/db"
	"github.com/ondasul/airtrack/pkg/db/option"
	"github.com/ondasul/airtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clientrepo repository.Repository[clientdomain.Client]
}

func NewService(p ServiceParam) clientdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,

		clientrepo: repository.ProvideStore[clientdomain.Client](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req clientdomain.CreateClientRequest) (*clientdomain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, clientdomain.ErrInvalidName
	}

	client := &clientdomain.Client{
		ID:       s.genID.Generate(),
		Name:     name,
		TaxID:    req.TaxID,
		Email:    req.Email,
		Phone:    req.Phone,
		Notes:    req.Notes,
		Metadata: normalizeMetadata(req.Metadata),
		Status:   clientdomain.ClientStatusActive,
	}
	if err := s.clientrepo.Create(ctx, client); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, clientdomain.ErrDuplicateTaxID
		}
		return nil, err
	}
	return client, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*clientdomain.Client, error) {
	client, err := s.clientrepo.FindOne(ctx, &clientdomain.Client{ID: id})
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, clientdomain.ErrClientNotFound
	}
	return client, nil
}

func (s *Service) List(ctx context.Context, req clientdomain.ListClientRequest) ([]*clientdomain.Client, error) {
	filter := &clientdomain.Client{}
	if req.Status != "" {
		filter.Status = req.Status
	}
	return s.clientrepo.Find(ctx, filter, option.WithSortBy(option.QuerySortBy{
		Field: "name",
		Allow: map[string]bool{"name": true},
	}))
}

func normalizeMetadata(input map[string]any) datatypes.JSONMap {
	if input == nil {
		return datatypes.JSONMap{}
	}
	output := datatypes.JSONMap{}
	for key, value := range input {
		if key == "" {
			continue
		}
		output[key] = value
	}
	return output
}
