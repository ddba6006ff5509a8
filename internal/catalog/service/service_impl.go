package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	"github.com/ondasul/airtrack/pkg/db"
	"github.com/ondasul/airtrack/pkg/db/option"
	"github.com/ondasul/airtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	ClientSvc clientdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	filerepo  repository.Repository[catalogdomain.AudioFile]
	clientSvc clientdomain.Service
}

func NewService(p ServiceParam) catalogdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,

		filerepo:  repository.ProvideStore[catalogdomain.AudioFile](p.DB),
		clientSvc: p.ClientSvc,
	}
}

func (s *Service) ResolveFile(ctx context.Context, clientHint snowflake.ID, rawFileName string) (*catalogdomain.AudioFile, error) {
	// No trimming or case folding: the log name must match the registered
	// name exactly.
	if rawFileName == "" {
		return nil, catalogdomain.ErrInvalidFileName
	}

	filter := &catalogdomain.AudioFile{FileName: rawFileName, Active: true}
	if clientHint != 0 {
		filter.ClientID = clientHint
		file, err := s.filerepo.FindOne(ctx, filter)
		if err != nil {
			return nil, err
		}
		if file == nil {
			return nil, catalogdomain.ErrFileNotRegistered
		}
		return file, nil
	}

	// Without a hint the same name may be registered by several clients;
	// guessing an owner would misattribute the airing.
	matches, err := s.filerepo.Find(ctx, filter, option.WithLimitOffset(2, 0))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, catalogdomain.ErrFileNotRegistered
	case 1:
		return matches[0], nil
	default:
		s.log.Warn("file name registered by multiple clients, refusing to guess",
			zap.String("raw_file_name", rawFileName),
		)
		return nil, catalogdomain.ErrFileAmbiguous
	}
}

func (s *Service) Register(ctx context.Context, req catalogdomain.RegisterFileRequest) (*catalogdomain.AudioFile, error) {
	if req.FileName == "" {
		return nil, catalogdomain.ErrInvalidFileName
	}
	if _, err := s.clientSvc.GetByID(ctx, req.ClientID); err != nil {
		return nil, err
	}

	file := &catalogdomain.AudioFile{
		ID:              s.genID.Generate(),
		ClientID:        req.ClientID,
		FileName:        req.FileName,
		Title:           req.Title,
		DurationSeconds: req.DurationSeconds,
		Notes:           req.Notes,
		Active:          true,
	}
	if err := s.filerepo.Create(ctx, file); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, catalogdomain.ErrDuplicateFileName
		}
		return nil, err
	}
	return file, nil
}

func (s *Service) SetActive(ctx context.Context, id snowflake.ID, active bool) (*catalogdomain.AudioFile, error) {
	file, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Toggling keeps historical counters; an inactive file simply stops
	// resolving for new attribution.
	err = s.db.WithContext(ctx).Model(&catalogdomain.AudioFile{}).
		Where("id = ?", id).
		Update("active", active).Error
	if err != nil {
		return nil, err
	}
	file.Active = active
	return file, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*catalogdomain.AudioFile, error) {
	file, err := s.filerepo.FindOne(ctx, &catalogdomain.AudioFile{ID: id})
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, catalogdomain.ErrFileNotFound
	}
	return file, nil
}

func (s *Service) List(ctx context.Context, req catalogdomain.ListFileRequest) ([]*catalogdomain.AudioFile, error) {
	filter := &catalogdomain.AudioFile{}
	if req.ClientID != 0 {
		filter.ClientID = req.ClientID
	}
	if req.ActiveOnly {
		filter.Active = true
	}
	return s.filerepo.Find(ctx, filter, option.WithSortBy(option.QuerySortBy{
		Field: "file_name",
		Allow: map[string]bool{"file_name": true},
	}))
}
