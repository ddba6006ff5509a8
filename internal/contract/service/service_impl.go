package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	"github.com/ondasul/airtrack/pkg/db"
	"github.com/ondasul/airtrack/pkg/db/option"
	"github.com/ondasul/airtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	ClientSvc  clientdomain.Service
	CatalogSvc catalogdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	contractrepo repository.Repository[contractdomain.Contract]
	itemrepo     repository.Repository[contractdomain.ContractItem]
	goalrepo     repository.Repository[contractdomain.FileGoal]
	clientSvc    clientdomain.Service
	catalogSvc   catalogdomain.Service
}

func NewService(p ServiceParam) contractdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("contract.service"),
		genID: p.GenID,

		contractrepo: repository.ProvideStore[contractdomain.Contract](p.DB),
		itemrepo:     repository.ProvideStore[contractdomain.ContractItem](p.DB),
		goalrepo:     repository.ProvideStore[contractdomain.FileGoal](p.DB),
		clientSvc:    p.ClientSvc,
		catalogSvc:   p.CatalogSvc,
	}
}

func (s *Service) Create(ctx context.Context, req contractdomain.CreateContractRequest) (*contractdomain.Contract, error) {
	if _, err := s.clientSvc.GetByID(ctx, req.ClientID); err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() {
		return nil, contractdomain.ErrInvalidPeriod
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, contractdomain.ErrInvalidPeriod
	}

	frequency := req.Frequency
	if frequency == "" {
		frequency = contractdomain.FrequencyBoth
	}
	if !frequency.Valid() {
		return nil, contractdomain.ErrInvalidFrequency
	}

	dynamic := req.InvoiceDynamic
	if dynamic == "" {
		dynamic = contractdomain.DynamicMonthly
	}
	if dynamic != contractdomain.DynamicSingle && dynamic != contractdomain.DynamicMonthly {
		return nil, contractdomain.ErrInvalidDynamic
	}

	contract := &contractdomain.Contract{
		ID:             s.genID.Generate(),
		ClientID:       req.ClientID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Frequency:      frequency,
		InvoiceDynamic: dynamic,
		Status:         contractdomain.ContractStatusActive,
		GrossValue:     req.GrossValue,
		Notes:          req.Notes,
	}

	for _, input := range req.Items {
		if err := validateItem(contract, input); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.nextContractNumber(tx, req.StartDate.Year())
		if err != nil {
			return err
		}
		contract.Number = number

		if err := tx.Create(contract).Error; err != nil {
			return err
		}
		for _, input := range req.Items {
			item := &contractdomain.ContractItem{
				ID:                 s.genID.Generate(),
				ContractID:         contract.ID,
				ProgramType:        input.ProgramType,
				ContractedQuantity: input.ContractedQuantity,
				DailyGoalQuantity:  input.DailyGoalQuantity,
			}
			if err := tx.Create(item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contract created",
		zap.String("number", contract.Number),
		zap.Int64("client_id", int64(contract.ClientID)),
	)
	return contract, nil
}

// nextContractNumber issues sequential numbers per calendar year, formatted
// as 2024/001. The count runs inside the caller's transaction so concurrent
// creates in the same year cannot reuse a sequence.
func (s *Service) nextContractNumber(tx *gorm.DB, year int) (string, error) {
	var count int64
	err := tx.Model(&contractdomain.Contract{}).
		Where("number LIKE ?", fmt.Sprintf("%d/%%", year)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d/%03d", year, count+1), nil
}

func validateItem(contract *contractdomain.Contract, input contractdomain.ItemInput) error {
	if input.ProgramType == "" {
		return contractdomain.ErrInvalidQuotaLine
	}
	if input.ContractedQuantity == nil && input.DailyGoalQuantity == nil {
		return contractdomain.ErrInvalidQuotaLine
	}
	if input.ContractedQuantity != nil && *input.ContractedQuantity <= 0 {
		return contractdomain.ErrInvalidQuotaLine
	}
	if input.DailyGoalQuantity != nil && *input.DailyGoalQuantity <= 0 {
		return contractdomain.ErrInvalidQuotaLine
	}
	if contract.EndDate == nil && input.DailyGoalQuantity == nil {
		return contractdomain.ErrInvalidQuotaLine
	}
	if contract.EndDate != nil && input.ContractedQuantity == nil {
		return contractdomain.ErrInvalidQuotaLine
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*contractdomain.Contract, error) {
	contract, err := s.contractrepo.FindOne(ctx, &contractdomain.Contract{ID: id})
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, contractdomain.ErrContractNotFound
	}
	return contract, nil
}

func (s *Service) List(ctx context.Context, req contractdomain.ListContractRequest) ([]*contractdomain.Contract, error) {
	filter := &contractdomain.Contract{}
	if req.ClientID != 0 {
		filter.ClientID = req.ClientID
	}
	if req.Status != "" {
		filter.Status = req.Status
	}
	return s.contractrepo.Find(ctx, filter, option.WithSortBy(option.QuerySortBy{
		Field: "number",
		Allow: map[string]bool{"number": true},
	}))
}

func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, status contractdomain.ContractStatus) (*contractdomain.Contract, error) {
	switch status {
	case contractdomain.ContractStatusActive,
		contractdomain.ContractStatusCompleted,
		contractdomain.ContractStatusCanceled:
	default:
		return nil, contractdomain.ErrInvalidStatus
	}

	contract, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&contractdomain.Contract{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return nil, err
	}
	contract.Status = status
	return contract, nil
}

func (s *Service) AddItem(ctx context.Context, contractID snowflake.ID, input contractdomain.ItemInput) (*contractdomain.ContractItem, error) {
	contract, err := s.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := validateItem(contract, input); err != nil {
		return nil, err
	}

	item := &contractdomain.ContractItem{
		ID:                 s.genID.Generate(),
		ContractID:         contractID,
		ProgramType:        input.ProgramType,
		ContractedQuantity: input.ContractedQuantity,
		DailyGoalQuantity:  input.DailyGoalQuantity,
	}
	if err := s.itemrepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, contractID snowflake.ID) ([]*contractdomain.ContractItem, error) {
	return s.itemrepo.Find(ctx, &contractdomain.ContractItem{ContractID: contractID})
}

func (s *Service) AddFileGoal(ctx context.Context, req contractdomain.AddFileGoalRequest) (*contractdomain.FileGoal, error) {
	if req.GoalQuantity <= 0 {
		return nil, contractdomain.ErrInvalidGoal
	}
	mode := req.Mode
	if mode == "" {
		mode = contractdomain.GoalModeFixed
	}
	if mode != contractdomain.GoalModeFixed && mode != contractdomain.GoalModeRotation {
		return nil, contractdomain.ErrInvalidGoal
	}
	contract, err := s.GetByID(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	file, err := s.catalogSvc.GetByID(ctx, req.AudioFileID)
	if err != nil {
		return nil, err
	}
	if file.ClientID != contract.ClientID {
		return nil, contractdomain.ErrFileNotOwned
	}

	goal := &contractdomain.FileGoal{
		ID:           s.genID.Generate(),
		ContractID:   req.ContractID,
		AudioFileID:  req.AudioFileID,
		GoalQuantity: req.GoalQuantity,
		Mode:         mode,
		Active:       true,
	}
	if err := s.goalrepo.Create(ctx, goal); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, contractdomain.ErrDuplicateGoal
		}
		return nil, err
	}
	return goal, nil
}

func (s *Service) SetFileGoalActive(ctx context.Context, id snowflake.ID, active bool) (*contractdomain.FileGoal, error) {
	goal, err := s.goalrepo.FindOne(ctx, &contractdomain.FileGoal{ID: id})
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, contractdomain.ErrGoalNotFound
	}
	err = s.db.WithContext(ctx).Model(&contractdomain.FileGoal{}).
		Where("id = ?", id).
		Update("active", active).Error
	if err != nil {
		return nil, err
	}
	goal.Active = active
	return goal, nil
}

func (s *Service) ListFileGoals(ctx context.Context, contractID snowflake.ID) ([]*contractdomain.FileGoal, error) {
	return s.goalrepo.Find(ctx, &contractdomain.FileGoal{ContractID: contractID})
}

func (s *Service) ResolveActive(ctx context.Context, clientID snowflake.ID, at time.Time, frequency contractdomain.Frequency) (*contractdomain.Contract, error) {
	candidates, err := s.contractrepo.Find(ctx, &contractdomain.Contract{
		ClientID: clientID,
		Status:   contractdomain.ContractStatusActive,
	})
	if err != nil {
		return nil, err
	}

	// Date and frequency filtering happen in memory; a client rarely holds
	// more than a handful of open contracts.
	var matched []*contractdomain.Contract
	for _, c := range candidates {
		if c.ActiveAt(at) && c.MatchesFrequency(frequency) {
			matched = append(matched, c)
		}
	}

	switch len(matched) {
	case 0:
		return nil, contractdomain.ErrNoActiveContract
	case 1:
		return matched[0], nil
	default:
		s.log.Warn("multiple contracts active for client, refusing to guess",
			zap.Int64("client_id", int64(clientID)),
			zap.Time("at", at),
			zap.Int("matches", len(matched)),
		)
		return nil, contractdomain.ErrAmbiguousContract
	}
}
