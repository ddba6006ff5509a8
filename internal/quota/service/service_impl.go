package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	quotadomain "github.com/ondasul/airtrack/internal/quota/domain"
	"github.com/ondasul/airtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	itemrepo repository.Repository[contractdomain.ContractItem]
	goalrepo repository.Repository[contractdomain.FileGoal]
}

func NewService(p ServiceParam) quotadomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("quota.service"),

		itemrepo: repository.ProvideStore[contractdomain.ContractItem](p.DB),
		goalrepo: repository.ProvideStore[contractdomain.FileGoal](p.DB),
	}
}

func (s *Service) Allocate(ctx context.Context, contractID, audioFileID snowflake.ID, programType string, quantity int) (*quotadomain.Allocation, error) {
	if quantity <= 0 {
		return nil, quotadomain.ErrInvalidQuantity
	}

	goal, err := s.goalrepo.FindOne(ctx, &contractdomain.FileGoal{
		ContractID:  contractID,
		AudioFileID: audioFileID,
		Active:      true,
	})
	if err != nil {
		return nil, err
	}

	var item *contractdomain.ContractItem
	if programType != "" {
		item, err = s.itemrepo.FindOne(ctx, &contractdomain.ContractItem{
			ContractID:  contractID,
			ProgramType: programType,
		})
		if err != nil {
			return nil, err
		}
	}

	if goal == nil && item == nil {
		return nil, quotadomain.ErrNoQuotaLine
	}

	alloc := &quotadomain.Allocation{
		ContractID: contractID,
		Quantity:   quantity,
	}
	if goal != nil {
		id := goal.ID
		alloc.FileGoalID = &id
		alloc.GoalSaturated = goal.Saturated()
	}
	if item != nil {
		id := item.ID
		alloc.ContractItemID = &id
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if goal != nil {
			err := tx.Model(&contractdomain.FileGoal{}).
				Where("id = ?", goal.ID).
				Update("executed_quantity", gorm.Expr("executed_quantity + ?", quantity)).Error
			if err != nil {
				return err
			}
		}
		if item != nil {
			err := tx.Model(&contractdomain.ContractItem{}).
				Where("id = ?", item.ID).
				Update("executed_quantity", gorm.Expr("executed_quantity + ?", quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

func (s *Service) Rollback(ctx context.Context, alloc quotadomain.Allocation) error {
	if alloc.Quantity <= 0 {
		return quotadomain.ErrInvalidQuantity
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if alloc.FileGoalID != nil {
			if err := decrementFloor(tx, &contractdomain.FileGoal{}, *alloc.FileGoalID, alloc.Quantity); err != nil {
				return err
			}
		}
		if alloc.ContractItemID != nil {
			if err := decrementFloor(tx, &contractdomain.ContractItem{}, *alloc.ContractItemID, alloc.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) Reverse(ctx context.Context, contractID, audioFileID snowflake.ID, programType string, quantity int) error {
	if quantity <= 0 {
		return quotadomain.ErrInvalidQuantity
	}

	// The inactive goal is looked up too: a goal deactivated after the
	// original allocation still holds the count being reversed.
	goal, err := s.goalrepo.FindOne(ctx, &contractdomain.FileGoal{
		ContractID:  contractID,
		AudioFileID: audioFileID,
	})
	if err != nil {
		return err
	}

	var item *contractdomain.ContractItem
	if programType != "" {
		item, err = s.itemrepo.FindOne(ctx, &contractdomain.ContractItem{
			ContractID:  contractID,
			ProgramType: programType,
		})
		if err != nil {
			return err
		}
	}

	alloc := quotadomain.Allocation{ContractID: contractID, Quantity: quantity}
	if goal != nil {
		id := goal.ID
		alloc.FileGoalID = &id
	}
	if item != nil {
		id := item.ID
		alloc.ContractItemID = &id
	}
	if alloc.FileGoalID == nil && alloc.ContractItemID == nil {
		return nil
	}
	return s.Rollback(ctx, alloc)
}

// decrementFloor subtracts quantity from a counter, clamping at zero. The
// guarded update keeps the subtraction atomic; the fallback only runs when
// the counter held less than quantity.
func decrementFloor(tx *gorm.DB, model any, id snowflake.ID, quantity int) error {
	res := tx.Model(model).
		Where("id = ? AND executed_quantity >= ?", id, quantity).
		Update("executed_quantity", gorm.Expr("executed_quantity - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tx.Model(model).
			Where("id = ?", id).
			Update("executed_quantity", 0).Error
	}
	return nil
}
