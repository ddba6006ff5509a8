package repository

import (
	"context"
	"errors"

	"github.com/ondasul/airtrack/pkg/db/option"
	"gorm.io/gorm"
)

type gormStore[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &gormStore[T]{db: db}
}

// WithTrx rebinds the store to a transaction handle so callers can compose
// multi-model writes atomically.
func (s *gormStore[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &gormStore[T]{db: tx}
}

func (s *gormStore[T]) scoped(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}

func (s *gormStore[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := s.scoped(ctx, query, opts...).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *gormStore[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var row T
	err := s.scoped(ctx, query, opts...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *gormStore[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s *gormStore[T]) Update(ctx context.Context, resourceID string, resource any) error {
	return s.db.WithContext(ctx).Model(new(T)).Where("id = ?", resourceID).Updates(resource).Error
}

func (s *gormStore[T]) Delete(ctx context.Context, resourceID string) error {
	return s.db.WithContext(ctx).Where("id = ?", resourceID).Delete(new(T)).Error
}

func (s *gormStore[T]) Count(ctx context.Context, query *T) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(query).Where(query).Count(&n).Error
	return n, err
}
