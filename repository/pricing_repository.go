package repository

import (
	"context"
	"fmt"

	"paydiag/model"

	"gorm.io/gorm"
)

type PricingRepository interface {
	ListModelPricing(ctx context.Context, activeOnly bool) ([]model.ModelPointConfig, error)
}

type gormPricingRepository struct {
	db *gorm.DB
}

func NewPricingRepository(db *gorm.DB) PricingRepository {
	return &gormPricingRepository{db: db}
}

func (r *gormPricingRepository) ListModelPricing(ctx context.Context, activeOnly bool) ([]model.ModelPointConfig, error) {
	configs := make([]model.ModelPointConfig, 0)
	q := r.db.WithContext(ctx).Model(&model.ModelPointConfig{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("model_name ASC").Order("question_type ASC").Order("id ASC").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to list model point configs: %w", err)
	}
	return configs, nil
}
