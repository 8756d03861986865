package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type checkoutLogGormRepository struct {
	db *gorm.DB
}

func NewCheckoutLogGormRepository(db *gorm.DB) repo.CheckoutLogRepository {
	return &checkoutLogGormRepository{db: db}
}

func (r *checkoutLogGormRepository) Create(ctx context.Context, log model.CheckoutLog) error {
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return err
	}
	return nil
}

func (r *checkoutLogGormRepository) ListByOrderID(ctx context.Context, orderID string) ([]model.CheckoutLog, error) {
	var logs []model.CheckoutLog

	//古い順
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
