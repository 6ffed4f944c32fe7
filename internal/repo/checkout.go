package repo

import (
	"context"

	"github.com/Skotchmaster/mlm_storefront/internal/models"
	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(&models.CheckoutAttempt{}, &models.CheckoutLine{})
}

func (r *GormRepo) CreateAttempt(ctx context.Context, a *models.CheckoutAttempt) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *GormRepo) ListAttempts(ctx context.Context, buyerID string, limit, offset int) ([]models.CheckoutAttempt, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.CheckoutAttempt{}).Where("buyer_id = ?", buyerID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []models.CheckoutAttempt
	if err := r.DB.WithContext(ctx).Where("buyer_id = ?", buyerID).Preload("Lines").Order("created_at DESC").Limit(limit).Offset(offset).Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}
