package repository

import (
	"context"

	"github.com/nannyexpress/booking-service/internal/models"
	"gorm.io/gorm"
)

type NannyRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Nanny, error)
	FindActive(ctx context.Context) ([]models.Nanny, error)
}

type nannyRepository struct {
	db *gorm.DB
}

func NewNannyRepository(db *gorm.DB) NannyRepository {
	return &nannyRepository{db: db}
}

func (r *nannyRepository) FindByID(ctx context.Context, id uint) (*models.Nanny, error) {
	var nanny models.Nanny
	if err := r.db.WithContext(ctx).Preload("Blackouts").First(&nanny, id).Error; err != nil {
		return nil, err
	}
	return &nanny, nil
}

func (r *nannyRepository) FindActive(ctx context.Context) ([]models.Nanny, error) {
	var nannies []models.Nanny
	err := r.db.WithContext(ctx).
		Preload("Blackouts").
		Where("status = ?", models.NannyActive).
		Order("name ASC").
		Find(&nannies).Error
	if err != nil {
		return nil, err
	}
	return nannies, nil
}
