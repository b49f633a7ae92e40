package store

import (
	"context"
	"fmt"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"gorm.io/gorm"
)

type driverRepo struct {
	db *gorm.DB
}

func (r *driverRepo) Create(ctx context.Context, d *models.Driver) error {
	return wrap(r.db.WithContext(ctx).Create(d).Error, "driver")
}

func (r *driverRepo) Get(ctx context.Context, id uint) (*models.Driver, error) {
	var d models.Driver
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("driver %d", id))
	}
	return &d, nil
}

func (r *driverRepo) GetByUser(ctx context.Context, userID uint) (*models.Driver, error) {
	var d models.Driver
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&d).Error; err != nil {
		return nil, wrap(err, "driver profile")
	}
	return &d, nil
}

func (r *driverRepo) List(ctx context.Context, availableOnly bool) ([]models.Driver, error) {
	q := r.db.WithContext(ctx)
	if availableOnly {
		q = q.Where("available = ?", true)
	}
	var list []models.Driver
	err := q.Order("id asc").Find(&list).Error
	return list, wrap(err, "driver")
}

func (r *driverRepo) Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Driver, error) {
	res := r.db.WithContext(ctx).Model(&models.Driver{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, wrap(res.Error, "driver")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("driver %d not found", id)
	}
	return r.Get(ctx, id)
}

func (r *driverRepo) SaveLocation(ctx context.Context, id uint, lat, lng float64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Driver{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_latitude":    lat,
		"last_longitude":   lng,
		"last_location_at": at,
	})
	if res.Error != nil {
		return wrap(res.Error, "driver")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("driver %d not found", id)
	}
	return nil
}
