package store

import (
	"context"
	"strings"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"gorm.io/gorm"
)

type couponRepo struct {
	db *gorm.DB
}

// NormalizeCode is the canonical (upper case) form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *couponRepo) Create(ctx context.Context, c *models.Coupon) error {
	c.Code = NormalizeCode(c.Code)
	err := r.db.WithContext(ctx).Create(c).Error
	if err != nil && isDuplicate(err) {
		return apperrors.Conflict("coupon code %s already exists", c.Code)
	}
	return wrap(err, "coupon")
}

func (r *couponRepo) Get(ctx context.Context, id uint) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, wrap(err, "coupon")
	}
	return &c, nil
}

func (r *couponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&c).Error; err != nil {
		return nil, wrap(err, "coupon")
	}
	return &c, nil
}

func (r *couponRepo) List(ctx context.Context) ([]models.Coupon, error) {
	var list []models.Coupon
	err := r.db.WithContext(ctx).Order("created_at desc, id desc").Find(&list).Error
	return list, wrap(err, "coupon")
}

func (r *couponRepo) Update(ctx context.Context, id uint, patch map[string]interface{}) (*models.Coupon, error) {
	if code, ok := patch["code"].(string); ok {
		patch["code"] = NormalizeCode(code)
	}
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, wrap(res.Error, "coupon")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("coupon not found")
	}
	return r.Get(ctx, id)
}

func (r *couponRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Coupon{}, id)
	if res.Error != nil {
		return wrap(res.Error, "coupon")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("coupon not found")
	}
	return nil
}

func (r *couponRepo) CountUserRedemptions(ctx context.Context, couponID, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&n).Error
	return n, wrap(err, "coupon")
}
