package services

import (
	"context"
	"strings"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/store"

	"github.com/shopspring/decimal"
)

type CouponService interface {
	Validate(ctx context.Context, q CouponQuote) (*Quote, error)
	Create(ctx context.Context, in CreateCouponInput) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Update(ctx context.Context, id uint, in UpdateCouponInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uint) error

	// quote is Validate plus the coupon row, for redemption at placement.
	quote(ctx context.Context, q CouponQuote) (*models.Coupon, *Quote, error)
}

// CouponQuote asks what a coupon would take off an order total. UserID is
// optional; without it per-user limits are not checked.
type CouponQuote struct {
	Code        string  `json:"code"`
	OrderTotal  float64 `json:"orderTotal"`
	DeliveryFee float64 `json:"deliveryFee"`
	UserID      uint    `json:"-"`
}

type Quote struct {
	Valid          bool                `json:"valid"`
	Code           string              `json:"code"`
	DiscountType   models.DiscountType `json:"discountType"`
	DiscountValue  float64             `json:"discountValue"`
	DiscountAmount float64             `json:"discountAmount"`
	FinalAmount    float64             `json:"finalAmount"`
	Description    string              `json:"description,omitempty"`
}

type CreateCouponInput struct {
	Code           string              `json:"code"`
	Description    string              `json:"description"`
	DiscountType   models.DiscountType `json:"discountType"`
	DiscountValue  float64             `json:"discountValue"`
	MinOrderValue  float64             `json:"minOrderValue"`
	MaxUses        int                 `json:"maxUses"`
	MaxUsesPerUser int                 `json:"maxUsesPerUser"`
	StartsAt       *time.Time          `json:"startsAt"`
	ExpiresAt      *time.Time          `json:"expiresAt"`
}

type UpdateCouponInput struct {
	Active      *bool      `json:"active"`
	MaxUses     *int       `json:"maxUses"`
	Description *string    `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type couponService struct {
	stg store.ICouponStorage
	log logger.ILogger
	now func() time.Time
}

func NewCouponService(stg store.IStorage, log logger.ILogger) CouponService {
	return &couponService{
		stg: stg.Coupon(),
		log: log,
		now: time.Now,
	}
}

func (s *couponService) Validate(ctx context.Context, q CouponQuote) (*Quote, error) {
	_, quote, err := s.quote(ctx, q)
	return quote, err
}

func (s *couponService) quote(ctx context.Context, q CouponQuote) (*models.Coupon, *Quote, error) {
	if strings.TrimSpace(q.Code) == "" {
		return nil, nil, apperrors.Validation("coupon code required")
	}
	if q.OrderTotal < 0 || q.DeliveryFee < 0 {
		return nil, nil, apperrors.Validation("order total must not be negative")
	}
	coupon, err := s.stg.GetByCode(ctx, q.Code)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NotFound("coupon not found")
		}
		return nil, nil, err
	}
	if err := s.checkUsable(ctx, coupon, q); err != nil {
		return nil, nil, err
	}

	total := cents(q.OrderTotal)
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case models.DiscountPercentage:
		discount = total.Mul(decimal.NewFromFloat(coupon.DiscountValue)).Div(decimal.NewFromInt(100))
	case models.DiscountFixed:
		discount = decimal.NewFromFloat(coupon.DiscountValue)
	case models.DiscountFreeDelivery:
		discount = cents(q.DeliveryFee)
	}
	discount = decimal.Min(discount, total).Round(2)

	return coupon, &Quote{
		Valid:          true,
		Code:           coupon.Code,
		DiscountType:   coupon.DiscountType,
		DiscountValue:  coupon.DiscountValue,
		DiscountAmount: discount.InexactFloat64(),
		FinalAmount:    decimal.Max(decimal.Zero, total.Sub(discount)).Round(2).InexactFloat64(),
		Description:    coupon.Description,
	}, nil
}

// checkUsable runs every rejection rule before any discount is computed.
func (s *couponService) checkUsable(ctx context.Context, c *models.Coupon, q CouponQuote) error {
	now := s.now()
	if !c.Active {
		return apperrors.Validation("coupon is inactive")
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return apperrors.Validation("coupon is not active yet")
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return apperrors.Validation("coupon has expired")
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return apperrors.Validation("coupon usage limit reached")
	}
	if c.MaxUsesPerUser > 0 && q.UserID != 0 {
		used, err := s.stg.CountUserRedemptions(ctx, c.ID, q.UserID)
		if err != nil {
			return err
		}
		if used >= int64(c.MaxUsesPerUser) {
			return apperrors.Validation("coupon already used the maximum number of times")
		}
	}
	if q.OrderTotal < c.MinOrderValue {
		return apperrors.Validation("minimum order value required: %.2f", c.MinOrderValue)
	}
	return nil
}

func (s *couponService) Create(ctx context.Context, in CreateCouponInput) (*models.Coupon, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, apperrors.Validation("code is required")
	}
	if !in.DiscountType.Valid() {
		return nil, apperrors.Validation("discountType must be percentage, fixed or free_delivery")
	}
	if in.DiscountType != models.DiscountFreeDelivery && in.DiscountValue <= 0 {
		return nil, apperrors.Validation("discountValue must be positive")
	}
	if in.DiscountType == models.DiscountPercentage && in.DiscountValue > 100 {
		return nil, apperrors.Validation("percentage discount cannot exceed 100")
	}
	if in.MinOrderValue < 0 || in.MaxUses < 0 || in.MaxUsesPerUser < 0 {
		return nil, apperrors.Validation("limits must not be negative")
	}
	if in.StartsAt != nil && in.ExpiresAt != nil && in.ExpiresAt.Before(*in.StartsAt) {
		return nil, apperrors.Validation("expiresAt must be after startsAt")
	}

	c := &models.Coupon{
		Code:           in.Code,
		Description:    in.Description,
		DiscountType:   in.DiscountType,
		DiscountValue:  in.DiscountValue,
		MinOrderValue:  in.MinOrderValue,
		MaxUses:        in.MaxUses,
		MaxUsesPerUser: in.MaxUsesPerUser,
		StartsAt:       in.StartsAt,
		ExpiresAt:      in.ExpiresAt,
		Active:         true,
	}
	if err := s.stg.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("coupon created", logger.String("code", c.Code), logger.String("type", string(c.DiscountType)))
	return c, nil
}

func (s *couponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.stg.List(ctx)
}

func (s *couponService) Update(ctx context.Context, id uint, in UpdateCouponInput) (*models.Coupon, error) {
	patch := map[string]interface{}{}
	if in.Active != nil {
		patch["active"] = *in.Active
	}
	if in.MaxUses != nil {
		if *in.MaxUses < 0 {
			return nil, apperrors.Validation("maxUses must not be negative")
		}
		patch["max_uses"] = *in.MaxUses
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.ExpiresAt != nil {
		patch["expires_at"] = *in.ExpiresAt
	}
	if len(patch) == 0 {
		return nil, apperrors.Validation("nothing to update")
	}
	return s.stg.Update(ctx, id, patch)
}

func (s *couponService) Delete(ctx context.Context, id uint) error {
	if err := s.stg.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("coupon deleted", logger.Uint("coupon_id", id))
	return nil
}
