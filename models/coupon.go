package models

import "time"

type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixed        DiscountType = "fixed"
	DiscountFreeDelivery DiscountType = "free_delivery"
)

func (d DiscountType) Valid() bool {
	return d == DiscountPercentage || d == DiscountFixed || d == DiscountFreeDelivery
}

// Coupon is a discount rule. Zero MaxUses / MaxUsesPerUser mean unlimited.
type Coupon struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	Code           string       `json:"code" gorm:"uniqueIndex;not null"`
	Description    string       `json:"description"`
	DiscountType   DiscountType `json:"discount_type" gorm:"not null"`
	DiscountValue  float64      `json:"discount_value"`
	MinOrderValue  float64      `json:"min_order_value"`
	MaxUses        int          `json:"max_uses"`
	MaxUsesPerUser int          `json:"max_uses_per_user"`
	UsedCount      int          `json:"used_count"`
	StartsAt       *time.Time   `json:"starts_at,omitempty"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	Active         bool         `json:"active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// CouponRedemption records one use of a coupon by a user on an order.
type CouponRedemption struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CouponID  uint      `json:"coupon_id" gorm:"not null;index:idx_redemption_coupon_user,priority:1"`
	UserID    uint      `json:"user_id" gorm:"not null;index:idx_redemption_coupon_user,priority:2"`
	OrderID   uint      `json:"order_id" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}
