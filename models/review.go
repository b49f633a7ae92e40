package models

import "time"

const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Review is one rating event. At most one review exists per (user, order) when OrderID is set.
type Review struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         uint       `json:"user_id" gorm:"not null;index;uniqueIndex:idx_review_user_order,priority:1"`
	OrderID        *uint      `json:"order_id,omitempty" gorm:"uniqueIndex:idx_review_user_order,priority:2"`
	RestaurantID   *uint      `json:"restaurant_id,omitempty" gorm:"index"`
	DriverID       *uint      `json:"driver_id,omitempty" gorm:"index"`
	Rating         float64    `json:"rating" gorm:"not null"`
	FoodRating     *float64   `json:"food_rating,omitempty"`
	ServiceRating  *float64   `json:"service_rating,omitempty"`
	DeliveryRating *float64   `json:"delivery_rating,omitempty"`
	Title          string     `json:"title,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	Response       string     `json:"response,omitempty"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DriverScore is the value that counts toward a driver's aggregate.
func (r *Review) DriverScore() float64 {
	if r.DeliveryRating != nil {
		return *r.DeliveryRating
	}
	return r.Rating
}
