package models

import "time"

// Driver is a delivery courier. UserID links an optional driver-role account.
type Driver struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         *uint      `json:"user_id,omitempty" gorm:"uniqueIndex"`
	Name           string     `json:"name" gorm:"not null"`
	Email          string     `json:"email" gorm:"not null"`
	Phone          string     `json:"phone" gorm:"not null"`
	Vehicle        string     `json:"vehicle"`
	LicensePlate   string     `json:"license_plate"`
	Available      bool       `json:"available"`
	CurrentOrderID *uint      `json:"current_order_id"`

	Rating          float64 `json:"rating"`
	TotalRatings    int     `json:"total_ratings"`
	RatingSum       float64 `json:"-"`
	TotalOrders     int     `json:"total_orders"`
	CompletedOrders int     `json:"completed_orders"`
	CancelledOrders int     `json:"cancelled_orders"`
	Earnings        float64 `json:"earnings"`

	LastLatitude   *float64   `json:"last_latitude,omitempty"`
	LastLongitude  *float64   `json:"last_longitude,omitempty"`
	LastLocationAt *time.Time `json:"last_location_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
