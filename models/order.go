package models

import (
	"math"
	"time"
)

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "placed"
	StatusAccepted       OrderStatus = "accepted"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// AllStatuses lists the enumeration in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPlaced,
	StatusAccepted,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentCash   PaymentMethod = "cash"
	PaymentWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCash || m == PaymentWallet
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// TotalTolerance is the rounding slack allowed when checking the total invariant.
const TotalTolerance = 0.01

type Order struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	OrderNumber  string      `json:"order_number" gorm:"uniqueIndex;not null"`
	UserID       uint        `json:"user_id" gorm:"not null;index"`
	RestaurantID *uint       `json:"restaurant_id" gorm:"index"`
	DriverID     *uint       `json:"driver_id" gorm:"index"`
	Status       OrderStatus `json:"status" gorm:"not null;index"`
	// Version equals the Seq of the last step and guards concurrent transitions.
	Version int         `json:"version" gorm:"not null"`
	Items   []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	Steps   []OrderStep `json:"steps" gorm:"foreignKey:OrderID"`

	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	ServiceFee  float64 `json:"service_fee"`
	Tax         float64 `json:"tax"`
	Discount    float64 `json:"discount"`
	Tip         float64 `json:"tip"`
	Total       float64 `json:"total"`
	CouponCode  string  `json:"coupon_code,omitempty"`

	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TransactionID string        `json:"transaction_id,omitempty"`

	DeliveryAddress      string `json:"delivery_address"`
	DeliveryInstructions string `json:"delivery_instructions,omitempty"`

	Reviewed         bool     `json:"reviewed"`
	RestaurantRating *float64 `json:"restaurant_rating,omitempty"`
	DriverRating     *float64 `json:"driver_rating,omitempty"`

	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	DeliveredAt           *time.Time `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy           string     `json:"cancelled_by,omitempty"`
	CancellationReason    string     `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComputedTotal applies subtotal + fees + tax + tip - discount.
func (o *Order) ComputedTotal() float64 {
	return o.Subtotal + o.DeliveryFee + o.ServiceFee + o.Tax + o.Tip - o.Discount
}

// TotalConsistent checks the stored total against its components.
func (o *Order) TotalConsistent() bool {
	return math.Abs(o.Total-o.ComputedTotal()) <= TotalTolerance+1e-9
}

// LastStep returns the most recent step, or nil when no history is loaded.
func (o *Order) LastStep() *OrderStep {
	if len(o.Steps) == 0 {
		return nil
	}
	return &o.Steps[len(o.Steps)-1]
}

type OrderItem struct {
	ID                  uint    `json:"id" gorm:"primaryKey"`
	OrderID             uint    `json:"order_id" gorm:"not null;index"`
	FoodItemID          uint    `json:"food_item_id"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity" gorm:"not null"`
	Price               float64 `json:"price" gorm:"not null"` // snapshot price at time of order
	SpecialInstructions string  `json:"special_instructions,omitempty"`
}

// OrderStep is one append-only entry of an order's status history.
type OrderStep struct {
	ID        uint        `json:"-" gorm:"primaryKey"`
	OrderID   uint        `json:"-" gorm:"not null;uniqueIndex:idx_order_step_seq,priority:1"`
	Seq       int         `json:"seq" gorm:"not null;uniqueIndex:idx_order_step_seq,priority:2"`
	Step      OrderStatus `json:"step" gorm:"not null"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderSequence holds the per-day counter behind order numbers.
type OrderSequence struct {
	Day  string `gorm:"primaryKey"`
	Last int    `gorm:"not null"`
}
