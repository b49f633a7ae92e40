package models

import "time"

type NotificationType string

const (
	NotifyOrderStatus    NotificationType = "order_status"
	NotifyDriverAssigned NotificationType = "driver_assigned"
)

// Notification is one inbox entry for a user.
type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index:idx_notification_user_read,priority:1"`
	OrderID   *uint            `json:"order_id,omitempty" gorm:"index"`
	Type      NotificationType `json:"type" gorm:"not null"`
	Title     string           `json:"title" gorm:"not null"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read" gorm:"not null;default:false;index:idx_notification_user_read,priority:2"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
