package services

import (
	"context"
	"time"

	"food-marketplace-api/logger"
	"food-marketplace-api/models"
	"food-marketplace-api/store"
)

// NotificationService is a user's inbox. Entries are written by order
// transitions and driver assignment.
type NotificationService interface {
	List(ctx context.Context, userID uint, f store.NotificationFilter) (*store.NotificationPage, error)
	MarkRead(ctx context.Context, userID, id uint) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

type notificationService struct {
	stg store.INotificationStorage
	log logger.ILogger
	now func() time.Time
}

func NewNotificationService(stg store.IStorage, log logger.ILogger) NotificationService {
	return &notificationService{
		stg: stg.Notification(),
		log: log,
		now: time.Now,
	}
}

func (s *notificationService) List(ctx context.Context, userID uint, f store.NotificationFilter) (*store.NotificationPage, error) {
	p, err := s.stg.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if p.Notifications == nil {
		p.Notifications = []models.Notification{}
	}
	return p, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id uint) (*models.Notification, error) {
	return s.stg.MarkRead(ctx, id, userID, s.now().UTC())
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.stg.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}
	s.log.Debug("notifications marked read", logger.Uint("user_id", userID), logger.Int64("count", n))
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, userID, id uint) error {
	return s.stg.Delete(ctx, id, userID)
}
