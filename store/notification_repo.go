package store

import (
	"context"
	"time"

	"food-marketplace-api/apperrors"
	"food-marketplace-api/models"

	"gorm.io/gorm"
)

type NotificationFilter struct {
	// IsRead narrows the list to read or unread entries when set.
	IsRead *bool
	Page   int
	Limit  int
}

// NotificationPage is one page of a user's inbox. Total counts the filtered
// entries, Unread counts every unread entry of the user.
type NotificationPage struct {
	Notifications []models.Notification
	Total         int64
	Unread        int64
}

type notificationRepo struct {
	db *gorm.DB
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return wrap(r.db.WithContext(ctx).Create(n).Error, "notification")
}

func (r *notificationRepo) List(ctx context.Context, userID uint, f NotificationFilter) (*NotificationPage, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.IsRead != nil {
		q = q.Where("is_read = ?", *f.IsRead)
	}

	p := &NotificationPage{}
	if err := q.Count(&p.Total).Error; err != nil {
		return nil, wrap(err, "notification")
	}
	offset, size := paginate(f.Page, f.Limit)
	err := q.Order("created_at desc, id desc").Offset(offset).Limit(size).Find(&p.Notifications).Error
	if err != nil {
		return nil, wrap(err, "notification")
	}
	err = db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&p.Unread).Error
	if err != nil {
		return nil, wrap(err, "notification")
	}
	return p, nil
}

func (r *notificationRepo) get(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, wrap(err, "notification")
	}
	if n.UserID != userID {
		return nil, apperrors.Authorization("not authorized")
	}
	return &n, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID uint, at time.Time) (*models.Notification, error) {
	n, err := r.get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	err = r.db.WithContext(ctx).Model(n).Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
	if err != nil {
		return nil, wrap(err, "notification")
	}
	n.IsRead, n.ReadAt = true, &at
	return n, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, wrap(res.Error, "notification")
}

func (r *notificationRepo) Delete(ctx context.Context, id, userID uint) error {
	if _, err := r.get(ctx, id, userID); err != nil {
		return err
	}
	return wrap(r.db.WithContext(ctx).Delete(&models.Notification{}, id).Error, "notification")
}
