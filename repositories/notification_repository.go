package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"reliefhub-api/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(notification).Error, "create notification")
}

// List returns a user's notifications, optionally of one type, newest first.
func (r *NotificationRepository) List(ctx context.Context, userID string, notificationType models.NotificationType, page, limit int) ([]models.Notification, int64, error) {
	_, limit, offset := normalizePage(page, limit, 20, 50)

	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if notificationType != "" {
		query = query.Where("type = ?", notificationType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count notifications")
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error; err != nil {
		return nil, 0, translate(err, "list notifications")
	}
	return notifications, total, nil
}

// Stats counts a user's unread and total notifications.
func (r *NotificationRepository) Stats(ctx context.Context, userID string) (*models.NotificationStats, error) {
	var unread, total int64

	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, translate(err, "count unread notifications")
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, translate(err, "count notifications")
	}

	return &models.NotificationStats{UnreadCount: int(unread), TotalCount: int(total)}, nil
}

// MarkRead marks one of the user's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return translate(err, "get notification")
	}
	if notification.IsRead {
		return nil
	}
	return translate(r.db.WithContext(ctx).Model(&notification).Update("is_read", true).Error, "mark notification read")
}

// MarkAllRead marks every unread notification of the user as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark all notifications read")
	}
	return res.RowsAffected, nil
}
