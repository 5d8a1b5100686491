package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"reliefhub-api/models"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID string, notificationType models.NotificationType, page, limit int) ([]models.Notification, int64, error)
	Stats(ctx context.Context, userID string) (*models.NotificationStats, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type userLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type notificationMailer interface {
	SendNotificationEmail(to, name string, notification *models.Notification) error
}

// NotificationService stores in-app notifications and optionally mirrors
// them to e-mail and the event bus.
type NotificationService struct {
	store  notificationStore
	users  userLookup
	mailer notificationMailer
	events EventPublisher
	now    func() time.Time
}

// NewNotificationService builds the service. mailer and events may be nil.
func NewNotificationService(store notificationStore, users userLookup, mailer notificationMailer, events EventPublisher) *NotificationService {
	return &NotificationService{
		store:  store,
		users:  users,
		mailer: mailer,
		events: events,
		now:    time.Now,
	}
}

// Notify persists a notification. Mail and event delivery are best effort.
func (s *NotificationService) Notify(ctx context.Context, params models.NotifyParams) error {
	notification := &models.Notification{
		ID:       uuid.New().String(),
		UserID:   params.UserID,
		Type:     params.Type,
		Title:    params.Title,
		Message:  params.Message,
		Link:     params.Link,
		Metadata: datatypes.JSONMap(params.Metadata),
	}
	if err := s.store.Create(ctx, notification); err != nil {
		return err
	}

	if s.mailer != nil && s.users != nil {
		user, err := s.users.GetByID(ctx, params.UserID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", params.UserID).Msg("notification recipient not found for email")
		} else if err := s.mailer.SendNotificationEmail(user.Email, user.Name, notification); err != nil {
			log.Warn().Err(err).Str("notification_id", notification.ID).Msg("failed to email notification")
		}
	}

	if s.events != nil {
		err := s.events.Publish(ctx, "notification.created", map[string]interface{}{
			"notification_id": notification.ID,
			"user_id":         notification.UserID,
			"type":            notification.Type,
		})
		if err != nil {
			log.Warn().Err(err).Str("notification_id", notification.ID).Msg("failed to publish notification event")
		}
	}

	return nil
}

// List returns a page of the user's notifications.
func (s *NotificationService) List(ctx context.Context, userID string, notificationType models.NotificationType, page, limit int) (*models.PaginatedNotifications, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	notifications, total, err := s.store.List(ctx, userID, notificationType, page, limit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	responses := make([]models.NotificationResponse, len(notifications))
	for i := range notifications {
		responses[i] = notifications[i].ToResponse(now)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginatedNotifications{
		Notifications: responses,
		Page:          page,
		Limit:         limit,
		Total:         total,
		HasMore:       page < totalPages,
		TotalPages:    totalPages,
	}, nil
}

func (s *NotificationService) Stats(ctx context.Context, userID string) (*models.NotificationStats, error) {
	return s.store.Stats(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}
