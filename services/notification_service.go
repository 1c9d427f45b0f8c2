package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/NikFin25/deanery-bot/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier pushes a text message to a user through the chat transport.
// The transport adapter implements it; tests use a fake.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

// NotificationService persists user notifications and pushes them through the
// injected Notifier. Delivery is fire-and-forget: a push failure is recorded
// on the row and logged but never propagated to the caller.
type NotificationService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, notifier Notifier) *NotificationService {
	return &NotificationService{db: db, notifier: notifier}
}

// CreateNotificationRequest represents a request to notify a user
type CreateNotificationRequest struct {
	UserID   uint
	Type     model.NotificationType
	Category model.NotificationCategory
	Message  string
	Metadata *model.NotificationMetadata
}

// Send stores the notification row, then attempts delivery.
func (s *NotificationService) Send(ctx context.Context, req CreateNotificationRequest) (*model.UserNotification, error) {
	notification := &model.UserNotification{
		UserID:   req.UserID,
		Type:     req.Type,
		Category: req.Category,
		Message:  req.Message,
	}

	// Serialize metadata if provided
	if req.Metadata != nil {
		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(metadataJSON)
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.deliver(ctx, notification)
	return notification, nil
}

// deliver pushes the message through the transport and marks the row.
func (s *NotificationService) deliver(ctx context.Context, n *model.UserNotification) {
	if s.notifier == nil {
		return
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, n.UserID).Error; err != nil {
		log.Printf("Notification %d: failed to load user %d: %v", n.ID, n.UserID, err)
		return
	}

	if err := s.notifier.Notify(ctx, user.TelegramID, n.Message); err != nil {
		log.Printf("Notification %d: delivery to telegram id %d failed: %v", n.ID, user.TelegramID, err)
		return
	}

	if err := s.db.WithContext(ctx).Model(n).Update("delivered", true).Error; err != nil {
		log.Printf("Notification %d: failed to mark delivered: %v", n.ID, err)
	}
}

// RetryUndelivered re-attempts delivery of notifications whose first push
// failed, oldest first. Returns how many were delivered this pass.
func (s *NotificationService) RetryUndelivered(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	var pending []model.UserNotification
	err := s.db.WithContext(ctx).
		Where("delivered = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to fetch undelivered notifications: %w", err)
	}

	delivered := 0
	for i := range pending {
		s.deliver(ctx, &pending[i])
		if pending[i].Delivered {
			delivered++
		}
	}
	return delivered, nil
}

// ListByUser returns a user's stored notifications, newest first.
func (s *NotificationService) ListByUser(ctx context.Context, userID uint, limit int) ([]model.UserNotification, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []model.UserNotification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return rows, nil
}
