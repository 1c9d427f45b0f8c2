package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/NikFin25/deanery-bot/model"
	"gorm.io/gorm"
)

// ApplicationService handles student applications and staff triage
type ApplicationService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewApplicationService creates a new application service
func NewApplicationService(db *gorm.DB, notifications *NotificationService) *ApplicationService {
	return &ApplicationService{db: db, notifications: notifications}
}

// Create files a new application for the user. The description step accepts
// "-" as "no description"; the content block mirrors what the dean sees.
func (s *ApplicationService) Create(ctx context.Context, userID uint, subject, description string) (*model.Application, error) {
	var user model.User
	err := s.db.WithContext(ctx).Preload("Group").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(description) == "-" {
		description = ""
	}
	if description == "" {
		description = "—"
	}

	content := fmt.Sprintf(
		"📩 <b>Новая заявка от студента</b>\n"+
			"👤 <b>ФИО:</b> %s\n"+
			"🏫 <b>Группа:</b> %s\n\n"+
			"📌 <b>Тема:</b> %s\n"+
			"📝 <b>Описание:</b> %s",
		user.FullName, user.GroupName(), subject, description,
	)

	app := &model.Application{
		UserID:  user.ID,
		Content: content,
		Status:  model.StatusNew,
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	log.Printf("Application %d filed by user %d", app.ID, user.ID)
	return app, nil
}

// ListAll returns every application with its owner preloaded, oldest first.
func (s *ApplicationService) ListAll(ctx context.Context) ([]model.Application, error) {
	var apps []model.Application
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("User.Group").
		Order("created_at ASC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}
	return apps, nil
}

// ListByUser returns one user's applications, oldest first.
func (s *ApplicationService) ListByUser(ctx context.Context, userID uint) ([]model.Application, error) {
	var apps []model.Application
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}
	return apps, nil
}

// SetStatus relabels an application. Any status can move to any other; this
// is triage bookkeeping, not a workflow. The owning user is notified after
// the commit; a notification failure never rolls the change back.
func (s *ApplicationService) SetStatus(ctx context.Context, appID uint, status model.ApplicationStatus) (*model.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadFormat, status)
	}

	var app model.Application
	err := s.db.WithContext(ctx).First(&app, appID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: application %d", ErrNotFound, appID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&app).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update application status: %w", err)
	}
	app.Status = status

	if s.notifications != nil {
		message := fmt.Sprintf(
			"📢 Ваша заявка обновлена!\n\n%s\n\n📊 Новый статус: <b>%s</b>",
			app.Content, status,
		)
		_, err := s.notifications.Send(ctx, CreateNotificationRequest{
			UserID:   app.UserID,
			Type:     model.NotificationTypeInfo,
			Category: model.NotificationCategoryApplication,
			Message:  message,
			Metadata: &model.NotificationMetadata{
				ApplicationID: app.ID,
				Status:        string(status),
			},
		})
		if err != nil {
			log.Printf("Application %d: status notification failed: %v", app.ID, err)
		}
	}

	return &app, nil
}

// ClearAll wipes every application and returns how many were removed.
func (s *ApplicationService) ClearAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Application{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear applications: %w", res.Error)
	}
	return res.RowsAffected, nil
}
