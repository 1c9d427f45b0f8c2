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

// EventService handles events and participant sign-up
type EventService struct {
	db *gorm.DB
}

// NewEventService creates a new event service
func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// Create publishes a new active event. Empty or "-" requirements mean "none".
func (s *EventService) Create(ctx context.Context, title, description, requirements string) (*model.Event, error) {
	if r := strings.TrimSpace(requirements); r == "" || r == "-" {
		requirements = "—"
	}

	event := &model.Event{
		Title:        title,
		Description:  description,
		Requirements: requirements,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	log.Printf("Event %d created: %s", event.ID, event.Title)
	return event, nil
}

// ListActive returns events students can still sign up for.
func (s *EventService) ListActive(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}

// ListAll returns every event, newest first, for the staff view.
func (s *EventService) ListAll(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}

// Get loads one event.
func (s *EventService) Get(ctx context.Context, eventID uint) (*model.Event, error) {
	var event model.Event
	err := s.db.WithContext(ctx).First(&event, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Deactivate soft-deletes an event: the row and its participants stay.
func (s *EventService) Deactivate(ctx context.Context, eventID uint) error {
	res := s.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ?", eventID).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	return nil
}

// Register signs a user up for an event. Returns false when the user is
// already registered, both when the pre-check sees the row and when a
// concurrent attempt loses the race and hits the composite primary key.
func (s *EventService) Register(ctx context.Context, userID, eventID uint) (bool, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return false, err
	}
	if !event.IsActive {
		return false, fmt.Errorf("%w: event %d is no longer active", ErrNotFound, eventID)
	}

	already, err := s.IsRegistered(ctx, userID, eventID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	participant := model.EventParticipant{EventID: eventID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent sign-up: same outcome.
			return false, nil
		}
		return false, fmt.Errorf("failed to register for event: %w", err)
	}
	return true, nil
}

// IsRegistered reports whether a participant row exists for (event, user).
func (s *EventService) IsRegistered(ctx context.Context, userID, eventID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.EventParticipant{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return count > 0, nil
}

// Participants lists an event's sign-ups with users and groups preloaded.
// The event must exist; an event nobody joined yields an empty slice.
func (s *EventService) Participants(ctx context.Context, eventID uint) ([]model.EventParticipant, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}

	var participants []model.EventParticipant
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("User.Group").
		Where("event_id = ?", eventID).
		Order("registered_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	return participants, nil
}
