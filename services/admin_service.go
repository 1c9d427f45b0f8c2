package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/NikFin25/deanery-bot/model"
	"gorm.io/gorm"
)

// AdminService covers the admin panel: user management, role assignment and
// project statistics.
type AdminService struct {
	db           *gorm.DB
	registration *RegistrationService
}

// NewAdminService creates a new admin service
func NewAdminService(db *gorm.DB, registration *RegistrationService) *AdminService {
	return &AdminService{db: db, registration: registration}
}

// Stats holds the project counters shown in the admin panel.
type Stats struct {
	TotalUsers        int64 `json:"total_users"`
	TotalApplications int64 `json:"total_applications"`
	TotalEvents       int64 `json:"total_events"`
	ActiveEvents      int64 `json:"active_events"`
}

// ListUsers returns registered users with groups preloaded, oldest first.
// limit <= 0 means the admin-panel default of 50.
func (s *AdminService) ListUsers(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 50
	}

	var users []model.User
	err := s.db.WithContext(ctx).
		Preload("Group").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}

// FindUsers searches by name substring, exact telegram id, or exact group
// name. A single query string probes all three.
func (s *AdminService) FindUsers(ctx context.Context, query string) ([]model.User, error) {
	q := s.db.WithContext(ctx).Preload("Group")

	conds := s.db.Where("full_name ILIKE ?", "%"+query+"%")
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		conds = conds.Or("telegram_id = ?", id)
	}
	conds = conds.Or("group_id IN (?)",
		s.db.Model(&model.Group{}).Select("id").Where("name = ?", NormalizeGroupName(query)))

	var users []model.User
	err := q.Where(conds).Limit(10).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user by row id with the same explicit cascade as
// self-service account deletion.
func (s *AdminService) DeleteUser(ctx context.Context, userID uint) error {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return err
	}
	return s.registration.DeleteAccount(ctx, user.TelegramID)
}

// AssignRole sets a registered user's role, identified by telegram id.
func (s *AdminService) AssignRole(ctx context.Context, telegramID int64, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrBadFormat, role)
	}

	var user model.User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: telegram id %d", ErrNotFound, telegramID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}
	user.Role = role

	log.Printf("User %d (telegram id %d) role set to %s", user.ID, telegramID, role)
	return &user, nil
}

// Stats counts users, applications and events for the admin panel.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counters := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, s.db.WithContext(ctx).Model(&model.User{})},
		{&stats.TotalApplications, s.db.WithContext(ctx).Model(&model.Application{})},
		{&stats.TotalEvents, s.db.WithContext(ctx).Model(&model.Event{})},
		{&stats.ActiveEvents, s.db.WithContext(ctx).Model(&model.Event{}).Where("is_active = ?", true)},
	}
	for _, c := range counters {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}
	return stats, nil
}
