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

// RegistrationService handles self-registration and account removal
type RegistrationService struct {
	db *gorm.DB

	// allowList gates registration on the allowed_users table when true.
	allowList bool
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(db *gorm.DB, allowList bool) *RegistrationService {
	return &RegistrationService{db: db, allowList: allowList}
}

// Registration is the parsed form of a "Фамилия Имя Отчество ГРУППА" message.
type Registration struct {
	FullName  string
	GroupName string
}

// ParseRegistration splits raw input into a three-token full name and a group
// name built from the remaining tokens (group codes may contain spaces).
// Fewer than four tokens is a format error.
func ParseRegistration(text string) (Registration, error) {
	parts := strings.Fields(text)
	if len(parts) < 4 {
		return Registration{}, fmt.Errorf("%w: expected \"Фамилия Имя Отчество ГРУППА\"", ErrBadFormat)
	}

	return Registration{
		FullName:  strings.Join(parts[:3], " "),
		GroupName: NormalizeGroupName(strings.Join(parts[3:], " ")),
	}, nil
}

// NormalizeGroupName folds a group name to its canonical upper-case form so
// "21-спо-исип-02" and "21-СПО-ИСиП-02" resolve to the same group.
func NormalizeGroupName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Register parses rawText, consults the allow-list if enabled, then
// finds-or-creates the group and creates the user in a single transaction.
//
// Distinct failures: ErrBadFormat (re-prompt), ErrDuplicate (telegram id
// already registered), ErrNotAllowed (no unused allow-list row matches).
func (s *RegistrationService) Register(ctx context.Context, telegramID int64, rawText string) (*model.User, error) {
	reg, err := ParseRegistration(rawText)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-registration must fail before the allow-list is consumed.
		var existing model.User
		err := tx.Where("telegram_id = ?", telegramID).First(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: telegram id %d is already registered", ErrDuplicate, telegramID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if s.allowList {
			if err := consumeAllowListEntry(tx, reg.FullName, reg.GroupName); err != nil {
				return err
			}
		}

		group, err := findOrCreateGroup(tx, reg.GroupName)
		if err != nil {
			return err
		}

		user = &model.User{
			TelegramID: telegramID,
			FullName:   reg.FullName,
			Role:       model.RoleStudent,
			GroupID:    &group.ID,
			Group:      group,
		}
		if err := tx.Create(user).Error; err != nil {
			// Concurrent registration with the same telegram id: the
			// unique index is the source of truth.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: telegram id %d is already registered", ErrDuplicate, telegramID)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Registered user %d (%s, %s)", user.ID, user.FullName, reg.GroupName)
	return user, nil
}

// consumeAllowListEntry flips exactly one unused (name, group) row to used.
// The guarded UPDATE makes consumption single-shot even under concurrent
// attempts with the same identity: the second attempt matches zero rows.
func consumeAllowListEntry(tx *gorm.DB, fullName, groupName string) error {
	res := tx.Model(&model.AllowedUser{}).
		Where("full_name = ? AND group_name = ? AND used = ?", fullName, groupName, false).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: no unused allow-list entry for %q / %q", ErrNotAllowed, fullName, groupName)
	}
	return nil
}

// findOrCreateGroup resolves a normalized group name to its row, creating it
// when absent. A lost creation race falls back to re-fetching the winner's row.
func findOrCreateGroup(tx *gorm.DB, name string) (*model.Group, error) {
	var group model.Group
	err := tx.Where("name = ?", name).First(&group).Error
	if err == nil {
		return &group, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	group = model.Group{Name: name}
	if err := tx.Create(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := tx.Where("name = ?", name).First(&group).Error; err != nil {
				return nil, err
			}
			return &group, nil
		}
		return nil, fmt.Errorf("failed to create group %q: %w", name, err)
	}
	return &group, nil
}

// FindByTelegramID loads a user with their group preloaded.
func (s *RegistrationService) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Preload("Group").
		Where("telegram_id = ?", telegramID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: telegram id %d", ErrNotFound, telegramID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteAccount removes the user and, explicitly, everything that belongs to
// them: applications, event participations and stored notifications. The
// cascade is spelled out rather than left to the schema so the behavior is
// visible and tested.
func (s *RegistrationService) DeleteAccount(ctx context.Context, telegramID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Where("telegram_id = ?", telegramID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: telegram id %d", ErrNotFound, telegramID)
		}
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&model.Application{}).Error; err != nil {
			return fmt.Errorf("failed to delete applications: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.EventParticipant{}).Error; err != nil {
			return fmt.Errorf("failed to delete event participations: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.UserNotification{}).Error; err != nil {
			return fmt.Errorf("failed to delete notifications: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		log.Printf("Deleted account %d (telegram id %d)", user.ID, telegramID)
		return nil
	})
}
