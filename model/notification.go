package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType represents the type/severity of notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
)

// NotificationCategory represents what part of the bot produced the notification
type NotificationCategory string

const (
	NotificationCategoryApplication NotificationCategory = "application"
	NotificationCategoryEvent       NotificationCategory = "event"
	NotificationCategoryGeneral     NotificationCategory = "general"
)

// UserNotification is the persisted copy of a message pushed to a user through
// the chat transport. Delivery is fire-and-forget; the row is the audit trail.
type UserNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	UserID    uint                 `gorm:"index;not null" json:"user_id"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Message   string               `gorm:"type:text;not null" json:"message"`
	Delivered bool                 `gorm:"default:false" json:"delivered"`
	Metadata  datatypes.JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// NotificationMetadata represents common metadata fields
type NotificationMetadata struct {
	ApplicationID uint   `json:"application_id,omitempty"`
	EventID       uint   `json:"event_id,omitempty"`
	Status        string `json:"status,omitempty"`
}
