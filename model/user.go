package model

import (
	"time"
)

// Role is the closed set of user roles. Menu routing switches over it
// exhaustively, so adding a role is a compile-visible change.
type Role string

const (
	RoleStudent Role = "student"
	RoleDean    Role = "dean"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleDean, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role gets the staff menu.
func (r Role) IsStaff() bool {
	switch r {
	case RoleDean, RoleAdmin:
		return true
	case RoleStudent:
		return false
	}
	return false
}

// User represents a registered bot user
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	TelegramID int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	FullName   string    `gorm:"type:varchar(100);not null" json:"full_name"`
	Role       Role      `gorm:"type:varchar(20);default:'student'" json:"role"`
	GroupID    *uint     `gorm:"index" json:"group_id,omitempty"`

	// Relationships
	Group         *Group             `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Applications  []Application      `gorm:"foreignKey:UserID" json:"-"`
	Events        []EventParticipant `gorm:"foreignKey:UserID" json:"-"`
	Notifications []UserNotification `gorm:"foreignKey:UserID" json:"-"`
}

// GroupName returns the user's group name or an em dash placeholder
// for users whose group was removed.
func (u *User) GroupName() string {
	if u.Group == nil {
		return "—"
	}
	return u.Group.Name
}
