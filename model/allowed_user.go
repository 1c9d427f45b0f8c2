package model

import (
	"time"
)

// AllowedUser is one row of the optional registration allow-list: an expected
// (full name, group) pair. A row is consumed exactly once: Used flips to true
// on the first successful registration that matches it.
type AllowedUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FullName  string    `gorm:"type:varchar(100);not null;index:idx_allowed_users_match" json:"full_name"`
	GroupName string    `gorm:"type:varchar(50);not null;index:idx_allowed_users_match" json:"group_name"`
	Used      bool      `gorm:"default:false" json:"used"`
}
