package model

import (
	"time"
)

// Event represents an extracurricular event students can sign up for.
// Events are never hard-deleted: staff deactivate them so historical
// participant records stay queryable.
type Event struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Requirements string    `gorm:"type:text" json:"requirements"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`

	Participants []EventParticipant `gorm:"foreignKey:EventID" json:"-"`
}

// EventParticipant links a user to an event. The composite primary key
// doubles as the uniqueness constraint: a second insert for the same
// (event, user) pair fails at the storage layer, which closes the race
// between concurrent sign-up attempts.
type EventParticipant struct {
	EventID      uint      `gorm:"primaryKey" json:"event_id"`
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	RegisteredAt time.Time `gorm:"autoCreateTime" json:"registered_at"`

	Event Event `gorm:"foreignKey:EventID" json:"-"`
	User  User  `gorm:"foreignKey:UserID" json:"-"`
}
