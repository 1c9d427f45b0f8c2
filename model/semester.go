package model

import (
	"time"
)

// Semester represents one numbered semester of a group with its date range.
// A group's current semester is the one whose range contains today.
type Semester struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GroupID   uint      `gorm:"index;not null" json:"group_id"`
	Number    int       `gorm:"not null" json:"number"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	Group Group `gorm:"foreignKey:GroupID" json:"-"`
}

// Contains reports whether t falls inside the semester date range (inclusive).
func (s *Semester) Contains(t time.Time) bool {
	return !t.Before(s.StartDate) && !t.After(s.EndDate)
}
