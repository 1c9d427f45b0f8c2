package model

import (
	"time"
)

// Group represents a student group, e.g. "21-СПО-ИСИП-02".
// Names are stored normalized to upper case and are unique.
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`

	// Relationships
	Users     []User     `gorm:"foreignKey:GroupID" json:"-"`
	Schedules []Schedule `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
	Semesters []Semester `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
}
