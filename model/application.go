package model

import (
	"time"
)

// ApplicationStatus is the flat set of triage labels. Transitions are not a
// workflow: staff can relabel any status to any other.
type ApplicationStatus string

const (
	StatusNew        ApplicationStatus = "Новая"
	StatusInProgress ApplicationStatus = "В процессе"
	StatusAccepted   ApplicationStatus = "Принята"
	StatusRejected   ApplicationStatus = "Отклонена"
	StatusDone       ApplicationStatus = "Выполнена"
)

// Valid reports whether s is a known status label.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusAccepted, StatusRejected, StatusDone:
		return true
	}
	return false
}

// Application represents a student's request to the dean's office.
type Application struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	UserID    uint              `gorm:"index;not null" json:"user_id"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	Status    ApplicationStatus `gorm:"type:varchar(20);default:'Новая'" json:"status"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
