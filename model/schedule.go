package model

import (
	"time"
)

// Weekday tokens as stored in the schedules table.
const (
	Monday    = "MONDAY"
	Tuesday   = "TUESDAY"
	Wednesday = "WEDNESDAY"
	Thursday  = "THURSDAY"
	Friday    = "FRIDAY"
	Saturday  = "SATURDAY"
	Sunday    = "SUNDAY"
)

// WeekdayOrder maps a stored weekday token to its position Monday(1)..Sunday(7).
var WeekdayOrder = map[string]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
	Sunday:    7,
}

// WeekdayNamesRU maps stored weekday tokens to the Russian names used in rendering.
var WeekdayNamesRU = map[string]string{
	Monday:    "Понедельник",
	Tuesday:   "Вторник",
	Wednesday: "Среда",
	Thursday:  "Четверг",
	Friday:    "Пятница",
	Saturday:  "Суббота",
	Sunday:    "Воскресенье",
}

// Schedule represents one period of a group's timetable, keyed by
// (group, day of week, week parity). Week is 1 or 2 for the bi-weekly rotation.
type Schedule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GroupID   uint      `gorm:"index:idx_schedules_lookup;not null" json:"group_id"`
	DayOfWeek string    `gorm:"type:varchar(10);index:idx_schedules_lookup;not null" json:"day_of_week"`
	Week      int       `gorm:"index:idx_schedules_lookup;not null;default:1" json:"week"`
	StartTime string    `gorm:"type:varchar(5);not null" json:"start_time"` // "08:30"
	EndTime   string    `gorm:"type:varchar(5)" json:"end_time"`
	Subject   string    `gorm:"type:varchar(255);not null" json:"subject"`
	Teacher   string    `gorm:"type:varchar(100)" json:"teacher"`
	Room      string    `gorm:"type:varchar(50)" json:"room"`

	Group Group `gorm:"foreignKey:GroupID" json:"-"`
}

// TimeRange renders the period time as "08:30-10:00".
func (s *Schedule) TimeRange() string {
	if s.EndTime == "" {
		return s.StartTime
	}
	return s.StartTime + "-" + s.EndTime
}
