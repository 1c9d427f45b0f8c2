package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/NikFin25/deanery-bot/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportService is the surface the external spreadsheet batch job pushes
// structured rows into. It only needs find-or-create-group plus schedule and
// semester inserts; parsing the spreadsheet itself happens outside.
type ImportService struct {
	db *gorm.DB
}

// NewImportService creates a new import service
func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{db: db}
}

// ScheduleRow is one imported timetable period.
type ScheduleRow struct {
	DayOfWeek string `json:"day_of_week" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	Week      int    `json:"week" validate:"required,oneof=1 2"`
	StartTime string `json:"start_time" validate:"required,len=5"`
	EndTime   string `json:"end_time" validate:"omitempty,len=5"`
	Subject   string `json:"subject" validate:"required,max=255"`
	Teacher   string `json:"teacher" validate:"omitempty,max=100"`
	Room      string `json:"room" validate:"omitempty,max=50"`
}

// SemesterRow is one imported semester date range.
type SemesterRow struct {
	Number    int       `json:"number" validate:"required,min=1,max=20"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

// ImportResult reports what one batch did.
type ImportResult struct {
	BatchID  string `json:"batch_id"`
	Group    string `json:"group"`
	Imported int    `json:"imported"`
	Replaced int64  `json:"replaced"`
}

// ImportSchedule replaces a group's timetable with the given rows in one
// transaction, creating the group if needed.
func (s *ImportService) ImportSchedule(ctx context.Context, groupName string, rows []ScheduleRow) (*ImportResult, error) {
	name := NormalizeGroupName(groupName)
	result := &ImportResult{BatchID: uuid.New().String(), Group: name}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := findOrCreateGroup(tx, name)
		if err != nil {
			return err
		}

		res := tx.Where("group_id = ?", group.ID).Delete(&model.Schedule{})
		if res.Error != nil {
			return fmt.Errorf("failed to clear old schedule: %w", res.Error)
		}
		result.Replaced = res.RowsAffected

		for _, row := range rows {
			entry := model.Schedule{
				GroupID:   group.ID,
				DayOfWeek: row.DayOfWeek,
				Week:      row.Week,
				StartTime: row.StartTime,
				EndTime:   row.EndTime,
				Subject:   row.Subject,
				Teacher:   row.Teacher,
				Room:      row.Room,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to insert schedule row: %w", err)
			}
		}
		result.Imported = len(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Import %s: group %s, %d schedule rows (replaced %d)",
		result.BatchID, name, result.Imported, result.Replaced)
	return result, nil
}

// ImportSemesters replaces a group's semester calendar with the given rows.
func (s *ImportService) ImportSemesters(ctx context.Context, groupName string, rows []SemesterRow) (*ImportResult, error) {
	name := NormalizeGroupName(groupName)
	result := &ImportResult{BatchID: uuid.New().String(), Group: name}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := findOrCreateGroup(tx, name)
		if err != nil {
			return err
		}

		res := tx.Where("group_id = ?", group.ID).Delete(&model.Semester{})
		if res.Error != nil {
			return fmt.Errorf("failed to clear old semesters: %w", res.Error)
		}
		result.Replaced = res.RowsAffected

		for _, row := range rows {
			entry := model.Semester{
				GroupID:   group.ID,
				Number:    row.Number,
				StartDate: row.StartDate,
				EndDate:   row.EndDate,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to insert semester row: %w", err)
			}
		}
		result.Imported = len(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Import %s: group %s, %d semester rows (replaced %d)",
		result.BatchID, name, result.Imported, result.Replaced)
	return result, nil
}
