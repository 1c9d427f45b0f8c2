package database

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/NikFin25/deanery-bot/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedAllowList loads the registration allow-list from a CSV file with
// "full name,group" rows. Existing (name, group) pairs are left untouched so
// re-running the seed never resets a consumed row.
func SeedAllowList(db *gorm.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open allow-list file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to parse allow-list file %s: %w", path, err)
	}

	created := 0
	for _, rec := range records {
		fullName := strings.TrimSpace(rec[0])
		groupName := strings.ToUpper(strings.TrimSpace(rec[1]))
		if fullName == "" || groupName == "" {
			continue
		}

		var existing model.AllowedUser
		err := db.Where("full_name = ? AND group_name = ?", fullName, groupName).
			First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return created, err
		}

		row := model.AllowedUser{FullName: fullName, GroupName: groupName}
		if err := db.Create(&row).Error; err != nil {
			return created, err
		}
		created++
	}

	log.Printf("Seeded allow-list: %d new rows from %s", created, path)
	return created, nil
}

// SeedStaff promotes the given telegram ids to the given role. Users that have
// not registered yet are skipped; the seed is re-run after they register.
func SeedStaff(db *gorm.DB, telegramIDs []int64, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	for _, tid := range telegramIDs {
		res := db.Model(&model.User{}).
			Where("telegram_id = ?", tid).
			Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.Printf("Seed: telegram id %d not registered yet, skipping %s promotion", tid, role)
		}
	}
	return nil
}

// SeedDemoGroup creates a demo group with a tiny two-week timetable.
// Used by cmd/seed for local development only.
func SeedDemoGroup(db *gorm.DB, name string) error {
	name = strings.ToUpper(name)

	group := model.Group{Name: name}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&group).Error; err != nil {
		return err
	}
	if group.ID == 0 {
		if err := db.Where("name = ?", name).First(&group).Error; err != nil {
			return err
		}
	}

	demo := []model.Schedule{
		{GroupID: group.ID, DayOfWeek: model.Monday, Week: 1, StartTime: "08:30", EndTime: "10:00", Subject: "Математика", Teacher: "Петрова А.Н.", Room: "214"},
		{GroupID: group.ID, DayOfWeek: model.Monday, Week: 1, StartTime: "10:10", EndTime: "11:40", Subject: "Информатика", Teacher: "Сидоров В.К.", Room: "301"},
		{GroupID: group.ID, DayOfWeek: model.Wednesday, Week: 1, StartTime: "08:30", EndTime: "10:00", Subject: "Физика", Teacher: "Козлов Д.М.", Room: "115"},
		{GroupID: group.ID, DayOfWeek: model.Monday, Week: 2, StartTime: "08:30", EndTime: "10:00", Subject: "История", Teacher: "Смирнова Е.В.", Room: "207"},
		{GroupID: group.ID, DayOfWeek: model.Friday, Week: 2, StartTime: "10:10", EndTime: "11:40", Subject: "Английский язык", Teacher: "Иванова О.П.", Room: "112"},
	}

	for _, row := range demo {
		if err := db.Create(&row).Error; err != nil {
			return err
		}
	}

	log.Printf("Seeded demo group %s with %d schedule rows", name, len(demo))
	return nil
}
