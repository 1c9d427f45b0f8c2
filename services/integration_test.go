package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/NikFin25/deanery-bot/database"
	"github.com/NikFin25/deanery-bot/model"
)

// setupTestDB connects to the database configured through the usual env
// variables. The suite is skipped unless RUN_INTEGRATION_TESTS=true.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	store, err := database.StartGORM()
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store.GetDB()
}

// uniqueSuffix keeps test fixtures from colliding across runs.
func uniqueSuffix() int64 {
	return time.Now().UnixNano()
}

func TestRegistrationLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewRegistrationService(db, false)

	suffix := uniqueSuffix()
	telegramID := suffix
	raw := fmt.Sprintf("Иванов Иван Иванович ТЕСТ-%d", suffix)

	user, err := svc.Register(ctx, telegramID, raw)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.FullName != "Иванов Иван Иванович" {
		t.Errorf("full name = %q", user.FullName)
	}
	if user.Role != model.RoleStudent {
		t.Errorf("role = %q, want student", user.Role)
	}
	if user.GroupID == nil {
		t.Fatal("group was not attached")
	}

	// Same telegram id again must fail as a duplicate, not an allow-list miss.
	if _, err := svc.Register(ctx, telegramID, raw); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	found, err := svc.FindByTelegramID(ctx, telegramID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Group == nil || found.Group.ID != *user.GroupID {
		t.Error("group not preloaded on lookup")
	}

	if err := svc.DeleteAccount(ctx, telegramID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := svc.FindByTelegramID(ctx, telegramID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after deletion, got %v", err)
	}
}

func TestRegistrationAllowList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewRegistrationService(db, true)

	suffix := uniqueSuffix()
	groupName := fmt.Sprintf("ТЕСТ-АЛ-%d", suffix)
	raw := fmt.Sprintf("Петров Пётр Петрович %s", groupName)

	// Not on the list yet.
	if _, err := svc.Register(ctx, suffix, raw); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}

	row := model.AllowedUser{FullName: "Петров Пётр Петрович", GroupName: groupName}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed allow-list row: %v", err)
	}

	if _, err := svc.Register(ctx, suffix, raw); err != nil {
		t.Fatalf("register with allow-list row: %v", err)
	}

	// The row is single-shot: a second registration against it must fail.
	if _, err := svc.Register(ctx, suffix+1, raw); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed on consumed row, got %v", err)
	}
}

func TestEventRegistrationIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	registration := NewRegistrationService(db, false)
	events := NewEventService(db)

	suffix := uniqueSuffix()
	user, err := registration.Register(ctx, suffix, fmt.Sprintf("Сидоров Семён Семёнович ТЕСТ-МР-%d", suffix))
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	event, err := events.Create(ctx, "Субботник", "Уборка территории", "-")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	ok, err := events.Register(ctx, user.ID, event.ID)
	if err != nil {
		t.Fatalf("first sign-up: %v", err)
	}
	if !ok {
		t.Fatal("first sign-up reported as duplicate")
	}

	ok, err = events.Register(ctx, user.ID, event.ID)
	if err != nil {
		t.Fatalf("second sign-up: %v", err)
	}
	if ok {
		t.Fatal("second sign-up was not deduplicated")
	}

	participants, err := events.Participants(ctx, event.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 1 {
		t.Fatalf("got %d participants, want 1", len(participants))
	}
	if participants[0].User.FullName != user.FullName {
		t.Error("participant user not preloaded")
	}

	if err := events.Deactivate(ctx, event.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := events.Register(ctx, user.ID+1, event.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for finished event, got %v", err)
	}
}

func TestApplicationStatusNotifiesOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	registration := NewRegistrationService(db, false)
	notifications := NewNotificationService(db, nil)
	applications := NewApplicationService(db, notifications)

	suffix := uniqueSuffix()
	user, err := registration.Register(ctx, suffix, fmt.Sprintf("Козлова Анна Павловна ТЕСТ-ЗВ-%d", suffix))
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	app, err := applications.Create(ctx, user.ID, "Справка об обучении", "-")
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if app.Status != model.StatusNew {
		t.Errorf("new application status = %q", app.Status)
	}

	if _, err := applications.SetStatus(ctx, app.ID, model.ApplicationStatus("Сгорела")); !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat for unknown status, got %v", err)
	}

	updated, err := applications.SetStatus(ctx, app.ID, model.StatusAccepted)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != model.StatusAccepted {
		t.Errorf("status = %q, want %q", updated.Status, model.StatusAccepted)
	}

	// With no transport attached the notification is stored undelivered.
	stored, err := notifications.ListByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(stored) == 0 {
		t.Fatal("status change produced no notification")
	}
	if stored[0].Delivered {
		t.Error("notification marked delivered without a transport")
	}
}

func TestImportScheduleReplacesPreviousBatch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewImportService(db)

	groupName := fmt.Sprintf("ТЕСТ-ИМ-%d", uniqueSuffix())
	first := []ScheduleRow{
		{DayOfWeek: model.Monday, Week: 1, StartTime: "08:30", EndTime: "10:00", Subject: "Математика"},
		{DayOfWeek: model.Tuesday, Week: 2, StartTime: "10:10", EndTime: "11:40", Subject: "Физика"},
	}

	result, err := svc.ImportSchedule(ctx, groupName, first)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if result.Imported != 2 || result.Replaced != 0 {
		t.Errorf("first import: imported=%d replaced=%d", result.Imported, result.Replaced)
	}
	if result.BatchID == "" {
		t.Error("batch id missing")
	}

	second := append(first, ScheduleRow{
		DayOfWeek: model.Friday, Week: 1, StartTime: "08:30", EndTime: "10:00", Subject: "История",
	})
	result, err = svc.ImportSchedule(ctx, groupName, second)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if result.Imported != 3 || result.Replaced != 2 {
		t.Errorf("second import: imported=%d replaced=%d", result.Imported, result.Replaced)
	}

	var group model.Group
	if err := db.Where("name = ?", groupName).First(&group).Error; err != nil {
		t.Fatalf("group not created: %v", err)
	}
	var count int64
	if err := db.Model(&model.Schedule{}).Where("group_id = ?", group.ID).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 3 {
		t.Errorf("group has %d schedule rows, want 3", count)
	}
}

func TestScheduleTodayAndRotation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	suffix := uniqueSuffix()
	groupName := fmt.Sprintf("ТЕСТ-РП-%d", suffix)
	group := model.Group{Name: groupName}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}

	rows := []model.Schedule{
		{GroupID: group.ID, DayOfWeek: model.Monday, Week: 1, StartTime: "10:10", EndTime: "11:40", Subject: "Информатика"},
		{GroupID: group.ID, DayOfWeek: model.Monday, Week: 1, StartTime: "08:30", EndTime: "10:00", Subject: "Математика"},
		{GroupID: group.ID, DayOfWeek: model.Monday, Week: 2, StartTime: "08:30", EndTime: "10:00", Subject: "История"},
	}
	for _, row := range rows {
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("create schedule row: %v", err)
		}
	}

	svc := NewScheduleService(db)
	// 2024-01-01 is a Monday in an odd ISO week.
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }

	today, err := svc.Today(ctx, groupName)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(today) != 2 {
		t.Fatalf("got %d periods, want 2", len(today))
	}
	if today[0].Subject != "Математика" {
		t.Errorf("periods not ordered by start time: %s first", today[0].Subject)
	}

	// Next week the parity flips.
	svc.now = func() time.Time { return time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC) }
	today, err = svc.Today(ctx, groupName)
	if err != nil {
		t.Fatalf("today, week 2: %v", err)
	}
	if len(today) != 1 || today[0].Subject != "История" {
		t.Fatalf("week 2 returned %v", today)
	}

	if _, err := svc.Today(ctx, "НЕТ-ТАКОЙ-ГРУППЫ"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown group, got %v", err)
	}

	weeks, err := svc.TwoWeeks(ctx, groupName)
	if err != nil {
		t.Fatalf("two weeks: %v", err)
	}
	if len(weeks.Weeks[0].Days) != 1 || len(weeks.Weeks[1].Days) != 1 {
		t.Fatalf("rotation buckets wrong: %+v", weeks)
	}
}
