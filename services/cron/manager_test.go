package cron

import (
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/NikFin25/deanery-bot/database"
	"github.com/NikFin25/deanery-bot/model"
)

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

// Completing a run must touch only that run's log row. A row left in
// "running" by a crashed earlier run stays as it is.
func TestJobLogCompletionTargetsSingleRun(t *testing.T) {
	db := setupTestDB(t)
	m := NewCronManager(db, nil, nil)

	jobName := fmt.Sprintf("test_job_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		db.Where("job_name = ?", jobName).Delete(&model.CronJobLog{})
	})

	staleID := m.logJobStart(jobName)
	currentID := m.logJobStart(jobName)
	if staleID == 0 || currentID == 0 || staleID == currentID {
		t.Fatalf("bad log ids: stale=%d current=%d", staleID, currentID)
	}

	m.logJobComplete(currentID, jobName, "done")

	var current model.CronJobLog
	if err := db.First(&current, currentID).Error; err != nil {
		t.Fatalf("load current row: %v", err)
	}
	if current.Status != "completed" || current.Message != "done" {
		t.Errorf("current row: status=%q message=%q", current.Status, current.Message)
	}

	var stale model.CronJobLog
	if err := db.First(&stale, staleID).Error; err != nil {
		t.Fatalf("load stale row: %v", err)
	}
	if stale.Status != "running" {
		t.Errorf("stale row status = %q, want running", stale.Status)
	}

	m.logJobError(staleID, jobName, fmt.Errorf("gave up"))
	if err := db.First(&stale, staleID).Error; err != nil {
		t.Fatalf("reload stale row: %v", err)
	}
	if stale.Status != "failed" || stale.ErrorMsg != "gave up" {
		t.Errorf("stale row after error: status=%q error=%q", stale.Status, stale.ErrorMsg)
	}
}
