package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/NikFin25/deanery-bot/model"
	"github.com/NikFin25/deanery-bot/services"
)

// SessionSweeper removes expired form accumulators. The in-memory session
// store implements it; the redis store expires keys itself and passes nil.
type SessionSweeper interface {
	Sweep() int
}

// CronManager schedules the bot's background maintenance jobs.
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	sweeper       SessionSweeper
	notifications *services.NotificationService
}

// NewCronManager creates a new cron manager. sweeper may be nil.
func NewCronManager(db *gorm.DB, sweeper SessionSweeper, notifications *services.NotificationService) *CronManager {
	return &CronManager{
		cron:          cron.New(cron.WithSeconds()),
		db:            db,
		sweeper:       sweeper,
		notifications: notifications,
	}
}

// Start registers all jobs and starts the scheduler.
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// Every 10 minutes: drop expired form sessions from the in-memory store.
	_, err := m.cron.AddFunc("0 */10 * * * *", m.SweepFormSessions)
	if err != nil {
		return err
	}

	// Every 30 minutes: re-push notifications whose first delivery failed.
	_, err = m.cron.AddFunc("0 */30 * * * *", m.RetryUndeliveredNotifications)
	if err != nil {
		return err
	}

	// Daily at 3 AM: purge old delivered notifications and stale job logs.
	_, err = m.cron.AddFunc("0 0 3 * * *", m.CleanupOldData)
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart records a running log row and returns its id, so the
// completion update targets exactly this run even when older rows for the
// same job were left in "running" by a crash.
func (m *CronManager) logJobStart(jobName string) uint {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&cronLog)
	return cronLog.ID
}

func (m *CronManager) logJobComplete(logID uint, jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	m.db.Model(&model.CronJobLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now(),
			"message":      message,
		})
}

func (m *CronManager) logJobError(logID uint, jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	m.db.Model(&model.CronJobLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"status":       "failed",
			"completed_at": time.Now(),
			"error_msg":    err.Error(),
		})
}
