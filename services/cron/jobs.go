package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/NikFin25/deanery-bot/model"
)

const (
	jobTimeout           = 2 * time.Minute
	notificationMaxAge   = 90 * 24 * time.Hour
	jobLogMaxAge         = 30 * 24 * time.Hour
	redeliveryBatchLimit = 100
)

// SweepFormSessions evicts expired form accumulators from the in-memory
// session store.
func (m *CronManager) SweepFormSessions() {
	jobName := "sweep_form_sessions"
	logID := m.logJobStart(jobName)

	if m.sweeper == nil {
		m.logJobComplete(logID, jobName, "no sweepable session store configured")
		return
	}

	removed := m.sweeper.Sweep()
	m.logJobComplete(logID, jobName, fmt.Sprintf("removed %d expired sessions", removed))
}

// RetryUndeliveredNotifications re-pushes notifications that failed on their
// first delivery attempt, in bounded batches.
func (m *CronManager) RetryUndeliveredNotifications() {
	jobName := "retry_undelivered_notifications"
	logID := m.logJobStart(jobName)

	if m.notifications == nil {
		m.logJobComplete(logID, jobName, "notification service not configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	delivered, err := m.notifications.RetryUndelivered(ctx, redeliveryBatchLimit)
	if err != nil {
		m.logJobError(logID, jobName, err)
		return
	}
	m.logJobComplete(logID, jobName, fmt.Sprintf("redelivered %d notifications", delivered))
}

// CleanupOldData removes delivered notifications and job logs that are past
// their retention window.
func (m *CronManager) CleanupOldData() {
	jobName := "cleanup_old_data"
	logID := m.logJobStart(jobName)

	notificationCutoff := time.Now().Add(-notificationMaxAge)
	notifications := m.db.
		Where("delivered = ? AND created_at < ?", true, notificationCutoff).
		Delete(&model.UserNotification{})
	if notifications.Error != nil {
		m.logJobError(logID, jobName, fmt.Errorf("failed to purge notifications: %w", notifications.Error))
		return
	}

	logCutoff := time.Now().Add(-jobLogMaxAge)
	logs := m.db.
		Where("started_at < ?", logCutoff).
		Delete(&model.CronJobLog{})
	if logs.Error != nil {
		m.logJobError(logID, jobName, fmt.Errorf("failed to purge job logs: %w", logs.Error))
		return
	}

	m.logJobComplete(logID, jobName, fmt.Sprintf(
		"purged %d notifications, %d job logs", notifications.RowsAffected, logs.RowsAffected))
}
