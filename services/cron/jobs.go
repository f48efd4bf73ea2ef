package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/acadex/acadex-api/model"
)

// Retention windows for the cleanup jobs.
const (
	auditLogRetention   = 180 * 24 * time.Hour
	cronJobLogRetention = 30 * 24 * time.Hour
)

// CleanupExpiredTokens removes blacklist entries whose tokens have already
// expired. Expired tokens fail validation on their own, so the rows are only
// needed until expiry.
func (m *CronManager) CleanupExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_expired_tokens"

	removed, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to cleanup expired tokens: %w", err))
		return
	}

	m.logJobComplete(jobName, int(removed), fmt.Sprintf("Removed %d expired blacklist entries", removed))
}

// CleanupOldLogs trims old audit entries and cron job run records.
func (m *CronManager) CleanupOldLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_old_logs"

	auditRemoved, err := m.audit.CleanupOld(ctx, time.Now().Add(-auditLogRetention))
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to cleanup audit logs: %w", err))
		return
	}

	result := m.db.WithContext(ctx).
		Where("created_at < ? AND status <> ?", time.Now().Add(-cronJobLogRetention), model.CronJobStatusRunning).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to cleanup cron job logs: %w", result.Error))
		return
	}

	total := int(auditRemoved + result.RowsAffected)
	m.logJobComplete(jobName, total, fmt.Sprintf("Removed %d audit entries, %d cron logs", auditRemoved, result.RowsAffected))
}

// WarmAnalyticsCaches precomputes department performance reports so the first
// dashboard hit of the hour does not pay for the aggregation.
func (m *CronManager) WarmAnalyticsCaches() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	jobName := "warm_analytics_caches"

	warmed, err := m.analytics.WarmDepartmentCaches(ctx)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to warm analytics caches: %w", err))
		return
	}

	m.logJobComplete(jobName, warmed, fmt.Sprintf("Warmed %d department reports", warmed))
}
