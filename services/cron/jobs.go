package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/utils/auth"
)

// CheckScoringService pings the external scorer so an outage shows up in
// the job log before the next upload fails on it.
func (m *CronManager) CheckScoringService() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobName := "check_scoring_service"

	if err := m.scorer.HealthCheck(ctx); err != nil {
		m.logJobError(jobName, fmt.Errorf("scoring service unreachable: %w", err))
		return
	}

	m.logJobComplete(jobName, "Scoring service healthy")
}

// CleanupExpiredTokens removes blacklist entries whose tokens have expired
// anyway.
func (m *CronManager) CleanupExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_expired_tokens"

	blacklist := auth.NewBlacklistService(m.db)
	if err := blacklist.CleanupExpiredTokens(ctx); err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to cleanup tokens: %w", err))
		return
	}

	m.logJobComplete(jobName, "Expired blacklist entries removed")
}

// CleanupOldJobLogs trims cron job logs older than 30 days.
func (m *CronManager) CleanupOldJobLogs() {
	jobName := "cleanup_old_job_logs"

	cutoff := time.Now().AddDate(0, 0, -30)
	result := m.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete old logs: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d old job logs", result.RowsAffected))
}

// AuditCounterDrift recomputes risk totals from student records and
// compares them with the superadmin's stored counters. Counter updates run
// in the same transaction as the student writes, so drift here means a bug
// or manual database surgery; the job reports, it never repairs.
func (m *CronManager) AuditCounterDrift() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	jobName := "audit_counter_drift"

	truth, err := m.agg.RecomputeRiskCounts(ctx, "")
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to recompute risk counts: %w", err))
		return
	}

	var super model.User
	if err := m.db.WithContext(ctx).Where("role = ?", model.RoleSuperAdmin).First(&super).Error; err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to load superadmin: %w", err))
		return
	}

	c := super.Counters
	if c.RiskHigh != truth.High || c.RiskMedium != truth.Medium || c.RiskLow != truth.Low {
		msg := fmt.Sprintf("counter drift detected: stored high=%d medium=%d low=%d, records high=%d medium=%d low=%d",
			c.RiskHigh, c.RiskMedium, c.RiskLow, truth.High, truth.Medium, truth.Low)
		log.Printf("[CRON] %s", msg)
		m.logJobError(jobName, fmt.Errorf("%s", msg))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Counters consistent: high=%d medium=%d low=%d", truth.High, truth.Medium, truth.Low))
}
