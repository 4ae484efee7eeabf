package cron

import (
	"log"
	"time"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/services"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron   *cron.Cron
	db     *gorm.DB
	agg    *services.AggregationService
	scorer *services.ScoringClient
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, agg *services.AggregationService, scorer *services.ScoringClient) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:   c,
		db:     db,
		agg:    agg,
		scorer: scorer,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every 15 minutes: ping the scoring service
	_, err := m.cron.AddFunc("0 */15 * * * *", func() {
		m.logJobStart("check_scoring_service")
		m.CheckScoringService()
	})
	if err != nil {
		return err
	}

	// 2. Every hour: drop expired entries from the token blacklist
	_, err = m.cron.AddFunc("0 0 * * * *", func() {
		m.logJobStart("cleanup_expired_tokens")
		m.CleanupExpiredTokens()
	})
	if err != nil {
		return err
	}

	// 3. Daily at 2 AM: trim old cron job logs
	_, err = m.cron.AddFunc("0 0 2 * * *", func() {
		m.logJobStart("cleanup_old_job_logs")
		m.CleanupOldJobLogs()
	})
	if err != nil {
		return err
	}

	// 4. Daily at 3 AM: audit aggregate counters against student records
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("audit_counter_drift")
		m.AuditCounterDrift()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&cronLog)
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now(),
			"message":      message,
		})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "failed",
			"completed_at": time.Now(),
			"error_msg":    err.Error(),
		})
}
