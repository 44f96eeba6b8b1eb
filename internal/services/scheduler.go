package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	JobAuditRetention = "audit_retention"
	JobTokenPurge     = "refresh_token_purge"

	auditRetentionSpec = "30 3 * * *"
	tokenPurgeSpec     = "@hourly"
	jobLockTTL         = 10 * time.Minute
)

// Scheduler runs housekeeping jobs. Each run takes a database lock so only
// one instance does the work.
type Scheduler struct {
	db       *gorm.DB
	logs     *SystemLogService
	auth     *AuthService
	cron     *cron.Cron
	instance string
}

func NewScheduler(db *gorm.DB, logs *SystemLogService, auth *AuthService) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		db:       db,
		logs:     logs,
		auth:     auth,
		cron:     cron.New(),
		instance: fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(auditRetentionSpec, func() { s.run(JobAuditRetention, s.RunAuditRetention) }); err != nil {
		return fmt.Errorf("schedule %s: %w", JobAuditRetention, err)
	}
	if _, err := s.cron.AddFunc(tokenPurgeSpec, func() { s.run(JobTokenPurge, s.RunTokenPurge) }); err != nil {
		return fmt.Errorf("schedule %s: %w", JobTokenPurge, err)
	}
	s.cron.Start()
	logger.Info().Str("instance", s.instance).Msg("scheduler started")
	return nil
}

// Stop prevents new runs and waits for running jobs, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(job string, fn func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobLockTTL)
	defer cancel()

	ok, err := s.TryLock(ctx, job, jobLockTTL)
	if err != nil {
		logger.Error().Err(err).Str("job", job).Msg("failed to acquire job lock")
		return
	}
	if !ok {
		logger.Debug().Str("job", job).Msg("job locked by another instance")
		return
	}
	defer s.Unlock(job)

	n, err := fn(ctx)
	if err != nil {
		logger.Error().Err(err).Str("job", job).Msg("scheduled job failed")
		return
	}
	logger.Info().Str("job", job).Int64("affected", n).Msg("scheduled job finished")
}

// RunAuditRetention removes audit entries older than the configured
// retention.
func (s *Scheduler) RunAuditRetention(ctx context.Context) (int64, error) {
	return s.logs.CleanupOldLogs(s.logs.GetRetentionDays())
}

// RunTokenPurge removes refresh tokens that expired or were revoked over a
// day ago.
func (s *Scheduler) RunTokenPurge(ctx context.Context) (int64, error) {
	return s.auth.PurgeExpiredRefreshTokens(ctx, time.Now().Add(-24*time.Hour))
}

// TryLock takes the named lock for ttl. It reports false when another
// holder's lock has not yet expired.
func (s *Scheduler) TryLock(ctx context.Context, job string, ttl time.Duration) (bool, error) {
	now := time.Now()
	db := s.db.WithContext(ctx)

	if err := db.Where("job_name = ? AND expires_at < ?", job, now).Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SchedulerLock{
		JobName:   job,
		LockedBy:  s.instance,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Scheduler) Unlock(job string) {
	if err := s.db.Where("job_name = ? AND locked_by = ?", job, s.instance).Delete(&models.SchedulerLock{}).Error; err != nil {
		logger.Warn().Err(err).Str("job", job).Msg("failed to release job lock")
	}
}
