package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/testutil"
)

func TestScheduler_TryLock(t *testing.T) {
	db := testutil.NewDB(t)
	a := NewScheduler(db, NewSystemLogService(db), nil)
	b := NewScheduler(db, NewSystemLogService(db), nil)
	ctx := context.Background()

	ok, err := a.TryLock(ctx, JobTokenPurge, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx, JobTokenPurge, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be taken")

	a.Unlock(JobTokenPurge)
	ok, err = b.TryLock(ctx, JobTokenPurge, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScheduler_ExpiredLockIsTakenOver(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewScheduler(db, NewSystemLogService(db), nil)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&models.SchedulerLock{
		JobName: JobAuditRetention, LockedBy: "crashed-node", LockedAt: past, ExpiresAt: past.Add(time.Minute),
	}).Error)

	ok, err := s.TryLock(context.Background(), JobAuditRetention, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScheduler_RunAuditRetention(t *testing.T) {
	db := testutil.NewDB(t)
	logs := NewSystemLogService(db)
	require.NoError(t, logs.SetRetentionDays(30))

	old := models.SystemLog{Level: LevelInfo, Module: "providers", Action: "approve", CreatedAt: time.Now().AddDate(0, 0, -45)}
	recent := models.SystemLog{Level: LevelInfo, Module: "providers", Action: "reject", CreatedAt: time.Now().AddDate(0, 0, -5)}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	n, err := NewScheduler(db, logs, nil).RunAuditRetention(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestScheduler_StartStop(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewScheduler(db, NewSystemLogService(db), nil)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
