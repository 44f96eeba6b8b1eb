package models

import "time"

// SchedulerLock keeps a periodic job from running on two instances at once.
// A row is held until ExpiresAt; expired rows may be taken over.
type SchedulerLock struct {
	JobName   string    `gorm:"primaryKey;size:100" json:"job_name"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }
