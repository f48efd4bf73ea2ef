package model

import (
	"time"
)

// Cron job statuses
const (
	CronJobStatusRunning   = "running"
	CronJobStatusCompleted = "completed"
	CronJobStatusFailed    = "failed"
)

// CronJobLog records each scheduled job run for observability
type CronJobLog struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	JobName      string     `gorm:"type:varchar(50);not null;index" json:"job_name"`
	Status       string     `gorm:"type:varchar(20);not null" json:"status"`
	ItemsTouched int        `json:"items_touched"`
	Error        string     `gorm:"type:text" json:"error,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
