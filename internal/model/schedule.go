package model

import (
	"time"

	"gorm.io/datatypes"
)

// Schedule is a recurring analysis job definition. Run-state fields (LastRun,
// NextRun, RunCount, SuccessCount) are only mutated under the schedule's
// execution lock owned by the scheduler.
type Schedule struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Assets        datatypes.JSON `gorm:"type:jsonb;not null" json:"assets"`
	TimeframeDays int            `gorm:"default:30" json:"timeframe_days"`
	Frequency     string         `gorm:"type:varchar(20);not null" json:"frequency"`
	TimeOfDay     string         `gorm:"type:varchar(5);not null" json:"time_of_day"`
	RiskTolerance string         `gorm:"type:varchar(30);default:moderate" json:"risk_tolerance"`
	SendEmail     bool           `gorm:"default:false" json:"send_email"`
	Enabled       bool           `gorm:"default:true" json:"enabled"`
	LastRun       *time.Time     `json:"last_run"`
	NextRun       *time.Time     `json:"next_run"`
	RunCount      int64          `gorm:"default:0" json:"run_count"`
	SuccessCount  int64          `gorm:"default:0" json:"success_count"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Runs []ScheduleRun `gorm:"foreignKey:ScheduleID" json:"runs,omitempty"`
}

func (Schedule) TableName() string {
	return "schedules"
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type RunTrigger string

const (
	RunTriggerScheduled RunTrigger = "scheduled"
	RunTriggerManual    RunTrigger = "manual"
)

// ScheduleRun is one execution attempt of a schedule.
type ScheduleRun struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ScheduleID   uint           `gorm:"not null;index" json:"schedule_id"`
	Trigger      RunTrigger     `gorm:"type:varchar(20);not null" json:"trigger"`
	Status       RunStatus      `gorm:"type:varchar(20);not null" json:"status"`
	StartedAt    time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
	AssetCount   int            `json:"asset_count"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Output       datatypes.JSON `gorm:"type:jsonb" json:"output,omitempty"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ScheduleRun) TableName() string {
	return "schedule_runs"
}

type GetScheduleParam struct {
	IDs      []uint `json:"ids"`
	Enabled  *bool  `json:"enabled"`
	Limit    *int   `json:"limit"`
	WithRuns *int   `json:"with_runs"`
}
