package interfaces

import "time"

// ScheduledJobStatus represents the current status of one scheduled entry
type ScheduledJobStatus struct {
	Name     string
	Schedule string
	LastRun  *time.Time
	NextRun  *time.Time
	LastErr  string
}

// SchedulerService manages cron-based tick and maintenance scheduling
type SchedulerService interface {
	// Start registers the configured entries and starts the cron loop
	Start() error

	// Stop stops the cron loop, waiting for a running entry to finish
	Stop() error

	// IsRunning returns true if the scheduler is active
	IsRunning() bool

	// TriggerTickNow fires a tick outside the schedule
	TriggerTickNow() error

	// GetJobStatuses returns the status of all registered entries
	GetJobStatuses() []ScheduledJobStatus
}
