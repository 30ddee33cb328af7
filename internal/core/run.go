package core

import "time"

// Run represents a single sweep over a user's comment history
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status      RunStatus  `json:"status" yaml:"status"`
	DryRun      bool       `json:"dry_run" yaml:"dry_run"`
	Subscribed  int        `json:"subscribed" yaml:"subscribed"`
	Stats       AuditStats `json:"stats" yaml:"stats"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunStatus represents the current state of a run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// AuditStats counts what happened to the comments examined during a run
type AuditStats struct {
	Pages          int `json:"pages" yaml:"pages"`
	Examined       int `json:"examined" yaml:"examined"`
	Kept           int `json:"kept" yaml:"kept"`
	Protected      int `json:"protected" yaml:"protected"`
	Archived       int `json:"archived" yaml:"archived"`
	Deleted        int `json:"deleted" yaml:"deleted"`
	DeleteFailures int `json:"delete_failures" yaml:"delete_failures"`
}

// TriggerEvent represents a trigger firing
type TriggerEvent struct {
	Timestamp time.Time
	Metadata  map[string]interface{}
}
