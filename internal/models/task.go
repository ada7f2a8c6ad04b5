package models

import "time"

// TaskStatus is the lifecycle state of an asynchronous chat task.
// Transitions only move forward: pending -> running -> completed|failed.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is a unit of deferred CLI work tracked for a caller to poll.
type Task struct {
	TaskID      string     `json:"task_id"`
	Status      TaskStatus `json:"status"`
	Message     string     `json:"message"`
	SessionID   string     `json:"session_id,omitempty"`
	ProjectPath string     `json:"project_path,omitempty"`

	Result   string `json:"result,omitempty"` // set on completed
	Error    string `json:"error,omitempty"`  // set on failed
	ExitCode *int   `json:"exit_code,omitempty"`
	Stderr   string `json:"stderr,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Clone returns a copy safe to hand out while the store keeps mutating
// the original under its lock.
func (t *Task) Clone() *Task {
	c := *t
	if t.ExitCode != nil {
		code := *t.ExitCode
		c.ExitCode = &code
	}
	return &c
}
