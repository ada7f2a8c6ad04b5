// Package tasks tracks asynchronous chat executions: an in-memory store
// polled by callers, a bounded executor driving the external CLI, and a
// reaper that removes terminal records past their TTL. Losing pending
// tasks on restart is acceptable; durable state lives elsewhere.
package tasks

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"
	"github.com/go-gitbridge/gitbridge/internal/models"

	"github.com/google/uuid"
)

// Store is a concurrency-safe registry of tasks with TTL-based expiry of
// terminal records. Pending and running tasks never expire: every terminal
// transition pushes expires_at forward, and the cleanup path skips
// non-terminal tasks regardless of age.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
	ttl   time.Duration
}

// NewStore creates a task store. ttl governs how long completed or failed
// tasks stay pollable.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		tasks: make(map[string]*models.Task),
		ttl:   ttl,
	}
}

// Update carries the fields an executor may merge into a task. Nil fields
// are left untouched.
type Update struct {
	Status    *models.TaskStatus
	Result    *string
	Error     *string
	ExitCode  *int
	Stderr    *string
	SessionID *string
}

// Create registers a new pending task and returns a copy.
func (s *Store) Create(message, sessionID, projectPath string) *models.Task {
	now := time.Now().UTC()
	task := &models.Task{
		TaskID:      uuid.New().String(),
		Status:      models.TaskPending,
		Message:     message,
		SessionID:   sessionID,
		ProjectPath: projectPath,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	s.mu.Lock()
	s.tasks[task.TaskID] = task
	s.mu.Unlock()

	return task.Clone()
}

// Get returns a copy of the task, or ErrNotFound.
func (s *Store) Get(taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, errdefs.NotFoundf("task not found: %s", taskID)
	}
	return task.Clone(), nil
}

// Apply merges non-nil fields of upd into the task under the store lock.
// Status moves are monotonic: a terminal task never goes back to pending
// or running. Terminal transitions recompute expires_at to now+TTL.
func (s *Store) Apply(taskID string, upd Update) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, errdefs.NotFoundf("task not found: %s", taskID)
	}

	now := time.Now().UTC()

	if upd.Status != nil {
		if err := checkTransition(task.Status, *upd.Status); err != nil {
			return nil, err
		}
		task.Status = *upd.Status
		if upd.Status.Terminal() {
			task.ExpiresAt = now.Add(s.ttl)
		}
	}
	if upd.Result != nil {
		task.Result = *upd.Result
	}
	if upd.Error != nil {
		task.Error = *upd.Error
	}
	if upd.ExitCode != nil {
		code := *upd.ExitCode
		task.ExitCode = &code
	}
	if upd.Stderr != nil {
		task.Stderr = *upd.Stderr
	}
	if upd.SessionID != nil {
		task.SessionID = *upd.SessionID
	}
	task.UpdatedAt = now

	return task.Clone(), nil
}

// checkTransition enforces pending -> running -> {completed, failed}.
// Terminal-to-terminal overwrites are tolerated (last writer wins) since
// only one executor should ever drive a given task.
func checkTransition(from, to models.TaskStatus) error {
	if from == to {
		return nil
	}
	if from.Terminal() && !to.Terminal() {
		return fmt.Errorf("invalid task transition: %s -> %s", from, to)
	}
	if to == models.TaskPending {
		return fmt.Errorf("invalid task transition: %s -> %s", from, to)
	}
	return nil
}

// CleanupExpired removes every terminal task whose expires_at precedes
// now. Returns the number removed.
func (s *Store) CleanupExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, task := range s.tasks {
		if task.Status.Terminal() && task.ExpiresAt.Before(now) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// List returns copies of all tasks, order unspecified.
func (s *Store) List() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task.Clone())
	}
	return out
}

// Len reports the current number of tracked tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
