package tasks

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/metrics"
	"github.com/go-gitbridge/gitbridge/internal/models"
)

// ChatRequest is one invocation of the external CLI collaborator.
type ChatRequest struct {
	Message         string
	SessionID       string
	ProjectPath     string
	SkipPermissions bool
}

// ChatResult is what the collaborator reports on a finished invocation.
// A non-zero ExitCode is still a result, not an error.
type ChatResult struct {
	Output    string
	SessionID string
	ExitCode  int
	Stderr    string
}

// Runner executes one chat invocation against the external CLI.
type Runner interface {
	RunChat(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// Executor drives tasks from pending through running to a terminal state.
// A fixed-size slot pool bounds concurrent CLI invocations; excess
// dispatches queue for a free slot. Dispatch is fire-and-forget: every
// failure is absorbed into the task's error field, nothing escapes to the
// caller.
type Executor struct {
	store   *Store
	runner  Runner
	timeout time.Duration
	metrics metrics.Recorder

	slots  chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	queued int
}

// NewExecutor creates an executor with the given worker pool size.
func NewExecutor(
	store *Store,
	runner Runner,
	workers int,
	timeout time.Duration,
	m metrics.Recorder,
) *Executor {
	if workers <= 0 {
		workers = 4
	}
	return &Executor{
		store:   store,
		runner:  runner,
		timeout: timeout,
		metrics: m,
		slots:   make(chan struct{}, workers),
	}
}

// Dispatch schedules a task for background execution and returns
// immediately. The execution is tracked so Drain can wait for it at
// shutdown.
func (e *Executor) Dispatch(taskID string, skipPermissions bool) {
	e.wg.Add(1)
	e.addQueued(1)
	go func() {
		defer e.wg.Done()
		defer e.addQueued(-1)
		e.run(taskID, skipPermissions)
	}()
}

func (e *Executor) run(taskID string, skipPermissions bool) {
	task, err := e.store.Get(taskID)
	if err != nil {
		log.Printf("executor: dropping unknown task %s: %v", taskID, err)
		return
	}

	// Mark the task running before queuing for a slot. A dispatched task
	// is out of the caller's hands either way, and pollers should see
	// forward progress rather than a stuck "pending" while the pool is
	// saturated.
	running := models.TaskRunning
	if _, err := e.store.Apply(taskID, Update{Status: &running}); err != nil {
		log.Printf("executor: cannot mark task %s running: %v", taskID, err)
		return
	}

	e.slots <- struct{}{}
	defer func() { <-e.slots }()

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	start := time.Now()
	result, err := e.runner.RunChat(ctx, ChatRequest{
		Message:         task.Message,
		SessionID:       task.SessionID,
		ProjectPath:     task.ProjectPath,
		SkipPermissions: skipPermissions,
	})
	if err != nil {
		// Exhaustive catch boundary: nothing awaits this execution, so
		// the failure lives in the task record and nowhere else.
		failed := models.TaskFailed
		msg := err.Error()
		if _, uerr := e.store.Apply(taskID, Update{Status: &failed, Error: &msg}); uerr != nil {
			log.Printf("executor: cannot mark task %s failed: %v", taskID, uerr)
		}
		e.metrics.RecordTaskFinished(string(models.TaskFailed), time.Since(start))
		log.Printf("Task %s failed: %v", taskID, err)
		return
	}

	completed := models.TaskCompleted
	if _, err := e.store.Apply(taskID, Update{
		Status:    &completed,
		Result:    &result.Output,
		SessionID: &result.SessionID,
		ExitCode:  &result.ExitCode,
		Stderr:    &result.Stderr,
	}); err != nil {
		log.Printf("executor: cannot mark task %s completed: %v", taskID, err)
		return
	}
	e.metrics.RecordTaskFinished(string(models.TaskCompleted), time.Since(start))
	log.Printf("Task %s completed", taskID)
}

func (e *Executor) addQueued(delta int) {
	e.mu.Lock()
	e.queued += delta
	n := e.queued
	e.mu.Unlock()
	e.metrics.SetTasksQueued(n)
}

// Drain waits for all outstanding executions to finish, or for ctx to
// expire. In-flight CLI calls are not forcibly cancelled; shutdown lets
// them run to completion within the drain deadline.
func (e *Executor) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
