package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/metrics"
	"github.com/go-gitbridge/gitbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu      sync.Mutex
	result  ChatResult
	err     error
	block   chan struct{} // when set, RunChat blocks until closed
	active  int32
	maxSeen int32
	calls   int32
}

func (r *stubRunner) RunChat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	atomic.AddInt32(&r.calls, 1)
	cur := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)

	r.mu.Lock()
	for {
		max := atomic.LoadInt32(&r.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&r.maxSeen, max, cur) {
			break
		}
	}
	block := r.block
	result, err := r.result, r.err
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	return result, err
}

func waitForStatus(t *testing.T, s *Store, taskID string, status models.TaskStatus) *models.Task {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		task, err := s.Get(taskID)
		require.NoError(t, err)
		if task.Status == status {
			return task
		}
		select {
		case <-deadline:
			t.Fatalf("task %s never reached %s (now %s)", taskID, status, task.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestExecutor_CompletesTask(t *testing.T) {
	s := NewStore(time.Hour)
	runner := &stubRunner{
		result: ChatResult{Output: "Hi!", SessionID: "sess-1", ExitCode: 0, Stderr: ""},
	}
	e := NewExecutor(s, runner, 4, time.Minute, metrics.NewNoopMetrics())

	task := s.Create("Hello Claude", "", "")
	assert.Equal(t, models.TaskPending, task.Status)

	e.Dispatch(task.TaskID, false)

	done := waitForStatus(t, s, task.TaskID, models.TaskCompleted)
	assert.Equal(t, "Hi!", done.Result)
	assert.Equal(t, "sess-1", done.SessionID)
	require.NotNil(t, done.ExitCode)
	assert.Equal(t, 0, *done.ExitCode)
	assert.Equal(t, "", done.Stderr)
}

func TestExecutor_FailureContained(t *testing.T) {
	s := NewStore(time.Hour)
	runner := &stubRunner{err: errors.New("CLI not found")}
	e := NewExecutor(s, runner, 4, time.Minute, metrics.NewNoopMetrics())

	task := s.Create("hi", "", "")
	e.Dispatch(task.TaskID, false)

	failed := waitForStatus(t, s, task.TaskID, models.TaskFailed)
	assert.Equal(t, "CLI not found", failed.Error)
	assert.Empty(t, failed.Result)
}

func TestExecutor_PoolBoundsConcurrency(t *testing.T) {
	s := NewStore(time.Hour)
	block := make(chan struct{})
	runner := &stubRunner{block: block}
	e := NewExecutor(s, runner, 2, time.Minute, metrics.NewNoopMetrics())

	ids := make([]string, 6)
	for i := range ids {
		ids[i] = s.Create("hi", "", "").TaskID
		e.Dispatch(ids[i], false)
	}

	// Give queued work a moment to reach the pool
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.calls) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.LessOrEqual(t, atomic.LoadInt32(&runner.maxSeen), int32(2))

	close(block)
	require.NoError(t, e.Drain(context.Background()))
	assert.Equal(t, int32(6), atomic.LoadInt32(&runner.calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.maxSeen), int32(2))
}

func TestExecutor_QueuedTaskReportsRunning(t *testing.T) {
	s := NewStore(time.Hour)
	block := make(chan struct{})
	runner := &stubRunner{block: block}
	e := NewExecutor(s, runner, 1, time.Minute, metrics.NewNoopMetrics())

	first := s.Create("hi", "", "")
	e.Dispatch(first.TaskID, false)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.calls) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The pool is saturated; the second task has no slot yet but must
	// still report forward progress to pollers.
	second := s.Create("hi again", "", "")
	e.Dispatch(second.TaskID, false)
	waitForStatus(t, s, second.TaskID, models.TaskRunning)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.calls))

	close(block)
	require.NoError(t, e.Drain(context.Background()))
	waitForStatus(t, s, second.TaskID, models.TaskCompleted)
}

func TestExecutor_DispatchUnknownTask(t *testing.T) {
	s := NewStore(time.Hour)
	runner := &stubRunner{}
	e := NewExecutor(s, runner, 1, time.Minute, metrics.NewNoopMetrics())

	// Must not panic or leave the pool wedged
	e.Dispatch("no-such-task", false)
	require.NoError(t, e.Drain(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&runner.calls))
}

func TestExecutor_DrainTimeout(t *testing.T) {
	s := NewStore(time.Hour)
	block := make(chan struct{})
	runner := &stubRunner{block: block}
	e := NewExecutor(s, runner, 1, time.Minute, metrics.NewNoopMetrics())

	task := s.Create("hi", "", "")
	e.Dispatch(task.TaskID, false)
	waitForStatus(t, s, task.TaskID, models.TaskRunning)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Drain(ctx), context.DeadlineExceeded)

	close(block)
	require.NoError(t, e.Drain(context.Background()))
}

func TestReaperSweep(t *testing.T) {
	s := NewStore(time.Millisecond)
	task := s.Create("hi", "", "")
	running := models.TaskRunning
	completed := models.TaskCompleted
	_, err := s.Apply(task.TaskID, Update{Status: &running})
	require.NoError(t, err)
	_, err = s.Apply(task.TaskID, Update{Status: &completed})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunReaper(ctx, s, 10*time.Millisecond, metrics.NewNoopMetrics())
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
