package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/digest"
)

type MockUserLister struct {
	ids []string
	err error
}

func (m *MockUserLister) ListUserIDs(ctx context.Context) ([]string, error) {
	return m.ids, m.err
}

type MockGenerator struct {
	mu       sync.Mutex
	requests []digest.Request
	failures int
	done     chan struct{}
}

func (m *MockGenerator) Generate(ctx context.Context, req digest.Request) (*database.Digest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.done != nil {
		m.done <- struct{}{}
	}
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("provider unavailable")
	}
	return &database.Digest{UserID: req.UserID, Date: req.Date}, nil
}

func (m *MockGenerator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func TestNewScheduler(t *testing.T) {
	scheduler, err := NewScheduler(&MockUserLister{}, &MockGenerator{}, "0 8 * * *", time.UTC, 2)
	if err != nil {
		t.Fatalf("Expected scheduler to be created, got %v", err)
	}

	if scheduler.workerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", scheduler.workerCount)
	}

	if cap(scheduler.taskQueue) != taskQueueSize {
		t.Errorf("Expected queue capacity %d, got %d", taskQueueSize, cap(scheduler.taskQueue))
	}
}

func TestNewSchedulerRejectsInvalidInput(t *testing.T) {
	if _, err := NewScheduler(&MockUserLister{}, &MockGenerator{}, "every morning", time.UTC, 2); err == nil {
		t.Error("Expected error for invalid cron schedule")
	}

	if _, err := NewScheduler(&MockUserLister{}, &MockGenerator{}, "0 8 * * *", time.UTC, 0); err == nil {
		t.Error("Expected error for zero workers")
	}
}

func TestEnqueueDailyDigests(t *testing.T) {
	generator := &MockGenerator{}
	users := &MockUserLister{ids: []string{"u1", "u2", "u3"}}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	scheduler, err := NewScheduler(users, generator, "0 8 * * *", loc, 1)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.now = func() time.Time { return time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC) }

	queued, err := scheduler.EnqueueDailyDigests()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if queued != 3 {
		t.Errorf("Expected 3 queued tasks, got %d", queued)
	}
	if len(scheduler.taskQueue) != 3 {
		t.Fatalf("Expected 3 tasks in queue, got %d", len(scheduler.taskQueue))
	}

	task := (<-scheduler.taskQueue).(*GenerateDigestTask)
	if task.GetUserID() != "u1" {
		t.Errorf("Expected first task for u1, got %s", task.GetUserID())
	}
	if task.Date != "2026-03-01" {
		t.Errorf("Expected local date 2026-03-01, got %s", task.Date)
	}
	if task.GetType() != TaskTypeGenerateDigest {
		t.Errorf("Expected type %s, got %s", TaskTypeGenerateDigest, task.GetType())
	}
}

func TestEnqueueDailyDigestsListError(t *testing.T) {
	scheduler, err := NewScheduler(&MockUserLister{err: errors.New("db down")}, &MockGenerator{}, "0 8 * * *", time.UTC, 1)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	if _, err := scheduler.EnqueueDailyDigests(); err == nil {
		t.Error("Expected error when users cannot be listed")
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	scheduler, err := NewScheduler(&MockUserLister{}, &MockGenerator{}, "0 8 * * *", time.UTC, 1)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	for i := 0; i < taskQueueSize; i++ {
		if err := scheduler.EnqueueTask(NewGenerateDigestTask("u", "2026-03-01", &MockGenerator{})); err != nil {
			t.Fatalf("Unexpected error at %d: %v", i, err)
		}
	}

	if err := scheduler.EnqueueTask(NewGenerateDigestTask("u", "2026-03-01", &MockGenerator{})); err == nil {
		t.Error("Expected queue full error")
	}
}

func TestRetryBackoff(t *testing.T) {
	expected := map[int]time.Duration{
		1:  time.Second,
		2:  2 * time.Second,
		3:  4 * time.Second,
		5:  16 * time.Second,
		6:  30 * time.Second,
		10: 30 * time.Second,
	}

	for attempt, want := range expected {
		if got := retryBackoff(attempt); got != want {
			t.Errorf("Expected backoff %v for attempt %d, got %v", want, attempt, got)
		}
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	generator := &MockGenerator{done: make(chan struct{}, 4), failures: 1}
	scheduler, err := NewScheduler(&MockUserLister{ids: []string{"u1"}}, generator, "0 8 * * *", time.UTC, 2)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	if _, err := scheduler.EnqueueDailyDigests(); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}

	// The first attempt fails and is retried after one second.
	for i := 0; i < 2; i++ {
		select {
		case <-generator.done:
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for attempt %d", i+1)
		}
	}

	if generator.count() != 2 {
		t.Errorf("Expected 2 attempts, got %d", generator.count())
	}

	generator.mu.Lock()
	req := generator.requests[1]
	generator.mu.Unlock()

	if !req.Refresh || req.Limit != scheduledDigestLimit || req.SummaryLength != ai.ModeDetailed {
		t.Errorf("Unexpected scheduled request: %+v", req)
	}
}

func TestStopRejectsNewTasks(t *testing.T) {
	scheduler, err := NewScheduler(&MockUserLister{}, &MockGenerator{}, "0 8 * * *", time.UTC, 1)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	scheduler.Stop()

	if err := scheduler.EnqueueTask(NewGenerateDigestTask("u1", "2026-03-01", &MockGenerator{})); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled after stop, got %v", err)
	}
}

func TestNewTaskCarriesDigestDate(t *testing.T) {
	first := NewTask(TaskTypeGenerateDigest, "u1", "2026-03-01")
	second := NewTask(TaskTypeGenerateDigest, "u1", "2026-03-01")

	if first.GetDate() != "2026-03-01" {
		t.Errorf("Expected date 2026-03-01, got %s", first.GetDate())
	}
	if first.GetID() == "" || first.GetID() == second.GetID() {
		t.Errorf("Expected distinct task IDs, got %q and %q", first.GetID(), second.GetID())
	}
	if first.GetMaxRetries() != DefaultMaxRetries || !first.CanRetry() {
		t.Errorf("Expected fresh task to allow %d retries", DefaultMaxRetries)
	}

	task := NewGenerateDigestTask("u2", "2026-03-02", &MockGenerator{})
	if task.GetDate() != "2026-03-02" || task.GetUserID() != "u2" {
		t.Errorf("Expected u2 on 2026-03-02, got %s on %s", task.GetUserID(), task.GetDate())
	}
}
