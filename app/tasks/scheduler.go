package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize = 300
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

type Scheduler struct {
	users       UserLister
	generator   DigestGenerator
	cron        *cron.Cron
	schedule    string
	location    *time.Location
	workerCount int
	now         func() time.Time
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler builds a worker pool whose daily sweep enqueues one digest
// task per user. schedule is a standard five-field cron expression
// evaluated in location.
func NewScheduler(users UserLister, generator DigestGenerator, schedule string,
	location *time.Location, workerCount int) (*Scheduler, error) {
	if location == nil {
		location = time.Local
	}
	if workerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workerCount)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		users:       users,
		generator:   generator,
		cron:        cron.New(cron.WithLocation(location)),
		schedule:    schedule,
		location:    location,
		workerCount: workerCount,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}, nil
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.EnqueueDailyDigests(); err != nil {
			slog.Error("Daily digest sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to register daily digest sweep: %w", err)
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.cron.Start()
	slog.Info("Scheduler started", "schedule", s.schedule, "timezone", s.location.String(), "workers", s.workerCount)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return errors.New("task queue is full")
	}
}

// EnqueueDailyDigests queues today's digest for every user and reports how
// many tasks were accepted.
func (s *Scheduler) EnqueueDailyDigests() (int, error) {
	userIDs, err := s.users.ListUserIDs(s.ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	date := s.now().In(s.location).Format(time.DateOnly)
	slog.Info("Daily digest sweep", "date", date, "users", len(userIDs))

	queued := 0
	for _, userID := range userIDs {
		task := NewGenerateDigestTask(userID, date, s.generator)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue GenerateDigestTask", "user_id", userID, "error", err)
			continue
		}
		queued++
	}

	return queued, nil
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "date", task.GetDate(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := retryBackoff(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "user_id", task.GetUserID(), "date", task.GetDate(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// retryBackoff doubles from one second per attempt, capped at 30 seconds.
func retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<uint(attempt-1))*time.Second, maxRetryDelay)
}
