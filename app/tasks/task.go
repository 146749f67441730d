package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeGenerateDigest TaskType = "generate_digest"
)

const (
	DefaultMaxRetries = 3
)

// TaskInterface is a unit of per-user digest work handled by the worker pool.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetUserID() string
	GetDate() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by every task: who it runs for, which
// digest day it targets and how many attempts it has used.
type Task struct {
	ID         string
	Type       TaskType
	UserID     string
	Date       string // YYYY-MM-DD in the scheduler's location
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func (t *Task) GetID() string      { return t.ID }
func (t *Task) GetType() TaskType  { return t.Type }
func (t *Task) GetUserID() string  { return t.UserID }
func (t *Task) GetDate() string    { return t.Date }
func (t *Task) GetRetryCount() int { return t.RetryCount }
func (t *Task) GetMaxRetries() int { return t.MaxRetries }

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// Start marks the beginning of the current attempt.
func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, userID, date string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		UserID:     userID,
		Date:       date,
		MaxRetries: DefaultMaxRetries,
	}
}
