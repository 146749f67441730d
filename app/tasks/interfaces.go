package tasks

import (
	"context"

	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/digest"
)

// TaskSchedulerInterface is the background job surface used by main: a
// bounded task queue drained by a worker pool, plus the daily digest sweep.
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	EnqueueTask(task TaskInterface) error
}

// DigestGenerator is satisfied by *digest.Builder.
type DigestGenerator interface {
	Generate(ctx context.Context, req digest.Request) (*database.Digest, error)
}

// UserLister is satisfied by database.UserRepository.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}
