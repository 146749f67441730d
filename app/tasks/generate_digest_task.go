package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/digest"
)

const scheduledDigestLimit = 12

type GenerateDigestTask struct {
	Task
	generator DigestGenerator
}

func NewGenerateDigestTask(userID, date string, generator DigestGenerator) *GenerateDigestTask {
	return &GenerateDigestTask{
		Task:      NewTask(TaskTypeGenerateDigest, userID, date),
		generator: generator,
	}
}

func (t *GenerateDigestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	d, err := t.generator.Generate(ctx, digest.Request{
		UserID:        t.UserID,
		Date:          t.Date,
		Limit:         scheduledDigestLimit,
		Refresh:       true,
		SummaryLength: ai.ModeDetailed,
	})
	if err != nil {
		return fmt.Errorf("failed to generate digest for %s: %w", t.Date, err)
	}

	slog.Info("Scheduled digest generated", "user_id", t.UserID, "date", t.Date, "items", d.Stats.TotalItems, "duration", t.GetDuration())
	return nil
}
