package repository

import (
	"context"
	"time"

	"shorts-studio/internal/domain/model"
)

type RenderTaskRepository interface {
	Save(ctx context.Context, tx Tx, task *model.RenderTask) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.RenderTask, error)
	// FetchAndMarkProcessing atomically claims the oldest pending task.
	// Returns domain.ErrNotFound when the queue is empty.
	FetchAndMarkProcessing(ctx context.Context) (*model.RenderTask, error)
	// FailStale marks tasks processing since before cutoff as failed.
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error)
}
