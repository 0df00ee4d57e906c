package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
	"shorts-studio/internal/usecase"
)

// Assembler is the slice of the pipeline the processor needs.
type Assembler interface {
	Assemble(ctx context.Context, owner, sessionID string, opts model.RenderOptions) (*usecase.AssembleResult, error)
}

// RenderTaskProcessor drains the render task queue.
type RenderTaskProcessor struct {
	tasks    repository.RenderTaskRepository
	pipeline Assembler
	interval time.Duration
	log      *zerolog.Logger
}

func NewRenderTaskProcessor(tasks repository.RenderTaskRepository, pipeline Assembler, logger *zerolog.Logger) *RenderTaskProcessor {
	return &RenderTaskProcessor{
		tasks:    tasks,
		pipeline: pipeline,
		interval: 500 * time.Millisecond,
		log:      logging.OrNop(logger),
	}
}

// Start polls for pending tasks until ctx is done. Run it in a goroutine.
func (p *RenderTaskProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("render task processor started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("render task processor stopping")
			return
		case <-ticker.C:
			// a full queue just means every worker is busy; the next tick retries
			_ = pool.Submit(func(ctx context.Context) error {
				p.ProcessOne(ctx)
				return nil
			})
		}
	}
}

// ProcessOne claims and runs at most one task. It reports whether a task was claimed.
func (p *RenderTaskProcessor) ProcessOne(ctx context.Context) bool {
	task, err := p.tasks.FetchAndMarkProcessing(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("failed to fetch render task")
		}
		return false
	}
	metrics.IncRenderTask(string(model.RenderTaskProcessing))

	log := logging.With(logging.WithSessID(logging.WithOwner(ctx, task.Owner), task.SessionID), p.log)
	log.Info().Str("task_id", task.ID).Msg("processing render task")
	start := time.Now()

	res, err := p.pipeline.Assemble(ctx, task.Owner, task.SessionID, task.Options)
	if err != nil {
		task.Status = model.RenderTaskFailed
		task.LastError = err.Error()
		log.Error().Err(err).Str("task_id", task.ID).Msg("render task failed")
	} else {
		task.Status = model.RenderTaskCompleted
		task.VideoID = res.Video.ID
		task.LastError = ""
	}
	task.UpdatedAt = time.Now().UTC()

	metrics.IncRenderTask(string(task.Status))
	// the final write must land even when shutdown cancelled ctx
	if err := p.tasks.Save(context.WithoutCancel(ctx), repository.NoTX, task); err != nil {
		log.Error().Err(err).Str("task_id", task.ID).Msg("failed to save render task")
	}
	log.Info().Str("task_id", task.ID).Str("status", string(task.Status)).Dur("duration_ms", time.Since(start)).Msg("render task finished")
	return true
}
