package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
)

var _ repository.RenderTaskRepository = (*renderTaskRepo)(nil)

type renderTaskRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewRenderTaskRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *renderTaskRepo {
	return &renderTaskRepo{pool: pool, tm: tm}
}

const renderTaskColumns = `id, session_id, owner, options, status, video_id, last_error, created_at, updated_at`

func (r *renderTaskRepo) Save(ctx context.Context, tx repository.Tx, t *model.RenderTask) error {
	opts, err := json.Marshal(t.Options)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	const q = `
INSERT INTO render_tasks (` + renderTaskColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  video_id = EXCLUDED.video_id,
  last_error = EXCLUDED.last_error,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.SessionID, t.Owner, opts, string(t.Status), t.VideoID, t.LastError, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *renderTaskRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RenderTask, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+renderTaskColumns+` FROM render_tasks WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanRenderTask(row)
}

// FetchAndMarkProcessing claims the oldest pending task. Concurrent workers
// skip rows another transaction already holds.
func (r *renderTaskRepo) FetchAndMarkProcessing(ctx context.Context) (*model.RenderTask, error) {
	var task *model.RenderTask

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + renderTaskColumns + `
FROM render_tasks
WHERE status = 'pending'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}
		t, err := scanRenderTask(row)
		if err != nil {
			return err
		}

		t.Status = model.RenderTaskProcessing
		if err := r.Save(ctx, tx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return task, err
}

func (r *renderTaskRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error) {
	const q = `
UPDATE render_tasks
SET status = 'failed', last_error = $2, updated_at = now()
WHERE status = 'processing' AND updated_at < $1;`
	tag, err := execSQL(ctx, r.pool, nil, q, cutoff, reason)
	if err != nil {
		return 0, fmt.Errorf("fail stale render tasks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRenderTask(row pgx.Row) (*model.RenderTask, error) {
	var (
		t      model.RenderTask
		opts   []byte
		status string
	)
	err := row.Scan(&t.ID, &t.SessionID, &t.Owner, &opts, &status, &t.VideoID, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrReadDatabaseRow, err)
	}
	t.Status = model.RenderTaskStatus(status)
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &t.Options); err != nil {
			return nil, fmt.Errorf("render task %s options: %w", t.ID, err)
		}
	}
	return &t, nil
}
