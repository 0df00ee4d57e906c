package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
)

var _ repository.VideoRepository = (*videoRepo)(nil)

type videoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *videoRepo {
	return &videoRepo{pool: pool}
}

const videoColumns = `id, owner, session_id, url, title, status, duration_sec, clips, external_url, created_at`

func (r *videoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	const q = `
INSERT INTO videos (` + videoColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  status = EXCLUDED.status,
  external_url = EXCLUDED.external_url;`
	_, err := execSQL(ctx, r.pool, tx, q,
		v.ID, v.Owner, v.SessionID, v.URL, v.Title, string(v.Status), v.DurationSec, v.Clips, v.ExternalURL, v.CreatedAt)
	return err
}

func (r *videoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+videoColumns+` FROM videos WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanVideo(row)
}

func (r *videoRepo) ListByOwner(ctx context.Context, tx repository.Tx, owner string, limit int) ([]*model.Video, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+videoColumns+` FROM videos WHERE owner = $1 ORDER BY created_at DESC, id DESC LIMIT $2;`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *videoRepo) MarkPublished(ctx context.Context, tx repository.Tx, id, externalURL string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE videos SET status = 'published', external_url = $2 WHERE id = $1;`, id, externalURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		v      model.Video
		status string
	)
	err := row.Scan(&v.ID, &v.Owner, &v.SessionID, &v.URL, &v.Title, &status, &v.DurationSec, &v.Clips, &v.ExternalURL, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrReadDatabaseRow, err)
	}
	v.Status = model.VideoStatus(status)
	return &v, nil
}
