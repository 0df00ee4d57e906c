package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
)

var _ repository.AssetRepository = (*assetRepo)(nil)

type assetRepo struct {
	pool *pgxpool.Pool
}

func NewAssetRepo(pool *pgxpool.Pool) *assetRepo {
	return &assetRepo{pool: pool}
}

const assetColumns = `id, session_id, scene_index, kind, url, source_text, status, metadata, created_at`

// Save inserts the asset or updates its status. A second pending asset for
// the same scene slot is rejected by the partial unique index.
func (r *assetRepo) Save(ctx context.Context, tx repository.Tx, a *model.Asset) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO assets (` + assetColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status;`

	_, err = execSQL(ctx, r.pool, tx, q,
		a.ID, a.SessionID, a.SceneIndex, string(a.Kind), a.URL, a.SourceText, string(a.Status), meta, a.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("pending %s for scene %d: %w", a.Kind, a.SceneIndex, domain.ErrAlreadyExists)
	}
	return err
}

func (r *assetRepo) FindByID(ctx context.Context, tx repository.Tx, sessionID, assetID string) (*model.Asset, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1 AND session_id = $2;`, assetID, sessionID)
	if err != nil {
		return nil, err
	}
	return scanAsset(row)
}

func (r *assetRepo) FindCurrent(ctx context.Context, tx repository.Tx, sessionID string, sceneIndex int, kind model.AssetKind) (*model.Asset, error) {
	const q = `
SELECT ` + assetColumns + `
FROM assets
WHERE session_id = $1 AND scene_index = $2 AND kind = $3 AND status = 'pending'
ORDER BY created_at DESC
LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, sessionID, sceneIndex, string(kind))
	if err != nil {
		return nil, err
	}
	return scanAsset(row)
}

func (r *assetRepo) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Asset, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+assetColumns+` FROM assets WHERE session_id = $1 ORDER BY scene_index, created_at;`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *assetRepo) UpdateStatus(ctx context.Context, tx repository.Tx, assetID string, status model.AssetStatus) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE assets SET status = $2 WHERE id = $1;`, assetID, string(status))
	if isUniqueViolation(err) {
		return fmt.Errorf("asset %s: %w", assetID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAsset(row pgx.Row) (*model.Asset, error) {
	var (
		a            model.Asset
		kind, status string
		meta         []byte
	)
	err := row.Scan(&a.ID, &a.SessionID, &a.SceneIndex, &kind, &a.URL, &a.SourceText, &status, &meta, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrReadDatabaseRow, err)
	}
	a.Kind = model.AssetKind(kind)
	a.Status = model.AssetStatus(status)
	a.Metadata = map[string]string{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return nil, fmt.Errorf("asset %s metadata: %w", a.ID, err)
		}
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
