package repository

import (
	"context"

	"shorts-studio/internal/domain/model"
)

// ProgressRepository stores short-lived generation progress per session.
type ProgressRepository interface {
	Set(ctx context.Context, p *model.SessionProgress) error
	Get(ctx context.Context, sessionID string) (*model.SessionProgress, error)
}
