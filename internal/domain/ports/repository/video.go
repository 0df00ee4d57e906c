package repository

import (
	"context"

	"shorts-studio/internal/domain/model"
)

type VideoRepository interface {
	Save(ctx context.Context, tx Tx, v *model.Video) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Video, error)
	ListByOwner(ctx context.Context, tx Tx, owner string, limit int) ([]*model.Video, error)
	MarkPublished(ctx context.Context, tx Tx, id, externalURL string) error
}
