package repository

import (
	"context"

	"shorts-studio/internal/domain/model"
)

type AssetRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Asset) error
	// FindByID returns domain.ErrNotFound when the asset is missing or belongs
	// to another session.
	FindByID(ctx context.Context, tx Tx, sessionID, assetID string) (*model.Asset, error)
	// FindCurrent returns the pending asset for a scene slot.
	FindCurrent(ctx context.Context, tx Tx, sessionID string, sceneIndex int, kind model.AssetKind) (*model.Asset, error)
	// ListBySession returns every asset of the session ordered by scene index
	// then creation time.
	ListBySession(ctx context.Context, tx Tx, sessionID string) ([]*model.Asset, error)
	UpdateStatus(ctx context.Context, tx Tx, assetID string, status model.AssetStatus) error
}
