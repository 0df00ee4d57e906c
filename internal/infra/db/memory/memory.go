// Package memory holds process-local repositories for offline runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
)

var (
	_ repository.AssetRepository = (*AssetRepo)(nil)
	_ repository.VideoRepository = (*VideoRepo)(nil)
)

type AssetRepo struct {
	mu   sync.RWMutex
	byID map[string]*model.Asset
}

func NewAssetRepo() *AssetRepo { return &AssetRepo{byID: map[string]*model.Asset{}} }

// Save enforces one pending asset per scene slot, like the database index.
func (r *AssetRepo) Save(ctx context.Context, tx repository.Tx, a *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.Status == model.AssetStatusPending {
		for id, o := range r.byID {
			if id != a.ID && o.Status == model.AssetStatusPending &&
				o.SessionID == a.SessionID && o.SceneIndex == a.SceneIndex && o.Kind == a.Kind {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *AssetRepo) FindByID(ctx context.Context, tx repository.Tx, sessionID, assetID string) (*model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[assetID]
	if !ok || a.SessionID != sessionID {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AssetRepo) FindCurrent(ctx context.Context, tx repository.Tx, sessionID string, sceneIndex int, kind model.AssetKind) (*model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.SessionID == sessionID && a.SceneIndex == sceneIndex && a.Kind == kind && a.Status == model.AssetStatusPending {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AssetRepo) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Asset
	for _, a := range r.byID {
		if a.SessionID == sessionID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SceneIndex != out[j].SceneIndex {
			return out[i].SceneIndex < out[j].SceneIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *AssetRepo) UpdateStatus(ctx context.Context, tx repository.Tx, assetID string, status model.AssetStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[assetID]
	if !ok {
		return domain.ErrNotFound
	}
	return a.Transition(status)
}

type VideoRepo struct {
	mu     sync.RWMutex
	videos map[string]*model.Video
}

func NewVideoRepo() *VideoRepo { return &VideoRepo{videos: map[string]*model.Video{}} }

func (r *VideoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.videos[v.ID] = &cp
	return nil
}

func (r *VideoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// ListByOwner returns newest first.
func (r *VideoRepo) ListByOwner(ctx context.Context, tx repository.Tx, owner string, limit int) ([]*model.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Video
	for _, v := range r.videos {
		if v.Owner == owner {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *VideoRepo) MarkPublished(ctx context.Context, tx repository.Tx, id, externalURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Status = model.VideoStatusPublished
	v.ExternalURL = externalURL
	return nil
}
