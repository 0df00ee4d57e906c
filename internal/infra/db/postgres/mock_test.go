//go:build !integration

package postgres

import (
	"context"
	"time"

	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
	red "shorts-studio/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerAssetRepo mocks the database repository the asset decorator wraps.
type mockInnerAssetRepo struct {
	SaveFunc          func(ctx context.Context, tx repository.Tx, a *model.Asset) error
	FindByIDFunc      func(ctx context.Context, tx repository.Tx, sessionID, assetID string) (*model.Asset, error)
	FindCurrentFunc   func(ctx context.Context, tx repository.Tx, sessionID string, sceneIndex int, kind model.AssetKind) (*model.Asset, error)
	ListBySessionFunc func(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Asset, error)
	UpdateStatusFunc  func(ctx context.Context, tx repository.Tx, assetID string, status model.AssetStatus) error
}

func (m *mockInnerAssetRepo) Save(ctx context.Context, tx repository.Tx, a *model.Asset) error {
	return m.SaveFunc(ctx, tx, a)
}
func (m *mockInnerAssetRepo) FindByID(ctx context.Context, tx repository.Tx, sessionID, assetID string) (*model.Asset, error) {
	return m.FindByIDFunc(ctx, tx, sessionID, assetID)
}
func (m *mockInnerAssetRepo) FindCurrent(ctx context.Context, tx repository.Tx, sessionID string, sceneIndex int, kind model.AssetKind) (*model.Asset, error) {
	return m.FindCurrentFunc(ctx, tx, sessionID, sceneIndex, kind)
}
func (m *mockInnerAssetRepo) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Asset, error) {
	return m.ListBySessionFunc(ctx, tx, sessionID)
}
func (m *mockInnerAssetRepo) UpdateStatus(ctx context.Context, tx repository.Tx, assetID string, status model.AssetStatus) error {
	return m.UpdateStatusFunc(ctx, tx, assetID, status)
}

// mockRedisClient mocks our Redis client wrapper. Unset funcs behave like an
// empty cache.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error                      { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 1, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) FlushDB(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                      { return nil }
