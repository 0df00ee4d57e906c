package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
	red "shorts-studio/internal/infra/redis"
)

var _ repository.AssetRepository = (*assetRepoCacheDecorator)(nil)

// assetRepoCacheDecorator caches single assets and per-session lists.
// FindCurrent always reads through since it decides which asset is live.
type assetRepoCacheDecorator struct {
	inner repository.AssetRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewAssetRepoCacheDecorator(inner repository.AssetRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.AssetRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &assetRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logging.OrNop(logger)}
}

func assetKey(id string) string            { return fmt.Sprintf("asset:%s", id) }
func sessionAssetsKey(session string) string { return fmt.Sprintf("session_assets:%s", session) }

func (d *assetRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, sessionID, assetID string) (*model.Asset, error) {
	if tx == nil {
		if a, ok := d.getAsset(ctx, assetID); ok && a.SessionID == sessionID {
			metrics.IncCacheRequest("asset", "hit")
			return a, nil
		}
		metrics.IncCacheRequest("asset", "miss")
	}
	a, err := d.inner.FindByID(ctx, tx, sessionID, assetID)
	if err != nil {
		return nil, err
	}
	d.put(ctx, assetKey(a.ID), a)
	return a, nil
}

func (d *assetRepoCacheDecorator) FindCurrent(ctx context.Context, tx repository.Tx, sessionID string, sceneIndex int, kind model.AssetKind) (*model.Asset, error) {
	return d.inner.FindCurrent(ctx, tx, sessionID, sceneIndex, kind)
}

func (d *assetRepoCacheDecorator) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Asset, error) {
	key := sessionAssetsKey(sessionID)
	if tx == nil {
		val, err := d.cache.Get(ctx, key)
		if err == nil {
			var list []*model.Asset
			if json.Unmarshal([]byte(val), &list) == nil {
				metrics.IncCacheRequest("session_assets", "hit")
				return list, nil
			}
		} else if !errors.Is(err, red.Nil) {
			d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		metrics.IncCacheRequest("session_assets", "miss")
	}

	list, err := d.inner.ListBySession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		d.put(ctx, key, list)
		// status updates find the session through these
		for _, a := range list {
			d.put(ctx, assetKey(a.ID), a)
		}
	}
	return list, nil
}

// Writes invalidate before and after the inner call: a reader racing the
// write may refill the cache with the old rows in between.
func (d *assetRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, a *model.Asset) error {
	d.invalidate(ctx, a.ID, a.SessionID)
	if err := d.inner.Save(ctx, tx, a); err != nil {
		return err
	}
	d.invalidate(ctx, a.ID, a.SessionID)
	return nil
}

func (d *assetRepoCacheDecorator) UpdateStatus(ctx context.Context, tx repository.Tx, assetID string, status model.AssetStatus) error {
	session := ""
	if a, ok := d.getAsset(ctx, assetID); ok {
		session = a.SessionID
	}
	d.invalidate(ctx, assetID, session)
	if err := d.inner.UpdateStatus(ctx, tx, assetID, status); err != nil {
		return err
	}
	d.invalidate(ctx, assetID, session)
	return nil
}

func (d *assetRepoCacheDecorator) getAsset(ctx context.Context, id string) (*model.Asset, bool) {
	val, err := d.cache.Get(ctx, assetKey(id))
	if err != nil {
		return nil, false
	}
	var a model.Asset
	if json.Unmarshal([]byte(val), &a) != nil {
		return nil, false
	}
	return &a, true
}

func (d *assetRepoCacheDecorator) put(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (d *assetRepoCacheDecorator) invalidate(ctx context.Context, assetID, sessionID string) {
	keys := []string{assetKey(assetID)}
	if sessionID != "" {
		keys = append(keys, sessionAssetsKey(sessionID))
	}
	if err := d.cache.Del(ctx, keys...); err != nil {
		d.log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
