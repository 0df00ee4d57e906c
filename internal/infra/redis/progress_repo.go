package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/repository"
)

var _ repository.ProgressRepository = (*ProgressRepo)(nil)

// ProgressRepo keeps session generation progress in Redis.
type ProgressRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewProgressRepo(client RedisClient) *ProgressRepo {
	return &ProgressRepo{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (s *ProgressRepo) key(sessionID string) string {
	return fmt.Sprintf("progress:%s", sessionID)
}

func (s *ProgressRepo) Set(ctx context.Context, p *model.SessionProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(p.SessionID), data, s.ttl)
}

func (s *ProgressRepo) Get(ctx context.Context, sessionID string) (*model.SessionProgress, error) {
	data, err := s.client.Get(ctx, s.key(sessionID))
	if errors.Is(err, Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var p model.SessionProgress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
