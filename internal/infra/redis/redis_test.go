//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
)

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mem := newMemRedis()
	l := NewLocker(mem)
	l.wait = time.Millisecond
	key := "lock:regen:s1:2:image"

	tok, err := l.TryLock(ctx, key, time.Minute)
	if err != nil || tok == "" {
		t.Fatalf("first lock: tok=%q err=%v", tok, err)
	}
	if _, err := l.TryLock(ctx, key, time.Minute); !errors.Is(err, domain.ErrRegenerationInProgress) {
		t.Fatalf("second lock should be refused, got %v", err)
	}

	// a stale token must not release someone else's lock
	if err := l.Unlock(ctx, key, "other"); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.Get(ctx, key); err != nil {
		t.Fatal("lock released by wrong token")
	}

	if err := l.Unlock(ctx, key, tok); err != nil {
		t.Fatal(err)
	}
	if _, err := l.TryLock(ctx, key, time.Minute); err != nil {
		t.Fatalf("relock after unlock: %v", err)
	}
}

func TestRedisLocker_BackendError(t *testing.T) {
	mem := newMemRedis()
	mem.SetNXFn = func(string) (bool, error) { return false, errors.New("conn refused") }
	l := NewLocker(mem)
	l.wait = time.Millisecond
	_, err := l.TryLock(context.Background(), "k", time.Minute)
	if err == nil || errors.Is(err, domain.ErrRegenerationInProgress) {
		t.Fatalf("backend errors must surface, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	mem := newMemRedis()
	rl := NewRateLimiter(mem)
	key := GenerateKey("alice")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Hour)
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Hour); ok {
		t.Fatal("fourth call should be limited")
	}
	if mem.ttl[key] != time.Hour {
		t.Fatalf("window not applied: %v", mem.ttl[key])
	}
}

func TestProgressRepo(t *testing.T) {
	ctx := context.Background()
	mem := newMemRedis()
	repo := NewProgressRepo(mem)

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	p := &model.SessionProgress{SessionID: "s1", Total: 6, Completed: 2, State: model.ProgressRunning}
	if err := repo.Set(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Completed != 2 || got.State != model.ProgressRunning {
		t.Fatalf("got %+v", got)
	}
	if mem.ttl["progress:s1"] != 24*time.Hour {
		t.Fatalf("ttl = %v", mem.ttl["progress:s1"])
	}
}
