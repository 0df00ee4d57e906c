//go:build !integration

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
)

func TestAssetRepo_PendingSlot(t *testing.T) {
	ctx := context.Background()
	r := NewAssetRepo()
	a, _ := model.NewAsset("s1", 0, model.AssetKindImage, "file:///a.png", "n", nil)
	b, _ := model.NewAsset("s1", 0, model.AssetKindImage, "file:///b.png", "n", nil)
	if err := r.Save(ctx, nil, a); err != nil {
		t.Fatal(err)
	}
	if err := r.Save(ctx, nil, b); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if err := r.UpdateStatus(ctx, nil, a.ID, model.AssetStatusRegenerated); err != nil {
		t.Fatal(err)
	}
	if err := r.Save(ctx, nil, b); err != nil {
		t.Fatal(err)
	}
	cur, err := r.FindCurrent(ctx, nil, "s1", 0, model.AssetKindImage)
	if err != nil || cur.ID != b.ID {
		t.Fatalf("current = %v err=%v", cur, err)
	}
	if _, err := r.FindByID(ctx, nil, "other", a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-session lookup: %v", err)
	}
	list, _ := r.ListBySession(ctx, nil, "s1")
	if len(list) != 2 {
		t.Fatalf("list = %v", list)
	}
}

func TestVideoRepo_NewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewVideoRepo()
	old, _ := model.NewVideo("alice", "s1", "file:///1.mp4", 1, 1)
	old.CreatedAt = time.Now().Add(-time.Hour)
	fresh, _ := model.NewVideo("alice", "s2", "file:///2.mp4", 1, 1)
	_ = r.Save(ctx, nil, old)
	_ = r.Save(ctx, nil, fresh)

	list, _ := r.ListByOwner(ctx, nil, "alice", 1)
	if len(list) != 1 || list[0].ID != fresh.ID {
		t.Fatalf("list = %v", list)
	}
	if err := r.MarkPublished(ctx, nil, "nope", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}
