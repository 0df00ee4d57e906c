//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/usecase"
)

func TestPublishUseCase(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, text *MockTextGen) (*memVideoRepo, *MockPublisher, usecase.PublishUseCase, *model.Video) {
		t.Helper()
		store := newMemStorage()
		videos := newMemVideoRepo()
		url, _ := store.Store(ctx, []byte("mp4"), "video/mp4", "videos/s1")
		v, _ := model.NewVideo("u1", "s1", url, 12, 3)
		_ = videos.Save(ctx, nil, v)

		var scripts usecase.ScriptUseCase
		if text != nil {
			scripts = usecase.NewScriptUseCase(text, nil, "m", 0, "", newTestLogger())
		}
		pub := &MockPublisher{name: "telegram"}
		uc := usecase.NewPublishUseCase(videos, newMemAssetRepo(), store, scripts, t.TempDir(), newTestLogger(), pub)
		return videos, pub, uc, v
	}

	t.Run("publishes and marks the video", func(t *testing.T) {
		videos, pub, uc, v := setup(t, nil)
		res, err := uc.Publish(ctx, v.ID, "u1", "Telegram", usecase.PublishMeta{Title: "Hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Target != "telegram" || len(pub.Reqs) != 1 || pub.Reqs[0].Privacy != "private" {
			t.Fatalf("res=%+v reqs=%+v", res, pub.Reqs)
		}
		got, _ := videos.FindByID(ctx, nil, v.ID)
		if got.Status != model.VideoStatusPublished || got.ExternalURL != res.URL {
			t.Fatalf("video = %+v", got)
		}
	})

	t.Run("generates a missing title", func(t *testing.T) {
		text := &MockTextGen{CompleteFunc: func(ctx context.Context, m string, msgs []adapter.Message) (string, adapter.Usage, error) {
			return `{"title":"Generated","caption":"Desc"}`, adapter.Usage{}, nil
		}}
		_, pub, uc, v := setup(t, text)
		if _, err := uc.Publish(ctx, v.ID, "u1", "telegram", usecase.PublishMeta{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pub.Reqs[0].Title != "Generated" || pub.Reqs[0].Description != "Desc" {
			t.Fatalf("req = %+v", pub.Reqs[0])
		}
		if !strings.Contains(text.Messages[0][1].Content, "12 seconds") {
			t.Errorf("context not passed: %s", text.Messages[0][1].Content)
		}
	})

	t.Run("other owners get not found", func(t *testing.T) {
		_, _, uc, v := setup(t, nil)
		if _, err := uc.Publish(ctx, v.ID, "u2", "telegram", usecase.PublishMeta{Title: "x"}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		_, _, uc, v := setup(t, nil)
		if _, err := uc.Publish(ctx, v.ID, "u1", "myspace", usecase.PublishMeta{Title: "x"}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
