//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
)

func TestRenderTaskRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewRenderTaskRepo(testPool, NewTxManager(testPool))

	t.Run("queue is claimed oldest first and once", func(t *testing.T) {
		cleanup(t)
		var ids []string
		for i := 0; i < 3; i++ {
			task, err := model.NewRenderTask("s1", "alice", model.DefaultRenderOptions())
			if err != nil {
				t.Fatal(err)
			}
			task.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
			if err := repo.Save(ctx, nil, task); err != nil {
				t.Fatalf("save: %v", err)
			}
			ids = append(ids, task.ID)
		}

		var (
			mu      sync.Mutex
			claimed = map[string]int{}
			wg      sync.WaitGroup
		)
		for w := 0; w < 3; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				task, err := repo.FetchAndMarkProcessing(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				claimed[task.ID]++
				mu.Unlock()
			}()
		}
		wg.Wait()
		if len(claimed) != 3 {
			t.Fatalf("claimed = %v", claimed)
		}
		for id, n := range claimed {
			if n != 1 {
				t.Fatalf("task %s claimed %d times", id, n)
			}
		}
		if _, err := repo.FetchAndMarkProcessing(ctx); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected empty queue, got %v", err)
		}

		got, err := repo.FindByID(ctx, nil, ids[0])
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.RenderTaskProcessing || got.Options.FPS != model.DefaultFPS {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("stale processing tasks fail", func(t *testing.T) {
		cleanup(t)
		task, _ := model.NewRenderTask("s1", "alice", model.RenderOptions{})
		if err := repo.Save(ctx, nil, task); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.FetchAndMarkProcessing(ctx); err != nil {
			t.Fatal(err)
		}

		n, err := repo.FailStale(ctx, time.Now().Add(-time.Hour), "stuck")
		if err != nil || n != 0 {
			t.Fatalf("fresh task reaped: n=%d err=%v", n, err)
		}
		n, err = repo.FailStale(ctx, time.Now().Add(time.Minute), "stuck")
		if err != nil || n != 1 {
			t.Fatalf("n=%d err=%v", n, err)
		}
		got, _ := repo.FindByID(ctx, nil, task.ID)
		if got.Status != model.RenderTaskFailed || got.LastError != "stuck" {
			t.Fatalf("got %+v", got)
		}
	})
}
