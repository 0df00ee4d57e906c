//go:build !integration

package publish_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/infra/adapters/publish"
)

func TestYouTubeVideo(t *testing.T) {
	v := publish.YouTubeVideo(adapter.PublishRequest{
		Title:       strings.Repeat("x", 120),
		Description: "about cats",
		Tags:        []string{"cats"},
		Privacy:     "PUBLIC",
	}, "22")

	if len(v.Snippet.Title) != 100 {
		t.Fatalf("title not truncated: %d", len(v.Snippet.Title))
	}
	if !strings.HasSuffix(v.Snippet.Description, "#Shorts") {
		t.Fatalf("description = %q", v.Snippet.Description)
	}
	if v.Status.PrivacyStatus != "public" || v.Snippet.CategoryId != "22" {
		t.Fatalf("status=%s category=%s", v.Status.PrivacyStatus, v.Snippet.CategoryId)
	}

	v = publish.YouTubeVideo(adapter.PublishRequest{Title: "t", Privacy: "everyone"}, "24")
	if v.Status.PrivacyStatus != "private" {
		t.Fatalf("unknown privacy should fall back to private, got %s", v.Status.PrivacyStatus)
	}
}

func TestNewYouTubePublisher_RequiresCredentials(t *testing.T) {
	if _, err := publish.NewYouTubePublisher(publish.YouTubeConfig{ClientID: "id"}, nil); err == nil {
		t.Fatal("expected error without secret and refresh token")
	}
}

func TestTelegramCaption(t *testing.T) {
	got := publish.TelegramCaption(adapter.PublishRequest{
		Title:       " Title ",
		Description: "Desc",
		Tags:        []string{"#go lang", "shorts", " "},
	})
	want := "Title\n\nDesc\n\n#golang #shorts"
	if got != want {
		t.Fatalf("caption = %q want %q", got, want)
	}
}

func TestTelegramPublisher_Publish(t *testing.T) {
	var sent bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"studio","username":"studio_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendVideo"):
			sent = true
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":1,"chat":{"id":-100123,"type":"channel","username":"shorts_chan"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p, err := publish.NewTelegramPublisher("tok", -100123, srv.URL+"/bot%s/%s", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Name() != "telegram" {
		t.Fatalf("name = %s", p.Name())
	}

	file := filepath.Join(t.TempDir(), "v.mp4")
	if err := os.WriteFile(file, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := p.Publish(context.Background(), adapter.PublishRequest{FilePath: file, Title: "Hello"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !sent || res.ExternalID != "42" || res.URL != "https://t.me/shorts_chan/42" {
		t.Fatalf("res = %+v sent=%v", res, sent)
	}
}
