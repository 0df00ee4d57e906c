//go:build !integration

package usecase

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shorts-studio/internal/domain"
)

const catalogJSON = `[
 {"voiceName":"en-US-Neural2-A","languageCode":"en-US","gender":"MALE","type":"Neural2","previewUrl":"https://x/a.mp3"},
 {"voiceName":"en-US-Neural2-C","languageCode":"en-US","gender":"FEMALE","type":"Neural2","previewUrl":"https://x/c.mp3"},
 {"voiceName":"fr-FR-Wavenet-B","languageCode":"fr-FR","gender":"MALE","type":"WaveNet","previewUrl":"https://x/b.mp3"}
]`

func TestVoiceCatalog(t *testing.T) {
	c, err := ReadVoiceCatalog(strings.NewReader(catalogJSON))
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Filter("", "", ""); len(got) != 3 {
		t.Fatalf("empty criteria should match all, got %d", len(got))
	}
	if got := c.Filter("EN-us", "female", ""); len(got) != 1 || got[0].VoiceName != "en-US-Neural2-C" {
		t.Fatalf("got %+v", got)
	}
	if got := c.Filter("de-DE", "", ""); got == nil || len(got) != 0 {
		t.Fatalf("no match should be an empty slice, got %#v", got)
	}

	v, err := c.Find(" fr-fr-wavenet-b ")
	if err != nil || v.PreviewURL != "https://x/b.mp3" {
		t.Fatalf("find: %+v %v", v, err)
	}
	if _, err := c.Find("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadVoiceCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.json")
	if err := os.WriteFile(path, []byte(catalogJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadVoiceCatalog(path)
	if err != nil || len(c.Filter("", "", "")) != 3 {
		t.Fatalf("load: %v", err)
	}

	empty, err := LoadVoiceCatalog("")
	if err != nil || len(empty.Filter("", "", "")) != 0 {
		t.Fatalf("empty path: %v", err)
	}
	if _, err := LoadVoiceCatalog(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing file accepted")
	}
	if _, err := ReadVoiceCatalog(strings.NewReader("{")); err == nil {
		t.Fatal("malformed catalog accepted")
	}
}
