// File: internal/infra/adapters/storage/local_storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/ports/adapter"
)

var _ adapter.ObjectStorage = (*LocalStorage)(nil)

// LocalStorage writes objects under baseDir. When publicBase is set the
// returned url is publicBase joined with the object key, otherwise it is a
// file:// url.
type LocalStorage struct {
	baseDir    string
	publicBase string
}

func NewLocalStorage(baseDir, publicBase string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, errors.New("storage base dir empty")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{
		baseDir:    abs,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

func (s *LocalStorage) Store(ctx context.Context, data []byte, contentType, keyHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := path.Join(cleanKey(keyHint), uuid.NewString()+extFor(contentType))
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}

	// write then rename so readers never see a partial object
	tmp := full + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("store %s: %w", key, err)
	}

	if s.publicBase != "" {
		return s.publicBase + "/" + key, nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String(), nil
}

// Open reads an object this storage issued. Anything else, including paths
// outside baseDir and foreign urls, is refused with ErrInvalidInput.
func (s *LocalStorage) Open(ctx context.Context, raw string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, ok := s.resolve(raw)
	if !ok {
		return nil, fmt.Errorf("open %q: not a stored object: %w", raw, domain.ErrInvalidInput)
	}
	return openFile(full)
}

// Owns reports whether raw is a reference Store could have returned.
func (s *LocalStorage) Owns(raw string) bool {
	_, ok := s.resolve(raw)
	return ok
}

// resolve maps a stored reference to its file under baseDir.
func (s *LocalStorage) resolve(raw string) (string, bool) {
	var p string
	switch {
	case raw == "":
		return "", false
	case s.publicBase != "" && strings.HasPrefix(raw, s.publicBase+"/"):
		key := strings.TrimPrefix(raw, s.publicBase+"/")
		if i := strings.IndexAny(key, "?#"); i >= 0 {
			key = key[:i]
		}
		p = filepath.Join(s.baseDir, filepath.FromSlash(path.Clean("/"+key)))
	default:
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "file" || (u.Host != "" && u.Host != "localhost") {
			return "", false
		}
		p = filepath.Clean(filepath.FromSlash(u.Path))
	}
	rel, err := filepath.Rel(s.baseDir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", false
	}
	return p, true
}

func openFile(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", p, domain.ErrNotFound)
	}
	return f, err
}

// cleanKey keeps the hint inside the storage root.
func cleanKey(hint string) string {
	k := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(hint, "\\", "/")), "/")
	if k == "." {
		return ""
	}
	return k
}

func extFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "video/mp4":
		return ".mp4"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
