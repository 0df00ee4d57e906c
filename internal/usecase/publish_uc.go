package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/domain/ports/repository"
	"shorts-studio/internal/infra/logging"
)

var _ PublishUseCase = (*publishUC)(nil)

type PublishMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Privacy     string   `json:"privacy"`
}

type PublishUseCase interface {
	Publish(ctx context.Context, videoID, owner, target string, meta PublishMeta) (*adapter.PublishResult, error)
	Targets() []string
}

type publishUC struct {
	videos     repository.VideoRepository
	assets     repository.AssetRepository
	store      adapter.ObjectStorage
	scripts    ScriptUseCase
	publishers map[string]adapter.Publisher
	workDir    string
	log        *zerolog.Logger
}

// NewPublishUseCase indexes publishers by Name(). scripts may be nil, in
// which case a title is required.
func NewPublishUseCase(videos repository.VideoRepository, assets repository.AssetRepository, store adapter.ObjectStorage, scripts ScriptUseCase, workDir string, logger *zerolog.Logger, publishers ...adapter.Publisher) *publishUC {
	m := make(map[string]adapter.Publisher, len(publishers))
	for _, p := range publishers {
		if p != nil {
			m[p.Name()] = p
		}
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &publishUC{videos: videos, assets: assets, store: store, scripts: scripts, publishers: m, workDir: workDir, log: logging.OrNop(logger)}
}

func (u *publishUC) Targets() []string {
	out := make([]string, 0, len(u.publishers))
	for name := range u.publishers {
		out = append(out, name)
	}
	return out
}

func (u *publishUC) Publish(ctx context.Context, videoID, owner, target string, meta PublishMeta) (*adapter.PublishResult, error) {
	pub, ok := u.publishers[strings.ToLower(strings.TrimSpace(target))]
	if !ok {
		return nil, fmt.Errorf("unknown publish target %q: %w", target, domain.ErrInvalidArgument)
	}
	v, err := u.videos.FindByID(ctx, repository.NoTX, videoID)
	if err != nil {
		return nil, err
	}
	if v.Owner != owner {
		return nil, domain.ErrNotFound
	}

	if strings.TrimSpace(meta.Title) == "" {
		if u.scripts == nil {
			return nil, fmt.Errorf("title required: %w", domain.ErrInvalidArgument)
		}
		gen, err := u.scripts.WriteMetadata(ctx, u.videoContext(ctx, v), "")
		if err != nil {
			return nil, err
		}
		meta.Title = gen.Title
		if meta.Description == "" {
			meta.Description = gen.Caption
		}
	}
	if meta.Privacy == "" {
		meta.Privacy = "private"
	}

	path, err := u.download(ctx, v.URL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	res, err := pub.Publish(ctx, adapter.PublishRequest{
		FilePath:    path,
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
		Privacy:     meta.Privacy,
	})
	if err != nil {
		return nil, fmt.Errorf("publish to %s: %w", pub.Name(), err)
	}
	if err := u.videos.MarkPublished(ctx, repository.NoTX, v.ID, res.URL); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("video_id", v.ID).Msg("mark published")
	}
	logging.With(ctx, u.log).Info().Str("video_id", v.ID).Str("target", res.Target).Str("external_id", res.ExternalID).Msg("video published")
	return res, nil
}

func (u *publishUC) download(ctx context.Context, url string) (string, error) {
	rc, err := u.store.Open(ctx, url)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer rc.Close()
	f, err := os.CreateTemp(u.workDir, "publish-*.mp4")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// videoContext summarizes a video for title writing from its narration.
func (u *publishUC) videoContext(ctx context.Context, v *model.Video) string {
	if v.Title != "" {
		return v.Title
	}
	if u.assets != nil && v.SessionID != "" {
		if all, err := u.assets.ListBySession(ctx, repository.NoTX, v.SessionID); err == nil {
			if ins, err := SceneInputs(all); err == nil {
				parts := make([]string, 0, len(ins))
				for _, in := range ins {
					parts = append(parts, in.Narration)
				}
				if text := strings.TrimSpace(strings.Join(parts, " ")); text != "" {
					return text
				}
			}
		}
	}
	return fmt.Sprintf("short vertical video of %.0f seconds in %d scenes", v.DurationSec, v.Clips)
}
