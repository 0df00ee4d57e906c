package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
)

// MaxSceneSeconds caps how long a single narrated scene may run.
const MaxSceneSeconds = 60.0

// DefaultMaxFetchBytes bounds one fetched asset.
const DefaultMaxFetchBytes = 200 << 20

// RenderOutput is a rendered video on local disk. The caller owns Path.
type RenderOutput struct {
	Path     string
	Duration float64
	Clips    int
	Skipped  []int
}

// VideoAssembler renders ordered scene assets into a single vertical video.
type VideoAssembler interface {
	Assemble(ctx context.Context, scenes []model.SceneInput, opts model.RenderOptions) (*RenderOutput, error)
}

var _ VideoAssembler = (*videoAssembler)(nil)

// AssemblerConfig tunes where and how assets are fetched for rendering.
type AssemblerConfig struct {
	WorkDir       string
	FetchTimeout  time.Duration
	MaxFetchBytes int64
}

type videoAssembler struct {
	store adapter.ObjectStorage
	media adapter.MediaEngine
	cfg   AssemblerConfig
	log   *zerolog.Logger
}

func NewVideoAssembler(store adapter.ObjectStorage, media adapter.MediaEngine, cfg AssemblerConfig, logger *zerolog.Logger) VideoAssembler {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxFetchBytes <= 0 {
		cfg.MaxFetchBytes = DefaultMaxFetchBytes
	}
	l := logging.OrNop(logger).With().Str("component", "VideoAssembler").Logger()
	return &videoAssembler{store: store, media: media, cfg: cfg, log: &l}
}

type renderedClip struct {
	index    int
	path     string
	duration float64
}

func (v *videoAssembler) Assemble(ctx context.Context, scenes []model.SceneInput, opts model.RenderOptions) (*RenderOutput, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes: %w", domain.ErrInvalidInput)
	}
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	if opts.BackgroundAudio != "" && !v.store.Owns(opts.BackgroundAudio) {
		return nil, fmt.Errorf("background audio is not a stored object: %w", domain.ErrInvalidInput)
	}
	ordered, err := orderScenes(scenes)
	if err != nil {
		return nil, err
	}
	defer logging.TraceDuration(v.log, "VideoAssembler.Assemble")()
	log := logging.With(ctx, v.log)
	started := time.Now()

	dir, err := os.MkdirTemp(v.cfg.WorkDir, "assemble-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var (
		clips   []renderedClip
		skipped []int
	)
	for _, sc := range ordered {
		clip, stage, err := v.renderScene(ctx, dir, sc, opts)
		if err != nil {
			log.Warn().Err(err).Int("scene", sc.Index).Str("stage", stage).Msg("scene skipped")
			metrics.IncSceneSkipped(stage)
			skipped = append(skipped, sc.Index)
			continue
		}
		clips = append(clips, clip)
	}
	if len(clips) == 0 {
		metrics.IncRenderFailure("no_valid_scenes")
		return nil, domain.ErrNoValidScenes
	}

	var total float64
	paths := make([]string, len(clips))
	for i, c := range clips {
		paths[i] = c.path
		total += c.duration
	}

	out, err := os.CreateTemp(v.cfg.WorkDir, "video-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	outPath := out.Name()
	out.Close()
	keep := false
	defer func() {
		if !keep {
			os.Remove(outPath)
		}
	}()

	if opts.BackgroundAudio == "" {
		if err := v.media.Concat(ctx, paths, outPath); err != nil {
			metrics.IncRenderFailure("concat")
			return nil, fmt.Errorf("concat clips: %w", err)
		}
	} else {
		joined := filepath.Join(dir, "joined.mp4")
		if err := v.media.Concat(ctx, paths, joined); err != nil {
			metrics.IncRenderFailure("concat")
			return nil, fmt.Errorf("concat clips: %w", err)
		}
		bg, err := v.fetch(ctx, dir, "background", opts.BackgroundAudio)
		if err != nil {
			metrics.IncRenderFailure("background_audio")
			return nil, fmt.Errorf("fetch background audio: %w", err)
		}
		if err := v.media.FitAudio(ctx, joined, bg, total, outPath); err != nil {
			metrics.IncRenderFailure("background_audio")
			return nil, fmt.Errorf("fit background audio: %w", err)
		}
	}

	keep = true
	metrics.ObserveRender(time.Since(started), len(clips))
	log.Info().Int("clips", len(clips)).Ints("skipped", skipped).Float64("duration", total).Msg("video assembled")
	return &RenderOutput{Path: outPath, Duration: total, Clips: len(clips), Skipped: skipped}, nil
}

// renderScene returns the rendered clip or the failing stage.
func (v *videoAssembler) renderScene(ctx context.Context, dir string, sc model.SceneInput, opts model.RenderOptions) (renderedClip, string, error) {
	base := fmt.Sprintf("scene-%03d", sc.Index)

	img, err := v.fetch(ctx, dir, base+"-image", sc.ImageURL)
	if err != nil {
		return renderedClip{}, "fetch", err
	}
	format, err := checkImage(img)
	if err != nil {
		return renderedClip{}, "decode", err
	}
	// encoders pick the image demuxer by extension
	if named := img + "." + format; os.Rename(img, named) == nil {
		img = named
	}

	duration := opts.SecondsPerImage
	var audio string
	if sc.AudioURL != "" {
		audio, err = v.fetch(ctx, dir, base+"-audio", sc.AudioURL)
		if err != nil {
			return renderedClip{}, "fetch", err
		}
		d, err := v.media.Probe(ctx, audio)
		if err != nil {
			return renderedClip{}, "probe", err
		}
		if d > 0 {
			duration = min(d, MaxSceneSeconds)
		}
	}

	var captions []model.CaptionSegment
	if opts.AddCaptions {
		captions = ChunkCaptions(sc.Narration, duration, DefaultMinCaptionSeconds)
	}

	spec := adapter.ClipSpec{
		ImagePath: img,
		AudioPath: audio,
		Duration:  duration,
		Captions:  captions,
		FPS:       opts.FPS,
		Width:     opts.Width,
		Height:    opts.Height,
		Fade:      opts.AddTransitions,
		OutPath:   filepath.Join(dir, base+".mp4"),
	}
	if err := v.media.RenderClip(ctx, spec); err != nil {
		return renderedClip{}, "encode", err
	}
	return renderedClip{index: sc.Index, path: spec.OutPath, duration: duration}, "", nil
}

// fetch copies a stored object into dir with its own timeout and size cap.
func (v *videoAssembler) fetch(ctx context.Context, dir, name, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%s: empty reference: %w", name, domain.ErrInvalidInput)
	}
	fctx, cancel := context.WithTimeout(ctx, v.cfg.FetchTimeout)
	defer cancel()

	rc, err := v.store.Open(fctx, url)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(rc, v.cfg.MaxFetchBytes+1))
	if err == nil && n > v.cfg.MaxFetchBytes {
		err = fmt.Errorf("%s: larger than %d bytes: %w", name, v.cfg.MaxFetchBytes, domain.ErrInvalidInput)
	}
	if err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// checkImage returns the decoded image format name.
func checkImage(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", fmt.Errorf("decode image: empty %dx%d", cfg.Width, cfg.Height)
	}
	return format, nil
}

// orderScenes sorts by index and rejects duplicates.
func orderScenes(scenes []model.SceneInput) ([]model.SceneInput, error) {
	out := make([]model.SceneInput, len(scenes))
	copy(out, scenes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	for i := 1; i < len(out); i++ {
		if out[i].Index == out[i-1].Index {
			return nil, fmt.Errorf("duplicate scene index %d: %w", out[i].Index, domain.ErrInvalidInput)
		}
	}
	return out, nil
}
