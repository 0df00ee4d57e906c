package adapter

import (
	"context"

	"shorts-studio/internal/domain/model"
)

// ClipSpec describes one rendered scene clip.
type ClipSpec struct {
	ImagePath string
	AudioPath string // empty renders a silent track
	Duration  float64
	Captions  []model.CaptionSegment
	FPS       int
	Width     int
	Height    int
	Fade      bool
	OutPath   string
}

// MediaEngine performs the encoding steps of video assembly on local files.
type MediaEngine interface {
	// Probe returns the duration of a media file in seconds.
	Probe(ctx context.Context, path string) (float64, error)
	RenderClip(ctx context.Context, spec ClipSpec) error
	// Concat joins clips in the given order into out.
	Concat(ctx context.Context, clips []string, out string) error
	// FitAudio replaces the audio of video with audio looped or trimmed to
	// duration seconds.
	FitAudio(ctx context.Context, video, audio string, duration float64, out string) error
}
