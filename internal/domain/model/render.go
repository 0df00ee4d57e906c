package model

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"shorts-studio/internal/domain"
)

const (
	DefaultFPS             = 24
	DefaultSecondsPerImage = 2.0
	DefaultWidth           = 720
	DefaultHeight          = 1280
	FadeSeconds            = 0.5
)

// RenderOptions control a single assembly run.
type RenderOptions struct {
	FPS             int     `json:"fps"`
	SecondsPerImage float64 `json:"seconds_per_image"`
	AddTransitions  bool    `json:"add_transitions"`
	AddCaptions     bool    `json:"add_captions"`
	BackgroundAudio string  `json:"background_audio,omitempty"` // a stored object reference
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		FPS:             DefaultFPS,
		SecondsPerImage: DefaultSecondsPerImage,
		AddTransitions:  true,
		AddCaptions:     true,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
	}
}

// Normalize fills zero values with defaults and validates ranges.
func (o *RenderOptions) Normalize() error {
	if o.FPS == 0 {
		o.FPS = DefaultFPS
	}
	if o.FPS < 1 || o.FPS > 60 {
		return fmt.Errorf("fps %d out of range 1-60: %w", o.FPS, domain.ErrInvalidInput)
	}
	if o.SecondsPerImage == 0 {
		o.SecondsPerImage = DefaultSecondsPerImage
	}
	if o.SecondsPerImage < 0 {
		return fmt.Errorf("seconds_per_image must be positive: %w", domain.ErrInvalidInput)
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Width < 0 || o.Height < 0 || o.Width%2 != 0 || o.Height%2 != 0 {
		return fmt.Errorf("output size %dx%d must be positive and even: %w", o.Width, o.Height, domain.ErrInvalidInput)
	}
	return nil
}

// SceneInput is one entry of an assembly request. AudioURL is optional.
type SceneInput struct {
	Index     int    `json:"index"`
	ImageURL  string `json:"image_url"`
	Narration string `json:"narration"`
	AudioURL  string `json:"audio_url,omitempty"`
}

// PairScenes zips parallel image/narration/audio lists into scene inputs.
// audios may be empty; otherwise every list must have the same length.
func PairScenes(images, narrations, audios []string) ([]SceneInput, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images: %w", domain.ErrInvalidInput)
	}
	if len(narrations) != len(images) {
		return nil, fmt.Errorf("%d images but %d narrations: %w", len(images), len(narrations), domain.ErrInvalidInput)
	}
	if len(audios) != 0 && len(audios) != len(images) {
		return nil, fmt.Errorf("%d images but %d audio tracks: %w", len(images), len(audios), domain.ErrInvalidInput)
	}
	out := make([]SceneInput, len(images))
	for i := range images {
		out[i] = SceneInput{Index: i, ImageURL: images[i], Narration: narrations[i]}
		if len(audios) != 0 {
			out[i].AudioURL = audios[i]
		}
	}
	return out, nil
}

type RenderTaskStatus string

const (
	RenderTaskPending    RenderTaskStatus = "pending"
	RenderTaskProcessing RenderTaskStatus = "processing"
	RenderTaskCompleted  RenderTaskStatus = "completed"
	RenderTaskFailed     RenderTaskStatus = "failed"
)

// RenderTask is a queued assembly of a session.
type RenderTask struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Owner     string           `json:"owner"`
	Options   RenderOptions    `json:"options"`
	Status    RenderTaskStatus `json:"status"`
	VideoID   string           `json:"video_id,omitempty"`
	LastError string           `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewRenderTask(sessionID, owner string, opts RenderOptions) (*RenderTask, error) {
	if sessionID == "" || owner == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &RenderTask{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Owner:     owner,
		Options:   opts,
		Status:    RenderTaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
