package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"shorts-studio/internal/domain"
)

type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindAudio AssetKind = "audio"
)

func (k AssetKind) Valid() bool { return k == AssetKindImage || k == AssetKindAudio }

type AssetStatus string

const (
	AssetStatusPending     AssetStatus = "pending"
	AssetStatusRegenerated AssetStatus = "regenerated"
	AssetStatusFailed      AssetStatus = "failed"
)

// Metadata keys stored on assets.
const (
	MetaTheme       = "theme"
	MetaOwner       = "owner"
	MetaNarration   = "narration"
	MetaVoice       = "voice"
	MetaVoiceParams = "voice_params"
	MetaContentType = "content_type"
)

// Asset is one generated artifact (image or narration audio) of a scene.
// Only Status changes after creation.
type Asset struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	SceneIndex int               `json:"scene_index"`
	Kind       AssetKind         `json:"kind"`
	URL        string            `json:"url"`
	SourceText string            `json:"source_text"`
	Status     AssetStatus       `json:"status"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewAsset builds a pending asset with a fresh id.
func NewAsset(sessionID string, sceneIndex int, kind AssetKind, url, sourceText string, meta map[string]string) (*Asset, error) {
	if sessionID == "" || url == "" || !kind.Valid() || sceneIndex < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if meta == nil {
		meta = map[string]string{}
	}
	return &Asset{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		SceneIndex: sceneIndex,
		Kind:       kind,
		URL:        url,
		SourceText: sourceText,
		Status:     AssetStatusPending,
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (a *Asset) Meta(key string) string {
	if a == nil || a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}

// regenerated -> pending is only used to restore an asset when its
// replacement could not be produced.
var allowedTransitions = map[AssetStatus][]AssetStatus{
	"":                     {AssetStatusPending},
	AssetStatusPending:     {AssetStatusRegenerated, AssetStatusFailed},
	AssetStatusRegenerated: {AssetStatusPending},
}

func CanTransition(from, to AssetStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the asset to the given status if allowed.
func (a *Asset) Transition(to AssetStatus) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("asset %s %s -> %s: %w", a.ID, a.Status, to, domain.ErrInvalidTransition)
	}
	a.Status = to
	return nil
}
