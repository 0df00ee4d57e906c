package model

import (
	"time"

	"github.com/oklog/ulid/v2"

	"shorts-studio/internal/domain"
)

type VideoStatus string

const (
	VideoStatusCompleted VideoStatus = "completed"
	VideoStatusPublished VideoStatus = "published"
)

// Video is a rendered output owned by a user.
type Video struct {
	ID          string      `json:"id"`
	Owner       string      `json:"owner"`
	SessionID   string      `json:"session_id"`
	URL         string      `json:"url"`
	Title       string      `json:"title,omitempty"`
	Status      VideoStatus `json:"status"`
	DurationSec float64     `json:"duration_sec"`
	Clips       int         `json:"clips"`
	ExternalURL string      `json:"external_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func NewVideo(owner, sessionID, url string, duration float64, clips int) (*Video, error) {
	if owner == "" || url == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Video{
		ID:          ulid.Make().String(),
		Owner:       owner,
		SessionID:   sessionID,
		URL:         url,
		Status:      VideoStatusCompleted,
		DurationSec: duration,
		Clips:       clips,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
