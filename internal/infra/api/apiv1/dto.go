package apiv1

import (
	"shorts-studio/internal/domain/model"
	"shorts-studio/internal/usecase"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
}

type WriteScriptRequest = usecase.WriteScriptInput

type WriteScriptResponse struct {
	Script string `json:"script"`
}

type MetadataRequest struct {
	Context  string `json:"context"`
	Language string `json:"language"`
}

type CreateSessionRequest struct {
	Script string            `json:"script"`
	Theme  string            `json:"theme"`
	Voice  model.VoiceParams `json:"voice"`
}

type AssembleResponse struct {
	VideoID string  `json:"video_id"`
	URL     string  `json:"url"`
	Clips   int     `json:"clips"`
	Seconds float64 `json:"duration_sec"`
	Skipped []int   `json:"skipped,omitempty"`
}

type PublishRequest struct {
	Target string `json:"target"`
	usecase.PublishMeta
}

type PublishResponse struct {
	Target     string `json:"target"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}
