package adapter

import "context"

type PublishRequest struct {
	FilePath    string
	Title       string
	Description string
	Tags        []string
	Privacy     string // public|unlisted|private
}

type PublishResult struct {
	Target     string
	ExternalID string
	URL        string
}

// Publisher uploads a rendered video to an external platform.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}
