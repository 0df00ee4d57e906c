// File: internal/infra/adapters/publish/youtube.go
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/ports/adapter"
	"shorts-studio/internal/infra/logging"
)

var _ adapter.Publisher = (*YouTubePublisher)(nil)

type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CategoryID   string
	// Endpoint overrides the API base url; empty uses Google's.
	Endpoint string
}

// YouTubePublisher uploads videos with the Data API v3 using a long-lived
// refresh token.
type YouTubePublisher struct {
	cfg YouTubeConfig
	ts  oauth2.TokenSource
	log *zerolog.Logger
}

func NewYouTubePublisher(cfg YouTubeConfig, logger *zerolog.Logger) (*YouTubePublisher, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("youtube client id, secret and refresh token are required")
	}
	if cfg.CategoryID == "" {
		cfg.CategoryID = "22"
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	// expired on purpose so the first call refreshes
	tok := &oauth2.Token{RefreshToken: cfg.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	l := logging.OrNop(logger).With().Str("component", "YouTubePublisher").Logger()
	return &YouTubePublisher{
		cfg: cfg,
		ts:  oauth2.ReuseTokenSource(nil, conf.TokenSource(context.Background(), tok)),
		log: &l,
	}, nil
}

func (y *YouTubePublisher) Name() string { return "youtube" }

func (y *YouTubePublisher) Publish(ctx context.Context, req adapter.PublishRequest) (*adapter.PublishResult, error) {
	opts := []option.ClientOption{option.WithTokenSource(y.ts)}
	if y.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	call := svc.Videos.Insert([]string{"snippet", "status"}, YouTubeVideo(req, y.cfg.CategoryID))
	call.Media(f)
	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w: %w", domain.ErrGenerationFailed, err)
	}

	url := "https://www.youtube.com/shorts/" + uploaded.Id
	logging.With(ctx, y.log).Info().Str("video_id", uploaded.Id).Msg("uploaded")
	return &adapter.PublishResult{Target: y.Name(), ExternalID: uploaded.Id, URL: url}, nil
}

// YouTubeVideo builds the insert body. Shorts are detected by aspect ratio;
// the #Shorts tag only helps discovery.
func YouTubeVideo(req adapter.PublishRequest, categoryID string) *youtube.Video {
	privacy := strings.ToLower(req.Privacy)
	switch privacy {
	case "public", "unlisted", "private":
	default:
		privacy = "private"
	}
	desc := req.Description
	if !strings.Contains(strings.ToLower(desc), "#shorts") {
		desc = strings.TrimSpace(desc + "\n\n#Shorts")
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncateRunes(req.Title, 100),
			Description: truncateRunes(desc, 5000),
			Tags:        req.Tags,
			CategoryId:  categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
		},
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
