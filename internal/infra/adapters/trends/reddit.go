// File: internal/infra/adapters/trends/reddit.go
package trends

import (
	"context"
	"fmt"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"shorts-studio/internal/domain"
	"shorts-studio/internal/domain/ports/adapter"
)

var _ adapter.TrendSource = (*RedditTrends)(nil)

// RedditTrends lists the titles of a subreddit's hot posts.
type RedditTrends struct {
	client *reddit.Client
}

// NewRedditTrends builds a read-only client. baseURL is for tests.
func NewRedditTrends(userAgent, baseURL string) (*RedditTrends, error) {
	opts := []reddit.Opt{}
	if userAgent != "" {
		opts = append(opts, reddit.WithUserAgent(userAgent))
	}
	if baseURL != "" {
		opts = append(opts, reddit.WithBaseURL(baseURL))
	}
	c, err := reddit.NewReadonlyClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &RedditTrends{client: c}, nil
}

func (r *RedditTrends) Trending(ctx context.Context, source string, limit int) ([]string, error) {
	sub := strings.TrimPrefix(strings.TrimSpace(source), "r/")
	if sub == "" || strings.ContainsAny(sub, "/ ") {
		return nil, fmt.Errorf("subreddit %q: %w", source, domain.ErrInvalidArgument)
	}
	// over-fetch: stickied posts are skipped
	posts, resp, err := r.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: limit + 5})
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, fmt.Errorf("subreddit %q: %w", sub, domain.ErrNotFound)
		}
		if resp != nil && resp.StatusCode == 429 {
			return nil, &domain.RateLimitError{Err: err}
		}
		return nil, fmt.Errorf("reddit hot %s: %w", sub, err)
	}

	out := make([]string, 0, limit)
	for _, p := range posts {
		if p == nil || p.Stickied || p.NSFW {
			continue
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		out = append(out, title)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
