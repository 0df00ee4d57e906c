package adapter

import "context"

// TrendSource lists currently popular topics.
type TrendSource interface {
	Trending(ctx context.Context, source string, limit int) ([]string, error)
}
