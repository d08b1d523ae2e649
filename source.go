package tweets

import (
	"context"
	"errors"
)

// ErrNotCaptured is returned by a Source when no TweetDetail payload was
// observed for the requested id. Builds report it as resource-not-found.
var ErrNotCaptured = errors.New("tweet detail not captured")

// Source produces the raw TweetDetail response body for a tweet id.
// Implementations own any browser or network session they open and must
// release it before returning.
type Source interface {
	TweetDetail(ctx context.Context, id string) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id string) ([]byte, error)

func (f SourceFunc) TweetDetail(ctx context.Context, id string) ([]byte, error) {
	return f(ctx, id)
}
