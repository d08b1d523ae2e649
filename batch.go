package tweets

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// BatchResult collects the outcome of BuildMany. Data and Errors keep the
// order of the requested ids.
type BatchResult struct {
	Data   []*Tweet `json:"data"`
	Errors []*Error `json:"errors,omitempty"`
}

// BuildMany builds every id independently and concurrently, in strict mode
// per id. A failing id never cancels or blocks the others; its error is
// reported next to the tweets that did build. Duplicate ids are built once.
func (b *Builder) BuildMany(ctx context.Context, ids []string, fields FieldSet) *BatchResult {
	ids = dedupe(ids)

	type outcome struct {
		tweet *Tweet
		err   *Error
	}
	outcomes := make([]outcome, len(ids))

	// No derived context: one id failing must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(b.cfg.MaxConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			t, err := b.Build(ctx, id, fields)
			if err != nil {
				outcomes[i].err = AsError(err, id)
				return nil
			}
			outcomes[i].tweet = t
			return nil
		})
	}
	_ = g.Wait()

	res := &BatchResult{Data: make([]*Tweet, 0, len(ids))}
	for _, o := range outcomes {
		if o.err != nil {
			res.Errors = append(res.Errors, o.err)
			continue
		}
		res.Data = append(res.Data, o.tweet)
	}
	b.cfg.Logger.Debug("batch built",
		slog.Int("requested", len(ids)),
		slog.Int("built", len(res.Data)),
		slog.Int("failed", len(res.Errors)))
	return res
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
