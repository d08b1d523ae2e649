package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	tweets "github.com/anatolykoptev/go-tweets"
)

var (
	getFields  []string
	getPartial bool
)

var errNothingBuilt = errors.New("no tweet could be built")

var getCmd = &cobra.Command{
	Use:   "get <id>...",
	Short: "Build tweets and print them as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		src, closeSrc, err := openSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSrc()

		b := tweets.NewBuilder(src, cfg.Engine)
		return runGet(ctx, cmd.OutOrStdout(), b, args, tweets.ParseFieldSet(getFields...), getPartial)
	},
}

// runGet builds ids and writes one JSON document to w. It fails only when
// nothing could be built.
func runGet(ctx context.Context, w io.Writer, b *tweets.Builder, ids []string, fields tweets.FieldSet, partial bool) error {
	var res *tweets.BatchResult
	if partial {
		res = &tweets.BatchResult{Data: []*tweets.Tweet{}}
		for _, id := range ids {
			t, errs := b.BuildPartial(ctx, id, fields)
			if t != nil {
				res.Data = append(res.Data, t)
			}
			res.Errors = append(res.Errors, errs...)
		}
	} else {
		res = b.BuildMany(ctx, ids, fields)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if len(res.Data) == 0 {
		return errNothingBuilt
	}
	return nil
}
