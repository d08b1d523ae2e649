package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	tweets "github.com/anatolykoptev/go-tweets"
	"github.com/anatolykoptev/go-tweets/server"
)

const shutdownTimeout = 15 * time.Second

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve GET /tweets and GET /tweets/{id}",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if listenAddr != "" {
			cfg.Server.Addr = listenAddr
		}

		src, closeSrc, err := openSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeSrc(); err != nil {
				slog.Warn("close source", slog.Any("error", err))
			}
		}()

		srv := server.New(tweets.NewBuilder(src, cfg.Engine), cfg.Server)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()
			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}
