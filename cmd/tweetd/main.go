// Command tweetd builds tweets from intercepted TweetDetail payloads, either
// as an HTTP service or one-shot from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	tweets "github.com/anatolykoptev/go-tweets"
	"github.com/anatolykoptev/go-tweets/browser"
)

var (
	// Global flags
	configPath string
	logLevel   string
	sourceName string

	cfg *Config
)

var rootCmd = &cobra.Command{
	Use:   "tweetd",
	Short: "Build API-shaped tweets from the web app's TweetDetail payload",
	Long: `tweetd loads a tweet's status page, intercepts the TweetDetail GraphQL
response and assembles a tweet record with the requested tweet.fields.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if sourceName != "" {
			cfg.Source = sourceName
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&sourceName, "source", "", "Payload source: browser or graphql")

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default :3000)")

	getCmd.Flags().StringSliceVar(&getFields, "fields", nil, "Comma-separated tweet.fields to include")
	getCmd.Flags().BoolVar(&getPartial, "partial", false, "Keep the tweet when individual fields fail")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(getCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openSource builds the configured payload source. The returned close func
// releases it.
func openSource(ctx context.Context, c *Config) (tweets.Source, func() error, error) {
	switch c.Source {
	case sourceGraphQL:
		src, err := tweets.NewGraphQLSource(c.GraphQL)
		if err != nil {
			return nil, nil, fmt.Errorf("graphql source: %w", err)
		}
		return src, func() error { return nil }, nil
	default:
		src := browser.New(c.Browser)
		if err := src.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("browser source: %w", err)
		}
		return src, src.Close, nil
	}
}
