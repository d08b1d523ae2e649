package tweets

import (
	"log/slog"
	"net/http"
)

// Config holds engine configuration for a Builder.
type Config struct {
	// UnavailableStatus is the HTTP status reported for tombstones whose
	// reason could not be classified. Default: 403.
	UnavailableStatus int `yaml:"unavailable_status"`

	// MaxConcurrency bounds how many ids BuildMany fetches at once.
	// Each in-flight id holds its own browser session. Default: 4.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Classifier decides why a tombstoned tweet is unavailable.
	// Default: DefaultClassifier().
	Classifier Classifier `yaml:"-"`

	// Logger receives build diagnostics. Default: slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *Config) defaults() {
	if cfg.UnavailableStatus == 0 {
		cfg.UnavailableStatus = http.StatusForbidden
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Classifier == nil {
		cfg.Classifier = DefaultClassifier()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}
