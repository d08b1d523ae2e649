// Package server exposes tweet builds over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tweets "github.com/anatolykoptev/go-tweets"
)

// Builder is the part of *tweets.Builder the server needs.
type Builder interface {
	Build(ctx context.Context, id string, fields tweets.FieldSet) (*tweets.Tweet, error)
	BuildMany(ctx context.Context, ids []string, fields tweets.FieldSet) *tweets.BatchResult
}

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address. Default: ":3000".
	Addr string `yaml:"addr"`

	// ReadHeaderTimeout. Default: 10s.
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// WriteTimeout must leave room for a full browser capture. Default: 2m.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Logger receives one line per request. Default: slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

func (cfg *Config) defaults() {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Server serves GET /tweets and GET /tweets/{id}.
type Server struct {
	cfg     Config
	builder Builder
	srv     *http.Server
}

// New creates a Server backed by b.
func New(b Builder, cfg Config) *Server {
	cfg.defaults()
	s := &Server{cfg: cfg, builder: b}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tweets/{id}", s.handleTweet)
	mux.HandleFunc("GET /tweets", s.handleTweets)
	mux.HandleFunc("/", s.handleInvalid)
	return s.logRequests(cors(mux))
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	s.cfg.Logger.Info("listening", slog.String("addr", s.cfg.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight builds.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleTweet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fields := tweets.ParseFieldSet(r.URL.Query()["tweet.fields"]...)

	t, err := s.builder.Build(r.Context(), id, fields)
	if err != nil {
		e := tweets.AsError(err, id)
		writeJSON(w, e.Status, map[string]any{"errors": e})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": t})
}

func (s *Server) handleTweets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids := splitList(q["ids"])
	if len(ids) == 0 {
		e := tweets.NewError(tweets.ReasonInvalidRequest,
			"Requests to the /tweets endpoint must contain at least one tweet id. None were provided.", nil)
		writeJSON(w, e.Status, e)
		return
	}
	fields := tweets.ParseFieldSet(q["tweet.fields"]...)

	res := s.builder.BuildMany(r.Context(), ids, fields)
	status := http.StatusOK
	if len(res.Data) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

func (s *Server) handleInvalid(w http.ResponseWriter, r *http.Request) {
	e := tweets.NewError(tweets.ReasonInvalidRequest, "Invalid endpoint accessed",
		map[string]any{"method": r.Method, "path": r.URL.Path})
	writeJSON(w, e.Status, e)
}

// splitList joins repeated query values and splits them on commas,
// dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range strings.Split(strings.Join(values, ","), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", slog.Any("error", err))
	}
}
