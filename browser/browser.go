// Package browser captures TweetDetail payloads by loading a tweet's status
// page in headless Chrome and intercepting the web app's GraphQL call.
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"

	tweets "github.com/anatolykoptev/go-tweets"
)

// Config configures the browser source.
type Config struct {
	// ControlURL connects to an already running Chrome (DevTools websocket).
	// When empty, Chrome is launched.
	ControlURL string `yaml:"control_url"`

	// Bin is the Chrome binary to launch. Empty lets the launcher find or
	// download one.
	Bin string `yaml:"bin"`

	// Flags are extra launch flags such as "--no-sandbox" or "--lang=en".
	Flags []string `yaml:"flags"`

	// Headless defaults to true.
	Headless *bool `yaml:"headless"`

	// CaptureTimeout bounds one status page session. Default: 30s.
	CaptureTimeout time.Duration `yaml:"capture_timeout"`

	// RequestsPerSecond paces page navigations. Default: 1.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the navigation burst size. Default: 1.
	Burst int `yaml:"burst"`

	// StatusURL is the status page prefix the id is appended to.
	// Default: "https://twitter.com/x/status/".
	StatusURL string `yaml:"status_url"`

	// Logger receives capture diagnostics. Default: slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// IsHeadless reports whether Chrome runs headless.
func (c Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

func (c *Config) defaults() {
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 30 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 1
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.StatusURL == "" {
		c.StatusURL = "https://twitter.com/x/status/"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Source is a tweets.Source backed by Chrome. One Source shares one browser
// process; every TweetDetail call runs in its own incognito context.
type Source struct {
	cfg     Config
	limiter *rate.Limiter

	mu      sync.Mutex
	browser *rod.Browser
}

// New creates a browser source. Chrome is started lazily or by Start.
func New(cfg Config) *Source {
	cfg.defaults()
	return &Source{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Start connects to ControlURL or launches Chrome.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Source) startLocked(ctx context.Context) error {
	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		s.cfg.Logger.Warn("stale browser connection, reconnecting")
		_ = s.browser.Close()
		s.browser = nil
	}

	controlURL := s.cfg.ControlURL
	if controlURL == "" {
		u, err := s.launcher().Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	// The connection outlives ctx, which may be a single request's.
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = b
	s.cfg.Logger.Info("browser connected", slog.Bool("headless", s.cfg.IsHeadless()), slog.Bool("launched", s.cfg.ControlURL == ""))
	return nil
}

func (s *Source) launcher() *launcher.Launcher {
	l := launcher.New().Headless(s.cfg.IsHeadless())
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}
	for _, raw := range s.cfg.Flags {
		name, val, hasVal := parseFlag(raw)
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}

// parseFlag splits "--name=value" into its parts.
func parseFlag(raw string) (name, val string, hasVal bool) {
	return strings.Cut(strings.TrimLeft(raw, "-"), "=")
}

// Close shuts the browser down.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

func (s *Source) connected(ctx context.Context) (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		if err := s.startLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.browser, nil
}

// TweetDetail loads the status page for id and returns the first TweetDetail
// response that carries the tweet's entry. It returns tweets.ErrNotCaptured
// when the capture window closes without one.
func (s *Source) TweetDetail(ctx context.Context, id string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	b, err := s.connected(ctx)
	if err != nil {
		return nil, err
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	defer func() {
		if err := incognito.Close(); err != nil {
			s.cfg.Logger.Debug("close incognito context", slog.String("id", id), slog.Any("error", err))
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.cfg.Logger.Debug("close page", slog.String("id", id), slog.Any("error", err))
		}
	}()

	capCtx, cancel := context.WithTimeout(ctx, s.cfg.CaptureTimeout)
	defer cancel()
	body, err := s.capture(page.Context(capCtx), id)
	if body != nil {
		return body, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return nil, tweets.ErrNotCaptured
}

// capture navigates p to the status page and waits for a matching response.
func (s *Source) capture(p *rod.Page, id string) ([]byte, error) {
	log := s.cfg.Logger.With(slog.String("id", id))

	if err := (proto.NetworkEnable{}).Call(p); err != nil {
		return nil, fmt.Errorf("enable network events: %w", err)
	}

	var c collector
	wait := p.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if e.Type == proto.NetworkResourceTypePreflight || e.Response == nil {
				return
			}
			c.watch(e.RequestID, e.Response.URL)
		},
		func(e *proto.NetworkLoadingFinished) bool {
			if !c.take(e.RequestID) {
				return false
			}
			res, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(p)
			if err != nil {
				log.Debug("skip TweetDetail response without body", slog.Any("error", err))
				return false
			}
			body, err := decodeBody(res.Body, res.Base64Encoded)
			if err != nil {
				log.Debug("skip undecodable TweetDetail response", slog.Any("error", err))
				return false
			}
			if !tweets.Locates(body, id) {
				log.Debug("TweetDetail response without focal entry", slog.Int("bytes", len(body)))
				return false
			}
			c.found = body
			return true
		},
	)

	if err := p.Navigate(s.cfg.StatusURL + id); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	wait()

	if c.found == nil {
		log.Debug("capture window closed", slog.Int("responses", c.seen))
		return nil, p.GetContext().Err()
	}
	return c.found, nil
}

// collector tracks in-flight TweetDetail requests for one page. Event
// callbacks run on one goroutine, so it needs no locking.
type collector struct {
	pending map[proto.NetworkRequestID]bool
	seen    int
	found   []byte
}

func (c *collector) watch(id proto.NetworkRequestID, url string) {
	if !isTweetDetail(url) {
		return
	}
	if c.pending == nil {
		c.pending = make(map[proto.NetworkRequestID]bool)
	}
	c.pending[id] = true
	c.seen++
}

func (c *collector) take(id proto.NetworkRequestID) bool {
	if !c.pending[id] {
		return false
	}
	delete(c.pending, id)
	return true
}

// isTweetDetail reports whether url is a TweetDetail GraphQL call.
func isTweetDetail(url string) bool {
	path, _, _ := strings.Cut(url, "?")
	return strings.Contains(path, "/graphql/") && strings.HasSuffix(path, "/TweetDetail")
}

func decodeBody(body string, base64Encoded bool) ([]byte, error) {
	if !base64Encoded {
		return []byte(body), nil
	}
	b, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode base64 body: %w", err)
	}
	return b, nil
}
