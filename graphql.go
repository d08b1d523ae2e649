package tweets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

const maxRetries = 3

// GraphQLConfig configures a GraphQLSource.
type GraphQLConfig struct {
	// Proxy is an optional proxy URL for all upstream calls.
	Proxy string `yaml:"proxy"`

	// UserAgent overrides the browser User-Agent. Client hints follow it.
	UserAgent string `yaml:"user_agent"`

	// RateLimit bounds TweetDetail calls per guest token.
	// Default: ratelimit.DefaultConfig.
	RateLimit ratelimit.Config `yaml:"-"`

	// MetricsHook is called after every TweetDetail call.
	MetricsHook func(endpoint string, success, rateLimited bool) `yaml:"-"`

	// Logger receives request diagnostics. Default: slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

func (cfg *GraphQLConfig) defaults() {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RateLimit.RequestsPerWindow == 0 {
		cfg.RateLimit = ratelimit.DefaultConfig
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// GraphQLSource fetches TweetDetail payloads straight from the GraphQL API
// with a guest token, without a browser. The body it returns has the same
// shape the browser captures.
type GraphQLSource struct {
	client  *stealth.BrowserClient
	limiter *ratelimit.Limiter
	cfg     GraphQLConfig

	mu         sync.Mutex
	guestToken string
}

// NewGraphQLSource creates a GraphQLSource. The guest token is acquired lazily.
func NewGraphQLSource(cfg GraphQLConfig) (*GraphQLSource, error) {
	cfg.defaults()

	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(headerOrder),
	}
	if cfg.Proxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.Proxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}
	if cfg.Proxy != "" {
		cfg.Logger.Info("graphql source using proxy", slog.String("proxy", stealth.MaskProxy(cfg.Proxy)))
	}
	return &GraphQLSource{
		client:  bc,
		limiter: ratelimit.NewLimiter(cfg.RateLimit),
		cfg:     cfg,
	}, nil
}

// TweetDetail implements Source.
func (s *GraphQLSource) TweetDetail(ctx context.Context, id string) ([]byte, error) {
	endpoint := TweetDetail.Name
	if !s.limiter.Allow(endpoint) {
		return nil, fmt.Errorf("%s rate-limited until %s", endpoint, s.limiter.AvailableAt(endpoint).Format(time.RFC3339))
	}
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, err
	}

	url := addGraphQLParams(TweetDetail.URL(), tweetDetailVariables(id), TweetDetail.Features, tweetDetailFieldToggles())

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			delay := stealth.DefaultBackoff.Duration(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retry, err := s.attempt(ctx, endpoint, url)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		s.cfg.Logger.Debug("tweet detail attempt failed",
			slog.String("id", id),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", endpoint, maxRetries, lastErr)
}

// attempt performs one guest request. retry reports whether another attempt
// may succeed.
func (s *GraphQLSource) attempt(ctx context.Context, endpoint, url string) (body []byte, retry bool, err error) {
	gt, err := s.token(ctx)
	if err != nil {
		return nil, false, err
	}

	body, respHdrs, status, err := s.client.DoWithHeaderOrder("GET", url, guestHeaders(gt, s.cfg.UserAgent), nil, headerOrder)
	if err != nil {
		s.record(endpoint, false, false)
		return nil, true, err
	}

	switch {
	case status == http.StatusTooManyRequests:
		s.record(endpoint, false, true)
		until := parseRateLimitReset(respHdrs["x-rate-limit-reset"])
		s.limiter.MarkRateLimited(endpoint, until)
		s.setGuestToken("")
		return nil, false, fmt.Errorf("guest token rate-limited for %s until %s", endpoint, until.Format(time.RFC3339))

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		s.record(endpoint, false, false)
		s.cfg.Logger.Warn("guest token rejected, reacquiring", slog.String("endpoint", endpoint), slog.Int("status", status))
		s.setGuestToken("")
		return nil, true, fmt.Errorf("%s HTTP %d: %s", endpoint, status, truncateBytes(body, 200))

	case status == http.StatusNotFound:
		s.record(endpoint, false, false)
		return nil, false, fmt.Errorf("%w: %s HTTP 404", ErrNotCaptured, endpoint)

	case status != http.StatusOK:
		s.record(endpoint, false, false)
		s.cfg.Logger.Warn("tweet detail non-200", slog.String("endpoint", endpoint), slog.Int("status", status), slog.String("body", truncateBytes(body, 500)))
		return nil, status >= 500, fmt.Errorf("%s HTTP %d: %s", endpoint, status, truncateBytes(body, 200))
	}

	// Errors next to usable data are left to the assembler: a missing focal
	// tweet still decodes and is reported as not found there.
	class, msg := classifyAPIError(body)
	switch class {
	case apiErrNone:
		s.record(endpoint, true, false)
		return body, false, nil
	case apiErrRateLimited:
		s.record(endpoint, false, true)
		s.limiter.MarkRateLimited(endpoint, parseRateLimitReset(respHdrs["x-rate-limit-reset"]))
		s.setGuestToken("")
		return nil, false, fmt.Errorf("%s rate limited: %s", endpoint, msg)
	}
	if hasResponseData(body) {
		s.record(endpoint, true, false)
		s.cfg.Logger.Debug("upstream error with usable data", slog.String("endpoint", endpoint), slog.String("message", msg))
		return body, false, nil
	}
	s.record(endpoint, false, false)
	switch class {
	case apiErrNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrNotCaptured, msg)
	case apiErrInternal:
		return nil, true, fmt.Errorf("%s internal error (131): %s", endpoint, msg)
	case apiErrForbidden:
		return nil, false, fmt.Errorf("%s forbidden: %s", endpoint, msg)
	}
	return nil, false, fmt.Errorf("%s error: %s", endpoint, msg)
}

func (s *GraphQLSource) record(endpoint string, success, rateLimited bool) {
	if s.cfg.MetricsHook != nil {
		s.cfg.MetricsHook(endpoint, success, rateLimited)
	}
}

// token returns the cached guest token, acquiring one when none is held.
func (s *GraphQLSource) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	gt := s.guestToken
	s.mu.Unlock()
	if gt != "" {
		return gt, nil
	}

	gt, err := s.acquireGuestToken(ctx)
	if err != nil {
		return "", err
	}
	s.setGuestToken(gt)
	s.cfg.Logger.Info("guest token acquired")
	return gt, nil
}

func (s *GraphQLSource) setGuestToken(token string) {
	s.mu.Lock()
	s.guestToken = token
	s.mu.Unlock()
}

// getGuestToken activates a fresh guest token.
func (s *GraphQLSource) getGuestToken() (string, error) {
	body, _, status, err := s.client.DoWithHeaderOrder("POST", twitterAPIURL+"/1.1/guest/activate.json", activateHeaders(s.cfg.UserAgent), nil, headerOrder)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	return parseGuestToken(body)
}

func parseGuestToken(body []byte) (string, error) {
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode guest token: %w", err)
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// acquireGuestToken fetches a fresh guest token with exponential backoff.
func (s *GraphQLSource) acquireGuestToken(ctx context.Context) (string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: 2 * time.Second,
		MaxWait:     60 * time.Second,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff.Duration(attempt)):
			}
		}
		token, err := s.getGuestToken()
		if err == nil {
			return token, nil
		}
		lastErr = err
		s.cfg.Logger.Warn("guest token acquisition failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("acquire guest token after 3 attempts: %w", lastErr)
}
