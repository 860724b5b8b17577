package retailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 8 << 20
	errorBodyPreview    = 512
)

// ClientConfig holds configuration for the upstream HTTP client
type ClientConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            zerolog.Logger
}

// Client performs JSON GET requests against retailer storefront APIs.
// It never retries; a failed call is reported to the caller as is.
type Client struct {
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	maxBodyBytes int64
	logger       zerolog.Logger
}

// NewClient creates a new upstream client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter:  rate.NewLimiter(rate.Limit(rps), burst),
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       cfg.Logger.With().Str("component", "retailer-client").Logger(),
	}
}

// GetJSON fetches reqURL and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, c.maxBodyBytes)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamFailure, err)
	}

	c.logger.Debug().
		Str("host", req.URL.Host).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(body)).
		Msg("upstream response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := body
		if len(preview) > errorBodyPreview {
			preview = preview[:errorBodyPreview]
		}
		return fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamFailure, resp.StatusCode, string(preview))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
