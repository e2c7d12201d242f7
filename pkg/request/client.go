package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"wikifetch/pkg/cache"
	"wikifetch/pkg/logging"
	"wikifetch/pkg/tracker"
	"wikifetch/pkg/version"
)

var (
	// ErrMaxRetries is returned when every attempt hit a retryable failure.
	ErrMaxRetries = errors.New("max retries exceeded")

	defaultUserAgent = fmt.Sprintf("wikifetch/%s (https://github.com/wikifetch/wikifetch; Wikidata report tool)", version.Version)
)

// StatusError reports an HTTP error status. RetryAfter is set when the
// server sent a Retry-After header with a 429 or 5xx answer.
type StatusError struct {
	StatusCode int
	URL        string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.StatusCode)
}

// Options tune the client. Zero values fall back to defaults.
type Options struct {
	Retries   int
	BaseDelay time.Duration
	Timeout   time.Duration
	UserAgent string
	// Gap is the pause between two requests to the same provider.
	Gap     time.Duration
	Backoff *ProviderBackoff
}

func (o Options) withDefaults() Options {
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Gap < 0 {
		o.Gap = 0
	} else if o.Gap == 0 {
		o.Gap = 100 * time.Millisecond
	}
	if o.Backoff == nil {
		o.Backoff = NewProviderBackoff(o.BaseDelay, 30*time.Second)
	}
	return o
}

// Client handles HTTP requests with queuing, caching, and tracking.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	caching    bool
	tracker    *tracker.Tracker
	opts       Options

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex
}

type job struct {
	req      *http.Request
	headers  map[string]string
	cacheKey string
	validate Validator
	respChan chan jobResult
}

// Validator inspects a successful response body. A non-nil error keeps the
// body out of the cache.
type Validator func(body []byte) error

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client with default options.
func New(c cache.Cacher, t *tracker.Tracker) *Client {
	return NewWithOptions(c, t, Options{})
}

// NewWithOptions creates a new Client.
func NewWithOptions(c cache.Cacher, t *tracker.Tracker, opts Options) *Client {
	opts = opts.withDefaults()
	if c == nil {
		c = cache.Nop{}
	}
	_, disabled := c.(cache.Nop)
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      c,
		caching:    !disabled,
		tracker:    t,
		opts:       opts,
		queues:     make(map[string]chan job),
	}
}

// Get performs a GET request with queuing and caching if key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil, cacheKey)
}

// GetValidated is Get with a body check. Bodies rejected by validate are
// returned to the caller but never cached, and cached bodies it rejects
// are fetched again.
func (c *Client) GetValidated(ctx context.Context, u, cacheKey string, validate Validator) ([]byte, error) {
	return c.do(ctx, u, nil, cacheKey, validate)
}

// GetWithHeaders performs a GET request with custom headers and optional caching.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error) {
	return c.do(ctx, u, headers, cacheKey, nil)
}

func (c *Client) do(ctx context.Context, u string, headers map[string]string, cacheKey string, validate Validator) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	// 1. Check Cache (only if a cache is configured and a key is provided)
	if !c.caching {
		cacheKey = ""
	}
	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit && (validate == nil || validate(val) == nil) {
			c.tracker.TrackCacheHit(provider)
			slog.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		slog.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	// 2. Enqueue Request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	c.dispatch(provider, job{req: req, headers: headers, cacheKey: cacheKey, validate: validate, respChan: respChan})

	// 3. Wait for Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

// TrackZero records a successful call that produced no usable result.
func (c *Client) TrackZero(u string) {
	if parsed, err := url.Parse(u); err == nil {
		c.tracker.TrackAPIZero(normalizeProvider(parsed.Host))
	}
}

func normalizeProvider(host string) string {
	// All wikidata subdomains share one queue so requests stay serialized
	if strings.HasSuffix(host, ".wikidata.org") || host == "wikidata.org" {
		return "wikidata"
	}
	if strings.HasSuffix(host, ".wikipedia.org") || host == "wikipedia.org" {
		return "wikipedia"
	}
	if strings.HasSuffix(host, ".wikimedia.org") || host == "wikimedia.org" {
		return "wikimedia"
	}
	return host
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) {
	c.mu.Lock()
	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}
	c.mu.Unlock()

	// Blocks when the queue is full, throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		ctx := j.req.Context()
		if ctx.Err() != nil {
			slog.Warn("Job dropped from queue (context expired)", "provider", provider, "error", ctx.Err())
			j.respChan <- jobResult{err: ctx.Err()}
			continue
		}

		if err := c.opts.Backoff.Wait(ctx, provider); err != nil {
			j.respChan <- jobResult{err: err}
			continue
		}

		uaSet := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaSet = true
			}
		}
		if !uaSet {
			j.req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		start := time.Now()
		body, err := c.executeWithBackoff(j.req)
		logging.RequestLogger.Info("Network Request",
			"provider", provider,
			"url", j.req.URL.String(),
			"duration", time.Since(start),
			"bytes", len(body),
			"error", err,
		)

		var rejected error
		if err == nil && j.validate != nil {
			rejected = j.validate(body)
		}

		switch {
		case rejected != nil:
			c.tracker.TrackAPIFailure(provider)
			slog.Debug("Response rejected, not cached", "url", j.req.URL, "error", rejected)
		case err == nil:
			c.tracker.TrackAPISuccess(provider)
			c.opts.Backoff.RecordSuccess(provider)
			if j.cacheKey != "" {
				if err := c.cache.SetCache(context.Background(), j.cacheKey, body); err != nil {
					slog.Error("Failed to cache response", "url", j.req.URL, "error", err)
				}
			}
		default:
			c.tracker.TrackAPIFailure(provider)
			if errors.Is(err, ErrMaxRetries) {
				var retryAfter time.Duration
				var se *StatusError
				if errors.As(err, &se) {
					retryAfter = se.RetryAfter
				}
				c.opts.Backoff.RecordFailure(provider, retryAfter)
			}
		}

		j.respChan <- jobResult{body: body, err: err}

		// Safety gap to stay under rate limits
		time.Sleep(c.opts.Gap)
	}
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(req *http.Request) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.Retries; attempt++ {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		logging.Trace(slog.Default(), "Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)

		if err != nil {
			// Cancellation from our side is not retried
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			slog.Warn("Request failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
			lastErr = err
			if err := c.sleep(req.Context(), attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)
			lastErr = &StatusError{
				StatusCode: resp.StatusCode,
				URL:        req.URL.String(),
				RetryAfter: parseRetryAfter(resp.Header),
			}
			if err := c.sleep(req.Context(), attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	if attempt+1 >= c.opts.Retries {
		return nil
	}
	d := time.Duration(math.Pow(2, float64(attempt))) * c.opts.BaseDelay
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
