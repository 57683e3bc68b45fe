package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/hubfeed/internal/logger"
	"github.com/MrSnakeDoc/hubfeed/internal/metrics"
	"github.com/MrSnakeDoc/hubfeed/internal/utils"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 2 * time.Second
	maxBodyBytes        = 4 << 20
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("api: not found")
	// ErrUnavailable is returned for 429 and 5xx responses once retries are exhausted.
	ErrUnavailable = errors.New("api: unavailable")
	// ErrRejected is returned when the API answers 2xx with success=false.
	ErrRejected = errors.New("api: request rejected")
)

// StatusError is a non-2xx answer from the remote API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case shouldRetry(e.Status):
		return ErrUnavailable
	default:
		return nil
	}
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // per attempt
	RateLimit  float64       // requests per second, 0 disables limiting
	Burst      int
	MaxRetries int
	UserAgent  string

	// Optional
	HTTPClient   *http.Client
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Metrics      *metrics.Metrics
}

// Client is the Remote API Client. It is safe for concurrent use.
type Client struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	logger       logger.Logger
	metrics      *metrics.Metrics
}

// New creates a new API client.
func New(opts Options, log logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = defaultInitialDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		userAgent:    opts.UserAgent,
		httpClient:   httpClient,
		limiter:      limiter,
		maxRetries:   opts.MaxRetries,
		initialDelay: opts.InitialDelay,
		maxDelay:     opts.MaxDelay,
		logger:       log,
		metrics:      opts.Metrics,
	}
}

// Ping checks the API is reachable. Any HTTP answer counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	utils.Close(resp.Body)
	return nil
}

// call describes one logical API request.
type call struct {
	endpoint string // metrics label
	method   string
	path     string
	query    url.Values
	header   http.Header
	token    string
}

// envelope is the common wrapper of every API answer.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// do performs the call with rate limiting and retries, then decodes the
// JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, cl call, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.ObserveAPI(cl.endpoint, outcome, time.Since(start))
	}()

	fullURL := c.baseURL + cl.path
	if len(cl.query) > 0 {
		fullURL += "?" + cl.query.Encode()
	}

	delay := c.initialDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return fmt.Errorf("%s %s: %w (last error: %v)", cl.method, cl.path, err, lastErr)
			}
			delay = minDuration(delay*2, c.maxDelay)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		body, status, retryAfter, err := c.roundTrip(ctx, fullURL, cl)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%s %s: %w", cl.method, cl.path, ctx.Err())
			}
			lastErr = err
			c.logger.Debug("api request failed, retrying",
				logger.String("endpoint", cl.endpoint),
				logger.Int("attempt", attempt+1),
				logger.Error(err))
			continue
		}

		if status < 200 || status > 299 {
			serr := &StatusError{Status: status, Message: messageOf(body)}
			if shouldRetry(status) && attempt < c.maxRetries {
				lastErr = serr
				if retryAfter > 0 {
					delay = minDuration(retryAfter, c.maxDelay)
				}
				c.logger.Debug("api answered with retryable status",
					logger.String("endpoint", cl.endpoint),
					logger.Int("status", status),
					logger.Int("attempt", attempt+1))
				continue
			}
			return fmt.Errorf("%s %s: %w", cl.method, cl.path, serr)
		}

		return decode(body, out)
	}

	return fmt.Errorf("%s %s failed after %d attempts: %w", cl.method, cl.path, c.maxRetries+1, lastErr)
}

func (c *Client) roundTrip(ctx context.Context, fullURL string, cl call) ([]byte, int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, cl.method, fullURL, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func decode(body []byte, out interface{}) error {
	if len(body) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func messageOf(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// shouldRetry determines if an HTTP status code warrants a retry
func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// parseRetryAfter understands the delay-seconds form only.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
