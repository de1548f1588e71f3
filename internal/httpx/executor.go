// Package httpx is the shared resilience layer for all provider
// adapters: a per-gateway fixed-window rate limiter in front of a
// retrying HTTP executor with exponential backoff.
package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vendalivre/payhub/internal/payerr"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultRateLimit  = 60
	DefaultRateWindow = 60 * time.Second
)

// Request is a prepared outbound provider call. Body is buffered so a
// retried attempt can resend it.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

type Response struct {
	StatusCode int
	Body       []byte
}

type Executor struct {
	client    *http.Client
	limiter   *RateLimiter
	retries   int
	baseDelay time.Duration

	// sleep waits for the backoff duration or until ctx is done. A
	// test seam; the default never blocks past cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Executor)

func WithClient(c *http.Client) Option     { return func(e *Executor) { e.client = c } }
func WithRetries(n int) Option             { return func(e *Executor) { e.retries = n } }
func WithBaseDelay(d time.Duration) Option { return func(e *Executor) { e.baseDelay = d } }
func WithSleep(f func(context.Context, time.Duration) error) Option {
	return func(e *Executor) { e.sleep = f }
}

func NewExecutor(limiter *RateLimiter, opts ...Option) *Executor {
	e := &Executor{
		client:    &http.Client{Timeout: DefaultTimeout},
		limiter:   limiter,
		retries:   DefaultRetries,
		baseDelay: DefaultBaseDelay,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do executes req against the provider identified by gatewayKey. With
// allowRetry, transient failures (connection errors, timeouts, 5xx)
// are reattempted up to the retry budget with delay*2^attempt backoff.
// Non-retryable responses return after the first attempt. When the
// rate cap is hit the call fails locally without touching the network.
func (e *Executor) Do(ctx context.Context, gatewayKey string, req *Request, allowRetry bool) (*Response, error) {
	attempts := 1
	if allowRetry && e.retries > 1 {
		attempts = e.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := e.baseDelay * (1 << (attempt - 1))
			if err := e.sleep(ctx, delay); err != nil {
				return nil, payerr.Wrap(payerr.KindTransient, err, "%s: retry cancelled", gatewayKey)
			}
		}

		if !e.limiter.Allow(gatewayKey) {
			return nil, payerr.New(payerr.KindRateLimited, "%s: rate limit exceeded", gatewayKey)
		}

		resp, err := e.attempt(ctx, req)
		if err != nil {
			lastErr = payerr.Wrap(payerr.KindTransient, err, "%s: request failed", gatewayKey)
			log.Warn().Err(err).Str("gateway", gatewayKey).Int("attempt", attempt+1).Msg("provider call failed")
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &payerr.Error{
				Kind:    payerr.KindTransient,
				Message: gatewayKey + ": provider returned " + http.StatusText(resp.StatusCode),
				Raw:     resp.Body,
			}
			log.Warn().Int("status", resp.StatusCode).Str("gateway", gatewayKey).Int("attempt", attempt+1).Msg("provider 5xx")
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func (e *Executor) attempt(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
