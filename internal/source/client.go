package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

const maxPayloadBytes = 64 << 20

// Client fetches sales records from the remote products endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
	cache      cache.Cache
	logger     *slog.Logger
	maxBytes   int64
}

// NewClient builds a client from the source config. c may be nil to disable
// payload caching.
func NewClient(cfg config.SourceConfig, c cache.Cache, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backoff:    cfg.RetryBackoff,
		cache:      c,
		logger:     logger,
		maxBytes:   maxPayloadBytes,
	}
}

// Fetch returns the normalized records for q.
func (c *Client) Fetch(ctx context.Context, q Query) ([]models.SalesRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	payload, err := c.Payload(ctx, q)
	if err != nil {
		return nil, err
	}
	return Normalize(ctx, payload)
}

// Payload returns the raw response body for q, from the cache when one is
// configured and holds it. Cache failures are logged and fall through to the
// network.
func (c *Client) Payload(ctx context.Context, q Query) ([]byte, error) {
	key := q.Key()

	if c.cache != nil {
		payload, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("payload cache read failed", "key", key, "error", err)
		} else if ok {
			c.logger.Debug("payload cache hit", "key", key)
			return payload, nil
		}
	}

	payload, err := c.fetchWithRetry(ctx, q)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, payload); err != nil {
			c.logger.Warn("payload cache write failed", "key", key, "error", err)
		}
	}
	return payload, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, q Query) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, "source.fetch")
	span.SetTag("regiao", q.Params().Get("regiao"))
	span.SetTag("ano", q.Params().Get("ano"))
	defer func() {
		span.Finish()
		c.logger.LogAttrs(ctx, slog.LevelDebug, "upstream fetch", span.Attrs()...)
	}()

	payload, err := c.get(ctx, q)
	if err != nil && retryable(err) && ctx.Err() == nil {
		c.logger.WarnContext(ctx, "upstream fetch failed, retrying once", "error", err, "backoff", c.backoff)
		span.SetTag("retried", "true")

		select {
		case <-ctx.Done():
			span.SetError(ctx.Err())
			return nil, errors.UpstreamWrap(ctx.Err(), "request cancelled while waiting to retry")
		case <-time.After(c.backoff):
		}
		payload, err = c.get(ctx, q)
	}
	if err != nil {
		span.SetError(err)
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, err
		}
		return nil, errors.UpstreamWrap(err, "data source unavailable")
	}

	span.SetTag("bytes", strconv.Itoa(len(payload)))
	return payload, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable reports whether a failed attempt is worth repeating: transport
// errors and timeouts, 5xx and 429 are; other statuses and rejected payloads
// are not.
func retryable(err error) bool {
	var se *statusError
	if stderrors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	var appErr *errors.AppError
	return !stderrors.As(err, &appErr)
}

func (c *Client) get(ctx context.Context, q Query) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Params().Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, errors.MalformedData(fmt.Sprintf("source payload too large: exceeds %d bytes", c.maxBytes))
	}
	return body, nil
}
