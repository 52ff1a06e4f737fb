package printjobs

import (
	"bytes"
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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adcondev/ticket-bridge/internal/receipt"
)

// DefaultTimeout bounds each backend request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is kept in APIError.
const maxErrorBody = 4 << 10

// ErrNoBaseURL is returned by New when the backend is not configured.
var ErrNoBaseURL = errors.New("printjobs: base URL not configured")

// APIError is a non-2xx backend response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Temporary reports whether the request may succeed if retried.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Client talks to the backend /print-jobs endpoints.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l.Named("printjobs") }
}

// New builds a client for baseURL, authenticating with apiKey when set.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("printjobs: parse base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns jobs matching f.
func (c *Client) List(ctx context.Context, f Filter) ([]Job, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.OrderID != "" {
		q.Set("orderId", f.OrderID)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var jobs []Job
	if err := c.do(ctx, http.MethodGet, "/print-jobs", q, nil, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Stats returns the per-status job counts.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.do(ctx, http.MethodGet, "/print-jobs/stats", nil, nil, nil, &s)
	return s, err
}

// Retry re-queues a failed job.
func (c *Client) Retry(ctx context.Context, id string) (Job, error) {
	var j Job
	err := c.do(ctx, http.MethodPost, "/print-jobs/"+url.PathEscape(id)+"/retry", nil, nil, nil, &j)
	return j, err
}

// Cancel cancels a pending job.
func (c *Client) Cancel(ctx context.Context, id string) (Job, error) {
	var j Job
	err := c.do(ctx, http.MethodPost, "/print-jobs/"+url.PathEscape(id)+"/cancel", nil, nil, nil, &j)
	return j, err
}

type createForOrderRequest struct {
	Order *receipt.Order `json:"order"`
}

// CreateForOrder asks the backend to create print jobs for order on its
// configured printers. Each call carries a fresh Idempotency-Key.
func (c *Client) CreateForOrder(ctx context.Context, order *receipt.Order) ([]Job, error) {
	if order == nil {
		return nil, errors.New("printjobs: nil order")
	}
	hdr := http.Header{}
	hdr.Set("Idempotency-Key", uuid.NewString())

	var jobs []Job
	err := c.do(ctx, http.MethodPost, "/print-jobs/create-for-order", nil, hdr,
		createForOrderRequest{Order: order}, &jobs)
	if err != nil {
		return nil, err
	}
	c.log.Info("backend jobs created",
		zap.String("order", order.Reference), zap.Int("jobs", len(jobs)))
	return jobs, nil
}

// envelope is the backend response wrapper. Bare payloads are accepted too.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, hdr http.Header, in, out any) error {
	u := *c.baseURL
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("printjobs: bad path %q: %w", path, err)
	}
	u.Path = unescaped
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("printjobs: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("printjobs: build request: %w", err)
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("printjobs: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("printjobs: read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("printjobs: decode %s: %w", path, err)
	}
	return nil
}
