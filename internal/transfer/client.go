// Package transfer performs single outbound requests against the reporting
// service and classifies their outcome, so callers never inspect protocol
// details directly.
package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a whole request, including reading the response body.
const DefaultTimeout = 30 * time.Second

// Options configures a Client. The zero value is usable.
type Options struct {
	// Timeout applies when HTTPClient is nil. Zero means DefaultTimeout;
	// a negative value disables the timeout.
	Timeout time.Duration
	// HTTPClient overrides the underlying client entirely.
	HTTPClient *http.Client
	// Limiter throttles outbound requests when set. It is shared by all
	// concurrent callers of the client.
	Limiter   *rate.Limiter
	Logger    *slog.Logger
	UserAgent string
}

// Request describes one outbound call. Body is optional; when it implements
// io.Closer it is closed once the request has been sent or abandoned.
type Request struct {
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
	Accept      string
}

// Client sends requests to a fixed service base address. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	limiter   *rate.Limiter
	logger    *slog.Logger
	userAgent string
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, opts ...Options) *Client {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		switch {
		case timeout == 0:
			timeout = DefaultTimeout
		case timeout < 0:
			timeout = 0
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ua := o.UserAgent
	if ua == "" {
		ua = "sales-dashboard-gateway"
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: hc,
		limiter:    o.Limiter,
		logger:     logger,
		userAgent:  ua,
	}
}

// Send performs req and returns its classified response. It never returns
// nil: transport failures yield a Response with StatusNetworkError whose
// Failure carries the underlying cause. The caller must Close the response.
func (c *Client) Send(ctx context.Context, req Request) *Response {
	requestID := uuid.NewString()
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	log := c.logger.With("request_id", requestID, "method", method, "path", req.Path)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			closeBody(req.Body)
			log.Warn("transfer throttled", "error", err)
			return networkFailure(fmt.Errorf("wait for rate limiter: %w", err))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+req.Path, req.Body)
	if err != nil {
		closeBody(req.Body)
		return networkFailure(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("User-Agent", c.userAgent)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		log.Warn("transfer failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return networkFailure(err)
	}

	out := NewResponse(resp.StatusCode, resp.Header, resp.Body)
	log.Debug("transfer completed",
		"status", resp.StatusCode,
		"classification", out.Status.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func closeBody(body io.Reader) {
	if c, ok := body.(io.Closer); ok {
		_ = c.Close()
	}
}
