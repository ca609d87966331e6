// Package supervisor talks to the remote process supervisor's HTTP API.
package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/metrics"
	"github.com/tOgg1/anyrun/internal/models"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:5173/api.
	BaseURL string

	// Timeout bounds each request. Default: 15s
	Timeout time.Duration

	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64

	// RateBurst is the limiter burst. Default: 1 when RateLimit is set.
	RateBurst int

	// UserAgent is sent with every request.
	UserAgent string

	// Tokens provides the session token. May be nil before login.
	Tokens TokenSource

	// Metrics records request outcomes. May be nil.
	Metrics *metrics.Metrics
}

// Client is the HTTP client for the supervisor API. Writes are never retried.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu            sync.RWMutex
	tokens        TokenSource
	authListeners []func(error)
}

// New creates a supervisor client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "anyctl"
	}

	r := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		resty:   r,
		limiter: limiter,
		metrics: opts.Metrics,
		tokens:  opts.Tokens,
		logger:  logging.Component("supervisor"),
	}
}

// SetTokenSource replaces the token source.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// OnAuthFailure registers fn to run whenever an authenticated call is rejected.
func (c *Client) OnAuthFailure(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authListeners = append(c.authListeners, fn)
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.resty.BaseURL
}

// call describes one API request.
type call struct {
	op     string
	app    string
	method string
	path   string
	query  map[string]string
	body   any
	out    any

	// public calls skip the bearer token and auth-failure listeners.
	public bool

	// ownsAuthErrors keeps a 401 from ending the session; the caller
	// gives it its own meaning.
	ownsAuthErrors bool
}

// do executes a call and maps the outcome onto the error taxonomy.
func (c *Client) do(ctx context.Context, cl call) error {
	start := time.Now()
	err := c.execute(ctx, cl)
	c.metrics.ObserveRequest(cl.op, err, time.Since(start))

	if err != nil && !cl.public && !cl.ownsAuthErrors && models.IsAuthFailure(err) {
		c.notifyAuthFailure(err)
	}
	return err
}

func (c *Client) execute(ctx context.Context, cl call) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &models.Error{Kind: models.KindNetworkFailure, Op: cl.op, App: cl.app, Err: fmt.Errorf("rate limit: %w", err)}
	}

	req := c.resty.R().SetContext(ctx)
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}
	if !cl.public {
		if token := c.token(); token != "" {
			req.SetAuthToken(token)
		}
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Debug().Err(err).Str("op", cl.op).Str("url", logging.RedactURL(c.resty.BaseURL+cl.path)).Msg("supervisor request failed")
		return &models.Error{Kind: models.KindNetworkFailure, Op: cl.op, App: cl.app, Err: err}
	}

	c.logger.Debug().
		Str("op", cl.op).
		Str("method", cl.method).
		Str("url", logging.RedactURL(resp.Request.URL)).
		Int("status", resp.StatusCode()).
		Dur("elapsed", resp.Time()).
		Msg("supervisor request")

	if resp.IsError() || resp.StatusCode() >= 300 {
		return classifyResponse(cl.op, cl.app, resp.StatusCode(), resp.Body())
	}

	if cl.out != nil {
		body := resp.Body()
		if len(strings.TrimSpace(string(body))) == 0 {
			return &models.Error{Kind: models.KindNetworkFailure, Op: cl.op, App: cl.app, Message: "empty response body"}
		}
		if err := json.Unmarshal(body, cl.out); err != nil {
			return &models.Error{Kind: models.KindNetworkFailure, Op: cl.op, App: cl.app, Message: "malformed response", Err: err}
		}
	}
	return nil
}

func (c *Client) token() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts.Token()
}

func (c *Client) notifyAuthFailure(err error) {
	c.mu.RLock()
	listeners := append([]func(error){}, c.authListeners...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(err)
	}
}

// classifyResponse maps a non-2xx reply onto an error kind. The supervisor
// answers errors with a plain-text body, which becomes the message.
func classifyResponse(op, app string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	kind := models.KindNetworkFailure
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = models.KindAuthFailure
	case status == http.StatusNotFound:
		kind = models.KindNotFound
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		kind = models.KindConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = models.KindValidationFailure
	}

	return &models.Error{
		Kind:    kind,
		Op:      op,
		App:     app,
		Message: msg,
		Err:     &StatusError{Code: status, Body: msg},
	}
}

// StatusError carries the raw HTTP status of a rejected call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("supervisor returned %d: %s", e.Code, e.Body)
}

// HTTPStatus extracts the HTTP status code from err, or 0.
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
