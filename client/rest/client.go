// Package rest is the HTTP client for the backend API. It carries the
// retry behavior the browser layer had: idempotent redial on transport
// errors and 5xx responses, with a linearly growing delay between attempts.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/vibesocial/backend/domain"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
)

// Config tunes the client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Logger        *zap.Logger
}

// Client talks to the backend REST API.
type Client struct {
	baseURL       string
	http          *fasthttp.Client
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
}

// New builds a client for the given base URL, e.g. "http://localhost:8000".
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		http:          &fasthttp.Client{},
		timeout:       cfg.Timeout,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		logger:        logger,
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// do runs one request with retries and decodes the envelope's data field
// into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	var (
		status int
		resp   []byte
		err    error
	)
	for attempt := 1; ; attempt++ {
		status, resp, err = c.roundTrip(method, path, token, payload)
		if err == nil && status < http.StatusInternalServerError {
			break
		}
		if attempt >= c.retryAttempts {
			break
		}
		c.logger.Debug("retrying request",
			zap.String("path", path),
			zap.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
	}
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "request failed", err)
	}

	var env envelope
	if len(resp) > 0 {
		if err := json.Unmarshal(resp, &env); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "malformed response", err)
		}
	}

	if status >= http.StatusBadRequest {
		return statusError(status, env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "malformed response data", err)
		}
	}
	return nil
}

func (c *Client) roundTrip(method, path, token string, payload []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(res)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if len(payload) > 0 {
		req.SetBody(payload)
	}

	if err := c.http.DoTimeout(req, res, c.timeout); err != nil {
		return 0, nil, err
	}

	body := make([]byte, len(res.Body()))
	copy(body, res.Body())
	return res.StatusCode(), body, nil
}

func statusError(status int, env envelope) error {
	message := "request rejected"
	if len(env.Error) > 0 {
		var s string
		if json.Unmarshal(env.Error, &s) == nil && s != "" {
			message = s
		} else {
			message = string(env.Error)
		}
	}
	switch status {
	case http.StatusUnauthorized:
		return domain.NewError(domain.ErrCodeUnauthorized, message)
	case http.StatusForbidden:
		return domain.NewError(domain.ErrCodeForbidden, message)
	case http.StatusNotFound:
		return domain.NewError(domain.ErrCodeNotFound, message)
	case http.StatusConflict:
		return domain.NewError(domain.ErrCodeConflict, message)
	case http.StatusBadRequest:
		return domain.NewError(domain.ErrCodeInvalid, message)
	default:
		return domain.NewError(domain.ErrCodeInternal, fmt.Sprintf("server error (%d): %s", status, message))
	}
}
