package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/freshcart/basket/internal/auth"
)

const (
	defaultTimeout = 10 * time.Second
	maxConcurrent  = 10
	maxBodyBytes   = 1 << 20
	userAgent      = "basket/1.0"
)

// ErrMalformedResponse marks a 2xx response that could not be decoded.
var ErrMalformedResponse = auth.ErrMalformedResponse

// ErrUnauthenticated is returned by calls that need a token when none is set.
var ErrUnauthenticated = errors.New("not logged in")

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	Token() string
}

// Options overrides Client defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Tokens     TokenSource
	Logger     logrus.FieldLogger
}

// Client talks to the store's credential and catalog services.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     logrus.FieldLogger
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api: base URL is empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("api: base URL %q must be http or https", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{
		baseURL: baseURL,
		http:    hc,
		tokens:  opts.Tokens,
		log:     log.WithField("component", "api"),
	}, nil
}

// SetTokenSource sets where authenticated requests get their token.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d from %s %s: %s", e.Code, e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("HTTP %d from %s %s", e.Code, e.Method, e.Path)
}

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

// ServiceMessage returns the service's {"message"} text, if any.
func (e *StatusError) ServiceMessage() string { return e.Message }

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// errorBody is the error shape the services return.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into dst. dst may be
// nil for responses without a body.
func (c *Client) do(ctx context.Context, method, path string, body, dst interface{}, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		var token string
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return ErrUnauthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "path": path, "request_id": reqID})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			se.Message = strings.TrimSpace(eb.Message)
			if se.Message == "" {
				se.Message = strings.TrimSpace(eb.Error)
			}
		}
		return se
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}
