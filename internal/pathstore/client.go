package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/dotdoc/internal/doctree"
	"golang.org/x/time/rate"
)

// TokenHeader carries the token on writes.
const TokenHeader = "X-Token"

// Config is the immutable connection configuration of a Client.
type Config struct {
	BaseURL string
	Token   string

	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	// MaxRetries is how many times a 429 or 5xx response is retried.
	MaxRetries int
	// RetryBackoff is the first retry delay, doubled per attempt. Zero means 1s.
	RetryBackoff time.Duration
}

// Client communicates with the remote document store.
//
//	GET    {base}/{token}[?key=a.b]   read the document or one value
//	PUT    {base}                     merge a nested object, token in X-Token
//	DELETE {base}?token=..&key=..     delete one key
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if c.cfg.RetryBackoff <= 0 {
		c.cfg.RetryBackoff = time.Second
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pathstore: status %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Fetch returns the whole document when key is empty, otherwise the value
// at key.
func (c *Client) Fetch(ctx context.Context, key string) (doctree.Value, error) {
	u := c.cfg.BaseURL + "/" + url.PathEscape(c.cfg.Token)
	if key != "" {
		u += "?" + url.Values{"key": {key}}.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return doctree.Value{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return doctree.Value{}, fmt.Errorf("get document: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return doctree.Value{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return doctree.Value{}, fmt.Errorf("read document: %w", err)
	}
	v, err := doctree.Parse(body)
	if err != nil {
		return doctree.Value{}, fmt.Errorf("decode document: %w", err)
	}
	return v, nil
}

// FetchDocument returns the whole remote document.
func (c *Client) FetchDocument(ctx context.Context) (*doctree.Document, error) {
	root, err := c.Fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return doctree.FromValue(root)
}

// Write sends {"a":{"b":{"c":v}}} for path a.b.c.
func (c *Client) Write(ctx context.Context, p doctree.Path, v doctree.Value) error {
	body, err := json.Marshal(p.Nest(v))
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(TokenHeader, c.cfg.Token)

	resp, err := c.do(httpReq)
	if err != nil {
		return fmt.Errorf("put %s: %w", p, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// DeleteKey removes key from the remote document.
func (c *Client) DeleteKey(ctx context.Context, key string) error {
	u := c.cfg.BaseURL + "?" + url.Values{"token": {c.cfg.Token}, "key": {key}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Lookup returns the value at p; a 404 means absent.
func (c *Client) Lookup(ctx context.Context, p doctree.Path) (doctree.Value, bool, error) {
	v, err := c.Fetch(ctx, p.String())
	if IsNotFound(err) {
		return doctree.Value{}, false, nil
	}
	if err != nil {
		return doctree.Value{}, false, err
	}
	return v, true, nil
}

func (c *Client) Put(ctx context.Context, p doctree.Path, v doctree.Value) error {
	return c.Write(ctx, p, v)
}

// Remove deletes p; a 404 means there was nothing to delete.
func (c *Client) Remove(ctx context.Context, p doctree.Path) (bool, error) {
	err := c.DeleteKey(ctx, p.String())
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		resp, err := c.httpClient.Do(req)
		if err != nil || attempt >= c.cfg.MaxRetries || !retryable(resp.StatusCode) {
			return resp, err
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(c.cfg.RetryBackoff, attempt)):
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(ctx)
			req.Body = body
		}
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var body struct {
		Error string `json:"error"`
	}
	msg := "Unknown error"
	if json.Unmarshal(respBody, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
