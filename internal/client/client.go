package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iotracing/hue-wrapper/internal/models"
)

// DefaultURL is where a locally running hue-wrapper listens
const DefaultURL = "http://localhost:3378"

const basePath = "/hue"

// ErrNotFound is returned when the service does not know the light
var ErrNotFound = errors.New("light not found")

// APIError is a non-success response from the service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hue-wrapper returned %d", e.StatusCode)
	}
	return fmt.Sprintf("hue-wrapper returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the hue-wrapper REST API
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the service at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// doRequest performs a request against the API, path is relative to /hue
func (c *Client) doRequest(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+basePath+path, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// do performs a request and decodes a JSON body into out, if given.
// Returns the response status.
func (c *Client) do(ctx context.Context, method, path string, out interface{}) (status int, err error) {
	resp, err := c.doRequest(ctx, method, path)
	if err != nil {
		return 0, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close response body")
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, errors.Wrap(err, "failed to decode response")
	}
	return resp.StatusCode, nil
}

// Platform returns the bridge info and every light
func (c *Client) Platform(ctx context.Context) (models.Platform, error) {
	var p models.Platform
	_, err := c.do(ctx, http.MethodGet, "/status", &p)
	return p, err
}

// Light returns one light
func (c *Client) Light(ctx context.Context, name string) (models.LightSnapshot, error) {
	var snap models.LightSnapshot
	_, err := c.do(ctx, http.MethodGet, "/status/"+url.PathEscape(name), &snap)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return snap, errors.Wrapf(ErrNotFound, "light '%s'", name)
	}
	return snap, err
}

// Command sends an operation to a light or to ALL. color may be empty for
// OFF. The returned message is set when nothing needed doing.
func (c *Client) Command(ctx context.Context, target, op, color string) (string, error) {
	path := "/" + url.PathEscape(target) + "/" + url.PathEscape(op)
	if color != "" {
		path += "/" + url.PathEscape(color)
	}

	var body struct {
		Message string `json:"message"`
	}
	_, err := c.do(ctx, http.MethodPut, path, &body)
	return body.Message, err
}

// Reset asks the service to rediscover the bridge
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/reset", nil)
	return err
}

// Ping checks the service can reach the bridge
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/ping", nil)
	return err
}

// eventsURL returns the websocket address of the change feed
func (c *Client) eventsURL() string {
	u := c.baseURL + basePath + "/events"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}
