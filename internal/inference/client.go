package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 2 * time.Minute
	maxResponseSize = 64 * 1024 * 1024
	maxErrorBody    = 4 * 1024
)

type Config struct {
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	// MaxResponseBytes caps a successful response body. Larger bodies are
	// an error, never truncated.
	MaxResponseBytes int64
}

// Client issues single bearer-authenticated POST requests to inference
// endpoints. It never retries.
type Client struct {
	token    string
	http     *http.Client
	maxBytes int64
}

type Response struct {
	Body        []byte
	ContentType string
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = maxResponseSize
	}
	return &Client{
		token:    strings.TrimSpace(cfg.Token),
		http:     httpClient,
		maxBytes: maxBytes,
	}
}

func (c *Client) HasToken() bool {
	return c.token != ""
}

func (c *Client) PostJSON(ctx context.Context, op, endpoint string, payload any) (*Response, error) {
	if err := c.checkConfigured(op, endpoint); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, InvalidInput(op, fmt.Sprintf("encode request: %v", err))
	}
	return c.Post(ctx, op, endpoint, "application/json", body)
}

// Post sends body as-is with the given content type. Credentials and
// endpoint are checked before anything touches the network.
func (c *Client) Post(ctx context.Context, op, endpoint, contentType string, body []byte) (*Response, error) {
	if err := c.checkConfigured(op, endpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newError(op, ErrNetwork, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(op, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Op:         op,
			Kind:       ErrEndpointUnavailable,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, newError(op, ErrNetwork, fmt.Errorf("read response: %w", err))
	}
	if int64(len(data)) > c.maxBytes {
		return nil, UnexpectedResponse(op, fmt.Errorf("response exceeds %d bytes", c.maxBytes))
	}

	return &Response{
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (c *Client) checkConfigured(op, endpoint string) error {
	if c.token == "" {
		return MissingCredentials(op, "inference API token is not configured")
	}
	if strings.TrimSpace(endpoint) == "" {
		return MissingCredentials(op, "endpoint URL is not configured")
	}
	return nil
}
