// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"onboarding-workers/internal/common/errors"
)

// Client sends JSON requests to a remote API and maps failures onto
// REMOTE_API_ERROR and REMOTE_API_TIMEOUT.
type Client struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: headers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Request describes one call. Operation names the call in errors and logs.
type Request struct {
	Operation      string
	Method         string
	Path           string
	Body           interface{}
	IdempotencyKey string
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, errors.NewRemoteAPIError(r.Operation, 0, "", fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return nil, errors.NewRemoteAPIError(r.Operation, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if r.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, errors.NewRemoteAPITimeoutError(r.Operation, err)
		}
		return nil, errors.NewRemoteAPIError(r.Operation, 0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewRemoteAPIError(r.Operation, resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewRemoteAPIError(r.Operation, resp.StatusCode, string(data), nil)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}
