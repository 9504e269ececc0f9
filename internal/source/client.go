// Implements the rate-limited HTTP client for the workspace API.

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the workspace API base URL.
	DefaultBaseURL = "https://api.notion.com/v1"
	// APIVersion is the pinned API version.
	APIVersion = "2022-06-28"
	// DefaultPageSize is the page size requested for paginated queries.
	DefaultPageSize = 100
	// requestTimeout is the fixed wall-clock budget for one network call.
	requestTimeout = 30 * time.Second
)

// ClientOptions configures a Client. Zero values fall back to defaults.
type ClientOptions struct {
	BaseURL     string
	HTTPClient  *http.Client
	RatePerSec  float64 // sustained requests per second, default 3
	MaxAttempts int     // attempts per call including the first, default 3
	RetryBase   time.Duration
	RetryMax    time.Duration
}

// Client is a rate-limited workspace API client. It satisfies the page
// fetcher and mutator contracts consumed by the fetch and service packages.
type Client struct {
	token       string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	retryBase   time.Duration
	retryMax    time.Duration
}

// NewClient creates a client authenticating with the given bearer token.
func NewClient(token string, opts ClientOptions) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	perSec := opts.RatePerSec
	if perSec <= 0 {
		perSec = 3
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryBase := opts.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}
	retryMax := opts.RetryMax
	if retryMax <= 0 {
		retryMax = 3 * time.Second
	}
	return &Client{
		token:       token,
		baseURL:     baseURL,
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Limit(perSec), 1),
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		retryMax:    retryMax,
	}
}

// do performs one API call with rate limiting and bounded retries for
// retryable error classes.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	for attempt := 1; ; attempt++ {
		data, err := c.doOnce(ctx, method, path, payload)
		if err == nil {
			return data, nil
		}
		d := RetryPolicy(attempt, c.maxAttempts, c.retryBase, c.retryMax, err)
		if !d.Retry {
			return nil, err
		}
		if werr := sleepContext(ctx, d.Delay); werr != nil {
			return nil, werr
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read " + path, Err: err}
	}

	if resp.StatusCode >= 400 {
		ue := &UpstreamError{Status: resp.StatusCode}
		var apiErr Error
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			ue.Code = apiErr.Code
			ue.Message = apiErr.Message
		} else {
			ue.Message = string(respBody)
		}
		return nil, ue
	}

	return respBody, nil
}

// queryRequest is the request body for a paginated source query.
type queryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryPage fetches one page of records from a source. Pass the cursor from
// the previous page's NextCursor, or "" for the first page.
func (c *Client) QueryPage(ctx context.Context, sourceID, cursor string) (*QueryResponse, error) {
	req := &queryRequest{StartCursor: cursor, PageSize: DefaultPageSize}
	data, err := c.do(ctx, http.MethodPost, "/databases/"+sourceID+"/query", req)
	if err != nil {
		return nil, err
	}

	var resp QueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &UpstreamError{
			Status:  http.StatusUnprocessableEntity,
			Message: fmt.Sprintf("malformed query response: %v", err),
		}
	}
	return &resp, nil
}

// GetRecord retrieves a single record by ID.
func (c *Client) GetRecord(ctx context.Context, id string) (*Record, error) {
	data, err := c.do(ctx, http.MethodGet, "/pages/"+id, nil)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &UpstreamError{
			Status:  http.StatusUnprocessableEntity,
			Message: fmt.Sprintf("malformed record response: %v", err),
		}
	}
	return &rec, nil
}

// UpdateStatus sets the status property named field on a record.
func (c *Client) UpdateStatus(ctx context.Context, id, field, value string) error {
	body := map[string]any{
		"properties": map[string]any{
			field: map[string]any{
				"status": map[string]any{"name": value},
			},
		},
	}
	_, err := c.do(ctx, http.MethodPatch, "/pages/"+id, body)
	return err
}

// UpdateProgress sets the numeric progress property named field on a
// record. The value is clamped to [0, 100].
func (c *Client) UpdateProgress(ctx context.Context, id, field string, value float64) error {
	if value < 0 {
		value = 0
	} else if value > 100 {
		value = 100
	}
	body := map[string]any{
		"properties": map[string]any{
			field: map[string]any{"number": value},
		},
	}
	_, err := c.do(ctx, http.MethodPatch, "/pages/"+id, body)
	return err
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
