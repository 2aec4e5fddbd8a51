// Package profileclient submits a finished onboarding questionnaire to the
// profile API.
//
// A submission is a single POST of the flattened answers. Failures are
// returned to the caller as-is; the client never retries, so a resubmission
// is always a deliberate user action.
package profileclient

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

const onboardingPath = "/v1/profile/onboarding"

// Profile is the stored onboarding profile returned by the API
type Profile struct {
	ID          string         `json:"id,omitempty"`
	UserID      string         `json:"user_id"`
	Answers     map[string]any `json:"answers"`
	SubmittedOn time.Time      `json:"submitted_on"`
}

// FieldError is one per-field entry of a problem response
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from RFC 9457 problem details
type APIError struct {
	StatusCode int          `json:"status"`
	Type       string       `json:"type"`
	Title      string       `json:"title"`
	Detail     string       `json:"detail"`
	Errors     []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("profile api: %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("profile api: %d %s", e.StatusCode, e.Title)
}

// Client talks to the profile API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for baseURL authenticating with a bearer token
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitOnboarding posts the flattened questionnaire once
func (c *Client) SubmitOnboarding(ctx context.Context, payload map[string]any) (*Profile, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var out struct {
		Data Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, onboardingPath, body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// GetOnboarding fetches the caller's stored profile
func (c *Client) GetOnboarding(ctx context.Context) (*Profile, error) {
	var out struct {
		Data Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, onboardingPath, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	apiErr.StatusCode = resp.StatusCode
	if apiErr.Title == "" {
		apiErr.Title = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
