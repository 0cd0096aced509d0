package client

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

	"github.com/dmitrijs2005/groupshare/internal/api"
	"github.com/dmitrijs2005/groupshare/internal/client/models"
)

const maxResponseBytes = 1 << 20

// HTTPClient talks JSON to the group sharing endpoints.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (tests use the one
// returned by httptest.Server.Client).
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.http = hc }
}

// NewHTTPClient validates baseURL and returns a client whose every request is
// bounded by timeout (0 disables the per-request bound).
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) CreateSession(ctx context.Context, req api.CreateSessionRequest) (*models.Session, error) {
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPost, api.PathCreate, req, &resp); err != nil {
		return nil, err
	}
	return sessionOrError(&resp)
}

func (c *HTTPClient) JoinSession(ctx context.Context, req api.JoinSessionRequest) (*models.Session, error) {
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPost, api.PathJoin, req, &resp); err != nil {
		return nil, err
	}
	return sessionOrError(&resp)
}

func (c *HTTPClient) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodGet, api.SessionPath(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return sessionOrError(&resp)
}

func (c *HTTPClient) ConnectParticipants(ctx context.Context, sessionID string, req api.ConnectRequest) (*models.Session, error) {
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPost, api.ConnectPath(sessionID), req, &resp); err != nil {
		return nil, err
	}
	return sessionOrError(&resp)
}

func (c *HTTPClient) SetCards(ctx context.Context, sessionID string, req api.SetCardsRequest) error {
	return c.do(ctx, http.MethodPost, api.SetCardsPath(sessionID), req, &api.StatusResponse{})
}

func (c *HTTPClient) Execute(ctx context.Context, sessionID string, req api.ExecuteRequest) (*models.ExecuteResult, error) {
	var resp api.ExecuteResponse
	if err := c.do(ctx, http.MethodPost, api.ExecutePath(sessionID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.ExecuteResult, nil
}

func (c *HTTPClient) EndSession(ctx context.Context, sessionID string, req api.EndRequest) error {
	return c.do(ctx, http.MethodPost, api.EndPath(sessionID), req, &api.StatusResponse{})
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func sessionOrError(resp *api.SessionResponse) (*models.Session, error) {
	if resp.Session == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "response carries no session"}
	}
	return resp.Session, nil
}

// envelope is the part every response shares.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.mapTransportError(err)
	}

	var env envelope
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.text()}
	}
	if env.Success != nil && !*env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.text()}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
