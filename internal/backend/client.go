// Package backend implements the HTTP client for the session endpoints of
// the brickbee backend: public key + challenge retrieval and execution
// session create/refresh/destroy/status.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const maxResponseBytes = 1 << 20

const (
	publicKeyPath   = "security/publicKey"
	challengePath   = "security/challengeId"
	createPath      = "execution-sessions/create"
	refreshPath     = "execution-sessions/refresh"
	statusPath      = "execution-sessions/status"
	// The backend registered the destroy route with this spelling; the path
	// is part of the wire contract.
	destroyPath = "execution-sessions/destory"
)

// Client talks to the brickbee backend session API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
}

// NewClient creates a backend client. httpClient may be nil, in which case
// http.DefaultClient is used.
func NewClient(baseURL string, httpClient *http.Client, requestTimeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}
}

// FetchPublicKey returns the server RSA public key for one-shot key
// transport.
func (c *Client) FetchPublicKey(ctx context.Context) (*PublicKeyResponse, error) {
	var out PublicKeyResponse
	if err := c.do(ctx, http.MethodGet, publicKeyPath, nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "failed to fetch public key")
	}
	if out.PublicKey == "" {
		return nil, errors.New("backend returned empty public key")
	}
	return &out, nil
}

// RequestChallenge returns a one-time challenge id for a session-create call.
func (c *Client) RequestChallenge(ctx context.Context, platform string) (string, error) {
	var out challengeResponse
	if err := c.do(ctx, http.MethodPost, challengePath, challengeRequest{Platform: platform}, nil, &out); err != nil {
		return "", errors.Wrap(err, "failed to request challenge")
	}
	if out.ChallengeID == "" {
		return "", errors.New("backend returned empty challenge id")
	}
	return out.ChallengeID, nil
}

// CreateSession exchanges the RSA-encrypted API key for an execution token.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest, encryptedKey string) (*CreateSessionResponse, error) {
	headers := map[string]string{HeaderEncryptedKey: encryptedKey}

	var out CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, createPath, req, headers, &out); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	if out.ExecutionToken == "" {
		return nil, errors.New("backend returned empty execution token")
	}
	return &out, nil
}

// RefreshSession exchanges the current execution token for a new one.
func (c *Client) RefreshSession(ctx context.Context, executionToken string) (*RefreshSessionResponse, error) {
	headers := map[string]string{HeaderExecutionToken: executionToken}

	var out RefreshSessionResponse
	if err := c.do(ctx, http.MethodPost, refreshPath, nil, headers, &out); err != nil {
		return nil, errors.Wrap(err, "failed to refresh session")
	}
	if out.ExecutionToken == "" {
		return nil, errors.New("backend returned empty execution token")
	}
	return &out, nil
}

// DestroySession revokes the execution token server-side.
func (c *Client) DestroySession(ctx context.Context, executionToken string) error {
	headers := map[string]string{HeaderExecutionToken: executionToken}

	var out destroyResponse
	if err := c.do(ctx, http.MethodDelete, destroyPath, nil, headers, &out); err != nil {
		return errors.Wrap(err, "failed to destroy session")
	}
	if !out.Success {
		return errors.New("backend did not confirm session destruction")
	}
	return nil
}

// SessionStatus returns the server-side view of a session.
func (c *Client) SessionStatus(ctx context.Context, executionToken string) (*SessionStatusResponse, error) {
	headers := map[string]string{HeaderExecutionToken: executionToken}

	var out SessionStatusResponse
	if err := c.do(ctx, http.MethodGet, statusPath, nil, headers, &out); err != nil {
		return nil, errors.Wrap(err, "failed to get session status")
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return errors.Wrap(err, "failed to build request url")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.Unmarshal(data, &envelope); err == nil {
			apiErr.Message = envelope.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode response body")
	}
	return nil
}
