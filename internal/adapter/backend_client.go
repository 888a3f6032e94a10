// Package adapter contains the HTTP client for the remote Pizoo backend.
// The backend owns persistence, matching, and billing; this client only
// shuttles requests and classifies failures.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/pizoo-client/internal/errors"
	"github.com/pizoo-client/internal/types"
)

// TokenSource supplies the bearer token for backend calls and is notified
// when the backend rejects it. A 401 terminates the session; no request is
// ever retried on auth failure.
type TokenSource interface {
	Token() string
	Expire()
}

// BackendClient talks to the remote REST backend. Every request carries the
// session's bearer token and runs under the caller's context. Mutating calls
// are issued exactly once per invocation; retry decisions belong to the
// caller.
type BackendClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	tokens  TokenSource
}

// BackendClientConfig holds the adapter configuration
type BackendClientConfig struct {
	BaseURL           string
	RequestTimeout    time.Duration
	RequestsPerSecond int
	RequestBurst      int
	Tokens            TokenSource
}

// NewBackendClient creates a backend client from config
func NewBackendClient(cfg BackendClientConfig) (*BackendClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.RequestBurst <= 0 {
		cfg.RequestBurst = cfg.RequestsPerSecond
	}

	return &BackendClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestBurst),
		tokens:  cfg.Tokens,
	}, nil
}

// doRequest issues a single request. It never retries: polling callers come
// back on the next tick, user-action callers surface the failure and wait
// for an explicit user retry.
func (c *BackendClient) doRequest(ctx context.Context, operation, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewNetworkError(operation, err)
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError(operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError(operation, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Expire()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.FromStatusCode(operation, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

type profilesEnvelope struct {
	Profiles []types.Profile `json:"profiles"`
}

// Discover fetches the next batch of candidate profiles
func (c *BackendClient) Discover(ctx context.Context, limit int) ([]types.Profile, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.doRequest(ctx, "discover", http.MethodGet, "/profiles/discover", query, nil)
	if err != nil {
		return nil, err
	}

	var envelope profilesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode discover response: %w", err)
	}
	return envelope.Profiles, nil
}

// Swipe submits a swipe decision. The call is made exactly once; on failure
// the caller decides whether the user retries.
func (c *BackendClient) Swipe(ctx context.Context, action types.SwipeAction) (*types.MatchResult, error) {
	body, err := c.doRequest(ctx, "swipe", http.MethodPost, "/swipe", nil, action)
	if err != nil {
		return nil, err
	}

	var result types.MatchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode swipe response: %w", err)
	}
	return &result, nil
}

// LikesReceived fetches the profiles that liked the current user
func (c *BackendClient) LikesReceived(ctx context.Context) ([]types.Profile, error) {
	body, err := c.doRequest(ctx, "likes received", http.MethodGet, "/likes/received", nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope profilesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode likes response: %w", err)
	}
	return envelope.Profiles, nil
}

// LikesSent fetches the profiles the current user has liked
func (c *BackendClient) LikesSent(ctx context.Context) ([]types.Profile, error) {
	body, err := c.doRequest(ctx, "likes sent", http.MethodGet, "/likes/sent", nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope profilesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode likes response: %w", err)
	}
	return envelope.Profiles, nil
}

// Conversations fetches the match list with last-message previews
func (c *BackendClient) Conversations(ctx context.Context) ([]types.Conversation, error) {
	body, err := c.doRequest(ctx, "conversations", http.MethodGet, "/conversations", nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Conversations []types.Conversation `json:"conversations"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode conversations response: %w", err)
	}
	return envelope.Conversations, nil
}

// Messages fetches the full message history for a match
func (c *BackendClient) Messages(ctx context.Context, matchID string) ([]types.Message, error) {
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(matchID))
	body, err := c.doRequest(ctx, "messages", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Messages []types.Message `json:"messages"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode messages response: %w", err)
	}
	return envelope.Messages, nil
}

// SendMessage submits a message to a conversation. The backend carries the
// content as a query parameter; the authoritative record is picked up on the
// next poll.
func (c *BackendClient) SendMessage(ctx context.Context, matchID, content string) error {
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(matchID))
	query := url.Values{}
	query.Set("content", content)

	_, err := c.doRequest(ctx, "send message", http.MethodPost, path, query, nil)
	return err
}

// SubscriptionStatus fetches the account's billing snapshot
func (c *BackendClient) SubscriptionStatus(ctx context.Context) (*types.SubscriptionSnapshot, error) {
	body, err := c.doRequest(ctx, "subscription status", http.MethodGet, "/subscription/status", nil, nil)
	if err != nil {
		return nil, err
	}

	var snapshot types.SubscriptionSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode subscription response: %w", err)
	}
	return &snapshot, nil
}

// OwnProfile fetches the authenticated user's account record
func (c *BackendClient) OwnProfile(ctx context.Context) (*types.OwnProfile, error) {
	body, err := c.doRequest(ctx, "own profile", http.MethodGet, "/user/profile", nil, nil)
	if err != nil {
		return nil, err
	}

	var profile types.OwnProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return &profile, nil
}

// Ping checks backend reachability. Used by the startup probe; a 401 here
// still counts as reachable.
func (c *BackendClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewNetworkError("ping", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return apperrors.FromStatusCode("ping", resp.StatusCode, "")
	}
	return nil
}
