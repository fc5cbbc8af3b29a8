// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/civic-sync/models"
)

// StatusError is a non-2xx response from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %d %s", e.Code, e.Message)
}

// IsUnauthenticated reports whether err is a 401 from the service.
func IsUnauthenticated(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

// IsConflict reports whether err is a 409; for suggestion and opinion
// submission that means the dedup key was already applied.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusConflict
}

// Client talks to the civic-sync service. It is safe for concurrent use.
type Client struct {
	baseURL string
	origin  string
	http    *http.Client
	stream  *http.Client // no timeout; SSE connections are long-lived

	mu    sync.Mutex
	token string
}

// NewClient builds a client for the service at baseURL. The base URL also
// serves as the Origin header on mutations, satisfying the service's
// same-origin CSRF guard.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		origin:  strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		stream:  &http.Client{},
	}
}

// SetToken installs the session token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// CreateSession exchanges a username for a session token and installs it.
func (c *Client) CreateSession(ctx context.Context, username string) (models.CreateSessionResponse, error) {
	var resp models.CreateSessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/session",
		models.CreateSessionRequest{Username: username}, &resp)
	if err != nil {
		return models.CreateSessionResponse{}, err
	}
	c.SetToken(resp.Token)
	return resp, nil
}

// Me returns the authenticated user, or nil without error when there is
// no valid session. This is the identity-provider contract: a user id or
// null, never a failure just for being signed out.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &u)
	if IsUnauthenticated(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FetchVotes returns the authoritative vote state for an entity.
// Anonymous calls are permitted; UserVote is empty without a session.
func (c *Client) FetchVotes(ctx context.Context, ref models.EntityRef) (models.VoteResponse, error) {
	var resp models.VoteResponse
	path := fmt.Sprintf("/entities/%s/%s/votes", ref.Kind, ref.ID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return models.VoteResponse{}, err
	}
	return resp, nil
}

// SubmitVote sends a vote mutation and returns the resulting
// authoritative counts.
func (c *Client) SubmitVote(ctx context.Context, ref models.EntityRef, voteType string) (models.VoteResponse, error) {
	var resp models.VoteResponse
	path := fmt.Sprintf("/entities/%s/%s/votes", ref.Kind, ref.ID)
	err := c.doJSON(ctx, http.MethodPost, path, models.VoteRequest{VoteType: voteType}, &resp)
	if err != nil {
		return models.VoteResponse{}, err
	}
	return resp, nil
}

// SubmitSuggestion submits a suggestion. A 409 means the dedup key was
// already accepted; callers decide whether that counts as success.
func (c *Client) SubmitSuggestion(ctx context.Context, req models.SubmitSuggestionRequest) (models.SubmitSuggestionResponse, error) {
	var resp models.SubmitSuggestionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/suggestions", req, &resp); err != nil {
		return models.SubmitSuggestionResponse{}, err
	}
	return resp, nil
}

// SubmitOpinion submits an opinion on an agenda.
func (c *Client) SubmitOpinion(ctx context.Context, req models.SubmitOpinionRequest) (models.SubmitOpinionResponse, error) {
	var resp models.SubmitOpinionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/opinions", req, &resp); err != nil {
		return models.SubmitOpinionResponse{}, err
	}
	return resp, nil
}

// Suggestions lists the suggestions attached to an agenda.
func (c *Client) Suggestions(ctx context.Context, agendaID string) ([]models.Suggestion, error) {
	var out []models.Suggestion
	path := fmt.Sprintf("/agendas/%s/suggestions", agendaID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Agendas lists published agendas (static reference content).
func (c *Client) Agendas(ctx context.Context) ([]models.Agenda, error) {
	var out []models.Agenda
	if err := c.doJSON(ctx, http.MethodGet, "/agendas", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping probes service reachability. Used by the replay coordinator as its
// connectivity check.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Header.Set("Origin", c.origin)
	}
	if tok := c.currentToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr models.ErrorResponse
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
