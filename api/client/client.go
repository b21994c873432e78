// Package client is a small HTTP client for the graphchat API, used by the
// ask, chat and history commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/graphchat/api"
)

// DefaultTimeout bounds a single request. Answers can take several model
// round trips.
const DefaultTimeout = 5 * time.Minute

// Client talks to a running graphchat API server.
type Client struct {
	target string
	http   *http.Client
}

// New creates a client for the API server at target, e.g. "http://localhost:8080".
func New(target string) *Client {
	return &Client{
		target: strings.TrimRight(target, "/"),
		http:   &http.Client{Timeout: DefaultTimeout},
	}
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

// Chat sends input within the session and returns the server's reply.
func (c *Client) Chat(ctx context.Context, sessionID, input string) (*api.ChatResponse, error) {
	var out api.ChatResponse
	err := c.do(ctx, http.MethodPost, "/v1/chat", api.ChatRequest{SessionID: sessionID, Input: input}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the session's recent turns. A non-positive window uses the
// server default.
func (c *Client) History(ctx context.Context, sessionID string, window int) (*api.HistoryResponse, error) {
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/history"
	if window > 0 {
		path += "?window=" + strconv.Itoa(window)
	}

	var out api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearHistory deletes the session's turns.
func (c *Client) ClearHistory(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(sessionID)+"/history", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.target+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		var apiErr api.ErrorResponse
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
