package main

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

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/server"
)

// apiClient calls the roomchat request surface.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) Health(ctx context.Context) (server.HealthResponse, error) {
	var out server.HealthResponse
	return out, c.do(ctx, http.MethodGet, "/api/health", nil, http.StatusOK, &out)
}

func (c *apiClient) Rooms(ctx context.Context) (server.RoomsResponse, error) {
	var out server.RoomsResponse
	return out, c.do(ctx, http.MethodGet, "/api/rooms", nil, http.StatusOK, &out)
}

func (c *apiClient) Users(ctx context.Context) (server.UsersResponse, error) {
	var out server.UsersResponse
	return out, c.do(ctx, http.MethodGet, "/api/users", nil, http.StatusOK, &out)
}

func (c *apiClient) Messages(ctx context.Context, room string, limit int) (server.MessagesResponse, error) {
	q := url.Values{}
	if room != "" {
		q.Set("room", room)
	}
	q.Set("limit", strconv.Itoa(limit))

	var out server.MessagesResponse
	return out, c.do(ctx, http.MethodGet, "/api/messages?"+q.Encode(), nil, http.StatusOK, &out)
}

func (c *apiClient) Post(ctx context.Context, req server.CreateMessageRequest) (chat.Message, error) {
	var out chat.Message
	return out, c.do(ctx, http.MethodPost, "/api/messages", req, http.StatusCreated, &out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
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
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr server.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// websocketURL maps the server base URL to its /ws endpoint.
func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}
