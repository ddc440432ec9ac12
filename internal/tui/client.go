package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// APIError is a non-2xx reply from the story API.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("story api: %d %s", e.Status, e.Kind)
	}
	return fmt.Sprintf("story api: %s", e.Message)
}

// Client talks to the REST surface under /stories.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. A nil httpClient uses a
// client with a timeout long enough for a slow generator.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) ListStories(ctx context.Context) ([]string, error) {
	var out struct {
		Stories []string `json:"available_stories"`
	}
	if err := c.do(ctx, http.MethodGet, "/stories/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Stories, nil
}

func (c *Client) Start(ctx context.Context, storyName string, maxChoices int) (*story.Turn, error) {
	req := map[string]any{"story_name": storyName, "max_choices": maxChoices}
	var turn story.Turn
	if err := c.do(ctx, http.MethodPost, "/stories/start", req, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

func (c *Client) Continue(ctx context.Context, storyName, sessionID, choiceText string) (*story.Turn, error) {
	req := map[string]string{"story_name": storyName, "session_id": sessionID, "choice_text": choiceText}
	var turn story.Turn
	if err := c.do(ctx, http.MethodPost, "/stories/continue", req, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
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
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Kind = payload.Error
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
