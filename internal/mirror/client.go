package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a Provider backed by a generic REST task service.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a REST provider client for the given base URL. An empty
// token disables the Authorization header.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type taskPayload struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Notes  string `json:"notes,omitempty"`
	Due    string `json:"due,omitempty"`
	Status string `json:"status,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("task provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("task provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) CreateTask(ctx context.Context, title string, dueDate time.Time, notes string) (string, error) {
	req := taskPayload{
		Title: title,
		Notes: notes,
		Due:   dueDate.UTC().Format("2006-01-02"),
	}
	var resp taskPayload
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("task provider returned no id")
	}
	return resp.ID, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	return c.do(ctx, http.MethodPatch, "/tasks/"+taskID, taskPayload{Status: status}, nil)
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var resp taskPayload
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, &resp); err != nil {
		return nil, err
	}

	t := &Task{
		ID:     resp.ID,
		Title:  resp.Title,
		Notes:  resp.Notes,
		Status: resp.Status,
	}
	if resp.Due != "" {
		due, err := time.Parse("2006-01-02", resp.Due)
		if err != nil {
			return nil, fmt.Errorf("parse due date %q: %w", resp.Due, err)
		}
		t.DueDate = due
	}
	return t, nil
}
