package meals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a CalendarProvider backed by a simple REST calendar service.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type eventPayload struct {
	Date  string `json:"date"`
	Title string `json:"title"`
}

// FetchWindow requests events between center-half and center+half inclusive.
func (c *Client) FetchWindow(ctx context.Context, center time.Time, halfWindowDays int) (map[string][]string, error) {
	start := center.AddDate(0, 0, -halfWindowDays)
	end := center.AddDate(0, 0, halfWindowDays)

	q := url.Values{}
	q.Set("start", start.UTC().Format(dateLayout))
	q.Set("end", end.UTC().Format(dateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}

	var events []eventPayload
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode calendar response: %w", err)
	}

	byDate := make(map[string][]string)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e.Title)
	}
	return byDate, nil
}
