// Package relay contains a minimal client for the ntfy-style notification
// relay: one HTTP POST per send, body as payload, short textual title header.
// There is no acknowledgment or retry protocol; callers log failures and move
// on.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts notifications to {BaseURL}/{Topic}.
type Client struct {
	BaseURL    string // default https://ntfy.sh
	Topic      string
	Priority   string // optional, e.g. "high" for banner notifications
	HTTPClient *http.Client
}

// New returns a client for the given topic. topic may also be a full URL, in
// which case it is used verbatim.
func New(server, topic string) *Client {
	if server == "" {
		server = "https://ntfy.sh"
	}
	return &Client{
		BaseURL:    strings.TrimRight(server, "/"),
		Topic:      topic,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) url() string {
	if strings.HasPrefix(c.Topic, "http://") || strings.HasPrefix(c.Topic, "https://") {
		return c.Topic
	}
	return c.BaseURL + "/" + c.Topic
}

// Send posts body with title as metadata. attachURL, when non-empty, is
// forwarded in the Attach header (a single image reference, used for emote
// rendering).
func (c *Client) Send(ctx context.Context, title, body, attachURL string) error {
	if c.Topic == "" {
		return fmt.Errorf("relay topic not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), strings.NewReader(body))
	if err != nil {
		return err
	}
	if title != "" {
		req.Header.Set("Title", title)
	}
	if c.Priority != "" {
		req.Header.Set("Priority", c.Priority)
	}
	if attachURL != "" {
		req.Header.Set("Attach", attachURL)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}
