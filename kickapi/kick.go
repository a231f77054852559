// Package kickapi contains minimal helpers for Kick's public channel API:
// resolving a channel slug to its chatroom, checking livestream status, and
// fetching the trailing window of chatroom messages.
package kickapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://kick.com/api/v2"

// Client calls the Kick v2 endpoints. No credential is required.
type Client struct {
	BaseURL    string // overridable for tests
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

// Channel is the slice of channel info the poller needs: the chatroom to read
// from and whether a livestream is running right now.
type Channel struct {
	ID         int64
	Slug       string
	ChatroomID int64
	Live       bool
	SessionID  string // livestream id when live, used as the external session id
}

// GetChannel resolves a channel slug. A missing livestream object means the
// channel is offline, not an error.
func (c *Client) GetChannel(ctx context.Context, slug string) (*Channel, error) {
	if slug == "" {
		return nil, fmt.Errorf("channel slug empty")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/channels/"+slug, nil)
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel fetch failed: status %d", resp.StatusCode)
	}
	var body struct {
		ID       int64  `json:"id"`
		Slug     string `json:"slug"`
		Chatroom struct {
			ID int64 `json:"id"`
		} `json:"chatroom"`
		Livestream *struct {
			ID       int64 `json:"id"`
			Chatroom *struct {
				ID int64 `json:"id"`
			} `json:"chatroom"`
		} `json:"livestream"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode channel response: %w", err)
	}
	ch := &Channel{ID: body.ID, Slug: body.Slug, ChatroomID: body.Chatroom.ID}
	if body.Livestream != nil {
		ch.Live = true
		ch.SessionID = fmt.Sprintf("%d", body.Livestream.ID)
		if body.Livestream.Chatroom != nil && body.Livestream.Chatroom.ID != 0 {
			ch.ChatroomID = body.Livestream.Chatroom.ID
		}
	}
	return ch, nil
}

// Message is one chatroom message. ID may be empty; callers synthesize an
// identity from author and text in that case.
type Message struct {
	ID        string
	Author    string
	Text      string
	EmoteURL  string // first emote's image, if any
	CreatedAt time.Time
}

// GetMessages fetches the chatroom's recent message window. since trims the
// window client-side; messages come back oldest first.
func (c *Client) GetMessages(ctx context.Context, chatroomID int64, since time.Time) ([]Message, error) {
	if chatroomID == 0 {
		return nil, fmt.Errorf("chatroom id empty")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/chatrooms/%d/messages", c.base(), chatroomID), nil)
	if !since.IsZero() {
		q := req.URL.Query()
		q.Set("start_time", since.UTC().Format("2006-01-02T15:04:05.000Z"))
		req.URL.RawQuery = q.Encode()
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat fetch failed: status %d", resp.StatusCode)
	}
	var body struct {
		Messages []rawMessage `json:"messages"`
		Data     struct {
			Messages []rawMessage `json:"messages"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode messages response: %w", err)
	}
	raw := body.Messages
	if len(raw) == 0 {
		raw = body.Data.Messages
	}
	out := make([]Message, 0, len(raw))
	for _, m := range raw {
		ts, _ := time.Parse(time.RFC3339, m.CreatedAt)
		if !since.IsZero() && !ts.IsZero() && ts.Before(since) {
			continue
		}
		out = append(out, Message{
			ID:        m.ID,
			Author:    m.Sender.Username,
			Text:      TranslateEmotes(m.Content),
			EmoteURL:  FirstEmoteURL(m.Content),
			CreatedAt: ts,
		})
	}
	return out, nil
}

type rawMessage struct {
	ID     string `json:"id"`
	Sender struct {
		Username string `json:"username"`
	} `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}
