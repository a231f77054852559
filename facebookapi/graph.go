// Package facebookapi contains minimal helpers for the Facebook Graph API:
// finding the page's currently live video and paging its comments with a
// since cursor.
package facebookapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://graph.facebook.com/v20.0"

// Client calls the Graph API with a page access token.
type Client struct {
	PageID      string
	AccessToken string
	BaseURL     string // overridable for tests
	HTTPClient  *http.Client
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

// apiError is the Graph error envelope.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("graph api error %d (%s): %s", e.Code, e.Type, e.Message)
}

// IsAuthError reports whether err is an expired or invalid access token
// response (OAuthException, code 190).
func IsAuthError(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && (ae.Type == "OAuthException" || ae.Code == 190)
}

// LiveVideo is the subset of a page video entry the poller needs.
type LiveVideo struct {
	ID          string
	Description string
	CreatedTime string
}

// FindLiveVideo scans the page's recent videos for one with live_status LIVE.
// Returns ("", nil) when the page is not broadcasting.
func (c *Client) FindLiveVideo(ctx context.Context) (*LiveVideo, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/"+c.PageID+"/videos", nil)
	q := req.URL.Query()
	q.Set("fields", "id,description,live_status,created_time")
	q.Set("limit", "10")
	q.Set("access_token", c.AccessToken)
	req.URL.RawQuery = q.Encode()
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	var body struct {
		Data []struct {
			ID          string `json:"id"`
			Description string `json:"description"`
			LiveStatus  string `json:"live_status"`
			CreatedTime string `json:"created_time"`
		} `json:"data"`
		Error *apiError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode videos response: %w", err)
	}
	if body.Error != nil {
		return nil, body.Error
	}
	for _, v := range body.Data {
		if v.LiveStatus == "LIVE" {
			return &LiveVideo{ID: v.ID, Description: v.Description, CreatedTime: v.CreatedTime}, nil
		}
	}
	return nil, nil
}

// Comment is one comment on a live video.
type Comment struct {
	ID          string
	From        string
	Message     string
	CreatedTime time.Time
}

// ListComments pages comments for a video in chronological order. since trims
// items older than the cursor; the boundary second is kept because Graph
// timestamps have one-second precision, so a comment posted in the same second
// as the cursor would otherwise never surface. Refetched ids are absorbed by
// the caller's dedup.
func (c *Client) ListComments(ctx context.Context, videoID string, since time.Time) ([]Comment, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/"+videoID+"/comments", nil)
	q := req.URL.Query()
	q.Set("fields", "id,from{name},message,created_time")
	q.Set("order", "chronological")
	q.Set("limit", "25")
	if !since.IsZero() {
		q.Set("since", strconv.FormatInt(since.Unix(), 10))
	}
	q.Set("access_token", c.AccessToken)
	req.URL.RawQuery = q.Encode()
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	var body struct {
		Data []struct {
			ID   string `json:"id"`
			From struct {
				Name string `json:"name"`
			} `json:"from"`
			Message     string `json:"message"`
			CreatedTime string `json:"created_time"`
		} `json:"data"`
		Error *apiError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode comments response: %w", err)
	}
	if body.Error != nil {
		return nil, body.Error
	}
	out := make([]Comment, 0, len(body.Data))
	for _, item := range body.Data {
		ts, err := time.Parse("2006-01-02T15:04:05-0700", item.CreatedTime)
		if err != nil {
			// Graph occasionally emits RFC3339; accept either.
			ts, _ = time.Parse(time.RFC3339, item.CreatedTime)
		}
		if !since.IsZero() && ts.Before(since) {
			continue
		}
		out = append(out, Comment{ID: item.ID, From: item.From.Name, Message: item.Message, CreatedTime: ts})
	}
	return out, nil
}
