// Package youtubeapi wraps the YouTube Data API for live-chat polling:
// finding the channel's active broadcast, resolving its live chat id, and
// paging chat messages with the server-supplied continuation token and poll
// interval. Calls are keyed by API key so the caller can rotate among a
// credential pool on quota errors.
package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Client builds one *yt.Service per API key and caches it.
type Client struct {
	ChannelID string
	Endpoint  string // overridable for tests

	mu       sync.Mutex
	services map[string]*yt.Service
}

func (c *Client) service(ctx context.Context, key string) (*yt.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.services[key]; ok {
		return svc, nil
	}
	opts := []option.ClientOption{option.WithAPIKey(key)}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	if c.services == nil {
		c.services = make(map[string]*yt.Service)
	}
	c.services[key] = svc
	return svc, nil
}

// FindLiveChatID locates the channel's active broadcast and resolves its
// activeLiveChatId. Returns ("", "", nil) when the channel is offline.
func (c *Client) FindLiveChatID(ctx context.Context, key string) (videoID, liveChatID string, err error) {
	svc, err := c.service(ctx, key)
	if err != nil {
		return "", "", err
	}
	search, err := svc.Search.List([]string{"snippet"}).
		ChannelId(c.ChannelID).
		EventType("live").
		Type("video").
		MaxResults(1).
		Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("search live video: %w", err)
	}
	if len(search.Items) == 0 || search.Items[0].Id == nil {
		return "", "", nil
	}
	videoID = search.Items[0].Id.VideoId
	videos, err := svc.Videos.List([]string{"liveStreamingDetails"}).
		Id(videoID).
		Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("video details: %w", err)
	}
	if len(videos.Items) == 0 || videos.Items[0].LiveStreamingDetails == nil {
		return "", "", nil
	}
	return videoID, videos.Items[0].LiveStreamingDetails.ActiveLiveChatId, nil
}

// ChatMessage is one normalized live chat message.
type ChatMessage struct {
	ID          string
	Author      string
	Text        string
	PublishedAt time.Time
}

// ChatPage is one page of live chat messages plus its continuation state.
type ChatPage struct {
	Messages      []ChatMessage
	NextPageToken string
	PollInterval  time.Duration // server-suggested wait before the next fetch
	Ended         bool          // broadcast went offline
}

// ListMessages fetches one page of live chat. pageToken may be empty for the
// first fetch.
func (c *Client) ListMessages(ctx context.Context, key, liveChatID, pageToken string) (*ChatPage, error) {
	svc, err := c.service(ctx, key)
	if err != nil {
		return nil, err
	}
	call := svc.LiveChatMessages.List(liveChatID, []string{"snippet", "authorDetails"}).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		if IsChatEnded(err) {
			return &ChatPage{Ended: true}, nil
		}
		return nil, fmt.Errorf("live chat messages: %w", err)
	}
	page := &ChatPage{
		NextPageToken: resp.NextPageToken,
		PollInterval:  time.Duration(resp.PollingIntervalMillis) * time.Millisecond,
		Ended:         resp.OfflineAt != "",
	}
	for _, item := range resp.Items {
		if item.Snippet == nil || item.AuthorDetails == nil || item.Id == "" {
			// Malformed entry; drop it and keep the batch.
			continue
		}
		ts, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		page.Messages = append(page.Messages, ChatMessage{
			ID:          item.Id,
			Author:      item.AuthorDetails.DisplayName,
			Text:        item.Snippet.DisplayMessage,
			PublishedAt: ts,
		})
	}
	return page, nil
}

// IsQuotaError reports whether err is a quota or rate-limit rejection that
// should trigger credential rotation rather than backoff.
func IsQuotaError(err error) bool {
	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		return false
	}
	if ge.Code == 429 {
		return true
	}
	if ge.Code != 403 {
		return false
	}
	for _, item := range ge.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(ge.Message), "quota")
}

// IsChatEnded reports the API's "session ended" signal: the live chat is gone
// or no longer accepting list calls.
func IsChatEnded(err error) bool {
	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		return false
	}
	for _, item := range ge.Errors {
		if item.Reason == "liveChatEnded" || item.Reason == "liveChatNotFound" {
			return true
		}
	}
	return ge.Code == 403 && strings.Contains(strings.ToLower(ge.Message), "ended")
}
