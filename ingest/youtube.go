package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/lastmove/chatrelay/credentials"
	"github.com/lastmove/chatrelay/pipeline"
	"github.com/lastmove/chatrelay/telemetry"
	"github.com/lastmove/chatrelay/youtubeapi"
)

// YouTube polls a channel's live chat with continuation tokens. Discovery
// finds the active broadcast and its live chat id; polling honors the
// server-suggested interval and rides the API-key pool through quota
// exhaustion. A chat-ended signal resets dedup state and returns to
// discovery.
type YouTube struct {
	Client      *youtubeapi.Client
	OfflineWait time.Duration // delay between discovery attempts
	Fallback    time.Duration // poll interval when the server suggests none
	Backoff     pipeline.Backoff

	rotator *credentials.Rotator
	sink    sink
}

// NewYouTube wires the poller to the shared queue and its API-key pool.
func NewYouTube(client *youtubeapi.Client, pool *credentials.Pool, queue *pipeline.Queue) *YouTube {
	return &YouTube{
		Client:      client,
		OfflineWait: 10 * time.Second,
		Fallback:    5 * time.Second,
		Backoff:     pipeline.DefaultBackoff(),
		rotator:     &credentials.Rotator{Pool: pool, IsQuota: youtubeapi.IsQuotaError},
		sink: sink{
			tracker: pipeline.NewSessionTracker(pipeline.PlatformYouTube),
			queue:   queue,
		},
	}
}

// Tracker exposes session state for the status endpoint.
func (y *YouTube) Tracker() *pipeline.SessionTracker { return y.sink.tracker }

// Run polls until ctx is canceled.
func (y *YouTube) Run(ctx context.Context) {
	slog.Info("youtube poller started", slog.String("channel_id", y.Client.ChannelID))
	var liveChatID, pageToken string
	failures := 0

	for ctx.Err() == nil {
		if !y.sink.tracker.Live() {
			var videoID, chatID string
			err := y.rotator.Do(ctx, func(ctx context.Context, key string) error {
				var derr error
				videoID, chatID, derr = y.Client.FindLiveChatID(ctx, key)
				return derr
			})
			if err != nil {
				failures++
				if ClassifyFetchError(err) == FetchCanceled {
					return
				}
				slog.Warn("youtube live discovery failed", slog.Any("err", err))
				if !y.Backoff.Sleep(ctx, failures-1) {
					return
				}
				continue
			}
			failures = 0
			if chatID == "" {
				slog.Debug("no youtube live stream detected")
				if !sleepCtx(ctx, y.OfflineWait) {
					return
				}
				continue
			}
			liveChatID, pageToken = chatID, ""
			y.sink.tracker.SetLive(videoID)
			continue
		}

		var page *youtubeapi.ChatPage
		err := y.rotator.Do(ctx, func(ctx context.Context, key string) error {
			var lerr error
			page, lerr = y.Client.ListMessages(ctx, key, liveChatID, pageToken)
			return lerr
		})
		if err != nil {
			failures++
			if ClassifyFetchError(err) == FetchCanceled {
				return
			}
			slog.Warn("youtube chat fetch failed", slog.Any("err", err))
			if !y.Backoff.Sleep(ctx, failures-1) {
				return
			}
			continue
		}
		failures = 0

		if page.Ended {
			slog.Info("youtube live chat ended; rechecking for streams")
			y.sink.tracker.SetEnded()
			liveChatID, pageToken = "", ""
			continue
		}
		for _, m := range page.Messages {
			y.sink.forward(pipeline.Message{
				ID:         m.ID,
				Platform:   pipeline.PlatformYouTube,
				Author:     m.Author,
				Text:       m.Text,
				ObservedAt: time.Now(),
			}, "")
		}
		pageToken = page.NextPageToken
		telemetry.CountPollCycle()

		wait := page.PollInterval
		if wait <= 0 {
			wait = y.Fallback
		}
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}
