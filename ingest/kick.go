package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/lastmove/chatrelay/kickapi"
	"github.com/lastmove/chatrelay/pipeline"
	"github.com/lastmove/chatrelay/telemetry"
)

// Kick polls a Kick chatroom. Discovery resolves the channel slug and gates
// on livestream presence; while live it fetches a trailing time window of
// chatroom messages each poll. Messages without a platform id get a
// synthesized author:text identity; two distinct messages with identical
// text from the same author inside one window are indistinguishable and will
// dedup as one.
type Kick struct {
	Client      *kickapi.Client
	Channel     string
	Interval    time.Duration // poll interval while live
	OfflineWait time.Duration // delay between discovery attempts
	Window      time.Duration // trailing window each fetch covers
	Backoff     pipeline.Backoff

	sink sink
}

// NewKick wires the poller to the shared queue.
func NewKick(client *kickapi.Client, channel string, queue *pipeline.Queue, interval, window time.Duration) *Kick {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Kick{
		Client:      client,
		Channel:     channel,
		Interval:    interval,
		OfflineWait: 10 * time.Second,
		Window:      window,
		Backoff:     pipeline.DefaultBackoff(),
		sink: sink{
			tracker: pipeline.NewSessionTracker(pipeline.PlatformKick),
			queue:   queue,
		},
	}
}

// Tracker exposes session state for the status endpoint.
func (k *Kick) Tracker() *pipeline.SessionTracker { return k.sink.tracker }

// Run polls until ctx is canceled.
func (k *Kick) Run(ctx context.Context) {
	slog.Info("kick poller started",
		slog.String("channel", k.Channel),
		slog.Duration("interval", k.Interval))
	failures := 0
	for ctx.Err() == nil {
		ch, err := k.Client.GetChannel(ctx, k.Channel)
		if err != nil {
			failures++
			if ClassifyFetchError(err) == FetchCanceled {
				return
			}
			slog.Warn("kick channel fetch failed", slog.Any("err", err))
			if !k.Backoff.Sleep(ctx, failures-1) {
				return
			}
			continue
		}
		failures = 0

		if !ch.Live {
			k.sink.tracker.SetEnded()
			slog.Debug("kick channel offline", slog.String("channel", k.Channel))
			if !sleepCtx(ctx, k.OfflineWait) {
				return
			}
			continue
		}
		k.sink.tracker.SetLive(ch.SessionID)

		msgs, err := k.Client.GetMessages(ctx, ch.ChatroomID, time.Now().Add(-k.Window))
		if err != nil {
			failures++
			if ClassifyFetchError(err) == FetchCanceled {
				return
			}
			slog.Warn("kick chat fetch failed", slog.Any("err", err))
			if !k.Backoff.Sleep(ctx, failures-1) {
				return
			}
			continue
		}
		for _, m := range msgs {
			k.forwardMessage(m)
		}
		telemetry.CountPollCycle()

		if !sleepCtx(ctx, k.Interval) {
			return
		}
	}
}

func (k *Kick) forwardMessage(m kickapi.Message) {
	if m.Author == "" {
		telemetry.CountMalformed()
		return
	}
	id := m.ID
	if id == "" {
		// No platform id in this payload shape; fall back to the composite.
		id = m.Author + ":" + m.Text
	}
	k.sink.forward(pipeline.Message{
		ID:         id,
		Platform:   pipeline.PlatformKick,
		Author:     m.Author,
		Text:       m.Text,
		ObservedAt: time.Now(),
	}, m.EmoteURL)
}

// sleepCtx waits d or until ctx is canceled; false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
