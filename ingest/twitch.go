package ingest

import (
	"context"
	"log/slog"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/lastmove/chatrelay/pipeline"
	"github.com/lastmove/chatrelay/twitchapi"
)

// Twitch listens to channel chat over IRC, gated by Helix live status. Unlike
// the polling sources, messages arrive as a push stream; the live poll only
// decides when to connect and disconnect, and a disconnect resets the dedup
// scope like any other session end.
type Twitch struct {
	Helix       *twitchapi.HelixClient
	Channel     string
	BotUsername string
	OAuthToken  string
	Interval    time.Duration // live status poll interval
	Backoff     pipeline.Backoff

	ircAddr string // overridable for tests

	sink sink
}

// NewTwitch wires the listener to the shared queue.
func NewTwitch(helix *twitchapi.HelixClient, channel, botUsername, oauthToken string, queue *pipeline.Queue, interval time.Duration) *Twitch {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Twitch{
		Helix:       helix,
		Channel:     channel,
		BotUsername: botUsername,
		OAuthToken:  oauthToken,
		Interval:    interval,
		Backoff:     pipeline.DefaultBackoff(),
		sink: sink{
			tracker: pipeline.NewSessionTracker(pipeline.PlatformTwitch),
			queue:   queue,
		},
	}
}

// Tracker exposes session state for the status endpoint.
func (t *Twitch) Tracker() *pipeline.SessionTracker { return t.sink.tracker }

// Run polls live status and manages the IRC connection until ctx is canceled.
func (t *Twitch) Run(ctx context.Context) {
	slog.Info("twitch listener started",
		slog.String("channel", t.Channel),
		slog.Duration("interval", t.Interval))
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	var ircCancel context.CancelFunc
	defer func() {
		if ircCancel != nil {
			ircCancel()
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		stream, err := t.Helix.GetStream(ctx, t.Channel)
		switch {
		case err != nil:
			if ClassifyFetchError(err) == FetchCanceled {
				return
			}
			slog.Debug("twitch live poll failed", slog.Any("err", err))
		case stream == nil:
			if t.sink.tracker.Live() {
				t.sink.tracker.SetEnded()
				if ircCancel != nil {
					ircCancel()
					ircCancel = nil
				}
			}
		default:
			if !t.sink.tracker.Live() {
				t.sink.tracker.SetLive(stream.ID)
				ircCtx, cancel := context.WithCancel(ctx)
				ircCancel = cancel
				go t.listen(ircCtx)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// listen connects to channel chat and reconnects with backoff until its
// context is canceled, so a failed connect never leaves a live session
// message-less.
func (t *Twitch) listen(ctx context.Context) {
	for attempt := 0; ctx.Err() == nil; attempt++ {
		client := twitch.NewClient(t.BotUsername, t.OAuthToken)
		if t.ircAddr != "" {
			client.IrcAddress = t.ircAddr
			client.TLS = false
		}
		client.OnPrivateMessage(t.handleMessage)

		watchCtx, stopWatch := context.WithCancel(ctx)
		watchDone := make(chan struct{})
		go func() {
			<-watchCtx.Done()
			if err := client.Disconnect(); err != nil {
				slog.Debug("twitch chat disconnect", slog.Any("err", err))
			}
			close(watchDone)
		}()

		client.Join(t.Channel)
		err := client.Connect()
		stopWatch()
		<-watchDone
		if ctx.Err() != nil {
			return
		}
		slog.Warn("twitch chat connection lost; retrying",
			slog.Int("attempt", attempt+1), slog.Any("err", err))
		if !t.Backoff.Sleep(ctx, attempt) {
			return
		}
	}
}

func (t *Twitch) handleMessage(msg twitch.PrivateMessage) {
	author := msg.User.DisplayName
	if author == "" {
		author = msg.User.Name
	}
	observed := msg.Time
	if observed.IsZero() {
		observed = time.Now()
	}
	t.sink.forward(pipeline.Message{
		ID:         msg.ID,
		Platform:   pipeline.PlatformTwitch,
		Author:     author,
		Text:       msg.Message,
		ObservedAt: observed,
	}, "")
}
