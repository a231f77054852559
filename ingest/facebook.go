package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/lastmove/chatrelay/facebookapi"
	"github.com/lastmove/chatrelay/pipeline"
	"github.com/lastmove/chatrelay/telemetry"
)

// Facebook polls a page's live video comments. Discovery is two-phase: scan
// recent page videos for one with live status, or receive the video id
// directly from the webhook push (NotifyLive). While live it pages comments
// chronologically, advancing a since cursor so old items are not refetched.
type Facebook struct {
	Client       *facebookapi.Client
	Interval     time.Duration // comment poll interval
	DiscoverWait time.Duration // delay between discovery attempts
	Backoff      pipeline.Backoff

	sink   sink
	liveCh chan string
	cursor time.Time
}

// NewFacebook wires the poller to the shared queue.
func NewFacebook(client *facebookapi.Client, queue *pipeline.Queue, interval time.Duration) *Facebook {
	if interval <= 0 {
		interval = time.Second
	}
	return &Facebook{
		Client:       client,
		Interval:     interval,
		DiscoverWait: 5 * time.Second,
		Backoff:      pipeline.DefaultBackoff(),
		sink: sink{
			tracker: pipeline.NewSessionTracker(pipeline.PlatformFacebook),
			queue:   queue,
		},
		liveCh: make(chan string, 1),
	}
}

// Tracker exposes session state for the status endpoint.
func (f *Facebook) Tracker() *pipeline.SessionTracker { return f.sink.tracker }

// NotifyLive hands the poller a live video id delivered by the webhook,
// short-circuiting discovery. Non-blocking; a pending notification is enough.
func (f *Facebook) NotifyLive(videoID string) {
	select {
	case f.liveCh <- videoID:
	default:
	}
}

// OfferComments feeds an initial comment batch delivered alongside a webhook
// event through the normal dedup path. Ignored unless a session is live.
func (f *Facebook) OfferComments(comments []facebookapi.Comment) {
	for _, c := range comments {
		f.forwardComment(c)
	}
}

func (f *Facebook) forwardComment(c facebookapi.Comment) {
	if c.ID == "" {
		telemetry.CountMalformed()
		return
	}
	author := c.From
	if author == "" {
		author = "Unknown"
	}
	f.sink.forward(pipeline.Message{
		ID:         c.ID,
		Platform:   pipeline.PlatformFacebook,
		Author:     author,
		Text:       c.Message,
		ObservedAt: time.Now(),
	}, "")
}

// Run polls until ctx is canceled.
func (f *Facebook) Run(ctx context.Context) {
	slog.Info("facebook poller started",
		slog.String("page_id", f.Client.PageID),
		slog.Duration("interval", f.Interval))
	failures := 0
	pollsSinceLiveCheck := 0
	const liveCheckEvery = 12

	for ctx.Err() == nil {
		if !f.sink.tracker.Live() {
			if !f.discover(ctx, &failures) {
				continue
			}
			pollsSinceLiveCheck = 0
			continue
		}

		if !sleepOrLive(ctx, f.Interval, f.liveCh, f.goLive) {
			return
		}
		_, videoID := f.sink.tracker.State()
		if videoID == "" {
			continue
		}
		comments, err := f.Client.ListComments(ctx, videoID, f.cursor)
		if err != nil {
			failures++
			switch class := ClassifyFetchError(err); class {
			case FetchCanceled:
				return
			case FetchAuth:
				// Page tokens have no in-process refresh; operator action needed.
				slog.Warn("facebook page token rejected; backing off", slog.Any("err", err))
			default:
				slog.Warn("facebook comment fetch failed",
					slog.String("class", class.String()), slog.Any("err", err))
			}
			if !f.Backoff.Sleep(ctx, failures-1) {
				return
			}
			continue
		}
		failures = 0
		for _, c := range comments {
			f.forwardComment(c)
			if c.CreatedTime.After(f.cursor) {
				f.cursor = c.CreatedTime
			}
		}
		telemetry.CountPollCycle()

		pollsSinceLiveCheck++
		if pollsSinceLiveCheck >= liveCheckEvery {
			pollsSinceLiveCheck = 0
			f.recheckLive(ctx)
		}
	}
}

// discover looks for an active broadcast, either via the webhook channel or
// by scanning the page's videos. Returns true when a session went live.
func (f *Facebook) discover(ctx context.Context, failures *int) bool {
	t := time.NewTimer(f.DiscoverWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case videoID := <-f.liveCh:
		f.goLive(videoID)
		return true
	case <-t.C:
	}
	v, err := f.Client.FindLiveVideo(ctx)
	if err != nil {
		*failures++
		if class := ClassifyFetchError(err); class == FetchCanceled {
			return false
		}
		slog.Warn("facebook live discovery failed", slog.Any("err", err))
		f.Backoff.Sleep(ctx, *failures-1)
		return false
	}
	*failures = 0
	if v == nil {
		slog.Debug("facebook page offline")
		return false
	}
	f.goLive(v.ID)
	return true
}

func (f *Facebook) goLive(videoID string) {
	f.cursor = time.Time{}
	f.sink.tracker.SetLive(videoID)
}

// recheckLive verifies the tracked video is still broadcasting; a vanished or
// replaced live video ends the session and restarts discovery.
func (f *Facebook) recheckLive(ctx context.Context) {
	_, videoID := f.sink.tracker.State()
	v, err := f.Client.FindLiveVideo(ctx)
	if err != nil {
		return // leave state as-is; comment fetch errors will surface problems
	}
	if v == nil || v.ID != videoID {
		f.sink.tracker.SetEnded()
	}
}

// sleepOrLive waits d, but wakes early when the webhook pushes a new live
// video id (onLive is invoked with it). Returns false on ctx cancellation.
func sleepOrLive(ctx context.Context, d time.Duration, liveCh chan string, onLive func(string)) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case videoID := <-liveCh:
		onLive(videoID)
		return true
	case <-t.C:
		return true
	}
}
