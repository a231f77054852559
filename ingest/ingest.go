// Package ingest runs one poller per chat platform. Each poller discovers an
// active live session, normalizes new messages, filters them through its own
// dedup registry, and pushes survivors onto the shared outbound queue. Pollers
// fail per-iteration and run until their context is canceled; nothing in this
// package terminates the process.
package ingest

import (
	"log/slog"
	"time"

	"github.com/lastmove/chatrelay/pipeline"
	"github.com/lastmove/chatrelay/telemetry"
)

// sink is the shared accept path: live gate, dedup, queue.
type sink struct {
	tracker *pipeline.SessionTracker
	queue   *pipeline.Queue
}

// forward runs msg through the session gate and dedup, enqueueing on accept.
// Returns true when the message was enqueued.
func (s sink) forward(msg pipeline.Message, attachURL string) bool {
	if !s.tracker.Live() {
		return false
	}
	if msg.ID == "" || msg.Text == "" {
		telemetry.CountMalformed()
		return false
	}
	switch s.tracker.Dedup().AcceptVerdict(msg) {
	case pipeline.DuplicateID:
		telemetry.CountDuplicate(false)
		return false
	case pipeline.RepeatText:
		telemetry.CountDuplicate(true)
		return false
	}
	s.queue.Push(msg.Platform, pipeline.OutboundItem{
		Title:      string(msg.Platform),
		Author:     msg.Author,
		Text:       msg.Text,
		AttachURL:  attachURL,
		EnqueuedAt: time.Now(),
	})
	telemetry.CountIngested()
	slog.Debug("message forwarded",
		slog.String("platform", string(msg.Platform)),
		slog.String("author", msg.Author))
	return true
}
