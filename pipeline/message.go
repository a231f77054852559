// Package pipeline carries chat messages from the platform pollers to the
// notification dispatcher: per-session dedup, a bounded multi-producer queue,
// and a single rate-limited consumer that talks to the relay.
package pipeline

import "time"

// Platform identifies a chat source. Values double as the notification title.
type Platform string

const (
	PlatformFacebook Platform = "Facebook"
	PlatformKick     Platform = "Kick"
	PlatformYouTube  Platform = "YouTube"
	PlatformTwitch   Platform = "Twitch"
)

// Message is a chat message normalized at the adapter boundary. Downstream
// components never touch raw API payloads.
type Message struct {
	// ID is unique per platform. Sources without a native message id
	// synthesize one from author and text.
	ID         string
	Platform   Platform
	Author     string
	Text       string
	ObservedAt time.Time
}

// OutboundItem is what the dispatcher forwards to the relay. Produced when a
// message survives dedup; consumed exactly once.
type OutboundItem struct {
	Title      string
	Author     string
	Text       string
	AttachURL  string // optional image reference (emote rendering)
	EnqueuedAt time.Time
}
