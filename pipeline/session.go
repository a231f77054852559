package pipeline

import (
	"log/slog"
	"sync"

	"github.com/lastmove/chatrelay/telemetry"
)

// SessionState describes where a poller is in its live-detection cycle.
type SessionState int

const (
	// StateSearching means no active broadcast is known; the poller is in
	// discovery.
	StateSearching SessionState = iota
	// StateLive means an active broadcast was found and messages flow.
	StateLive
	// StateEnded is the transient signal observed when a broadcast stops;
	// the tracker immediately returns to Searching.
	StateEnded
)

func (s SessionState) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateLive:
		return "live"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// SessionTracker is the per-poller live/offline state machine. It owns the
// platform's Dedup: any transition into or out of Live resets the dedup
// scope, so a previously seen id becomes acceptable again in the next
// session.
type SessionTracker struct {
	platform Platform
	dedup    *Dedup

	mu        sync.Mutex
	state     SessionState
	sessionID string
}

func NewSessionTracker(platform Platform) *SessionTracker {
	return &SessionTracker{platform: platform, dedup: NewDedup(), state: StateSearching}
}

// SetLive records the external session id and transitions to Live. A repeat
// call with the same id while already live is a no-op, so the registry is
// cleared at most once per distinct session.
func (t *SessionTracker) SetLive(externalID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateLive && t.sessionID == externalID {
		return
	}
	if t.state != StateLive {
		telemetry.IncLiveSessions()
	}
	t.state = StateLive
	t.sessionID = externalID
	t.dedup.Reset()
	slog.Info("session live", slog.String("platform", string(t.platform)), slog.String("session_id", externalID))
}

// SetEnded returns to Searching and clears the dedup scope. Safe to call
// while already searching.
func (t *SessionTracker) SetEnded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateLive {
		return
	}
	t.state = StateSearching
	telemetry.DecLiveSessions()
	slog.Info("session ended", slog.String("platform", string(t.platform)), slog.String("session_id", t.sessionID))
	t.sessionID = ""
	t.dedup.Reset()
}

// State returns the current state and external session id.
func (t *SessionTracker) State() (SessionState, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.sessionID
}

// Live reports whether a session is currently active.
func (t *SessionTracker) Live() bool {
	s, _ := t.State()
	return s == StateLive
}

// Dedup exposes the tracker-owned registry for the poller's accept path.
func (t *SessionTracker) Dedup() *Dedup { return t.dedup }

// Platform returns the platform this tracker belongs to.
func (t *SessionTracker) Platform() Platform { return t.platform }
