package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lastmove/chatrelay/facebookapi"
	"github.com/lastmove/chatrelay/pipeline"
)

// LiveNotifier receives webhook-delivered live events; implemented by the
// Facebook poller.
type LiveNotifier interface {
	NotifyLive(videoID string)
	OfferComments(comments []facebookapi.Comment)
}

// Handlers holds the HTTP handlers' dependencies.
type Handlers struct {
	Queue       *pipeline.Queue
	Trackers    []*pipeline.SessionTracker
	VerifyToken string
	Facebook    LiveNotifier // nil when the Facebook poller is disabled
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type platformStatus struct {
	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`
}

// HandleStatus reports each platform's session state and the queue depth.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	platforms := make(map[string]platformStatus, len(h.Trackers))
	for _, t := range h.Trackers {
		state, sessionID := t.State()
		platforms[string(t.Platform())] = platformStatus{State: state.String(), SessionID: sessionID}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"platforms":   platforms,
		"queue_depth": h.Queue.Depth(),
	}); err != nil {
		slog.Error("failed to encode status response", slog.Any("err", err))
	}
}
