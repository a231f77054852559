package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lastmove/chatrelay/facebookapi"
)

// HandleFacebookWebhook implements the Graph webhook contract: a GET
// verification handshake keyed by the shared secret, then POSTed event
// deliveries carrying live-video notifications (optionally with an initial
// comment batch).
func (h *Handlers) HandleFacebookWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verifyWebhook(w, r)
	case http.MethodPost:
		h.receiveWebhook(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")
	if h.VerifyToken == "" || mode != "subscribe" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.VerifyToken)) != 1 {
		slog.Warn("webhook verification rejected", slog.String("mode", mode))
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(challenge))
}

// webhookDelivery is the subset of the Graph webhook payload we consume.
type webhookDelivery struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				Comments []struct {
					ID   string `json:"id"`
					From struct {
						Name string `json:"name"`
					} `json:"from"`
					Message     string `json:"message"`
					CreatedTime string `json:"created_time"`
				} `json:"comments"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (h *Handlers) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var delivery webhookDelivery
	if err := json.NewDecoder(r.Body).Decode(&delivery); err != nil {
		slog.Warn("webhook payload malformed", slog.Any("err", err))
		// Acknowledge anyway; Graph retries aggressively on non-2xx.
		w.WriteHeader(http.StatusOK)
		return
	}
	if h.Facebook == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	for _, entry := range delivery.Entry {
		for _, change := range entry.Changes {
			if change.Field != "live_videos" {
				continue
			}
			if change.Value.Status == "live" && change.Value.ID != "" {
				slog.Info("webhook live notification", slog.String("video_id", change.Value.ID))
				h.Facebook.NotifyLive(change.Value.ID)
			}
			if len(change.Value.Comments) > 0 {
				comments := make([]facebookapi.Comment, 0, len(change.Value.Comments))
				for _, c := range change.Value.Comments {
					ts, _ := time.Parse(time.RFC3339, c.CreatedTime)
					comments = append(comments, facebookapi.Comment{
						ID:          c.ID,
						From:        c.From.Name,
						Message:     c.Message,
						CreatedTime: ts,
					})
				}
				h.Facebook.OfferComments(comments)
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}
