package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/lastmove/chatrelay/facebookapi"
	"github.com/lastmove/chatrelay/pipeline"
)

type fakeNotifier struct {
	liveIDs  []string
	comments []facebookapi.Comment
}

func (f *fakeNotifier) NotifyLive(videoID string) { f.liveIDs = append(f.liveIDs, videoID) }
func (f *fakeNotifier) OfferComments(comments []facebookapi.Comment) {
	f.comments = append(f.comments, comments...)
}

func newTestHandlers() (*Handlers, *fakeNotifier) {
	fb := &fakeNotifier{}
	return &Handlers{
		Queue:       pipeline.NewQueue(10),
		VerifyToken: "secret123",
		Facebook:    fb,
	}, fb
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandlers()
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header missing")
	}
}

func TestCorrelationIDReused(t *testing.T) {
	h, _ := newTestHandlers()
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Correlation-ID"); got != "corr-42" {
		t.Errorf("X-Correlation-ID = %q, want corr-42", got)
	}
}

func TestStatus(t *testing.T) {
	h, _ := newTestHandlers()
	kick := pipeline.NewSessionTracker(pipeline.PlatformKick)
	kick.SetLive("555")
	yt := pipeline.NewSessionTracker(pipeline.PlatformYouTube)
	h.Trackers = []*pipeline.SessionTracker{kick, yt}
	h.Queue.Push(pipeline.PlatformKick, pipeline.OutboundItem{Title: "Kick", Text: "x"})

	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Platforms map[string]struct {
			State     string `json:"state"`
			SessionID string `json:"session_id"`
		} `json:"platforms"`
		QueueDepth int `json:"queue_depth"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body.QueueDepth != 1 {
		t.Errorf("queue_depth = %d, want 1", body.QueueDepth)
	}
	if p := body.Platforms["Kick"]; p.State != "live" || p.SessionID != "555" {
		t.Errorf("Kick status = %+v", p)
	}
	if p := body.Platforms["YouTube"]; p.State != "searching" {
		t.Errorf("YouTube state = %q, want searching", p.State)
	}
}

func TestWebhookVerification(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		token      string
		challenge  string
		wantStatus int
		wantBody   string
	}{
		{"valid handshake", "subscribe", "secret123", "challenge-xyz", http.StatusOK, "challenge-xyz"},
		{"wrong token", "subscribe", "wrong", "c", http.StatusForbidden, ""},
		{"wrong mode", "unsubscribe", "secret123", "c", http.StatusForbidden, ""},
		{"missing params", "", "", "", http.StatusForbidden, ""},
	}
	h, _ := newTestHandlers()
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			q.Set("hub.mode", tt.mode)
			q.Set("hub.verify_token", tt.token)
			q.Set("hub.challenge", tt.challenge)
			resp, err := http.Get(srv.URL + "/webhook/facebook?" + q.Encode())
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
		})
	}
}

func TestWebhookVerificationRejectedWithoutConfiguredToken(t *testing.T) {
	h, _ := newTestHandlers()
	h.VerifyToken = ""
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/webhook/facebook?hub.mode=subscribe&hub.verify_token=&hub.challenge=c")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403 when no token is configured", resp.StatusCode)
	}
}

func TestWebhookLiveDelivery(t *testing.T) {
	h, fb := newTestHandlers()
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	payload := `{
		"object": "page",
		"entry": [{
			"changes": [{
				"field": "live_videos",
				"value": {
					"id": "v42",
					"status": "live",
					"comments": [
						{"id": "c1", "from": {"name": "alice"}, "message": "hi", "created_time": "2024-06-01T12:00:00Z"}
					]
				}
			}]
		}]
	}`
	resp, err := http.Post(srv.URL+"/webhook/facebook", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if len(fb.liveIDs) != 1 || fb.liveIDs[0] != "v42" {
		t.Errorf("live ids = %v, want [v42]", fb.liveIDs)
	}
	if len(fb.comments) != 1 || fb.comments[0].From != "alice" {
		t.Errorf("comments = %+v", fb.comments)
	}
}

func TestWebhookIgnoresUnrelatedFields(t *testing.T) {
	h, fb := newTestHandlers()
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	payload := `{"entry":[{"changes":[{"field":"feed","value":{"id":"x","status":"live"}}]}]}`
	resp, err := http.Post(srv.URL+"/webhook/facebook", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if len(fb.liveIDs) != 0 {
		t.Errorf("live ids = %v, want none for unrelated field", fb.liveIDs)
	}
}

func TestWebhookMalformedPayloadStillAcknowledged(t *testing.T) {
	h, fb := newTestHandlers()
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook/facebook", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 so Graph does not retry", resp.StatusCode)
	}
	if len(fb.liveIDs) != 0 {
		t.Errorf("live ids = %v, want none", fb.liveIDs)
	}
}

func TestWebhookWithoutNotifier(t *testing.T) {
	h, _ := newTestHandlers()
	h.Facebook = nil
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	payload := `{"entry":[{"changes":[{"field":"live_videos","value":{"id":"v1","status":"live"}}]}]}`
	resp, err := http.Post(srv.URL+"/webhook/facebook", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandlers()
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/webhook/facebook", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
