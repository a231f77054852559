// Package testutil provides mock platform API servers shared by tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockAPIServer is a test server routing by URL path. Register handlers for
// the endpoints a test exercises; everything else 404s.
type MockAPIServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockAPIServer creates a path-routed test server, closed via t.Cleanup.
func NewMockAPIServer(t *testing.T) *MockAPIServer {
	t.Helper()
	m := &MockAPIServer{Handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// JSON registers a handler that always replies 200 with body.
func (m *MockAPIServer) JSON(path string, body any) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
	}
}

// Status registers a handler that replies with the given status and body.
func (m *MockAPIServer) Status(path string, code int, body any) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
		}
	}
}

// GoogleAPIError builds the error envelope googleapi.CheckResponse parses.
func GoogleAPIError(code int, reason, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"errors": []map[string]any{
				{"reason": reason, "message": message},
			},
		},
	}
}

// GraphError builds the Facebook Graph error envelope.
func GraphError(code int, errType, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"type":    errType,
			"message": message,
		},
	}
}

// KickMessagesBody builds the chatroom messages payload. Each message is
// (id, author, text); empty id entries model payloads without platform ids.
func KickMessagesBody(msgs ...[3]string) map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]any{
			"id":      m[0],
			"sender":  map[string]any{"username": m[1]},
			"content": m[2],
		})
	}
	return map[string]any{"messages": out}
}

// FBVideosBody builds a page videos listing with one live entry when live.
func FBVideosBody(videoID string, live bool) map[string]any {
	status := "VOD"
	if live {
		status = "LIVE"
	}
	return map[string]any{
		"data": []map[string]any{
			{"id": videoID, "live_status": status, "description": "stream"},
		},
	}
}

// FBCommentsBody builds a comments page from (id, author, message, createdTime) rows.
func FBCommentsBody(rows ...[4]string) map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"id":           r[0],
			"from":         map[string]any{"name": r[1]},
			"message":      r[2],
			"created_time": r[3],
		})
	}
	return map[string]any{"data": out}
}

// YTSearchBody builds a live search result with one video.
func YTSearchBody(videoID string) map[string]any {
	if videoID == "" {
		return map[string]any{"items": []any{}}
	}
	return map[string]any{
		"items": []map[string]any{
			{"id": map[string]any{"videoId": videoID}},
		},
	}
}

// YTVideoBody builds the liveStreamingDetails lookup for one video.
func YTVideoBody(videoID, liveChatID string) map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"id": videoID, "liveStreamingDetails": map[string]any{"activeLiveChatId": liveChatID}},
		},
	}
}

// YTChatBody builds one live chat page from (id, author, text) rows.
func YTChatBody(nextToken string, pollMillis int64, rows ...[3]string) map[string]any {
	items := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		items = append(items, map[string]any{
			"id":            r[0],
			"authorDetails": map[string]any{"displayName": r[1]},
			"snippet": map[string]any{
				"displayMessage": r[2],
				"publishedAt":    "2024-06-01T12:00:00Z",
			},
		})
	}
	return map[string]any{
		"items":                 items,
		"nextPageToken":         nextToken,
		"pollingIntervalMillis": pollMillis,
	}
}

// Sequence returns a handler that replies with each body in turn, repeating
// the last one once exhausted.
func Sequence(bodies ...any) http.HandlerFunc {
	i := 0
	return func(w http.ResponseWriter, r *http.Request) {
		body := bodies[len(bodies)-1]
		if i < len(bodies) {
			body = bodies[i]
			i++
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
	}
}

// RequireQuery fails the test when the request lacks the query parameter.
func RequireQuery(t *testing.T, r *http.Request, key, want string) {
	t.Helper()
	if got := r.URL.Query().Get(key); got != want {
		t.Errorf("query %s = %q, want %q", key, got, want)
	}
}
