package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendPostsBodyAndHeaders(t *testing.T) {
	var gotPath, gotTitle, gotPriority, gotAttach, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotAttach = r.Header.Get("Attach")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "stream-chat")
	c.Priority = "high"
	err := c.Send(context.Background(), "Kick", "alice: hello", "https://files.kick.com/emotes/7/fullsize")
	if err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if gotPath != "/stream-chat" {
		t.Errorf("path = %q, want /stream-chat", gotPath)
	}
	if gotTitle != "Kick" {
		t.Errorf("Title = %q, want Kick", gotTitle)
	}
	if gotPriority != "high" {
		t.Errorf("Priority = %q, want high", gotPriority)
	}
	if gotAttach != "https://files.kick.com/emotes/7/fullsize" {
		t.Errorf("Attach = %q", gotAttach)
	}
	if gotBody != "alice: hello" {
		t.Errorf("body = %q, want %q", gotBody, "alice: hello")
	}
}

func TestSendOmitsEmptyHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Title"]; ok {
			t.Error("Title header should be absent")
		}
		if _, ok := r.Header["Attach"]; ok {
			t.Error("Attach header should be absent")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "t")
	if err := c.Send(context.Background(), "", "body", ""); err != nil {
		t.Fatalf("Send returned %v", err)
	}
}

func TestSendTopicAsFullURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New("https://ntfy.sh", server.URL+"/custom/topic")
	if err := c.Send(context.Background(), "t", "b", ""); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	if gotPath != "/custom/topic" {
		t.Errorf("path = %q, want /custom/topic", gotPath)
	}
}

func TestSendNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(server.URL, "t")
	if err := c.Send(context.Background(), "t", "b", ""); err == nil {
		t.Fatal("Send should fail on HTTP 429")
	}
}

func TestSendMissingTopic(t *testing.T) {
	c := New("https://ntfy.sh", "")
	if err := c.Send(context.Background(), "t", "b", ""); err == nil {
		t.Fatal("Send should fail without a topic")
	}
}

func TestNewDefaultsServer(t *testing.T) {
	c := New("", "topic")
	if c.BaseURL != "https://ntfy.sh" {
		t.Errorf("BaseURL = %q, want https://ntfy.sh", c.BaseURL)
	}
}
