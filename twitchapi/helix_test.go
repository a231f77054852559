package twitchapi

import (
	"context"
	"net/http"
	"testing"

	"golang.org/x/oauth2"

	"github.com/lastmove/chatrelay/testutil"
)

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "apptoken"})
}

func TestGetStreamLive(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Handlers["/streams"] = func(w http.ResponseWriter, r *http.Request) {
		testutil.RequireQuery(t, r, "user_login", "somechannel")
		if got := r.Header.Get("Client-Id"); got != "cid" {
			t.Errorf("Client-Id = %q, want cid", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer apptoken" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"s1","user_login":"somechannel","title":"playing games"}]}`))
	}

	hc := &HelixClient{TokenSource: staticToken(), ClientID: "cid", BaseURL: m.URL}
	s, err := hc.GetStream(context.Background(), "somechannel")
	if err != nil {
		t.Fatalf("GetStream returned %v", err)
	}
	if s == nil || s.ID != "s1" || s.Title != "playing games" {
		t.Errorf("stream = %+v", s)
	}
}

func TestGetStreamOffline(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/streams", map[string]any{"data": []any{}})

	hc := &HelixClient{TokenSource: staticToken(), ClientID: "cid", BaseURL: m.URL}
	s, err := hc.GetStream(context.Background(), "somechannel")
	if err != nil {
		t.Fatalf("GetStream returned %v", err)
	}
	if s != nil {
		t.Errorf("stream = %+v, want nil when offline", s)
	}
}

func TestGetStreamErrors(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Status("/streams", http.StatusUnauthorized, map[string]any{"message": "invalid token"})

	hc := &HelixClient{TokenSource: staticToken(), ClientID: "cid", BaseURL: m.URL}
	if _, err := hc.GetStream(context.Background(), "somechannel"); err == nil {
		t.Error("expected error on HTTP 401")
	}
	if _, err := hc.GetStream(context.Background(), ""); err == nil {
		t.Error("expected error on empty login")
	}
}
