package facebookapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/lastmove/chatrelay/testutil"
)

func newTestClient(m *testutil.MockAPIServer) *Client {
	return &Client{PageID: "page1", AccessToken: "tok", BaseURL: m.URL}
}

func TestFindLiveVideo(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.Handlers["/page1/videos"] = func(w http.ResponseWriter, r *http.Request) {
		testutil.RequireQuery(t, r, "access_token", "tok")
		_ = json.NewEncoder(w).Encode(testutil.FBVideosBody("v42", true))
	}

	v, err := newTestClient(m).FindLiveVideo(context.Background())
	if err != nil {
		t.Fatalf("FindLiveVideo returned %v", err)
	}
	if v == nil || v.ID != "v42" {
		t.Errorf("video = %+v, want ID v42", v)
	}
}

func TestFindLiveVideoOffline(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/page1/videos", testutil.FBVideosBody("v42", false))

	v, err := newTestClient(m).FindLiveVideo(context.Background())
	if err != nil {
		t.Fatalf("FindLiveVideo returned %v", err)
	}
	if v != nil {
		t.Errorf("video = %+v, want nil when nothing is live", v)
	}
}

func TestFindLiveVideoAuthError(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/page1/videos", testutil.GraphError(190, "OAuthException", "token expired"))

	_, err := newTestClient(m).FindLiveVideo(context.Background())
	if err == nil {
		t.Fatal("expected error from OAuthException response")
	}
	if !IsAuthError(err) {
		t.Errorf("IsAuthError(%v) = false, want true", err)
	}
}

func TestListComments(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/v42/comments", testutil.FBCommentsBody(
		[4]string{"c1", "alice", "hello", "2024-06-01T12:00:00+0000"},
		[4]string{"c2", "bob", "hi", "2024-06-01T12:00:05+0000"},
	))

	got, err := newTestClient(m).ListComments(context.Background(), "v42", time.Time{})
	if err != nil {
		t.Fatalf("ListComments returned %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("comments = %d, want 2", len(got))
	}
	if got[0].ID != "c1" || got[0].From != "alice" || got[0].Message != "hello" {
		t.Errorf("first comment = %+v", got[0])
	}
	if got[1].CreatedTime.UTC() != time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC) {
		t.Errorf("created time = %v", got[1].CreatedTime)
	}
}

func TestListCommentsSinceFilter(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/v42/comments", testutil.FBCommentsBody(
		[4]string{"c1", "alice", "old", "2024-06-01T12:00:00+0000"},
		[4]string{"c2", "bob", "boundary", "2024-06-01T12:00:10+0000"},
		[4]string{"c3", "carol", "new", "2024-06-01T12:00:11+0000"},
	))

	since := time.Date(2024, 6, 1, 12, 0, 10, 0, time.UTC)
	got, err := newTestClient(m).ListComments(context.Background(), "v42", since)
	if err != nil {
		t.Fatalf("ListComments returned %v", err)
	}
	// The boundary second is kept: Graph timestamps are second-precision, so a
	// comment sharing the cursor's second must come back (dedup drops refetches).
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c3" {
		t.Errorf("comments after since = %+v, want c2 and c3", got)
	}
}

func TestListCommentsAcceptsRFC3339Timestamps(t *testing.T) {
	m := testutil.NewMockAPIServer(t)
	m.JSON("/v42/comments", testutil.FBCommentsBody(
		[4]string{"c1", "alice", "hello", "2024-06-01T12:00:00Z"},
	))

	got, err := newTestClient(m).ListComments(context.Background(), "v42", time.Time{})
	if err != nil {
		t.Fatalf("ListComments returned %v", err)
	}
	if len(got) != 1 || got[0].CreatedTime.IsZero() {
		t.Errorf("comments = %+v, want one with parsed timestamp", got)
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"oauth exception", &apiError{Type: "OAuthException", Code: 460}, true},
		{"code 190", &apiError{Type: "GraphMethodException", Code: 190}, true},
		{"other graph error", &apiError{Type: "GraphMethodException", Code: 100}, false},
		{"wrapped", errors.Join(errors.New("fetch"), &apiError{Code: 190}), true},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError = %v, want %v", got, tt.want)
			}
		})
	}
}
