// Package twitchapi contains a minimal Twitch Helix client used to gate the
// chat listener on live status, using an app access (client credentials)
// token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultHelixURL = "https://api.twitch.tv/helix"

// NewAppTokenSource returns a cached client-credentials token source for the
// Helix API. The token cannot be used for IRC chat; chat needs a user OAuth
// token with chat:read scope.
func NewAppTokenSource(ctx context.Context, clientID, clientSecret string) oauth2.TokenSource {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://id.twitch.tv/oauth2/token",
	}
	return oauth2.ReuseTokenSource(nil, conf.TokenSource(ctx))
}

// HelixClient provides the single method needed for live detection.
type HelixClient struct {
	TokenSource oauth2.TokenSource
	ClientID    string
	BaseURL     string // overridable for tests
	HTTPClient  *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultHelixURL
}

// Stream is the subset of a Helix stream entry the listener needs.
type Stream struct {
	ID        string `json:"id"`
	UserLogin string `json:"user_login"`
	Title     string `json:"title"`
}

// GetStream returns the channel's active stream, or nil when offline.
func (hc *HelixClient) GetStream(ctx context.Context, login string) (*Stream, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	tok, err := hc.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("app token: %w", err)
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+"/streams", nil)
	q := req.URL.Query()
	q.Set("user_login", login)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("streams request failed: status %d", resp.StatusCode)
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	return &body.Data[0], nil
}
