// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup;
// platforms whose credentials are missing are simply skipped at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Relay (ntfy-style notification sink)
	NtfyServer   string
	NtfyTopic    string
	NtfyPriority string

	// Facebook
	FBPageID       string
	FBPageToken    string
	FBVerifyToken  string
	FBPollInterval time.Duration

	// Kick
	KickChannel      string
	KickPollInterval time.Duration
	KickWindow       time.Duration

	// YouTube
	YouTubeChannelID string
	YouTubeAPIKeys   []string

	// Twitch
	TwitchChannel          string
	TwitchBotUsername      string
	TwitchOAuthToken       string
	TwitchClientID         string
	TwitchClientSecret     string
	TwitchLivePollInterval time.Duration

	// Pipeline
	Cooldown      time.Duration
	PartDelay     time.Duration
	ChunkLimit    int
	QueueCapacity int

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It never fails on
// missing credentials; use the *Enabled methods to decide which pollers to
// start.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.NtfyServer = getenv("NTFY_SERVER", "https://ntfy.sh")
	cfg.NtfyTopic = os.Getenv("NTFY_TOPIC")
	cfg.NtfyPriority = os.Getenv("NTFY_PRIORITY")

	// A generic POLL_INTERVAL seeds every platform; per-platform overrides win.
	base, err := duration("POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.FBPageID = os.Getenv("FB_PAGE_ID")
	cfg.FBPageToken = os.Getenv("FB_PAGE_TOKEN")
	cfg.FBVerifyToken = os.Getenv("FB_VERIFY_TOKEN")
	if cfg.FBPollInterval, err = duration("FB_POLL_INTERVAL", base); err != nil {
		return nil, err
	}

	cfg.KickChannel = os.Getenv("KICK_CHANNEL")
	if cfg.KickPollInterval, err = duration("KICK_POLL_INTERVAL", base); err != nil {
		return nil, err
	}
	if cfg.KickWindow, err = duration("KICK_WINDOW", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.YouTubeChannelID = os.Getenv("YOUTUBE_CHANNEL_ID")
	for _, k := range strings.Split(os.Getenv("YOUTUBE_API_KEY"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			cfg.YouTubeAPIKeys = append(cfg.YouTubeAPIKeys, k)
		}
	}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	if cfg.TwitchLivePollInterval, err = duration("TWITCH_LIVE_POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.Cooldown, err = duration("MESSAGE_COOLDOWN", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PartDelay, err = duration("PART_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.ChunkLimit, err = integer("CHUNK_LIMIT", 200); err != nil {
		return nil, err
	}
	if cfg.QueueCapacity, err = integer("QUEUE_CAPACITY", 256); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")

	return cfg, nil
}

// FacebookEnabled reports whether the Facebook poller has what it needs.
func (c *Config) FacebookEnabled() bool {
	return c.FBPageID != "" && c.FBPageToken != ""
}

// KickEnabled reports whether the Kick poller has what it needs.
func (c *Config) KickEnabled() bool {
	return c.KickChannel != ""
}

// YouTubeEnabled reports whether the YouTube poller has what it needs.
func (c *Config) YouTubeEnabled() bool {
	return c.YouTubeChannelID != "" && len(c.YouTubeAPIKeys) > 0
}

// TwitchEnabled reports whether the Twitch listener has what it needs.
func (c *Config) TwitchEnabled() bool {
	return c.TwitchChannel != "" && c.TwitchBotUsername != "" && c.TwitchOAuthToken != "" &&
		c.TwitchClientID != "" && c.TwitchClientSecret != ""
}

// ValidateRelayReady errors when no notification topic is configured.
func (c *Config) ValidateRelayReady() error {
	if c.NtfyTopic == "" {
		return fmt.Errorf("NTFY_TOPIC not set")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// duration parses key as a Go duration, accepting a bare number as seconds
// for compatibility with older deployments.
func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("invalid %s: must be positive", key)
		}
		return d, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid %s: %q", key, v)
}

func integer(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
