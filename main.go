// Command chatrelay ingests live chat from multiple streaming platforms and
// forwards it to an ntfy-style notification relay. It:
//   - Loads configuration and initializes structured logging.
//   - Starts one poller per configured platform (Facebook live comments, Kick
//     chatroom, YouTube live chat, Twitch IRC), each with its own live-session
//     tracking and dedup scope.
//   - Runs a single rate-limited dispatcher draining the shared outbound queue.
//   - Exposes a minimal HTTP server with /healthz, /status, /metrics, and the
//     Facebook webhook used for push-style live notifications.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lastmove/chatrelay/config"
	"github.com/lastmove/chatrelay/credentials"
	"github.com/lastmove/chatrelay/facebookapi"
	"github.com/lastmove/chatrelay/ingest"
	"github.com/lastmove/chatrelay/kickapi"
	"github.com/lastmove/chatrelay/pipeline"
	"github.com/lastmove/chatrelay/relay"
	"github.com/lastmove/chatrelay/server"
	"github.com/lastmove/chatrelay/telemetry"
	"github.com/lastmove/chatrelay/twitchapi"
	"github.com/lastmove/chatrelay/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateRelayReady(); err != nil {
		slog.Error("relay not configured", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("chatrelay", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := pipeline.NewQueue(cfg.QueueCapacity)
	sink := relay.New(cfg.NtfyServer, cfg.NtfyTopic)
	sink.Priority = cfg.NtfyPriority

	var trackers []*pipeline.SessionTracker
	var fbPoller *ingest.Facebook

	if cfg.FacebookEnabled() {
		fb := ingest.NewFacebook(&facebookapi.Client{
			PageID:      cfg.FBPageID,
			AccessToken: cfg.FBPageToken,
		}, queue, cfg.FBPollInterval)
		fbPoller = fb
		trackers = append(trackers, fb.Tracker())
		go fb.Run(ctx)
	} else {
		slog.Info("facebook poller disabled (missing FB_PAGE_ID/FB_PAGE_TOKEN)")
	}

	if cfg.KickEnabled() {
		k := ingest.NewKick(&kickapi.Client{}, cfg.KickChannel, queue, cfg.KickPollInterval, cfg.KickWindow)
		trackers = append(trackers, k.Tracker())
		go k.Run(ctx)
	} else {
		slog.Info("kick poller disabled (missing KICK_CHANNEL)")
	}

	if cfg.YouTubeEnabled() {
		yt := ingest.NewYouTube(&youtubeapi.Client{ChannelID: cfg.YouTubeChannelID},
			credentials.NewPool(cfg.YouTubeAPIKeys), queue)
		trackers = append(trackers, yt.Tracker())
		go yt.Run(ctx)
	} else {
		slog.Info("youtube poller disabled (missing YOUTUBE_CHANNEL_ID/YOUTUBE_API_KEY)")
	}

	if cfg.TwitchEnabled() {
		helix := &twitchapi.HelixClient{
			TokenSource: twitchapi.NewAppTokenSource(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret),
			ClientID:    cfg.TwitchClientID,
		}
		tw := ingest.NewTwitch(helix, cfg.TwitchChannel, cfg.TwitchBotUsername, cfg.TwitchOAuthToken,
			queue, cfg.TwitchLivePollInterval)
		trackers = append(trackers, tw.Tracker())
		go tw.Run(ctx)
	} else {
		slog.Info("twitch listener disabled (missing twitch creds)")
	}

	if len(trackers) == 0 {
		slog.Error("no platforms configured; nothing to do")
		os.Exit(1)
	}

	// Single consumer draining the queue into the relay.
	dispatcher := pipeline.NewDispatcher(queue, sink, cfg.Cooldown, cfg.PartDelay, cfg.ChunkLimit)
	go dispatcher.Run(ctx)

	// HTTP server (health/status/metrics/webhook)
	handlers := &server.Handlers{
		Queue:       queue,
		Trackers:    trackers,
		VerifyToken: cfg.FBVerifyToken,
	}
	if fbPoller != nil {
		handlers.Facebook = fbPoller
	}
	go func() {
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
