package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"

	"github.com/sharetube/watchparty/internal/client"
	"github.com/sharetube/watchparty/internal/domain"
)

type config struct {
	url       string
	mediaURL  string
	roomID    string
	name      string
	host      bool
	videoID   string
	streamURL string
	duration  time.Duration
}

func loadConfig() (*config, error) {
	cfg := &config{}
	pflag.StringVar(&cfg.url, "url", "ws://localhost:8080/api/v1/ws", "Server websocket url")
	pflag.StringVar(&cfg.mediaURL, "media-url", "http://localhost:8080/", "Base url stream urls are resolved against")
	pflag.StringVar(&cfg.roomID, "room", "", "Room to join")
	pflag.StringVar(&cfg.name, "name", "watcher", "Display name")
	pflag.BoolVar(&cfg.host, "host", false, "Claim host and drive playback")
	pflag.StringVar(&cfg.videoID, "video-id", "", "Video to set when hosting")
	pflag.StringVar(&cfg.streamURL, "stream-url", "", "Stream url of the video")
	pflag.DurationVar(&cfg.duration, "duration", 0, "Stop after this long, 0 runs until interrupted")
	pflag.Parse()

	if cfg.roomID == "" {
		return nil, errors.New("--room is required")
	}
	if cfg.videoID != "" && cfg.streamURL == "" {
		return nil, errors.New("--stream-url is required with --video-id")
	}

	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		pflag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if err := run(cfg, logger); err != nil {
		logger.Error("watcher failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	clock := clockwork.NewRealClock()
	session, err := client.Dial(ctx, &client.Config{URL: cfg.url, Clock: clock, Logger: logger})
	if err != nil {
		return err
	}
	defer session.Close()

	baseURL, err := url.Parse(cfg.mediaURL)
	if err != nil {
		return fmt.Errorf("invalid media url: %w", err)
	}

	media := newSimulatedMedia(clock)
	reconciler := client.NewReconciler(media, &client.ReconcilerConfig{BaseURL: baseURL, Clock: clock, Logger: logger})
	heartbeat := client.NewHeartbeat(session, media, &client.HeartbeatConfig{Clock: clock, Logger: logger})
	hostController := client.NewHostController(session, heartbeat)
	defer hostController.Close()

	session.SetStateHandler(func(state domain.RoomState) {
		if err := reconciler.Apply(state.Playback); err != nil {
			logger.Warn("failed to reconcile", "error", err)
		}
		hostController.OnState(state)
		logger.Info("room state",
			"participants", len(state.Participants),
			"playing", state.Playback.IsPlaying,
			"current_time", state.Playback.CurrentTime,
			"local_position", media.Position(),
			"reconciler", reconciler.State().String(),
		)
	})

	if _, err := session.Join(ctx, cfg.roomID, cfg.name); err != nil {
		return fmt.Errorf("failed to join %s: %w", cfg.roomID, err)
	}
	logger.Info("joined room", "room_id", cfg.roomID)

	if cfg.host {
		if err := startHosting(ctx, cfg, session, hostController, media); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
	case <-session.Done():
		return errors.New("connection closed by server")
	}

	leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cfg.host {
		if err := hostController.Pause(leaveCtx, media.Position()); err != nil {
			logger.Warn("failed to pause", "error", err)
		}
	}

	return session.Leave(leaveCtx)
}

func startHosting(ctx context.Context, cfg *config, session *client.Session, hostController *client.HostController, media *simulatedMedia) error {
	if _, err := session.ClaimHost(ctx); err != nil {
		return fmt.Errorf("failed to claim host: %w", err)
	}

	if cfg.videoID != "" {
		if err := session.SetVideo(ctx, cfg.videoID, cfg.streamURL); err != nil {
			return fmt.Errorf("failed to set video: %w", err)
		}
	}

	if err := media.Play(); err != nil {
		return err
	}

	return hostController.Play(ctx, media.Position())
}
