package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomRepository "github.com/sharetube/watchparty/internal/repository/room"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/redisclient"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	MembersLimit  int           `json:"members_limit"`
	StateInterval time.Duration `json:"state_interval"`
	SendQueueSize int           `json:"send_queue_size"`
	StateTTL      time.Duration `json:"state_ttl"`
	RedisHost     string        `json:"redis_host"`
	RedisPort     int           `json:"redis_port"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MembersLimit < 0 {
		return errors.New("members limit must not be negative")
	}
	if cfg.StateInterval <= 0 {
		return errors.New("state interval must be greater than 0")
	}
	if cfg.SendQueueSize < 1 {
		return errors.New("send queue size must be greater than 0")
	}
	if cfg.RedisHost != "" && cfg.StateTTL <= 0 {
		return errors.New("state ttl must be greater than 0")
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}

	return level, nil
}

func newLogger(cfg *AppConfig) (*slog.Logger, error) {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

type roomMirror interface {
	SetRoomState(context.Context, *roomRepository.SetRoomStateParams) error
	RemoveRoom(context.Context, string) error
}

type app struct {
	handler http.Handler
	close   func(context.Context) error
}

// newApp wires repositories, the room service and the controller. The redis
// mirror is only set up when a redis host is configured.
func newApp(ctx context.Context, cfg *AppConfig, clock clockwork.Clock, logger *slog.Logger) (*app, error) {
	var rc *redis.Client
	if cfg.RedisHost != "" {
		var err error
		rc, err = redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
	}

	var roomRepo roomMirror
	if rc != nil {
		roomRepo = roomRedis.NewRepo(rc, cfg.StateTTL, logger)
	} else {
		logger.WarnContext(ctx, "redis host not set, room state mirror disabled")
	}

	connectionRepo := inmemory.NewRepo(cfg.SendQueueSize, logger)
	roomService := room.New(connectionRepo, roomRepo, &room.Config{
		MembersLimit:  cfg.MembersLimit,
		StateInterval: cfg.StateInterval,
		Clock:         clock,
		Logger:        logger,
	})
	handler := controller.NewController(roomService, connectionRepo, logger).GetMux()

	return &app{
		handler: handler,
		close: func(ctx context.Context) error {
			err := roomService.Close(ctx)
			if rc != nil {
				err = errors.Join(err, rc.Close())
			}
			return err
		},
	}, nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts down gracefully.
func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a, err := newApp(ctx, cfg, clockwork.NewRealClock(), logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.close(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return a.close(shutdownCtx)
}
