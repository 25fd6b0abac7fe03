package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 0,
	}
	stateInterval = configVar[time.Duration]{
		envKey:       "SERVER_STATE_INTERVAL",
		flagKey:      "state-interval",
		defaultValue: 5 * time.Second,
	}
	sendQueueSize = configVar[int]{
		envKey:       "SERVER_SEND_QUEUE_SIZE",
		flagKey:      "send-queue-size",
		defaultValue: 64,
	}
	stateTTL = configVar[time.Duration]{
		envKey:       "SERVER_STATE_TTL",
		flagKey:      "state-ttl",
		defaultValue: time.Hour,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() (*app.AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of members in a room, 0 is unlimited")
	pflag.Duration(stateInterval.flagKey, stateInterval.defaultValue, "Interval of room state repeats while playing")
	pflag.Int(sendQueueSize.flagKey, sendQueueSize.defaultValue, "Outbound message queue size per connection")
	pflag.Duration(stateTTL.flagKey, stateTTL.defaultValue, "TTL of room state mirrored to redis")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host, empty disables the state mirror")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	bind(host)
	bind(port)
	bind(logLevel)
	bind(membersLimit)
	bind(stateInterval)
	bind(sendQueueSize)
	bind(stateTTL)
	bind(redisHost)
	bind(redisPort)
	bind(redisPassword)

	config := &app.AppConfig{
		Host:          viper.GetString(host.flagKey),
		Port:          viper.GetInt(port.flagKey),
		LogLevel:      viper.GetString(logLevel.flagKey),
		MembersLimit:  viper.GetInt(membersLimit.flagKey),
		StateInterval: viper.GetDuration(stateInterval.flagKey),
		SendQueueSize: viper.GetInt(sendQueueSize.flagKey),
		StateTTL:      viper.GetDuration(stateTTL.flagKey),
		RedisHost:     viper.GetString(redisHost.flagKey),
		RedisPort:     viper.GetInt(redisPort.flagKey),
		RedisPassword: viper.GetString(redisPassword.flagKey),
	}

	return config, config.Validate()
}

func main() {
	ctx := context.Background()

	appConfig, err := loadAppConfig()
	if err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
