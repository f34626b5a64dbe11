package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrSnakeDoc/dialcast/internal/config"
	"github.com/MrSnakeDoc/dialcast/internal/dial"
	"github.com/MrSnakeDoc/dialcast/internal/events"
	"github.com/MrSnakeDoc/dialcast/internal/logger"
	"github.com/MrSnakeDoc/dialcast/internal/redis"
	"github.com/MrSnakeDoc/dialcast/internal/utils"
	"github.com/MrSnakeDoc/dialcast/internal/version"
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	service   *dial.Service
	publisher events.Publisher
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	publisher := newPublisher(cfg, loggerClient)

	service, err := dial.New(cfg, loggerClient, dial.Options{Events: publisher})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		service:   service,
		publisher: publisher,
	}, nil
}

// newPublisher connects to Redis when configured. Events are optional, so a
// broker that cannot be reached only costs a warning.
func newPublisher(cfg *config.Config, log logger.Logger) events.Publisher {
	if cfg.Redis.Addr == "" {
		log.Debug("redis not configured, launch events disabled")
		return events.Nop{}
	}

	client, err := redis.New(context.Background(), redis.ConnectOptions{
		Addr:           cfg.Redis.Addr,
		User:           cfg.Redis.Username,
		Password:       cfg.Redis.Password,
		DB:             cfg.Redis.DB,
		ConnectTimeout: cfg.Redis.ConnectTimeout,
		RetryInterval:  cfg.Redis.RetryInterval,
		MaxWait:        cfg.Redis.MaxWait,
		PingTimeout:    cfg.Redis.PingTimeout,
	}, log.Named("redis"))
	if err != nil {
		log.Warn("launch events disabled, redis unavailable", logger.Error(err))
		return events.Nop{}
	}

	log.Info("publishing launch events",
		logger.String("addr", cfg.Redis.Addr),
		logger.String("channel", cfg.Redis.Channel))
	return events.NewRedisPublisher(client, cfg.Redis.Channel)
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting dialcast %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.service.Start(ctx); err != nil {
		utils.Close(a.publisher)
		return err
	}

	a.logger.Info("receiver ready",
		logger.String("friendly_name", a.cfg.FriendlyName),
		logger.String("application_url", a.service.ApplicationURL()),
		logger.String("tv_code", a.service.Pairing().Formatted()),
		logger.Bool("pairing_required", a.cfg.RequirePairingCode))

	<-ctx.Done()
	a.logger.Info("⏳ Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	stopErr := a.service.Stop(shutdownCtx)

	utils.CloseLogged(a.publisher, "event publisher", a.logger)

	if stopErr != nil {
		return stopErr
	}

	a.logger.Info("✅ dialcast stopped cleanly")
	return nil
}
