// Package main is the entry point of the study hub API server.
//
// The server records study sessions, serves badges and leaderboards, and
// awards badges. In local events mode it also runs the badge sweep after
// every completed session; in redis mode it relays those events to the worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studyhub/study-hub/config"
	"github.com/studyhub/study-hub/internal/application/command"
	"github.com/studyhub/study-hub/internal/application/eventhandler"
	"github.com/studyhub/study-hub/internal/application/query"
	"github.com/studyhub/study-hub/internal/domain/leaderboard"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/infrastructure/messaging"
	"github.com/studyhub/study-hub/internal/infrastructure/metrics"
	"github.com/studyhub/study-hub/internal/infrastructure/persistence/postgres"
	"github.com/studyhub/study-hub/internal/infrastructure/persistence/redis"
	httpapi "github.com/studyhub/study-hub/internal/interface/http"
	"github.com/studyhub/study-hub/internal/interface/http/handlers"
	"github.com/studyhub/study-hub/pkg/logger"
)

func main() {
	migrate := flag.String("migrate", "", "run a migration action (up, down, status) and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, migrateAction string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:  os.Stdout,
		Level:   logger.ParseLevel(cfg.Observability.LogLevel),
		Service: cfg.App.Name + "-server",
	})
	log.Info("starting study hub server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("events_mode", string(cfg.Events.Mode)),
	)

	m := metrics.New(cfg.App.Name + "_server")

	// ─────────────────────────────────────────────────────────────────────────
	// 2. POSTGRES
	// ─────────────────────────────────────────────────────────────────────────
	db, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if migrateAction != "" {
		log.Info("running migrations", logger.String("action", migrateAction))
		return runMigrationCommand(ctx, postgres.NewMigrator(db), migrateAction, os.Stdout)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(db).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	sessions := postgres.NewSessionRepository(db)
	badges := postgres.NewBadgeRepository(db)
	friends := postgres.NewFriendRepository(db)
	boards := postgres.NewLeaderboardRepository(db)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional unless events are relayed)
	// ─────────────────────────────────────────────────────────────────────────
	var redisClient *goredis.Client
	if !cfg.Redis.Disabled {
		redisClient, err = redis.NewClient(ctx, redisConfig(cfg.Redis))
		switch {
		case err != nil && cfg.Events.Mode == config.EventsRedis:
			return fmt.Errorf("failed to connect to redis: %w", err)
		case err != nil:
			log.Warn("redis unavailable, profile cache disabled", logger.Err(err))
		default:
			defer redisClient.Close()
		}
	}

	var profiles leaderboard.ProfileLookup = boards
	if redisClient != nil {
		profiles = redis.NewProfileCache(redisClient, boards, cfg.Redis.ProfileTTL, m, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENTS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.WorkerPoolSize = cfg.Events.Workers
	busConfig.Logger = log
	busConfig.Observer = m
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer bus.Close()

	var publisher shared.EventPublisher = bus
	if cfg.Events.Mode == config.EventsRedis {
		relay, err := messaging.NewRedisRelay(messaging.RedisRelayConfig{
			Client:  redisClient,
			Channel: cfg.Events.Channel,
			Logger:  log,
		}, bus)
		if err != nil {
			return fmt.Errorf("failed to create event relay: %w", err)
		}
		defer relay.Close()
		publisher = relay
	}

	commandOpts := []command.Option{
		command.WithLocation(cfg.App.Location),
		command.WithLogger(log),
		command.WithPublisher(publisher),
		command.WithRecorder(m),
	}
	checkBadges := command.NewCheckAndAwardBadgesHandler(sessions, badges, commandOpts...)

	if cfg.Events.Mode == config.EventsLocal {
		onCompleted := eventhandler.NewOnSessionCompletedHandler(checkBadges, cfg.Worker.SweepTimeout, log)
		if err := bus.Subscribe(shared.EventSessionCompleted, onCompleted.Handle); err != nil {
			return fmt.Errorf("failed to subscribe session handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.PingCheck(db))
	if redisClient != nil {
		health.AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	deps := httpapi.Dependencies{
		GetAllBadges:  query.NewGetAllBadgesHandler(badges),
		GetUserBadges: query.NewGetUserBadgesHandler(sessions, badges, cfg.App.Location),
		GetLeaderboards: query.NewGetLeaderboardsHandler(friends, boards, profiles, query.LeaderboardsConfig{
			MaxLimit:  cfg.Leaderboard.MaxLimit,
			SelfLabel: cfg.Leaderboard.SelfLabel,
		}, m, log),
		AwardBadge:      command.NewAwardBadgeHandler(badges, commandOpts...),
		CheckBadges:     checkBadges,
		CompleteSession: command.NewCompleteSessionHandler(sessions, commandOpts...),
		RequestObserver: m,
		HealthChecker:   health,
		Logger:          log,
	}
	if cfg.Observability.MetricsEnabled {
		deps.Metrics = m.Handler()
	}

	server := httpapi.NewServer(httpapi.Config{
		Host:                    cfg.HTTP.Host,
		Port:                    cfg.HTTP.Port,
		ReadTimeout:             cfg.HTTP.ReadTimeout,
		WriteTimeout:            cfg.HTTP.WriteTimeout,
		IdleTimeout:             cfg.HTTP.IdleTimeout,
		MaxBodyBytes:            cfg.HTTP.MaxBodyBytes,
		DefaultLeaderboardLimit: cfg.Leaderboard.DefaultLimit,
		Version:                 cfg.App.Version,
	}, deps)

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("http shutdown failed", logger.Err(err))
	}

	log.Info("server stopped")
	return nil
}

func redisConfig(c config.RedisConfig) redis.Config {
	return redis.Config{
		URL:          c.URL,
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
