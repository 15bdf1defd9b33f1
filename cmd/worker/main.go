// Package main is the entry point of the study hub background worker.
//
// The worker periodically sweeps recently active users and awards every
// badge they have become eligible for. In redis events mode it also consumes
// session-completed events relayed by the API servers and sweeps those users
// right away.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/studyhub/study-hub/config"
	"github.com/studyhub/study-hub/internal/application/command"
	"github.com/studyhub/study-hub/internal/application/eventhandler"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/infrastructure/messaging"
	"github.com/studyhub/study-hub/internal/infrastructure/metrics"
	"github.com/studyhub/study-hub/internal/infrastructure/persistence/postgres"
	"github.com/studyhub/study-hub/internal/infrastructure/persistence/redis"
	"github.com/studyhub/study-hub/internal/infrastructure/scheduler"
	"github.com/studyhub/study-hub/internal/infrastructure/scheduler/jobs"
	"github.com/studyhub/study-hub/pkg/logger"
	"github.com/studyhub/study-hub/pkg/retry"
)

const poolStatsInterval = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
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
		Service: cfg.App.Name + "-worker",
	})
	log.Info("starting study hub worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.Duration("sweep_interval", cfg.Worker.SweepInterval),
		logger.Duration("active_window", cfg.Worker.ActiveWindow),
		logger.Int("concurrency", cfg.Worker.Concurrency),
	)

	m := metrics.New(cfg.App.Name + "_worker")

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

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(db).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	sessions := postgres.NewSessionRepository(db)
	badges := postgres.NewBadgeRepository(db)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENTS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.WorkerPoolSize = cfg.Events.Workers
	busConfig.Logger = log
	busConfig.Observer = m
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer bus.Close()

	var (
		publisher shared.EventPublisher = bus
		relay     *messaging.RedisRelay
	)
	if cfg.Events.Mode == config.EventsRedis {
		client, err := redis.NewClient(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		relay, err = messaging.NewRedisRelay(messaging.RedisRelayConfig{
			Client:         client,
			Channel:        cfg.Events.Channel,
			DeliverLocally: true,
			Logger:         log,
		}, bus)
		if err != nil {
			return fmt.Errorf("failed to create event relay: %w", err)
		}
		defer relay.Close()
		publisher = relay
	}

	checkBadges := command.NewCheckAndAwardBadgesHandler(sessions, badges,
		command.WithLocation(cfg.App.Location),
		command.WithLogger(log),
		command.WithPublisher(publisher),
		command.WithRecorder(m),
	)

	if relay != nil {
		onCompleted := eventhandler.NewOnSessionCompletedHandler(checkBadges, cfg.Worker.SweepTimeout, log)
		if err := bus.Subscribe(shared.EventSessionCompleted, onCompleted.Handle); err != nil {
			return fmt.Errorf("failed to subscribe session handler: %w", err)
		}
		if err := relay.Start(ctx); err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULED JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sweep := jobs.NewSweepActiveUsersJob(
		sessions,
		checkBadges,
		retry.StoreRetrier(postgres.IsTransient),
		m,
		jobs.SweepConfig{
			ActiveWindow: cfg.Worker.ActiveWindow,
			Concurrency:  cfg.Worker.Concurrency,
			UserTimeout:  cfg.Worker.SweepTimeout,
		},
		log,
	)
	poolStats := jobs.NewPoolStatsJob(func() {
		s := db.Stats()
		m.SetPoolStats(s.TotalConns, s.IdleConns, s.AcquiredConns)
	})

	sched := scheduler.New(scheduler.Config{
		Logger:     log,
		RunOnStart: true,
		Observer: func(r scheduler.JobResult) {
			m.ObserveJob(r.JobName, r.Duration, r.Err)
		},
	})
	if err := sched.Register(sweep, scheduler.Every(cfg.Worker.SweepInterval)); err != nil {
		return err
	}
	if err := sched.Register(poolStats, scheduler.Every(poolStatsInterval)); err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. METRICS ENDPOINT
	// ─────────────────────────────────────────────────────────────────────────
	var metricsServer *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", logger.Err(err))
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("worker is running")
	<-ctx.Done()
	log.Info("shutdown signal received")

	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop failed", logger.Err(err))
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	log.Info("worker stopped")
	return nil
}
