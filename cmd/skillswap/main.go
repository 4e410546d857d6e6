package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Freeeeeet/skillswap/internal/app"
	"github.com/Freeeeeet/skillswap/internal/config"
	"github.com/Freeeeeet/skillswap/internal/metrics"
	"github.com/Freeeeeet/skillswap/internal/notify"
	"github.com/Freeeeeet/skillswap/internal/ratelimit"
	"github.com/Freeeeeet/skillswap/internal/service"
	"github.com/Freeeeeet/skillswap/migrations"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to the .env file")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogFile)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *migrateOnly, logger); err != nil {
		logger.Fatal("Skillswap stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, migrateOnly bool, logger *zap.Logger) error {
	logger.Info("Starting skillswap",
		zap.String("environment", cfg.Environment),
		zap.Bool("migrate_only", migrateOnly))

	shutdownTracing, err := app.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	migrator, err := app.NewMigrator(pool, migrations.FS, logger)
	if err != nil {
		return err
	}
	err = migrator.Run(ctx)
	migrator.Close()
	if err != nil {
		return err
	}
	if migrateOnly {
		return nil
	}

	stores, users := app.NewStores(pool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	notifier, err := newNotifier(cfg, users, logger)
	if err != nil {
		return err
	}

	limiter, pruner, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	core := app.NewCore(stores, cfg, notifier, limiter, m, logger)

	scheduler := app.NewScheduler(core.Sessions, cfg.SweepInterval, pruner, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

		go func() {
			logger.Info("Serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down skillswap")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
	}
	return nil
}

func newNotifier(cfg *config.Config, users notify.Directory, logger *zap.Logger) (service.Notifier, error) {
	var sinks notify.Multi

	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.NewTelegramSink(b, users, logger))
	}

	if cfg.SMTP.Enabled() {
		sinks = append(sinks, notify.NewEmailSink(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, users,
		))
	}

	if len(sinks) == 0 {
		logger.Warn("No notification channels configured")
		return notify.Nop{}, nil
	}
	logger.Info("Notification channels configured", zap.Int("channels", len(sinks)))
	return sinks, nil
}

// newLimiter выбирает общий redis-лимитер, если он настроен. Иначе лимит
// считается в памяти процесса, и его нужно периодически чистить.
func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.RateLimiter, app.Pruner, func(), error) {
	if !cfg.Redis.Enabled() {
		window := ratelimit.NewSlidingWindow(cfg.ContactLimit, cfg.ContactWindow)
		return window, window, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	logger.Info("Using redis rate limiter", zap.String("addr", cfg.Redis.Addr))
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	return ratelimit.NewRedisLimiter(client, "skillswap:", cfg.ContactLimit, cfg.ContactWindow), nil, closeClient, nil
}
