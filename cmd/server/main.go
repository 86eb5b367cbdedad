// Command server runs the profile API.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profileapi/internal/bootstrap"
	"profileapi/internal/config"
	"profileapi/internal/job"
	"profileapi/internal/middleware"
	"profileapi/internal/notifications"
	"profileapi/internal/observability"
	"profileapi/internal/server"
)

var version = "dev"

func main() {
	seedDemo := flag.Bool("seed-demo", false, "Populate generated profiles and leaderboards on startup (non-production only)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)
	logger := middleware.Logger

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedDemo: *seedDemo})
	if err != nil {
		logger.Error("failed to initialize runtime", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.NewServerWithDeps(cfg, server.Deps{
		DB:       rt.DB,
		Redis:    rt.Redis,
		Denylist: rt.Denylist,
	})
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	app := srv.NewApp()

	scheduler := job.NewScheduler(logger)
	if cfg.LeaderboardRefreshCron != "" {
		refreshJob := job.NewRefreshJob(srv.Refresher(), cfg.Competitions())
		if _, err := scheduler.Register(cfg.LeaderboardRefreshCron, refreshJob); err != nil {
			logger.Error("invalid LEADERBOARD_REFRESH_CRON", slog.String("error", err.Error()))
			os.Exit(1)
		}
		scheduler.Start()
	}

	if rt.Redis != nil {
		err := srv.Notifier().SubscribeLeaderboard(ctx, func(ev notifications.LeaderboardRefreshed) {
			logger.Info("leaderboard refreshed",
				slog.String("leaderboard_key", ev.Key),
				slog.Int("participants", ev.Participants))
		})
		if err != nil {
			logger.Warn("leaderboard event subscription failed", slog.String("error", err.Error()))
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		<-scheduler.Stop().Done()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := rt.Close(); err != nil {
			logger.Error("runtime shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("version", version))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	<-done
}
