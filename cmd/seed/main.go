// Command seed fills the database and leaderboard store with generated profiles.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"

	"profileapi/internal/cache"
	"profileapi/internal/config"
	"profileapi/internal/database"
	"profileapi/internal/middleware"
	"profileapi/internal/seed"
	"profileapi/internal/validation"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of profiles to create")
	shouldClean := flag.Bool("clean", true, "Delete existing profiles before seeding")
	competitions := flag.String("competitions", "test", "Comma-separated competitions to build leaderboards for")
	seedValue := flag.Int64("seed", 0, "Random seed, 0 for a time-based seed")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)
	logger := middleware.Logger

	if cfg.IsProduction() {
		logger.Error("refusing to seed a production database")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cache.InitRedis(cfg.RedisURL)

	denylist, err := validation.LoadDenylist(cfg.DenylistPath)
	if err != nil {
		logger.Error("failed to load denylist", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var comps []string
	if cache.GetClient() != nil {
		for _, c := range strings.Split(*competitions, ",") {
			if c = strings.TrimSpace(c); c != "" {
				comps = append(comps, c)
			}
		}
	} else {
		logger.Warn("redis unavailable, skipping leaderboards")
	}

	s := seed.NewSeeder(db, cache.GetClient(), denylist, *seedValue, logger)
	users, err := s.Run(context.Background(), seed.Options{
		Users:        *numUsers,
		Clean:        *shouldClean,
		Competitions: comps,
	})
	if err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seeding complete", slog.Int("users", len(users)), slog.Any("competitions", comps))
}
