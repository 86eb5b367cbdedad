// Package bootstrap wires the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"fmt"

	"profileapi/internal/cache"
	"profileapi/internal/config"
	"profileapi/internal/database"
	"profileapi/internal/middleware"
	"profileapi/internal/seed"
	"profileapi/internal/validation"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo populates generated profiles and leaderboards. Ignored in production.
	SeedDemo  bool
	SeedUsers int
}

// Runtime is the set of connected dependencies.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Denylist *validation.Denylist
}

// InitRuntime connects to the database and Redis, loads the denylist and
// optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis may be nil when unreachable.
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	denylist, err := validation.LoadDenylist(cfg.DenylistPath)
	if err != nil {
		return nil, fmt.Errorf("load denylist: %w", err)
	}

	if opts.SeedDemo && !cfg.IsProduction() {
		n := opts.SeedUsers
		if n <= 0 {
			n = 25
		}
		s := seed.NewSeeder(db, rdb, denylist, 0, middleware.Logger)
		seedOpts := seed.Options{Users: n}
		if rdb != nil {
			seedOpts.Competitions = cfg.Competitions()
		}
		if _, err := s.Run(ctx, seedOpts); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	return &Runtime{DB: db, Redis: rdb, Denylist: denylist}, nil
}

// Close releases the runtime connections.
func (r *Runtime) Close() error {
	var firstErr error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
