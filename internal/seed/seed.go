// Package seed fills a development database and leaderboard store with
// generated profiles. It is intended for development and testing only.
package seed

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"profileapi/internal/competition"
	"profileapi/internal/leaderboard"
	"profileapi/internal/models"
	"profileapi/internal/repository"
	"profileapi/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// maxAttempts bounds username generation per user so a hostile denylist
// cannot make seeding spin forever.
const maxAttempts = 20

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Options control what a Seeder generates.
type Options struct {
	Users        int
	Clean        bool
	Competitions []string
}

// Seeder creates profiles through the same rules the API applies.
type Seeder struct {
	db        *gorm.DB
	users     repository.UserRepository
	validator *validation.UsernameValidator
	store     *leaderboard.Store
	faker     *gofakeit.Faker
	logger    *slog.Logger
}

// NewSeeder returns a Seeder writing to db and, when rdb is set, to the
// leaderboard store. A non-zero seed makes the output reproducible.
func NewSeeder(db *gorm.DB, rdb *redis.Client, denylist *validation.Denylist, seed int64, logger *slog.Logger) *Seeder {
	users := repository.NewUserRepository(db)
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		db:        db,
		users:     users,
		validator: validation.NewUsernameValidator(denylist, users),
		store:     leaderboard.NewStore(rdb),
		faker:     gofakeit.New(seed),
		logger:    logger,
	}
}

// Run applies opts and returns the created users.
func (s *Seeder) Run(ctx context.Context, opts Options) ([]models.User, error) {
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	users, err := s.Users(ctx, opts.Users)
	if err != nil {
		return nil, err
	}

	for _, raw := range opts.Competitions {
		if err := s.Leaderboard(ctx, raw, users); err != nil {
			return users, err
		}
	}
	return users, nil
}

// ClearAll hard-deletes every profile.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	s.logger.InfoContext(ctx, "cleared profiles")
	return nil
}

// Users creates n profiles with generated addresses and usernames that pass validation.
func (s *Seeder) Users(ctx context.Context, n int) ([]models.User, error) {
	out := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		username, err := s.username(ctx)
		if err != nil {
			return out, err
		}

		user := models.User{
			Address:  s.Address(),
			Username: username,
			Slug:     validation.Slug(username),
			TeamID:   uint(s.faker.Number(1, 3)),
			IsActive: true,
		}
		if err := s.users.Create(ctx, &user); err != nil {
			return out, fmt.Errorf("create user %s: %w", username, err)
		}
		out = append(out, user)
	}
	s.logger.InfoContext(ctx, "seeded profiles", slog.Int("count", len(out)))
	return out, nil
}

// Address returns a random lower-case wallet address.
func (s *Seeder) Address() string {
	b := make([]byte, 20)
	for i := range b {
		b[i] = s.faker.Uint8()
	}
	return "0x" + hex.EncodeToString(b)
}

// username returns a generated username that passes validation, or an
// error after repeated rejections.
func (s *Seeder) username(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := nonAlnum.ReplaceAllString(s.faker.Username(), "")
		if len(candidate) > 15 {
			candidate = candidate[:15]
		}

		res, err := s.validator.Validate(ctx, candidate)
		if err != nil {
			return "", err
		}
		if res.Valid {
			return candidate, nil
		}
	}
	return "", errors.New("could not generate a valid username")
}

// Leaderboard writes a ranked leaderboard for the competition raw using users
// as participants.
func (s *Seeder) Leaderboard(ctx context.Context, raw string, users []models.User) error {
	id := competition.ParseID(raw)
	entries := make([]leaderboard.Entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, leaderboard.Entry{
			Address:   u.Address,
			Username:  u.Username,
			TeamID:    fmt.Sprint(u.TeamID),
			VolumeUSD: s.faker.Float64Range(100, 1_000_000),
		})
	}

	key := competition.LeaderboardKey(id)
	if err := s.store.Replace(ctx, key, entries); err != nil {
		return fmt.Errorf("seed leaderboard %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "seeded leaderboard",
		slog.String("competition", string(id)), slog.Int("participants", len(entries)))
	return nil
}
