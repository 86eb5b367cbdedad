// Package service holds the application's business logic.
package service

import (
	"context"
	"log/slog"

	"profileapi/internal/cache"
	"profileapi/internal/middleware"
	"profileapi/internal/models"
	"profileapi/internal/notifications"
	"profileapi/internal/observability"
	"profileapi/internal/repository"
	"profileapi/internal/validation"

	"github.com/redis/go-redis/v9"
)

var checkOutcomes = map[string]string{
	validation.MsgMinLength:  "min_length",
	validation.MsgMaxLength:  "max_length",
	validation.MsgCharacters: "characters",
	validation.MsgNotAllowed: "not_allowed",
	validation.MsgTaken:      "taken",
}

// ProfileService manages user profiles keyed by wallet address.
type ProfileService struct {
	users     repository.UserRepository
	validator *validation.UsernameValidator
	rdb       *redis.Client
	notifier  *notifications.Notifier
}

// RegisterInput is the payload for creating a profile.
type RegisterInput struct {
	Address  string `json:"address"`
	Username string `json:"username"`
	TeamID   uint   `json:"team_id"`
}

// NewProfileService wires the validator to the user repository. rdb may be nil,
// in which case profiles are read straight from the database.
func NewProfileService(users repository.UserRepository, denylist *validation.Denylist, rdb *redis.Client) *ProfileService {
	return &ProfileService{
		users:     users,
		validator: validation.NewUsernameValidator(denylist, users),
		rdb:       rdb,
		notifier:  notifications.NewNotifier(rdb),
	}
}

// ValidateUsername runs the username rules and records the outcome.
func (s *ProfileService) ValidateUsername(ctx context.Context, username string) (validation.Result, error) {
	res, err := s.validator.Validate(ctx, username)
	recordCheck(res, err)
	return res, err
}

func recordCheck(res validation.Result, err error) {
	switch {
	case err != nil:
		observability.RecordUsernameCheck("error")
	case res.Valid:
		observability.RecordUsernameCheck("valid")
	default:
		observability.RecordUsernameCheck(checkOutcomes[res.Message])
	}
}

func (s *ProfileService) requireValidUsername(ctx context.Context, username string) error {
	res, err := s.ValidateUsername(ctx, username)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !res.Valid {
		return models.NewValidationError(res.Message)
	}
	return nil
}

// Register creates a profile for in.Address.
func (s *ProfileService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !validation.IsAddress(in.Address) {
		return nil, models.NewValidationError("Invalid wallet address")
	}
	address := validation.NormalizeAddress(in.Address)

	existing, err := s.users.GetByAddress(ctx, address)
	if err == nil && existing != nil {
		return nil, models.NewConflictError("Address already registered", models.ErrAddressRegistered)
	}
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if err := s.requireValidUsername(ctx, in.Username); err != nil {
		return nil, err
	}

	user := &models.User{
		Address:  address,
		Username: in.Username,
		Slug:     validation.Slug(in.Username),
		TeamID:   in.TeamID,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "profile registered",
		slog.String("profile", address), slog.String("username", user.Username))
	return user, nil
}

// GetProfile returns the profile for address, served from cache when possible.
func (s *ProfileService) GetProfile(ctx context.Context, address string) (*models.User, error) {
	address = validation.NormalizeAddress(address)
	key := cache.ProfileKey(address)

	var cached models.User
	if hit, err := cache.GetJSON(ctx, s.rdb, key, &cached); err != nil {
		middleware.Logger.WarnContext(ctx, "profile cache read failed", slog.String("error", err.Error()))
	} else if hit {
		return &cached, nil
	}

	user, err := s.users.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.rdb, key, user, cache.ProfileTTL); err != nil {
		middleware.Logger.WarnContext(ctx, "profile cache write failed", slog.String("error", err.Error()))
	}
	return user, nil
}

// ChangeUsername validates username and stores it for address. A new name
// whose slug equals the caller's current slug only changes case and is not
// checked for uniqueness.
func (s *ProfileService) ChangeUsername(ctx context.Context, address, username string) (*models.User, error) {
	address = validation.NormalizeAddress(address)

	if res := s.validator.CheckFormat(username); !res.Valid {
		recordCheck(res, nil)
		return nil, models.NewValidationError(res.Message)
	}

	current, err := s.users.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	slug := validation.Slug(username)
	if slug == current.Slug {
		recordCheck(validation.Result{Valid: true}, nil)
	} else if err := s.requireValidUsername(ctx, username); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUsername(ctx, address, username, slug)
	if err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, s.rdb, cache.ProfileKey(address))
	if err := s.notifier.PublishProfileUpdated(ctx, address, user.Username); err != nil {
		middleware.Logger.WarnContext(ctx, "publish profile update failed", slog.String("error", err.Error()))
	}
	return user, nil
}

// ListProfiles returns one page of profiles and the total count.
func (s *ProfileService) ListProfiles(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UsernamesByAddress maps each known address to its username.
func (s *ProfileService) UsernamesByAddress(ctx context.Context, addresses []string) (map[string]string, error) {
	users, err := s.users.GetByAddresses(ctx, addresses)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.Address] = u.Username
	}
	return out, nil
}
