package server

import (
	"errors"
	"log/slog"

	"profileapi/internal/competition"
	"profileapi/internal/job"
	"profileapi/internal/leaderboard"
	"profileapi/internal/middleware"
	"profileapi/internal/models"
	"profileapi/internal/validation"

	"github.com/gofiber/fiber/v2"
)

func leaderboardStatus(err error) int {
	if errors.Is(err, leaderboard.ErrUnavailable) {
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// GetLeaderboard returns a page of a competition leaderboard.
// GET /api/leaderboard?competitionId=&offset=&limit=
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	page := parsePagination(c, leaderboard.DefaultPageSize, leaderboard.MaxPageSize)

	out, err := s.leaderboards.Page(middleware.WithRequestContext(c),
		c.Query("competitionId"), int64(page.Offset), int64(page.Limit))
	if err != nil {
		return models.RespondWithError(c, leaderboardStatus(err), models.NewInternalError(err))
	}
	return c.JSON(out)
}

// GetLeaderboardEntry returns one participant's ranked entry.
// GET /api/leaderboard/:address?competitionId=
func (s *Server) GetLeaderboardEntry(c *fiber.Ctx) error {
	address := c.Params("address")
	if !validation.IsAddress(address) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid wallet address"))
	}

	entry, err := s.leaderboards.Participant(middleware.WithRequestContext(c), c.Query("competitionId"), address)
	if err != nil {
		return models.RespondWithError(c, leaderboardStatus(err), models.NewInternalError(err))
	}
	if entry == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Participant", validation.NormalizeAddress(address)))
	}
	return c.JSON(entry)
}

// RefreshLeaderboard rebuilds a competition leaderboard from its subgraph.
// POST /api/admin/leaderboard/:id/refresh
func (s *Server) RefreshLeaderboard(c *fiber.Ctx) error {
	ctx := middleware.WithRequestContext(c)
	id := competition.ParseID(c.Params("id"))

	count, err := s.refresher.Refresh(ctx, string(id))
	switch {
	case err == nil:
	case errors.Is(err, job.ErrRefreshInProgress):
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Refresh already in progress", err))
	case errors.Is(err, leaderboard.ErrUnavailable):
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewInternalError(err))
	default:
		middleware.Logger.ErrorContext(ctx, "leaderboard refresh failed",
			slog.String("competition", string(id)), slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusBadGateway, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"competition":     id,
		"leaderboard_key": competition.LeaderboardKey(id),
		"participants":    count,
	})
}
