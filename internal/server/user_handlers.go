package server

import (
	"log/slog"

	"profileapi/internal/middleware"
	"profileapi/internal/models"
	"profileapi/internal/service"
	"profileapi/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ValidateUsername reports whether a username may be registered.
// GET /api/users/valid/:username
func (s *Server) ValidateUsername(c *fiber.Ctx) error {
	ctx := middleware.WithRequestContext(c)

	res, err := s.profiles.ValidateUsername(ctx, pathParam(c, "username"))
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "username lookup failed", slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(res)
}

// Register creates the caller's profile. The token subject must match the body address.
// POST /api/users/register
func (s *Server) Register(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if validation.NormalizeAddress(in.Address) != callerAddress(c) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Address does not match token"))
	}

	user, err := s.profiles.Register(middleware.WithRequestContext(c), in)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetProfile returns the profile of a wallet address.
// GET /api/users/:address
func (s *Server) GetProfile(c *fiber.Ctx) error {
	address := c.Params("address")
	if !validation.IsAddress(address) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid wallet address"))
	}

	user, err := s.profiles.GetProfile(middleware.WithRequestContext(c), address)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(user)
}

type changeUsernameRequest struct {
	Username string `json:"username"`
}

// ChangeUsername renames the caller's profile.
// PUT /api/users/me/username
func (s *Server) ChangeUsername(c *fiber.Ctx) error {
	var req changeUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.profiles.ChangeUsername(middleware.WithRequestContext(c), callerAddress(c), req.Username)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(user)
}

// ListProfiles returns a page of profiles.
// GET /api/users
func (s *Server) ListProfiles(c *fiber.Ctx) error {
	page := parsePagination(c, 20, maxPaginationLimit)

	users, total, err := s.profiles.ListProfiles(middleware.WithRequestContext(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(fiber.Map{
		"users":  users,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}
