package server

import (
	"profileapi/internal/competition"

	"github.com/gofiber/fiber/v2"
)

// ListCompetitions describes every known competition.
// GET /api/competitions
func (s *Server) ListCompetitions(c *fiber.Ctx) error {
	ids := competition.All()
	out := make([]competition.Info, 0, len(ids))
	for _, id := range ids {
		out = append(out, competition.Describe(string(id), s.config.TestTradingCompURL))
	}
	return c.JSON(out)
}

// GetCompetition resolves an identifier. Unknown identifiers resolve to the default.
// GET /api/competitions/:id
func (s *Server) GetCompetition(c *fiber.Ctx) error {
	return c.JSON(competition.Describe(c.Params("id"), s.config.TestTradingCompURL))
}

// GetRewardGroup resolves a reward group and its label.
// GET /api/competitions/reward-groups/:group
func (s *Server) GetRewardGroup(c *fiber.Ctx) error {
	requested := c.Params("group")
	group := competition.RewardGroup(requested)
	title, _ := competition.RewardGroupTitle(group)
	return c.JSON(fiber.Map{
		"requested": requested,
		"group":     group,
		"title":     title,
	})
}
