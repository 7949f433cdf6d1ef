// handlers/badge_routes.go
package handlers

import (
	"errors"
	"log"
	"strings"

	"whizbee-badges/middleware"
	"whizbee-badges/models"
	"whizbee-badges/services"

	"github.com/gofiber/fiber/v2"
)

// BadgeServices bundles what the badge routes call into.
type BadgeServices struct {
	Progress *services.BadgeProgressService
	Summary  *services.BadgeSummaryService
	Claims   *services.ClaimCoordinator
	Repairer *services.LedgerRepairer
}

func NewBadgeServices(progress *services.BadgeProgressService, summary *services.BadgeSummaryService, claims *services.ClaimCoordinator, repairer *services.LedgerRepairer) *BadgeServices {
	return &BadgeServices{Progress: progress, Summary: summary, Claims: claims, Repairer: repairer}
}

func SetupBadgeRoutes(app *fiber.App, svc *BadgeServices) {
	player := app.Group("/badges/player/:playerId")

	player.Get("/summary", middleware.PlayerIDParam(), svc.getSummary)
	player.Get("/rewards", middleware.PlayerIDParam(), svc.getRewards)
	player.Get("/unclaimed", middleware.PlayerIDParam(), svc.getUnclaimed)
	player.Post("/claim", middleware.PlayerIDParam(), svc.claimBadge)
	player.Post("/claim-all", middleware.PlayerIDParam(), svc.claimAll)

	// Called by the game-result recorder once it has decided a result qualifies.
	player.Post("/progress", middleware.PlayerIDParam(), svc.recordProgress)

	admin := app.Group("/s/admin/badges")
	admin.Post("/repair", svc.repairAll)
	admin.Post("/repair/:playerId", middleware.PlayerIDParam(), svc.repairPlayer)
}

func playerID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.PlayerIDLocal).(string)
	return id
}

func (s *BadgeServices) getSummary(c *fiber.Ctx) error {
	summary, err := s.Summary.Summary(c.UserContext(), playerID(c))
	if err != nil {
		return respondError(c, err, "Error fetching badge summary")
	}
	return c.JSON(fiber.Map{"success": true, "data": summary})
}

func (s *BadgeServices) getRewards(c *fiber.Ctx) error {
	rewards, err := s.Summary.Rewards(c.UserContext(), playerID(c))
	if err != nil {
		return respondError(c, err, "Error fetching player rewards")
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      rewards.Rewards,
		"summary":   rewards.OfficialTotals,
		"unclaimed": rewards.Unclaimed,
		"claimed":   rewards.Claimed,
	})
}

func (s *BadgeServices) getUnclaimed(c *fiber.Ctx) error {
	var difficulty *models.Difficulty
	if raw := c.Query("difficulty"); raw != "" {
		d, err := models.ParseDifficulty(raw)
		if err != nil {
			return respondError(c, services.ErrInvalidDifficulty, "")
		}
		difficulty = &d
	}

	unclaimed, err := s.Summary.Unclaimed(c.UserContext(), playerID(c), difficulty)
	if err != nil {
		return respondError(c, err, "Error fetching unclaimed rewards")
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"data":            unclaimed.Rewards,
		"counts":          unclaimed.Counts,
		"total_unclaimed": unclaimed.TotalUnclaimed,
	})
}

func (s *BadgeServices) claimBadge(c *fiber.Ctx) error {
	var req struct {
		RewardID string `json:"reward_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}

	id := playerID(c)
	log.Printf("🎖️ [BADGES] Claim badge request: player=%s reward=%s", id, req.RewardID)

	res, err := s.Claims.Claim(c.UserContext(), id, strings.TrimSpace(req.RewardID))
	if err != nil {
		return respondError(c, err, "Error claiming badge")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Badge claimed successfully!",
		"data": fiber.Map{
			"reward_id":             res.Reward.ID,
			"difficulty":            res.Difficulty,
			"badge_number":          res.BadgeNumber,
			"claimed_at":            res.ClaimedAt,
			"total_official_badges": res.TotalOfficialBadges,
		},
	})
}

func (s *BadgeServices) claimAll(c *fiber.Ctx) error {
	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	difficulty, err := models.ParseDifficulty(req.Difficulty)
	if err != nil {
		return respondError(c, services.ErrInvalidDifficulty, "")
	}

	res, err := s.Claims.ClaimAll(c.UserContext(), playerID(c), difficulty)
	if err != nil {
		return respondError(c, err, "Error claiming badges")
	}
	if res.Attempted == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "No unclaimed badges for this difficulty",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

func (s *BadgeServices) recordProgress(c *fiber.Ctx) error {
	var req struct {
		Difficulty string `json:"difficulty"`
		Source     string `json:"source"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	difficulty, err := models.ParseDifficulty(req.Difficulty)
	if err != nil {
		return respondError(c, services.ErrInvalidDifficulty, "")
	}
	source, err := models.ParseResultSource(req.Source)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "source must be challenge or battle"})
	}

	outcome, err := s.Progress.RecordQualifyingResult(c.UserContext(), playerID(c), difficulty, source)
	if err != nil {
		return respondError(c, err, "Error recording badge progress")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"badge_awarded": outcome,
	})
}

func (s *BadgeServices) repairAll(c *fiber.Ctx) error {
	report, err := s.Repairer.RepairAll(c.UserContext())
	if err != nil {
		return respondError(c, err, "Ledger repair failed")
	}
	return c.JSON(fiber.Map{"success": true, "data": report})
}

func (s *BadgeServices) repairPlayer(c *fiber.Ctx) error {
	report, err := s.Repairer.RepairPlayer(c.UserContext(), playerID(c))
	if err != nil {
		return respondError(c, err, "Ledger repair failed")
	}
	return c.JSON(fiber.Map{"success": true, "data": report})
}

// respondError maps service errors to status codes. Storage failures are
// logged with context and answered with fallback.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := fiber.StatusInternalServerError
	msg := fallback

	switch {
	case errors.Is(err, services.ErrInvalidDifficulty):
		status, msg = fiber.StatusBadRequest, "difficulty must be one of easy, average, difficult"
	case errors.Is(err, services.ErrInvalidIdentifier):
		status, msg = fiber.StatusBadRequest, "Invalid badge ID format"
	case errors.Is(err, services.ErrRewardNotFound):
		status, msg = fiber.StatusNotFound, "Reward not found"
	case errors.Is(err, services.ErrAlreadyClaimed):
		status, msg = fiber.StatusConflict, "Badge already claimed"
	case errors.Is(err, services.ErrNotEligible):
		status, msg = fiber.StatusUnprocessableEntity, "Not eligible to claim badge. You need 3 badges to claim a reward."
	default:
		log.Printf("❌ [BADGES] %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}
