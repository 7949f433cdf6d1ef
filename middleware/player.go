// middleware/player.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PlayerIDLocal is the c.Locals key holding the validated player id.
const PlayerIDLocal = "player_id"

// PlayerIDParam rejects requests whose :playerId is not a UUID before
// they reach a handler, and stores the id in c.Locals.
func PlayerIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.Clone(strings.TrimSpace(c.Params("playerId")))
		if _, err := uuid.Parse(raw); err != nil {
			log.Printf("❌ [PLAYER_ID] Malformed player id %q on %s", raw, c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "invalid player id",
			})
		}

		c.Locals(PlayerIDLocal, raw)
		return c.Next()
	}
}
