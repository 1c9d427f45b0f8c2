package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/NikFin25/deanery-bot/database"
	"github.com/NikFin25/deanery-bot/utils/response"
)

// HandleCheckHealth reports process liveness and database reachability.
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "database unreachable")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
