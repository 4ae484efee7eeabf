package handlers

import (
	"github.com/futureguard/api/database"
	"github.com/futureguard/api/services"
	"github.com/gofiber/fiber/v2"
)

// HandlePing is the unauthenticated liveness probe.
func HandlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleCheckHealth reports the state of the backing services.
func HandleCheckHealth(c *fiber.Ctx, store database.Storage, scorer *services.ScoringClient) error {
	dbStatus := "ok"
	if err := store.HealthCheck(); err != nil {
		dbStatus = "down"
	}

	scorerStatus := "ok"
	if err := scorer.HealthCheck(c.Context()); err != nil {
		scorerStatus = "down"
	}

	status := fiber.StatusOK
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":   dbStatus,
		"database": dbStatus,
		"scoring":  scorerStatus,
	})
}
