package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"app/forecast"
)

// HandleRetrain runs a synchronous full retrain and hot-swaps the freshly
// trained model into the predictor. On failure the previous artifact stays
// in service.
func HandleRetrain(c *fiber.Ctx) error {
	result, err := forecast.Retrain(context.Background())
	if err != nil {
		log.Printf("[TRAIN] ❌ Retrain failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	predictor.Reload()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Model retrained successfully",
		"metrics": result,
	})
}
