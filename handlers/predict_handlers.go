package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"app/forecast"
	"app/models"
)

// predictor is the process-wide forecast handle shared by all requests.
// Reload after retraining swaps the cached model atomically.
var predictor = forecast.NewPredictor()

// HandlePredictDemand forecasts next-day demand and the derived inventory
// signals for a single product.
func HandlePredictDemand(c *fiber.Ctx) error {
	start := time.Now()

	var req models.PredictRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}

	result, err := predictor.Predict(req)
	if err != nil {
		if errors.Is(err, forecast.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Prediction failed"})
	}

	return c.JSON(fiber.Map{
		"success":              true,
		"predictedDailyDemand": result.PredictedDailyDemand,
		"daysToStockout":       result.DaysToStockout,
		"suggestedReorderQty":  result.SuggestedReorderQty,
		"confidence":           result.Confidence,
		"method":               result.Method,
		"productId":            result.ProductID,
		"city":                 result.City,
		"inferenceTimeMs":      float64(time.Since(start).Microseconds()) / 1000,
	})
}

// HandleHealth is a simple liveness / readiness probe.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":     true,
		"service":     "demand-forecast",
		"status":      "healthy",
		"modelLoaded": predictor.ModelLoaded(),
	})
}
