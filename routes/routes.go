package routes

import (
	"github.com/gofiber/fiber/v2"

	"app/handlers"
	"app/middleware"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/health", handlers.HandleHealth)
	api.Post("/predict-demand", handlers.HandlePredictDemand)

	// Expensive / mutating routes require a service token from the backend.
	api.Post("/retrain", middleware.Authenticate, handlers.HandleRetrain)
	api.Post("/insights", middleware.Authenticate, handlers.HandleInsights)
}
