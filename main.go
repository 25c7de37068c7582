package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"app/config"
	"app/database"
	"app/forecast"
	"app/routes"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	config.Load()

	if config.AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	// The historical sales database is optional; without it the trainer
	// falls back to the JSON export or synthetic data.
	if config.AppConfig.DatabaseURL != "" {
		database.Connect(config.AppConfig.DatabaseURL)
		defer database.Close()
	} else {
		log.Println("DATABASE_URL not set — historical sales database disabled")
	}

	ensureModel()

	app := fiber.New()
	app.Use(cors.New())

	routes.SetupRoutes(app)

	log.Printf("Starting demand forecast service on %s", config.AppConfig.ListenAddr)
	log.Fatal(app.Listen(config.AppConfig.ListenAddr))
}

// ensureModel trains an initial model when no artifact exists yet, so the
// service answers with model-backed predictions from first boot.
func ensureModel() {
	if _, err := os.Stat(config.AppConfig.ModelPath); err == nil {
		log.Printf("Existing model found at %s — skipping initial training", config.AppConfig.ModelPath)
		return
	}

	log.Println("No model found — running initial training")
	result, err := forecast.Train(context.Background(), forecast.TrainOptions{})
	if err != nil {
		// Keep serving: the predictor degrades to its heuristic.
		log.Printf("❌ Initial training failed, falling back to heuristic predictions: %v", err)
		return
	}
	log.Printf("Initial training complete → MAE=%.3f R2=%.3f (source=%s)", result.MAE, result.R2, result.DataSource)
}
