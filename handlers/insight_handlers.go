package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"app/config"
	"app/forecast"
	"app/models"
)

// HandleInsights runs a demand prediction and asks Gemini to turn the
// numbers into a short restock recommendation for the merchant.
func HandleInsights(c *fiber.Ctx) error {
	var req models.InsightRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	result, err := predictor.Predict(req.PredictRequest)
	if err != nil {
		if errors.Is(err, forecast.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Prediction failed"})
	}

	analysis, err := generateAnalysis(c.Context(), req, result)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"prediction": result,
		"analysis":   analysis,
	})
}

// generateAnalysis uses Gemini to create a human-readable recommendation
// from the forecast.
func generateAnalysis(ctx context.Context, req models.InsightRequest, result *models.PredictionResult) (string, error) {
	apiKey := config.AppConfig.GeminiAPIKey
	if apiKey == "" {
		return "", errors.New("GEMINI_API_KEY is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create AI client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-1.5-pro")

	jsonData, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize prediction: %w", err)
	}

	userPrompt := req.Prompt
	if userPrompt == "" {
		userPrompt = "Should I reorder this product, and how urgently?"
	}

	analysisPrompt := fmt.Sprintf(
		`You are a helpful AI assistant for a retail inventory manager. The user asked: "%s". A demand forecasting model produced the following prediction for product %q in %q. Based on it, provide a concise restock recommendation:

		Prediction: %s`,
		userPrompt,
		req.ProductID,
		req.City,
		string(jsonData),
	)

	resp, err := model.GenerateContent(ctx, genai.Text(analysisPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis: %w", err)
	}

	return fmt.Sprint(resp.Candidates[0].Content.Parts[0]), nil
}
