package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"app/config"
	"app/routes"
)

func TestMain(m *testing.M) {
	config.Load()
	// No artifact on disk: handlers exercise the heuristic path.
	config.AppConfig.ModelPath = filepath.Join(os.TempDir(), "handlers_test_no_model.json")
	config.AppConfig.JWTSecret = "test-secret"
	os.Exit(m.Run())
}

func testApp() *fiber.App {
	app := fiber.New()
	routes.SetupRoutes(app)
	return app
}

func TestHealthEndpoint(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "healthy", body["status"])
}

func TestPredictDemandEndpoint(t *testing.T) {
	app := testApp()

	payload := map[string]interface{}{
		"productId":    "sku-1",
		"city":         "pune",
		"salesHistory": []float64{12, 15, 13, 20, 18, 14, 16, 22, 19, 17, 21, 14, 18, 20},
		"currentStock": 120,
		"leadTimeDays": 7,
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/v1/predict-demand", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "heuristic", body["method"])
	assert.InDelta(t, 18.14, body["predictedDailyDemand"].(float64), 1e-9)
	assert.Equal(t, float64(6), body["daysToStockout"])
	assert.Equal(t, float64(159), body["suggestedReorderQty"])
	assert.Contains(t, body, "inferenceTimeMs")
}

func TestPredictDemandValidation(t *testing.T) {
	app := testApp()

	payload := map[string]interface{}{
		"salesHistory": []float64{},
		"currentStock": 10,
		"leadTimeDays": 7,
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/v1/predict-demand", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 400, resp.StatusCode)

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, false, body["success"])
}

func TestRetrainRequiresToken(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("POST", "/api/v1/retrain", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 401, resp.StatusCode)
}

func TestInsightsRequiresToken(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("POST", "/api/v1/insights", nil)
	req.Header.Set("Authorization", "not-a-bearer-token")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 401, resp.StatusCode)
}
