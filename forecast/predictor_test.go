package forecast

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"app/config"
	"app/models"
)

func heuristicPredictor(t *testing.T) *Predictor {
	t.Helper()
	old := config.AppConfig.ModelPath
	config.AppConfig.ModelPath = filepath.Join(t.TempDir(), "no_model.json")
	t.Cleanup(func() { config.AppConfig.ModelPath = old })
	return NewPredictor()
}

func specQuery() models.PredictRequest {
	return models.PredictRequest{
		ProductID:    "sku-42",
		City:         "mumbai",
		SalesHistory: []float64{12, 15, 13, 20, 18, 14, 16, 22, 19, 17, 21, 14, 18, 20},
		CurrentStock: 120,
		LeadTimeDays: 7,
	}
}

func TestPredictHeuristicFallback(t *testing.T) {
	p := heuristicPredictor(t)

	result, err := p.Predict(specQuery())
	if err != nil {
		t.Fatal(err)
	}

	// mean of the last 7 values = 127/7 ≈ 18.14
	assert.Equal(t, MethodHeuristic, result.Method)
	assert.Equal(t, 18.14, result.PredictedDailyDemand)
	assert.Equal(t, 6, result.DaysToStockout)
	assert.Equal(t, 159, result.SuggestedReorderQty)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Equal(t, "sku-42", result.ProductID)
	assert.Equal(t, "mumbai", result.City)
}

func TestPredictZeroStock(t *testing.T) {
	p := heuristicPredictor(t)

	req := specQuery()
	req.CurrentStock = 0
	result, err := p.Predict(req)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, result.DaysToStockout)
}

func TestPredictZeroDemandNeverStocksOut(t *testing.T) {
	p := heuristicPredictor(t)

	req := specQuery()
	req.SalesHistory = []float64{0, 0, 0, 0, 0, 0, 0}
	result, err := p.Predict(req)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0.0, result.PredictedDailyDemand)
	assert.Equal(t, StockoutNever, result.DaysToStockout)
	assert.Equal(t, 0, result.SuggestedReorderQty)
}

func TestPredictValidation(t *testing.T) {
	p := heuristicPredictor(t)

	cases := []struct {
		name string
		mut  func(*models.PredictRequest)
	}{
		{"empty history", func(r *models.PredictRequest) { r.SalesHistory = nil }},
		{"negative stock", func(r *models.PredictRequest) { r.CurrentStock = -1 }},
		{"zero lead time", func(r *models.PredictRequest) { r.LeadTimeDays = 0 }},
		{"negative lead time", func(r *models.PredictRequest) { r.LeadTimeDays = -3 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := specQuery()
			tc.mut(&req)
			_, err := p.Predict(req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestReorderQtyMonotonicInLeadTime(t *testing.T) {
	p := heuristicPredictor(t)

	prev := -1
	for _, lead := range []float64{1, 3, 7, 14, 21} {
		req := specQuery()
		req.LeadTimeDays = lead
		result, err := p.Predict(req)
		if err != nil {
			t.Fatal(err)
		}
		assert.GreaterOrEqual(t, result.SuggestedReorderQty, prev,
			"reorder qty must not decrease as lead time grows")
		prev = result.SuggestedReorderQty
	}
}

func TestReorderQtyMonotonicInDemand(t *testing.T) {
	p := heuristicPredictor(t)

	prev := -1
	for _, level := range []float64{5, 10, 20, 40} {
		history := make([]float64, 14)
		for i := range history {
			history[i] = level
		}
		req := specQuery()
		req.SalesHistory = history
		result, err := p.Predict(req)
		if err != nil {
			t.Fatal(err)
		}
		assert.GreaterOrEqual(t, result.SuggestedReorderQty, prev)
		prev = result.SuggestedReorderQty
	}
}

func TestConfidenceBounds(t *testing.T) {
	histories := [][]float64{
		{10, 10, 10, 10, 10, 10, 10},                     // flat: cv 0 → confidence 1
		{0, 100, 0, 100, 0, 100, 0},                      // wild: confidence clamps at 0
		{12, 15, 13, 20, 18, 14, 16, 22, 19, 17, 21, 14}, // ordinary
		{3},
	}
	for _, h := range histories {
		conf := confidenceFrom(h)
		assert.GreaterOrEqual(t, conf, 0.0)
		assert.LessOrEqual(t, conf, 1.0)
	}
	assert.Equal(t, 1.0, confidenceFrom([]float64{10, 10, 10, 10, 10, 10, 10}))
}

func TestPredictWithTrainedModel(t *testing.T) {
	defer trainInTempDir(t)()

	if _, err := Train(context.Background(), TrainOptions{NumSamples: 300, HistoryLen: 40, Seed: 42}); err != nil {
		t.Fatal(err)
	}

	p := NewPredictor()
	assert.True(t, p.Reload())
	assert.True(t, p.ModelLoaded())

	result, err := p.Predict(specQuery())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, MethodModel, result.Method)
	assert.GreaterOrEqual(t, result.PredictedDailyDemand, 0.0)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.GreaterOrEqual(t, result.SuggestedReorderQty, 0)
}

func TestReloadWithoutArtifact(t *testing.T) {
	p := heuristicPredictor(t)
	assert.False(t, p.Reload())
	assert.False(t, p.ModelLoaded())
}

func TestReloadSwapsFreshModel(t *testing.T) {
	defer trainInTempDir(t)()

	p := NewPredictor()

	// Before any training the predictor runs on the heuristic.
	result, err := p.Predict(specQuery())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, MethodHeuristic, result.Method)

	if _, err := Train(context.Background(), TrainOptions{NumSamples: 300, HistoryLen: 40, Seed: 42}); err != nil {
		t.Fatal(err)
	}

	// The old (absent) model stays authoritative until the explicit reload.
	result, err = p.Predict(specQuery())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, MethodHeuristic, result.Method)

	assert.True(t, p.Reload())

	result, err = p.Predict(specQuery())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, MethodModel, result.Method)
}
