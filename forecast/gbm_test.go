package forecast

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func testParams() GBMParams {
	return GBMParams{
		NumTrees:     50,
		MaxDepth:     3,
		LearningRate: 0.1,
		Subsample:    1.0,
		ColSample:    1.0,
		Seed:         42,
	}
}

// linearDataset builds y = 3*x0 - 2*x1 + 5 over random inputs.
func linearDataset(n int, seed int64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y[i] = 3*x0 - 2*x1 + 5
	}
	return X, y
}

func TestGBMFitBeatsMeanBaseline(t *testing.T) {
	X, y := linearDataset(400, 1)
	valX, valY := linearDataset(100, 2)

	model := NewGBM(testParams())
	if err := model.Fit(X, y, valX, valY); err != nil {
		t.Fatal(err)
	}
	assert.True(t, model.Fitted())

	baseline := meanOf(valY)
	var modelErr, baselineErr float64
	for i := 0; i < 100; i++ {
		modelErr += math.Abs(valY[i] - model.Predict(valX.RawRowView(i)))
		baselineErr += math.Abs(valY[i] - baseline)
	}

	assert.Less(t, modelErr, baselineErr/2,
		"boosted model should at least halve the mean-baseline error")
}

func TestGBMFitMismatchedSizes(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	err := NewGBM(testParams()).Fit(X, make([]float64, 5), nil, nil)
	assert.Error(t, err)
}

func TestGBMDeterministicFit(t *testing.T) {
	X, y := linearDataset(200, 3)

	a := NewGBM(testParams())
	b := NewGBM(testParams())
	if err := a.Fit(X, y, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y, nil, nil); err != nil {
		t.Fatal(err)
	}

	probe := []float64{4.2, 1.7}
	assert.Equal(t, a.Predict(probe), b.Predict(probe))
}

func TestGBMJSONRoundTrip(t *testing.T) {
	X, y := linearDataset(200, 4)
	model := NewGBM(testParams())
	if err := model.Fit(X, y, nil, nil); err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(model)
	if err != nil {
		t.Fatal(err)
	}

	var restored GBM
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatal(err)
	}
	assert.True(t, restored.Fitted())

	probe := []float64{6.1, 3.3}
	assert.Equal(t, model.Predict(probe), restored.Predict(probe))
}
