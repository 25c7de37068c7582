package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"app/config"
	"app/models"
)

// TrainOptions parameterise one training run. Zero values fall back to the
// configured defaults.
type TrainOptions struct {
	NumSamples int
	HistoryLen int
	Seed       int64
}

func (o TrainOptions) withDefaults() TrainOptions {
	cfg := config.AppConfig
	if o.NumSamples <= 0 {
		o.NumSamples = cfg.SyntheticSamples
	}
	if o.HistoryLen <= 0 {
		o.HistoryLen = cfg.SyntheticHistoryLen
	}
	if o.Seed == 0 {
		o.Seed = cfg.TrainSeed
	}
	return o
}

// Train runs the full pipeline: build dataset → extract features → split →
// fit → evaluate on holdout → persist. Until the artifact is durably
// written, any previously persisted artifact stays untouched.
func Train(ctx context.Context, opts TrainOptions) (*models.TrainResult, error) {
	opts = opts.withDefaults()
	cfg := config.AppConfig

	samples, source, err := BuildDataset(ctx, opts.NumSamples, opts.HistoryLen, opts.Seed)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("dataset builder produced no training samples")
	}
	log.Printf("[TRAIN] Dataset ready: %d samples (source=%s)", len(samples), source)

	X, y, featureNames := buildMatrix(samples)

	trainIdx, testIdx := splitIndices(len(samples), 0.2, opts.Seed)
	trainX, trainY := subset(X, y, trainIdx)
	testX, testY := subset(X, y, testIdx)

	model := NewGBM(GBMParams{
		NumTrees:     cfg.NumTrees,
		MaxDepth:     cfg.MaxDepth,
		LearningRate: cfg.LearningRate,
		Subsample:    cfg.Subsample,
		ColSample:    cfg.ColSample,
		Seed:         opts.Seed,
	})
	log.Printf("[TRAIN] Fitting gradient-boosted regressor (%d features, %d train / %d test rows)",
		len(featureNames), len(trainIdx), len(testIdx))
	if err := model.Fit(trainX, trainY, testX, testY); err != nil {
		return nil, fmt.Errorf("model fit failed: %w", err)
	}

	mae, r2 := evaluate(model, testX, testY)
	log.Printf("[TRAIN] Holdout  MAE=%.3f  R2=%.3f", mae, r2)

	art := &Artifact{
		SchemaVersion: SchemaVersion,
		FeatureNames:  featureNames,
		Model:         model,
	}
	if err := SaveArtifact(cfg.ModelPath, art); err != nil {
		return nil, err
	}
	log.Printf("[TRAIN] Model saved → %s", cfg.ModelPath)

	return &models.TrainResult{
		MAE:        mae,
		R2:         r2,
		ModelPath:  cfg.ModelPath,
		DataSource: source,
		Samples:    len(samples),
	}, nil
}

// Retrain is the entry point for scheduled or triggered retraining. It is a
// full from-scratch run of the same pipeline with configured defaults.
func Retrain(ctx context.Context) (*models.TrainResult, error) {
	log.Println("[TRAIN] === Retrain started ===")
	result, err := Train(ctx, TrainOptions{})
	if err != nil {
		return nil, err
	}
	log.Println("[TRAIN] === Retrain finished ===")
	return result, nil
}

// buildMatrix extracts features for every sample into a dense matrix whose
// column order is the sorted feature-name set of the first row. Every row
// yields the identical key set, so the first row's keys define the schema.
func buildMatrix(samples []models.TrainingSample) (*mat.Dense, []float64, []string) {
	first := extractSample(samples[0])
	featureNames := make([]string, 0, len(first))
	for k := range first {
		featureNames = append(featureNames, k)
	}
	sort.Strings(featureNames)

	X := mat.NewDense(len(samples), len(featureNames), nil)
	y := make([]float64, len(samples))

	for i, s := range samples {
		feats := first
		if i > 0 {
			feats = extractSample(s)
		}
		for j, name := range featureNames {
			X.Set(i, j, feats[name])
		}
		y[i] = s.NextDayDemand
	}
	return X, y, featureNames
}

func extractSample(s models.TrainingSample) map[string]float64 {
	return ExtractFeatures(s.SalesHistory, s.CurrentStock, s.LeadTimeDays, s.City, s.RefDate, s.DayOffset)
}

// splitIndices shuffles row indices with a seeded source and carves off the
// trailing testFrac share, so a fixed seed reproduces the split exactly.
func splitIndices(n int, testFrac float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	nTest := int(math.Round(testFrac * float64(n)))
	if nTest < 1 && n > 1 {
		nTest = 1
	}
	return perm[:n-nTest], perm[n-nTest:]
}

func subset(X *mat.Dense, y []float64, idx []int) (*mat.Dense, []float64) {
	_, cols := X.Dims()
	sub := mat.NewDense(len(idx), cols, nil)
	labels := make([]float64, len(idx))
	for i, r := range idx {
		sub.SetRow(i, X.RawRowView(r))
		labels[i] = y[r]
	}
	return sub, labels
}

func evaluate(model *GBM, X *mat.Dense, y []float64) (mae, r2 float64) {
	n, _ := X.Dims()
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	pred := make([]float64, n)
	var absSum float64
	for i := 0; i < n; i++ {
		pred[i] = model.Predict(X.RawRowView(i))
		absSum += math.Abs(y[i] - pred[i])
	}
	return absSum / float64(n), stat.RSquaredFrom(pred, y, nil)
}
