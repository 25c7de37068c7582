package forecast

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"app/config"
	"app/models"
)

// ErrValidation marks caller-input violations, so handlers can distinguish
// them from internal failures with errors.Is.
var ErrValidation = errors.New("invalid request")

// Method tags on prediction results.
const (
	MethodModel     = "gbrt"
	MethodHeuristic = "heuristic"
)

// StockoutNever is the days-to-stockout sentinel for zero predicted demand.
const StockoutNever = 999

// Predictor serves demand forecasts from the persisted model artifact,
// falling back to a moving-average heuristic when none exists. The artifact
// is cached behind an RWMutex: predictions read under RLock, Reload swaps
// the reference wholesale under Lock, so a concurrent reload can never
// expose a torn artifact.
type Predictor struct {
	mu       sync.RWMutex
	artifact *Artifact
	loaded   bool // a load attempt has happened, successful or not
}

// NewPredictor creates a predictor that lazily loads the artifact on first
// use.
func NewPredictor() *Predictor {
	return &Predictor{}
}

// Reload invalidates the cache and re-reads the artifact from storage.
// Returns true when a model is loaded afterwards. Called after a completed
// retrain to hot-swap the fresh model without a restart.
func (p *Predictor) Reload() bool {
	art, err := LoadArtifact(config.AppConfig.ModelPath)
	if err != nil {
		log.Printf("[PREDICT] Reload failed, keeping previous model: %v", err)
		// A broken artifact on disk must not evict a working cached model.
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.artifact != nil
	}

	p.mu.Lock()
	p.artifact = art
	p.loaded = true
	p.mu.Unlock()
	return art != nil
}

// current returns the cached artifact, loading it on first access. A nil
// artifact is the expected "not trained yet" state.
func (p *Predictor) current() *Artifact {
	p.mu.RLock()
	if p.loaded {
		art := p.artifact
		p.mu.RUnlock()
		return art
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		art, err := LoadArtifact(config.AppConfig.ModelPath)
		if err != nil {
			log.Printf("[PREDICT] Failed to load model artifact: %v", err)
		} else if art == nil {
			log.Printf("[PREDICT] No model artifact at %s — using heuristic fallback", config.AppConfig.ModelPath)
		}
		p.artifact = art
		p.loaded = true
	}
	return p.artifact
}

// ModelLoaded reports whether a trained artifact is currently in service
// (loading lazily on first call).
func (p *Predictor) ModelLoaded() bool {
	return p.current() != nil
}

// Predict runs demand prediction for a single product and derives the
// inventory signals from the forecast.
func (p *Predictor) Predict(req models.PredictRequest) (*models.PredictionResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var (
		demand     float64
		confidence float64
		method     string
	)

	if art := p.current(); art != nil {
		now := time.Now()
		feats := ExtractFeatures(req.SalesHistory, req.CurrentStock, req.LeadTimeDays, req.City, &now, 0)

		// Select exactly the columns the artifact was trained on; a key the
		// extractor no longer produces defaults to 0 rather than failing.
		x := make([]float64, len(art.FeatureNames))
		for i, name := range art.FeatureNames {
			x[i] = feats[name]
		}

		demand = art.Model.Predict(x)
		confidence = confidenceFrom(req.SalesHistory)
		method = MethodModel
	} else {
		demand = heuristicDemand(req.SalesHistory)
		confidence = 0.5
		method = MethodHeuristic
	}

	demand = math.Max(0, round2(demand))

	daysToStockout := StockoutNever
	if demand > 0 {
		daysToStockout = int(math.Max(0, math.Floor(req.CurrentStock/demand)))
	}

	// Cover lead-time demand plus the safety buffer.
	reorderQty := int(math.Max(0, math.Ceil(demand*req.LeadTimeDays*config.AppConfig.SafetyFactor)))

	result := &models.PredictionResult{
		PredictedDailyDemand: demand,
		DaysToStockout:       daysToStockout,
		SuggestedReorderQty:  reorderQty,
		Confidence:           confidence,
		Method:               method,
		ProductID:            req.ProductID,
		City:                 req.City,
	}

	log.Printf("[PREDICT] %s/%s → demand=%.2f stockout=%dd reorder=%d (method=%s conf=%.2f)",
		orUnknown(req.ProductID), orUnknown(req.City),
		demand, daysToStockout, reorderQty, method, confidence)

	return result, nil
}

func validate(req models.PredictRequest) error {
	if len(req.SalesHistory) == 0 {
		return fmt.Errorf("%w: salesHistory must be a non-empty array of numbers", ErrValidation)
	}
	if req.CurrentStock < 0 {
		return fmt.Errorf("%w: currentStock must be non-negative", ErrValidation)
	}
	if req.LeadTimeDays <= 0 {
		return fmt.Errorf("%w: leadTimeDays must be positive", ErrValidation)
	}
	return nil
}

// heuristicDemand is the 7-day moving-average fallback used when no trained
// model is available.
func heuristicDemand(history []float64) float64 {
	window := history
	if len(history) > 7 {
		window = history[len(history)-7:]
	}
	return stat.Mean(window, nil)
}

// confidenceFrom maps the short-window coefficient of variation to [0,1]:
// volatile series yield low confidence. A proxy, not a calibrated
// probability.
func confidenceFrom(history []float64) float64 {
	w := config.AppConfig.RollingWindows[0]
	arr := padSeries(history, config.AppConfig.MinHistoryLen)
	win := lastN(arr, w)

	mean := stat.Mean(win, nil)
	cv := 1.0
	if mean > 0 {
		cv = stat.PopStdDev(win, nil) / mean
	}
	conf := math.Max(0, math.Min(1, 1-cv))
	return math.Round(conf*1000) / 1000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
