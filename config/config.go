package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds application configuration.
// This is a simple way to make config accessible globally.
// A more advanced approach might use dependency injection.
type Config struct {
	ListenAddr   string
	JWTSecret    string
	DatabaseURL  string
	GeminiAPIKey string

	// Model persistence
	ModelDir  string
	ModelPath string

	// Historical sales export (JSON file produced by the upstream backend)
	HistoricalExportPath string

	// Feature engineering
	RollingWindows []int
	MinHistoryLen  int

	// Gradient-boosted regressor hyperparameters (fixed, not searched)
	NumTrees     int
	MaxDepth     int
	LearningRate float64
	Subsample    float64
	ColSample    float64

	// Training data
	SyntheticSamples    int
	SyntheticHistoryLen int
	SlidingWindowLen    int
	MinTrainingSamples  int
	TrainSeed           int64

	// Reorder sizing: buffer over lead-time demand
	SafetyFactor float64
}

// AppConfig holds the application-wide configuration.
var AppConfig Config

// Load populates AppConfig from environment variables, applying defaults
// for everything except secrets.
func Load() {
	modelDir := getEnv("MODEL_DIR", "models")

	AppConfig = Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":3000"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),

		ModelDir:  modelDir,
		ModelPath: filepath.Join(modelDir, "demand_model.json"),

		HistoricalExportPath: getEnv("HISTORICAL_EXPORT_PATH", "data/sales_export.json"),

		RollingWindows: []int{7, 14},
		MinHistoryLen:  getEnvInt("MIN_HISTORY_LEN", 14),

		NumTrees:     getEnvInt("GBRT_TREES", 200),
		MaxDepth:     getEnvInt("GBRT_MAX_DEPTH", 5),
		LearningRate: getEnvFloat("GBRT_LEARNING_RATE", 0.08),
		Subsample:    getEnvFloat("GBRT_SUBSAMPLE", 0.8),
		ColSample:    getEnvFloat("GBRT_COLSAMPLE", 0.8),

		SyntheticSamples:    getEnvInt("SYNTHETIC_SAMPLES", 2000),
		SyntheticHistoryLen: getEnvInt("SYNTHETIC_HISTORY_LEN", 60),
		SlidingWindowLen:    getEnvInt("SLIDING_WINDOW_LEN", 30),
		MinTrainingSamples:  getEnvInt("MIN_TRAINING_SAMPLES", 200),
		TrainSeed:           int64(getEnvInt("TRAIN_SEED", 42)),

		SafetyFactor: getEnvFloat("SAFETY_FACTOR", 1.25),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
