package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// --- JWT & Auth ---

type JwtClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// --- Core Models ---

// SalesRecord is one row of the historical daily-sales export produced by
// the upstream backend. Order within the export is irrelevant; the dataset
// builder re-sorts per (product, city) group by date.
type SalesRecord struct {
	ProductID    string    `json:"productId"`
	City         string    `json:"city"`
	Date         time.Time `json:"date"`
	QuantitySold float64   `json:"quantitySold"`
}

// TrainingSample is one labelled window of daily sales, ready for feature
// extraction. Produced either by sliding a window across a historical group
// or by the synthetic generator.
type TrainingSample struct {
	SalesHistory  []float64
	CurrentStock  float64
	LeadTimeDays  float64
	NextDayDemand float64
	City          string
	RefDate       *time.Time
	DayOffset     int
}

// --- Prediction DTOs ---

// PredictRequest is the body of POST /api/v1/predict-demand.
type PredictRequest struct {
	ProductID    string    `json:"productId"`
	City         string    `json:"city"`
	SalesHistory []float64 `json:"salesHistory"`
	CurrentStock float64   `json:"currentStock"`
	LeadTimeDays float64   `json:"leadTimeDays"`
}

// PredictionResult is the forecast plus the derived inventory signals.
type PredictionResult struct {
	PredictedDailyDemand float64 `json:"predictedDailyDemand"`
	DaysToStockout       int     `json:"daysToStockout"`
	SuggestedReorderQty  int     `json:"suggestedReorderQty"`
	Confidence           float64 `json:"confidence"`
	Method               string  `json:"method"`
	ProductID            string  `json:"productId,omitempty"`
	City                 string  `json:"city,omitempty"`
}

// --- Training DTOs ---

// TrainResult reports holdout metrics and where the artifact was written.
type TrainResult struct {
	MAE        float64 `json:"mae"`
	R2         float64 `json:"r2"`
	ModelPath  string  `json:"modelPath"`
	DataSource string  `json:"dataSource"`
	Samples    int     `json:"samples"`
}

// --- AI Insights ---

// InsightRequest asks for a human-readable analysis of a forecast.
type InsightRequest struct {
	PredictRequest
	Prompt string `json:"prompt"`
}
