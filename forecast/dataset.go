package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"app/config"
	"app/database"
	"app/models"
)

// Data source tags reported by BuildDataset.
const (
	SourceSynthetic  = "synthetic"
	SourceHistorical = "historical"
	SourceMixed      = "historical+synthetic"
)

// exportRecord mirrors one row of the upstream backend's JSON sales export.
type exportRecord struct {
	ProductID    string  `json:"productId"`
	City         string  `json:"city"`
	Date         string  `json:"date"`
	QuantitySold float64 `json:"quantitySold"`
}

// LoadExport reads the historical sales export file. A missing file is not
// an error: it returns (nil, nil) and the caller falls back to synthetic
// data. Malformed rows fail the whole load, since a partially parsed export
// would silently skew training.
func LoadExport(path string) ([]models.SalesRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sales export: %w", err)
	}

	var rows []exportRecord
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse sales export: %w", err)
	}

	records := make([]models.SalesRecord, 0, len(rows))
	for i, r := range rows {
		d, err := parseExportDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("sales export row %d has invalid date %q: %w", i, r.Date, err)
		}
		if r.QuantitySold < 0 {
			return nil, fmt.Errorf("sales export row %d has negative quantity %v", i, r.QuantitySold)
		}
		records = append(records, models.SalesRecord{
			ProductID:    r.ProductID,
			City:         r.City,
			Date:         d,
			QuantitySold: r.QuantitySold,
		})
	}
	return records, nil
}

func parseExportDate(s string) (time.Time, error) {
	formats := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	var lastErr error
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// LoadFromDB reads daily sales from the upstream backend's database, when
// one is configured. A nil pool is not an error.
func LoadFromDB(ctx context.Context) ([]models.SalesRecord, error) {
	pool := database.Pool()
	if pool == nil {
		return nil, nil
	}

	query := `
		SELECT product_id, city, sale_date, quantity_sold
		FROM daily_sales
		WHERE quantity_sold >= 0
	`
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}
	defer rows.Close()

	var records []models.SalesRecord
	for rows.Next() {
		var rec models.SalesRecord
		if err := rows.Scan(&rec.ProductID, &rec.City, &rec.Date, &rec.QuantitySold); err != nil {
			return nil, fmt.Errorf("failed to scan daily sales row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SlidingWindows converts historical records into labelled training samples.
// Records are grouped by (product, city), sorted by date, and a fixed-width
// window slides across each group; the value immediately after the window is
// the label. Groups shorter than windowLen+1 are skipped whole — no partial
// windows. Stock and lead time are not tracked historically, so they are
// synthesized from a seeded rng, stock proportional to the window's mean
// demand.
func SlidingWindows(records []models.SalesRecord, windowLen int, seed int64) []models.TrainingSample {
	type groupKey struct{ product, city string }

	groups := make(map[groupKey][]models.SalesRecord)
	for _, r := range records {
		k := groupKey{r.ProductID, r.City}
		groups[k] = append(groups[k], r)
	}

	// Deterministic group order so a fixed seed reproduces the dataset.
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].product != keys[j].product {
			return keys[i].product < keys[j].product
		}
		return keys[i].city < keys[j].city
	})

	rng := rand.New(rand.NewSource(seed))
	var samples []models.TrainingSample

	for _, k := range keys {
		group := groups[k]
		if len(group) < windowLen+1 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

		qty := make([]float64, len(group))
		for i, r := range group {
			qty[i] = r.QuantitySold
		}

		for start := 0; start+windowLen < len(qty); start++ {
			window := qty[start : start+windowLen]
			meanDemand := stat.Mean(window, nil)

			stockCap := int(meanDemand * 15)
			if stockCap < 1 {
				stockCap = 1
			}

			refDate := group[start+windowLen-1].Date
			samples = append(samples, models.TrainingSample{
				SalesHistory:  window,
				NextDayDemand: qty[start+windowLen],
				CurrentStock:  float64(rng.Intn(stockCap)),
				LeadTimeDays:  float64(1 + rng.Intn(21)),
				City:          k.city,
				RefDate:       &refDate,
			})
		}
	}
	return samples
}

// BuildDataset assembles the training set. Historical data is preferred when
// available; when it yields fewer than the minimum sample count, synthetic
// samples supplement it rather than replace it.
func BuildDataset(ctx context.Context, nSamples, historyLen int, seed int64) ([]models.TrainingSample, string, error) {
	cfg := config.AppConfig

	records, err := LoadExport(cfg.HistoricalExportPath)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		records, err = LoadFromDB(ctx)
		if err != nil {
			return nil, "", err
		}
	}

	if len(records) == 0 {
		log.Printf("[DATASET] No historical sales available — generating %d synthetic samples", nSamples)
		return GenerateDataset(nSamples, historyLen, seed), SourceSynthetic, nil
	}

	samples := SlidingWindows(records, cfg.SlidingWindowLen, seed)
	if len(samples) >= cfg.MinTrainingSamples {
		log.Printf("[DATASET] Built %d samples from %d historical rows", len(samples), len(records))
		return samples, SourceHistorical, nil
	}
	if len(samples) == 0 {
		log.Printf("[DATASET] %d historical rows yielded no full windows — generating %d synthetic samples",
			len(records), nSamples)
		return GenerateDataset(nSamples, historyLen, seed), SourceSynthetic, nil
	}

	supplement := nSamples - len(samples)
	if supplement < cfg.MinTrainingSamples {
		supplement = cfg.MinTrainingSamples
	}
	log.Printf("[DATASET] Only %d historical samples (< %d) — supplementing with %d synthetic",
		len(samples), cfg.MinTrainingSamples, supplement)
	samples = append(samples, GenerateDataset(supplement, historyLen, seed)...)
	return samples, SourceMixed, nil
}
