package forecast

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"app/config"
)

// Feature schema version persisted inside the model artifact. Bump when the
// key set produced by ExtractFeatures changes.
const SchemaVersion = 1

const (
	longWindow = 30 // extended rolling-mean window
	lagShort   = 7
	lagLong    = 30

	// stock_demand_ratio sentinel when the short rolling mean is zero:
	// near-infinite days of cover.
	coverSentinel = 999.0
)

// cityCodes is a closed, hardcoded lookup from known city names (lower-cased,
// trimmed) to small integers, sorted alphabetically. It must never be inferred
// from data: extending coverage means extending this table, keeping the
// training and inference encodings bit-compatible.
var cityCodes = map[string]float64{
	"bangalore": 0,
	"chennai":   1,
	"delhi":     2,
	"mumbai":    3,
	"pune":      4,
}

// unknownCityCode is the sentinel for absent or unrecognised cities.
const unknownCityCode = -1.0

// CityCode resolves a city name against the closed lookup table.
func CityCode(city string) float64 {
	key := normalizeCity(city)
	if code, ok := cityCodes[key]; ok {
		return code
	}
	return unknownCityCode
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// ExtractFeatures converts a raw daily sales history (oldest → newest) plus
// inventory context into a flat named feature map. It is pure: identical
// inputs always produce bit-identical output. Input validation is the
// caller's job; the extractor itself never fails.
//
// When refDate is nil the calendar features fall back to a deterministic
// cyclic encoding driven by len(series)+dayOffset, so synthetic rows without
// real dates still carry a weekday signal.
func ExtractFeatures(series []float64, currentStock, leadTime float64, city string, refDate *time.Time, dayOffset int) map[string]float64 {
	minLen := config.AppConfig.MinHistoryLen
	windows := config.AppConfig.RollingWindows

	arr := padSeries(series, minLen)
	features := make(map[string]float64, 16)

	for _, w := range windows {
		win := lastN(arr, w)
		features[fmt.Sprintf("rolling_mean_%d", w)] = stat.Mean(win, nil)
		features[fmt.Sprintf("rolling_std_%d", w)] = stat.PopStdDev(win, nil)
	}
	features[fmt.Sprintf("rolling_mean_%d", longWindow)] = stat.Mean(lastN(arr, longWindow), nil)

	features["lag_7"] = lag(arr, lagShort)
	features["lag_30"] = lag(arr, lagLong)

	// Linear drift: shift between the earliest and latest short window.
	w0 := windows[0]
	features["trend"] = stat.Mean(lastN(arr, w0), nil) - stat.Mean(arr[:min(w0, len(arr))], nil)

	features["last_day_sales"] = arr[len(arr)-1]

	weekday, month, week := calendar(refDate, len(arr), dayOffset)
	features["day_of_week"] = weekday
	features["month"] = month
	features["week_of_year"] = week

	features["city_code"] = CityCode(city)
	features["current_stock"] = currentStock
	features["lead_time_days"] = leadTime

	shortMean := features[fmt.Sprintf("rolling_mean_%d", windows[0])]
	if shortMean > 0 {
		features["stock_demand_ratio"] = currentStock / shortMean
	} else {
		features["stock_demand_ratio"] = coverSentinel
	}

	return features
}

// padSeries left-pads a short history by repeating its own mean (0 when
// empty) so window slicing never runs out of range without biasing the
// recent-window statistics.
func padSeries(series []float64, minLen int) []float64 {
	if len(series) >= minLen {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}
	padVal := 0.0
	if len(series) > 0 {
		padVal = stat.Mean(series, nil)
	}
	out := make([]float64, minLen)
	pad := minLen - len(series)
	for i := 0; i < pad; i++ {
		out[i] = padVal
	}
	copy(out[pad:], series)
	return out
}

func lastN(arr []float64, n int) []float64 {
	if n >= len(arr) {
		return arr
	}
	return arr[len(arr)-n:]
}

// lag returns the value exactly n points back from the most recent one,
// clamped to the earliest available point for short histories.
func lag(arr []float64, n int) float64 {
	idx := len(arr) - 1 - n
	if idx < 0 {
		idx = 0
	}
	return arr[idx]
}

// calendar derives (weekday 0-6 Monday-based, month 1-12, ISO week) from the
// reference date, or from the deterministic cyclic fallback when no date is
// supplied.
func calendar(refDate *time.Time, seriesLen, dayOffset int) (weekday, month, week float64) {
	if refDate != nil {
		d := *refDate
		weekday = float64((int(d.Weekday()) + 6) % 7)
		month = float64(int(d.Month()))
		_, isoWeek := d.ISOWeek()
		week = float64(isoWeek)
		return weekday, month, week
	}
	dayIdx := seriesLen + dayOffset
	weekday = float64(dayIdx % 7)
	month = float64((dayIdx/30)%12 + 1)
	week = float64((dayIdx/7)%52 + 1)
	return weekday, month, week
}
