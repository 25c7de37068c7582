package forecast

import (
	"math"
	"math/rand"
	"time"

	"app/models"
)

// Cities covered by the synthetic generator. Must stay within the closed
// city-code lookup so synthetic rows encode like historical ones.
var syntheticCities = []string{"mumbai", "pune", "delhi", "bangalore", "chennai"}

// cityBias scales base demand per city: large metros sell more.
var cityBias = map[string]float64{
	"mumbai":    1.35,
	"pune":      1.05,
	"delhi":     1.15,
	"bangalore": 1.0,
	"chennai":   0.85,
}

// monthSeasonality holds multiplicative demand factors Jan..Dec
// (summer and festive-season spikes).
var monthSeasonality = [12]float64{
	0.70, 0.72, 0.85, 0.95, 1.15, 1.30,
	1.35, 1.20, 1.00, 1.10, 1.25, 1.30,
}

// weekdayFactor holds multiplicative demand factors Mon..Sun (weekend dip).
var weekdayFactor = [7]float64{1.0, 1.05, 1.02, 0.98, 1.10, 0.80, 0.70}

// GenerateSample produces one synthetic product sales history of
// historyLen days plus a next-day label, composing base demand with monthly
// and weekday seasonality, city bias, a small linear trend and Gaussian
// noise proportional to the base level.
func GenerateSample(historyLen int, rng *rand.Rand) models.TrainingSample {
	baseDemand := 5 + rng.Float64()*75
	city := syntheticCities[rng.Intn(len(syntheticCities))]
	bias := cityBias[city]
	trendSlope := -0.3 + rng.Float64()*0.6

	// Random start date within the past year.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	startOffset := rng.Intn(365)
	start := today.AddDate(0, 0, -(historyLen + 1 + startOffset))

	sales := make([]float64, historyLen+1)
	var refDate time.Time
	for day := 0; day <= historyLen; day++ {
		d := start.AddDate(0, 0, day)
		seasonal := monthSeasonality[int(d.Month())-1]
		wk := weekdayFactor[(int(d.Weekday())+6)%7]
		noise := rng.NormFloat64() * baseDemand * 0.15
		trend := trendSlope * float64(day)

		daily := baseDemand*seasonal*bias*wk + trend + noise
		sales[day] = math.Round(math.Max(0, daily))
		refDate = d
	}

	stockCap := int(baseDemand * 15)
	if stockCap < 1 {
		stockCap = 1
	}

	return models.TrainingSample{
		SalesHistory:  sales[:historyLen],
		NextDayDemand: sales[historyLen],
		CurrentStock:  float64(rng.Intn(stockCap)),
		LeadTimeDays:  float64(1 + rng.Intn(21)),
		City:          city,
		RefDate:       &refDate,
	}
}

// GenerateDataset builds n synthetic samples from a single seeded source,
// so a fixed seed reproduces the exact dataset.
func GenerateDataset(n, historyLen int, seed int64) []models.TrainingSample {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]models.TrainingSample, n)
	for i := range samples {
		samples[i] = GenerateSample(historyLen, rng)
		samples[i].DayOffset = i
	}
	return samples
}
