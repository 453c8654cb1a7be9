package derive

import (
	"math"
	"time"

	"EcoFlowOps/internal/models"
)

// trendBaseline is the floor of the normalized hourly activity profile so
// quiet hours still render above the chart axis.
const trendBaseline = 8.0

// AvgDensity is the mean density over zones that matched an alert
// (density > 0). Zones with no match are excluded from the average, not
// counted as zeros. Returns nil when no zone has a non-zero density.
func AvgDensity(zones []models.DerivedZone) *float64 {
	var sum, n float64
	for _, z := range zones {
		if z.Density > 0 {
			sum += float64(z.Density)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / n
	return &avg
}

// ProjectedCarbonThisMonth linearly extrapolates the running all-time total
// over the current month: (total / dayOfMonth) * daysInMonth at the supplied
// wall-clock time. This is an approximation, not a forecast — no seasonality
// and no confidence interval. Returns nil when the total is absent.
func ProjectedCarbonThisMonth(stats *models.CarbonStats, now time.Time) *float64 {
	if stats == nil || stats.TotalSavedAllTime == nil {
		return nil
	}
	day := now.Day()
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	projected := *stats.TotalSavedAllTime / float64(day) * float64(daysInMonth)
	return &projected
}

// EfficiencyPercent prefers the backend's average-per-detection figure,
// falling back to the mean of recent history entries. Returns nil when
// neither source is present.
func EfficiencyPercent(stats *models.CarbonStats) *int {
	if stats == nil {
		return nil
	}
	if stats.AveragePerDetection != nil {
		pct := int(math.Round(*stats.AveragePerDetection * 100))
		return &pct
	}
	if len(stats.RecentHistory) > 0 {
		var sum float64
		for _, h := range stats.RecentHistory {
			sum += h.Saved
		}
		pct := int(math.Round(sum / float64(len(stats.RecentHistory)) * 100))
		return &pct
	}
	return nil
}

// DensityTrendFromAlerts buckets alert counts into 24 hourly bins by local
// hour-of-day and normalizes each bin to baseline + (100-baseline) *
// count/maxCount. The result is an activity profile, not a true density
// series. Returns nil when the batch is empty so the caller can substitute
// its own fallback series.
func DensityTrendFromAlerts(alerts []models.DisplayAlert, loc *time.Location) []float64 {
	if len(alerts) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	counts := make([]int, 24)
	maxCount := 0
	for _, a := range alerts {
		hour := time.UnixMilli(a.CreatedAt).In(loc).Hour()
		counts[hour]++
		if counts[hour] > maxCount {
			maxCount = counts[hour]
		}
	}

	out := make([]float64, 24)
	for i, c := range counts {
		out[i] = trendBaseline + (100-trendBaseline)*float64(c)/float64(maxCount)
	}
	return out
}

// Aggregate computes the full metric set for one poll tick.
func Aggregate(zones []models.DerivedZone, alerts []models.DisplayAlert, stats *models.CarbonStats, now time.Time) models.Metrics {
	return models.Metrics{
		AvgDensity:           AvgDensity(zones),
		ProjectedCarbonMonth: ProjectedCarbonThisMonth(stats, now),
		EfficiencyPercent:    EfficiencyPercent(stats),
		DensityTrend:         DensityTrendFromAlerts(alerts, now.Location()),
	}
}
