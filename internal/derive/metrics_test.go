package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EcoFlowOps/internal/models"
)

func dz(name string, density int) models.DerivedZone {
	return models.DerivedZone{
		Zone:    models.Zone{Name: name},
		Density: density,
		Tier:    ClassifyDensity(density),
	}
}

func TestAvgDensityExcludesUnmatchedZones(t *testing.T) {
	zones := []models.DerivedZone{dz("A", 0), dz("B", 80), dz("C", 0), dz("D", 60)}

	got := AvgDensity(zones)
	require.NotNil(t, got)
	// Only the non-zero entries are averaged: (80+60)/2, not /4.
	assert.InDelta(t, 70.0, *got, 1e-9)
}

func TestAvgDensityNoMatches(t *testing.T) {
	assert.Nil(t, AvgDensity([]models.DerivedZone{dz("A", 0), dz("B", 0)}))
	assert.Nil(t, AvgDensity(nil))
}

func TestProjectedCarbonThisMonth(t *testing.T) {
	total := 100.0
	stats := &models.CarbonStats{TotalSavedAllTime: &total}

	// Day 10 of a 30-day month: 100/10 * 30 = 300.
	sept10 := time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)
	got := ProjectedCarbonThisMonth(stats, sept10)
	require.NotNil(t, got)
	assert.InDelta(t, 300.0, *got, 1e-9)

	// 31-day month.
	jan10 := time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)
	got = ProjectedCarbonThisMonth(stats, jan10)
	require.NotNil(t, got)
	assert.InDelta(t, 310.0, *got, 1e-9)

	assert.Nil(t, ProjectedCarbonThisMonth(&models.CarbonStats{}, sept10))
	assert.Nil(t, ProjectedCarbonThisMonth(nil, sept10))
}

func TestEfficiencyPercent(t *testing.T) {
	avg := 0.874
	got := EfficiencyPercent(&models.CarbonStats{AveragePerDetection: &avg})
	require.NotNil(t, got)
	assert.Equal(t, 87, *got)

	// Fallback: mean of recent history entries.
	stats := &models.CarbonStats{
		RecentHistory: []models.CarbonHistoryItem{{Saved: 0.5}, {Saved: 0.7}},
	}
	got = EfficiencyPercent(stats)
	require.NotNil(t, got)
	assert.Equal(t, 60, *got)

	// Explicit average wins over history when both are present.
	stats.AveragePerDetection = &avg
	got = EfficiencyPercent(stats)
	require.NotNil(t, got)
	assert.Equal(t, 87, *got)

	assert.Nil(t, EfficiencyPercent(&models.CarbonStats{}))
	assert.Nil(t, EfficiencyPercent(nil))
}

func TestDensityTrendFromAlerts(t *testing.T) {
	mk := func(hour int) models.DisplayAlert {
		return models.DisplayAlert{
			CreatedAt: time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC).UnixMilli(),
		}
	}
	alerts := []models.DisplayAlert{mk(9), mk(9), mk(14)}

	trend := DensityTrendFromAlerts(alerts, time.UTC)
	require.Len(t, trend, 24)

	// Busiest hour normalizes to 100, a half-busy hour to baseline + half
	// the remaining range, empty hours to the baseline.
	assert.InDelta(t, 100.0, trend[9], 1e-9)
	assert.InDelta(t, 8+(100-8)*0.5, trend[14], 1e-9)
	assert.InDelta(t, 8.0, trend[0], 1e-9)
}

func TestDensityTrendFromAlertsEmpty(t *testing.T) {
	assert.Nil(t, DensityTrendFromAlerts(nil, time.UTC))
	assert.Nil(t, DensityTrendFromAlerts([]models.DisplayAlert{}, time.UTC))
}

func TestAggregate(t *testing.T) {
	total := 60.0
	stats := &models.CarbonStats{TotalSavedAllTime: &total}
	zones := []models.DerivedZone{dz("A", 50)}
	now := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

	m := Aggregate(zones, nil, stats, now)

	require.NotNil(t, m.AvgDensity)
	assert.InDelta(t, 50.0, *m.AvgDensity, 1e-9)
	require.NotNil(t, m.ProjectedCarbonMonth)
	assert.InDelta(t, 120.0, *m.ProjectedCarbonMonth, 1e-9)
	assert.Nil(t, m.EfficiencyPercent)
	assert.Nil(t, m.DensityTrend)
}
