package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EcoFlowOps/internal/models"
)

func TestClassifyDensity(t *testing.T) {
	tests := []struct {
		density int
		want    string
	}{
		{0, models.DensityLow},
		{69, models.DensityLow},
		{70, models.DensityWarning},
		{89, models.DensityWarning},
		{90, models.DensityCritical},
		{100, models.DensityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyDensity(tt.density), "density %d", tt.density)
	}
}

func TestOccupancyByZoneLastWriteWins(t *testing.T) {
	alerts := []models.RawAlert{
		{Heading: "Overcrowding in Main Hall", SubHeading: "40/50", Status: "OPEN"},
		{Heading: "Easing in Main Hall", SubHeading: "20/50", Status: "OPEN"},
		{Heading: "No numbers in Lobby", SubHeading: "situation normal", Status: "OPEN"},
	}

	occ := OccupancyByZone(alerts)
	// Second Main Hall alert overwrites the first within the batch.
	assert.Equal(t, map[string]int{"Main Hall": 20}, occ, "later entries overwrite")
	_, hasLobby := occ["Lobby"]
	assert.False(t, hasLobby)
}

func TestResolveZoneDensity(t *testing.T) {
	zones := []models.Zone{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}
	alerts := []models.RawAlert{
		{Heading: "Overcrowding in A", SubHeading: "95/100", Status: "OPEN"},
		{Heading: "Status update in B", SubHeading: "no counts here", Status: "OPEN"},
	}

	derived := ResolveZoneDensity(zones, alerts, nil)
	require.Len(t, derived, 2)

	assert.Equal(t, 95, derived[0].Density)
	assert.Equal(t, models.DensityCritical, derived[0].Tier)

	// B's alert carried no occupancy: density stays 0, tier low.
	assert.Equal(t, 0, derived[1].Density)
	assert.Equal(t, models.DensityLow, derived[1].Tier)
}

func TestResolveZoneDensityNameMatchIsCaseSensitive(t *testing.T) {
	zones := []models.Zone{{ID: 1, Name: "main hall"}}
	alerts := []models.RawAlert{
		{Heading: "Overcrowding in Main Hall", SubHeading: "45/50", Status: "OPEN"},
	}

	derived := ResolveZoneDensity(zones, alerts, nil)
	assert.Equal(t, 0, derived[0].Density)
}

func TestResolveZoneDensityEmptyAlerts(t *testing.T) {
	zones := []models.Zone{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}

	derived := ResolveZoneDensity(zones, nil, nil)
	require.Len(t, derived, 3)
	for _, z := range derived {
		assert.Equal(t, 0, z.Density)
		assert.Equal(t, models.DensityLow, z.Tier)
	}
}

func TestResolveZoneDensityCoordinateSynthesis(t *testing.T) {
	lat, lng := 24.7592, 46.7388
	org := &models.Organization{ID: 1, Latitude: &lat, Longitude: &lng}

	zLat, zLng := 24.7600, 46.7400
	zones := []models.Zone{
		{ID: 1, Name: "Placed", Lat: &zLat, Lng: &zLng},
		{ID: 2, Name: "Unplaced"},
		{ID: 3, Name: "Also Unplaced"},
	}

	derived := ResolveZoneDensity(zones, nil, org)

	// Real coordinates pass through untouched.
	assert.Equal(t, zLat, derived[0].MapLat)
	assert.Equal(t, zLng, derived[0].MapLng)
	assert.False(t, derived[0].Approx)

	// Missing coordinates are synthesized from the org position, offset by
	// index per axis. The offset is index-dependent, so positions 1 and 2
	// land on different points.
	assert.InDelta(t, lat+1*0.001, derived[1].MapLat, 1e-9)
	assert.InDelta(t, lng+1*0.001, derived[1].MapLng, 1e-9)
	assert.True(t, derived[1].Approx)

	assert.InDelta(t, lat+2*0.001, derived[2].MapLat, 1e-9)
	assert.True(t, derived[2].Approx)
}

func TestResolveZoneDensityAltCoordinateSpelling(t *testing.T) {
	lat, lng := 10.0, 20.0
	zones := []models.Zone{{ID: 1, Name: "Alt", AltLat: &lat, AltLng: &lng}}

	derived := ResolveZoneDensity(zones, nil, nil)
	assert.Equal(t, lat, derived[0].MapLat)
	assert.Equal(t, lng, derived[0].MapLng)
	assert.False(t, derived[0].Approx)
}
