package derive

import (
	"EcoFlowOps/internal/models"
)

// coordStep is the per-index offset (degrees) used when synthesizing a
// placeholder position for a zone without coordinates.
const coordStep = 0.001

// ClassifyDensity maps a 0-100 density to its status tier.
func ClassifyDensity(density int) string {
	switch {
	case density >= 90:
		return models.DensityCritical
	case density >= 70:
		return models.DensityWarning
	default:
		return models.DensityLow
	}
}

// OccupancyByZone builds a zone-name -> occupancy map from a raw alert
// batch. Later alerts in iteration order overwrite earlier ones for the same
// name (last-write-wins within the batch, not timestamp-ordered — the
// backend returns batches newest-first). Alerts with no parsable occupancy
// contribute nothing.
func OccupancyByZone(alerts []models.RawAlert) map[string]int {
	out := make(map[string]int)
	for _, a := range alerts {
		occ := ParseOccupancy(a.SubHeading)
		if occ == nil {
			continue
		}
		name := ParseLocation(a.Heading)
		if name == "" {
			continue
		}
		out[name] = *occ
	}
	return out
}

// ResolveZoneDensity joins parsed occupancies onto the organization's zone
// list by exact case-sensitive name match, preserving zone input order. A
// zone with no matching alert gets density 0. Zones lacking coordinates get
// a synthesized position offset from the organization coordinate by
// index*0.001 degrees per axis — a deterministic placeholder layout, not a
// geocoded position; reordering the input changes synthesized positions.
func ResolveZoneDensity(zones []models.Zone, alerts []models.RawAlert, org *models.Organization) []models.DerivedZone {
	occupancy := OccupancyByZone(alerts)

	var baseLat, baseLng float64
	if org != nil {
		if org.Latitude != nil {
			baseLat = *org.Latitude
		}
		if org.Longitude != nil {
			baseLng = *org.Longitude
		}
	}

	out := make([]models.DerivedZone, len(zones))
	for i, z := range zones {
		density := occupancy[z.Name]

		dz := models.DerivedZone{
			Zone:    z,
			Density: density,
			Tier:    ClassifyDensity(density),
		}

		if lat, lng := z.Latitude(), z.Longitude(); lat != nil && lng != nil {
			dz.MapLat = *lat
			dz.MapLng = *lng
		} else {
			dz.MapLat = baseLat + float64(i)*coordStep
			dz.MapLng = baseLng + float64(i)*coordStep
			dz.Approx = true
		}

		out[i] = dz
	}
	return out
}
