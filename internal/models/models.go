// internal/models/models.go

package models

import (
	"time"
)

// Organization is the top-level venue entity owned by the remote backend.
type Organization struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	OrgType       string   `json:"org_type"`
	TotalCapacity int      `json:"total_capacity"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

// Zone is a named spatial subdivision of a venue. Coordinates are optional;
// the backend emits either latitude/longitude or lat/lng depending on the
// route, so both spellings are accepted on decode.
type Zone struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	ZoneType string   `json:"zone_type,omitempty"`
	Capacity int      `json:"capacity,omitempty"`
	Lat      *float64 `json:"latitude"`
	Lng      *float64 `json:"longitude"`
	AltLat   *float64 `json:"lat,omitempty"`
	AltLng   *float64 `json:"lng,omitempty"`
}

// Latitude returns the zone latitude regardless of which field the backend
// populated, or nil when the zone carries no coordinate.
func (z *Zone) Latitude() *float64 {
	if z.Lat != nil {
		return z.Lat
	}
	return z.AltLat
}

func (z *Zone) Longitude() *float64 {
	if z.Lng != nil {
		return z.Lng
	}
	return z.AltLng
}

// Raw alert lifecycle values as the backend emits them.
const (
	RawStatusOpen   = "OPEN"
	RawStatusClosed = "CLOSED"
)

// RawAlert is an alert record exactly as fetched from the backend. Batches
// are replaced wholesale on every poll; records are never merged.
type RawAlert struct {
	ID         int    `json:"id"`
	Heading    string `json:"heading"`
	SubHeading string `json:"sub_heading"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// Display alert levels and statuses. Only two levels are derivable from
// backend data (open/closed); "warning" exists only for density tiers.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelSuccess  = "success"

	AlertActive       = "active"
	AlertResolved     = "resolved"
	AlertAcknowledged = "acknowledged"
)

// DisplayAlert is the normalized, presentation-ready form of a RawAlert.
// Location is a best-effort parse of the heading, never authoritative.
// Occupancy is nil when the sub-heading carried no parsable count pair.
type DisplayAlert struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Desc      string `json:"desc"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Status    string `json:"status"`
	Location  string `json:"location,omitempty"`
	Occupancy *int   `json:"occupancy,omitempty"`
}

// Zone density tiers, a strict threshold function of density.
const (
	DensityLow      = "low"
	DensityWarning  = "warning"
	DensityCritical = "critical"
)

// DerivedZone is a Zone joined with the occupancy figure parsed from the
// current alert batch. Density defaults to 0 when no alert maps to the zone.
// MapLat/MapLng are always populated: real coordinates when the zone has
// them, otherwise a deterministic placeholder offset from the organization.
type DerivedZone struct {
	Zone
	Density int     `json:"density"`
	Tier    string  `json:"status"`
	MapLat  float64 `json:"map_lat"`
	MapLng  float64 `json:"map_lng"`
	Approx  bool    `json:"approx_position,omitempty"`
}

// CarbonStats is the backend's aggregate savings record. All fields beyond
// the running total are optional.
type CarbonStats struct {
	TotalSavedAllTime   *float64            `json:"total_saved_all_time"`
	AveragePerDetection *float64            `json:"average_per_detection"`
	RecentHistory       []CarbonHistoryItem `json:"recent_history"`
}

type CarbonHistoryItem struct {
	Saved float64 `json:"saved"`
}

// Metrics holds the per-tick aggregate derivations. Nil pointers mean the
// figure could not be computed from the available data.
type Metrics struct {
	AvgDensity           *float64  `json:"avg_density"`
	ProjectedCarbonMonth *float64  `json:"projected_carbon_month"`
	EfficiencyPercent    *int      `json:"efficiency_percent"`
	DensityTrend         []float64 `json:"density_trend,omitempty"`
}

// Snapshot is one committed poll tick: everything the dashboard renders.
type Snapshot struct {
	Generation    uint64         `json:"generation"`
	FetchedAt     time.Time      `json:"fetched_at"`
	Organizations []Organization `json:"organizations"`
	Zones         []DerivedZone  `json:"zones"`
	Alerts        []DisplayAlert `json:"alerts"`
	Carbon        *CarbonStats   `json:"carbon,omitempty"`
	Metrics       Metrics        `json:"metrics"`
}

// Camera registration payload (POST /cameras/).
type Camera struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
	ZoneID   int    `json:"zone_id"`
}

// Notification is an operator broadcast forwarded to the backend.
type Notification struct {
	ID      int    `json:"id,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// TokenPair is the bearer access/refresh pair cached locally. It is a
// best-effort cache of the backend session, never a source of truth.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// User mirrors the backend's /auth/me response.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

// SetupCamera and SetupZone describe the multi-step setup form payload.
type SetupCamera struct {
	Name string `json:"name"`
}

type SetupZone struct {
	Name     string        `json:"name"`
	ZoneType string        `json:"zone_type"`
	Capacity int           `json:"capacity"`
	Cameras  []SetupCamera `json:"cameras"`
}

// SetupForm is the organization setup blob. It is persisted as JSON under a
// fixed settings key so a restart restores the operator's configuration.
type SetupForm struct {
	OrganizationName string      `json:"organization_name"`
	VenueType        string      `json:"venue_type"`
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	TotalCapacity    int         `json:"total_capacity"`
	Zones            []SetupZone `json:"zones"`
	IoTSource        string      `json:"iot_source,omitempty"`
	RefreshRate      string      `json:"refresh_rate,omitempty"`
	HVACControl      string      `json:"hvac_control,omitempty"`
	BaselineKwh      int         `json:"baseline_kwh,omitempty"`
	EnergySource     string      `json:"energy_source,omitempty"`
}

// SetupResult reports how far the setup orchestration got.
type SetupResult struct {
	OrganizationID int    `json:"organization_id"`
	ZonesCreated   int    `json:"zones_created"`
	CamerasCreated int    `json:"cameras_created"`
	Warning        string `json:"warning,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database bool `json:"database"`
		Upstream bool `json:"upstream"`
		Poller   bool `json:"poller"`
	} `json:"services"`
}
