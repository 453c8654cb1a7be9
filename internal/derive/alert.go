// Package derive holds the pure derivation pipeline between raw backend
// responses and the presentation layer: alert normalization, zone density
// resolution, and the aggregate metric reducers. Nothing here performs I/O;
// parse failures degrade to nil/defaults and never surface as errors.
package derive

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"EcoFlowOps/internal/models"
)

var (
	// locationRe captures the zone name after a trailing "in", e.g.
	// "Overcrowding in Main Hall" -> "Main Hall".
	locationRe = regexp.MustCompile(`(?i)\bin\s+(.+)$`)

	// occupancyRe matches the first "<int> / <int>" pair in free text.
	occupancyRe = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
)

// Accepted created_at layouts. The backend emits RFC3339 with fractional
// seconds, but older records appeared without zone or with a space separator.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseLocation extracts a best-effort zone name from an alert heading.
// The heading is a human-written sentence, so this is a heuristic: the text
// after a final "in" when present, otherwise the whole trimmed heading.
// Returns "" for an empty heading.
func ParseLocation(heading string) string {
	trimmed := strings.TrimSpace(heading)
	if trimmed == "" {
		return ""
	}
	if m := locationRe.FindStringSubmatch(trimmed); m != nil {
		if loc := strings.TrimSpace(m[1]); loc != "" {
			return loc
		}
	}
	return trimmed
}

// ParseOccupancy finds a "<detected> / <capacity>" pair in an alert
// sub-heading and converts it to a 0-100 percentage. Returns nil when no
// pair is present or capacity is not positive; a matched pair with zero
// detected yields 0, which is a valid reading distinct from "no match".
func ParseOccupancy(subHeading string) *int {
	m := occupancyRe.FindStringSubmatch(subHeading)
	if m == nil {
		return nil
	}
	detected, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	capacity, err := strconv.Atoi(m[2])
	if err != nil || capacity <= 0 {
		return nil
	}
	pct := math.Round(math.Min(100, float64(detected)/float64(capacity)*100))
	out := int(pct)
	return &out
}

// ParseCreatedAt converts the backend's created_at string to epoch
// milliseconds. Unparsable values fail closed to the supplied now.
func ParseCreatedAt(raw string, now time.Time) int64 {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UnixMilli()
		}
	}
	return now.UnixMilli()
}

// NormalizeAlert maps one raw backend alert to its display form. Level and
// status are pure functions of the raw status: only CLOSED is distinguishable
// as resolved, everything else is an active critical.
func NormalizeAlert(raw models.RawAlert, now time.Time) models.DisplayAlert {
	level := models.LevelCritical
	status := models.AlertActive
	if raw.Status == models.RawStatusClosed {
		level = models.LevelSuccess
		status = models.AlertResolved
	}

	return models.DisplayAlert{
		ID:        strconv.Itoa(raw.ID),
		Text:      raw.Heading,
		Desc:      raw.SubHeading,
		CreatedAt: ParseCreatedAt(raw.CreatedAt, now),
		Level:     level,
		Status:    status,
		Location:  ParseLocation(raw.Heading),
		Occupancy: ParseOccupancy(raw.SubHeading),
	}
}

// NormalizeAlerts maps a raw batch to display alerts, order-preserving and
// equal length. The input batch is never mutated.
func NormalizeAlerts(raw []models.RawAlert, now time.Time) []models.DisplayAlert {
	out := make([]models.DisplayAlert, len(raw))
	for i, a := range raw {
		out[i] = NormalizeAlert(a, now)
	}
	return out
}
