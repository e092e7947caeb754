package models

import (
	"strings"
	"time"
)

// StationReading is one station's current PM2.5 snapshot, built fresh
// each run from the Air4Thai feed.
type StationReading struct {
	StationID   string
	NameTH      string
	NameEN      string
	AreaTH      string
	Province    string // last comma-separated segment of AreaTH
	StationType string // "GROUND", "MOBILE"
	Latitude    float64
	Longitude   float64
	PM25        float64
	ObservedAt  time.Time

	// Co-reported meteorological channels, when the station has them.
	// WindSpeed is in source units; the weather resolver normalizes.
	WindSpeed   *float64
	WindBearing *float64 // degrees, direction wind blows from
	Temp        *float64
	Humidity    *float64
}

// HistorySample is one hourly reading from the history endpoint.
// Value is nil when the upstream sample is absent or non-numeric.
type HistorySample struct {
	Time  time.Time
	Value *float64
}

// Integrity status flags, joined with "+" when combined.
const (
	IntegrityNormal      = "ปกติ"
	IntegritySpike       = "ค่าพุ่งผิดปกติ"
	IntegrityFlatline    = "ค่านิ่งผิดปกติ"
	IntegrityNegative    = "ค่าติดลบ"
	IntegrityMissing     = "ข้อมูลขาดหาย"
	IntegrityUnavailable = "ไม่มีข้อมูลย้อนหลัง"
)

// IntegrityResult classifies a station's recent hourly history.
type IntegrityResult struct {
	Status   string
	HasRange bool
	Min      float64
	Max      float64
}

// Has reports whether the composite status contains the given flag.
func (r IntegrityResult) Has(flag string) bool {
	for _, s := range strings.Split(r.Status, "+") {
		if s == flag {
			return true
		}
	}
	return false
}

// WeatherObservation is the resolved ambient weather for a station.
// Nil fields mean the resolver chain could not determine them.
type WeatherObservation struct {
	Source        string // which tier resolved it, with distance/province
	Temp          *float64
	Humidity      *float64
	WindSpeedKmh  *float64
	WindBearing   *float64 // degrees the wind blows from, [0, 360)
	WindDirection string   // Thai compass label
}

// HotspotSummary aggregates satellite hotspots around a station.
type HotspotSummary struct {
	NearbyCount      int
	UpwindCount      int
	UpwindKnown      bool // false when wind bearing was unavailable
	DominantLandUse  string
	NearestKm        float64
	NearestDirection string
	HasNearest       bool
	RadiusKm         float64
}

// ReportedCount prefers the upwind-filtered count when wind was known
// and at least one hotspot passed the filter, falling back to the raw
// within-radius count.
func (h *HotspotSummary) ReportedCount() (int, string) {
	if h.UpwindKnown && h.UpwindCount > 0 {
		return h.UpwindCount, "เหนือลม"
	}
	if h.NearbyCount > 0 {
		return h.NearbyCount, "ในรัศมี"
	}
	return 0, "ไม่พบ"
}

// StationAlert is the fully enriched record the pipeline assembles for
// one threshold-crossing station.
type StationAlert struct {
	Reading   StationReading
	Integrity IntegrityResult
	Weather   WeatherObservation
	Hotspots  *HotspotSummary // nil when the hotspot fetch failed
	Verdict   string
	History   []HistorySample
}

// ProvinceFromArea derives the province from an Air4Thai area label,
// which reads like "ต.ช้างเผือก อ.เมือง, เชียงใหม่".
func ProvinceFromArea(area string) string {
	parts := strings.Split(area, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}
