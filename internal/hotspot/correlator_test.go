package hotspot

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fptr(v float64) *float64 { return &v }

// pointAt builds a feature at approximately distKm from (lat, lon)
// along the given bearing, using a flat-earth offset that is accurate
// enough at test distances.
func pointAt(lat, lon, bearingDeg, distKm float64, landUse string) Feature {
	rad := bearingDeg * math.Pi / 180
	dLat := distKm * math.Cos(rad) / 111.0
	dLon := distKm * math.Sin(rad) / (111.0 * math.Cos(lat*math.Pi/180))

	f := Feature{Geometry: &Geometry{Type: "Point", Coordinates: []float64{lon + dLon, lat + dLat}}}
	f.Properties.LandUse = landUse
	return f
}

const (
	stationLat = 18.79
	stationLon = 98.98
)

func TestCorrelate_RadiusFilter(t *testing.T) {
	features := []Feature{
		pointAt(stationLat, stationLon, 0, 30, "ป่าอนุรักษ์"),
		pointAt(stationLat, stationLon, 90, 80, "พื้นที่เกษตร"),
		pointAt(stationLat, stationLon, 180, 150, "ป่าสงวน"), // outside radius
	}

	s := Correlate(features, stationLat, stationLon, nil, 100, 45)
	if s.NearbyCount != 2 {
		t.Errorf("NearbyCount = %d, want 2", s.NearbyCount)
	}
	if s.UpwindKnown {
		t.Error("UpwindKnown = true with nil wind bearing")
	}
}

func TestCorrelate_UpwindPartition(t *testing.T) {
	// Wind blows from the north; the two northern hotspots are upwind.
	features := []Feature{
		pointAt(stationLat, stationLon, 0, 40, "ป่าอนุรักษ์"),
		pointAt(stationLat, stationLon, 20, 50, "ป่าอนุรักษ์"),
		pointAt(stationLat, stationLon, 180, 30, "พื้นที่เกษตร"),
	}

	s := Correlate(features, stationLat, stationLon, fptr(0), 100, 45)
	if s.NearbyCount != 3 {
		t.Errorf("NearbyCount = %d, want 3", s.NearbyCount)
	}
	if s.UpwindCount != 2 {
		t.Errorf("UpwindCount = %d, want 2", s.UpwindCount)
	}
	if !s.UpwindKnown {
		t.Error("UpwindKnown = false, want true")
	}
	if s.DominantLandUse != "ป่าอนุรักษ์" {
		t.Errorf("DominantLandUse = %q, want ป่าอนุรักษ์", s.DominantLandUse)
	}
}

func TestCorrelate_NearestIgnoresUpwindFilter(t *testing.T) {
	// The nearest hotspot is downwind; nearest tracking must still
	// pick it over the farther upwind one.
	features := []Feature{
		pointAt(stationLat, stationLon, 0, 60, "ป่าอนุรักษ์"),   // upwind, far
		pointAt(stationLat, stationLon, 180, 10, "พื้นที่เกษตร"), // downwind, near
	}

	s := Correlate(features, stationLat, stationLon, fptr(0), 100, 45)
	if !s.HasNearest {
		t.Fatal("HasNearest = false")
	}
	if s.NearestKm > 15 {
		t.Errorf("NearestKm = %.1f, want ~10 (the downwind hotspot)", s.NearestKm)
	}
	if s.NearestDirection != "ใต้" {
		t.Errorf("NearestDirection = %q, want ใต้", s.NearestDirection)
	}
}

func TestReportedCount_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		upwind    int
		nearby    int
		known     bool
		wantCount int
		wantScope string
	}{
		{"upwind preferred when non-zero", 3, 10, true, 3, "เหนือลม"},
		{"fall back to radius count", 0, 10, true, 10, "ในรัศมี"},
		{"unknown wind uses radius count", 0, 7, false, 7, "ในรัศมี"},
		{"nothing found", 0, 0, true, 0, "ไม่พบ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Correlate(nil, stationLat, stationLon, nil, 100, 45)
			s.UpwindCount = tt.upwind
			s.NearbyCount = tt.nearby
			s.UpwindKnown = tt.known

			count, scope := s.ReportedCount()
			if count != tt.wantCount || scope != tt.wantScope {
				t.Errorf("ReportedCount() = (%d, %q), want (%d, %q)", count, scope, tt.wantCount, tt.wantScope)
			}
		})
	}
}

func TestFetchFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"type": "FeatureCollection",
			"features": [
				{"geometry": {"type": "Point", "coordinates": [98.98, 18.80]}, "properties": {"lu_hp": "ป่าอนุรักษ์", "pv_tn": "เชียงใหม่"}},
				{"geometry": null, "properties": {"lu_hp": "พื้นที่เกษตร"}}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	c.SetURL(srv.URL)

	features, err := c.FetchFeatures(context.Background())
	if err != nil {
		t.Fatalf("FetchFeatures: %v", err)
	}
	if len(features) != 2 {
		t.Fatalf("len(features) = %d, want 2", len(features))
	}

	lat, lon, ok := features[0].Coordinates()
	if !ok || lat != 18.80 || lon != 98.98 {
		t.Errorf("Coordinates() = (%v, %v, %v), want (18.80, 98.98, true)", lat, lon, ok)
	}
	if _, _, ok := features[1].Coordinates(); ok {
		t.Error("nil geometry must report ok=false")
	}
}

func TestFetchFeatures_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	c.SetURL(srv.URL)

	if _, err := c.FetchFeatures(context.Background()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
