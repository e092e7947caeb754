package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	// Chiang Mai city station to Bangkok, roughly 580km.
	dist := DistanceKm(18.7877, 98.9931, 13.7563, 100.5018)
	if dist < 550 || dist > 620 {
		t.Errorf("Expected ~580km, got %.1fkm", dist)
	}

	dist = DistanceKm(18.7877, 98.9931, 18.7877, 98.9931)
	if dist > 0.001 {
		t.Errorf("Expected ~0km for same point, got %.3fkm", dist)
	}
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	if d := DistanceKm(math.NaN(), 98.9, 18.7, 98.9); !math.IsNaN(d) {
		t.Errorf("DistanceKm with NaN input = %v, want NaN", d)
	}
}

func TestBearingDegrees(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tol                    float64
	}{
		{"due north", 10, 100, 11, 100, 0, 0.5},
		{"due east", 10, 100, 10, 101, 90, 0.5},
		{"due south", 11, 100, 10, 100, 180, 0.5},
		{"due west", 10, 101, 10, 100, 270, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDegrees(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if CircularDiff(got, tt.want) > tt.tol {
				t.Errorf("BearingDegrees = %.2f, want ~%.2f", got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Errorf("BearingDegrees = %.2f, outside [0, 360)", got)
			}
		})
	}
}

func TestIsUpwind(t *testing.T) {
	tests := []struct {
		name             string
		bearing, wind    float64
		tol              float64
		want             bool
	}{
		{"exact match", 90, 90, 45, true},
		{"within tolerance", 120, 90, 45, true},
		{"outside tolerance", 150, 90, 45, false},
		{"wraps across north", 350, 10, 45, true},
		{"wraps across north reversed", 10, 350, 45, true},
		{"wrap outside tolerance", 300, 10, 45, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUpwind(tt.bearing, tt.wind, tt.tol); got != tt.want {
				t.Errorf("IsUpwind(%.0f, %.0f, %.0f) = %v, want %v", tt.bearing, tt.wind, tt.tol, got, tt.want)
			}
		})
	}
}

func TestCircularDiff_Wrap(t *testing.T) {
	if d := CircularDiff(350, 10); math.Abs(d-20) > 0.001 {
		t.Errorf("CircularDiff(350, 10) = %.2f, want 20", d)
	}
}

func TestCompassLabel(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "เหนือ"},
		{359, "เหนือ"},
		{90, "ตะวันออก"},
		{180, "ใต้"},
		{270, "ตะวันตก"},
		{45, "ตะวันออกเฉียงเหนือ"},
		{225, "ตะวันตกเฉียงใต้"},
	}

	for _, tt := range tests {
		if got := CompassLabel(tt.deg); got != tt.want {
			t.Errorf("CompassLabel(%.0f) = %q, want %q", tt.deg, got, tt.want)
		}
	}
}

func TestCompassLabelPtr_Nil(t *testing.T) {
	if got := CompassLabelPtr(nil); got != CompassUnknown {
		t.Errorf("CompassLabelPtr(nil) = %q, want %q", got, CompassUnknown)
	}
}
