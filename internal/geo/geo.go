// Package geo provides great-circle distance, bearing, and compass
// helpers used by the weather resolver and hotspot correlator.
package geo

import "math"

const earthRadiusKm = 6371

// DistanceKm returns the great-circle distance in km between two
// coordinates using the haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// BearingDegrees returns the initial compass bearing from point 1 to
// point 2, normalized into [0, 360).
func BearingDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// CircularDiff returns the smallest angular difference between two
// bearings, in [0, 180].
func CircularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// IsUpwind reports whether a target at bearingToTarget lies within
// toleranceDeg of the direction the wind blows from. Callers must not
// invoke this with an unknown wind bearing; resolve that case to
// "indeterminate" upstream instead.
func IsUpwind(bearingToTarget, windOriginBearing, toleranceDeg float64) bool {
	return CircularDiff(bearingToTarget, windOriginBearing) <= toleranceDeg
}

// Thai 16-point compass labels, clockwise from north.
var compassLabels = []string{
	"เหนือ", "เหนือค่อนตะวันออกเฉียงเหนือ", "ตะวันออกเฉียงเหนือ", "ตะวันออกค่อนตะวันออกเฉียงเหนือ",
	"ตะวันออก", "ตะวันออกค่อนตะวันออกเฉียงใต้", "ตะวันออกเฉียงใต้", "ใต้ค่อนตะวันออกเฉียงใต้",
	"ใต้", "ใต้ค่อนตะวันตกเฉียงใต้", "ตะวันตกเฉียงใต้", "ตะวันตกค่อนตะวันตกเฉียงใต้",
	"ตะวันตก", "ตะวันตกค่อนตะวันตกเฉียงเหนือ", "ตะวันตกเฉียงเหนือ", "เหนือค่อนตะวันตกเฉียงเหนือ",
}

// CompassUnknown is reported when no bearing is available.
const CompassUnknown = "ไม่ทราบทิศ"

// CompassLabel maps a bearing to the nearest 16-point compass sector.
func CompassLabel(bearingDeg float64) string {
	deg := math.Mod(math.Mod(bearingDeg, 360)+360, 360)
	idx := int(math.Floor(deg/22.5+0.5)) % 16
	return compassLabels[idx]
}

// CompassLabelPtr labels a nullable bearing, mapping nil to the
// explicit unknown label.
func CompassLabelPtr(bearingDeg *float64) string {
	if bearingDeg == nil {
		return CompassUnknown
	}
	return CompassLabel(*bearingDeg)
}
