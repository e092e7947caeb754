package hotspot

import (
	"github.com/srwpaibong/PM25-alert-system/internal/geo"
	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

// Correlate summarizes the hotspots around a station. Features outside
// radiusKm are ignored. When windBearing is known, features within
// toleranceDeg of the wind-origin bearing count as upwind; with no
// wind bearing the upwind count is indeterminate and UpwindKnown is
// false. The nearest hotspot is tracked across all in-radius features
// regardless of the upwind filter.
func Correlate(features []Feature, lat, lon float64, windBearing *float64, radiusKm, toleranceDeg float64) *models.HotspotSummary {
	summary := &models.HotspotSummary{
		UpwindKnown: windBearing != nil,
		RadiusKm:    radiusKm,
	}

	landUse := make(map[string]int)
	upwindLandUse := make(map[string]int)

	for _, f := range features {
		fLat, fLon, ok := f.Coordinates()
		if !ok {
			continue
		}

		dist := geo.DistanceKm(lat, lon, fLat, fLon)
		if dist > radiusKm {
			continue
		}

		summary.NearbyCount++
		lu := f.Properties.LandUse
		if lu == "" {
			lu = "ไม่ระบุ"
		}
		landUse[lu]++

		if !summary.HasNearest || dist < summary.NearestKm {
			summary.HasNearest = true
			summary.NearestKm = dist
			summary.NearestDirection = geo.CompassLabel(geo.BearingDegrees(lat, lon, fLat, fLon))
		}

		if windBearing != nil {
			bearing := geo.BearingDegrees(lat, lon, fLat, fLon)
			if geo.IsUpwind(bearing, *windBearing, toleranceDeg) {
				summary.UpwindCount++
				upwindLandUse[lu]++
			}
		}
	}

	// Dominant land use follows the same precedence as the reported
	// count: the upwind subset when it is non-empty, else everything
	// in radius.
	if summary.UpwindKnown && summary.UpwindCount > 0 {
		summary.DominantLandUse = modeOf(upwindLandUse)
	} else {
		summary.DominantLandUse = modeOf(landUse)
	}

	return summary
}

func modeOf(tally map[string]int) string {
	best := ""
	bestN := 0
	for k, n := range tally {
		if n > bestN || (n == bestN && k < best) {
			best = k
			bestN = n
		}
	}
	return best
}
