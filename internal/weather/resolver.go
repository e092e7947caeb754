// Package weather resolves ambient wind, temperature, and humidity for
// a station by trying sources in priority order until one yields a
// usable wind bearing.
package weather

import (
	"context"
	"fmt"
	"log"

	"github.com/srwpaibong/PM25-alert-system/internal/geo"
	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

// SourceNotFound labels the observation returned when every tier was
// exhausted without a wind bearing.
const SourceNotFound = "ไม่พบข้อมูลลม"

// Source is one tier of the resolution chain. A nil observation or a
// nil wind bearing means the tier could not resolve; an error means the
// tier's upstream failed. Both fall through to the next tier.
type Source interface {
	Name() string
	Resolve(ctx context.Context, reading models.StationReading) (*models.WeatherObservation, error)
}

type Resolver struct {
	sources []Source
}

func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve walks the chain and returns the first observation with a
// wind bearing, or an all-nil observation labeled SourceNotFound. It
// never returns an error; a missing wind bearing is an expected
// degraded state, not a failure.
func (r *Resolver) Resolve(ctx context.Context, reading models.StationReading) models.WeatherObservation {
	for _, src := range r.sources {
		obs, err := src.Resolve(ctx, reading)
		if err != nil {
			log.Printf("weather: %s for %s: %v", src.Name(), reading.StationID, err)
			continue
		}
		if obs == nil || obs.WindBearing == nil {
			continue
		}
		obs.WindDirection = geo.CompassLabel(*obs.WindBearing)
		return *obs
	}

	return models.WeatherObservation{
		Source:        SourceNotFound,
		WindDirection: geo.CompassUnknown,
	}
}

// NormalizeWindKmh converts a wind speed to km/h. Sources that report
// m/s are detected by magnitude: surface winds above 20 m/s are rare
// enough that smaller values are treated as m/s.
func NormalizeWindKmh(speed float64) float64 {
	if speed < 20 {
		return speed * 3.6
	}
	return speed
}

// StationChannel resolves from meteorology co-reported on the telemetry
// snapshot itself, when the station carries WS/WD sensors.
type StationChannel struct{}

func (StationChannel) Name() string { return "station-channel" }

func (StationChannel) Resolve(_ context.Context, reading models.StationReading) (*models.WeatherObservation, error) {
	if reading.WindBearing == nil {
		return nil, nil
	}

	obs := &models.WeatherObservation{
		Source:      fmt.Sprintf("สถานีตรวจวัด %s", reading.StationID),
		Temp:        reading.Temp,
		Humidity:    reading.Humidity,
		WindBearing: reading.WindBearing,
	}
	if reading.WindSpeed != nil {
		kmh := NormalizeWindKmh(*reading.WindSpeed)
		obs.WindSpeedKmh = &kmh
	}
	return obs, nil
}
