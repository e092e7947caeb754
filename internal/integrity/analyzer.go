// Package integrity classifies a station's recent hourly history to
// separate genuine pollution episodes from sensor faults.
package integrity

import (
	"context"
	"log"
	"strings"

	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

const (
	// SpikeDelta is the largest plausible hour-to-hour jump in ug/m3.
	SpikeDelta = 50.0
	// FlatlineWindow is the number of consecutive identical samples
	// that indicates a stuck sensor.
	FlatlineWindow = 5
	// MaxMissing is the number of absent samples tolerated before the
	// window is flagged incomplete.
	MaxMissing = 3
)

// HistoryFetcher supplies the hourly lookback window for a station.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, stationID, param string, hours int) ([]models.HistorySample, error)
}

// Analyzer runs integrity checks against fetched station history.
type Analyzer struct {
	fetcher HistoryFetcher
	hours   int
}

func NewAnalyzer(fetcher HistoryFetcher, hours int) *Analyzer {
	return &Analyzer{fetcher: fetcher, hours: hours}
}

// ForStation fetches and classifies one station's history. A failed or
// empty fetch degrades to the history-unavailable status; it never
// propagates an error to the pipeline.
func (a *Analyzer) ForStation(ctx context.Context, stationID string) (models.IntegrityResult, []models.HistorySample) {
	samples, err := a.fetcher.FetchHistory(ctx, stationID, "PM25", a.hours)
	if err != nil {
		log.Printf("integrity: fetch history %s: %v", stationID, err)
		return models.IntegrityResult{Status: models.IntegrityUnavailable}, nil
	}
	return Analyze(samples), samples
}

// Analyze classifies a window of hourly samples. The checks run in a
// fixed order so combined statuses read consistently.
func Analyze(samples []models.HistorySample) models.IntegrityResult {
	if len(samples) == 0 {
		return models.IntegrityResult{Status: models.IntegrityUnavailable}
	}

	var values []float64
	missing := 0
	for _, s := range samples {
		if s.Value == nil {
			missing++
			continue
		}
		values = append(values, *s.Value)
	}

	if len(values) == 0 {
		return models.IntegrityResult{Status: models.IntegrityUnavailable}
	}

	var flags []string
	if hasSpike(values) {
		flags = append(flags, models.IntegritySpike)
	}
	if hasFlatline(values) {
		flags = append(flags, models.IntegrityFlatline)
	}
	if hasNegative(values) {
		flags = append(flags, models.IntegrityNegative)
	}
	if missing > MaxMissing {
		flags = append(flags, models.IntegrityMissing)
	}

	result := models.IntegrityResult{
		Status:   models.IntegrityNormal,
		HasRange: true,
	}
	result.Min, result.Max = valueRange(values)
	if len(flags) > 0 {
		result.Status = strings.Join(flags, "+")
	}
	return result
}

func hasSpike(values []float64) bool {
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d < 0 {
			d = -d
		}
		if d > SpikeDelta {
			return true
		}
	}
	return false
}

// hasFlatline reports whether any rolling window of FlatlineWindow
// consecutive values has zero variance.
func hasFlatline(values []float64) bool {
	if len(values) < FlatlineWindow {
		return false
	}
	run := 1
	for i := 1; i < len(values); i++ {
		if values[i] == values[i-1] {
			run++
			if run >= FlatlineWindow {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func hasNegative(values []float64) bool {
	for _, v := range values {
		if v < 0 {
			return true
		}
	}
	return false
}

func valueRange(values []float64) (min, max float64) {
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
