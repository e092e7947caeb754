package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/srwpaibong/PM25-alert-system/internal/httputil"
	"github.com/srwpaibong/PM25-alert-system/internal/metrics"
	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

const defaultSynopURL = "https://api.open-meteo.com/v1/forecast"

// synopRetries bounds the fixed-backoff retry on this endpoint; it is
// the broadest-coverage fallback, so a transient failure here means no
// wind data at all.
const synopRetries = 2

// SynopSource is the last-resort regional model feed, resolved at the
// grid point nearest the station's coordinates.
type SynopSource struct {
	url    string
	client *http.Client
}

func NewSynopSource(timeout time.Duration) *SynopSource {
	return &SynopSource{
		url:    defaultSynopURL,
		client: httputil.NewClientWithTimeout(timeout),
	}
}

// SetURL overrides the upstream endpoint, used by tests.
func (s *SynopSource) SetURL(url string) { s.url = url }

func (s *SynopSource) Name() string { return "synop" }

type synopResponse struct {
	Current struct {
		Temperature   *float64 `json:"temperature_2m"`
		Humidity      *float64 `json:"relative_humidity_2m"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		WindDirection *float64 `json:"wind_direction_10m"`
	} `json:"current"`
}

func (s *SynopSource) Resolve(ctx context.Context, reading models.StationReading) (*models.WeatherObservation, error) {
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,relative_humidity_2m,wind_speed_10m,wind_direction_10m&wind_speed_unit=kmh",
		s.url, reading.Latitude, reading.Longitude)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), synopRetries)
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("synop", "error").Inc()
		return nil, fmt.Errorf("fetch synop: %w", err)
	}
	metrics.UpstreamCallsTotal.WithLabelValues("synop", "ok").Inc()

	var data synopResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal synop: %w", err)
	}

	// The model grid point sits at the station coordinates, so no
	// distance qualifier applies here.
	obs := &models.WeatherObservation{
		Source:       "ข้อมูลแบบจำลองสภาพอากาศ",
		Temp:         data.Current.Temperature,
		Humidity:     data.Current.Humidity,
		WindSpeedKmh: data.Current.WindSpeed,
		WindBearing:  data.Current.WindDirection,
	}
	return obs, nil
}
