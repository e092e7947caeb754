package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/srwpaibong/PM25-alert-system/internal/geo"
	"github.com/srwpaibong/PM25-alert-system/internal/httputil"
	"github.com/srwpaibong/PM25-alert-system/internal/metrics"
	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

const defaultTMDURL = "https://data.tmd.go.th/api/Weather3Hours/V2/?type=json"

// tmdStation is one synoptic station observation from the TMD
// three-hourly feed.
type tmdStation struct {
	WmoNumber     string   `json:"WmoStationNumber"`
	NameThai      string   `json:"StationNameThai"`
	Province      string   `json:"Province"`
	Latitude      float64  `json:"Latitude,string"`
	Longitude     float64  `json:"Longitude,string"`
	Observation   struct {
		AirTemperature   *float64 `json:"AirTemperature,string"`
		RelativeHumidity *float64 `json:"RelativeHumidity,string"`
		WindSpeed        *float64 `json:"WindSpeed,string"`
		WindDirection    *float64 `json:"WindDirection,string"`
	} `json:"Observation"`
}

type tmdResponse struct {
	Stations []tmdStation `json:"Station"`
}

// TMDClient fetches the full TMD station list. One fetch covers every
// station, so results are cached briefly to avoid refetching for each
// alert-worthy station in a run.
type TMDClient struct {
	url    string
	client *http.Client

	mu       sync.Mutex
	cached   []tmdStation
	fetched  time.Time
	cacheTTL time.Duration
}

func NewTMDClient(timeout time.Duration) *TMDClient {
	return &TMDClient{
		url:      defaultTMDURL,
		client:   httputil.NewClientWithTimeout(timeout),
		cacheTTL: 10 * time.Minute,
	}
}

// SetURL overrides the upstream endpoint, used by tests.
func (c *TMDClient) SetURL(url string) { c.url = url }

func (c *TMDClient) stations(ctx context.Context) ([]tmdStation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetched) < c.cacheTTL {
		return c.cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("tmd", "error").Inc()
		return nil, fmt.Errorf("fetch tmd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamCallsTotal.WithLabelValues("tmd", "error").Inc()
		return nil, fmt.Errorf("fetch tmd: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tmd body: %w", err)
	}

	var data tmdResponse
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("tmd", "error").Inc()
		return nil, fmt.Errorf("unmarshal tmd: %w", err)
	}
	metrics.UpstreamCallsTotal.WithLabelValues("tmd", "ok").Inc()

	c.cached = data.Stations
	c.fetched = time.Now()
	return c.cached, nil
}

func observationFrom(st tmdStation, source string) *models.WeatherObservation {
	obs := &models.WeatherObservation{
		Source:      source,
		Temp:        st.Observation.AirTemperature,
		Humidity:    st.Observation.RelativeHumidity,
		WindBearing: st.Observation.WindDirection,
	}
	if st.Observation.WindSpeed != nil {
		kmh := NormalizeWindKmh(*st.Observation.WindSpeed)
		obs.WindSpeedKmh = &kmh
	}
	return obs
}

// provinceStations maps provinces with known persistent haze exposure
// to their primary TMD synoptic station.
var provinceStations = map[string]string{
	"เชียงใหม่":    "48327",
	"เชียงราย":     "48303",
	"แม่ฮ่องสอน":   "48300",
	"ลำปาง":        "48328",
	"ลำพูน":        "48329",
	"น่าน":         "48331",
	"แพร่":         "48330",
	"พะเยา":        "48310",
	"ตาก":          "48376",
	"ขอนแก่น":      "48381",
	"กรุงเทพฯ":     "48455",
	"กรุงเทพมหานคร": "48455",
}

// ProvinceSource resolves via the static province-to-station table.
type ProvinceSource struct {
	tmd *TMDClient
}

func NewProvinceSource(tmd *TMDClient) *ProvinceSource {
	return &ProvinceSource{tmd: tmd}
}

func (s *ProvinceSource) Name() string { return "tmd-province" }

func (s *ProvinceSource) Resolve(ctx context.Context, reading models.StationReading) (*models.WeatherObservation, error) {
	wmo, ok := provinceStations[reading.Province]
	if !ok {
		return nil, nil
	}

	stations, err := s.tmd.stations(ctx)
	if err != nil {
		return nil, err
	}

	for _, st := range stations {
		if st.WmoNumber == wmo {
			return observationFrom(st, fmt.Sprintf("สถานีอุตุฯ ประจำจังหวัด%s", reading.Province)), nil
		}
	}
	return nil, nil
}

// NearestSource resolves against the full TMD station list by minimum
// great-circle distance.
type NearestSource struct {
	tmd *TMDClient
}

func NewNearestSource(tmd *TMDClient) *NearestSource {
	return &NearestSource{tmd: tmd}
}

func (s *NearestSource) Name() string { return "tmd-nearest" }

func (s *NearestSource) Resolve(ctx context.Context, reading models.StationReading) (*models.WeatherObservation, error) {
	stations, err := s.tmd.stations(ctx)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, nil
	}

	best := -1
	bestDist := 0.0
	for i, st := range stations {
		d := geo.DistanceKm(reading.Latitude, reading.Longitude, st.Latitude, st.Longitude)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	st := stations[best]
	source := fmt.Sprintf("สถานีอุตุฯ %s (%.0f กม.)", st.NameThai, bestDist)
	return observationFrom(st, source), nil
}
