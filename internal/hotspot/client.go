// Package hotspot fetches satellite fire hotspot detections and
// correlates them with a station's position and wind.
package hotspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/srwpaibong/PM25-alert-system/internal/httputil"
	"github.com/srwpaibong/PM25-alert-system/internal/metrics"
)

// GISTDA publishes VIIRS detections for the trailing 24-72h window as
// GeoJSON.
const defaultFeedURL = "https://opendata.gistda.or.th/pier/api/fire/hotspot/viirs/geojson?days=1"

// Feature is one hotspot detection.
type Feature struct {
	Geometry   *Geometry `json:"geometry"`
	Properties struct {
		LandUse  string `json:"lu_hp"`
		Village  string `json:"village"`
		Province string `json:"pv_tn"`
	} `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type featureCollection struct {
	Features []Feature `json:"features"`
}

// Coordinates returns the feature's point as (lat, lon), or ok=false
// when the geometry is absent or not a point.
func (f Feature) Coordinates() (lat, lon float64, ok bool) {
	if f.Geometry == nil || f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
		return 0, 0, false
	}
	// GeoJSON order is [lon, lat].
	return f.Geometry.Coordinates[1], f.Geometry.Coordinates[0], true
}

// Client fetches the hotspot feature collection. The feed covers the
// whole country, so one fetch serves every station in a run.
type Client struct {
	url    string
	client *http.Client

	mu       sync.Mutex
	cached   []Feature
	fetched  time.Time
	cacheTTL time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		url:      defaultFeedURL,
		client:   httputil.NewClientWithTimeout(timeout),
		cacheTTL: 30 * time.Minute,
	}
}

// SetURL overrides the upstream endpoint, used by tests.
func (c *Client) SetURL(url string) { c.url = url }

// FetchFeatures returns the current hotspot detections, serving a
// cached copy within the TTL.
func (c *Client) FetchFeatures(ctx context.Context) ([]Feature, error) {
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
		metrics.UpstreamCallsTotal.WithLabelValues("hotspot", "error").Inc()
		return nil, fmt.Errorf("fetch hotspots: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamCallsTotal.WithLabelValues("hotspot", "error").Inc()
		return nil, fmt.Errorf("fetch hotspots: status %d", resp.StatusCode)
	}

	var data featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("hotspot", "error").Inc()
		return nil, fmt.Errorf("decode hotspots: %w", err)
	}
	metrics.UpstreamCallsTotal.WithLabelValues("hotspot", "ok").Inc()

	c.cached = data.Features
	c.fetched = time.Now()
	return c.cached, nil
}
