// Package config defines the process-wide configuration, parsed once at
// startup and injected into each component.
package config

import (
	"fmt"
	"time"
)

// Config holds all settings for the alert pipeline. Values come from
// flags, environment variables, or a .env file, in that order.
type Config struct {
	LineChannelToken string `name:"line-channel-token" env:"LINE_ACCESS_TOKEN" help:"LINE Messaging API channel access token." required:""`
	LineTo           string `name:"line-to" env:"LINE_USER_ID" help:"LINE user or group ID to push alerts to." required:""`

	DBPath string `name:"db" env:"PM25_DB_PATH" default:"data/pm25alert.db" help:"Path to the SQLite ledger database."`

	RedThreshold       float64 `name:"red-threshold" env:"PM25_RED_THRESHOLD" default:"75.1" help:"PM2.5 red-alert threshold in ug/m3."`
	HistoryHours       int     `name:"history-hours" env:"PM25_HISTORY_HOURS" default:"48" help:"Hourly lookback window for integrity analysis and charts."`
	HotspotRadiusKm    float64 `name:"hotspot-radius-km" env:"HOTSPOT_RADIUS_KM" default:"100" help:"Search radius for satellite hotspots."`
	UpwindToleranceDeg float64 `name:"upwind-tolerance-deg" env:"UPWIND_TOLERANCE_DEG" default:"45" help:"Bearing tolerance for upwind hotspot classification."`
	CalmWindKmh        float64 `name:"calm-wind-kmh" env:"CALM_WIND_KMH" default:"5" help:"Wind speed below which air is considered stagnant, km/h."`

	Timezone string `name:"timezone" env:"PM25_TIMEZONE" default:"Asia/Bangkok" help:"IANA timezone for calendar-day dedup."`

	ChartDir     string `name:"chart-dir" env:"CHART_DIR" default:"data/charts" help:"Directory to write trend chart PNGs."`
	ChartBaseURL string `name:"chart-base-url" env:"CHART_BASE_URL" help:"Public base URL under which chart-dir is served; empty disables image messages."`

	Once        bool   `name:"once" help:"Run a single evaluation and exit (for external schedulers)."`
	Schedule    string `name:"schedule" env:"PM25_SCHEDULE" default:"@every 1h" help:"Cron schedule for daemon mode."`
	MetricsAddr string `name:"metrics-addr" env:"METRICS_ADDR" default:":9464" help:"Listen address for Prometheus metrics in daemon mode."`

	HTTPTimeout time.Duration `name:"http-timeout" env:"HTTP_TIMEOUT" default:"30s" help:"Timeout for upstream HTTP calls."`
}

// Validate checks cross-field constraints kong cannot express.
func (c *Config) Validate() error {
	if c.RedThreshold <= 0 {
		return fmt.Errorf("red-threshold must be positive, got %v", c.RedThreshold)
	}
	if c.HistoryHours < 24 || c.HistoryHours > 168 {
		return fmt.Errorf("history-hours must be within [24, 168], got %d", c.HistoryHours)
	}
	if c.UpwindToleranceDeg <= 0 || c.UpwindToleranceDeg > 180 {
		return fmt.Errorf("upwind-tolerance-deg must be within (0, 180], got %v", c.UpwindToleranceDeg)
	}
	if c.HotspotRadiusKm <= 0 {
		return fmt.Errorf("hotspot-radius-km must be positive, got %v", c.HotspotRadiusKm)
	}
	return nil
}
