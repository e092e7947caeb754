// Package pipeline runs one evaluation batch: fetch the snapshot,
// filter to red-threshold stations, enrich each, partition against the
// dedup ledger, and deliver the notification.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/srwpaibong/PM25-alert-system/internal/analysis"
	"github.com/srwpaibong/PM25-alert-system/internal/chart"
	"github.com/srwpaibong/PM25-alert-system/internal/config"
	"github.com/srwpaibong/PM25-alert-system/internal/hotspot"
	"github.com/srwpaibong/PM25-alert-system/internal/ledger"
	"github.com/srwpaibong/PM25-alert-system/internal/metrics"
	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

// Station 11t reports construction-site particulates and is
// permanently excluded from public alerts.
const excludedStationID = "11t"

// Mobile units move between sites mid-day, so their readings cannot be
// deduplicated per location.
const excludedStationType = "MOBILE"

type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) ([]models.StationReading, error)
}

type IntegrityAnalyzer interface {
	ForStation(ctx context.Context, stationID string) (models.IntegrityResult, []models.HistorySample)
}

type WeatherResolver interface {
	Resolve(ctx context.Context, reading models.StationReading) models.WeatherObservation
}

type HotspotFetcher interface {
	FetchFeatures(ctx context.Context) ([]hotspot.Feature, error)
}

type Notifier interface {
	PushText(ctx context.Context, to, text string) error
	PushTextWithImage(ctx context.Context, to, text, imageURL string) error
}

type Pipeline struct {
	cfg       *config.Config
	snapshot  SnapshotFetcher
	integrity IntegrityAnalyzer
	weather   WeatherResolver
	hotspots  HotspotFetcher
	notifier  Notifier
	ledger    *ledger.Ledger
	clock     clockwork.Clock
	loc       *time.Location
}

func New(cfg *config.Config, snapshot SnapshotFetcher, integrity IntegrityAnalyzer, weather WeatherResolver, hotspots HotspotFetcher, notifier Notifier, led *ledger.Ledger, clock clockwork.Clock, loc *time.Location) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		snapshot:  snapshot,
		integrity: integrity,
		weather:   weather,
		hotspots:  hotspots,
		notifier:  notifier,
		ledger:    led,
		clock:     clock,
		loc:       loc,
	}
}

// RunResult summarizes one evaluation batch.
type RunResult struct {
	Evaluated int
	New       []models.StationAlert
	Known     []models.StationAlert
	Delivered bool
}

// Run executes one batch. Only a failed snapshot fetch aborts the run;
// every per-station enrichment failure degrades to an explicit
// unknown-state sentinel and evaluation continues.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	readings, err := p.snapshot.FetchSnapshot(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("snapshot_error").Inc()
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	qualifying := Filter(readings, p.cfg.RedThreshold)
	log.Printf("pipeline: %d stations, %d above %.1f ug/m3", len(readings), len(qualifying), p.cfg.RedThreshold)

	if err := p.ledger.PruneOldDays(); err != nil {
		log.Printf("pipeline: prune ledger: %v", err)
	}
	alerted, err := p.ledger.AlertedToday()
	if err != nil {
		metrics.RunsTotal.WithLabelValues("ledger_error").Inc()
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	// One national fetch serves every station; absence of the feed
	// means "no correlation data", not zero hotspots.
	features, featErr := p.hotspots.FetchFeatures(ctx)
	if featErr != nil {
		log.Printf("pipeline: fetch hotspots: %v", featErr)
	}

	result := &RunResult{}
	for _, reading := range qualifying {
		alert := p.evaluate(ctx, reading, features, featErr == nil)
		metrics.StationsEvaluated.Inc()

		if _, seen := alerted[reading.StationID]; seen {
			result.Known = append(result.Known, alert)
		} else {
			result.New = append(result.New, alert)
		}
	}
	result.Evaluated = len(qualifying)

	if len(result.New) == 0 {
		log.Printf("pipeline: no new stations (%d already alerted today)", len(result.Known))
		metrics.RunsTotal.WithLabelValues("no_new_alerts").Inc()
		return result, nil
	}

	// Commit before delivery: at most one notification per station per
	// day, even if the push itself fails.
	if err := p.ledger.MarkAlerted(qualifying); err != nil {
		metrics.RunsTotal.WithLabelValues("ledger_error").Inc()
		return nil, fmt.Errorf("mark alerted: %w", err)
	}

	p.deliver(ctx, result)
	metrics.RunsTotal.WithLabelValues("alerted").Inc()
	return result, nil
}

// Filter returns the alert-worthy subset of the snapshot: strictly
// above the threshold, excluding the sentinel station and mobile units.
func Filter(readings []models.StationReading, threshold float64) []models.StationReading {
	var out []models.StationReading
	for _, r := range readings {
		if r.StationID == excludedStationID || r.StationType == excludedStationType {
			continue
		}
		if r.PM25 > threshold {
			out = append(out, r)
		}
	}
	return out
}

// evaluate enriches one threshold-crossing station.
func (p *Pipeline) evaluate(ctx context.Context, reading models.StationReading, features []hotspot.Feature, hotspotsAvailable bool) models.StationAlert {
	integrity, history := p.integrity.ForStation(ctx, reading.StationID)
	weather := p.weather.Resolve(ctx, reading)

	var summary *models.HotspotSummary
	if hotspotsAvailable {
		summary = hotspot.Correlate(features, reading.Latitude, reading.Longitude,
			weather.WindBearing, p.cfg.HotspotRadiusKm, p.cfg.UpwindToleranceDeg)
	}

	verdict := analysis.Assess(analysis.Input{
		PM25:         reading.PM25,
		WindSpeedKmh: weather.WindSpeedKmh,
		WindLabel:    weather.WindDirection,
		Hotspots:     summary,
		Integrity:    integrity,
		CalmWindKmh:  p.cfg.CalmWindKmh,
	})

	return models.StationAlert{
		Reading:   reading,
		Integrity: integrity,
		Weather:   weather,
		Hotspots:  summary,
		Verdict:   verdict.Text,
		History:   history,
	}
}

// deliver composes the message, renders the trend chart for the worst
// new station, and pushes. Delivery is best effort; failures are
// logged and counted but do not fail the run.
func (p *Pipeline) deliver(ctx context.Context, result *RunResult) {
	text := ComposeMessage(result.New, p.clock.Now().In(p.loc))

	imageURL := p.renderChart(result.New)
	var err error
	if imageURL != "" {
		err = p.notifier.PushTextWithImage(ctx, p.cfg.LineTo, text, imageURL)
	} else {
		err = p.notifier.PushText(ctx, p.cfg.LineTo, text)
	}
	if err != nil {
		log.Printf("pipeline: push: %v", err)
		return
	}

	result.Delivered = true
	metrics.AlertsDelivered.Add(float64(len(result.New)))
	log.Printf("pipeline: delivered alert for %d new stations", len(result.New))
}

// renderChart writes the trend chart PNG for the highest-PM2.5 new
// station and returns its public URL, or "" when charts are disabled
// or rendering failed.
func (p *Pipeline) renderChart(alerts []models.StationAlert) string {
	if p.cfg.ChartBaseURL == "" || len(alerts) == 0 {
		return ""
	}

	worst := alerts[0]
	for _, a := range alerts[1:] {
		if a.Reading.PM25 > worst.Reading.PM25 {
			worst = a
		}
	}
	if len(worst.History) == 0 {
		return ""
	}

	title := fmt.Sprintf("PM2.5 %s (%s)", worst.Reading.NameTH, worst.Reading.StationID)
	data, err := chart.Render(worst.History, p.cfg.RedThreshold, title)
	if err != nil {
		log.Printf("pipeline: render chart: %v", err)
		return ""
	}

	if err := os.MkdirAll(p.cfg.ChartDir, 0o755); err != nil {
		log.Printf("pipeline: create chart dir: %v", err)
		return ""
	}
	name := fmt.Sprintf("%s.png", worst.Reading.StationID)
	if err := os.WriteFile(filepath.Join(p.cfg.ChartDir, name), data, 0o644); err != nil {
		log.Printf("pipeline: write chart: %v", err)
		return ""
	}

	return p.cfg.ChartBaseURL + "/" + name
}

// SortByPM25Desc orders alerts worst-first for message composition.
func SortByPM25Desc(alerts []models.StationAlert) {
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Reading.PM25 > alerts[j].Reading.PM25
	})
}
