package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/srwpaibong/PM25-alert-system/internal/air4thai"
	"github.com/srwpaibong/PM25-alert-system/internal/config"
	"github.com/srwpaibong/PM25-alert-system/internal/hotspot"
	"github.com/srwpaibong/PM25-alert-system/internal/integrity"
	"github.com/srwpaibong/PM25-alert-system/internal/ledger"
	"github.com/srwpaibong/PM25-alert-system/internal/notify"
	"github.com/srwpaibong/PM25-alert-system/internal/pipeline"
	"github.com/srwpaibong/PM25-alert-system/internal/weather"
)

func main() {
	var cfg config.Config
	ctx := kong.Parse(&cfg,
		kong.Name("pm25alert"),
		kong.Description("Polls Air4Thai PM2.5 readings and pushes red-level alerts to LINE."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	if err := cfg.Validate(); err != nil {
		ctx.FatalIfErrorf(err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: could not load timezone %s, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	clock := clockwork.NewRealClock()

	led, err := ledger.Open(cfg.DBPath, loc, clock)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}
	defer led.Close()

	telemetry := air4thai.New(loc, cfg.HTTPTimeout)
	analyzer := integrity.NewAnalyzer(telemetry, cfg.HistoryHours)

	tmd := weather.NewTMDClient(cfg.HTTPTimeout)
	resolver := weather.NewResolver(
		weather.StationChannel{},
		weather.NewProvinceSource(tmd),
		weather.NewNearestSource(tmd),
		weather.NewSynopSource(cfg.HTTPTimeout),
	)

	hotspots := hotspot.NewClient(cfg.HTTPTimeout)
	line := notify.NewClient(cfg.LineChannelToken, cfg.HTTPTimeout, clock)

	p := pipeline.New(&cfg, telemetry, analyzer, resolver, hotspots, line, led, clock, loc)

	if cfg.Once {
		runOnce(p)
		return
	}

	runDaemon(&cfg, p)
}

func runOnce(p *pipeline.Pipeline) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := p.Run(ctx)
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	log.Printf("done: %d evaluated, %d new, %d known", result.Evaluated, len(result.New), len(result.Known))
}

func runDaemon(cfg *config.Config, p *pipeline.Pipeline) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()

	run := func() {
		runCtx, runCancel := context.WithTimeout(ctx, 10*time.Minute)
		defer runCancel()

		result, err := p.Run(runCtx)
		if err != nil {
			log.Printf("run: %v", err)
			return
		}
		log.Printf("run: %d evaluated, %d new, %d known", result.Evaluated, len(result.New), len(result.Known))
	}

	// SkipIfStillRunning keeps overlapping runs from racing on the
	// ledger's read-partition-write cycle.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.Schedule, run); err != nil {
		log.Fatalf("schedule %q: %v", cfg.Schedule, err)
	}

	log.Printf("starting with schedule %q", cfg.Schedule)
	run()
	c.Start()

	<-ctx.Done()
	log.Println("shutting down")
	<-c.Stop().Done()
}
