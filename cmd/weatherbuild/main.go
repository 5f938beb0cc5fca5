package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/justinfmccarty/weather-file-builder/internal/acquire"
	"github.com/justinfmccarty/weather-file-builder/internal/adapter/archive"
	"github.com/justinfmccarty/weather-file-builder/internal/adapter/httpadapter"
	"github.com/justinfmccarty/weather-file-builder/internal/config"
	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"github.com/justinfmccarty/weather-file-builder/internal/export"
	"github.com/justinfmccarty/weather-file-builder/internal/observability"
	"github.com/justinfmccarty/weather-file-builder/internal/standardize"
	"github.com/justinfmccarty/weather-file-builder/internal/tmy"
)

func main() {
	var (
		lat        = flag.Float64("lat", 0, "latitude in decimal degrees (-90 to 90)")
		lon        = flag.Float64("lon", 0, "longitude in decimal degrees (-180 to 180)")
		startYear  = flag.Int("start-year", 0, "first year to acquire")
		endYear    = flag.Int("end-year", 0, "last year to acquire (inclusive)")
		variables  = flag.String("variables", "all", "comma-separated variable groups or archive names")
		variable   = flag.String("variable", domain.VarTemperature, "variable driving month selection")
		target     = flag.String("target", string(tmy.TargetTypical), "typical, extreme_warm, or extreme_cold")
		metric     = flag.String("metric", string(tmy.MetricZScore), "zscore or ks")
		sequential = flag.Bool("sequential", false, "fetch units one at a time with delays (for rate-limit trouble)")
		out        = flag.String("out", "tmy.csv", "output path for the TMY file")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if *startYear == 0 || *endYear == 0 || *endYear < *startYear {
		logger.Error("a valid -start-year/-end-year range is required")
		os.Exit(1)
	}
	if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
		logger.Error("coordinates out of range", "lat", *lat, "lon", *lon)
		os.Exit(1)
	}

	client := archive.NewClient(cfg.ArchiveURL, cfg.ArchiveKey, cfg.RequestTimeout, logger)
	orch := acquire.New(client, standardize.ERA5{}, logger, metrics, clockwork.NewRealClock(), acquire.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		RetryAttempts:  cfg.RetryAttempts,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	exitCode := run(ctx, cfg, logger, orch, srv, runParams{
		lat: *lat, lon: *lon,
		startYear: *startYear, endYear: *endYear,
		variables:  splitList(*variables),
		variable:   *variable,
		policy:     tmy.Policy{Target: tmy.Target(*target), Metric: tmy.Metric(*metric)},
		sequential: *sequential,
		out:        *out,
	})

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	os.Exit(exitCode)
}

type runParams struct {
	lat, lon           float64
	startYear, endYear int
	variables          []string
	variable           string
	policy             tmy.Policy
	sequential         bool
	out                string
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, orch *acquire.Orchestrator, srv *httpadapter.Server, p runParams) int {
	years := make([]int, 0, p.endYear-p.startYear+1)
	for y := p.startYear; y <= p.endYear; y++ {
		years = append(years, y)
	}

	logger.Info("starting acquisition",
		"lat", p.lat, "lon", p.lon,
		"years", len(years),
		"sequential", p.sequential,
	)

	res, err := orch.FetchMultiYear(ctx, p.lat, p.lon, years, p.variables, acquire.MultiYearOptions{
		Sequential: p.sequential,
		Delay:      cfg.SequentialDelay,
	})
	if err != nil {
		logger.Error("acquisition failed", "error", err)
		return 1
	}
	if res.Partial() {
		logger.Warn("acquisition incomplete; proceeding with what succeeded",
			"failed_units", len(res.FailedUnits))
	}

	built, err := tmy.Construct(res.Dataset, p.variable, p.policy)
	if err != nil {
		logger.Error("construction failed", "error", err)
		return 1
	}
	if built.LowConfidence {
		logger.Warn("fewer than 3 distinct years available; construction is low confidence")
	}
	for m := 1; m <= 12; m++ {
		logger.Info("month selected", "month", m, "year", built.Selection.Year(m))
	}
	srv.PublishSelection(built.Selection.Map())

	f, err := os.Create(p.out)
	if err != nil {
		logger.Error("create output", "path", p.out, "error", err)
		return 1
	}
	defer f.Close()

	if err := export.WriteTMY(f, built, p.lat, p.lon, 0); err != nil {
		logger.Error("write output", "path", p.out, "error", err)
		return 1
	}

	logger.Info("done", "path", p.out, "records", len(built.Constructed))
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
