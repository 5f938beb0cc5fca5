// Package acquire gathers many independent time-bounded fetch units from the
// rate-limited reanalysis archive under bounded concurrency, with retry,
// backoff, and partial-failure tolerance.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"github.com/justinfmccarty/weather-file-builder/internal/observability"
)

const (
	monthsPerYear = 12

	// Rate-limit backoff doubles per attempt: 30s, 60s, 120s, ...
	rateLimitBase = 30 * time.Second
	// The timeseries endpoint queues far less, so its backoff starts at 1s.
	rangeLimitBase = 1 * time.Second
	// Other transient failures wait a flat delay.
	transientDelay = 10 * time.Second
)

// Fetcher downloads one unit's raw payload into the scratch file at path.
type Fetcher interface {
	FetchMonth(ctx context.Context, unit domain.FetchUnit, path string) error
	FetchRange(ctx context.Context, unit domain.FetchUnit, path string) error
}

// Standardizer turns one unit's raw payload into canonical hourly records.
type Standardizer interface {
	MonthRecords(payload []byte, lat, lon float64) ([]domain.HourlyRecord, error)
	RangeRecords(payload []byte) ([]domain.HourlyRecord, error)
}

// Options tunes one orchestrator instance.
type Options struct {
	MaxConcurrency int // in-flight units per year; 2–8 recommended
	RetryAttempts  int
	TempDir        string // "" means the system temp dir
}

// MultiYearOptions selects between concurrent and sequential multi-year modes.
type MultiYearOptions struct {
	Sequential bool
	Delay      time.Duration // inserted between units in sequential mode
}

// Result is the outcome of one acquisition call: whatever units succeeded,
// merged in logical (year, month) order, plus the units that did not.
type Result struct {
	Dataset     domain.Dataset
	FailedUnits []domain.UnitKey
}

// Partial reports whether some units failed while others produced data.
func (r Result) Partial() bool {
	return len(r.FailedUnits) > 0
}

// Orchestrator runs fetch units against the archive. One unit's failure never
// aborts the others; transient errors are absorbed by the per-unit retry loop
// and never surface past the unit boundary.
type Orchestrator struct {
	fetcher Fetcher
	std     Standardizer
	logger  *slog.Logger
	opts    Options
	clock   clockwork.Clock
	metrics *observability.Metrics

	completed atomic.Int64
	failed    atomic.Int64
}

// New creates an orchestrator. Zero option fields get conservative defaults.
func New(fetcher Fetcher, std Standardizer, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, opts Options) *Orchestrator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	return &Orchestrator{
		fetcher: fetcher,
		std:     std,
		logger:  logger,
		opts:    opts,
		clock:   clock,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once at least one fetch unit has completed.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if o.completed.Load() == 0 {
		return errors.New("no fetch unit has completed yet")
	}
	return nil
}

// Progress reports how many fetch units have completed and failed so far
// across the orchestrator's lifetime.
func (o *Orchestrator) Progress() (completed, failed int) {
	return int(o.completed.Load()), int(o.failed.Load())
}

// FetchYear decomposes a year into 12 month units, runs them under the
// concurrency bound, and merges successes in calendar order. It fails only if
// all 12 units fail.
func (o *Orchestrator) FetchYear(ctx context.Context, lat, lon float64, year int, variables []string) (Result, error) {
	archiveVars, err := domain.ResolveVariables(variables)
	if err != nil {
		return Result{}, err
	}

	o.metrics.AcquisitionRunning.Set(1)
	defer o.metrics.AcquisitionRunning.Set(0)

	return o.fetchYear(ctx, lat, lon, year, archiveVars)
}

func (o *Orchestrator) fetchYear(ctx context.Context, lat, lon float64, year int, archiveVars []string) (Result, error) {
	// Each unit writes the slot owned by its month, so completion order
	// never affects row order and no locking is needed.
	var (
		slots [monthsPerYear]domain.Dataset
		errs  [monthsPerYear]error
	)

	sem := make(chan struct{}, o.opts.MaxConcurrency)
	var wg sync.WaitGroup

	for month := 1; month <= monthsPerYear; month++ {
		if ctx.Err() != nil {
			errs[month-1] = ctx.Err()
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// Stop scheduling; in-flight units drain normally.
			errs[month-1] = ctx.Err()
			continue
		}

		wg.Add(1)
		go func(month int) {
			defer wg.Done()
			defer func() { <-sem }()

			unit := domain.MonthUnit(lat, lon, year, month, archiveVars)
			records, err := o.runUnit(ctx, unit)
			if err != nil {
				errs[month-1] = err
				return
			}
			slots[month-1] = records
		}(month)
	}
	wg.Wait()

	return o.mergeYear(lat, lon, year, slots, errs)
}

func (o *Orchestrator) mergeYear(lat, lon float64, year int, slots [monthsPerYear]domain.Dataset, errs [monthsPerYear]error) (Result, error) {
	var res Result
	for m := 1; m <= monthsPerYear; m++ {
		if errs[m-1] != nil {
			o.logger.Warn("month unit failed", "year", year, "month", m, "error", errs[m-1])
			res.FailedUnits = append(res.FailedUnits, domain.UnitKey{Year: year, Month: m})
			continue
		}
		res.Dataset = append(res.Dataset, slots[m-1]...)
	}

	if len(res.FailedUnits) == monthsPerYear {
		return Result{}, &domain.AcquisitionError{
			Request: fmt.Sprintf("year %d at (%.2f, %.2f)", year, lat, lon),
			Err:     errs[0],
		}
	}

	o.metrics.RecordsMerged.Add(float64(len(res.Dataset)))
	o.logger.Info("year fetched",
		"year", year,
		"months_ok", monthsPerYear-len(res.FailedUnits),
		"months_failed", len(res.FailedUnits),
		"records", len(res.Dataset),
	)
	return res, nil
}

// FetchMultiYear acquires several years. Concurrent mode runs each year's
// months under the pool, years one after another; sequential mode runs every
// unit strictly one at a time with a fixed delay in between, for when the
// concurrent mode trips the archive's rate limits. It fails only if zero
// years produced any data.
func (o *Orchestrator) FetchMultiYear(ctx context.Context, lat, lon float64, years []int, variables []string, opts MultiYearOptions) (Result, error) {
	if len(years) == 0 {
		return Result{}, &domain.ValidationError{Msg: "no years requested"}
	}
	archiveVars, err := domain.ResolveVariables(variables)
	if err != nil {
		return Result{}, err
	}

	o.metrics.AcquisitionRunning.Set(1)
	defer o.metrics.AcquisitionRunning.Set(0)

	// Year slots keep aggregation order fixed by position, not arrival.
	datasets := make([]domain.Dataset, len(years))
	var failed []domain.UnitKey
	var lastErr error

	for i, year := range years {
		var (
			res Result
			err error
		)
		if opts.Sequential {
			res, err = o.fetchYearSequential(ctx, lat, lon, year, archiveVars, opts.Delay)
		} else {
			res, err = o.fetchYear(ctx, lat, lon, year, archiveVars)
		}
		if err != nil {
			o.logger.Warn("year failed entirely", "year", year, "error", err)
			lastErr = err
			for m := 1; m <= monthsPerYear; m++ {
				failed = append(failed, domain.UnitKey{Year: year, Month: m})
			}
			continue
		}
		datasets[i] = res.Dataset
		failed = append(failed, res.FailedUnits...)
	}

	var merged domain.Dataset
	for _, ds := range datasets {
		merged = append(merged, ds...)
	}
	if len(merged) == 0 {
		return Result{}, &domain.AcquisitionError{
			Request: fmt.Sprintf("years %d-%d at (%.2f, %.2f)", years[0], years[len(years)-1], lat, lon),
			Err:     lastErr,
		}
	}

	return Result{Dataset: merged, FailedUnits: failed}, nil
}

func (o *Orchestrator) fetchYearSequential(ctx context.Context, lat, lon float64, year int, archiveVars []string, delay time.Duration) (Result, error) {
	var (
		slots [monthsPerYear]domain.Dataset
		errs  [monthsPerYear]error
	)

	for month := 1; month <= monthsPerYear; month++ {
		if ctx.Err() != nil {
			errs[month-1] = ctx.Err()
			continue
		}

		unit := domain.MonthUnit(lat, lon, year, month, archiveVars)
		records, err := o.runUnit(ctx, unit)
		if err != nil {
			errs[month-1] = err
		} else {
			slots[month-1] = records
		}

		if month < monthsPerYear && delay > 0 {
			o.sleep(ctx, delay)
		}
	}

	return o.mergeYear(lat, lon, year, slots, errs)
}

// FetchContinuousRange fetches one explicit date range from the timeseries
// endpoint. The unit is retried but not decomposed.
func (o *Orchestrator) FetchContinuousRange(ctx context.Context, lat, lon float64, start, end time.Time, variables []string) (Result, error) {
	archiveVars, err := domain.ResolveVariables(variables)
	if err != nil {
		return Result{}, err
	}
	archiveVars = intersectRange(archiveVars)
	if len(archiveVars) == 0 {
		return Result{}, &domain.ValidationError{Msg: "none of the requested variables are served by the timeseries endpoint"}
	}

	o.metrics.AcquisitionRunning.Set(1)
	defer o.metrics.AcquisitionRunning.Set(0)

	unit := domain.RangeUnit(lat, lon, start, end, archiveVars)
	records, err := o.runUnit(ctx, unit)
	if err != nil {
		return Result{}, &domain.AcquisitionError{Request: unit.String(), Err: err}
	}

	o.metrics.RecordsMerged.Add(float64(len(records)))
	o.logger.Info("range fetched", "unit", unit.String(), "records", len(records))
	return Result{Dataset: records}, nil
}

// runUnit runs one unit's full retry loop. Rate-limit failures back off
// exponentially, other transient failures wait a flat delay, fatal
// classifications stop immediately. The last attempt never waits.
func (o *Orchestrator) runUnit(ctx context.Context, unit domain.FetchUnit) (domain.Dataset, error) {
	o.metrics.UnitsAttempted.Inc()
	start := o.clock.Now()

	var lastErr error
	for attempt := 0; attempt < o.opts.RetryAttempts; attempt++ {
		records, err := o.attemptUnit(ctx, unit)
		if err == nil {
			o.completed.Add(1)
			o.metrics.UnitsSucceeded.Inc()
			o.metrics.UnitDuration.Observe(o.clock.Since(start).Seconds())
			o.logger.Debug("unit fetched", "unit", unit.String(), "records", len(records), "attempts", attempt+1)
			return records, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		class := classOf(err)
		if class == domain.FailFatal || attempt == o.opts.RetryAttempts-1 {
			break
		}

		wait := transientDelay
		if class == domain.FailRateLimited {
			wait = rateLimitWait(unit, attempt)
			o.metrics.BackoffSecondsTotal.Add(wait.Seconds())
		}
		o.metrics.Retries.WithLabelValues(class.String()).Inc()
		o.logger.Warn("unit attempt failed",
			"unit", unit.String(),
			"attempt", attempt+1,
			"class", class.String(),
			"wait", wait,
			"error", err,
		)
		if !o.sleep(ctx, wait) {
			break
		}
	}

	o.failed.Add(1)
	o.metrics.UnitsFailed.Inc()
	return nil, lastErr
}

// attemptUnit performs a single attempt: scratch artifact, network fetch,
// standardize. The artifact is discarded on every exit path.
func (o *Orchestrator) attemptUnit(ctx context.Context, unit domain.FetchUnit) (domain.Dataset, error) {
	tmp, err := os.CreateTemp(o.opts.TempDir, "weatherbuild-unit-*.raw")
	if err != nil {
		return nil, fmt.Errorf("scratch artifact: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if unit.IsRange() {
		err = o.fetcher.FetchRange(ctx, unit, path)
	} else {
		err = o.fetcher.FetchMonth(ctx, unit, path)
	}
	if err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	if unit.IsRange() {
		return o.std.RangeRecords(payload)
	}
	return o.std.MonthRecords(payload, unit.Lat, unit.Lon)
}

// sleep waits through the injected clock, abandoning the wait on
// cancellation. Returns false if the context ended first.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := o.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func rateLimitWait(unit domain.FetchUnit, attempt int) time.Duration {
	if unit.IsRange() {
		return rangeLimitBase << attempt
	}
	return rateLimitBase << attempt
}

// classOf reads the transport's typed classification. Errors from outside the
// transport (decode, I/O) default to transient, matching the flat-delay retry
// the archive's flaky payloads deserve.
func classOf(err error) domain.FailureClass {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return domain.FailTransient
}

func intersectRange(vars []string) []string {
	allowed := make(map[string]bool, len(domain.RangeVariables))
	for _, v := range domain.RangeVariables {
		allowed[v] = true
	}
	var out []string
	for _, v := range vars {
		if allowed[v] {
			out = append(out, v)
		}
	}
	return out
}
