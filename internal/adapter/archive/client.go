package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"github.com/sony/gobreaker"
)

const (
	datasetSingleLevels = "reanalysis-era5-single-levels"
	datasetTimeseries   = "reanalysis-era5-land-timeseries"

	// Bounding box margin around the requested point (decimal degrees).
	areaMargin = 0.05
)

// Client talks to a CDS-style reanalysis retrieval API. It implements the
// orchestrator's Fetcher: each call downloads one unit's raw payload into a
// caller-owned scratch file. All failures come back as *domain.FetchError
// with the class decided here and nowhere else.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates an archive client. The circuit breaker guards against
// hammering an archive that is hard-down; rate-limit responses do not trip it.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "archive",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		logger:     logger,
	}
}

// FetchMonth requests one (year, month) of gridded data for a small bounding
// box around the unit's point and writes the payload to path.
func (c *Client) FetchMonth(ctx context.Context, unit domain.FetchUnit, path string) error {
	days := make([]string, 31)
	for d := range days {
		days[d] = fmt.Sprintf("%02d", d+1)
	}
	hours := make([]string, 24)
	for h := range hours {
		hours[h] = fmt.Sprintf("%02d:00", h)
	}

	body := monthlyRequest{
		ProductType: "reanalysis",
		Variable:    unit.Variables,
		Year:        fmt.Sprintf("%d", unit.Year),
		Month:       fmt.Sprintf("%02d", unit.Month),
		Day:         days,
		Time:        hours,
		Area: [4]float64{
			unit.Lat + areaMargin,
			unit.Lon - areaMargin,
			unit.Lat - areaMargin,
			unit.Lon + areaMargin,
		},
		Format: "grid",
	}

	return c.retrieve(ctx, datasetSingleLevels, body, path, classifyMonthly)
}

// FetchRange requests an explicit date range from the timeseries endpoint,
// which serves a zip bundle of per-variable CSV exports.
func (c *Client) FetchRange(ctx context.Context, unit domain.FetchUnit, path string) error {
	body := rangeRequest{
		Variable: unit.Variables,
		Location: location{Latitude: unit.Lat, Longitude: unit.Lon},
		Date: []string{
			unit.Start.Format("2006-01-02") + "/" + unit.End.Format("2006-01-02"),
		},
		DataFormat: "csv",
	}

	return c.retrieve(ctx, datasetTimeseries, body, path, classifyRange)
}

func (c *Client) retrieve(ctx context.Context, dataset string, body any, path string, classify func(status int, msg string) domain.FailureClass) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &domain.FetchError{Class: domain.FailFatal, Err: fmt.Errorf("encode request: %w", err)}
	}

	res, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/resources/"+dataset, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		// 5xx counts against the breaker; 4xx (including queue/rate-limit
		// responses) is the archive doing its job and must not open it.
		if resp.StatusCode >= 500 {
			msg := readErrorBody(resp)
			return nil, &statusError{status: resp.StatusCode, msg: msg}
		}
		return resp, nil
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return &domain.FetchError{Class: domain.FailTransient, Status: se.status, Err: errors.New(se.msg)}
		}
		// Breaker open, timeout, or connection failure.
		return &domain.FetchError{Class: domain.FailTransient, Err: err}
	}

	resp := res.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorBody(resp)
		return &domain.FetchError{
			Class:  classify(resp.StatusCode, msg),
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s responded: %s", dataset, msg),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return &domain.FetchError{Class: domain.FailFatal, Err: fmt.Errorf("open scratch artifact: %w", err)}
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return &domain.FetchError{Class: domain.FailTransient, Err: fmt.Errorf("download payload: %w", err)}
	}
	return nil
}

// classifyMonthly distinguishes the single-levels endpoint's queue condition,
// signalled as a 400 whose message mentions the queue or a limit.
func classifyMonthly(status int, msg string) domain.FailureClass {
	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusTooManyRequests:
		return domain.FailRateLimited
	case status == http.StatusBadRequest && (strings.Contains(lower, "queued") || strings.Contains(lower, "limit")):
		return domain.FailRateLimited
	case status == http.StatusRequestTimeout:
		return domain.FailTransient
	default:
		return domain.FailFatal
	}
}

// classifyRange: the timeseries endpoint signals rate limits with a plain 429.
func classifyRange(status int, _ string) domain.FailureClass {
	if status == http.StatusTooManyRequests {
		return domain.FailRateLimited
	}
	return domain.FailFatal
}

func readErrorBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return strings.TrimSpace(string(b))
}

type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.msg)
}

// Archive request bodies.

type monthlyRequest struct {
	ProductType string     `json:"product_type"`
	Variable    []string   `json:"variable"`
	Year        string     `json:"year"`
	Month       string     `json:"month"`
	Day         []string   `json:"day"`
	Time        []string   `json:"time"`
	Area        [4]float64 `json:"area"` // N, W, S, E
	Format      string     `json:"format"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type rangeRequest struct {
	Variable   []string `json:"variable"`
	Location   location `json:"location"`
	Date       []string `json:"date"`
	DataFormat string   `json:"data_format"`
}
