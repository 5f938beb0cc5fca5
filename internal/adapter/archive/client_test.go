package archive

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient(baseURL, testKey, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c
}

func scratchPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "unit.raw")
}

func monthUnit() domain.FetchUnit {
	return domain.MonthUnit(52.52, 13.41, 2020, 3, []string{domain.ArchiveTemperature, domain.ArchiveDewPoint})
}

func rangeUnit() domain.FetchUnit {
	return domain.RangeUnit(52.52, 13.41,
		time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC),
		[]string{domain.ArchiveTemperature})
}

func fetchClass(t *testing.T, err error) domain.FailureClass {
	t.Helper()
	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	return fe.Class
}

func TestClient_FetchMonth_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/resources/"+datasetSingleLevels, r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))

		var body monthlyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "reanalysis", body.ProductType)
		assert.Equal(t, []string{domain.ArchiveTemperature, domain.ArchiveDewPoint}, body.Variable)
		assert.Equal(t, "2020", body.Year)
		assert.Equal(t, "03", body.Month)
		assert.Len(t, body.Day, 31)
		assert.Len(t, body.Time, 24)
		assert.Equal(t, "00:00", body.Time[0])
		assert.Equal(t, "grid", body.Format)

		// North, west, south, east with margin 0.05 around the point.
		assert.InDelta(t, 52.57, body.Area[0], 1e-9)
		assert.InDelta(t, 13.36, body.Area[1], 1e-9)
		assert.InDelta(t, 52.47, body.Area[2], 1e-9)
		assert.InDelta(t, 13.46, body.Area[3], 1e-9)

		_, _ = w.Write([]byte(`{"valid_time": []}`))
	}))
	defer srv.Close()

	path := scratchPath(t)
	err := testClient(t, srv.URL).FetchMonth(context.Background(), monthUnit(), path)
	require.NoError(t, err)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"valid_time": []}`, string(payload))
}

func TestClient_FetchMonth_Classification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   domain.FailureClass
	}{
		{"queued request", http.StatusBadRequest, "your request has been queued", domain.FailRateLimited},
		{"limit reached", http.StatusBadRequest, "user request limit exceeded", domain.FailRateLimited},
		{"bad request", http.StatusBadRequest, "unknown variable", domain.FailFatal},
		{"too many requests", http.StatusTooManyRequests, "slow down", domain.FailRateLimited},
		{"request timeout", http.StatusRequestTimeout, "timed out", domain.FailTransient},
		{"forbidden", http.StatusForbidden, "bad credentials", domain.FailFatal},
		{"server error", http.StatusInternalServerError, "boom", domain.FailTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := testClient(t, srv.URL).FetchMonth(context.Background(), monthUnit(), scratchPath(t))
			assert.Equal(t, tc.want, fetchClass(t, err))
		})
	}
}

func TestClient_FetchRange_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resources/"+datasetTimeseries, r.URL.Path)

		var body rangeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"2021-06-01/2021-06-30"}, body.Date)
		assert.Equal(t, "csv", body.DataFormat)
		assert.InDelta(t, 52.52, body.Location.Latitude, 1e-9)
		assert.InDelta(t, 13.41, body.Location.Longitude, 1e-9)

		_, _ = w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()

	path := scratchPath(t)
	err := testClient(t, srv.URL).FetchRange(context.Background(), rangeUnit(), path)
	require.NoError(t, err)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(payload))
}

func TestClient_FetchRange_Classification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   domain.FailureClass
	}{
		{"too many requests", http.StatusTooManyRequests, "slow down", domain.FailRateLimited},
		// The timeseries endpoint has no queue wording; 400 is terminal.
		{"queued wording ignored", http.StatusBadRequest, "request queued", domain.FailFatal},
		{"not found", http.StatusNotFound, "no such dataset", domain.FailFatal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := testClient(t, srv.URL).FetchRange(context.Background(), rangeUnit(), scratchPath(t))
			assert.Equal(t, tc.want, fetchClass(t, err))
		})
	}
}

func TestClient_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	err := testClient(t, srv.URL).FetchMonth(context.Background(), monthUnit(), scratchPath(t))
	assert.Equal(t, domain.FailTransient, fetchClass(t, err))
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	for i := 0; i < 6; i++ {
		err := c.FetchMonth(context.Background(), monthUnit(), scratchPath(t))
		assert.Equal(t, domain.FailTransient, fetchClass(t, err))
	}

	// The breaker is open now: the next call fails without reaching the
	// archive and stays transient so the retry loop can outlive the trip.
	err := c.FetchMonth(context.Background(), monthUnit(), scratchPath(t))
	assert.Equal(t, domain.FailTransient, fetchClass(t, err))
	assert.Equal(t, int64(6), hits.Load())
}
