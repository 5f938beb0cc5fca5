package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/justinfmccarty/weather-file-builder/internal/adapter/httpadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAcquisition struct {
	readyErr  error
	completed int
	failed    int
}

func (m *mockAcquisition) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockAcquisition) Progress() (int, int) { return m.completed, m.failed }

func get(t *testing.T, srv *httpadapter.Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

// --- tests ---

func TestHealthz(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockAcquisition{}, slog.Default())

	rec, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz_ReportsProgress(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockAcquisition{completed: 7, failed: 2}, slog.Default())

	rec, body := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, float64(7), body["units_completed"])
	assert.Equal(t, float64(2), body["units_failed"])
}

func TestReadyz_NotReadyBeforeFirstUnit(t *testing.T) {
	acq := &mockAcquisition{readyErr: errors.New("no fetch unit has completed yet")}
	srv := httpadapter.NewServer(":0", acq, slog.Default())

	rec, body := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no fetch unit has completed yet", body["error"])
	assert.Equal(t, float64(0), body["units_completed"])
}

func TestSelection_404UntilPublished(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockAcquisition{}, slog.Default())

	rec, _ := get(t, srv, "/selection")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv.PublishSelection(map[int]int{1: 2020, 2: 2019})

	rec, body := get(t, srv, "/selection")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2020), body["1"])
	assert.Equal(t, float64(2019), body["2"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockAcquisition{}, slog.Default())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
