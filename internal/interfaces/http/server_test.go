package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockrank/stockrank/internal/data/providers"
	"github.com/stockrank/stockrank/internal/scan"
)

func TestHealth_Healthy(t *testing.T) {
	breakers := providers.NewBreakerManager(providers.DefaultBreakerConfig())
	tracker := scan.NewTracker()
	tracker.Begin("run-1")

	srv := NewServer(":0", breakers, tracker)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Contains(t, resp.Runs, "run-1")
}

func TestHealth_DegradedWhenBreakerOpen(t *testing.T) {
	cfg := providers.DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 1
	breakers := providers.NewBreakerManager(cfg)
	_, _ = breakers.Execute("flaky", func() (interface{}, error) {
		return nil, assert.AnError
	})

	srv := NewServer(":0", breakers, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Contains(t, resp.Providers, "flaky")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(":0", nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockrank_")
}

func TestRunsEndpoint(t *testing.T) {
	tracker := scan.NewTracker()
	tracker.Begin("run-9")

	srv := NewServer(":0", nil, tracker)
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var runs map[string]scan.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Equal(t, scan.StatePending, runs["run-9"])
}
