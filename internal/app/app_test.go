package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onglesrivieres/salon360-sub000/internal/observability"
)

func testConfig() *Config {
	return &Config{
		AppEnv:               "development",
		PGDSN:                "postgres://localhost/salon360",
		ImportMaxUploadBytes: 1 << 20,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "missing dsn", mutate: func(c *Config) { c.PGDSN = "" }},
		{name: "zero upload", mutate: func(c *Config) { c.ImportMaxUploadBytes = 0 }},
		{name: "negative rows", mutate: func(c *Config) { c.ImportMaxRows = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("IMPORT_MAX_ROWS", "250")
	t.Setenv("APP_ENV", "production")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 250, cfg.ImportMaxRows)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 20, cfg.ImportRatePerMinute)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.LogFormat = "json"
	newLogger(&buf, cfg).Debug("hello", slog.String("run_id", "r1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "r1", entry["run_id"])
}

func newTestRouter(readiness map[string]Pinger) http.Handler {
	return NewRouter(RouterParams{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:    testConfig(),
		Metrics:   observability.NewMetrics(),
		Readiness: readiness,
	})
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `salon360_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRouterReadiness(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	rr := httptest.NewRecorder()
	newTestRouter(map[string]Pinger{"postgres": up, "redis": up}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"postgres":"ok","redis":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	newTestRouter(map[string]Pinger{"postgres": up, "redis": down}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.JSONEq(t, `{"postgres":"ok","redis":"down"}`, rr.Body.String())
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func TestInTestModeCachesUntilRefresh(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()

	t.Setenv(testModeEnv, "0")
	require.True(t, InTestMode())

	RefreshTestMode()
	require.False(t, InTestMode())
}
