package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"SignalRadar/pkg/cache"
	"SignalRadar/pkg/database"
	"SignalRadar/pkg/model"
	"SignalRadar/pkg/pipeline"
	"SignalRadar/pkg/strategy"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	registry *strategy.Registry
	opts     pipeline.RunOptions
	err      error
}

func (f *fakeRunner) RunStrategy(_ context.Context, code string, opts pipeline.RunOptions) (*model.ScanSummary, error) {
	f.opts = opts
	if _, ok := f.registry.Get(code); !ok {
		return nil, pipeline.ErrUnknownStrategy
	}
	summary := &model.ScanSummary{StrategyCode: code, Status: model.ScanCompleted, Signals: 2}
	if f.err != nil {
		summary.Status = model.ScanFailed
		return summary, f.err
	}
	return summary, nil
}

func (f *fakeRunner) RunAll(_ context.Context, opts pipeline.RunOptions) ([]*model.ScanSummary, error) {
	f.opts = opts
	return []*model.ScanSummary{{StrategyCode: "ESM", Status: model.ScanCompleted}}, f.err
}

func (f *fakeRunner) Registry() *strategy.Registry { return f.registry }

type fakeAlerts struct {
	filter database.AlertFilter
}

func (f *fakeAlerts) List(_ context.Context, filter database.AlertFilter) ([]model.AlertHistory, error) {
	f.filter = filter
	return []model.AlertHistory{{Symbol: "AAPL", CrossoverType: "esm_entry"}}, nil
}

type fakeReadiness map[string]error

func (f fakeReadiness) CheckAll(context.Context) map[string]error { return f }

const esmJSON = `{
  "strategy_code": "ESM",
  "scan": {
    "type": "ma_cross",
    "entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
    "exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"}
  },
  "filters": {"top_n": 100, "min_price": 10}
}`

type testEnv struct {
	handler http.Handler
	runner  *fakeRunner
	alerts  *fakeAlerts
	store   *cache.MemoryStore
	dir     string
}

func newEnv(t *testing.T, readiness ReadinessChecker) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "esm.json"), []byte(esmJSON), 0o644))
	registry := strategy.NewRegistry(dir, zap.NewNop())
	_, err := registry.Reload()
	require.NoError(t, err)

	env := &testEnv{
		runner: &fakeRunner{registry: registry},
		alerts: &fakeAlerts{},
		store:  cache.NewMemoryStore(),
		dir:    dir,
	}
	server := NewServer("0", time.Second, time.Second, zap.NewNop())
	server.SetupRoutes(NewHandlers(env.runner, env.store, env.alerts, readiness))
	env.handler = server.Handler()
	return env
}

func (e *testEnv) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	e.handler.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	env := newEnv(t, fakeReadiness{"database": nil})
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready").Code)

	down := newEnv(t, fakeReadiness{"database": errors.New("timeout")})
	w := down.do(http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "timeout")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	w := env.do(http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "signalradar_strategies_loaded")
}

func TestRunStrategyEndpoint(t *testing.T) {
	env := newEnv(t, nil)

	w := env.do(http.MethodPost, "/api/v1/scans/ESM?date=2024-03-08&notify=false")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.runner.opts.Notify)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), env.runner.opts.TargetDate)

	var body struct {
		Data model.ScanSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Signals)

	env.do(http.MethodPost, "/api/v1/scans/ESM")
	assert.True(t, env.runner.opts.Notify, "notify defaults to true")
}

func TestRunStrategyErrors(t *testing.T) {
	env := newEnv(t, nil)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/scans/ESM?date=03/08/2024").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/scans/ESM?notify=maybe").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/v1/scans/NOPE").Code)

	env.runner.err = errors.New("fetch failed")
	w := env.do(http.MethodPost, "/api/v1/scans/ESM")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed")
}

func TestRunAllEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/scans").Code)

	env.runner.err = errors.New("all failed")
	assert.Equal(t, http.StatusInternalServerError, env.do(http.MethodPost, "/api/v1/scans").Code)
}

func TestLatestSummaryEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v1/scans/ESM/latest").Code)

	require.NoError(t, env.store.Save(context.Background(), &model.ScanSummary{RunID: "r1", StrategyCode: "ESM"}))
	w := env.do(http.MethodGet, "/api/v1/scans/esm/latest")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"r1"`)
}

func TestStrategiesEndpoints(t *testing.T) {
	env := newEnv(t, nil)

	w := env.do(http.MethodGet, "/api/v1/strategies")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"strategy_code":"ESM"`)
	assert.Contains(t, w.Body.String(), `"required_indicators":["ema_9","sma_20"]`)

	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "bad.json"), []byte(`{"strategy_code":"BAD","scan":{"type":"breakout"}}`), 0o644))
	w = env.do(http.MethodPost, "/api/v1/strategies/reload")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	_, ok := env.runner.registry.Get("ESM")
	assert.True(t, ok)

	require.NoError(t, os.Remove(filepath.Join(env.dir, "bad.json")))
	w = env.do(http.MethodPost, "/api/v1/strategies/reload")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"codes":["ESM"]`)
}

func TestListSignalsEndpoint(t *testing.T) {
	env := newEnv(t, nil)

	w := env.do(http.MethodGet, "/api/v1/signals?date=2024-03-08&strategy=ESM&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ESM", env.alerts.filter.StrategyCode)
	assert.Equal(t, 5, env.alerts.filter.Limit)
	assert.True(t, env.alerts.filter.Date.Equal(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/signals?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/signals?date=yesterday").Code)
}
