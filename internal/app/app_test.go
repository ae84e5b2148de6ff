package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/observability"
	"github.com/Glebrito/Analisediaria/internal/source"
	_ "github.com/Glebrito/Analisediaria/testing"
)

func validConfig() *Config {
	return &Config{
		SourceDriver:           DriverCSV,
		SheetsSalesSpreadsheet: "sales",
		LogFormat:              "json",
		LogLevel:               "debug",
		PeriodFilterMode:       "calendar",
		NameMatch:              "normalized",
		PassengerScale:         "100",
		EnrichWorkers:          2,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SOURCE_DRIVER", "sheets")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSheets, cfg.SourceDriver)
	assert.Equal(t, "1111997089", cfg.SheetsServicesGID)
	assert.Equal(t, "5m0s", cfg.TableCacheTTL.String())
	assert.True(t, cfg.Scale().Equal(decimal.NewFromInt(100)))
	assert.Equal(t, commission.FilterIndependent, cfg.EngineOptions().FilterMode)
	assert.Equal(t, commission.PolicySource, cfg.EngineOptions().MatchPolicy)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SOURCE_DRIVER", "excel")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE_DRIVER")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"filter mode": func(c *Config) { c.PeriodFilterMode = "fuzzy" },
		"name match":  func(c *Config) { c.NameMatch = "soundex" },
		"scale":       func(c *Config) { c.PassengerScale = "0" },
		"scale text":  func(c *Config) { c.PassengerScale = "cem" },
		"workers":     func(c *Config) { c.EnrichWorkers = 0 },
		"log level":   func(c *Config) { c.LogLevel = "loud" },
		"log format":  func(c *Config) { c.LogFormat = "xml" },
		"spreadsheet": func(c *Config) {
			c.SourceDriver = DriverSheets
			c.SheetsSalesSpreadsheet = ""
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigLocation(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "UTC", cfg.Location().String())
	cfg.WorkerTimezone = "Mars/Olympus"
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestEngineOptions(t *testing.T) {
	opts := validConfig().EngineOptions()
	assert.Equal(t, commission.FilterCalendar, opts.FilterMode)
	assert.Equal(t, commission.PolicyNormalized, opts.MatchPolicy)
	assert.Equal(t, 2, opts.Workers)
}

func TestNewLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, validConfig())
	logger.Debug("visible", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "json handler")
	assert.Contains(t, buf.String(), `"msg":"visible"`)

	buf.Reset()
	cfg := validConfig()
	cfg.LogFormat = "pretty"
	cfg.LogLevel = "warn"
	logger = newLogger(&buf, cfg)
	logger.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestNewUpstream(t *testing.T) {
	cfg := validConfig()
	cfg.CSVDir = t.TempDir()
	p, err := NewUpstream(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, source.CSVProvider{}, p)

	cfg.SourceDriver = DriverSheets
	p, err = NewUpstream(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &source.SheetsProvider{}, p)

	cfg.SourceDriver = DriverPostgres
	_, err = NewUpstream(cfg, nil)
	assert.Error(t, err)
}

func TestBuildStackOverEmptyCSV(t *testing.T) {
	cfg := validConfig()
	cfg.CSVDir = t.TempDir()
	stack, err := BuildStack(cfg, StackDeps{})
	require.NoError(t, err)

	start, _ := commission.ParseDay("01/03/2025")
	end, _ := commission.ParseDay("31/03/2025")
	period, err := commission.NewPeriod(start, end)
	require.NoError(t, err)
	rosters, err := stack.Service.Categories(context.Background(), period)
	require.NoError(t, err)
	assert.Empty(t, rosters)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{Config: validConfig(), Metrics: metrics})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `analise_http_requests_total{code="200",route="/healthz"} 1`)
}
