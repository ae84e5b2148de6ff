package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/sheet"
	"github.com/Glebrito/Analisediaria/internal/source"
)

// StackDeps are the connections a Stack may use. Redis and Postgres are
// optional unless the configuration requires them.
type StackDeps struct {
	Logger   *slog.Logger
	Redis    *redis.Client
	Postgres source.Querier
	Recorder commission.Recorder
}

// Stack is the report pipeline shared by the server, the worker and the CLI.
type Stack struct {
	Upstream source.Provider
	Cache    *source.CachedProvider
	Decoder  commission.Decoder
	Engine   *commission.Engine
	Service  *commission.Service
}

// BuildStack wires the configured source behind the Redis cache and the
// engine behind the service.
func BuildStack(cfg *Config, deps StackDeps) (*Stack, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	upstream, err := NewUpstream(cfg, deps.Postgres)
	if err != nil {
		return nil, err
	}
	catalog, err := sheet.LoadAliases(cfg.AliasesFile)
	if err != nil {
		return nil, err
	}
	decoder := commission.NewDecoder(catalog, cfg.Scale(), logger)
	engine := commission.NewEngine(decoder, cfg.EngineOptions(), logger)
	cache := source.NewCachedProvider(upstream, deps.Redis, cfg.TableCacheTTL, logger)
	service := commission.NewService(source.Loader{Provider: cache}, engine, deps.Recorder, logger)

	return &Stack{Upstream: upstream, Cache: cache, Decoder: decoder, Engine: engine, Service: service}, nil
}

// NewUpstream selects the table provider named by SOURCE_DRIVER.
func NewUpstream(cfg *Config, pg source.Querier) (source.Provider, error) {
	switch strings.ToLower(cfg.SourceDriver) {
	case DriverSheets:
		return source.NewSheetsProvider(source.SheetsConfig{
			BaseURL:               cfg.SheetsBaseURL,
			SalesSpreadsheet:      cfg.SheetsSalesSpreadsheet,
			RatesSpreadsheet:      cfg.SheetsRatesSpreadsheet,
			CommissionSpreadsheet: cfg.SheetsCommissionSpreadsheet,
			ThirdPartyServicesGID: cfg.SheetsServicesGID,
			Timeout:               cfg.SheetsTimeout,
		}, nil), nil
	case DriverPostgres:
		if pg == nil {
			return nil, errors.New("app: postgres driver needs a database connection")
		}
		return source.NewPostgresProvider(pg), nil
	case DriverCSV:
		return source.CSVProvider{Dir: cfg.CSVDir}, nil
	}
	return nil, fmt.Errorf("app: unknown source driver %q", cfg.SourceDriver)
}
