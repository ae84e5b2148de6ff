// Package source fetches the raw tables the commission engine reads, from
// Google Sheets CSV exports, PostgreSQL or local CSV files, with an optional
// Redis cache in front.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/sheet"
)

// ErrSourceUnavailable wraps every failure to obtain a table.
var ErrSourceUnavailable = errors.New("source: unavailable")

// TableName identifies one logical input table.
type TableName string

const (
	TableSellers            TableName = "sellers"
	TableSales              TableName = "sales"
	TablePassengers         TableName = "passengers"
	TableDailyTargets       TableName = "daily_targets"
	TableRates              TableName = "rates"
	TableCommissions        TableName = "commissions"
	TableThirdPartyServices TableName = "third_party_services"
)

// AllTables lists every table a report needs, in fetch order.
var AllTables = []TableName{
	TableSellers,
	TableSales,
	TablePassengers,
	TableDailyTargets,
	TableRates,
	TableCommissions,
	TableThirdPartyServices,
}

// Tab returns the worksheet title the table lives in.
func (n TableName) Tab() string {
	switch n {
	case TableSellers:
		return "Vendedores"
	case TableSales:
		return "Dados Finais Vendas"
	case TablePassengers:
		return "Dados In de Escala"
	case TableDailyTargets:
		return "Meta Diaria"
	case TableRates:
		return "Dados Vendedores"
	case TableCommissions:
		return "Comissão"
	case TableThirdPartyServices:
		return "Serviços Terceiros"
	}
	return string(n)
}

// ParseTableName accepts a logical table name.
func ParseTableName(raw string) (TableName, error) {
	name := TableName(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range AllTables {
		if known == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("source: unknown table %q", raw)
}

// Provider returns one table per call. Implementations must be safe for
// concurrent use.
type Provider interface {
	Fetch(ctx context.Context, name TableName) (sheet.Table, error)
}

// Bundle is one generation of fetched tables.
type Bundle map[TableName]sheet.Table

// Tables maps the bundle onto the engine inputs.
func (b Bundle) Tables() commission.Tables {
	return commission.Tables{
		Sellers:      b[TableSellers],
		Sales:        b[TableSales],
		Passengers:   b[TablePassengers],
		DailyTargets: b[TableDailyTargets],
		Rates:        b[TableRates],
		Commissions:  b[TableCommissions],
		Services:     b[TableThirdPartyServices],
	}
}

// Load fetches every table concurrently. Any failure aborts the load.
func Load(ctx context.Context, provider Provider) (Bundle, error) {
	if s, ok := provider.(Snapshotter); ok {
		provider = s.Snapshot(ctx)
	}
	var (
		mu     sync.Mutex
		bundle = make(Bundle, len(AllTables))
	)
	group, gctx := errgroup.WithContext(ctx)
	for _, name := range AllTables {
		name := name
		group.Go(func() error {
			t, err := provider.Fetch(gctx, name)
			if err != nil {
				return unavailable(name, err)
			}
			if t.Name == "" {
				t.Name = string(name)
			}
			mu.Lock()
			bundle[name] = t
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// Snapshotter is a provider that can pin one generation of its tables for
// the duration of a Load.
type Snapshotter interface {
	Snapshot(ctx context.Context) Provider
}

// ThirdPartyServices fetches the third-party service names.
func ThirdPartyServices(ctx context.Context, provider Provider, decoder commission.Decoder) ([]string, error) {
	t, err := provider.Fetch(ctx, TableThirdPartyServices)
	if err != nil {
		return nil, unavailable(TableThirdPartyServices, err)
	}
	return decoder.Services(t), nil
}

func unavailable(name TableName, err error) error {
	if errors.Is(err, ErrSourceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
}

// Loader adapts a provider to the commission service.
type Loader struct {
	Provider Provider
}

// LoadTables implements commission.Loader.
func (l Loader) LoadTables(ctx context.Context) (commission.Tables, error) {
	bundle, err := Load(ctx, l.Provider)
	if err != nil {
		return commission.Tables{}, err
	}
	return bundle.Tables(), nil
}
