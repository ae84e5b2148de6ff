package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/sheet"
)

type stubProvider struct {
	mu     sync.Mutex
	calls  map[TableName]int
	tables map[TableName]sheet.Table
	fail   map[TableName]error
	delay  time.Duration
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		calls: map[TableName]int{},
		tables: map[TableName]sheet.Table{
			TableSellers: sheet.FromRecords("sellers", []string{"Nome Do Vendedor", "Tipo de Vendedor"}, [][]string{{"Ana", "Guias"}}),
			TableThirdPartyServices: sheet.FromRecords("third_party_services", []string{"Nome do Serviço"},
				[][]string{{"Mergulho"}, {" Passeio de Barco "}, {""}}),
		},
		fail: map[TableName]error{},
	}
}

func (s *stubProvider) Fetch(ctx context.Context, name TableName) (sheet.Table, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if err := s.fail[name]; err != nil {
		return sheet.Table{}, err
	}
	return s.tables[name], nil
}

func (s *stubProvider) count(name TableName) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func TestLoadFetchesEveryTable(t *testing.T) {
	stub := newStubProvider()
	bundle, err := Load(context.Background(), stub)
	require.NoError(t, err)
	require.Len(t, bundle, len(AllTables))
	for _, name := range AllTables {
		assert.Equal(t, 1, stub.count(name), name)
		assert.Equal(t, string(name), bundle[name].Name)
	}

	tables := bundle.Tables()
	require.Len(t, tables.Sellers.Rows, 1)
	assert.Equal(t, "Ana", tables.Sellers.Rows[0].Text("Nome Do Vendedor"))
	assert.True(t, tables.Sales.Empty())
}

func TestLoadFailureIsUnavailable(t *testing.T) {
	stub := newStubProvider()
	boom := errors.New("quota exceeded")
	stub.fail[TableRates] = boom

	_, err := Load(context.Background(), stub)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rates")

	_, err = Loader{Provider: stub}.LoadTables(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestThirdPartyServices(t *testing.T) {
	names, err := ThirdPartyServices(context.Background(), newStubProvider(), commission.NewDecoder(sheet.DefaultCatalog(), decimal.NewFromInt(100), nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"Mergulho", "Passeio de Barco"}, names)
}

func TestParseTableName(t *testing.T) {
	name, err := ParseTableName(" Sales ")
	require.NoError(t, err)
	assert.Equal(t, TableSales, name)
	assert.Equal(t, "Dados Finais Vendas", name.Tab())
	_, err = ParseTableName("ledger")
	assert.Error(t, err)
}

func TestSheetsProviderFetch(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		if r.URL.Query().Get("sheet") == "Meta Diaria" {
			http.Error(w, "not shared", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = fmt.Fprint(w, "\ufeff\"Vendedor\",\"Meta\"\n\"Ana\",\"R$ 1.000,00\"\n\"\",\"\"\n\"Bia\"\n")
	}))
	defer srv.Close()

	p := NewSheetsProvider(SheetsConfig{
		BaseURL:               srv.URL + "/",
		SalesSpreadsheet:      "sales-id",
		RatesSpreadsheet:      "rates-id",
		ThirdPartyServicesGID: "1111997089",
	}, srv.Client())

	table, err := p.Fetch(context.Background(), TableSellers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vendedor", "Meta"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "R$ 1.000,00", table.Rows[0].Text("Meta"))
	assert.Equal(t, "", table.Rows[1].Text("Meta"))

	_, err = p.Fetch(context.Background(), TableDailyTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = p.Fetch(context.Background(), TableThirdPartyServices)
	require.NoError(t, err)
	_, err = p.Fetch(context.Background(), TableCommissions)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 4)
	assert.Equal(t, "/spreadsheets/d/sales-id/gviz/tq?sheet=Vendedores&tqx=out%3Acsv", paths[0])
	assert.Contains(t, paths[2], "gid=1111997089")
	assert.True(t, strings.HasPrefix(paths[3], "/spreadsheets/d/rates-id/"), "commission detail falls back to the rates spreadsheet")
}

func TestSheetsProviderRequiresSpreadsheet(t *testing.T) {
	p := NewSheetsProvider(SheetsConfig{}, nil)
	_, err := p.URL(TableSellers)
	assert.Error(t, err)
}

func TestCSVProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("dia,Vendedor\n10,Ana\n"), 0o600))

	p := CSVProvider{Dir: dir}
	table, err := p.Fetch(context.Background(), TableSales)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Ana", table.Rows[0].Text("Vendedor"))

	missing, err := p.Fetch(context.Background(), TableRates)
	require.NoError(t, err)
	assert.True(t, missing.Empty())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Fetch(ctx, TableRates)
	assert.ErrorIs(t, err, context.Canceled)
}

func newCached(t *testing.T, upstream Provider) (*CachedProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedProvider(upstream, client, time.Minute, nil), mr
}

func TestCachedProviderServesFromRedis(t *testing.T) {
	stub := newStubProvider()
	cached, mr := newCached(t, stub)
	ctx := context.Background()

	first, err := cached.Fetch(ctx, TableSellers)
	require.NoError(t, err)
	second, err := cached.Fetch(ctx, TableSellers)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.count(TableSellers))
	assert.Equal(t, first.Headers, second.Headers)
	assert.Equal(t, "Ana", second.Rows[0].Text("Nome Do Vendedor"))

	key, err := cached.Key(ctx, TableSellers)
	require.NoError(t, err)
	assert.Equal(t, "analise:table:sellers:1", key)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	ver, err := cached.Bump(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver)
	_, err = cached.Fetch(ctx, TableSellers)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count(TableSellers))
}

func TestCachedProviderCoalescesConcurrentFetches(t *testing.T) {
	stub := newStubProvider()
	stub.delay = 50 * time.Millisecond
	cached, _ := newCached(t, stub)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cached.Fetch(context.Background(), TableSellers); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, failures.Load())
	assert.Equal(t, 1, stub.count(TableSellers))
}

func TestCachedProviderDoesNotCacheFailures(t *testing.T) {
	stub := newStubProvider()
	stub.fail[TableSales] = errors.New("timeout")
	cached, _ := newCached(t, stub)

	_, err := cached.Fetch(context.Background(), TableSales)
	require.Error(t, err)
	delete(stub.fail, TableSales)
	_, err = cached.Fetch(context.Background(), TableSales)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count(TableSales))
}

func TestCachedProviderRefreshReloads(t *testing.T) {
	stub := newStubProvider()
	cached, mr := newCached(t, stub)

	ver, err := cached.Refresh(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver)
	for _, name := range AllTables {
		assert.True(t, mr.Exists(fmt.Sprintf("analise:table:%s:2", name)), name)
	}
}

// bumpingProvider bumps the cache version during its first fetch.
type bumpingProvider struct {
	*stubProvider
	once sync.Once
	bump func()
}

func (b *bumpingProvider) Fetch(ctx context.Context, name TableName) (sheet.Table, error) {
	b.once.Do(b.bump)
	return b.stubProvider.Fetch(ctx, name)
}

func TestLoadKeepsOneCacheVersionAcrossBump(t *testing.T) {
	upstream := &bumpingProvider{stubProvider: newStubProvider()}
	cached, mr := newCached(t, upstream)
	ctx := context.Background()
	upstream.bump = func() {
		_, err := cached.Bump(ctx)
		assert.NoError(t, err)
	}

	_, err := Load(ctx, cached)
	require.NoError(t, err)

	ver, err := cached.Version(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, ver)
	for _, name := range AllTables {
		assert.True(t, mr.Exists(fmt.Sprintf("analise:table:%s:1", name)), name)
		assert.False(t, mr.Exists(fmt.Sprintf("analise:table:%s:2", name)), name)
	}
}

func TestCachedProviderWithoutRedis(t *testing.T) {
	stub := newStubProvider()
	cached := NewCachedProvider(stub, nil, 0, nil)
	_, err := cached.Fetch(context.Background(), TableSellers)
	require.NoError(t, err)
	_, err = cached.Fetch(context.Background(), TableSellers)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.count(TableSellers))
	ver, err := cached.Bump(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ver)
}

type stubRow struct {
	value []byte
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

type stubRows struct {
	values [][]byte
	index  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	r.index++
	return r.index < len(r.values)
}

func (r *stubRows) Scan(dest ...any) error {
	*(dest[0].(*[]byte)) = r.values[r.index]
	return nil
}

func (r *stubRows) Values() ([]any, error) {
	return []any{r.values[r.index]}, nil
}

type stubDB struct {
	headers  map[string][]byte
	rows     map[string][][]byte
	rowErr   error
	queryErr error
}

func (s *stubDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if s.rowErr != nil {
		return stubRow{err: s.rowErr}
	}
	raw, ok := s.headers[args[0].(string)]
	if !ok {
		return stubRow{err: pgx.ErrNoRows}
	}
	return stubRow{value: raw}
}

func (s *stubDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &stubRows{values: s.rows[args[0].(string)], index: -1}, nil
}

func TestPostgresProviderFetch(t *testing.T) {
	db := &stubDB{
		headers: map[string][]byte{"passengers": []byte(`["Guia","Total_Paxs"]`)},
		rows: map[string][][]byte{"passengers": {
			[]byte(`{"Guia":"Ana","Total_Paxs":250}`),
			[]byte(`{"Guia":"Bia","Total_Paxs":"100"}`),
		}},
	}
	p := NewPostgresProvider(db)

	table, err := p.Fetch(context.Background(), TablePassengers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Guia", "Total_Paxs"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "250", table.Rows[0].Text("Total_Paxs"))
	assert.Equal(t, "Bia", table.Rows[1].Text("Guia"))

	empty, err := p.Fetch(context.Background(), TableRates)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.Equal(t, "rates", empty.Name)
}

func TestPostgresProviderMissingSchemaIsUnavailable(t *testing.T) {
	p := NewPostgresProvider(&stubDB{rowErr: &pgconn.PgError{Code: "42P01", Message: `relation "sheet_headers" does not exist`}})
	_, err := p.Fetch(context.Background(), TableSales)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	p = NewPostgresProvider(&stubDB{rowErr: errors.New("conn reset")})
	_, err = p.Fetch(context.Background(), TableSales)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSourceUnavailable))

	// Load still reports the failure as unavailable
	_, err = Load(context.Background(), p)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

type stubBatchResults struct {
	pgx.BatchResults
}

func (stubBatchResults) Close() error { return nil }

type stubTx struct {
	pgx.Tx
	execs   []string
	batched map[string]int
}

func (s *stubTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, fmt.Sprint(args[0]))
	return pgconn.CommandTag{}, nil
}

func (s *stubTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	if s.batched == nil {
		s.batched = map[string]int{}
	}
	for _, q := range b.QueuedQueries {
		s.batched[fmt.Sprint(q.Arguments[0])]++
	}
	return stubBatchResults{}
}

func TestMirrorStoresEveryTableInOrder(t *testing.T) {
	tx := &stubTx{}
	bundle := Bundle{
		TableRates:   sheet.FromRecords("rates", []string{"Vendedor"}, [][]string{{"Ana"}}),
		TableSellers: sheet.FromRecords("sellers", []string{"Nome Do Vendedor"}, [][]string{{"Ana"}, {"Bruno"}}),
	}
	rows, err := Mirror(context.Background(), tx, bundle)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	// header upsert then row delete, per table, sellers first
	assert.Equal(t, []string{"sellers", "sellers", "rates", "rates"}, tx.execs)
	assert.Equal(t, map[string]int{"sellers": 2, "rates": 1}, tx.batched)
}
