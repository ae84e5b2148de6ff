package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Glebrito/Analisediaria/internal/sheet"
)

// DefaultSheetsBaseURL is the public Google Docs host.
const DefaultSheetsBaseURL = "https://docs.google.com"

// SheetRef locates one worksheet. GID wins over Tab when set.
type SheetRef struct {
	Spreadsheet string
	Tab         string
	GID         string
}

// SheetsConfig configures the Google Sheets provider.
type SheetsConfig struct {
	BaseURL               string
	SalesSpreadsheet      string
	RatesSpreadsheet      string
	CommissionSpreadsheet string
	ThirdPartyServicesGID string
	Timeout               time.Duration
}

// SheetsProvider reads worksheets through the gviz CSV export.
type SheetsProvider struct {
	baseURL    string
	refs       map[TableName]SheetRef
	httpClient *http.Client
}

// NewSheetsProvider maps each table to its spreadsheet. Sellers, sales,
// passengers, daily targets and the service list live in the sales
// spreadsheet; rates and commission detail in the rates one unless a
// commission spreadsheet is given.
func NewSheetsProvider(cfg SheetsConfig, client *http.Client) *SheetsProvider {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultSheetsBaseURL
	}
	commissionID := cfg.CommissionSpreadsheet
	if commissionID == "" {
		commissionID = cfg.RatesSpreadsheet
	}
	refs := map[TableName]SheetRef{
		TableSellers:            {Spreadsheet: cfg.SalesSpreadsheet, Tab: TableSellers.Tab()},
		TableSales:              {Spreadsheet: cfg.SalesSpreadsheet, Tab: TableSales.Tab()},
		TablePassengers:         {Spreadsheet: cfg.SalesSpreadsheet, Tab: TablePassengers.Tab()},
		TableDailyTargets:       {Spreadsheet: cfg.SalesSpreadsheet, Tab: TableDailyTargets.Tab()},
		TableThirdPartyServices: {Spreadsheet: cfg.SalesSpreadsheet, Tab: TableThirdPartyServices.Tab(), GID: cfg.ThirdPartyServicesGID},
		TableRates:              {Spreadsheet: cfg.RatesSpreadsheet, Tab: TableRates.Tab()},
		TableCommissions:        {Spreadsheet: commissionID, Tab: TableCommissions.Tab()},
	}
	return &SheetsProvider{baseURL: base, refs: refs, httpClient: client}
}

// URL returns the CSV export address of a table.
func (p *SheetsProvider) URL(name TableName) (string, error) {
	ref, ok := p.refs[name]
	if !ok || ref.Spreadsheet == "" {
		return "", fmt.Errorf("source: no spreadsheet configured for %s", name)
	}
	query := url.Values{}
	query.Set("tqx", "out:csv")
	if ref.GID != "" {
		query.Set("gid", ref.GID)
	} else {
		query.Set("sheet", ref.Tab)
	}
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?%s", p.baseURL, url.PathEscape(ref.Spreadsheet), query.Encode()), nil
}

// Fetch downloads and parses one worksheet.
func (p *SheetsProvider) Fetch(ctx context.Context, name TableName) (sheet.Table, error) {
	target, err := p.URL(name)
	if err != nil {
		return sheet.Table{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return sheet.Table{}, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return sheet.Table{}, fmt.Errorf("source: fetch %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return sheet.Table{}, fmt.Errorf("source: fetch %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return ReadCSV(string(name), resp.Body)
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses a CSV stream whose first record is the header row.
func ReadCSV(name string, r io.Reader) (sheet.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return sheet.Table{}, fmt.Errorf("source: parse %s: %w", name, err)
	}
	if len(records) == 0 {
		return sheet.Table{Name: name}, nil
	}
	return sheet.FromRecords(name, records[0], records[1:]), nil
}
