// Package google exports summaries and alerts to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"sismobi/internal/core"
	applog "sismobi/internal/log"
	ports "sismobi/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and credentials. Sheet names get the
// current year prepended unless they already start with one.
type Config struct {
	SpreadsheetID      string
	SummarySheet       string
	AlertsSheet        string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string
	alertsSheet   string
	logger        *applog.Logger
}

var _ ports.Exporter = (*Exporter)(nil)

// NewExporter creates an exporter authenticated with a service account.
func NewExporter(ctx context.Context, cfg Config, logger *applog.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)

	year := time.Now().Year()
	return &Exporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		summarySheet:  yearPrefixedName(defaultString(cfg.SummarySheet, "Resumo"), year),
		alertsSheet:   yearPrefixedName(defaultString(cfg.AlertsSheet, "Alertas"), year),
		logger:        logger,
	}, nil
}

// credentials picks inline JSON, then a file, then GOOGLE_APPLICATION_CREDENTIALS.
func credentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.ServiceAccountJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.ServiceAccountFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling and timeouts
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendSummary appends a row: period, income, expenses, net, occupancy, properties, rented, ROI.
func (e *Exporter) AppendSummary(ctx context.Context, period string, s core.FinancialSummary) (string, error) {
	return e.append(ctx, e.summarySheet, "A:H", [][]any{summaryRow(period, s)})
}

// AppendAlerts appends one row per alert: id, type, category, title, message, property, date.
func (e *Exporter) AppendAlerts(ctx context.Context, alerts []core.Alert) (string, error) {
	if len(alerts) == 0 {
		return "", nil
	}
	return e.append(ctx, e.alertsSheet, "A:G", alertRows(alerts))
}

func (e *Exporter) append(ctx context.Context, sheet, cols string, rows [][]any) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Rows appended", "sheet", sheet, "rows", len(rows), "range", ref)
	return ref, nil
}

func summaryRow(period string, s core.FinancialSummary) []any {
	return []any{
		period,
		round2(s.TotalIncome),
		round2(s.TotalExpenses),
		round2(s.NetIncome),
		round2(s.OccupancyRate),
		s.TotalProperties,
		s.RentedProperties,
		round2(s.MonthlyROI),
	}
}

func alertRows(alerts []core.Alert) [][]any {
	rows := make([][]any, 0, len(alerts))
	for _, a := range alerts {
		date := ""
		if a.CreatedAt.Valid() {
			date = a.CreatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []any{a.ID, string(a.Type), string(a.Category), a.Title, a.Message, a.PropertyID, date})
	}
	return rows
}

// round2 rounds for display only; the engine never rounds.
func round2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
