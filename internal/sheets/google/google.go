package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/ports"
)

// clearRange covers every column a report can reasonably use.
const clearRange = "A:ZZ"

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// Exporter writes P&L tables to a tab of a Google spreadsheet. The tab is
// created on first use and overwritten by every export.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Tabs known to exist, so repeated exports skip the metadata call.
	mu                 sync.Mutex
	knownSheets        map[string]time.Time
	cacheValidDuration time.Duration
	now                func() time.Time
}

var _ ports.ReportExporter = (*Exporter)(nil)

// NewExporter authenticates with a service account and returns an exporter
// for cfg.SpreadsheetID.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName)
	return NewExporterWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewExporterWithService wraps an already configured Sheets service.
func NewExporterWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Exporter {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "PyG"
	}
	return &Exporter{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		knownSheets:        map[string]time.Time{},
		cacheValidDuration: 10 * time.Minute,
		now:                time.Now,
	}
}

// loadCredentials returns the service account key, preferring inline JSON
// over a file and falling back to GOOGLE_APPLICATION_CREDENTIALS.
func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// ExportReport replaces the content of the report tab with a title row, a
// blank row, the header and the data rows. It returns the updated range.
func (e *Exporter) ExportReport(ctx context.Context, title string, header []string, rows [][]any) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(header) == 0 {
		return "", errors.New("report has no header")
	}

	if err := e.ensureSheet(ctx, e.sheetName); err != nil {
		return "", err
	}

	_, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, a1(e.sheetName, clearRange), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}

	values := make([][]any, 0, len(rows)+3)
	values = append(values, []any{title}, []any{})
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	values = append(values, hdr)
	values = append(values, rows...)

	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, a1(e.sheetName, "A1"), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write sheet %s: %w", e.sheetName, err)
	}

	ref := resp.UpdatedRange
	if ref == "" {
		ref = a1(e.sheetName, fmt.Sprintf("A1:%s%d", columnName(len(header)), len(values)))
	}
	slog.InfoContext(ctx, "Report written to Google Sheets", "range", ref, "rows", len(rows))
	return ref, nil
}

// ensureSheet creates the tab when the spreadsheet does not have it yet.
func (e *Exporter) ensureSheet(ctx context.Context, name string) error {
	e.mu.Lock()
	checked, ok := e.knownSheets[name]
	e.mu.Unlock()
	if ok && e.now().Sub(checked) < e.cacheValidDuration {
		return nil
	}

	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet metadata: %w", err)
	}

	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			exists = true
			break
		}
	}

	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
			}},
		}
		if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		slog.InfoContext(ctx, "Created report sheet", "sheet", name)
	}

	e.mu.Lock()
	e.knownSheets[name] = e.now()
	e.mu.Unlock()
	return nil
}

// a1 builds an A1 range, quoting the sheet name.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

// columnName converts a 1-based column number to its letters (1 -> A, 27 -> AA).
func columnName(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
