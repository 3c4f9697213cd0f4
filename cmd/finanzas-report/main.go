// Command finanzas-report prints the P&L report of a profile or exports it
// to the configured Google spreadsheet.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"finanzas/internal/cli"
	"finanzas/internal/core"
	"finanzas/internal/finance"
	"finanzas/internal/services"
)

func main() {
	year := time.Now().Year()
	granularity := flag.String("granularity", string(core.Monthly), "daily, weekly, monthly or yearly")
	start := flag.String("start", fmt.Sprintf("%d-01-01", year), "first day of the report (YYYY-MM-DD)")
	end := flag.String("end", fmt.Sprintf("%d-12-31", year), "last day of the report (YYYY-MM-DD)")
	profile := flag.String("profile", "", "profile id (defaults to PROFILE_ID)")
	export := flag.Bool("export", false, "write the report to Google Sheets instead of stdout")
	flag.Parse()

	cfg, logger := cli.Bootstrap("finanzas-report")
	if *profile == "" {
		*profile = cfg.ProfileID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	be := cli.InitBackend(ctx, logger.Logger, cfg)
	defer func() {
		if be.Cleanup != nil {
			_ = be.Cleanup()
		}
	}()

	var reports *services.ReportService
	if *export {
		exporter := cli.InitExporter(ctx, logger.Logger, cfg)
		if exporter == nil {
			logger.Error("Export requested but Google Sheets is not configured")
			os.Exit(1)
		}
		reports = services.NewReportService(be.Store, exporter, services.DefaultReportConfig())
	} else {
		reports = services.NewReportService(be.Store, nil, services.DefaultReportConfig())
	}

	g := core.Granularity(*granularity)
	if *export {
		ref, err := reports.Export(ctx, *profile, g, *start, *end)
		if err != nil {
			logger.Error("Report export failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(ref)
		return
	}

	m, err := reports.Report(ctx, *profile, g, *start, *end)
	if err != nil {
		logger.Error("Report failed", "error", err)
		os.Exit(1)
	}
	header, rows := services.ReportTable(m)
	kinds := make([]finance.RowKind, 0, len(rows))
	for _, r := range m.Rows() {
		kinds = append(kinds, r.Kind)
	}
	if err := printTable(os.Stdout, header, rows, kinds); err != nil {
		logger.Error("Failed to print report", "error", err)
		os.Exit(1)
	}
}

var (
	headerStyle  = color.New(color.Bold, color.Underline)
	totalStyle   = color.New(color.Bold)
	derivedStyle = color.New(color.FgCyan, color.Bold)
)

// printTable writes the report as aligned columns with two-decimal amounts.
// Lines are styled by row kind once aligned; styling is dropped when stdout
// is not a terminal.
func printTable(out io.Writer, header []string, rows [][]any, kinds []finance.RowKind) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if v, ok := cell.(float64); ok {
				cells[i] = core.FormatAmount(v)
			} else {
				cells[i] = fmt.Sprint(cell)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	for i, line := range lines {
		style := styleFor(i, kinds)
		if style != nil {
			line = style.Sprint(line)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

// styleFor returns the style of output line i; line 0 is the header.
func styleFor(i int, kinds []finance.RowKind) *color.Color {
	if i == 0 {
		return headerStyle
	}
	if i-1 >= len(kinds) {
		return nil
	}
	switch kinds[i-1] {
	case finance.RowTotal:
		return totalStyle
	case finance.RowDerived:
		return derivedStyle
	}
	return nil
}
