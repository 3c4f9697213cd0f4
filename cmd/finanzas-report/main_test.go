package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"finanzas/internal/finance"
)

func TestPrintTable(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	header := []string{"Concepto", "Ene 2026", "Feb 2026"}
	rows := [][]any{
		{"Salario (USD)", 1500.0, 1500.5},
		{"Neto", 1200.0, -30.456},
	}

	if err := printTable(&buf, header, rows, []finance.RowKind{finance.RowConcept, finance.RowDerived}); err != nil {
		t.Fatalf("printTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "Concepto") || !strings.Contains(lines[0], "Feb 2026") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1500.50") {
		t.Errorf("amounts not formatted with two decimals: %q", lines[1])
	}
	if !strings.Contains(lines[2], "-30.46") {
		t.Errorf("negative amount not rounded: %q", lines[2])
	}

	// Columns are aligned, so every line has the same width.
	for _, l := range lines[1:] {
		if len(l) != len(lines[0]) {
			t.Errorf("line %q width %d, want %d", l, len(l), len(lines[0]))
		}
	}
}

func TestStyleFor(t *testing.T) {
	kinds := []finance.RowKind{finance.RowConcept, finance.RowTotal, finance.RowDerived}

	if styleFor(0, kinds) != headerStyle {
		t.Error("header line not styled as header")
	}
	if styleFor(1, kinds) != nil {
		t.Error("concept rows are printed plain")
	}
	if styleFor(2, kinds) != totalStyle || styleFor(3, kinds) != derivedStyle {
		t.Error("total and derived rows use their own styles")
	}
	if styleFor(9, kinds) != nil {
		t.Error("lines past the known kinds are printed plain")
	}
}
