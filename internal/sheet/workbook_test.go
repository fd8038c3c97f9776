package sheet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet %q: %v", name, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			vals := make([]any, len(row))
			for j, v := range row {
				vals[j] = v
			}
			if err := f.SetSheetRow(name, cell, &vals); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "festivals.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestWorkbookSource_Fetch(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"EUROPE": {
			{"Festival Name", "MM", "2025"},
			{"Impro Amsterdam", "6", "June 20-25"},
		},
	})

	src, err := NewWorkbookSource(path)
	if err != nil {
		t.Fatalf("NewWorkbookSource: %v", err)
	}

	rows, err := src.Fetch(context.Background(), "EUROPE")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows want=2 got=%d", len(rows))
	}
	if rows[1][0] != "Impro Amsterdam" || rows[1][2] != "June 20-25" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestWorkbookSource_MissingTab(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"EUROPE": {{"Festival Name"}},
	})
	src, _ := NewWorkbookSource(path)

	_, err := src.Fetch(context.Background(), "ASIA")
	if err == nil {
		t.Fatalf("expected error for missing tab")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("missing tab must be ErrUnavailable, got %v", err)
	}
}

func TestQuoteSheetName(t *testing.T) {
	t.Parallel()

	if got := quoteSheetName("AUSTRALASIA/PACIFIC"); got != "'AUSTRALASIA/PACIFIC'" {
		t.Fatalf("unexpected range: %s", got)
	}
	if got := quoteSheetName("Bob's"); got != "'Bob''s'" {
		t.Fatalf("unexpected range: %s", got)
	}
}
