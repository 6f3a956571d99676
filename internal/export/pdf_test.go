package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/BarCut/internal/milp"
	"github.com/piwi3910/BarCut/internal/model"
)

// buildTestResult creates a realistic two-pattern result: 4x 50 mm and
// 3x 30 mm pieces from 100 mm bars.
func buildTestResult() model.OptimizeResult {
	pieces := []model.PieceType{
		{ID: "p1", Label: "Rail", Length: 50, Quantity: 4},
		{ID: "p2", Label: "Post", Length: 30, Quantity: 3},
	}
	best := model.PhaseReport{
		Status: milp.StatusOptimal,
		Plan: model.Plan{
			{Pattern: model.Pattern{2, 0}, Uses: 2},
			{Pattern: model.Pattern{0, 3}, Uses: 1},
		},
		Bars:     3,
		Patterns: 2,
		Waste:    10,
		Produced: []int{4, 3},
		Excess:   []int{0, 0},
	}
	return model.OptimizeResult{
		ID:          "run1",
		JobName:     "Frame",
		StockLength: 100,
		Pieces:      pieces,
		Settings:    model.DefaultSettings(),
		MaxBars:     4,
		BigM:        7,
		Initial:     best,
		Refined: model.RefineReport{
			Best: &best,
			MinK: 2,
			Steps: []model.RefineStep{
				{K: 2, Status: milp.StatusOptimal, Bars: 3, Patterns: 2, Waste: 10, Accepted: true},
				{K: 1, Status: milp.StatusInfeasible},
			},
			Stopped:    true,
			StopStatus: milp.StatusInfeasible,
		},
		Estimate: model.BarEstimate{LowerBound: 3},
	}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_output.pdf")

	err := ExportPDF(path, buildTestResult())
	if err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("PDF file is empty")
	}
	// A valid PDF with 3 pages (2 patterns + summary) should be a reasonable size
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestExportPDF_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportPDF(path, model.OptimizeResult{StockLength: 100})
	if err == nil {
		t.Fatal("expected error for empty result, got nil")
	}
}

func TestExportPDF_FallsBackToInitialPlan(t *testing.T) {
	result := buildTestResult()
	result.Refined = model.RefineReport{}

	var buf bytes.Buffer
	if err := WritePDF(&buf, result); err != nil {
		t.Fatalf("WritePDF returned error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output does not look like a PDF")
	}
}

func TestExportPDF_WithUnproducedPieces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unplaced.pdf")

	result := buildTestResult()
	result.Pieces = append(result.Pieces, model.PieceType{ID: "p3", Label: "Brace", Length: 70, Quantity: 2})

	if err := ExportPDF(path, result); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
}

func TestExportPDF_ManyPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many.pdf")

	// Enough piece types and patterns to overflow the summary page.
	var pieces []model.PieceType
	var plan model.Plan
	for i := 0; i < 30; i++ {
		pieces = append(pieces, model.PieceType{Label: fmt.Sprintf("P%d", i), Length: 10 + i, Quantity: 1})
	}
	for i := range pieces {
		pat := make(model.Pattern, len(pieces))
		pat[i] = 1
		plan = append(plan, model.PatternUse{Pattern: pat, Uses: 1})
	}
	best := model.PhaseReport{Plan: plan, Bars: len(plan), Patterns: len(plan)}
	result := model.OptimizeResult{StockLength: 100, Pieces: pieces, Initial: best}

	if err := ExportPDF(path, result); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
}

func TestExportPDF_InvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.pdf")
	if err := ExportPDF(path, buildTestResult()); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
