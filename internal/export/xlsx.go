package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/BarCut/internal/model"
)

// Workbook sheet names.
const (
	SheetPlan   = "Plan"
	SheetDemand = "Demand"
	SheetSteps  = "Steps"
)

// ExportXLSX writes the best cutting plan of a result as an Excel workbook
// with the sheets Plan, Demand and Steps.
func ExportXLSX(path string, result model.OptimizeResult) error {
	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// WriteXLSX is ExportXLSX writing to w instead of a file.
func WriteXLSX(w io.Writer, result model.OptimizeResult) error {
	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func buildWorkbook(result model.OptimizeResult) (*excelize.File, error) {
	best := result.Best()
	if len(best.Plan) == 0 {
		return nil, fmt.Errorf("no cutting plan to export")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetPlan); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetDemand, SheetSteps} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	writers := []func(*excelize.File, model.OptimizeResult, int) error{
		writePlanSheet, writeDemandSheet, writeStepsSheet,
	}
	for _, write := range writers {
		if err := write(f, result, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write workbook: %w", err)
		}
	}
	return f, nil
}

// writePlanSheet writes one row per pattern with a column per piece type.
func writePlanSheet(f *excelize.File, result model.OptimizeResult, bold int) error {
	header := []interface{}{"Pattern", "Bars", "Used (mm)", "Waste (mm)"}
	for i, p := range result.Pieces {
		header = append(header, fmt.Sprintf("%s (%d)", pieceLabel(p, i), p.Length))
	}
	if err := writeHeader(f, SheetPlan, header, bold); err != nil {
		return err
	}

	best := result.Best()
	for r, use := range best.Plan {
		row := []interface{}{
			r + 1,
			use.Uses,
			use.Pattern.UsedLength(result.Pieces),
			use.Pattern.Waste(result.StockLength, result.Pieces),
		}
		for _, count := range use.Pattern {
			row = append(row, count)
		}
		if err := setRow(f, SheetPlan, r+2, row); err != nil {
			return err
		}
	}

	total := []interface{}{"Total", best.Bars, best.Bars*result.StockLength - best.Waste, best.Waste}
	if err := setRow(f, SheetPlan, len(best.Plan)+3, total); err != nil {
		return err
	}
	return f.SetColWidth(SheetPlan, "A", "D", 12)
}

func writeDemandSheet(f *excelize.File, result model.OptimizeResult, bold int) error {
	header := []interface{}{"Piece", "Length (mm)", "Required", "Produced", "Excess"}
	if err := writeHeader(f, SheetDemand, header, bold); err != nil {
		return err
	}

	best := result.Best()
	for i, p := range result.Pieces {
		row := []interface{}{pieceLabel(p, i), p.Length, p.Quantity, at(best.Produced, i), at(best.Excess, i)}
		if err := setRow(f, SheetDemand, i+2, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetDemand, "A", "A", 24)
}

func writeStepsSheet(f *excelize.File, result model.OptimizeResult, bold int) error {
	header := []interface{}{"Phase", "k", "Status", "Bars", "Patterns", "Waste (mm)", "Best"}
	if err := writeHeader(f, SheetSteps, header, bold); err != nil {
		return err
	}

	initial := result.Initial
	if err := setRow(f, SheetSteps, 2, []interface{}{
		"initial", "", initial.Status.String(), initial.Bars, initial.Patterns, initial.Waste, "",
	}); err != nil {
		return err
	}
	for i, step := range result.Refined.Steps {
		accepted := ""
		if step.Accepted {
			accepted = "yes"
		}
		row := []interface{}{"refine", step.K, step.Status.String(), step.Bars, step.Patterns, step.Waste, accepted}
		if err := setRow(f, SheetSteps, i+3, row); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
