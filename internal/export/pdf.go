// Package export provides functionality for exporting cutting plans
// to various file formats.
package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/BarCut/internal/model"
)

// pieceColor represents an RGB color for a piece type.
type pieceColor struct {
	R, G, B int
}

// pieceColors is indexed by piece type, wrapping around.
var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	barHeight    = 22.0
	drawAreaTop  = marginTop + headerHeight + 12.0
	rowHeight    = 6.0
)

// ExportPDF writes the best cutting plan of a result as a PDF document.
// Each distinct pattern is rendered on its own page with a bar diagram,
// followed by a summary page with overall statistics.
func ExportPDF(path string, result model.OptimizeResult) error {
	pdf, err := buildPDF(result)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// WritePDF is ExportPDF writing to w instead of a file.
func WritePDF(w io.Writer, result model.OptimizeResult) error {
	pdf, err := buildPDF(result)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func buildPDF(result model.OptimizeResult) (*fpdf.Fpdf, error) {
	best := result.Best()
	if len(best.Plan) == 0 {
		return nil, fmt.Errorf("no cutting plan to export")
	}
	if result.StockLength <= 0 {
		return nil, fmt.Errorf("invalid stock length %d", result.StockLength)
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for i, use := range best.Plan {
		pdf.AddPage()
		renderPatternPage(pdf, result, use, i+1)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, result)
	return pdf, pdf.Error()
}

// renderPatternPage draws one pattern as a scaled bar with its cuts.
func renderPatternPage(pdf *fpdf.Fpdf, result model.OptimizeResult, use model.PatternUse, patternNum int) {
	pieces := result.Pieces
	stock := float64(result.StockLength)
	used := use.Pattern.UsedLength(pieces)
	waste := use.Pattern.Waste(result.StockLength, pieces)

	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Pattern %d: %s", patternNum, use.Pattern.Describe(pieces))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	// Stats line
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Cut %d bars | Pieces per bar: %d | Used: %d mm of %d mm | Waste per bar: %d mm | Efficiency: %.1f%%",
		use.Uses, use.Pattern.Cuts(), used, result.StockLength, waste, 100*float64(used)/stock)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	scale := drawWidth / stock
	offsetX := marginLeft
	offsetY := drawAreaTop

	// Raw bar
	pdf.SetFillColor(220, 220, 220)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, drawWidth, barHeight, "FD")

	// Pieces, in piece list order from the left end
	x := offsetX
	for i, count := range use.Pattern {
		col := pieceColors[i%len(pieceColors)]
		w := float64(pieces[i].Length) * scale
		for c := 0; c < count; c++ {
			pdf.SetFillColor(col.R, col.G, col.B)
			pdf.SetDrawColor(30, 30, 30)
			pdf.SetLineWidth(0.3)
			pdf.Rect(x, offsetY, w, barHeight, "FD")

			label := fmt.Sprintf("%d", pieces[i].Length)
			pdf.SetFont("Helvetica", "", 7)
			pdf.SetTextColor(0, 0, 0)
			if lw := pdf.GetStringWidth(label); lw < w-1 {
				pdf.SetXY(x+(w-lw)/2, offsetY+barHeight/2-2)
				pdf.CellFormat(lw, 4, label, "", 0, "C", false, 0, "")
			}
			x += w
		}
	}

	// Remnant
	if waste > 0 {
		drawHatchPattern(pdf, x, offsetY, offsetX+drawWidth-x, barHeight)
	}

	drawLengthAnnotation(pdf, result.StockLength, offsetX, offsetY+barHeight+1, drawWidth)
	drawCutList(pdf, result, use, offsetY+barHeight+10)
}

// drawHatchPattern draws diagonal lines inside a rectangle to mark waste.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	if w <= 0 {
		return
	}
	pdf.SetDrawColor(120, 120, 120)
	pdf.SetLineWidth(0.15)

	spacing := 3.0
	for d := spacing; d < w+h; d += spacing {
		x1 := x + max(0, d-h)
		y1 := y + min(h, d)
		x2 := x + min(w, d)
		y2 := y + max(0, d-w)
		pdf.Line(x1, y1, x2, y2)
	}
}

// drawLengthAnnotation labels the stock length below the bar.
func drawLengthAnnotation(pdf *fpdf.Fpdf, stockLength int, x, y, w float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)
	label := fmt.Sprintf("%d mm", stockLength)
	lw := pdf.GetStringWidth(label)
	pdf.SetXY(x+(w-lw)/2, y)
	pdf.CellFormat(lw, 4, label, "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// drawCutList renders the per-piece counts of one pattern as a table.
func drawCutList(pdf *fpdf.Fpdf, result model.OptimizeResult, use model.PatternUse, y float64) {
	colWidths := []float64{10, 70, 40, 40, 40}
	headers := []string{"", "Piece", "Length", "Per Bar", "Total"}
	y = drawTableHeader(pdf, y, colWidths, headers)

	pdf.SetFont("Helvetica", "", 9)
	row := 0
	for i, count := range use.Pattern {
		if count == 0 {
			continue
		}
		p := result.Pieces[i]
		cells := []string{
			"",
			pieceLabel(p, i),
			fmt.Sprintf("%d mm", p.Length),
			fmt.Sprintf("%d", count),
			fmt.Sprintf("%d", count*use.Uses),
		}
		y = drawTableRow(pdf, y, colWidths, cells, row)

		col := pieceColors[i%len(pieceColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(marginLeft+3, y-rowHeight+1.5, 3, 3, "F")
		row++
	}
}

// renderSummaryPage draws the final summary page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, result model.OptimizeResult) {
	best := result.Best()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	title := "Cutting Plan Summary"
	if result.JobName != "" {
		title += ": " + result.JobName
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, title, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := sectionTitle(pdf, marginTop+18, "Overall Statistics")

	summaryItems := []struct {
		label string
		value string
	}{
		{"Stock Length", fmt.Sprintf("%d mm", result.StockLength)},
		{"Bars Used", fmt.Sprintf("%d (lower bound %d)", best.Bars, result.Estimate.LowerBound)},
		{"Distinct Patterns", fmt.Sprintf("%d (initial %d)", best.Patterns, result.Initial.Patterns)},
		{"Total Waste", fmt.Sprintf("%d mm", best.Waste)},
		{"Efficiency", fmt.Sprintf("%.1f%%", result.Efficiency())},
		{"Excess Cut Length", fmt.Sprintf("%d mm", best.ExcessLength)},
		{"Initial Packing", fmt.Sprintf("%d bars, %s", result.Initial.Bars, result.Initial.Status)},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(80, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	// Pattern table
	y = sectionTitle(pdf, ensureSpace(pdf, y+5, 20), "Patterns")
	colWidths := []float64{15, 130, 25, 35, 35}
	y = drawTableHeader(pdf, y, colWidths, []string{"#", "Pattern", "Bars", "Waste / Bar", "Efficiency"})
	pdf.SetFont("Helvetica", "", 9)
	for i, use := range best.Plan {
		y = ensureSpace(pdf, y, rowHeight)
		used := use.Pattern.UsedLength(result.Pieces)
		y = drawTableRow(pdf, y, colWidths, []string{
			fmt.Sprintf("%d", i+1),
			use.Pattern.Describe(result.Pieces),
			fmt.Sprintf("%d", use.Uses),
			fmt.Sprintf("%d mm", use.Pattern.Waste(result.StockLength, result.Pieces)),
			fmt.Sprintf("%.1f%%", 100*float64(used)/float64(result.StockLength)),
		}, i)
	}

	// Demand table
	y = sectionTitle(pdf, ensureSpace(pdf, y+5, 20), "Demand")
	colWidths = []float64{70, 35, 35, 35, 35}
	y = drawTableHeader(pdf, y, colWidths, []string{"Piece", "Length", "Required", "Produced", "Excess"})
	pdf.SetFont("Helvetica", "", 9)
	for i, p := range result.Pieces {
		y = ensureSpace(pdf, y, rowHeight)
		y = drawTableRow(pdf, y, colWidths, []string{
			pieceLabel(p, i),
			fmt.Sprintf("%d mm", p.Length),
			fmt.Sprintf("%d", p.Quantity),
			fmt.Sprintf("%d", at(best.Produced, i)),
			fmt.Sprintf("%d", at(best.Excess, i)),
		}, i)
	}

	if missing := result.UnplacedCount(); missing > 0 {
		y = ensureSpace(pdf, y+6, 8)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, fmt.Sprintf("WARNING: %d required pieces are not produced", missing), "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		y += 8
	}

	// Refinement steps
	if len(result.Refined.Steps) > 0 {
		y = sectionTitle(pdf, ensureSpace(pdf, y+5, 20), "Pattern Limit Steps")
		colWidths = []float64{25, 35, 25, 30, 30, 25}
		y = drawTableHeader(pdf, y, colWidths, []string{"k", "Status", "Bars", "Patterns", "Waste", "Best"})
		pdf.SetFont("Helvetica", "", 9)
		for i, step := range result.Refined.Steps {
			y = ensureSpace(pdf, y, rowHeight)
			accepted := ""
			if step.Accepted {
				accepted = "*"
			}
			y = drawTableRow(pdf, y, colWidths, []string{
				fmt.Sprintf("%d", step.K),
				step.Status.String(),
				fmt.Sprintf("%d", step.Bars),
				fmt.Sprintf("%d", step.Patterns),
				fmt.Sprintf("%d", step.Waste),
				accepted,
			}, i)
		}
	}

	// Settings
	y = sectionTitle(pdf, ensureSpace(pdf, y+8, 30), "Solver Settings")
	settingsItems := []struct {
		label string
		value string
	}{
		{"Demand Policy", string(result.Settings.DemandPolicy)},
		{"Bar Slots", fmt.Sprintf("%d", result.MaxBars)},
		{"Big-M", fmt.Sprintf("%d", result.BigM)},
		{"Timeout per Solve", fmt.Sprintf("%.0f s", result.Settings.SolveTimeoutSec)},
		{"Solve Time", fmt.Sprintf("%d ms", result.ElapsedMS)},
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	// Footer
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by BarCut - Cutting Stock Optimizer", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func sectionTitle(pdf *fpdf.Fpdf, y float64, title string) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, title, "", 0, "L", false, 0, "")
	return y + 9
}

func drawTableHeader(pdf *fpdf.Fpdf, y float64, colWidths []float64, headers []string) float64 {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	x := marginLeft
	for i, header := range headers {
		pdf.SetXY(x, y)
		pdf.CellFormat(colWidths[i], rowHeight, header, "1", 0, "C", true, 0, "")
		x += colWidths[i]
	}
	return y + rowHeight
}

func drawTableRow(pdf *fpdf.Fpdf, y float64, colWidths []float64, cells []string, row int) float64 {
	// Alternate row background
	if row%2 == 0 {
		pdf.SetFillColor(245, 245, 245)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	x := marginLeft
	for i, cell := range cells {
		pdf.SetXY(x, y)
		pdf.CellFormat(colWidths[i], rowHeight, cell, "1", 0, "C", true, 0, "")
		x += colWidths[i]
	}
	return y + rowHeight
}

// ensureSpace starts a new page when h mm do not fit below y.
func ensureSpace(pdf *fpdf.Fpdf, y, h float64) float64 {
	if y+h <= pageHeight-marginBottom-6 {
		return y
	}
	pdf.AddPage()
	return marginTop
}

func pieceLabel(p model.PieceType, i int) string {
	if p.Label != "" {
		return p.Label
	}
	return fmt.Sprintf("Piece %d", i+1)
}

func at(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}
