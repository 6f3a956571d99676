package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/BarCut/internal/model"
)

// DXF layer names.
const (
	LayerBars  = "BARS"
	LayerCuts  = "CUTS"
	LayerWaste = "WASTE"
	LayerText  = "TEXT"
)

const (
	dxfBarHeight = 50.0  // drawing units (mm) per bar outline
	dxfRowGap    = 100.0 // vertical distance between pattern rows
	dxfTextSize  = 20.0
)

// ExportDXF draws each distinct pattern of the best plan as a bar outline
// at true length, with a cut line after every piece, so the layout can be
// loaded into saw or CAM software. Patterns are stacked top to bottom.
func ExportDXF(path string, result model.OptimizeResult) error {
	best := result.Best()
	if len(best.Plan) == 0 {
		return fmt.Errorf("no cutting plan to export")
	}

	d := dxf.NewDrawing()
	for _, layer := range []struct {
		name string
		col  color.ColorNumber
	}{
		{LayerBars, dxf.DefaultColor},
		{LayerCuts, color.Red},
		{LayerWaste, dxf.DefaultColor},
		{LayerText, color.Blue},
	} {
		if _, err := d.AddLayer(layer.name, layer.col, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", layer.name, err)
		}
	}

	stock := float64(result.StockLength)
	for i, use := range best.Plan {
		y := -float64(i) * dxfRowGap

		if err := d.ChangeLayer(LayerBars); err != nil {
			return err
		}
		if err := rect(d, 0, y, stock, dxfBarHeight); err != nil {
			return err
		}

		if err := d.ChangeLayer(LayerCuts); err != nil {
			return err
		}
		x := 0.0
		for j, count := range use.Pattern {
			for c := 0; c < count; c++ {
				x += float64(result.Pieces[j].Length)
				if x >= stock {
					continue
				}
				if _, err := d.Line(x, y, 0, x, y+dxfBarHeight, 0); err != nil {
					return fmt.Errorf("failed to draw cut: %w", err)
				}
			}
		}

		if x < stock {
			if err := d.ChangeLayer(LayerWaste); err != nil {
				return err
			}
			if _, err := d.Line(x, y, 0, stock, y+dxfBarHeight, 0); err != nil {
				return fmt.Errorf("failed to mark waste: %w", err)
			}
		}

		if err := d.ChangeLayer(LayerText); err != nil {
			return err
		}
		label := fmt.Sprintf("P%d x%d: %s", i+1, use.Uses, use.Pattern.Describe(result.Pieces))
		if _, err := d.Text(label, 0, y+dxfBarHeight+5, 0, dxfTextSize); err != nil {
			return fmt.Errorf("failed to write label: %w", err)
		}
	}

	return d.SaveAs(path)
}

func rect(d *drawing.Drawing, x, y, w, h float64) error {
	corners := [][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		if _, err := d.Line(a[0], a[1], 0, b[0], b[1], 0); err != nil {
			return fmt.Errorf("failed to draw bar outline: %w", err)
		}
	}
	return nil
}
