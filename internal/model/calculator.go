package model

import "math"

// BarEstimate holds the results of a stock purchasing calculation.
type BarEstimate struct {
	TotalPieceLength int     `json:"total_piece_length"` // Sum of length*quantity over all pieces (mm)
	StockLength      int     `json:"stock_length"`       // Length of one bar (mm)
	BarsNeededExact  float64 `json:"bars_needed_exact"`  // Exact fractional number of bars
	LowerBound       int     `json:"lower_bound"`        // No plan can use fewer bars than this
	BarsWithWaste    int     `json:"bars_with_waste"`    // Recommended order including waste factor
	WastePercent     float64 `json:"waste_percent"`      // Waste factor applied (e.g., 10 for 10%)
	EstimatedCost    float64 `json:"estimated_cost"`     // Total cost if pricing available
	PricePerBar      float64 `json:"price_per_bar"`      // Price used for estimation
}

// CalculateBarEstimate computes the material lower bound ceil(Σ len*qty / L)
// and a padded order quantity for a cut list.
func CalculateBarEstimate(pieces []PieceType, stockLength int, wastePercent, pricePerBar float64) BarEstimate {
	total := TotalLength(pieces)
	if stockLength <= 0 {
		return BarEstimate{
			TotalPieceLength: total,
			WastePercent:     wastePercent,
			PricePerBar:      pricePerBar,
		}
	}

	exact := float64(total) / float64(stockLength)
	lower := (total + stockLength - 1) / stockLength

	wasteFactor := 1.0 + (wastePercent / 100.0)
	withWaste := int(math.Ceil(exact * wasteFactor))
	if withWaste < lower {
		withWaste = lower
	}

	return BarEstimate{
		TotalPieceLength: total,
		StockLength:      stockLength,
		BarsNeededExact:  exact,
		LowerBound:       lower,
		BarsWithWaste:    withWaste,
		WastePercent:     wastePercent,
		EstimatedCost:    float64(withWaste) * pricePerBar,
		PricePerBar:      pricePerBar,
	}
}

// HomogeneousBarBound returns Σ ceil(q_i / floor(L/len_i)), the bar count
// of the plan that cuts each piece type on its own bars. It is an upper
// bound on the optimum and enough bar slots for any feasible model. It
// returns 0 when some demanded piece does not fit the stock.
func HomogeneousBarBound(pieces []PieceType, stockLength int) int {
	bars := 0
	for _, p := range pieces {
		if p.Quantity <= 0 {
			continue
		}
		if p.Length <= 0 || p.Length > stockLength {
			return 0
		}
		perBar := stockLength / p.Length
		bars += (p.Quantity + perBar - 1) / perBar
	}
	return bars
}
