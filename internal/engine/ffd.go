package engine

import (
	"sort"

	"github.com/piwi3910/BarCut/internal/model"
)

// firstFitDecreasing packs exactly the demanded pieces, longest first, each
// into the first bar that still has room. It returns one pattern per bar in
// the order the bars were opened. Every piece is assumed to fit a bar.
func firstFitDecreasing(stockLength int, pieces []model.PieceType) []model.Pattern {
	order := make([]int, 0, len(pieces))
	for i, p := range pieces {
		if p.Quantity > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pieces[order[a]].Length > pieces[order[b]].Length
	})

	var bars []model.Pattern
	var free []int
	for _, i := range order {
		length := pieces[i].Length
		for n := 0; n < pieces[i].Quantity; n++ {
			placed := false
			for j := range bars {
				if free[j] >= length {
					bars[j][i]++
					free[j] -= length
					placed = true
					break
				}
			}
			if !placed {
				bar := make(model.Pattern, len(pieces))
				bar[i] = 1
				bars = append(bars, bar)
				free = append(free, stockLength-length)
			}
		}
	}
	return bars
}
