package model

import (
	"sort"

	"github.com/google/uuid"
)

// Offcut represents a reusable remnant left at the end of cut bars.
type Offcut struct {
	ID          string  `json:"id"`
	PatternKey  string  `json:"pattern_key"`  // Pattern it is left over from
	Length      int     `json:"length"`       // Usable length (mm)
	Quantity    int     `json:"quantity"`     // One per bar cut with the pattern
	PricePerBar float64 `json:"price_per_bar"` // Inherited price proportional to length (0 if not set)
}

// TotalLength returns the combined length of all remnants of this offcut.
func (o Offcut) TotalLength() int {
	return o.Length * o.Quantity
}

// ToPieceStock converts an offcut into a piece type so remnants can be
// listed in a follow-up job's inventory.
func (o Offcut) ToPieceStock() PieceType {
	return NewPieceType("Offcut "+o.PatternKey, o.Length, o.Quantity)
}

// DetectOffcuts returns one offcut per plan entry whose remnant is at least
// minLength long, largest remnants first. A minLength of zero or less
// disables detection.
func DetectOffcuts(plan Plan, pieces []PieceType, stockLength, minLength int, pricePerBar float64) []Offcut {
	if minLength <= 0 || stockLength <= 0 {
		return nil
	}

	var offcuts []Offcut
	for _, use := range plan {
		if use.Uses <= 0 {
			continue
		}
		remnant := use.Pattern.Waste(stockLength, pieces)
		if remnant < minLength {
			continue
		}
		o := Offcut{
			ID:         uuid.New().String()[:8],
			PatternKey: use.Pattern.Key(),
			Length:     remnant,
			Quantity:   use.Uses,
		}
		if pricePerBar > 0 {
			o.PricePerBar = float64(remnant) / float64(stockLength) * pricePerBar
		}
		offcuts = append(offcuts, o)
	}

	sort.SliceStable(offcuts, func(i, j int) bool {
		return offcuts[i].Length > offcuts[j].Length
	})
	return offcuts
}

// TotalOffcutLength returns the total reusable length in mm.
func TotalOffcutLength(offcuts []Offcut) int {
	total := 0
	for _, o := range offcuts {
		total += o.TotalLength()
	}
	return total
}
