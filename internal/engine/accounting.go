package engine

import (
	"github.com/piwi3910/BarCut/internal/milp"
	"github.com/piwi3910/BarCut/internal/model"
)

// Waste returns Σ uses * (L - used length) over the plan. Per-pattern
// remnants are clamped at zero.
func Waste(stockLength int, pieces []model.PieceType, plan model.Plan) int {
	total := 0
	for _, u := range plan {
		total += u.Uses * u.Pattern.Waste(stockLength, pieces)
	}
	return total
}

// Produced returns, per piece type, Σ count * uses over the plan.
func Produced(pieces []model.PieceType, plan model.Plan) []int {
	out := make([]int, len(pieces))
	for _, u := range plan {
		for i, c := range u.Pattern {
			out[i] += c * u.Uses
		}
	}
	return out
}

// Excess returns, per piece type, max(0, produced - required).
func Excess(pieces []model.PieceType, plan model.Plan) []int {
	produced := Produced(pieces, plan)
	out := make([]int, len(pieces))
	for i, p := range pieces {
		if d := produced[i] - p.Quantity; d > 0 {
			out[i] = d
		}
	}
	return out
}

// ExcessLength returns the total length of over-produced pieces.
func ExcessLength(pieces []model.PieceType, plan model.Plan) int {
	total := 0
	for i, e := range Excess(pieces, plan) {
		total += e * pieces[i].Length
	}
	return total
}

// SatisfiesDemand reports whether plan produces every required piece. With
// exact set, production must match demand precisely.
func SatisfiesDemand(pieces []model.PieceType, plan model.Plan, exact bool) bool {
	produced := Produced(pieces, plan)
	for i, p := range pieces {
		if produced[i] < p.Quantity || (exact && produced[i] != p.Quantity) {
			return false
		}
	}
	return true
}

// report runs the full accounting for plan.
func report(status milp.Status, stockLength int, pieces []model.PieceType, plan model.Plan) model.PhaseReport {
	if plan == nil {
		plan = model.Plan{}
	}
	return model.PhaseReport{
		Status:       status,
		Plan:         plan,
		Bars:         plan.Bars(),
		Patterns:     plan.Distinct(),
		Waste:        Waste(stockLength, pieces, plan),
		Produced:     Produced(pieces, plan),
		Excess:       Excess(pieces, plan),
		ExcessLength: ExcessLength(pieces, plan),
	}
}
