package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/piwi3910/BarCut/internal/milp"
	"github.com/piwi3910/BarCut/internal/model"
)

func accountingPieces() []model.PieceType {
	return []model.PieceType{
		{Label: "A", Length: 50, Quantity: 2},
		{Label: "B", Length: 30, Quantity: 3},
	}
}

func TestAccounting_WasteProducedExcess(t *testing.T) {
	pieces := accountingPieces()
	plan := model.Plan{
		{Pattern: model.Pattern{2, 0}, Uses: 1}, // 100 used
		{Pattern: model.Pattern{1, 1}, Uses: 2}, // 80 used
	}

	assert.Equal(t, 3, plan.Bars())
	assert.Equal(t, 0+2*20, Waste(100, pieces, plan))
	assert.Equal(t, []int{4, 2}, Produced(pieces, plan))
	assert.Equal(t, []int{2, 0}, Excess(pieces, plan))
	assert.Equal(t, 100, ExcessLength(pieces, plan))
	assert.False(t, SatisfiesDemand(pieces, plan, false))
}

func TestAccounting_IsPure(t *testing.T) {
	pieces := accountingPieces()
	plan := model.Plan{{Pattern: model.Pattern{1, 1}, Uses: 3}}

	assert.Equal(t, Waste(100, pieces, plan), Waste(100, pieces, plan))
	assert.Equal(t, Excess(pieces, plan), Excess(pieces, plan))
	assert.Equal(t, model.Pattern{1, 1}, plan[0].Pattern)
	assert.Equal(t, 3, plan[0].Uses)
}

func TestAccounting_WasteClampsOverfullPatterns(t *testing.T) {
	pieces := accountingPieces()
	plan := model.Plan{{Pattern: model.Pattern{3, 0}, Uses: 1}}
	assert.Equal(t, 0, Waste(100, pieces, plan))
}

func TestAccounting_SatisfiesDemand(t *testing.T) {
	pieces := accountingPieces()
	exact := model.Plan{
		{Pattern: model.Pattern{2, 0}, Uses: 1},
		{Pattern: model.Pattern{0, 3}, Uses: 1},
	}
	over := model.Plan{{Pattern: model.Pattern{1, 1}, Uses: 3}}

	assert.True(t, SatisfiesDemand(pieces, exact, true))
	assert.True(t, SatisfiesDemand(pieces, over, false))
	assert.False(t, SatisfiesDemand(pieces, over, true))
}

func TestAccounting_EmptyPlan(t *testing.T) {
	pieces := []model.PieceType{{Length: 10, Quantity: 0}}
	r := report(milp.StatusOptimal, 100, pieces, nil)
	assert.Equal(t, 0, r.Bars)
	assert.Equal(t, 0, r.Waste)
	assert.Equal(t, 0, r.Patterns)
	assert.NotNil(t, r.Plan)
	assert.Equal(t, []int{0}, r.Excess)
}
