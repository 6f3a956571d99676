package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/BarCut/internal/milp"
	"github.com/piwi3910/BarCut/internal/model"
)

func refinePieces() []model.PieceType {
	return []model.PieceType{
		{Label: "A", Length: 50, Quantity: 2},
		{Label: "B", Length: 30, Quantity: 3},
	}
}

func TestRefine_DescendsToOnePattern(t *testing.T) {
	pieces := refinePieces()
	patterns := []model.Pattern{{2, 0}, {0, 3}, {1, 1}}

	out, err := Refine(context.Background(), milp.NewBranchAndBound(), 100, pieces, patterns, 5)
	require.NoError(t, err)

	require.Len(t, out.Steps, 3)
	assert.False(t, out.Stopped)
	assert.Equal(t, 1, out.MinK)
	assert.Equal(t, []int{3, 2, 1}, []int{out.Steps[0].K, out.Steps[1].K, out.Steps[2].K})

	// k = 3 and k = 2 both need 2 bars; k = 1 needs 3 bars of {1,1}.
	assert.Equal(t, 2, out.Steps[0].Bars)
	assert.Equal(t, 2, out.Steps[1].Bars)
	assert.Equal(t, 3, out.Steps[2].Bars)
	assert.Equal(t, 1, out.Steps[2].Patterns)

	require.NotNil(t, out.Best)
	assert.Equal(t, 2, out.Best.Bars)
	assert.Equal(t, 10, out.Best.Waste)
	assert.Equal(t, 3, out.Best.K)
	assert.True(t, out.Steps[0].Accepted)
	assert.False(t, out.Steps[1].Accepted)
	assert.False(t, out.Steps[2].Accepted)
	assert.LessOrEqual(t, out.Best.Plan.Distinct(), out.Best.K)
	assertValidPlan(t, 100, pieces, out.Best.Plan, false)
}

func TestRefine_StopsAtFirstInfeasibleCap(t *testing.T) {
	pieces := refinePieces()
	patterns := []model.Pattern{{2, 0}, {0, 3}}

	out, err := Refine(context.Background(), milp.NewBranchAndBound(), 100, pieces, patterns, 5)
	require.NoError(t, err)

	require.Len(t, out.Steps, 2)
	assert.True(t, out.Stopped)
	assert.Equal(t, milp.StatusInfeasible, out.StopStatus)
	assert.Equal(t, 2, out.MinK)
	require.NotNil(t, out.Best)
	assert.Equal(t, 2, out.Best.Bars)
}

func TestRefine_UnknownIsDistinguishedFromInfeasible(t *testing.T) {
	pieces := refinePieces()
	patterns := []model.Pattern{{2, 0}, {0, 3}, {1, 1}}
	calls := 0
	oracle := milp.OracleFunc(func(ctx context.Context, p *milp.Problem) (*milp.Solution, error) {
		calls++
		if calls == 2 {
			return &milp.Solution{Status: milp.StatusUnknown}, nil
		}
		return milp.NewBranchAndBound().Solve(ctx, p)
	})

	out, err := Refine(context.Background(), oracle, 100, pieces, patterns, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, out.Stopped)
	assert.Equal(t, milp.StatusUnknown, out.StopStatus)
	assert.Equal(t, 3, out.MinK)
	require.NotNil(t, out.Best)
	assert.Equal(t, 3, out.Best.K)
}

func TestRefine_NoBestWhenFullCapFails(t *testing.T) {
	pieces := refinePieces()
	// Neither pattern cuts B, so even k = P cannot meet demand.
	patterns := []model.Pattern{{2, 0}, {1, 0}}

	out, err := Refine(context.Background(), milp.NewBranchAndBound(), 100, pieces, patterns, 5)
	require.NoError(t, err)
	assert.Nil(t, out.Best)
	assert.True(t, out.Stopped)
	assert.Equal(t, milp.StatusInfeasible, out.StopStatus)
	assert.Len(t, out.Steps, 1)
}

func TestRefine_ZeroDemandIsTriviallyFeasible(t *testing.T) {
	pieces := []model.PieceType{{Length: 50, Quantity: 0}}
	out, err := Refine(context.Background(), milp.NewBranchAndBound(), 100, pieces, nil, 1)
	require.NoError(t, err)
	require.NotNil(t, out.Best)
	assert.Equal(t, 0, out.Best.K)
	assert.Equal(t, 0, out.Best.Bars)
	assert.Equal(t, 0, out.MinK)
	assert.Empty(t, out.Steps)
	assert.False(t, out.Stopped)
}

func TestRefine_OracleErrorPropagates(t *testing.T) {
	boom := errors.New("numerical failure")
	oracle := milp.OracleFunc(func(ctx context.Context, p *milp.Problem) (*milp.Solution, error) {
		return nil, boom
	})
	_, err := Refine(context.Background(), oracle, 100, refinePieces(), []model.Pattern{{2, 0}, {0, 3}}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRefine_ParallelMatchesSequential(t *testing.T) {
	pieces := refinePieces()
	for _, patterns := range [][]model.Pattern{
		{{2, 0}, {0, 3}, {1, 1}},
		{{2, 0}, {0, 3}},
		{{2, 0}, {0, 3}, {1, 1}, {0, 1}, {1, 0}},
	} {
		seq, err := Refine(context.Background(), milp.NewBranchAndBound(), 100, pieces, patterns, 5)
		require.NoError(t, err)
		par, err := Refine(context.Background(), milp.NewBranchAndBound(), 100, pieces, patterns, 5, WithWorkers(4))
		require.NoError(t, err)

		assert.Equal(t, seq.Steps, par.Steps)
		assert.Equal(t, seq.MinK, par.MinK)
		assert.Equal(t, seq.Stopped, par.Stopped)
		assert.Equal(t, seq.StopStatus, par.StopStatus)
		require.NotNil(t, par.Best)
		assert.Equal(t, seq.Best.Bars, par.Best.Bars)
		assert.Equal(t, seq.Best.Waste, par.Best.Waste)
		assert.Equal(t, seq.Best.K, par.Best.K)
	}
}

func TestBetter_FoldOrder(t *testing.T) {
	a := &Candidate{Bars: 5, Waste: 100, Plan: model.Plan{{Uses: 5}}}
	assert.True(t, better(a, nil))
	assert.True(t, better(&Candidate{Bars: 4, Waste: 900}, a))
	assert.False(t, better(&Candidate{Bars: 6, Waste: 0}, a))
	assert.True(t, better(&Candidate{Bars: 5, Waste: 50}, a))
	assert.False(t, better(&Candidate{Bars: 5, Waste: 100, Plan: model.Plan{{Uses: 2}, {Uses: 3}}}, a))
	assert.False(t, better(a, a))
}

// Every cap k is solved on its own here, without the early stop, to check
// that the feasible caps always form a suffix k0..P.
func TestRefine_FeasibilityIsMonotoneInK(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const stock = 100
	for trial := 0; trial < 12; trial++ {
		pieces := []model.PieceType{
			{Length: 20 + rng.Intn(30), Quantity: 1 + rng.Intn(4)},
			{Length: 15 + rng.Intn(30), Quantity: 1 + rng.Intn(4)},
			{Length: 10 + rng.Intn(30), Quantity: 1 + rng.Intn(4)},
		}
		patterns := randomPatterns(rng, pieces, stock, 4)
		bigM := model.TotalDemand(pieces)

		seenFeasible := false
		for k := 1; k <= len(patterns); k++ {
			m := buildRefineModel(pieces, patterns, bigM, k)
			sol, err := milp.NewBranchAndBound().Solve(context.Background(), m.problem)
			require.NoError(t, err)
			feasible := sol.Status.HasSolution()
			if seenFeasible {
				assert.True(t, feasible, "trial %d: k=%d infeasible after a smaller cap was feasible", trial, k)
			}
			seenFeasible = seenFeasible || feasible
		}

		out, err := Refine(context.Background(), milp.NewBranchAndBound(), stock, pieces, patterns, bigM)
		require.NoError(t, err)
		for i := 1; i < len(out.Steps); i++ {
			assert.True(t, out.Steps[i-1].Status.HasSolution(), "trial %d: step after a failure", trial)
		}
	}
}

// randomPatterns returns n distinct non-empty patterns that fit the stock.
func randomPatterns(rng *rand.Rand, pieces []model.PieceType, stock, n int) []model.Pattern {
	seen := map[string]bool{}
	var out []model.Pattern
	for len(out) < n {
		p := make(model.Pattern, len(pieces))
		for i, pc := range pieces {
			p[i] = rng.Intn(stock/pc.Length + 1)
		}
		if p.IsEmpty() || !p.Fits(stock, pieces) || seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		out = append(out, p)
	}
	return out
}

func TestRefine_StartPlanSeedsCapsItFits(t *testing.T) {
	pieces := refinePieces()
	patterns := []model.Pattern{{2, 0}, {0, 3}, {1, 1}}
	start := model.Plan{
		{Pattern: model.Pattern{2, 0}, Uses: 1},
		{Pattern: model.Pattern{0, 3}, Uses: 1},
	}

	var starts [][]float64
	oracle := milp.OracleFunc(func(ctx context.Context, p *milp.Problem) (*milp.Solution, error) {
		if p.Start != nil {
			assert.True(t, p.IsFeasible(p.Start, 1e-9), p.Name)
		}
		starts = append(starts, p.Start)
		return milp.NewBranchAndBound().Solve(ctx, p)
	})

	out, err := Refine(context.Background(), oracle, 100, pieces, patterns, 5, WithStartPlan(start))
	require.NoError(t, err)
	require.Len(t, starts, 3)
	assert.NotNil(t, starts[0], "k=3")
	assert.NotNil(t, starts[1], "k=2")
	assert.Nil(t, starts[2], "k=1")
	require.NotNil(t, out.Best)
	assert.Equal(t, 2, out.Best.Bars)
}

func TestPickStart(t *testing.T) {
	plan := model.Plan{
		{Pattern: model.Pattern{2, 0}, Uses: 1},
		{Pattern: model.Pattern{0, 3}, Uses: 2},
	}
	assert.Equal(t, plan, pickStart(2, plan))
	assert.Nil(t, pickStart(1, plan))
	assert.Nil(t, pickStart(3, nil))
}
