package milp

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

func TestSolve_ContinuousLP(t *testing.T) {
	// minimize -x - 2y  s.t. -x + 2y <= 4, 3x + y <= 9
	p := NewProblem("lp")
	x := p.AddVariable("x", Continuous, 0, math.Inf(1))
	y := p.AddVariable("y", Continuous, 0, math.Inf(1))
	p.SetObjective(T(x, -1), T(y, -2))
	p.AddConstraint("c1", LessEqual, 4, T(x, -1), T(y, 2))
	p.AddConstraint("c2", LessEqual, 9, T(x, 3), T(y, 1))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -8, sol.Objective, 1e-6)
	assert.InDelta(t, 2, sol.Value(x), 1e-6)
	assert.InDelta(t, 3, sol.Value(y), 1e-6)
}

func TestSolve_IntegerRequiresBranching(t *testing.T) {
	// maximize 5x + 8y  s.t. x + y <= 6, 5x + 9y <= 45; the LP optimum is
	// (2.25, 3.75) and the integer optimum is (0, 5).
	p := NewProblem("branching")
	x := p.AddVariable("x", Integer, 0, math.Inf(1))
	y := p.AddVariable("y", Integer, 0, math.Inf(1))
	p.SetObjective(T(x, -5), T(y, -8))
	p.AddConstraint("c1", LessEqual, 6, T(x, 1), T(y, 1))
	p.AddConstraint("c2", LessEqual, 45, T(x, 5), T(y, 9))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, -40.0, sol.Objective)
	assert.Equal(t, 0.0, sol.Value(x))
	assert.Equal(t, 5.0, sol.Value(y))
	assert.Greater(t, sol.Nodes, 1)
}

func TestSolve_GreaterEqualAndBinary(t *testing.T) {
	// Pick the cheapest subset of sets covering 3 elements.
	//   a covers {1,2} cost 3, b covers {2,3} cost 3, c covers {1,2,3} cost 5, d covers {3} cost 1
	p := NewProblem("cover")
	a := p.AddVariable("a", Binary, 0, 1)
	b := p.AddVariable("b", Binary, 0, 1)
	c := p.AddVariable("c", Binary, 0, 1)
	d := p.AddVariable("d", Binary, 0, 1)
	p.SetObjective(T(a, 3), T(b, 3), T(c, 5), T(d, 1))
	p.AddConstraint("e1", GreaterEqual, 1, T(a, 1), T(c, 1))
	p.AddConstraint("e2", GreaterEqual, 1, T(a, 1), T(b, 1), T(c, 1))
	p.AddConstraint("e3", GreaterEqual, 1, T(b, 1), T(c, 1), T(d, 1))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 4.0, sol.Objective)
	assert.Equal(t, 1.0, sol.Value(a))
	assert.Equal(t, 1.0, sol.Value(d))
	assert.Equal(t, 0.0, sol.Value(b))
	assert.Equal(t, 0.0, sol.Value(c))
}

func TestSolve_InfeasibleByIntegrality(t *testing.T) {
	// 2x = 3 has a relaxed solution but no integral one.
	p := NewProblem("parity")
	x := p.AddVariable("x", Integer, 0, 10)
	p.SetObjective(T(x, 1))
	p.AddConstraint("even", Equal, 3, T(x, 2))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestSolve_InfeasibleRelaxation(t *testing.T) {
	p := NewProblem("tight")
	x := p.AddVariable("x", Integer, 0, 1)
	y := p.AddVariable("y", Integer, 0, 1)
	p.SetObjective(T(x, 1), T(y, 1))
	p.AddConstraint("need", GreaterEqual, 5, T(x, 1), T(y, 1))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestSolve_InvertedBounds(t *testing.T) {
	p := NewProblem("empty domain")
	p.AddVariable("x", Integer, 0.2, 0.8)

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestSolve_Unbounded(t *testing.T) {
	p := NewProblem("unbounded")
	x := p.AddVariable("x", Continuous, 0, math.Inf(1))
	p.SetObjective(T(x, -1))
	p.AddConstraint("floor", GreaterEqual, 1, T(x, 1))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestSolve_NegativeLowerBounds(t *testing.T) {
	p := NewProblem("shifted")
	x := p.AddVariable("x", Integer, -5, 5)
	p.SetObjective(T(x, 1))
	p.AddConstraint("floor", GreaterEqual, -3.5, T(x, 1))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, -3.0, sol.Value(x))
}

func TestSolve_UnusedVariableStaysAtLowerBound(t *testing.T) {
	p := NewProblem("unused")
	x := p.AddVariable("x", Integer, 0, math.Inf(1))
	idle := p.AddVariable("idle", Integer, 2, math.Inf(1))
	p.SetObjective(T(x, 1), T(idle, 1))
	p.AddConstraint("need", GreaterEqual, 3, T(x, 1))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 3.0, sol.Value(x))
	assert.Equal(t, 2.0, sol.Value(idle))
	assert.Equal(t, 5.0, sol.Objective)
}

func TestSolve_NoConstraints(t *testing.T) {
	p := NewProblem("bounds only")
	x := p.AddVariable("x", Integer, 1, 4)
	p.SetObjective(T(x, 2))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 1.0, sol.Value(x))
	assert.Equal(t, 2.0, sol.Objective)
}

func TestSolve_NodeLimitWithoutIncumbentIsUnknown(t *testing.T) {
	p := NewProblem("limited")
	x := p.AddVariable("x", Integer, 0, math.Inf(1))
	y := p.AddVariable("y", Integer, 0, math.Inf(1))
	p.SetObjective(T(x, -5), T(y, -8))
	p.AddConstraint("c1", LessEqual, 6, T(x, 1), T(y, 1))
	p.AddConstraint("c2", LessEqual, 45, T(x, 5), T(y, 9))

	bnb := NewBranchAndBound()
	bnb.NodeLimit = 1
	sol, err := bnb.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
	assert.False(t, sol.Status.HasSolution())
}

func TestSolve_CancelledContext(t *testing.T) {
	p := NewProblem("cancelled")
	x := p.AddVariable("x", Integer, 0, 3)
	p.SetObjective(T(x, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := NewBranchAndBound().Solve(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, sol.Status)
	assert.Equal(t, 0, sol.Nodes)
}

func TestValidate_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Problem
	}{
		{"unknown variable", func() *Problem {
			p := NewProblem("bad")
			p.AddVariable("x", Integer, 0, 1)
			p.AddConstraint("c", LessEqual, 1, T(Var(3), 1))
			return p
		}},
		{"nan coefficient", func() *Problem {
			p := NewProblem("bad")
			x := p.AddVariable("x", Integer, 0, 1)
			p.SetObjective(T(x, math.NaN()))
			return p
		}},
		{"infinite lower bound", func() *Problem {
			p := NewProblem("bad")
			p.AddVariable("x", Continuous, math.Inf(-1), 0)
			return p
		}},
		{"infinite rhs", func() *Problem {
			p := NewProblem("bad")
			x := p.AddVariable("x", Integer, 0, 1)
			p.AddConstraint("c", LessEqual, math.Inf(1), T(x, 1))
			return p
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBranchAndBound().Solve(context.Background(), tt.build())
			assert.Error(t, err)
		})
	}
}

func TestStatus_TextRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusUnknown, StatusOptimal, StatusFeasible, StatusInfeasible, StatusUnbounded} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back Status
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("maybe")))
}

func TestAddVariable_BinaryIsClamped(t *testing.T) {
	p := NewProblem("clamp")
	v := p.AddVariable("b", Binary, -3, 7)
	assert.Equal(t, 0.0, p.Variables[v].Lower)
	assert.Equal(t, 1.0, p.Variables[v].Upper)
}

// branchingProblem is the 5x + 8y knapsack-like program with integer
// optimum (0, 5).
func branchingProblem() (*Problem, Var, Var) {
	p := NewProblem("branching")
	x := p.AddVariable("x", Integer, 0, math.Inf(1))
	y := p.AddVariable("y", Integer, 0, math.Inf(1))
	p.SetObjective(T(x, -5), T(y, -8))
	p.AddConstraint("c1", LessEqual, 6, T(x, 1), T(y, 1))
	p.AddConstraint("c2", LessEqual, 45, T(x, 5), T(y, 9))
	return p, x, y
}

func TestSolve_StartIsFirstIncumbent(t *testing.T) {
	p, x, y := branchingProblem()
	p.SetStart(map[Var]float64{x: 0, y: 5})

	bnb := NewBranchAndBound()
	bnb.NodeLimit = 1
	sol, err := bnb.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusFeasible, sol.Status)
	assert.Equal(t, -40.0, sol.Objective)
	assert.Equal(t, 5.0, sol.Value(y))

	sol, err = NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, -40.0, sol.Objective)
}

func TestSolve_InfeasibleStartIsIgnored(t *testing.T) {
	p, x, y := branchingProblem()
	p.SetStart(map[Var]float64{x: 3, y: 4}) // 5*3 + 9*4 > 45

	bnb := NewBranchAndBound()
	bnb.NodeLimit = 1
	sol, err := bnb.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, sol.Status)

	sol, err = NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, -40.0, sol.Objective)
}

func TestSolve_RoundingClosesAtRoot(t *testing.T) {
	// minimize x s.t. 2x >= 3: the relaxation gives 1.5, rounding gives 2,
	// and the bound ceil(1.5) = 2 proves it.
	p := NewProblem("round")
	x := p.AddVariable("x", Integer, 0, 10)
	p.SetObjective(T(x, 1))
	p.AddConstraint("c", GreaterEqual, 3, T(x, 2))

	sol, err := NewBranchAndBound().Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 2.0, sol.Value(x))
	assert.Equal(t, 1, sol.Nodes)
}

// stallSimplex makes every relaxation block until the test ends.
func stallSimplex(t *testing.T) {
	release := make(chan struct{})
	orig := simplex
	simplex = func(c []float64, A mat.Matrix, b []float64, tol float64, initialBasic []int) (float64, []float64, error) {
		<-release
		return lp.Simplex(c, A, b, tol, initialBasic)
	}
	t.Cleanup(func() {
		simplex = orig
		close(release)
	})
}

func TestSolve_DeadlineInterruptsRelaxation(t *testing.T) {
	stallSimplex(t)
	p, _, _ := branchingProblem()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	sol, err := NewBranchAndBound().Solve(ctx, p)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, StatusUnknown, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
}

func TestSolve_DeadlineKeepsStartIncumbent(t *testing.T) {
	stallSimplex(t)
	p, x, y := branchingProblem()
	p.SetStart(map[Var]float64{x: 1, y: 4})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sol, err := NewBranchAndBound().Solve(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, StatusFeasible, sol.Status)
	assert.Equal(t, -37.0, sol.Objective)
}

func TestProblem_IsFeasible(t *testing.T) {
	p, _, _ := branchingProblem()
	assert.True(t, p.IsFeasible([]float64{0, 5}, 1e-9))
	assert.False(t, p.IsFeasible([]float64{0.5, 5}, 1e-9), "fractional")
	assert.False(t, p.IsFeasible([]float64{-1, 5}, 1e-9), "below bound")
	assert.False(t, p.IsFeasible([]float64{3, 4}, 1e-9), "violates c2")
	assert.False(t, p.IsFeasible([]float64{0}, 1e-9), "wrong length")
}

func TestValidate_RejectsShortStart(t *testing.T) {
	p, _, _ := branchingProblem()
	p.Start = []float64{1}
	_, err := NewBranchAndBound().Solve(context.Background(), p)
	assert.Error(t, err)
}
