package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/piwi3910/BarCut/internal/milp"
	"github.com/piwi3910/BarCut/internal/model"
)

// InitialSolution is the outcome of the bar-minimizing packing phase.
type InitialSolution struct {
	Status milp.Status
	// Patterns are the distinct patterns realized by the packing, in the
	// order their first bar slot appeared.
	Patterns []model.Pattern
	Plan     model.Plan
	Nodes    int
}

// PackOption tunes the packing model.
type PackOption func(*packConfig)

type packConfig struct {
	symmetryBreaking bool
}

// WithSymmetryBreaking adds y[j] >= y[j+1] rows so that used bar slots
// come first. The rows never change the optimum.
func WithSymmetryBreaking(on bool) PackOption {
	return func(c *packConfig) { c.symmetryBreaking = on }
}

// packingModel keeps the variable handles of a built packing problem.
type packingModel struct {
	problem *milp.Problem
	x       [][]milp.Var // x[i][j], nil row for piece types that are never cut
	y       []milp.Var
}

// buildPackingModel formulates
//
//	minimize Σ_j y[j]
//	Σ_j x[i,j] >= q_i (or = q_i)                  for every demanded piece type i
//	Σ_i len_i * x[i,j] - L * y[j] <= 0             for every bar slot j
//
// with x integer >= 0 and y binary. Piece types without demand get no
// variables, so they are never cut.
func buildPackingModel(stockLength int, pieces []model.PieceType, maxBars int, policy model.DemandPolicy, cfg packConfig) *packingModel {
	p := milp.NewProblem(fmt.Sprintf("packing(L=%d,bars=%d)", stockLength, maxBars))
	m := &packingModel{
		problem: p,
		x:       make([][]milp.Var, len(pieces)),
		y:       make([]milp.Var, maxBars),
	}

	for j := 0; j < maxBars; j++ {
		m.y[j] = p.AddVariable(fmt.Sprintf("y[%d]", j), milp.Binary, 0, 1)
	}
	for i, pc := range pieces {
		if pc.Quantity <= 0 {
			continue
		}
		m.x[i] = make([]milp.Var, maxBars)
		for j := 0; j < maxBars; j++ {
			m.x[i][j] = p.AddVariable(fmt.Sprintf("x[%d,%d]", i, j), milp.Integer, 0, math.Inf(1))
		}
	}

	obj := make([]milp.Term, maxBars)
	for j, y := range m.y {
		obj[j] = milp.T(y, 1)
	}
	p.SetObjective(obj...)

	sense := milp.GreaterEqual
	if policy == model.DemandExact {
		sense = milp.Equal
	}
	for i, pc := range pieces {
		if m.x[i] == nil {
			continue
		}
		terms := make([]milp.Term, maxBars)
		for j, x := range m.x[i] {
			terms[j] = milp.T(x, 1)
		}
		p.AddConstraint(fmt.Sprintf("demand[%d]", i), sense, float64(pc.Quantity), terms...)
	}

	for j := 0; j < maxBars; j++ {
		terms := []milp.Term{milp.T(m.y[j], -float64(stockLength))}
		for i, pc := range pieces {
			if m.x[i] == nil {
				continue
			}
			terms = append(terms, milp.T(m.x[i][j], float64(pc.Length)))
		}
		p.AddConstraint(fmt.Sprintf("capacity[%d]", j), milp.LessEqual, 0, terms...)
	}

	if cfg.symmetryBreaking {
		for j := 0; j+1 < maxBars; j++ {
			p.AddConstraint(fmt.Sprintf("order[%d]", j), milp.GreaterEqual, 0,
				milp.T(m.y[j], 1), milp.T(m.y[j+1], -1))
		}
	}
	return m
}

// setStart offers bars, one pattern per slot from slot 0, as the oracle's
// first incumbent. Unused slots stay at zero, which keeps the symmetry rows
// satisfied. It reports false when the bars do not fit the slots.
func (m *packingModel) setStart(bars []model.Pattern) bool {
	if len(bars) > len(m.y) {
		return false
	}
	values := make(map[milp.Var]float64)
	for j, bar := range bars {
		values[m.y[j]] = 1
		for i, n := range bar {
			if n > 0 && m.x[i] != nil {
				values[m.x[i][j]] = float64(n)
			}
		}
	}
	m.problem.SetStart(values)
	return true
}

// harvest turns the used bar slots of sol into a deduplicated plan.
// Slots are visited in index order; a pattern's position is fixed by the
// first slot it appears in.
func (m *packingModel) harvest(sol *milp.Solution, numPieces int) model.Plan {
	var plan model.Plan
	index := make(map[string]int)
	for j, y := range m.y {
		if sol.Value(y) <= 0.5 {
			continue
		}
		pattern := make(model.Pattern, numPieces)
		for i := range pattern {
			if m.x[i] != nil {
				pattern[i] = int(math.Round(sol.Value(m.x[i][j])))
			}
		}
		if pattern.IsEmpty() {
			continue
		}
		key := pattern.Key()
		if h, ok := index[key]; ok {
			plan[h].Uses++
			continue
		}
		index[key] = len(plan)
		plan = append(plan, model.PatternUse{Pattern: pattern, Uses: 1})
	}
	return plan
}

// SolveInitial finds the fewest stock bars, out of maxBars slots, that
// cover the demand under policy, and harvests the distinct patterns of
// that packing. Inputs are assumed valid; Optimizer.Optimize validates
// before calling.
//
// It returns ErrInfeasible when no packing exists and ErrSolverUnknown when
// the oracle stopped without finding one. A packing found under a budget
// limit is returned with StatusFeasible.
func SolveInitial(ctx context.Context, oracle milp.Oracle, stockLength int, pieces []model.PieceType, maxBars int, policy model.DemandPolicy, opts ...PackOption) (*InitialSolution, error) {
	cfg := packConfig{symmetryBreaking: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if model.TotalDemand(pieces) == 0 {
		return &InitialSolution{Status: milp.StatusOptimal, Plan: model.Plan{}}, nil
	}

	m := buildPackingModel(stockLength, pieces, maxBars, policy, cfg)
	// First-fit decreasing cuts exactly the demand, so it suits both
	// policies.
	if bars := firstFitDecreasing(stockLength, pieces); m.setStart(bars) {
		glog.V(1).Infof("engine: packing starts from a %d-bar first-fit packing", len(bars))
	}
	glog.V(1).Infof("engine: packing %d piece types into at most %d bars (%d variables, %d rows)",
		len(pieces), maxBars, m.problem.NumVariables(), len(m.problem.Constraints))

	sol, err := oracle.Solve(ctx, m.problem)
	if err != nil {
		return nil, errors.Wrap(err, "engine: initial packing")
	}

	switch sol.Status {
	case milp.StatusOptimal, milp.StatusFeasible:
	case milp.StatusInfeasible:
		return nil, errors.Wrapf(ErrInfeasible, "%d bars of length %d", maxBars, stockLength)
	case milp.StatusUnknown:
		return nil, errors.Wrapf(ErrSolverUnknown, "initial packing after %d nodes", sol.Nodes)
	default:
		return nil, errors.Errorf("engine: initial packing returned status %s", sol.Status)
	}

	plan := m.harvest(sol, len(pieces))
	for _, u := range plan {
		if !u.Pattern.Fits(stockLength, pieces) {
			return nil, errors.Errorf("engine: solver returned pattern %s longer than stock length %d", u.Pattern.Key(), stockLength)
		}
	}
	if !SatisfiesDemand(pieces, plan, policy == model.DemandExact) {
		return nil, errors.Errorf("engine: solver returned a packing that misses demand (produced %v)", Produced(pieces, plan))
	}

	return &InitialSolution{
		Status:   sol.Status,
		Patterns: plan.Patterns(),
		Plan:     plan,
		Nodes:    sol.Nodes,
	}, nil
}
