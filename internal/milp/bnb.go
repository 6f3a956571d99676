package milp

import (
	"context"
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultIntegralityTol is how far from an integer a value may be and still
// count as integral.
const DefaultIntegralityTol = 1e-6

// BranchAndBound is a depth-first branch-and-bound Oracle over gonum's
// simplex. Each node tightens one variable bound; relaxations are solved
// from scratch. Problem.Start, when feasible, is the first incumbent, and
// every fractional node is also tried with simple rounding. Cancelling ctx
// stops the search even in the middle of a relaxation.
type BranchAndBound struct {
	// NodeLimit caps the number of relaxations solved per call. Zero means
	// no limit.
	NodeLimit int
	// IntegralityTol defaults to DefaultIntegralityTol when zero.
	IntegralityTol float64
	// SimplexTol is passed through to lp.Simplex; zero selects gonum's
	// default.
	SimplexTol float64
}

// NewBranchAndBound returns an oracle with default tolerances and no node
// limit.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{IntegralityTol: DefaultIntegralityTol}
}

// node is an open subproblem. bound is the relaxation value of its parent,
// a valid lower bound for every point in the node.
type node struct {
	lower []float64
	upper []float64
	bound float64
	depth int
}

// Solve implements Oracle.
func (b *BranchAndBound) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	intTol := b.IntegralityTol
	if intTol <= 0 {
		intTol = DefaultIntegralityTol
	}

	n := len(p.Variables)
	cost := p.costVector()
	integral := p.integralObjective(cost)

	root := node{
		lower: make([]float64, n),
		upper: make([]float64, n),
		bound: math.Inf(-1),
	}
	for j, v := range p.Variables {
		lo, hi := v.Lower, v.Upper
		if v.Kind != Continuous {
			lo = math.Ceil(lo - intTol)
			hi = math.Floor(hi + intTol)
		}
		if lo > hi+feasTol {
			return &Solution{Status: StatusInfeasible}, nil
		}
		root.lower[j], root.upper[j] = lo, hi
	}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(1)
		nodes        int
		truncated    bool
	)
	if p.Start != nil {
		start := roundIntegers(p, p.Start, root.lower, root.upper)
		if p.IsFeasible(start, intTol) {
			incumbent, incumbentObj = start, p.Evaluate(start)
			glog.V(2).Infof("milp: %s starts from incumbent %.6g", p.Name, incumbentObj)
		} else {
			glog.V(1).Infof("milp: %s start is not feasible, ignored", p.Name)
		}
	}
	stack := []node{root}

	for len(stack) > 0 {
		if ctx.Err() != nil || (b.NodeLimit > 0 && nodes >= b.NodeLimit) {
			truncated = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if incumbent != nil && !improves(nd.bound, incumbentObj, integral) {
			continue
		}

		nodes++
		z, x, err := relaxContext(ctx, p, cost, nd.lower, nd.upper, b.SimplexTol)
		if err != nil {
			if ctx.Err() != nil {
				truncated = true
				break
			}
			if errors.Is(err, lp.ErrUnbounded) {
				glog.V(2).Infof("milp: %s relaxation unbounded at node %d", p.Name, nodes)
				return &Solution{Status: StatusUnbounded, Nodes: nodes}, nil
			}
			if isLPStatus(err) {
				continue
			}
			return nil, errors.Wrapf(err, "milp: relaxation of %s failed at node %d", p.Name, nodes)
		}
		if incumbent != nil && !improves(z, incumbentObj, integral) {
			continue
		}

		j, frac := branchVariable(p, x, intTol)
		if j < 0 {
			incumbent = roundIntegers(p, x, nd.lower, nd.upper)
			incumbentObj = p.Evaluate(incumbent)
			glog.V(2).Infof("milp: %s incumbent %.6g at node %d (depth %d)", p.Name, incumbentObj, nodes, nd.depth)
			continue
		}

		if cand := roundingHeuristic(p, x, nd.lower, nd.upper, intTol); cand != nil {
			if obj := p.Evaluate(cand); incumbent == nil || obj < incumbentObj-1e-9*math.Max(1, math.Abs(obj)) {
				incumbent, incumbentObj = cand, obj
				glog.V(2).Infof("milp: %s rounded incumbent %.6g at node %d (depth %d)", p.Name, incumbentObj, nodes, nd.depth)
				if !improves(z, incumbentObj, integral) {
					continue
				}
			}
		}

		down := nd.child(z)
		down.upper[j] = math.Floor(x[j])
		up := nd.child(z)
		up.lower[j] = math.Ceil(x[j])
		// The branch nearer to the relaxation value is popped first.
		if frac >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	sol := &Solution{Nodes: nodes}
	switch {
	case incumbent != nil && !truncated:
		sol.Status = StatusOptimal
	case incumbent != nil:
		sol.Status = StatusFeasible
	case truncated:
		sol.Status = StatusUnknown
	default:
		sol.Status = StatusInfeasible
	}
	if incumbent != nil {
		sol.Values = incumbent
		sol.Objective = incumbentObj
	}
	if truncated {
		glog.Warningf("milp: %s stopped after %d nodes with status %s", p.Name, nodes, sol.Status)
	} else {
		glog.V(2).Infof("milp: %s finished after %d nodes with status %s", p.Name, nodes, sol.Status)
	}
	return sol, nil
}

func (nd node) child(bound float64) node {
	c := node{
		lower: make([]float64, len(nd.lower)),
		upper: make([]float64, len(nd.upper)),
		bound: bound,
		depth: nd.depth + 1,
	}
	copy(c.lower, nd.lower)
	copy(c.upper, nd.upper)
	return c
}

// improves reports whether a node with relaxation bound can still beat the
// incumbent objective best.
func improves(bound, best float64, integral bool) bool {
	if math.IsInf(bound, -1) {
		return true
	}
	if integral {
		return math.Ceil(bound-DefaultIntegralityTol) <= best-1
	}
	return bound < best-1e-9*math.Max(1, math.Abs(best))
}

// branchVariable picks the integer variable whose value is farthest from
// integral. It returns -1 when x is integer feasible, along with the
// fractional part of the chosen value.
func branchVariable(p *Problem, x []float64, tol float64) (int, float64) {
	best, bestFrac, bestDist := -1, 0.0, tol
	for j, v := range p.Variables {
		if v.Kind == Continuous {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best, bestFrac, bestDist = j, frac, dist
		}
	}
	return best, bestFrac
}

func roundIntegers(p *Problem, x, lower, upper []float64) []float64 {
	return roundWith(p, x, lower, upper, math.Round)
}

func roundWith(p *Problem, x, lower, upper []float64, round func(float64) float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range p.Variables {
		val := x[j]
		if v.Kind != Continuous {
			val = round(val)
		}
		out[j] = math.Min(math.Max(val, lower[j]), upper[j])
	}
	return out
}

// roundingHeuristic rounds a fractional relaxation point to the nearest
// integers, then every integer up, and returns the first result that is
// feasible, or nil.
func roundingHeuristic(p *Problem, x, lower, upper []float64, tol float64) []float64 {
	up := func(v float64) float64 { return math.Ceil(v - tol) }
	for _, round := range []func(float64) float64{math.Round, up} {
		if cand := roundWith(p, x, lower, upper, round); p.IsFeasible(cand, tol) {
			return cand
		}
	}
	return nil
}
