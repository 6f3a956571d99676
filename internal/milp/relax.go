package milp

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// feasTol is the tolerance used when checking rows that no longer contain
// any free variable.
const feasTol = 1e-7

// simplexFunc solves min c^T y s.t. A y = b, y >= 0, like lp.Simplex.
type simplexFunc func(c []float64, A mat.Matrix, b []float64, tol float64, initialBasic []int) (float64, []float64, error)

// simplex is the LP solver used at every node. Tests swap it to stall a
// node.
var simplex simplexFunc = lp.Simplex

// row is a "<=" row over free variables, in original variable indices.
type row struct {
	terms []Term
	rhs   float64
}

// relax solves the LP relaxation of p with variable bounds replaced by
// lower/upper. It returns the objective and a point in the original
// variable space.
//
// The relaxation is brought into gonum's standard form
//
//	minimize c^T y  s.t.  A y = b, y >= 0
//
// by shifting every variable to its lower bound, fixing variables whose
// bounds coincide, turning ">=" rows into negated "<=" rows, splitting "="
// rows into a pair of inequalities and adding one slack column per row.
// The slack block is an identity, so A always has full row rank.
func relax(p *Problem, cost, lower, upper []float64, tol float64, solve simplexFunc) (float64, []float64, error) {
	n := len(p.Variables)
	x := make([]float64, n)
	copy(x, lower)

	free := make([]bool, n)
	for j := 0; j < n; j++ {
		free[j] = upper[j]-lower[j] > feasTol
	}

	var rows []row
	addRow := func(terms []Term, rhs float64, sign float64) {
		scaled := make([]Term, len(terms))
		for i, t := range terms {
			scaled[i] = Term{Var: t.Var, Coef: sign * t.Coef}
		}
		rows = append(rows, row{terms: scaled, rhs: sign * rhs})
	}

	for _, c := range p.Constraints {
		rhs := c.RHS
		var terms []Term
		for _, t := range c.Terms {
			rhs -= t.Coef * lower[t.Var]
			if free[t.Var] && t.Coef != 0 {
				terms = append(terms, t)
			}
		}
		if len(terms) == 0 {
			if !emptyRowFeasible(c.Sense, rhs) {
				return 0, nil, lp.ErrInfeasible
			}
			continue
		}
		switch c.Sense {
		case LessEqual:
			addRow(terms, rhs, 1)
		case GreaterEqual:
			addRow(terms, rhs, -1)
		case Equal:
			addRow(terms, rhs, 1)
			addRow(terms, rhs, -1)
		}
	}
	for j := 0; j < n; j++ {
		if free[j] && !math.IsInf(upper[j], 1) {
			rows = append(rows, row{terms: []Term{{Var: Var(j), Coef: 1}}, rhs: upper[j] - lower[j]})
		}
	}

	// Map used free variables to dense columns. A free variable that
	// appears in no row is pinned to its lower bound unless that would
	// leave a descent direction open.
	col := make([]int, n)
	for j := range col {
		col[j] = -1
	}
	var used []int
	for _, r := range rows {
		for _, t := range r.terms {
			if col[t.Var] == -1 {
				col[t.Var] = len(used)
				used = append(used, int(t.Var))
			}
		}
	}
	for j := 0; j < n; j++ {
		if free[j] && col[j] == -1 && cost[j] < 0 {
			return 0, nil, lp.ErrUnbounded
		}
	}

	if len(rows) == 0 {
		return p.Evaluate(x), x, nil
	}

	m := len(rows)
	nc := len(used)
	A := mat.NewDense(m, nc+m, nil)
	b := make([]float64, m)
	c := make([]float64, nc+m)
	for k, j := range used {
		c[k] = cost[j]
	}
	for i, r := range rows {
		for _, t := range r.terms {
			k := col[t.Var]
			A.Set(i, k, A.At(i, k)+t.Coef)
		}
		A.Set(i, nc+i, 1)
		b[i] = r.rhs
	}

	_, y, err := solve(c, A, b, tol, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, j := range used {
		x[j] = lower[j] + y[k]
	}
	return p.Evaluate(x), x, nil
}

type relaxResult struct {
	z   float64
	x   []float64
	err error
}

// relaxContext runs relax but returns ctx.Err() as soon as ctx is done.
// gonum's simplex cannot be interrupted, so an abandoned relaxation keeps
// running in its goroutine until it finishes on its own; the buffered
// channel lets it exit without a reader.
func relaxContext(ctx context.Context, p *Problem, cost, lower, upper []float64, tol float64) (float64, []float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	solve := simplex
	done := make(chan relaxResult, 1)
	go func() {
		z, x, err := relax(p, cost, lower, upper, tol, solve)
		done <- relaxResult{z: z, x: x, err: err}
	}()
	select {
	case r := <-done:
		return r.z, r.x, r.err
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func emptyRowFeasible(sense Sense, rhs float64) bool {
	switch sense {
	case LessEqual:
		return rhs >= -feasTol
	case GreaterEqual:
		return rhs <= feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}

// isLPStatus reports whether err is one of gonum's terminal LP outcomes
// rather than a numerical failure.
func isLPStatus(err error) bool {
	return errors.Is(err, lp.ErrInfeasible) || errors.Is(err, lp.ErrUnbounded)
}
