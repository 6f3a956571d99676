// Package milp describes mixed-integer linear programs and the oracle
// contract used to solve them. A Problem is always a minimization:
//
//	minimize    c^T x
//	subject to  a_r^T x (<=|>=|=) b_r   for every constraint r
//	            lower_j <= x_j <= upper_j
//	            x_j integral for Integer and Binary variables
//
// Callers build a Problem with AddVariable/AddConstraint/SetObjective and
// submit it to any Oracle implementation. BranchAndBound is the oracle
// shipped with this package.
package milp

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// Kind is the domain of a decision variable.
type Kind int

const (
	Continuous Kind = iota
	Integer
	Binary // Integer restricted to [0, 1]
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "continuous"
	}
}

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "<="
	}
}

// Var is the index of a variable inside its Problem.
type Var int

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// T is shorthand for building a Term.
func T(v Var, coef float64) Term {
	return Term{Var: v, Coef: coef}
}

// Variable is a decision variable with its domain.
type Variable struct {
	Name  string
	Kind  Kind
	Lower float64
	Upper float64 // math.Inf(1) when unbounded above
}

// Constraint is a single linear row.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimization MILP.
type Problem struct {
	Name        string
	Variables   []Variable
	Objective   []Term
	Constraints []Constraint
	// Start is an optional known solution, one value per variable. An
	// oracle may use it as its first incumbent; one that violates a bound,
	// an integrality requirement or a row is ignored.
	Start []float64
}

// NewProblem returns an empty problem.
func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// AddVariable appends a variable and returns its handle. Binary variables
// are clamped to [0, 1] regardless of the bounds passed in.
func (p *Problem) AddVariable(name string, kind Kind, lower, upper float64) Var {
	if kind == Binary {
		lower = math.Max(lower, 0)
		upper = math.Min(upper, 1)
	}
	p.Variables = append(p.Variables, Variable{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return Var(len(p.Variables) - 1)
}

// AddConstraint appends the row sum(terms) sense rhs.
func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// SetObjective replaces the objective to be minimized.
func (p *Problem) SetObjective(terms ...Term) {
	p.Objective = terms
}

// SetStart records a known solution. Variables missing from values start
// at 0. Call it after the last AddVariable.
func (p *Problem) SetStart(values map[Var]float64) {
	p.Start = make([]float64, len(p.Variables))
	for v, val := range values {
		if int(v) >= 0 && int(v) < len(p.Start) {
			p.Start[v] = val
		}
	}
}

// IsFeasible reports whether x satisfies every bound, integrality
// requirement and row of p within tol.
func (p *Problem) IsFeasible(x []float64, tol float64) bool {
	if len(x) != len(p.Variables) {
		return false
	}
	for j, v := range p.Variables {
		if x[j] < v.Lower-tol || x[j] > v.Upper+tol {
			return false
		}
		if v.Kind != Continuous && math.Abs(x[j]-math.Round(x[j])) > tol {
			return false
		}
	}
	for _, c := range p.Constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		slack := tol * math.Max(1, math.Abs(c.RHS))
		switch c.Sense {
		case LessEqual:
			if lhs > c.RHS+slack {
				return false
			}
		case GreaterEqual:
			if lhs < c.RHS-slack {
				return false
			}
		default:
			if math.Abs(lhs-c.RHS) > slack {
				return false
			}
		}
	}
	return true
}

// NumVariables returns the number of variables.
func (p *Problem) NumVariables() int {
	return len(p.Variables)
}

// Validate checks that every term references an existing variable, all
// numbers are finite and all lower bounds are finite.
func (p *Problem) Validate() error {
	n := len(p.Variables)
	for j, v := range p.Variables {
		if math.IsNaN(v.Lower) || math.IsInf(v.Lower, 0) {
			return errors.Errorf("milp: variable %q has non-finite lower bound", v.Name)
		}
		if math.IsNaN(v.Upper) || math.IsInf(v.Upper, -1) {
			return errors.Errorf("milp: variable %q has invalid upper bound", v.Name)
		}
		if v.Kind < Continuous || v.Kind > Binary {
			return errors.Errorf("milp: variable %d has unknown kind %d", j, v.Kind)
		}
	}
	checkTerms := func(where string, terms []Term) error {
		for _, t := range terms {
			if int(t.Var) < 0 || int(t.Var) >= n {
				return errors.Errorf("milp: %s references unknown variable %d", where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return errors.Errorf("milp: %s has non-finite coefficient on %q", where, p.Variables[t.Var].Name)
			}
		}
		return nil
	}
	if p.Start != nil && len(p.Start) != n {
		return errors.Errorf("milp: start has %d values for %d variables", len(p.Start), n)
	}
	if err := checkTerms("objective", p.Objective); err != nil {
		return err
	}
	for _, c := range p.Constraints {
		if err := checkTerms("constraint "+c.Name, c.Terms); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return errors.Errorf("milp: constraint %q has non-finite right-hand side", c.Name)
		}
	}
	return nil
}

// costVector returns the dense objective coefficients.
func (p *Problem) costVector() []float64 {
	c := make([]float64, len(p.Variables))
	for _, t := range p.Objective {
		c[t.Var] += t.Coef
	}
	return c
}

// integralObjective reports whether every integer-feasible point has an
// integral objective value, which lets the search round bounds up.
func (p *Problem) integralObjective(cost []float64) bool {
	for j, c := range cost {
		if c == 0 {
			continue
		}
		if p.Variables[j].Kind == Continuous || c != math.Trunc(c) {
			return false
		}
	}
	return true
}

// Evaluate returns the objective value at x.
func (p *Problem) Evaluate(x []float64) float64 {
	var z float64
	for _, t := range p.Objective {
		z += t.Coef * x[t.Var]
	}
	return z
}

// Status is the outcome of a solve.
type Status int

const (
	StatusUnknown    Status = iota // stopped (time/node limit) before any feasible point was found
	StatusOptimal                  // proven optimal
	StatusFeasible                 // feasible point found, optimality not proven
	StatusInfeasible               // proven infeasible
	StatusUnbounded                // objective unbounded below
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// HasSolution reports whether Values holds a feasible point.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "optimal":
		*s = StatusOptimal
	case "feasible":
		*s = StatusFeasible
	case "infeasible":
		*s = StatusInfeasible
	case "unbounded":
		*s = StatusUnbounded
	case "unknown", "":
		*s = StatusUnknown
	default:
		return errors.Errorf("milp: unknown status %q", text)
	}
	return nil
}

// Solution is what an Oracle reports back.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64 // one per variable; nil unless Status.HasSolution()
	Nodes     int       // relaxations solved
}

// Value returns the value of v, or 0 when the solution holds no point.
func (s *Solution) Value(v Var) float64 {
	if s == nil || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Oracle solves a Problem to optimality, or reports why it could not.
// Implementations must honour ctx cancellation by returning StatusFeasible
// (incumbent available) or StatusUnknown rather than an error.
type Oracle interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, p *Problem) (*Solution, error)

// Solve calls f(ctx, p).
func (f OracleFunc) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	return f(ctx, p)
}
