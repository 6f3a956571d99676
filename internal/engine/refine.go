package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/piwi3910/BarCut/internal/milp"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/parallel"
)

// Candidate is the plan accepted at one cardinality cap.
type Candidate struct {
	K      int
	Status milp.Status
	Plan   model.Plan
	Bars   int
	Waste  int
}

// better orders candidates by fewer bars, then less waste, then fewer
// distinct patterns. A nil b is beaten by anything.
func better(a, b *Candidate) bool {
	if b == nil {
		return true
	}
	if a.Bars != b.Bars {
		return a.Bars < b.Bars
	}
	if a.Waste != b.Waste {
		return a.Waste < b.Waste
	}
	return a.Plan.Distinct() < b.Plan.Distinct()
}

// RefineOutcome is the result of the descent over k.
type RefineOutcome struct {
	// Best is nil only when the very first cap, k = P, could not be solved.
	Best  *Candidate
	MinK  int
	Steps []model.RefineStep
	// Stopped is set when a failing step ended the descent. StopStatus is
	// then infeasible or unknown.
	Stopped    bool
	StopStatus milp.Status
}

// RefineOption tunes the refinement loop.
type RefineOption func(*refineConfig)

type refineConfig struct {
	workers int
	start   model.Plan
}

// WithWorkers solves the caps on a pool of n goroutines. Results are still
// folded in descending k and cut at the first failure, so the outcome is
// the same as the sequential loop; work past the failure is discarded.
func WithWorkers(n int) RefineOption {
	return func(c *refineConfig) { c.workers = n }
}

// WithStartPlan offers plan, built from the refined patterns, as the first
// incumbent of every cap it fits under. Optimize passes the initial
// packing, which always fits k = P. Sequential and parallel runs use the
// same start, so they still agree.
func WithStartPlan(plan model.Plan) RefineOption {
	return func(c *refineConfig) { c.start = plan }
}

// pickStart returns plan when it uses at most k distinct patterns, or nil.
func pickStart(k int, plan model.Plan) model.Plan {
	if len(plan) == 0 || plan.Distinct() > k {
		return nil
	}
	return plan
}

// refineModel is the pattern-selection program for one cap k:
//
//	minimize Σ_h z[h]
//	Σ_h count[h][i] * z[h] >= q_i   for every demanded piece type i
//	w[h] <= z[h] <= bigM * w[h]
//	Σ_h w[h] <= k
//
// with z integer >= 0 and w binary. w[h] = 1 with z[h] = 0 is allowed;
// minimizing Σ z never needs it.
type refineModel struct {
	problem *milp.Problem
	z       []milp.Var
	w       []milp.Var
}

func buildRefineModel(pieces []model.PieceType, patterns []model.Pattern, bigM, k int) *refineModel {
	p := milp.NewProblem(fmt.Sprintf("refine(P=%d,k=%d)", len(patterns), k))
	m := &refineModel{
		problem: p,
		z:       make([]milp.Var, len(patterns)),
		w:       make([]milp.Var, len(patterns)),
	}
	for h := range patterns {
		m.z[h] = p.AddVariable(fmt.Sprintf("z[%d]", h), milp.Integer, 0, math.Inf(1))
		m.w[h] = p.AddVariable(fmt.Sprintf("w[%d]", h), milp.Binary, 0, 1)
	}

	obj := make([]milp.Term, len(patterns))
	for h, z := range m.z {
		obj[h] = milp.T(z, 1)
	}
	p.SetObjective(obj...)

	for i, pc := range pieces {
		if pc.Quantity <= 0 {
			continue
		}
		var terms []milp.Term
		for h, pat := range patterns {
			if pat[i] > 0 {
				terms = append(terms, milp.T(m.z[h], float64(pat[i])))
			}
		}
		p.AddConstraint(fmt.Sprintf("demand[%d]", i), milp.GreaterEqual, float64(pc.Quantity), terms...)
	}

	card := make([]milp.Term, len(patterns))
	for h := range patterns {
		p.AddConstraint(fmt.Sprintf("select[%d]", h), milp.LessEqual, 0,
			milp.T(m.w[h], 1), milp.T(m.z[h], -1))
		p.AddConstraint(fmt.Sprintf("link[%d]", h), milp.LessEqual, 0,
			milp.T(m.z[h], 1), milp.T(m.w[h], -float64(bigM)))
		card[h] = milp.T(m.w[h], 1)
	}
	p.AddConstraint("cardinality", milp.LessEqual, float64(k), card...)
	return m
}

// setStart offers plan as a known solution. Plans using a pattern outside
// the model are skipped.
func (m *refineModel) setStart(plan model.Plan, patterns []model.Pattern) {
	index := make(map[string]int, len(patterns))
	for h, pat := range patterns {
		if _, ok := index[pat.Key()]; !ok {
			index[pat.Key()] = h
		}
	}
	values := make(map[milp.Var]float64)
	for _, u := range plan {
		h, ok := index[u.Pattern.Key()]
		if !ok || u.Uses <= 0 {
			return
		}
		values[m.z[h]] += float64(u.Uses)
		values[m.w[h]] = 1
	}
	m.problem.SetStart(values)
}

// extract returns the (pattern, uses) pairs with uses > 0, in pattern
// order.
func (m *refineModel) extract(sol *milp.Solution, patterns []model.Pattern) model.Plan {
	plan := model.Plan{}
	for h, pat := range patterns {
		uses := int(math.Round(sol.Value(m.z[h])))
		if uses > 0 {
			plan = append(plan, model.PatternUse{Pattern: pat.Clone(), Uses: uses})
		}
	}
	return plan
}

// stepResult is one solved cap before it is folded.
type stepResult struct {
	k      int
	status milp.Status
	plan   model.Plan
	err    error
}

func solveStep(ctx context.Context, oracle milp.Oracle, pieces []model.PieceType, patterns []model.Pattern, bigM, k int, start model.Plan) stepResult {
	m := buildRefineModel(pieces, patterns, bigM, k)
	if start != nil {
		m.setStart(start, patterns)
	}
	sol, err := oracle.Solve(ctx, m.problem)
	if err != nil {
		return stepResult{k: k, err: errors.Wrapf(err, "engine: refinement at k=%d", k)}
	}
	res := stepResult{k: k, status: sol.Status}
	if sol.Status.HasSolution() {
		res.plan = m.extract(sol, patterns)
		if !SatisfiesDemand(pieces, res.plan, false) {
			res.err = errors.Errorf("engine: refinement at k=%d returned a plan that misses demand", k)
		}
	}
	return res
}

// Refine re-solves the bar-minimization over the frozen pattern list with
// at most k distinct patterns, for k = P down to 1, where P = len(patterns).
// The descent stops at the first cap that is infeasible or inconclusive;
// feasibility is monotone in k, so no smaller cap can succeed after that.
//
// A failing step is not an error. Errors are returned only for oracle
// failures, together with the outcome folded so far.
func Refine(ctx context.Context, oracle milp.Oracle, stockLength int, pieces []model.PieceType, patterns []model.Pattern, bigM int, opts ...RefineOption) (*RefineOutcome, error) {
	cfg := refineConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := &RefineOutcome{Steps: []model.RefineStep{}}
	if len(patterns) == 0 {
		if model.TotalDemand(pieces) > 0 {
			out.Stopped = true
			out.StopStatus = milp.StatusInfeasible
			return out, nil
		}
		out.Best = &Candidate{K: 0, Status: milp.StatusOptimal, Plan: model.Plan{}}
		return out, nil
	}

	if cfg.workers > 1 && len(patterns) > 1 {
		results, err := solveAllCaps(ctx, oracle, pieces, patterns, bigM, cfg.workers, cfg.start)
		if err != nil {
			return out, err
		}
		i := 0
		next := func() stepResult {
			r := results[i]
			i++
			return r
		}
		return fold(out, stockLength, pieces, len(patterns), next)
	}

	k := len(patterns)
	next := func() stepResult {
		r := solveStep(ctx, oracle, pieces, patterns, bigM, k, pickStart(k, cfg.start))
		k--
		return r
	}
	return fold(out, stockLength, pieces, len(patterns), next)
}

// fold consumes step results for k = P down to 1 and threads the best
// candidate through them.
func fold(out *RefineOutcome, stockLength int, pieces []model.PieceType, numPatterns int, next func() stepResult) (*RefineOutcome, error) {
	for k := numPatterns; k >= 1; k-- {
		r := next()
		if r.err != nil {
			return out, r.err
		}
		step := model.RefineStep{K: r.k, Status: r.status}
		if !r.status.HasSolution() {
			out.Steps = append(out.Steps, step)
			out.Stopped = true
			out.StopStatus = r.status
			glog.V(1).Infof("engine: refinement stopped at k=%d (%s)", r.k, r.status)
			return out, nil
		}

		cand := &Candidate{
			K:      r.k,
			Status: r.status,
			Plan:   r.plan,
			Bars:   r.plan.Bars(),
			Waste:  Waste(stockLength, pieces, r.plan),
		}
		step.Bars = cand.Bars
		step.Patterns = cand.Plan.Distinct()
		step.Waste = cand.Waste
		if better(cand, out.Best) {
			out.Best = cand
			step.Accepted = true
		}
		out.Steps = append(out.Steps, step)
		out.MinK = r.k
		glog.V(1).Infof("engine: k=%d %s: %d bars, %d patterns, waste %d (accepted=%v)",
			r.k, r.status, step.Bars, step.Patterns, step.Waste, step.Accepted)
	}
	return out, nil
}

// solveAllCaps solves every cap concurrently and returns the results in
// descending k. Caps below a failing cap are cancelled once the failure is
// seen; their results are never folded.
func solveAllCaps(ctx context.Context, oracle milp.Oracle, pieces []model.PieceType, patterns []model.Pattern, bigM, workers int, start model.Plan) ([]stepResult, error) {
	numPatterns := len(patterns)
	if workers > numPatterns {
		workers = numPatterns
	}
	pool := parallel.NewWorkerPool(workers)
	defer pool.Shutdown()

	// One cancel per cap so a failure at k only stops caps below k.
	results := make([]stepResult, numPatterns)
	cancels := make([]context.CancelFunc, numPatterns)
	ctxs := make([]context.Context, numPatterns)
	for idx := range results {
		ctxs[idx], cancels[idx] = context.WithCancel(ctx)
	}
	defer func() {
		for _, c := range cancels {
			c()
		}
	}()

	for idx := 0; idx < numPatterns; idx++ {
		idx := idx
		k := numPatterns - idx
		err := pool.Submit(ctx, func() {
			r := solveStep(ctxs[idx], oracle, pieces, patterns, bigM, k, pickStart(k, start))
			results[idx] = r
			if r.err == nil && !r.status.HasSolution() {
				for below := idx + 1; below < numPatterns; below++ {
					cancels[below]()
				}
			}
		})
		if err != nil {
			pool.Wait()
			return nil, errors.Wrap(err, "engine: scheduling refinement")
		}
	}
	pool.Wait()
	return results, nil
}
