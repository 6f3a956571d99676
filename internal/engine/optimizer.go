package engine

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/piwi3910/BarCut/internal/milp"
	"github.com/piwi3910/BarCut/internal/model"
)

// Optimizer runs the two-phase cutting-stock optimization: a bar-minimizing
// packing followed by a descent over the number of distinct patterns.
type Optimizer struct {
	Settings model.CutSettings
	// Oracle solves every program the optimizer builds. New installs a
	// branch-and-bound oracle honouring Settings.NodeLimit.
	Oracle milp.Oracle
}

func New(settings model.CutSettings) *Optimizer {
	bnb := milp.NewBranchAndBound()
	bnb.NodeLimit = settings.NodeLimit
	return &Optimizer{Settings: settings, Oracle: bnb}
}

// Validate checks settings and pieces and returns the effective bar slot
// count and big-M constant. All failures are *ConfigError.
func Validate(settings model.CutSettings, pieces []model.PieceType) (maxBars, bigM int, err error) {
	if settings.StockLength <= 0 {
		return 0, 0, configErrorf("stock_length", "must be positive, got %d", settings.StockLength)
	}
	if !settings.DemandPolicy.Valid() {
		return 0, 0, configErrorf("demand_policy", "unknown policy %q", settings.DemandPolicy)
	}
	if settings.SolveTimeoutSec < 0 {
		return 0, 0, configErrorf("solve_timeout_sec", "must not be negative")
	}
	if settings.NodeLimit < 0 {
		return 0, 0, configErrorf("node_limit", "must not be negative")
	}

	demand, maxQty := 0, 0
	for i, p := range pieces {
		if p.Quantity < 0 {
			return 0, 0, configErrorf("pieces", "piece %d (%s) has negative quantity %d", i, p.Label, p.Quantity)
		}
		if p.Quantity == 0 {
			continue
		}
		if p.Length <= 0 {
			return 0, 0, configErrorf("pieces", "piece %d (%s) has non-positive length %d", i, p.Label, p.Length)
		}
		if p.Length > settings.StockLength {
			return 0, 0, configErrorf("pieces", "piece %d (%s) length %d exceeds stock length %d", i, p.Label, p.Length, settings.StockLength)
		}
		demand += p.Quantity
		if p.Quantity > maxQty {
			maxQty = p.Quantity
		}
	}

	maxBars = settings.MaxBars
	if maxBars < 0 {
		return 0, 0, configErrorf("max_bars", "must not be negative, got %d", maxBars)
	}
	// The homogeneous packing always fits, so more slots only grow the
	// model.
	bound := model.HomogeneousBarBound(pieces, settings.StockLength)
	if maxBars == 0 {
		maxBars = bound
	}
	if demand > 0 && maxBars < 1 {
		return 0, 0, configErrorf("max_bars", "must be at least 1 when pieces are demanded")
	}
	if demand > 0 && maxBars > bound {
		return 0, 0, configErrorf("max_bars", "%d exceeds %d, the bar count that always suffices", maxBars, bound)
	}

	bigM = settings.BigM
	if bigM < 0 {
		return 0, 0, configErrorf("big_m", "must not be negative, got %d", bigM)
	}
	if bigM == 0 {
		bigM = demand
		if bigM < 1 {
			bigM = 1
		}
	}
	if bigM < maxQty {
		return 0, 0, configErrorf("big_m", "%d is below the largest demanded quantity %d", bigM, maxQty)
	}
	return maxBars, bigM, nil
}

// Optimize runs both phases for pieces under o.Settings.
//
// Configuration problems return a *ConfigError before any solve. An
// infeasible or inconclusive packing phase returns ErrInfeasible or
// ErrSolverUnknown. Refinement failures never fail the run; they end the
// descent and are recorded in the result.
func (o *Optimizer) Optimize(ctx context.Context, jobName string, pieces []model.PieceType) (*model.OptimizeResult, error) {
	start := time.Now()
	s := o.Settings
	maxBars, bigM, err := Validate(s, pieces)
	if err != nil {
		return nil, err
	}

	oracle := o.Oracle
	if oracle == nil {
		oracle = New(s).Oracle
	}
	oracle = WithTimeout(oracle, s.Timeout())

	glog.Infof("engine: optimizing %q: %d piece types, %d pieces, stock %d, %d bar slots, policy %s",
		jobName, len(pieces), model.TotalDemand(pieces), s.StockLength, maxBars, s.DemandPolicy)

	initial, err := SolveInitial(ctx, oracle, s.StockLength, pieces, maxBars, s.DemandPolicy,
		WithSymmetryBreaking(s.SymmetryBreaking))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "engine: optimize cancelled")
		}
		return nil, err
	}
	glog.Infof("engine: initial packing %s: %d bars, %d patterns", initial.Status, initial.Plan.Bars(), len(initial.Patterns))

	refined, err := Refine(ctx, oracle, s.StockLength, pieces, initial.Patterns, bigM,
		WithWorkers(s.Parallel), WithStartPlan(initial.Plan))
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrap(ctxErr, "engine: optimize cancelled")
	}

	result := &model.OptimizeResult{
		ID:          uuid.New().String(),
		JobName:     jobName,
		CreatedAt:   time.Now().UTC(),
		StockLength: s.StockLength,
		Pieces:      pieces,
		Settings:    s,
		MaxBars:     maxBars,
		BigM:        bigM,
		Initial:     report(initial.Status, s.StockLength, pieces, initial.Plan),
		Refined: model.RefineReport{
			MinK:       refined.MinK,
			Steps:      refined.Steps,
			Stopped:    refined.Stopped,
			StopStatus: refined.StopStatus,
		},
		Estimate: model.CalculateBarEstimate(pieces, s.StockLength, s.WastePercent, s.PricePerBar),
	}
	if refined.Best != nil {
		best := report(refined.Best.Status, s.StockLength, pieces, refined.Best.Plan)
		result.Refined.Best = &best
	}
	result.Offcuts = model.DetectOffcuts(result.Best().Plan, pieces, s.StockLength, s.MinOffcut, s.PricePerBar)
	result.ElapsedMS = time.Since(start).Milliseconds()

	best := result.Best()
	glog.Infof("engine: %q done in %dms: %d bars, %d patterns, waste %d (lower bound %d)",
		jobName, result.ElapsedMS, best.Bars, best.Patterns, best.Waste, result.Estimate.LowerBound)
	return result, nil
}

// OptimizeJob runs Optimize with the job's own settings.
func OptimizeJob(ctx context.Context, job model.Job) (*model.OptimizeResult, error) {
	return New(job.Settings).Optimize(ctx, job.Name, job.Pieces)
}

// timeoutOracle bounds every Solve call with its own deadline.
type timeoutOracle struct {
	oracle  milp.Oracle
	timeout time.Duration
}

// WithTimeout wraps oracle so that each Solve runs under
// context.WithTimeout(ctx, d). A non-positive d returns oracle unchanged.
func WithTimeout(oracle milp.Oracle, d time.Duration) milp.Oracle {
	if d <= 0 {
		return oracle
	}
	return timeoutOracle{oracle: oracle, timeout: d}
}

func (t timeoutOracle) Solve(ctx context.Context, p *milp.Problem) (*milp.Solution, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.oracle.Solve(ctx, p)
}
