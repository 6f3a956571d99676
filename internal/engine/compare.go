package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/BarCut/internal/model"
)

// ComparisonScenario defines a named set of settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.CutSettings
}

// ComparisonResult holds the optimization result and computed statistics
// for a single scenario. Err is set when the scenario failed; Result is
// then nil.
type ComparisonResult struct {
	Scenario        ComparisonScenario
	Result          *model.OptimizeResult
	Err             error
	InitialBars     int
	Bars            int
	Patterns        int
	Waste           int
	WastePercent    float64
	MinPatternLimit int
}

// CompareScenarios runs the optimizer for each scenario and returns the
// results in scenario order. A failing scenario is reported in its own
// row and does not stop the others; only cancellation of ctx does.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, pieces []model.PieceType) ([]ComparisonResult, error) {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		row := ComparisonResult{Scenario: scenario}
		result, err := New(scenario.Settings).Optimize(ctx, scenario.Name, pieces)
		if err != nil {
			row.Err = err
			results = append(results, row)
			continue
		}

		best := result.Best()
		row.Result = result
		row.InitialBars = result.Initial.Bars
		row.Bars = best.Bars
		row.Patterns = best.Patterns
		row.Waste = best.Waste
		row.WastePercent = 100.0 - result.Efficiency()
		if best.Bars == 0 {
			row.WastePercent = 0
		}
		row.MinPatternLimit = result.Refined.MinK
		results = append(results, row)
	}

	return results, nil
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current settings, varying key parameters to show what-if alternatives.
func BuildDefaultScenarios(baseSettings model.CutSettings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Settings: baseSettings,
		},
	}

	// Scenario: the other demand policy
	altPolicy := baseSettings
	if baseSettings.DemandPolicy == model.DemandExact {
		altPolicy.DemandPolicy = model.DemandAtLeast
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "At-least Demand",
			Settings: altPolicy,
		})
	} else {
		altPolicy.DemandPolicy = model.DemandExact
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "Exact Demand",
			Settings: altPolicy,
		})
	}

	// Scenario: no symmetry-breaking rows (same answer, different search)
	if baseSettings.SymmetryBreaking {
		noSym := baseSettings
		noSym.SymmetryBreaking = false
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "No Symmetry Breaking",
			Settings: noSym,
		})
	}

	// Scenario: double the solver budget
	if baseSettings.SolveTimeoutSec > 0 {
		longer := baseSettings
		longer.SolveTimeoutSec = baseSettings.SolveTimeoutSec * 2
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Timeout %.0fs (double)", longer.SolveTimeoutSec),
			Settings: longer,
		})
	}

	return scenarios
}
