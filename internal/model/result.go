package model

import (
	"time"

	"github.com/piwi3910/BarCut/internal/milp"
)

// PhaseReport describes one pattern-count solution and its accounting.
type PhaseReport struct {
	Status       milp.Status `json:"status"`
	Plan         Plan        `json:"plan"`
	Bars         int         `json:"bars"`
	Patterns     int         `json:"patterns"` // distinct patterns in Plan
	Waste        int         `json:"waste"`    // mm left over across all bars
	Produced     []int       `json:"produced"`
	Excess       []int       `json:"excess"`
	ExcessLength int         `json:"excess_length"` // mm of over-produced pieces
}

// RefineStep records the outcome of one cardinality cap k.
type RefineStep struct {
	K        int         `json:"k"`
	Status   milp.Status `json:"status"`
	Bars     int         `json:"bars,omitempty"`
	Patterns int         `json:"patterns,omitempty"`
	Waste    int         `json:"waste,omitempty"`
	Accepted bool        `json:"accepted"` // replaced the best so far
}

// RefineReport summarizes the descent over k.
type RefineReport struct {
	Best *PhaseReport `json:"best,omitempty"`
	// MinK is the smallest cap that was solved successfully.
	MinK  int          `json:"min_k"`
	Steps []RefineStep `json:"steps"`
	// Stopped is set when a step ended the descent; StopStatus is then
	// infeasible or unknown.
	Stopped    bool        `json:"stopped"`
	StopStatus milp.Status `json:"stop_status"`
}

// OptimizeResult holds the output of a full two-phase run.
type OptimizeResult struct {
	ID          string       `json:"id"`
	JobName     string       `json:"job_name"`
	CreatedAt   time.Time    `json:"created_at"`
	StockLength int          `json:"stock_length"`
	Pieces      []PieceType  `json:"pieces"`
	Settings    CutSettings  `json:"settings"`
	MaxBars     int          `json:"max_bars"` // effective slot count
	BigM        int          `json:"big_m"`    // effective linking constant
	Initial     PhaseReport  `json:"initial"`
	Refined     RefineReport `json:"refined"`
	Estimate    BarEstimate  `json:"estimate"`
	Offcuts     []Offcut     `json:"offcuts"`
	ElapsedMS   int64        `json:"elapsed_ms"`
}

// Best returns the refined best plan, falling back to the initial plan
// when refinement produced nothing.
func (r OptimizeResult) Best() PhaseReport {
	if r.Refined.Best != nil {
		return *r.Refined.Best
	}
	return r.Initial
}

// UnplacedCount returns how many required pieces the best plan fails to
// produce. It is zero for every successful run.
func (r OptimizeResult) UnplacedCount() int {
	best := r.Best()
	missing := 0
	for i, p := range r.Pieces {
		produced := 0
		if i < len(best.Produced) {
			produced = best.Produced[i]
		}
		if produced < p.Quantity {
			missing += p.Quantity - produced
		}
	}
	return missing
}

// Efficiency returns the share of consumed stock length that ends up in
// pieces, as a percentage.
func (r OptimizeResult) Efficiency() float64 {
	best := r.Best()
	total := best.Bars * r.StockLength
	if total == 0 {
		return 0
	}
	return float64(total-best.Waste) / float64(total) * 100
}
