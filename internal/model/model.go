package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PieceType is a required cut length with its demand. Piece types are
// identified by their position in the job's piece list; every Pattern and
// quantity vector is aligned with that order.
type PieceType struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Length   int    `json:"length"`   // mm
	Quantity int    `json:"quantity"` // required pieces
}

func NewPieceType(label string, length, qty int) PieceType {
	return PieceType{
		ID:       uuid.New().String()[:8],
		Label:    label,
		Length:   length,
		Quantity: qty,
	}
}

// EnsureID assigns a fresh ID when the piece has none, as happens for
// pieces read from hand-written job files or API requests.
func (p *PieceType) EnsureID() {
	if p.ID == "" {
		p.ID = uuid.New().String()[:8]
	}
}

// Lengths returns the piece lengths in list order.
func Lengths(pieces []PieceType) []int {
	out := make([]int, len(pieces))
	for i, p := range pieces {
		out[i] = p.Length
	}
	return out
}

// Quantities returns the required quantities in list order.
func Quantities(pieces []PieceType) []int {
	out := make([]int, len(pieces))
	for i, p := range pieces {
		out[i] = p.Quantity
	}
	return out
}

// TotalDemand returns the sum of required quantities.
func TotalDemand(pieces []PieceType) int {
	total := 0
	for _, p := range pieces {
		total += p.Quantity
	}
	return total
}

// TotalLength returns the summed length of all required pieces.
func TotalLength(pieces []PieceType) int {
	total := 0
	for _, p := range pieces {
		total += p.Length * p.Quantity
	}
	return total
}

// Pattern is one way of cutting a single stock bar: Pattern[i] pieces of
// piece type i. Two patterns are the same iff their count vectors match.
type Pattern []int

// Key returns the canonical ordered-tuple key, e.g. "3,0,1".
func (p Pattern) Key() string {
	var sb strings.Builder
	for i, c := range p {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(c))
	}
	return sb.String()
}

// UsedLength returns the total length of the pieces cut by the pattern.
func (p Pattern) UsedLength(pieces []PieceType) int {
	used := 0
	for i, c := range p {
		used += c * pieces[i].Length
	}
	return used
}

// Waste returns the unused remainder of one stock bar, never negative.
func (p Pattern) Waste(stockLength int, pieces []PieceType) int {
	w := stockLength - p.UsedLength(pieces)
	if w < 0 {
		return 0
	}
	return w
}

// Fits reports whether the pattern respects the stock length.
func (p Pattern) Fits(stockLength int, pieces []PieceType) bool {
	return p.UsedLength(pieces) <= stockLength
}

// Cuts returns the number of pieces the pattern produces.
func (p Pattern) Cuts() int {
	n := 0
	for _, c := range p {
		n += c
	}
	return n
}

// IsEmpty reports whether the pattern cuts nothing.
func (p Pattern) IsEmpty() bool {
	return p.Cuts() == 0
}

// Clone returns an independent copy.
func (p Pattern) Clone() Pattern {
	if p == nil {
		return nil
	}
	cp := make(Pattern, len(p))
	copy(cp, p)
	return cp
}

// Describe renders the pattern as "3x100 + 1x53".
func (p Pattern) Describe(pieces []PieceType) string {
	var parts []string
	for i, c := range p {
		if c == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%dx%d", c, pieces[i].Length))
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " + ")
}

// PatternUse is a pattern together with the number of bars cut with it.
type PatternUse struct {
	Pattern Pattern `json:"pattern"`
	Uses    int     `json:"uses"`
}

// Plan is a pattern-count solution: which patterns to cut and how often.
type Plan []PatternUse

// Bars returns the number of stock bars the plan consumes.
func (pl Plan) Bars() int {
	total := 0
	for _, u := range pl {
		total += u.Uses
	}
	return total
}

// Distinct returns the number of distinct patterns in the plan.
func (pl Plan) Distinct() int {
	return len(pl)
}

// Patterns returns the plan's patterns in order.
func (pl Plan) Patterns() []Pattern {
	out := make([]Pattern, len(pl))
	for i, u := range pl {
		out[i] = u.Pattern
	}
	return out
}

// Clone returns a deep copy.
func (pl Plan) Clone() Plan {
	if pl == nil {
		return nil
	}
	cp := make(Plan, len(pl))
	for i, u := range pl {
		cp[i] = PatternUse{Pattern: u.Pattern.Clone(), Uses: u.Uses}
	}
	return cp
}

// DemandPolicy selects how produced quantities relate to demand in the
// initial packing phase.
type DemandPolicy string

const (
	DemandAtLeast DemandPolicy = "at_least" // produced >= required; surplus is excess
	DemandExact   DemandPolicy = "exact"    // produced == required
)

// Valid reports whether the policy is a known value.
func (d DemandPolicy) Valid() bool {
	return d == DemandAtLeast || d == DemandExact
}

// CutSettings holds optimizer configuration for a job.
type CutSettings struct {
	StockLength  int          `json:"stock_length"`  // Raw bar length in mm
	MaxBars      int          `json:"max_bars"`      // Bar slots offered to the packing model; 0 = homogeneous-pattern bound
	BigM         int          `json:"big_m"`         // Usage/selection link constant; 0 = total demand
	DemandPolicy DemandPolicy `json:"demand_policy"` // "at_least" or "exact"

	// Solver budget
	SolveTimeoutSec  float64 `json:"solve_timeout_sec"` // Wall-clock budget per solver call; 0 = none
	NodeLimit        int     `json:"node_limit"`        // Branch-and-bound nodes per solver call; 0 = none
	SymmetryBreaking bool    `json:"symmetry_breaking"` // Order bar slots so used slots come first
	Parallel         int     `json:"parallel"`          // Concurrent refinement solves; <= 1 is sequential

	// Reporting
	MinOffcut    int     `json:"min_offcut"`    // Remnants at least this long are reusable offcuts
	WastePercent float64 `json:"waste_percent"` // Safety margin for the purchase estimate
	PricePerBar  float64 `json:"price_per_bar"` // Cost of one stock bar, 0 if unknown
}

func DefaultSettings() CutSettings {
	return CutSettings{
		StockLength:      6000,
		MaxBars:          0,
		BigM:             0,
		DemandPolicy:     DemandAtLeast,
		SolveTimeoutSec:  30,
		NodeLimit:        0,
		SymmetryBreaking: true,
		Parallel:         1,
		MinOffcut:        300,
		WastePercent:     10,
		PricePerBar:      0,
	}
}

// Timeout returns the per-solve wall-clock budget, or 0 when unlimited.
func (s CutSettings) Timeout() time.Duration {
	if s.SolveTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(s.SolveTimeoutSec * float64(time.Second))
}

// Job ties everything together for save/load.
type Job struct {
	Name     string          `json:"name"`
	Pieces   []PieceType     `json:"pieces"`
	Settings CutSettings     `json:"settings"`
	Result   *OptimizeResult `json:"result,omitempty"`
}

func NewJob() Job {
	return Job{
		Name:     "Untitled",
		Pieces:   []PieceType{},
		Settings: DefaultSettings(),
	}
}

// copyPieces returns a copy of a piece slice, never nil.
func copyPieces(pieces []PieceType) []PieceType {
	if pieces == nil {
		return []PieceType{}
	}
	cp := make([]PieceType, len(pieces))
	copy(cp, pieces)
	return cp
}
