package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/BarCut/internal/model"
)

// minMemberLength is the shortest straight segment, in mm, that is read as
// a member. Shorter segments are hatching or drafting noise.
const minMemberLength = 1.0

// ImportDXF imports pieces from a frame drawing. Every LINE and every
// straight LWPOLYLINE segment is one member; members are grouped by their
// length rounded to whole millimetres, and each group becomes one piece
// type with the member count as quantity.
func ImportDXF(path string) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var lengths []float64
	skippedArcs := 0
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.Line:
			lengths = append(lengths, distance(e.Start[0], e.Start[1], e.End[0], e.End[1]))

		case *entity.LwPolyline:
			segs, arcs := polylineMembers(e)
			lengths = append(lengths, segs...)
			skippedArcs += arcs

		case *entity.Arc, *entity.Circle:
			skippedArcs++

		default:
			// Text, dimensions and the like carry no members
		}
	}
	if skippedArcs > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Skipped %d curved segments; only straight members are imported", skippedArcs))
	}

	counts := make(map[int]int)
	for _, l := range lengths {
		if l < minMemberLength {
			continue
		}
		counts[int(math.Round(l))]++
	}
	if len(counts) == 0 {
		result.Errors = append(result.Errors, "No straight members found in DXF file")
		return result
	}

	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	for _, length := range keys {
		result.Pieces = append(result.Pieces,
			model.NewPieceType(fmt.Sprintf("DXF %d", length), length, counts[length]))
	}
	return result
}

// polylineMembers returns the straight segment lengths of a polyline and
// the number of bulged (curved) segments it skipped.
func polylineMembers(lw *entity.LwPolyline) ([]float64, int) {
	n := len(lw.Vertices)
	if n < 2 {
		return nil, 0
	}
	last := n - 1
	if lw.Closed {
		last = n
	}

	var out []float64
	arcs := 0
	for i := 0; i < last; i++ {
		if i < len(lw.Bulges) && math.Abs(lw.Bulges[i]) > 1e-9 {
			arcs++
			continue
		}
		a, b := lw.Vertices[i], lw.Vertices[(i+1)%n]
		out = append(out, distance(a[0], a[1], b[0], b[1]))
	}
	return out, arcs
}

func distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
