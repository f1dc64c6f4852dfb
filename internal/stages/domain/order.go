// Package domain holds the pure pipeline-stage ordering rules: sort-key
// allocation for adjacent inserts, precision-exhaustion detection, and the
// spacing used by a full reindex. No I/O lives here.
package domain

// OrderStep is the spacing between consecutive stages after a full reindex.
// A large step leaves room for many midpoint insertions before the float
// precision between two neighbors runs out again.
const OrderStep = 1024.0

// Placement says on which side of the pivot a new stage is inserted.
type Placement string

const (
	PlacementBefore Placement = "before"
	PlacementAfter  Placement = "after"
)

// ParsePlacement validates a raw placement string.
func ParsePlacement(raw string) (Placement, bool) {
	switch Placement(raw) {
	case PlacementBefore:
		return PlacementBefore, true
	case PlacementAfter:
		return PlacementAfter, true
	default:
		return "", false
	}
}

// Midpoint returns the arithmetic midpoint of a and b and reports whether it
// is strictly between them. When the float64 gap between a and b can no
// longer be subdivided the midpoint collapses onto one of its operands; that
// is the signal to reindex the whole list.
func Midpoint(a, b float64) (float64, bool) {
	mid := a + (b-a)/2
	if mid == a || mid == b {
		return 0, false
	}
	return mid, true
}

// AllocateAdjacent computes the sort key for a stage placed immediately
// before or after a pivot. neighbor is the sort key of the stage on the
// requested side, nil when the pivot is first/last. The returned key is
// strictly between pivot and neighbor (or strictly beyond the boundary).
// ok is false when precision between pivot and neighbor is exhausted.
func AllocateAdjacent(pivot float64, neighbor *float64, where Placement) (float64, bool) {
	if neighbor == nil {
		if where == PlacementBefore {
			return pivot - 1, true
		}
		return pivot + 1, true
	}
	return Midpoint(pivot, *neighbor)
}

// ReindexedOrder returns the sort key assigned to the stage at the given
// zero-based position by a full reindex.
func ReindexedOrder(position int) float64 {
	return float64(position+1) * OrderStep
}
