package domain

import (
	"math"
	"sort"
	"testing"
)

func TestMidpointIsStrictlyBetween(t *testing.T) {
	cases := []struct{ a, b float64 }{
		{1, 2},
		{1024, 2048},
		{-5, -4},
		{0.5, 0.5000001},
	}

	for _, tc := range cases {
		mid, ok := Midpoint(tc.a, tc.b)
		if !ok {
			t.Fatalf("Midpoint(%v, %v) reported exhaustion", tc.a, tc.b)
		}
		if !(tc.a < mid && mid < tc.b) {
			t.Fatalf("Midpoint(%v, %v) = %v is not strictly between", tc.a, tc.b, mid)
		}
	}
}

func TestMidpointDetectsExhaustedPrecision(t *testing.T) {
	a := 1.0
	b := math.Nextafter(a, 2)

	if _, ok := Midpoint(a, b); ok {
		t.Fatalf("expected exhaustion between adjacent float64 values %v and %v", a, b)
	}
	if _, ok := Midpoint(a, a); ok {
		t.Fatal("expected exhaustion for equal operands")
	}
}

func TestAllocateAdjacentBoundaries(t *testing.T) {
	got, ok := AllocateAdjacent(3, nil, PlacementBefore)
	if !ok || got != 2 {
		t.Fatalf("before first stage: got %v ok=%v, want 2", got, ok)
	}

	got, ok = AllocateAdjacent(3, nil, PlacementAfter)
	if !ok || got != 4 {
		t.Fatalf("after last stage: got %v ok=%v, want 4", got, ok)
	}
}

func TestAllocateAdjacentBetweenNeighbors(t *testing.T) {
	neighbor := 2.0
	got, ok := AllocateAdjacent(1, &neighbor, PlacementAfter)
	if !ok {
		t.Fatal("unexpected exhaustion")
	}
	if !(1 < got && got < 2) {
		t.Fatalf("got %v, want value strictly between 1 and 2", got)
	}
}

// Simulates an arbitrary sequence of adjacent inserts and checks the list,
// sorted by its keys, matches the requested insertion positions.
func TestInterleavedInsertsPreserveRequestedOrder(t *testing.T) {
	type stage struct {
		name string
		key  float64
	}

	stagesByKey := []stage{{name: "A", key: 1}, {name: "B", key: 2}}

	insert := func(pivotName string, where Placement, name string) {
		sort.Slice(stagesByKey, func(i, j int) bool { return stagesByKey[i].key < stagesByKey[j].key })
		idx := -1
		for i, s := range stagesByKey {
			if s.name == pivotName {
				idx = i
			}
		}
		if idx < 0 {
			t.Fatalf("pivot %q not found", pivotName)
		}

		var neighbor *float64
		if where == PlacementBefore && idx > 0 {
			neighbor = &stagesByKey[idx-1].key
		}
		if where == PlacementAfter && idx < len(stagesByKey)-1 {
			neighbor = &stagesByKey[idx+1].key
		}

		key, ok := AllocateAdjacent(stagesByKey[idx].key, neighbor, where)
		if !ok {
			t.Fatalf("unexpected exhaustion inserting %q", name)
		}
		stagesByKey = append(stagesByKey, stage{name: name, key: key})
	}

	insert("A", PlacementAfter, "A1")  // A A1 B
	insert("A1", PlacementAfter, "A2") // A A1 A2 B
	insert("A1", PlacementBefore, "A0") // A A0 A1 A2 B
	insert("B", PlacementAfter, "C")   // A A0 A1 A2 B C
	insert("A", PlacementBefore, "Z")  // Z A A0 A1 A2 B C

	sort.Slice(stagesByKey, func(i, j int) bool { return stagesByKey[i].key < stagesByKey[j].key })

	want := []string{"Z", "A", "A0", "A1", "A2", "B", "C"}
	if len(stagesByKey) != len(want) {
		t.Fatalf("got %d stages, want %d", len(stagesByKey), len(want))
	}
	for i, name := range want {
		if stagesByKey[i].name != name {
			t.Fatalf("position %d: got %q, want %q", i, stagesByKey[i].name, name)
		}
	}
	for i := 1; i < len(stagesByKey); i++ {
		if !(stagesByKey[i-1].key < stagesByKey[i].key) {
			t.Fatalf("sort keys not strictly increasing at position %d", i)
		}
	}
}

func TestReindexedOrderSpacing(t *testing.T) {
	if got := ReindexedOrder(0); got != 1024 {
		t.Fatalf("first position: got %v, want 1024", got)
	}
	if got := ReindexedOrder(4); got != 5120 {
		t.Fatalf("fifth position: got %v, want 5120", got)
	}
}
