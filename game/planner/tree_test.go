package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wricardo/magic-maze/game/engine"
)

var (
	north = engine.NewAction(engine.MoveNorth)
	east  = engine.NewAction(engine.MoveEast)
	south = engine.NewAction(engine.MoveSouth)
	west  = engine.NewAction(engine.MoveWest)
)

func TestTreeEmpty(t *testing.T) {
	tree := NewTree()
	if !tree.IsEmpty() {
		t.Error("new tree should be empty")
	}
	if _, ok := tree.BestAction(); ok {
		t.Error("empty tree should have no best action")
	}
	tree.AddRoute(nil, 3)
	if !tree.IsEmpty() {
		t.Error("adding an empty route should not change the tree")
	}
}

func TestTreeBestAction(t *testing.T) {
	tree := NewTree()
	tree.AddRoute([]engine.Action{north, north}, 1)
	tree.AddRoute([]engine.Action{east, north}, 4)
	tree.AddRoute([]engine.Action{north, east}, 2)

	best, ok := tree.BestAction()
	if !ok || best != east {
		t.Fatalf("Expected east, got %v (%v)", best, ok)
	}
	if p, _ := tree.Priority(north); p != 2 {
		t.Errorf("Expected north subtree priority 2, got %v", p)
	}
}

func TestTreeTieKeepsFirstInserted(t *testing.T) {
	tree := NewTree()
	tree.AddRoute([]engine.Action{west}, 2)
	tree.AddRoute([]engine.Action{south}, 2)
	tree.AddRoute([]engine.Action{north}, 1)

	for i := 0; i < 10; i++ {
		best, ok := tree.BestAction()
		if !ok || best != west {
			t.Fatalf("Expected west on a tie, got %v", best)
		}
	}
}

func TestTreeIgnoresNonPositive(t *testing.T) {
	tree := NewTree()
	tree.AddRoute([]engine.Action{north}, 0)
	tree.AddRoute([]engine.Action{east}, -1)
	if tree.IsEmpty() {
		t.Fatal("routes should still be stored")
	}
	if best, ok := tree.BestAction(); ok {
		t.Errorf("Expected no decision, got %v", best)
	}
}

// Every node's priority is the maximum of the leaves below it.
func TestTreeMonotonicity(t *testing.T) {
	tree := NewTree()
	routes := []Route{
		{Actions: []engine.Action{north, north, east}, Priority: 1},
		{Actions: []engine.Action{north, north, west}, Priority: 3},
		{Actions: []engine.Action{north, east}, Priority: 2},
		{Actions: []engine.Action{south}, Priority: 0.5},
	}
	for _, r := range routes {
		tree.AddRoute(r.Actions, r.Priority)
	}

	tests := []struct {
		prefix []engine.Action
		want   float64
	}{
		{[]engine.Action{north}, 3},
		{[]engine.Action{north, north}, 3},
		{[]engine.Action{north, north, east}, 1},
		{[]engine.Action{north, east}, 2},
		{[]engine.Action{south}, 0.5},
	}
	for _, tt := range tests {
		got, ok := tree.Priority(tt.prefix...)
		if !ok || got != tt.want {
			t.Errorf("Priority(%v) = %v, %v; want %v", tt.prefix, got, ok, tt.want)
		}
	}
	if _, ok := tree.Priority(west); ok {
		t.Error("Expected no subtree under west")
	}
	if diff := cmp.Diff(routes, tree.Routes()); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeTakeAction(t *testing.T) {
	tree := NewTree()
	tree.AddRoute([]engine.Action{north, east, east}, 2)
	tree.AddRoute([]engine.Action{west}, 1)

	if !tree.TakeAction(north) {
		t.Fatal("north should be taken")
	}
	want := []Route{{Actions: []engine.Action{east, east}, Priority: 2}}
	if diff := cmp.Diff(want, tree.Routes()); diff != "" {
		t.Errorf("routes after take (-want +got):\n%s", diff)
	}

	before := tree.Routes()
	if tree.TakeAction(west) {
		t.Fatal("west is no longer a branch")
	}
	if diff := cmp.Diff(before, tree.Routes()); diff != "" {
		t.Errorf("failed take must not change the tree (-before +after):\n%s", diff)
	}

	tree.TakeAction(east)
	tree.TakeAction(east)
	if !tree.IsEmpty() {
		t.Error("tree should be empty once the route is walked")
	}
}

func TestTreeVortexTargetsAreDistinct(t *testing.T) {
	tree := NewTree()
	tree.AddRoute([]engine.Action{engine.VortexTo(at(1, 1))}, 1)
	tree.AddRoute([]engine.Action{engine.VortexTo(at(2, 2))}, 3)

	best, ok := tree.BestAction()
	if !ok || best != engine.VortexTo(at(2, 2)) {
		t.Errorf("Expected vortex to (2,2), got %v", best)
	}
	if len(tree.Routes()) != 2 {
		t.Errorf("Expected two routes, got %d", len(tree.Routes()))
	}
}

func TestTreeAddRouteOverwritesLeaf(t *testing.T) {
	tree := NewTree()
	tree.AddRoute([]engine.Action{north}, 5)
	tree.AddRoute([]engine.Action{north}, -1)

	if best, ok := tree.BestAction(); ok {
		t.Errorf("Expected no decision after lowering the only leaf, got %v", best)
	}
	want := []Route{{Actions: []engine.Action{north}, Priority: -1}}
	if diff := cmp.Diff(want, tree.Routes()); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}

	tree.AddRoute([]engine.Action{north, east}, 2)
	tree.AddRoute([]engine.Action{west, west}, 3)
	tree.AddRoute([]engine.Action{west, west}, 1)

	tests := []struct {
		prefix []engine.Action
		want   float64
	}{
		{[]engine.Action{north}, 2},
		{[]engine.Action{north, east}, 2},
		{[]engine.Action{west}, 1},
	}
	for _, tt := range tests {
		if got, _ := tree.Priority(tt.prefix...); got != tt.want {
			t.Errorf("Priority(%v) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
	if best, ok := tree.BestAction(); !ok || best != north {
		t.Errorf("Expected north, got %v (%v)", best, ok)
	}
}

func TestTreePrefixRoute(t *testing.T) {
	tree := NewTree()
	tree.AddRoute([]engine.Action{south, south}, 1)
	tree.AddRoute([]engine.Action{south}, 3)

	want := []Route{
		{Actions: []engine.Action{south}, Priority: 3},
		{Actions: []engine.Action{south, south}, Priority: 1},
	}
	if diff := cmp.Diff(want, tree.Routes()); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
	if p, _ := tree.Priority(south, south); p != 1 {
		t.Errorf("Expected the deeper leaf to keep priority 1, got %v", p)
	}

	tree.TakeAction(south)
	if best, ok := tree.BestAction(); !ok || best != south {
		t.Errorf("Expected the remaining south step, got %v (%v)", best, ok)
	}
}
