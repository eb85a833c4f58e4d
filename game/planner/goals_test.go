package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wricardo/magic-maze/game/engine"
)

func plainCard(id int) *engine.Card {
	spec := engine.CardSpec{ID: id, Layout: []string{"....", "....", "....", "...."}}
	return spec.Build()
}

func lifecycleGrid(t *testing.T) *engine.Grid {
	return testGrid(t,
		"T...????",
		"..i.????",
		"...x????",
		"..n.????",
		"????????",
		"????????",
		"????????",
		"????????",
	)
}

func TestRegistryScan(t *testing.T) {
	g := lifecycleGrid(t)
	reg := NewRegistry()
	reg.Scan(g)

	want := []Goal{
		{Kind: GoalTimer, At: at(0, 0)},
		{Kind: GoalDiscovery, At: at(3, 2)},
		{Kind: GoalItem, At: at(1, 2)},
	}
	if diff := cmp.Diff(want, reg.Goals(engine.Green, true)); diff != "" {
		t.Errorf("phase one goals (-want +got):\n%s", diff)
	}

	want = []Goal{
		{Kind: GoalTimer, At: at(0, 0)},
		{Kind: GoalDiscovery, At: at(3, 2)},
		{Kind: GoalExit, At: at(2, 3)},
	}
	if diff := cmp.Diff(want, reg.Goals(engine.Green, false)); diff != "" {
		t.Errorf("phase two goals (-want +got):\n%s", diff)
	}

	// Timers are shared by every color; discoveries are not.
	want = []Goal{{Kind: GoalTimer, At: at(0, 0)}}
	if diff := cmp.Diff(want, reg.Goals(engine.Purple, true)); diff != "" {
		t.Errorf("purple goals (-want +got):\n%s", diff)
	}

	if reg.Goals(engine.None, true) != nil {
		t.Error("Expected no goals for an unknown color")
	}
}

func TestRegistryScanIsIdempotent(t *testing.T) {
	g := lifecycleGrid(t)
	reg := NewRegistry()
	reg.Scan(g)
	first := reg.Goals(engine.Green, true)
	reg.Scan(g)
	reg.ObserveCard(g, at(0, 0))
	if diff := cmp.Diff(first, reg.Goals(engine.Green, true)); diff != "" {
		t.Errorf("rescan changed goals (-first +again):\n%s", diff)
	}
}

func TestRegistryRefreshRetiresGoals(t *testing.T) {
	g := lifecycleGrid(t)
	reg := NewRegistry()
	reg.Scan(g)

	g.TileAt(at(0, 0)).Used = true
	if err := g.Place(plainCard(9), engine.Slot{Row: 1, Col: 0}); err != nil {
		t.Fatal(err)
	}

	// One timer per color plus the now enclosed discovery.
	if removed := reg.Refresh(g); removed != 5 {
		t.Errorf("Expected 5 goals removed, got %d", removed)
	}
	want := []Goal{{Kind: GoalItem, At: at(1, 2)}}
	if diff := cmp.Diff(want, reg.Goals(engine.Green, true)); diff != "" {
		t.Errorf("goals after refresh (-want +got):\n%s", diff)
	}
	if removed := reg.Refresh(g); removed != 0 {
		t.Errorf("second refresh removed %d goals", removed)
	}

	// Retired goals never come back, even if the tile looks live again.
	g.TileAt(at(0, 0)).Used = false
	reg.Scan(g)
	if diff := cmp.Diff(want, reg.Goals(engine.Green, true)); diff != "" {
		t.Errorf("retired goals returned (-want +got):\n%s", diff)
	}
}

func TestRegistryItemAndExitSetOnce(t *testing.T) {
	g := lifecycleGrid(t)
	reg := NewRegistry()
	reg.Scan(g)

	spec := engine.CardSpec{
		ID:     7,
		Layout: []string{"....", "....", "....", "...."},
		Tiles: []engine.TileSpec{
			{At: [2]int{0, 0}, Type: engine.ItemTile, Color: engine.Green},
			{At: [2]int{0, 1}, Type: engine.ExitTile, Color: engine.Green},
		},
	}
	if err := g.Place(spec.Build(), engine.Slot{Row: 0, Col: 1}); err != nil {
		t.Fatal(err)
	}
	reg.ObserveCard(g, at(0, 4))

	if item, ok := reg.Item(engine.Green); !ok || item != at(1, 2) {
		t.Errorf("Expected item to stay at (1,2), got %v", item)
	}
	if exit, ok := reg.Exit(engine.Green); !ok || exit != at(2, 3) {
		t.Errorf("Expected exit to stay at (2,3), got %v", exit)
	}
	if _, ok := reg.Item(engine.Orange); ok {
		t.Error("orange item was never seen")
	}
}

func TestRegistryGoalsFound(t *testing.T) {
	spec := engine.CardSpec{ID: 1, Layout: []string{"....", "....", "....", "...."}}
	for i, c := range engine.Colors {
		spec.Tiles = append(spec.Tiles,
			engine.TileSpec{At: [2]int{0, i}, Type: engine.ItemTile, Color: c},
			engine.TileSpec{At: [2]int{3, i}, Type: engine.ExitTile, Color: c},
		)
	}
	g := engine.NewGrid(1)

	reg := NewRegistry()
	if reg.GoalsFound() {
		t.Fatal("empty registry cannot have found every goal")
	}
	if err := g.Place(spec.Build(), engine.Slot{}); err != nil {
		t.Fatal(err)
	}
	reg.ObserveCard(g, at(0, 0))
	if !reg.GoalsFound() {
		t.Error("Expected every item and exit to be registered")
	}
}

func TestRegistryClone(t *testing.T) {
	g := lifecycleGrid(t)
	reg := NewRegistry()
	reg.Scan(g)
	clone := reg.Clone()

	g.TileAt(at(0, 0)).Used = true
	reg.Refresh(g)

	if len(clone.Goals(engine.Green, true)) != 3 {
		t.Errorf("clone should keep its goals, got %v", clone.Goals(engine.Green, true))
	}
	if len(reg.Goals(engine.Green, true)) != 2 {
		t.Errorf("original should lose the timer, got %v", reg.Goals(engine.Green, true))
	}
}
