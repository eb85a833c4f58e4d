package planner

import (
	"github.com/wricardo/magic-maze/game/engine"
)

// GoalKind classifies a planning target.
type GoalKind int

const (
	GoalTimer GoalKind = iota
	GoalDiscovery
	GoalItem
	GoalExit
)

func (k GoalKind) String() string {
	switch k {
	case GoalTimer:
		return "timer"
	case GoalDiscovery:
		return "discovery"
	case GoalItem:
		return "item"
	case GoalExit:
		return "exit"
	}
	return "unknown"
}

// Goal is a tile a pawn may want to reach.
type Goal struct {
	Kind GoalKind
	At   engine.Coordinate
}

type colorGoals struct {
	timers      []engine.Coordinate
	discoveries []engine.Coordinate
	item        *engine.Coordinate
	exit        *engine.Coordinate
}

// Registry tracks the goals known for every pawn color. A goal that has
// been retired is never registered again.
type Registry struct {
	colors  map[engine.Color]*colorGoals
	retired map[engine.Coordinate]bool
}

// NewRegistry creates an empty registry for the four pawn colors.
func NewRegistry() *Registry {
	r := &Registry{
		colors:  make(map[engine.Color]*colorGoals, len(engine.Colors)),
		retired: make(map[engine.Coordinate]bool),
	}
	for _, c := range engine.Colors {
		r.colors[c] = &colorGoals{}
	}
	return r
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	for c, g := range r.colors {
		copied := &colorGoals{
			timers:      append([]engine.Coordinate(nil), g.timers...),
			discoveries: append([]engine.Coordinate(nil), g.discoveries...),
		}
		if g.item != nil {
			item := *g.item
			copied.item = &item
		}
		if g.exit != nil {
			exit := *g.exit
			copied.exit = &exit
		}
		out.colors[c] = copied
	}
	for at := range r.retired {
		out.retired[at] = true
	}
	return out
}

// Scan registers goals from every discovered tile in row-major order.
func (r *Registry) Scan(grid engine.GridView) {
	size := grid.Size()
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			r.observe(grid, engine.Coordinate{Row: row, Col: col})
		}
	}
}

// ObserveCard registers goals from the card whose top-left tile is origin.
func (r *Registry) ObserveCard(grid engine.GridView, origin engine.Coordinate) {
	for row := 0; row < engine.CardSize; row++ {
		for col := 0; col < engine.CardSize; col++ {
			r.observe(grid, engine.Coordinate{Row: origin.Row + row, Col: origin.Col + col})
		}
	}
}

func (r *Registry) observe(grid engine.GridView, at engine.Coordinate) {
	t := grid.TileAt(at)
	if t == nil || r.retired[at] {
		return
	}
	switch t.Type {
	case engine.TimerTile:
		if t.Used {
			return
		}
		for _, g := range r.colors {
			g.timers = appendUnique(g.timers, at)
		}
	case engine.DiscoveryTile:
		if g, ok := r.colors[t.Color]; ok && !grid.IsEnclosed(at) {
			g.discoveries = appendUnique(g.discoveries, at)
		}
	case engine.ItemTile:
		if g, ok := r.colors[t.Color]; ok && g.item == nil {
			item := at
			g.item = &item
		}
	case engine.ExitTile:
		if g, ok := r.colors[t.Color]; ok && g.exit == nil {
			exit := at
			g.exit = &exit
		}
	}
}

// Refresh retires used timers and enclosed discovery tiles. It returns the
// number of goals removed.
func (r *Registry) Refresh(grid engine.GridView) int {
	removed := 0
	for _, g := range r.colors {
		g.timers = r.filter(g.timers, &removed, func(at engine.Coordinate) bool {
			t := grid.TileAt(at)
			return t != nil && !t.Used
		})
		g.discoveries = r.filter(g.discoveries, &removed, func(at engine.Coordinate) bool {
			return !grid.IsEnclosed(at)
		})
	}
	return removed
}

func (r *Registry) filter(list []engine.Coordinate, removed *int, keep func(engine.Coordinate) bool) []engine.Coordinate {
	out := list[:0]
	for _, at := range list {
		if keep(at) {
			out = append(out, at)
			continue
		}
		r.retired[at] = true
		*removed++
	}
	return out
}

// Goals lists a color's current targets. Phase one offers timers,
// discoveries and the item; phase two offers timers, discoveries and the
// exit.
func (r *Registry) Goals(color engine.Color, firstPhase bool) []Goal {
	g, ok := r.colors[color]
	if !ok {
		return nil
	}
	var out []Goal
	for _, at := range g.timers {
		out = append(out, Goal{Kind: GoalTimer, At: at})
	}
	for _, at := range g.discoveries {
		out = append(out, Goal{Kind: GoalDiscovery, At: at})
	}
	if firstPhase && g.item != nil {
		out = append(out, Goal{Kind: GoalItem, At: *g.item})
	}
	if !firstPhase && g.exit != nil {
		out = append(out, Goal{Kind: GoalExit, At: *g.exit})
	}
	return out
}

// Item returns the registered item tile for a color.
func (r *Registry) Item(color engine.Color) (engine.Coordinate, bool) {
	if g, ok := r.colors[color]; ok && g.item != nil {
		return *g.item, true
	}
	return engine.Coordinate{}, false
}

// Exit returns the registered exit tile for a color.
func (r *Registry) Exit(color engine.Color) (engine.Coordinate, bool) {
	if g, ok := r.colors[color]; ok && g.exit != nil {
		return *g.exit, true
	}
	return engine.Coordinate{}, false
}

// GoalsFound reports whether every item and exit has been registered.
func (r *Registry) GoalsFound() bool {
	for _, c := range engine.Colors {
		g := r.colors[c]
		if g.item == nil || g.exit == nil {
			return false
		}
	}
	return true
}

func appendUnique(list []engine.Coordinate, at engine.Coordinate) []engine.Coordinate {
	for _, existing := range list {
		if existing == at {
			return list
		}
	}
	return append(list, at)
}
