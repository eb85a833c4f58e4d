package planner

import (
	"fmt"
	"math"

	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/wricardo/magic-maze/game/engine"
)

// Heuristic selects the distance estimate used by the path finder.
type Heuristic string

const (
	Manhattan Heuristic = "manhattan"
	Euclidean Heuristic = "euclidean"
)

// ParseHeuristic validates a heuristic name. Empty means Manhattan.
func ParseHeuristic(s string) (Heuristic, error) {
	switch h := Heuristic(s); h {
	case "":
		return Manhattan, nil
	case Manhattan, Euclidean:
		return h, nil
	}
	return Manhattan, fmt.Errorf("unknown heuristic %q", s)
}

// Step is one coordinate of a path and the action that reached it. The
// first step of a path has no action.
type Step struct {
	At  engine.Coordinate
	Via engine.Action
}

// SearchPath is an ordered walk from start to goal, both included.
type SearchPath []Step

// Len is the number of actions along the path.
func (p SearchPath) Len() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Actions returns the actions that walk the path.
func (p SearchPath) Actions() []engine.Action {
	if len(p) < 2 {
		return nil
	}
	out := make([]engine.Action, 0, len(p)-1)
	for _, s := range p[1:] {
		out = append(out, s.Via)
	}
	return out
}

// End returns the last coordinate of the path.
func (p SearchPath) End() engine.Coordinate {
	if len(p) == 0 {
		return engine.Coordinate{}
	}
	return p[len(p)-1].At
}

// PathFinder runs A* over a grid view with unit step costs.
type PathFinder struct {
	Heuristic Heuristic
	// AvoidOccupied treats tiles holding a pawn as impassable, except the goal.
	AvoidOccupied bool
}

// NewPathFinder creates a finder using the given heuristic.
func NewPathFinder(h Heuristic) *PathFinder {
	if h == "" {
		h = Manhattan
	}
	return &PathFinder{Heuristic: h}
}

type openNode struct {
	at  engine.Coordinate
	g   int
	h   float64
	f   float64
	seq int
}

// byScore orders the open set by f, then h, then insertion order, so
// searches over the same grid always expand nodes identically.
func byScore(a, b interface{}) int {
	x, y := a.(*openNode), b.(*openNode)
	switch {
	case x.f < y.f:
		return -1
	case x.f > y.f:
		return 1
	case x.h < y.h:
		return -1
	case x.h > y.h:
		return 1
	case x.seq < y.seq:
		return -1
	case x.seq > y.seq:
		return 1
	}
	return 0
}

type edge struct {
	to  engine.Coordinate
	via engine.Action
}

// Find returns a shortest path from start to goal, or false when the goal
// cannot be reached over discovered, walkable tiles.
func (f *PathFinder) Find(grid engine.GridView, start, goal engine.Coordinate) (SearchPath, bool) {
	if !grid.TileAt(start).Walkable() || !grid.TileAt(goal).Walkable() {
		return nil, false
	}
	if start == goal {
		return SearchPath{{At: start}}, true
	}

	portals := f.portals(goal, grid.EscalatorPairs())
	estimate := func(c engine.Coordinate) float64 {
		return f.estimate(c, goal, portals)
	}

	open := priorityqueue.NewWith(byScore)
	bestG := map[engine.Coordinate]int{start: 0}
	cameFrom := make(map[engine.Coordinate]Step)
	seq := 0

	h := estimate(start)
	open.Enqueue(&openNode{at: start, g: 0, h: h, f: h, seq: seq})

	// Stale queue entries are skipped; a coordinate reached again more
	// cheaply is queued again.
	for !open.Empty() {
		value, _ := open.Dequeue()
		node := value.(*openNode)
		if node.g > bestG[node.at] {
			continue
		}
		if node.at == goal {
			return rebuildPath(cameFrom, start, goal), true
		}

		for _, e := range f.neighbors(grid, node.at, goal) {
			g := node.g + 1
			if old, seen := bestG[e.to]; seen && g >= old {
				continue
			}
			bestG[e.to] = g
			cameFrom[e.to] = Step{At: node.at, Via: e.via}
			seq++
			h := estimate(e.to)
			open.Enqueue(&openNode{at: e.to, g: g, h: h, f: float64(g) + h, seq: seq})
		}
	}
	return nil, false
}

// neighbors lists the moves available from c in N, E, S, W order followed
// by the escalator.
func (f *PathFinder) neighbors(grid engine.GridView, c, goal engine.Coordinate) []edge {
	out := make([]edge, 0, 5)
	for _, d := range engine.Directions {
		next := c.Step(d)
		if !f.enterable(grid, next, goal) || grid.WallBetween(c, next) {
			continue
		}
		out = append(out, edge{to: next, via: engine.NewAction(engine.MoveToward(d))})
	}
	if partner, ok := grid.EscalatorPartner(c); ok && f.enterable(grid, partner, goal) {
		out = append(out, edge{to: partner, via: engine.NewAction(engine.Escalator)})
	}
	return out
}

func (f *PathFinder) enterable(grid engine.GridView, c, goal engine.Coordinate) bool {
	if !grid.TileAt(c).Walkable() {
		return false
	}
	return !f.AvoidOccupied || c == goal || !grid.IsOccupied(c)
}

// portal is an escalator end with the cheapest relaxed cost from it to
// the goal, counting straight-line walks and one step per escalator ride.
type portal struct {
	at   engine.Coordinate
	cost float64
}

// portals runs Dijkstra over the goal and every escalator end, so the
// estimate accounts for chains of escalators and never overshoots.
func (f *PathFinder) portals(goal engine.Coordinate, escalators [][2]engine.Coordinate) []portal {
	if len(escalators) == 0 {
		return nil
	}
	n := len(escalators) * 2
	ends := make([]engine.Coordinate, 0, n)
	for _, pair := range escalators {
		ends = append(ends, pair[0], pair[1])
	}
	cost := make([]float64, n)
	done := make([]bool, n)
	for i, e := range ends {
		cost[i] = f.distance(e, goal)
	}
	for range ends {
		next := -1
		for i := range ends {
			if !done[i] && (next < 0 || cost[i] < cost[next]) {
				next = i
			}
		}
		done[next] = true
		for i, e := range ends {
			if done[i] {
				continue
			}
			via := f.distance(e, ends[next]) + cost[next]
			if i^1 == next {
				via = math.Min(via, 1+cost[next])
			}
			cost[i] = math.Min(cost[i], via)
		}
	}
	out := make([]portal, n)
	for i, e := range ends {
		out[i] = portal{at: e, cost: cost[i]}
	}
	return out
}

// estimate is the cheaper of walking straight to the goal and walking to an
// escalator end and continuing from there.
func (f *PathFinder) estimate(c, goal engine.Coordinate, portals []portal) float64 {
	best := f.distance(c, goal)
	for _, p := range portals {
		best = math.Min(best, f.distance(c, p.at)+p.cost)
	}
	return best
}

func (f *PathFinder) distance(a, b engine.Coordinate) float64 {
	if f.Heuristic == Euclidean {
		return engine.EuclideanDistance(a, b)
	}
	return float64(engine.ManhattanDistance(a, b))
}

func rebuildPath(cameFrom map[engine.Coordinate]Step, start, goal engine.Coordinate) SearchPath {
	var reversed SearchPath
	at := goal
	for at != start {
		prev := cameFrom[at]
		reversed = append(reversed, Step{At: at, Via: prev.Via})
		at = prev.At
	}
	path := make(SearchPath, 0, len(reversed)+1)
	path = append(path, Step{At: start})
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}
