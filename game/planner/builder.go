package planner

import (
	"sort"

	"github.com/wricardo/magic-maze/game/engine"
)

// Planner builds decision trees for one pawn from a board snapshot.
type Planner struct {
	Finder    *PathFinder
	Model     Model
	ChunkSize int
}

// NewPlanner wires a path finder and priority model with a shared chunk size.
func NewPlanner(h Heuristic, chunkSize int, completeness Completeness) *Planner {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Planner{
		Finder:    NewPathFinder(h),
		Model:     Model{ChunkSize: chunkSize, Completeness: completeness},
		ChunkSize: chunkSize,
	}
}

// Plan is the result of one tree build.
type Plan struct {
	Tree       *Tree
	Pawn       engine.Color
	Routes     int
	ChunksUsed int
	Truncated  bool
	Goals      []Goal
}

type candidate struct {
	goal     Goal
	actions  []engine.Action
	priority float64
}

// Build scores every live goal of pawn and adds a route for each one worth
// pursuing, nearest first, until budget chunks of memory are spent. The
// last route that does not fit is cut to the remaining chunks.
func (p *Planner) Build(snap *engine.Snapshot, reg *Registry, pawn engine.Color, budget int) *Plan {
	plan := &Plan{Tree: NewTree(), Pawn: pawn}
	state, ok := snap.Pawns[pawn]
	if !ok || state.Exited || snap.Over {
		return plan
	}
	if budget < 1 {
		budget = 1
	}

	situation := Situation{
		FirstPhase: snap.FirstPhase,
		TimeLeft:   snap.TimeLeft,
		TimerMax:   snap.TimerMax,
		DeckEmpty:  snap.DeckRemaining == 0,
		GoalsFound: reg.GoalsFound(),
	}

	var candidates []candidate
	for _, goal := range reg.Goals(pawn, snap.FirstPhase) {
		actions, ok := p.route(snap, state, goal)
		if !ok {
			continue
		}
		s := situation
		s.OnGoal = state.At == goal.At
		distance := len(actions)
		if goal.Kind == GoalDiscovery {
			distance--
		}
		priority := p.Model.Score(goal.Kind, distance, s)
		if priority <= 0 || len(actions) == 0 {
			continue
		}
		candidates = append(candidates, candidate{goal: goal, actions: actions, priority: priority})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].actions) < len(candidates[j].actions)
	})

	for _, c := range candidates {
		remaining := budget - plan.ChunksUsed
		if remaining <= 0 {
			break
		}
		cost := p.cost(len(c.actions))
		actions := c.actions
		if cost > remaining {
			actions = actions[:remaining*p.ChunkSize]
			cost = remaining
			plan.Truncated = true
		}
		plan.Tree.AddRoute(actions, c.priority)
		plan.Goals = append(plan.Goals, c.goal)
		plan.Routes++
		plan.ChunksUsed += cost
	}
	return plan
}

// cost is the memory a route occupies: at least one chunk, rounded up.
func (p *Planner) cost(length int) int {
	chunks := (length + p.ChunkSize - 1) / p.ChunkSize
	if chunks < 1 {
		chunks = 1
	}
	return chunks
}

// route finds the action sequence that reaches goal. In phase one a route
// through one of the pawn's own vortexes replaces the walk when shorter.
// Discovery routes end with the discover action.
func (p *Planner) route(snap *engine.Snapshot, pawn engine.Pawn, goal Goal) ([]engine.Action, bool) {
	var best []engine.Action
	found := false

	if path, ok := p.Finder.Find(snap.Grid, pawn.At, goal.At); ok {
		best, found = path.Actions(), true
	}

	if snap.FirstPhase {
		for _, v := range snap.Grid.VortexCoordinates(pawn.Color) {
			if v.At == pawn.At || snap.Grid.IsOccupied(v.At) {
				continue
			}
			path, ok := p.Finder.Find(snap.Grid, v.At, goal.At)
			if !ok {
				continue
			}
			if !found || path.Len()+1 < len(best) {
				best = append([]engine.Action{engine.VortexTo(v.At)}, path.Actions()...)
				found = true
			}
		}
	}

	if !found {
		return nil, false
	}
	if goal.Kind == GoalDiscovery {
		best = append(best, engine.NewAction(engine.Discover))
	}
	return best, true
}
