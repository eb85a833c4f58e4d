package agent

import (
	"github.com/wricardo/magic-maze/game/engine"
)

// resolveBlock tries to clear the pawn standing in the way of pawn doing
// action. It reports whether anything moved.
func (a *Agent) resolveBlock(pawn engine.Color, action engine.Action) bool {
	if _, blocked := a.board.BlockingPawn(pawn, action); !blocked {
		return false
	}
	a.blocks.Add(1)
	a.recorder.Block(a.id)
	cleared := a.clear(pawn, action, []engine.Color{pawn})
	a.logger.Debug("blocked", "pawn", pawn, "action", action, "cleared", cleared)
	return cleared
}

// clear moves the blocker of pawn out of the way, recursing when the blocker
// is itself stuck. chain holds every pawn already being cleared for and
// bounds the recursion at the number of pawns.
func (a *Agent) clear(pawn engine.Color, action engine.Action, chain []engine.Color) bool {
	blocker, ok := a.board.BlockingPawn(pawn, action)
	if !ok || inChain(chain, blocker) || len(chain) >= len(engine.Colors) {
		return false
	}
	chain = append(chain, blocker)
	snap := a.board.Snapshot()

	if snap.FirstPhase && a.actions[engine.Vortex] {
		for _, ref := range snap.Grid.VortexCoordinates(blocker) {
			if snap.Grid.IsOccupied(ref.At) {
				continue
			}
			if a.execute(blocker, engine.VortexTo(ref.At)) {
				return true
			}
		}
	}

	// A throwaway tree: the agent's own tree stays untouched.
	plan := a.unblock.Build(snap, a.registry.Clone(), blocker, a.temp.MemoryChunks)
	if best, ok := plan.Tree.BestAction(); ok {
		if !a.actions[best.Type] {
			a.waitingFor = best.Type
		} else if a.execute(blocker, best) {
			return true
		} else if a.clear(blocker, best, chain) && a.execute(blocker, best) {
			return true
		}
	}

	for _, t := range a.owned {
		if _, isMove := t.Direction(); !isMove {
			continue
		}
		move := engine.NewAction(t)
		if a.board.IsPerformable(blocker, move) && a.execute(blocker, move) {
			return true
		}
	}
	if a.waitingFor == engine.ActionNone {
		a.waitingFor = a.helpFor(blocker)
	}
	return false
}

// helpFor picks a move the blocker could make that only another player
// holds, so a do-something token can ask for it.
func (a *Agent) helpFor(blocker engine.Color) engine.ActionType {
	for _, d := range engine.Directions {
		t := engine.MoveToward(d)
		if !a.actions[t] && a.board.IsPerformable(blocker, engine.NewAction(t)) {
			return t
		}
	}
	return engine.ActionNone
}

func inChain(chain []engine.Color, c engine.Color) bool {
	for _, existing := range chain {
		if existing == c {
			return true
		}
	}
	return false
}
