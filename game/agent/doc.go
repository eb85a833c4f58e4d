// Package agent runs the autonomous players.
//
// Each Agent owns a subset of the action types and plays whichever pawn it
// is currently planning for. It runs on its own goroutine, driven by a
// behaviour tree ticker whose period comes from the agent's Temperament:
//
//	inbox -> settled -> plan -> (answer nudge | act | wait)
//
// Board events arrive through a per-agent Subscription and are applied at
// the start of every tick, so the planning state is only ever touched by
// the ticker goroutine. When the best action belongs to another seat the
// agent waits, switches pawn after Stubbornness idle ticks and places a
// do-something token after Patience idle ticks. When a pawn is in the way
// it tries to move the blocker first, following chains of blocked pawns at
// most once around the table.
package agent
