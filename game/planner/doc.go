// Package planner decides what a pawn should do next.
//
// The planner package implements:
//   - A* path search over the discovered part of the board, aware of walls
//     and escalators
//   - A goal registry tracking timers, discovery doors, items and exits per
//     pawn color
//   - A priority model that rates each goal by kind, distance and game phase
//   - A decision tree holding the scored routes, ordered by insertion
//
// Core Types:
//
// Planner combines a PathFinder and a Model. Build scores every goal the
// Registry knows for one pawn, turns each worthwhile one into a route and
// adds it to a Tree until the caller's memory budget is spent. The agent
// then walks the tree with BestAction and TakeAction, and throws it away
// for a fresh Build when the board moves under it.
//
// Usage:
//
//	reg := planner.NewRegistry()
//	reg.Scan(snap.Grid)
//
//	p := planner.NewPlanner(planner.Manhattan, 3, planner.GoalsFound)
//	plan := p.Build(snap, reg, engine.Green, 4)
//	if action, ok := plan.Tree.BestAction(); ok {
//		board.Perform("bot", engine.Green, action)
//		plan.Tree.TakeAction(action)
//	}
package planner
