// Package engine provides the board rules for the cooperative maze game.
//
// The engine package implements the game mechanics including:
//   - A grid of 4x4 cards discovered one at a time from a deck
//   - Pawn movement with walls, escalators and same-color vortexes
//   - The sand timer and its flip tiles
//   - The two phases: collect every item, then leave through every exit
//   - An event bus that notifies players of every board change
//
// Core Types:
//
// Board is the authoritative game state and implements Delegator, the only
// surface through which players and agents act. Every mutation is serialized
// under the board lock and published on the Bus in the same order. Planners
// work on a Snapshot, a deep copy that can be searched without locking.
//
// Usage:
//
//	deck, err := engine.LoadDeck("configs/decks/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	board, err := engine.NewBoard(deck)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sub := board.Subscribe()
//	board.Perform("alice", engine.Green, engine.NewAction(engine.MoveNorth))
//	for _, ev := range sub.Drain() {
//		fmt.Println(ev.Kind)
//	}
//
// Game Rules:
//
// Four pawns start on the central card. In phase one they explore, each
// discovering through doors of its own color, and must all stand on their
// own-color items at once. Phase two disables vortexes; pawns leave through
// their own-color exits. Stepping on an unused timer flips the sand glass.
// The game is lost when the timer empties.
package engine
