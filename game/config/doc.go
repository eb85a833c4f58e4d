// Package config provides deck and agent profile management for Magic Maze.
//
// The config package handles:
//   - Loading deck files from <dir>/decks/*.json
//   - Falling back to the built-in classic deck
//   - Loading agent temperament profiles from <dir>/agents.yaml
//   - Caching decks behind a read/write lock
//
// Decks:
//
// A deck file is checked against the deck JSON schema and the engine's
// semantic rules before it is cached (see engine.ParseDeck). A file named
// classic.json shadows the built-in deck.
//
// Profiles:
//
// agents.yaml lists temperament profiles. Any field a profile leaves out
// keeps the balanced default:
//
//	default: careful
//	profiles:
//	  - name: careful
//	    processing_ratio: 0.5
//	    patience: 10
//	    heuristic: euclidean
//	    settle_delay: 1s
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	deck, err := manager.LoadDeck("classic")
//	temp, err := manager.Profile("careful")
//	decks, err := manager.ListDecks()
package config
