// Package session runs Magic Maze matches.
//
// A match is one board plus everything that drives it: the agents seated at
// the table, the sand-timer clock and an event pump. Manager starts all of
// them in one errgroup when a session is created and stops them together
// when the session is deleted, expires or the game ends.
//
// Core Types:
//
// Manager implements service.SessionManager. Sessions are keyed by a
// case-insensitive ID, a uuid unless the caller picks one.
//
// FileReplay stores the event log of every match as zstd-compressed JSON
// lines, one file per match. SQLiteResults indexes finished matches with
// their outcome and the final counters of each agent.
//
// Event Flow:
//
// The pump drains the board subscription and hands each event to the
// replay log and then to the Broadcaster (the websocket hub in the server).
// When the pump sees game-over, or the session is cancelled, the match
// winds down and its Result is saved.
//
// Usage:
//
//	replays, _ := session.NewFileReplay("data/replays")
//	results, _ := session.OpenResults("data/results.db")
//	manager := session.NewManager(session.Options{
//		Replays:     replays,
//		Results:     results,
//		Broadcaster: hub,
//	})
//	defer manager.Close()
//
//	sess, err := manager.Create(service.MatchOptions{
//		Deck:   deck,
//		Humans: []string{"alice"},
//		Bots:   []agent.Temperament{agent.DefaultTemperament()},
//	})
//	<-sess.Done
package session
