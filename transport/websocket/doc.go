// Package websocket streams live matches to spectators.
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection. Only the hub goroutine touches the client registry; reads,
// writes, counts and broadcasts all reach it through channels.
//
// Message Protocol:
//
// Every frame is one JSON Message:
//   - {"kind": "state", "state": {...}} right after connecting
//   - {"kind": "event", "event": {...}, "state": {...}} for each board event
//
// Clients pick the session with a query parameter (?sessionId=abc) and only
// receive that session's messages. Spectators never send commands; actions go
// through the REST API.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	manager := session.NewManager(session.Options{Broadcaster: hub})
//
// Broadcasting never blocks the match: when the hub falls behind, events are
// dropped and a client whose buffer is full is disconnected.
package websocket
