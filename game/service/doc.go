// Package service provides the business logic layer for Magic Maze matches.
//
// The service package implements:
//   - Match creation from a deck, human seats and agent profiles
//   - Seat ownership checks for human actions
//   - Do-something signals from humans to the rest of the table
//   - Paginated action history
//
// Core Interfaces:
//
// GameService is the main service interface used by the REST API and the MCP
// server. SessionManager starts and owns running matches. ConfigManager
// resolves deck files and agent temperament profiles.
//
// Architecture:
//
// The service layer sits between the transports (HTTP/WebSocket/MCP) and the
// engine. Every match has its own Board; human seats act through
// PerformAction while agent seats run their own control loops inside the
// session manager. Action types are dealt round-robin over all seats, humans
// first, so every action type has exactly one owner.
//
// Usage:
//
//	configs, _ := config.NewManager("configs")
//	sessions := session.NewManager(session.Options{})
//	svc := service.NewGameService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{
//		Deck:   "classic",
//		Humans: []string{"alice"},
//		Bots:   []string{"balanced", "careful"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := svc.PerformAction(ctx, info.ID, service.ActionRequest{
//		Player: "alice", Pawn: "green", Action: "move-north",
//	})
//
// Errors:
//
// Failures are reported with the package's sentinel errors wrapped with
// context, so callers match them with errors.Is.
package service
