// Package mcp exposes Magic Maze to language-model players over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// a running API server, and the JSON answer is rendered as text the model can
// read, including an ASCII map of the discovered board.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: manage matches
//   - board_state: timer, pawns and map
//   - perform_action: play one of your seat's action types
//   - signal: place a do-something token
//   - action_history: paginated past actions
//   - describe_tile: one tile in detail
//   - list_decks, list_profiles: decks and agent temperaments
//   - match_result: outcome of a finished match
//   - game_instructions: the rules
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer()) for local MCP clients
//   - HTTP: the API server mounts GetMCPServer().HandleMessage on POST /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
