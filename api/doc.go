// Package api provides the HTTP REST API of the Magic Maze server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a match ({deck, humans, bots, speed})
//   - GET /api/sessions - List matches (?sort=created|accessed&order=asc|desc&limit=N&deck=ID)
//   - GET /api/sessions/unified - Overview of several matches (?sessionIds=a,b or ?deck=ID)
//   - GET /api/sessions/{id} - Get one match with its players and agent counters
//   - DELETE /api/sessions/{id} - Stop and remove a match
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Board state
//   - POST /api/sessions/{id}/actions - Perform an action for a human seat
//   - POST /api/sessions/{id}/signal - Place a do-something token ({player, action})
//   - GET /api/sessions/{id}/history - Action history (?page&limit&order)
//
// Configuration:
//   - GET /api/decks - List decks
//   - PUT /api/decks/{name} - Upload a deck file
//   - GET /api/profiles - List agent temperament profiles
//
// Finished Matches:
//   - GET /api/results - Most recent results (?limit=N)
//   - GET /api/results/{id} - One result
//   - GET /api/replays - Ids of stored replays
//   - GET /api/replays/{id} - Every event of a match
//
// Other:
//   - GET /ws?session={id} - Spectate a match over WebSocket
//   - GET /metrics - Prometheus metrics
//   - GET /healthz - Liveness
//
// Actions are sent as POST with JSON body:
//
//	{
//	  "player": "alice",
//	  "pawn": "green",
//	  "action": "move-north|move-east|move-south|move-west|discover|escalator|vortex",
//	  "target": {"row": 3, "col": 9}  // vortex only
//	}
//
// A refused action is still a 200 response with "success": false; when
// another pawn stands in the way the response names it in "blocked_by".
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "session \"abc\": session not found",
//	  "code": 404
//	}
package api
