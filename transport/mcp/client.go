package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/game/service"
	"github.com/wricardo/magic-maze/game/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Magic Maze",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Magic Maze - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Four pawns start on the shared start card. Together the table must move every
pawn onto its item, then get every pawn out through its exit before the sand
timer runs out. Each seat only owns some action types, so you usually play
alongside autonomous agents.

AVAILABLE TOOLS:
- create_session: Create a match (deck, human seats, agent seats, speed)
- list_sessions / get_session: Inspect matches
- board_state: Current board as a map
- perform_action: Perform one of YOUR action types on any pawn - requires intent
- signal: Place a do-something token to nudge whoever owns an action type
- action_history: Past actions
- describe_tile: Details of one tile
- list_decks / list_profiles: Available decks and agent temperaments
- match_result: Outcome of a finished match
- game_instructions: Full rules

NOTE: The 'intent' parameter on perform_action serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new match. Without seats the table is filled with default agents.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"deck": map[string]interface{}{
					"type":        "string",
					"description": "Deck to play (optional)",
				},
				"humans": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Names of the human seats, yours included",
				},
				"bots": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "One temperament profile per agent seat; an empty string uses the default",
				},
				"speed": map[string]interface{}{
					"type":        "number",
					"description": "Game seconds per real second; negative stops the clock",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all matches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the seats, agent counters and board of a match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Get the current board as a map with timer and pawn positions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "perform_action",
		Description: "Perform one of your action types on a pawn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player": map[string]interface{}{
					"type":        "string",
					"description": "Your seat name",
				},
				"pawn": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"green", "purple", "orange", "yellow"},
					"description": "Pawn to act on",
				},
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        actionNames(),
					"description": "Action type",
				},
				"target_row": map[string]interface{}{
					"type":        "integer",
					"description": "Destination vortex row (vortex only)",
				},
				"target_col": map[string]interface{}{
					"type":        "integer",
					"description": "Destination vortex column (vortex only)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this action (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "player", "pawn", "action"},
		},
	}, c.handlePerformAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "signal",
		Description: "Place a do-something token asking whoever owns an action type to use it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player": map[string]interface{}{
					"type":        "string",
					"description": "Your seat name",
				},
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        actionNames(),
					"description": "Action type you want used",
				},
			},
			Required: []string{"session_id", "player", "action"},
		},
	}, c.handleSignal)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get the action history of a match, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_tile",
		Description: "Get detailed information about one board tile: type, color, walls, escalator and vortex",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the tile (0-based)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the tile (0-based)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeTile)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_decks",
		Description: "List available decks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListDecks)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_profiles",
		Description: "List agent temperament profiles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListProfiles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_result",
		Description: "Get the recorded outcome of a finished match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleMatchResult)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

func actionNames() []string {
	names := make([]string, 0, len(engine.ActionTypes))
	for _, t := range engine.ActionTypes {
		names = append(names, t.String())
	}
	return names
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// arguments returns the tool arguments, empty when the client sent none
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func stringList(v interface{}) []string {
	raw, _ := v.([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sessionPath(sessionID string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := service.CreateSessionRequest{
		Humans: stringList(args["humans"]),
		Bots:   stringList(args["bots"]),
	}
	body.Deck, _ = args["deck"].(string)
	body.Speed, _ = args["speed"].(float64)

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created session: " + info.ID + "\n\n" + formatSessionInfo(&info)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "running"
		if s.State != nil && s.State.GameOver {
			status = "lost"
			if s.State.Victory {
				status = "won"
			}
		}
		fmt.Fprintf(&b, "- %s (Deck: %s, Players: %d, %s, Created: %s)\n",
			s.ID, s.Deck, len(s.Players), status, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.BoardState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBoardState(&state)), nil
}

func (c *Client) handlePerformAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	body := service.ActionRequest{}
	body.Player, _ = args["player"].(string)
	body.Pawn, _ = args["pawn"].(string)
	body.Action, _ = args["action"].(string)
	row, hasRow := args["target_row"].(float64)
	col, hasCol := args["target_col"].(float64)
	if hasRow && hasCol {
		body.Target = &engine.Coordinate{Row: int(row), Col: int(col)}
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/actions"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleSignal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player"].(string)
	action, _ := args["action"].(string)

	var response struct {
		Message string `json:"message"`
	}
	body := map[string]string{"player": player, "action": action}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/signal"), body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprint(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprint(int(limit)))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleDescribeTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	row, okRow := args["row"].(float64)
	col, okCol := args["col"].(float64)
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col are required"), nil
	}

	var state engine.BoardState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	at := engine.Coordinate{Row: int(row), Col: int(col)}
	if at.Row < 0 || at.Row >= state.Size || at.Col < 0 || at.Col >= state.Size {
		return mcp.NewToolResultError(fmt.Sprintf("%s is out of bounds. Board size is %dx%d", at, state.Size, state.Size)), nil
	}
	return mcp.NewToolResultText(describeTile(&state, at)), nil
}

func (c *Client) handleListDecks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var decks []service.DeckInfo
	if err := c.apiCall(ctx, "GET", "/api/decks", nil, &decks); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Decks:\n\n")
	for _, d := range decks {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Board: %dx%d cards, Cards: %d, Timer: %ds\n\n",
			d.DeckID, d.Name, d.Description, d.BoardCards, d.BoardCards, d.Cards, d.TimerSeconds)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListProfiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var profiles []agent.Temperament
	if err := c.apiCall(ctx, "GET", "/api/profiles", nil, &profiles); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Agent Profiles:\n\n")
	for _, p := range profiles {
		fmt.Fprintf(&b, "• %s: speed x%.2g, patience %d, stubbornness %d, blindness %d, %s heuristic, memory %dx%d, %s\n",
			p.Name, p.ProcessingRatio, p.Patience, p.Stubbornness, p.Blindness, p.Heuristic,
			p.MemoryChunks, p.ChunkSize, p.Completeness)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleMatchResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result session.Result
	if err := c.apiCall(ctx, "GET", "/api/results/"+url.PathEscape(sessionID), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatResult(&result)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Magic Maze - Complete Instructions

GAME OBJECTIVE:
Phase one: get every pawn onto the item tile of its own color at the same time.
Phase two: get every pawn out through the exit of its own color.
All of it before the sand timer empties.

THE TABLE:
• Action types are dealt to the seats: move-north, move-east, move-south,
  move-west, discover, vortex, escalator. Any seat may use its actions on ANY pawn.
• Nobody else can perform your actions for you, so watch what the pawns need.
• Place a do-something token (signal tool) to ask the owner of an action to act.

BOARD:
• The board grows card by card. A pawn standing on a discovery tile of its own
  color lets the discover action lay the next card through that door.
• Walls block moves between tiles; obstacles (#) cannot be entered.
• Escalators (e) carry a pawn to the other end of the escalator.
• Vortexes (v) teleport a pawn to any vortex of its color, during phase one only.
• Pawns block each other: two pawns never share a tile.

TIMER:
• Stepping onto an unused timer tile (T) flips the sand timer: time left becomes
  the time already spent. Each timer tile works once.

MAP LEGEND (board_state):
  G P O Y   pawns (green, purple, orange, yellow)
  .         path        #  obstacle     S  start
  T / t     timer (unused / used)
  i         item        x  exit         v  vortex
  d         discovery   e  escalator
  (blank)   undiscovered

STRATEGY TIPS:
1. Read the seats in get_session: know which actions are yours.
2. Agents plan for one pawn at a time and will switch pawns when stuck.
3. Agents answer do-something tokens for their own action types.
4. Use the intent parameter to explain your reasoning.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nDeck: %s\nCreated: %s\n\nSeats:\n",
		info.ID, info.Deck, info.CreatedAt.Format(time.RFC3339))
	for _, p := range info.Players {
		actions := make([]string, 0, len(p.Actions))
		for _, a := range p.Actions {
			actions = append(actions, a.String())
		}
		label := string(p.Kind)
		if p.Profile != "" {
			label += ", " + p.Profile
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", p.Name, label, strings.Join(actions, ", "))
	}
	if len(info.Agents) > 0 {
		b.WriteString("\nAgents:\n")
		for _, a := range info.Agents {
			fmt.Fprintf(&b, "- %s: %d ticks, %d actions (%d failed), %d rebuilds, %d tokens placed, %d answered\n",
				a.ID, a.Stats.Ticks, a.Stats.Actions, a.Stats.Failed, a.Stats.Rebuilds, a.Stats.Nudges, a.Stats.Answered)
		}
	}
	if info.State != nil {
		b.WriteString("\n")
		b.WriteString(formatBoardState(info.State))
	}
	return b.String()
}

var pawnChars = map[engine.Color]byte{
	engine.Green:  'G',
	engine.Purple: 'P',
	engine.Orange: 'O',
	engine.Yellow: 'Y',
}

func tileChar(t *engine.Tile) byte {
	switch t.Type {
	case engine.ObstacleTile:
		return '#'
	case engine.StartTile:
		return 'S'
	case engine.TimerTile:
		if t.Used {
			return 't'
		}
		return 'T'
	case engine.ItemTile:
		return 'i'
	case engine.ExitTile:
		return 'x'
	case engine.VortexTile:
		return 'v'
	case engine.DiscoveryTile:
		return 'd'
	}
	if t.Escalator > 0 {
		return 'e'
	}
	return '.'
}

// renderMap draws the discovered part of the board, cropped to the
// bounding box of the placed tiles
func renderMap(state *engine.BoardState) string {
	if len(state.Tiles) == 0 {
		return "(nothing discovered)\n"
	}
	minR, minC := state.Size, state.Size
	maxR, maxC := -1, -1
	cells := make(map[engine.Coordinate]byte, len(state.Tiles))
	for i := range state.Tiles {
		pt := &state.Tiles[i]
		cells[pt.At] = tileChar(&pt.Tile)
		minR, maxR = min(minR, pt.At.Row), max(maxR, pt.At.Row)
		minC, maxC = min(minC, pt.At.Col), max(maxC, pt.At.Col)
	}
	for _, p := range state.Pawns {
		if !p.Exited {
			cells[p.At] = pawnChars[p.Color]
		}
	}

	var b strings.Builder
	b.WriteString("     ")
	for col := minC; col <= maxC; col++ {
		fmt.Fprintf(&b, "%d", col%10)
	}
	b.WriteString("\n")
	for row := minR; row <= maxR; row++ {
		fmt.Fprintf(&b, "%3d  ", row)
		for col := minC; col <= maxC; col++ {
			ch, ok := cells[engine.Coordinate{Row: row, Col: col}]
			if !ok {
				ch = ' '
			}
			b.WriteByte(ch)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatBoardState(state *engine.BoardState) string {
	if state == nil {
		return "Board: unavailable"
	}
	var b strings.Builder

	phase := "1 (reach the items)"
	if !state.FirstPhase {
		phase = "2 (escape through the exits)"
	}
	fmt.Fprintf(&b, "Deck: %s\nPhase: %s\nTimer: %d/%d\nCards left: %d\nMoves: %d, Attempts: %d, Tokens: %d\n",
		state.Deck, phase, state.TimeLeft, state.TimerMax, state.DeckRemaining, state.Moves, state.Attempts, state.Tokens)

	b.WriteString("\nPawns:\n")
	for _, p := range state.Pawns {
		if p.Exited {
			fmt.Fprintf(&b, "- %s: escaped\n", p.Color)
			continue
		}
		fmt.Fprintf(&b, "- %s at %s\n", p.Color, p.At)
	}

	b.WriteString("\nMap:\n")
	b.WriteString(renderMap(state))

	if state.GameOver {
		if state.Victory {
			b.WriteString("\nVICTORY! Every pawn escaped.\n")
		} else {
			b.WriteString("\nGAME OVER. The sand timer ran out.\n")
		}
	}
	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "OK: %s %s %s -> %s\n", result.Pawn, result.Action, result.From, result.To)
	} else {
		fmt.Fprintf(&b, "FAILED: %s\n", result.Message)
		if result.BlockedBy != "" && result.BlockedBy != engine.None {
			fmt.Fprintf(&b, "Hint: move %s out of the way, or signal its owner.\n", result.BlockedBy)
		}
	}
	if result.Message != "" && result.Success {
		b.WriteString(result.Message + "\n")
	}
	if result.State != nil {
		b.WriteString("\n")
		b.WriteString(formatBoardState(result.State))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action History (Page %d/%d), Total: %d\n\n", history.Page, history.TotalPages, history.Total)
	for i, rec := range history.Actions {
		num := (history.Page-1)*history.PageSize + i + 1
		status := "ok"
		if !rec.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "%d. %s: %s %s [%s, timer %d]\n", num, rec.Actor, rec.Pawn, rec.Action, status, rec.TimeLeft)
	}
	return b.String()
}

func describeTile(state *engine.BoardState, at engine.Coordinate) string {
	var tile *engine.Tile
	for i := range state.Tiles {
		if state.Tiles[i].At == at {
			tile = &state.Tiles[i].Tile
			break
		}
	}
	if tile == nil {
		return fmt.Sprintf("Tile %s is not discovered yet.", at)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tile %s:\nType: %s\n", at, tile.Type)
	if tile.Color != "" && tile.Color != engine.None {
		fmt.Fprintf(&b, "Color: %s\n", tile.Color)
	}
	var walls []string
	for _, d := range engine.Directions {
		if tile.HasWall(d) {
			walls = append(walls, d.String())
		}
	}
	if len(walls) > 0 {
		fmt.Fprintf(&b, "Walls: %s\n", strings.Join(walls, ", "))
	}
	if tile.Type == engine.DiscoveryTile {
		fmt.Fprintf(&b, "Opens toward: %s\n", tile.Side)
	}
	if tile.Escalator > 0 {
		fmt.Fprintf(&b, "Escalator: #%d\n", tile.Escalator)
	}
	if tile.Vortex > 0 {
		fmt.Fprintf(&b, "Vortex: #%d\n", tile.Vortex)
	}
	if tile.Type == engine.TimerTile {
		fmt.Fprintf(&b, "Used: %v\n", tile.Used)
	}
	for _, p := range state.Pawns {
		if !p.Exited && p.At == at {
			fmt.Fprintf(&b, "Pawn: %s\n", p.Color)
		}
	}
	fmt.Fprintf(&b, "Walkable: %v\n", tile.Walkable())
	return b.String()
}

func formatResult(r *session.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match %s on %s: %s\nPlayers: %d, Moves: %d, Attempts: %d, Tokens: %d, Time left: %d\nDuration: %s\n",
		r.MatchID, r.Deck, strings.ToUpper(r.Outcome), r.Players, r.Moves, r.Attempts, r.Tokens, r.TimeLeft,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	for _, a := range r.Agents {
		fmt.Fprintf(&b, "- %s (%s): %d actions, %d failed, %d rebuilds\n", a.Agent, a.Profile, a.Stats.Actions, a.Stats.Failed, a.Stats.Rebuilds)
	}
	return b.String()
}
