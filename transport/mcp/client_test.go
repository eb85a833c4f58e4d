package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/game/service"
	"github.com/wricardo/magic-maze/game/session"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("%s returned no content", name)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s: expected TextContent, got %T", name, result.Content[0])
	}
	return text.Text, result.IsError
}

func testState() *engine.BoardState {
	return &engine.BoardState{
		Deck:          "classic",
		Size:          20,
		FirstPhase:    true,
		TimeLeft:      150,
		TimerMax:      180,
		DeckRemaining: 5,
		Moves:         3,
		Tiles: []engine.PlacedTile{
			{At: engine.Coordinate{Row: 8, Col: 8}, Tile: engine.Tile{Type: engine.StartTile}},
			{At: engine.Coordinate{Row: 8, Col: 9}, Tile: engine.Tile{Type: engine.PathTile}},
			{At: engine.Coordinate{Row: 9, Col: 8}, Tile: engine.Tile{Type: engine.TimerTile}},
			{At: engine.Coordinate{Row: 9, Col: 9}, Tile: engine.Tile{Type: engine.ObstacleTile}},
			{At: engine.Coordinate{Row: 10, Col: 9}, Tile: engine.Tile{Type: engine.ItemTile, Color: engine.Green, Walls: [4]bool{true, false, false, true}}},
		},
		Pawns: []engine.Pawn{
			{Color: engine.Green, At: engine.Coordinate{Row: 8, Col: 8}},
			{Color: engine.Purple, At: engine.Coordinate{Row: 8, Col: 9}},
		},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "abc"})
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "session not found", "code": 404})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	var result struct {
		ID string `json:"id"`
	}
	if err := client.apiCall(ctx, "GET", "/ok", nil, &result); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if result.ID != "abc" {
		t.Errorf("Expected id abc, got %s", result.ID)
	}

	err := client.apiCall(ctx, "GET", "/missing", nil, nil)
	if err == nil || err.Error() != "session not found" {
		t.Errorf("Expected API error message, got %v", err)
	}

	err = client.apiCall(ctx, "GET", "/broken", nil, nil)
	if err == nil || err.Error() != "API error: 500" {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestClient_apiCall_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if err := client.apiCall(context.Background(), "GET", "/api/sessions", nil, nil); err == nil {
		t.Error("Expected error for unreachable server")
	}
}

func TestClient_createSession(t *testing.T) {
	var got service.CreateSessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:        "match-1",
			Deck:      "classic",
			CreatedAt: time.Now(),
			Players: []service.Player{
				{Name: "alice", Kind: service.HumanPlayer, Actions: []engine.ActionType{engine.MoveNorth, engine.Discover}},
				{Name: "balanced-1", Kind: service.AgentPlayer, Profile: "balanced", Actions: []engine.ActionType{engine.MoveEast}},
			},
			State: testState(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	text, isError := callTool(t, client.handleCreateSession, "create_session", map[string]interface{}{
		"deck":   "classic",
		"humans": []interface{}{"alice"},
		"bots":   []interface{}{"balanced"},
		"speed":  2.0,
	})

	if isError {
		t.Fatalf("Unexpected tool error: %s", text)
	}
	if got.Deck != "classic" || got.Speed != 2 {
		t.Errorf("Unexpected request body %+v", got)
	}
	if len(got.Humans) != 1 || got.Humans[0] != "alice" || len(got.Bots) != 1 {
		t.Errorf("Unexpected seats %+v", got)
	}
	for _, want := range []string{"Created session: match-1", "alice (human): move-north, discover", "balanced-1 (agent, balanced): move-east"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestClient_performAction(t *testing.T) {
	var got service.ActionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/match-1/actions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(service.ActionResult{
			Success:   false,
			Pawn:      engine.Green,
			Action:    engine.NewAction(engine.MoveEast),
			BlockedBy: engine.Purple,
			Message:   "green cannot move-east",
			State:     testState(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	text, isError := callTool(t, client.handlePerformAction, "perform_action", map[string]interface{}{
		"session_id": "match-1",
		"player":     "alice",
		"pawn":       "green",
		"action":     "vortex",
		"target_row": 3.0,
		"target_col": 9.0,
		"intent":     "checking the corridor",
	})

	if isError {
		t.Fatalf("Unexpected tool error: %s", text)
	}
	if got.Player != "alice" || got.Pawn != "green" || got.Action != "vortex" {
		t.Errorf("Unexpected request body %+v", got)
	}
	if got.Target == nil || *got.Target != (engine.Coordinate{Row: 3, Col: 9}) {
		t.Errorf("Expected target (3,9), got %v", got.Target)
	}
	if !strings.Contains(text, "FAILED: green cannot move-east") {
		t.Errorf("Expected failure line, got:\n%s", text)
	}
	if !strings.Contains(text, "Hint: move purple") {
		t.Errorf("Expected blocker hint, got:\n%s", text)
	}
}

func TestClient_performAction_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "alice does not own move-east", "code": 403})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	text, isError := callTool(t, client.handlePerformAction, "perform_action", map[string]interface{}{
		"session_id": "match-1",
		"player":     "alice",
		"pawn":       "green",
		"action":     "move-east",
	})

	if !isError {
		t.Error("Expected tool error")
	}
	if text != "alice does not own move-east" {
		t.Errorf("Unexpected error text %q", text)
	}
}

func TestClient_actionHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "1" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(service.HistoryResponse{
			Actions: []engine.ActionRecord{
				{Actor: "balanced-1", Pawn: engine.Orange, Action: engine.NewAction(engine.MoveSouth), Success: true, TimeLeft: 170},
			},
			Total:      2,
			Page:       2,
			PageSize:   1,
			TotalPages: 2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	text, _ := callTool(t, client.handleActionHistory, "action_history", map[string]interface{}{
		"session_id": "match-1",
		"page":       2.0,
		"limit":      1.0,
	})

	if !strings.Contains(text, "Page 2/2") {
		t.Errorf("Expected page header, got:\n%s", text)
	}
	if !strings.Contains(text, "2. balanced-1: orange move-south [ok, timer 170]") {
		t.Errorf("Expected numbered record, got:\n%s", text)
	}
}

func TestClient_describeTile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testState())
	}))
	defer server.Close()

	client := NewClient(server.URL)

	tests := []struct {
		name    string
		row     float64
		col     float64
		want    []string
		isError bool
	}{
		{name: "item with walls", row: 10, col: 9, want: []string{"Type: item", "Color: green", "Walls: N, W", "Walkable: true"}},
		{name: "pawn on start", row: 8, col: 8, want: []string{"Type: start", "Pawn: green"}},
		{name: "undiscovered", row: 0, col: 0, want: []string{"not discovered"}},
		{name: "out of bounds", row: 25, col: 0, want: []string{"out of bounds"}, isError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := callTool(t, client.handleDescribeTile, "describe_tile", map[string]interface{}{
				"session_id": "match-1",
				"row":        tt.row,
				"col":        tt.col,
			})
			if isError != tt.isError {
				t.Errorf("isError = %v, want %v (%s)", isError, tt.isError, text)
			}
			for _, want := range tt.want {
				if !strings.Contains(text, want) {
					t.Errorf("Expected %q in:\n%s", want, text)
				}
			}
		})
	}
}

func TestClient_describeTile_MissingCoordinates(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	text, isError := callTool(t, client.handleDescribeTile, "describe_tile", map[string]interface{}{
		"session_id": "match-1",
	})
	if !isError || !strings.Contains(text, "required") {
		t.Errorf("Expected argument error, got %q", text)
	}
}

func TestClient_listDecksAndProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/decks":
			json.NewEncoder(w).Encode([]service.DeckInfo{
				{DeckID: "classic", Name: "Classic", Description: "Nine cards", BoardCards: 5, Cards: 9, TimerSeconds: 180},
			})
		case "/api/profiles":
			json.NewEncoder(w).Encode([]agent.Temperament{agent.DefaultTemperament()})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	text, _ := callTool(t, client.handleListDecks, "list_decks", nil)
	if !strings.Contains(text, "• classic (Classic)") || !strings.Contains(text, "Timer: 180s") {
		t.Errorf("Unexpected deck listing:\n%s", text)
	}

	text, _ = callTool(t, client.handleListProfiles, "list_profiles", nil)
	if !strings.Contains(text, "• balanced:") {
		t.Errorf("Unexpected profile listing:\n%s", text)
	}
}

func TestClient_matchResult(t *testing.T) {
	started := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/results/match-1" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(session.Result{
			MatchID:    "match-1",
			Deck:       "classic",
			Outcome:    "victory",
			Players:    4,
			Moves:      40,
			StartedAt:  started,
			FinishedAt: started.Add(90 * time.Second),
			Agents: []session.AgentResult{
				{Agent: "balanced-1", Profile: "balanced", Stats: agent.Stats{Actions: 12, Failed: 1}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	text, _ := callTool(t, client.handleMatchResult, "match_result", map[string]interface{}{"session_id": "match-1"})

	for _, want := range []string{"Match match-1 on classic: VICTORY", "Duration: 1m30s", "balanced-1 (balanced): 12 actions, 1 failed"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")
	text, _ := callTool(t, client.handleGameInstructions, "game_instructions", nil)

	for _, want := range []string{"GAME OBJECTIVE", "do-something", "MAP LEGEND"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected instructions to contain %q", want)
		}
	}
}

func TestRenderMap(t *testing.T) {
	got := renderMap(testState())
	want := "     89\n" +
		"  8  GP\n" +
		"  9  T#\n" +
		" 10   i\n"
	if got != want {
		t.Errorf("renderMap mismatch\ngot:\n%q\nwant:\n%q", got, want)
	}

	empty := renderMap(&engine.BoardState{Size: 20})
	if empty != "(nothing discovered)\n" {
		t.Errorf("Expected empty marker, got %q", empty)
	}
}

func TestFormatBoardState(t *testing.T) {
	state := testState()
	text := formatBoardState(state)
	for _, want := range []string{"Phase: 1", "Timer: 150/180", "Cards left: 5", "- green at (8,8)"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}

	state.FirstPhase = false
	state.Pawns[0].Exited = true
	state.GameOver = true
	state.Victory = true
	text = formatBoardState(state)
	for _, want := range []string{"Phase: 2", "- green: escaped", "VICTORY"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}

	state.Victory = false
	if text := formatBoardState(state); !strings.Contains(text, "GAME OVER") {
		t.Errorf("Expected defeat banner, got:\n%s", text)
	}
}
