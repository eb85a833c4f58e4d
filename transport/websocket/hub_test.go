package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/logging"
)

func newTestHub() *Hub {
	return NewHub(logging.Discard())
}

func runHub(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
}

func testSpectator(hub *Hub, sessionID string) *Spectator {
	return &Spectator{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
}

func TestNewHub(t *testing.T) {
	hub := newTestHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.rooms == nil {
		t.Error("Hub sessions map is nil")
	}
	if cap(hub.broadcast) != broadcastBacklog {
		t.Errorf("Expected broadcast backlog %d, got %d", broadcastBacklog, cap(hub.broadcast))
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register channels are nil")
	}
}

func TestHubJoin(t *testing.T) {
	hub := newTestHub()
	client := testSpectator(hub, "test-session")

	hub.join(client)

	if _, ok := hub.rooms["test-session"][client]; !ok {
		t.Error("Spectator was not registered in session")
	}
	if len(hub.rooms["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.rooms["test-session"]))
	}
}

func TestHubUnjoin(t *testing.T) {
	hub := newTestHub()
	client := testSpectator(hub, "test-session")

	hub.join(client)
	hub.unjoin(client)

	if _, exists := hub.rooms["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}

	// A second unregister must not panic on the closed channel
	hub.unjoin(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := newTestHub()
	sessionID := "multi-client-session"
	client1 := testSpectator(hub, sessionID)
	client2 := testSpectator(hub, sessionID)

	hub.join(client1)
	hub.join(client2)
	if len(hub.rooms[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.rooms[sessionID]))
	}

	hub.unjoin(client1)
	if len(hub.rooms[sessionID]) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", len(hub.rooms[sessionID]))
	}
	if _, ok := hub.rooms[sessionID][client2]; !ok {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastMessageIsolatesSessions(t *testing.T) {
	hub := newTestHub()
	watching := testSpectator(hub, "watched")
	other := testSpectator(hub, "other")
	hub.join(watching)
	hub.join(other)

	ev := engine.Event{Seq: 7, Kind: engine.EventPawnMoved, Pawn: engine.Green, Action: engine.NewAction(engine.MoveNorth)}
	hub.fanOut(&Message{SessionID: "watched", Kind: KindEvent, Event: &ev, State: &engine.BoardState{TimeLeft: 99}})

	select {
	case data := <-watching.send:
		var message Message
		require.NoError(t, json.Unmarshal(data, &message))
		require.Equal(t, "watched", message.SessionID)
		require.Equal(t, KindEvent, message.Kind)
		require.Equal(t, uint64(7), message.Event.Seq)
		require.Equal(t, engine.MoveNorth, message.Event.Action.Type)
		require.Equal(t, 99, message.State.TimeLeft)
	default:
		t.Fatal("watching client got nothing")
	}
	require.Empty(t, other.send)
}

func TestHubDropsSlowSpectator(t *testing.T) {
	hub := newTestHub()
	slow := &Spectator{hub: hub, sessionID: "s", send: make(chan []byte, 1)}
	hub.join(slow)

	hub.fanOut(&Message{SessionID: "s", Kind: KindState})
	hub.fanOut(&Message{SessionID: "s", Kind: KindState})

	if _, exists := hub.rooms["s"]; exists {
		t.Error("slow client should have been unregistered")
	}
}

func TestHubBroadcastEventThroughRun(t *testing.T) {
	hub := newTestHub()
	runHub(t, hub)

	client := testSpectator(hub, "event-test")
	hub.register <- client
	require.Equal(t, 1, hub.ClientCount("event-test"))

	hub.BroadcastEvent("event-test", engine.Event{Kind: engine.EventDoSomething, ActionType: engine.Discover}, nil)
	hub.BroadcastState("event-test", &engine.BoardState{Deck: "classic"})

	var kinds []string
	for len(kinds) < 2 {
		select {
		case data := <-client.send:
			var message Message
			require.NoError(t, json.Unmarshal(data, &message))
			kinds = append(kinds, message.Kind)
		case <-time.After(time.Second):
			t.Fatalf("only got %v", kinds)
		}
	}
	require.Equal(t, []string{KindEvent, KindState}, kinds)
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := newTestHub()
	// Nobody runs the hub: the backlog fills and further events are dropped
	for i := 0; i < broadcastBacklog+10; i++ {
		hub.BroadcastEvent("s", engine.Event{}, nil)
	}
	require.Len(t, hub.broadcast, broadcastBacklog)
}

func TestHubRunStopsAndClosesClients(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()

	client := testSpectator(hub, "s")
	hub.register <- client
	cancel()
	require.NoError(t, <-errCh)

	_, ok := <-client.send
	require.False(t, ok, "client channel should be closed on shutdown")
	require.Zero(t, hub.ClientCount("s"))
}

func wsServer(t *testing.T, hub *Hub, initial *engine.BoardState) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			sessionID = "default"
		}
		hub.ServeWS(w, r, sessionID, initial)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?sessionId=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketRegisterAndCleanup(t *testing.T) {
	hub := newTestHub()
	runHub(t, hub)
	server := wsServer(t, hub, nil)

	conn := dial(t, server, "ws-test")
	require.Eventually(t, func() bool { return hub.ClientCount("ws-test") == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("ws-test") == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketInitialStateAndEvents(t *testing.T) {
	hub := newTestHub()
	runHub(t, hub)
	server := wsServer(t, hub, &engine.BoardState{Deck: "classic", TimeLeft: 180})

	conn := dial(t, server, "msg-test")
	defer conn.Close()

	read := func() Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var message Message
		require.NoError(t, json.Unmarshal(data, &message))
		return message
	}

	first := read()
	require.Equal(t, KindState, first.Kind)
	require.Equal(t, "classic", first.State.Deck)
	require.Equal(t, 180, first.State.TimeLeft)

	require.Eventually(t, func() bool { return hub.ClientCount("msg-test") == 1 }, time.Second, 5*time.Millisecond)
	hub.BroadcastEvent("msg-test", engine.Event{
		Seq:  1,
		Kind: engine.EventDiscovered, Pawn: engine.Green, CardID: 4,
		CardOrigin: engine.Coordinate{Row: 0, Col: 4},
	}, &engine.BoardState{DeckRemaining: 9})

	msg := read()
	require.Equal(t, KindEvent, msg.Kind)
	require.Equal(t, "msg-test", msg.SessionID)
	require.Equal(t, engine.EventDiscovered, msg.Event.Kind)
	require.Equal(t, 4, msg.Event.CardID)
	require.Equal(t, 9, msg.State.DeckRemaining)
}
