package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/magic-maze/game/service"
	"github.com/wricardo/magic-maze/game/session"
	"github.com/wricardo/magic-maze/logging"
	"github.com/wricardo/magic-maze/transport/websocket"
)

// maxDeckBytes bounds uploaded deck files
const maxDeckBytes = 1 << 20

// DeckStore saves uploaded decks
type DeckStore interface {
	SaveDeck(name string, data []byte) error
}

// Options wires the optional parts of the server. Routes whose backend is
// nil answer 404.
type Options struct {
	Hub     *websocket.Hub
	Decks   DeckStore
	Results session.ResultStore
	Replays session.ReplayStore
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server exposes the match service over HTTP
type Server struct {
	service service.GameService
	opts    Options
	router  *mux.Router
	logger  *slog.Logger
}

// NewServer builds the router; optional collaborators come through opts
func NewServer(gameService service.GameService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("api")
	}
	s := &Server{
		service: gameService,
		opts:    opts,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes mounts the REST, websocket and metrics endpoints
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Multi-session view (must be before {id} pattern)
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetBoardState).Methods("GET")
	api.HandleFunc("/sessions/{id}/actions", s.handlePerformAction).Methods("POST")
	api.HandleFunc("/sessions/{id}/signal", s.handleSignal).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/decks", s.handleListDecks).Methods("GET")
	api.HandleFunc("/decks/{name}", s.handleSaveDeck).Methods("PUT")
	api.HandleFunc("/profiles", s.handleListProfiles).Methods("GET")

	// Finished matches
	api.HandleFunc("/results", s.handleListResults).Methods("GET")
	api.HandleFunc("/results/{id}", s.handleGetResult).Methods("GET")
	api.HandleFunc("/replays", s.handleListReplays).Methods("GET")
	api.HandleFunc("/replays/{id}", s.handleGetReplay).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics).Methods("GET")
	}
}

// ServeHTTP dispatches to the router
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// respondServiceError maps the service sentinels onto status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrDeckNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, session.ErrResultNotFound),
		errors.Is(err, session.ErrReplayNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDeck),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrUnknownPlayer),
		errors.Is(err, service.ErrTooManyPlayers),
		errors.Is(err, service.ErrDuplicatePlayer),
		errors.Is(err, service.ErrSessionIDInvalid),
		errors.Is(err, session.ErrInvalidMatchID),
		errors.Is(err, session.ErrNoPlayers):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotYourAction):
		return http.StatusForbidden
	case errors.Is(err, service.ErrGameOver),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	info, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info("session created", "session", info.ID, "deck", info.Deck, "players", len(info.Players))
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return
	deck := query.Get("deck")

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	if deck != "" {
		filtered := sessions[:0]
		for _, info := range sessions {
			if info.Deck == deck {
				filtered = append(filtered, info)
			}
		}
		sessions = filtered
	}
	total := len(sessions)

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if ti.Equal(tj) {
			return sessions[i].ID < sessions[j].ID
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetBoardState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetBoardState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handlePerformAction(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.PerformAction(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info("action",
		"session", sessionID,
		"player", req.Player,
		"pawn", result.Pawn,
		"action", result.Action.String(),
		"from", result.From.String(),
		"to", result.To.String(),
		"success", result.Success,
		"blocked_by", result.BlockedBy,
	)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Player string `json:"player"`
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.SignalDoSomething(r.Context(), sessionID, req.Player, req.Action); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Do-something token placed for %s", req.Action),
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.service.ListDecks(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decks)
}

func (s *Server) handleSaveDeck(w http.ResponseWriter, r *http.Request) {
	if s.opts.Decks == nil {
		respondError(w, http.StatusNotFound, "deck uploads are disabled")
		return
	}
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxDeckBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(data) > maxDeckBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "deck file too large")
		return
	}

	if err := s.opts.Decks.SaveDeck(name, data); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Deck saved successfully",
		"deck_id": name,
	})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.service.ListProfiles(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profiles)
}

// Finished match handlers

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if s.opts.Results == nil {
		respondError(w, http.StatusNotFound, "results are disabled")
		return
	}
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	results, err := s.opts.Results.List(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if results == nil {
		results = []*session.Result{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if s.opts.Results == nil {
		respondError(w, http.StatusNotFound, "results are disabled")
		return
	}
	result, err := s.opts.Results.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListReplays(w http.ResponseWriter, r *http.Request) {
	if s.opts.Replays == nil {
		respondError(w, http.StatusNotFound, "replays are disabled")
		return
	}
	ids, err := s.opts.Replays.ListAll()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	sort.Strings(ids)
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"count": len(ids), "replays": ids})
}

func (s *Server) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	if s.opts.Replays == nil {
		respondError(w, http.StatusNotFound, "replays are disabled")
		return
	}
	matchID := mux.Vars(r)["id"]
	events, err := s.opts.Replays.Load(matchID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": matchID,
		"count":    len(events),
		"events":   events,
	})
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo
	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if info, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, info)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		deck := query.Get("deck")
		for _, info := range all {
			if deck == "" || info.Deck == deck {
				sessions = append(sessions, info)
			}
		}
	}

	deck := ""
	running, won := 0, 0
	if len(sessions) > 0 {
		deck = sessions[0].Deck
	}

	items := make([]map[string]interface{}, 0, len(sessions))
	for _, info := range sessions {
		if info.State != nil {
			switch {
			case info.State.Victory:
				won++
			case !info.State.GameOver:
				running++
			}
		}
		items = append(items, map[string]interface{}{
			"session_id":    info.ID,
			"deck":          info.Deck,
			"players":       info.Players,
			"state":         info.State,
			"created_at":    info.CreatedAt,
			"last_accessed": info.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deck":     deck,
		"running":  running,
		"won":      won,
		"sessions": items,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.opts.Hub == nil {
		http.Error(w, "websocket disabled", http.StatusNotFound)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("sessionId")
	}
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Subscribe under the canonical id the match broadcasts with
	info, err := s.service.GetSession(context.WithoutCancel(r.Context()), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.opts.Hub.ServeWS(w, r, info.ID, info.State)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
