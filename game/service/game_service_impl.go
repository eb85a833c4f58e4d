package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/logging"
)

// DefaultBots is how many default agents sit at a table created without
// any seats.
const DefaultBots = 4

// gameServiceImpl backs GameService with a session manager and the config cache
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewGameService wires the match service
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   logging.New("service"),
	}
}

// CreateSession starts a new match
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deckID := req.Deck
	if deckID == "" {
		deckID = s.configs.DefaultDeck()
	}
	deck, err := s.configs.LoadDeck(deckID)
	if err != nil {
		// List the decks that do exist
		if errors.Is(err, ErrDeckNotFound) {
			if decks, listErr := s.configs.ListDecks(); listErr == nil && len(decks) > 0 {
				ids := make([]string, 0, len(decks))
				for _, d := range decks {
					ids = append(ids, d.DeckID)
				}
				return nil, fmt.Errorf("%w: '%s'. Available decks: %v", ErrDeckNotFound, deckID, ids)
			}
		}
		return nil, fmt.Errorf("failed to load deck %s: %w", deckID, err)
	}

	humans := make([]string, 0, len(req.Humans))
	for _, name := range req.Humans {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrUnknownPlayer)
		}
		humans = append(humans, name)
	}

	profiles := req.Bots
	if len(humans) == 0 && len(profiles) == 0 {
		profiles = make([]string, DefaultBots)
	}
	bots := make([]agent.Temperament, 0, len(profiles))
	for _, name := range profiles {
		temp, err := s.configs.Profile(name)
		if err != nil {
			return nil, err
		}
		bots = append(bots, temp)
	}

	if seats := len(humans) + len(bots); seats > MaxPlayers {
		return nil, fmt.Errorf("%w: %d seats, at most %d", ErrTooManyPlayers, seats, MaxPlayers)
	}

	sess, err := s.sessions.Create(MatchOptions{
		DeckID:    deckID,
		Deck:      deck,
		Humans:    humans,
		Bots:      bots,
		ClockStep: clockStep(req.Speed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", "session", sess.ID, "deck", deckID, "humans", len(humans), "bots", len(bots))
	return sessionInfo(sess), nil
}

// GetSession describes one running match and marks it accessed
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all running and finished matches still held in memory
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession stops a match and forgets it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// PerformAction executes one action for a human seat
func (s *gameServiceImpl) PerformAction(ctx context.Context, sessionID string, req ActionRequest) (*ActionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	player, ok := sess.Player(req.Player)
	if !ok || player.Kind != HumanPlayer {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, req.Player)
	}
	pawn, action, err := parseAction(req)
	if err != nil {
		return nil, err
	}
	if !player.Owns(action.Type) {
		return nil, fmt.Errorf("%w: %s does not hold %s", ErrNotYourAction, player.Name, action.Type)
	}
	if sess.Board.IsOver() {
		return nil, ErrGameOver
	}

	from, _ := sess.Board.PawnPosition(pawn)
	success := sess.Board.Perform(player.Name, pawn, action)
	to, _ := sess.Board.PawnPosition(pawn)

	result := &ActionResult{
		Success: success,
		Pawn:    pawn,
		Action:  action,
		From:    from,
		To:      to,
		State:   sess.Board.State(),
	}
	switch {
	case success:
		result.Message = fmt.Sprintf("%s: %s", pawn, action)
	default:
		result.Message = fmt.Sprintf("%s cannot %s", pawn, action)
		if blocker, found := sess.Board.BlockingPawn(pawn, action); found {
			result.BlockedBy = blocker
			result.Message += fmt.Sprintf(": blocked by %s", blocker)
		}
	}
	return result, nil
}

// SignalDoSomething places a do-something token asking the holder of
// actionType to act
func (s *gameServiceImpl) SignalDoSomething(ctx context.Context, sessionID, player, actionType string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	if _, ok := sess.Player(player); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, player)
	}
	t, err := engine.ParseActionType(actionType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if sess.Board.IsOver() {
		return ErrGameOver
	}
	sess.Board.PlaceDoSomethingToken(player, t)
	return nil
}

// GetBoardState retrieves the current board
func (s *gameServiceImpl) GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Board.State(), nil
}

// GetHistory returns paginated action history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Board.History()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	actions := []engine.ActionRecord{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < total {
		actions = append(actions, history[start:end]...)
	}

	return &HistoryResponse{
		Actions:     actions,
		Total:       total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListDecks returns the available decks
func (s *gameServiceImpl) ListDecks(ctx context.Context) ([]*DeckInfo, error) {
	return s.configs.ListDecks()
}

// ListProfiles returns the agent temperament profiles
func (s *gameServiceImpl) ListProfiles(ctx context.Context) ([]agent.Temperament, error) {
	return s.configs.Profiles(), nil
}

func (s *gameServiceImpl) get(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		s.logger.Debug("failed to touch session", "session", sessionID, "error", err)
	}
	return sess, nil
}

func sessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		Deck:           sess.DeckID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Players:        sess.Players,
		State:          sess.Board.State(),
	}
	for _, a := range sess.Agents {
		info.Agents = append(info.Agents, AgentInfo{
			ID:      a.ID(),
			Actions: a.Actions(),
			Stats:   a.Stats(),
		})
	}
	return info
}

func parseAction(req ActionRequest) (engine.Color, engine.Action, error) {
	pawn, err := engine.ParseColor(req.Pawn)
	if err != nil || pawn == engine.None {
		return engine.None, engine.Action{}, fmt.Errorf("%w: unknown pawn %q", ErrInvalidAction, req.Pawn)
	}
	t, err := engine.ParseActionType(req.Action)
	if err != nil {
		return engine.None, engine.Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if t != engine.Vortex {
		return pawn, engine.NewAction(t), nil
	}
	if req.Target == nil {
		return engine.None, engine.Action{}, fmt.Errorf("%w: vortex needs a target", ErrInvalidAction)
	}
	return pawn, engine.VortexTo(*req.Target), nil
}

// clockStep converts a game speed into the wall time of one game second.
func clockStep(speed float64) time.Duration {
	switch {
	case speed < 0:
		return 0
	case speed == 0:
		return time.Second
	}
	return max(time.Duration(float64(time.Second)/speed), time.Millisecond)
}
