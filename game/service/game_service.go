package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDeckNotFound     = errors.New("deck not found")
	ErrInvalidDeck      = errors.New("invalid deck")
	ErrProfileNotFound  = errors.New("agent profile not found")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrNotYourAction    = errors.New("action belongs to another player")
	ErrInvalidAction    = errors.New("invalid action")
	ErrGameOver         = errors.New("game is over")
	ErrTooManyPlayers   = errors.New("too many players")
	ErrDuplicatePlayer  = errors.New("duplicate player name")
	ErrSessionIDInvalid = errors.New("invalid session ID")
)

// GameService defines all match-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	PerformAction(ctx context.Context, sessionID string, req ActionRequest) (*ActionResult, error)
	SignalDoSomething(ctx context.Context, sessionID, player, actionType string) error

	// Game State
	GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListDecks(ctx context.Context) ([]*DeckInfo, error)
	ListProfiles(ctx context.Context) ([]agent.Temperament, error)
}

// SessionManager owns running matches
type SessionManager interface {
	Create(opts MatchOptions) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager loads decks and agent profiles
type ConfigManager interface {
	LoadDeck(name string) (*engine.Deck, error)
	ListDecks() ([]*DeckInfo, error)
	DefaultDeck() string
	Profile(name string) (agent.Temperament, error)
	Profiles() []agent.Temperament
}

// MatchOptions is everything a SessionManager needs to start a match.
type MatchOptions struct {
	ID     string
	DeckID string
	Deck   *engine.Deck
	Humans []string
	Bots   []agent.Temperament
	// ClockStep is the wall time of one game second. Zero leaves the clock
	// stopped.
	ClockStep time.Duration
	// Cadence is the base tick period of every agent.
	Cadence time.Duration
}

// Session represents a running match
type Session struct {
	ID             string
	DeckID         string
	Board          *engine.Board
	Players        []Player
	Agents         []*agent.Agent
	CreatedAt      time.Time
	LastAccessedAt time.Time
	// Done is closed once every goroutine of the match has returned.
	Done <-chan struct{}
}

// Player returns the seat with the given name.
func (s *Session) Player(name string) (Player, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}
