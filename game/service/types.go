package service

import (
	"time"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
)

// MaxPlayers is the number of seats a match can hold; every seat needs at
// least one action type.
var MaxPlayers = len(engine.ActionTypes)

// PlayerKind tells human seats from autonomous ones
type PlayerKind string

const (
	HumanPlayer PlayerKind = "human"
	AgentPlayer PlayerKind = "agent"
)

// Player is one seat at the table and the action types dealt to it.
type Player struct {
	Name    string              `json:"name"`
	Kind    PlayerKind          `json:"kind"`
	Actions []engine.ActionType `json:"actions"`
	Profile string              `json:"profile,omitempty"`
}

// Owns reports whether the player holds action type t.
func (p Player) Owns(t engine.ActionType) bool {
	for _, owned := range p.Actions {
		if owned == t {
			return true
		}
	}
	return false
}

// CreateSessionRequest describes the table of a new match.
type CreateSessionRequest struct {
	Deck   string   `json:"deck"`
	Humans []string `json:"humans"`
	// Bots lists one temperament profile name per autonomous seat. An empty
	// name uses the default profile.
	Bots []string `json:"bots"`
	// Speed is game seconds per wall second. Zero means 1, negative stops
	// the clock.
	Speed float64 `json:"speed"`
}

// SessionInfo provides information about a match
type SessionInfo struct {
	ID             string             `json:"id"`
	Deck           string             `json:"deck"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Players        []Player           `json:"players"`
	Agents         []AgentInfo        `json:"agents,omitempty"`
	State          *engine.BoardState `json:"state"`
}

// AgentInfo reports an autonomous seat and its counters.
type AgentInfo struct {
	ID      string              `json:"id"`
	Actions []engine.ActionType `json:"actions"`
	Stats   agent.Stats         `json:"stats"`
}

// ActionRequest is one action a human seat wants performed.
type ActionRequest struct {
	Player string `json:"player"`
	Pawn   string `json:"pawn"`
	Action string `json:"action"`
	// Target is the destination vortex for vortex actions.
	Target *engine.Coordinate `json:"target,omitempty"`
}

// ActionResult contains the outcome of an action
type ActionResult struct {
	Success   bool               `json:"success"`
	Pawn      engine.Color       `json:"pawn"`
	Action    engine.Action      `json:"action"`
	From      engine.Coordinate  `json:"from"`
	To        engine.Coordinate  `json:"to"`
	BlockedBy engine.Color       `json:"blocked_by,omitempty"`
	Message   string             `json:"message"`
	State     *engine.BoardState `json:"state"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions     []engine.ActionRecord `json:"actions"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	TotalPages  int                   `json:"total_pages"`
	HasNext     bool                  `json:"has_next"`
	HasPrevious bool                  `json:"has_previous"`
}

// DeckInfo provides information about a deck file
type DeckInfo struct {
	Filename     string `json:"filename"`
	DeckID       string `json:"deck_id"` // The identifier to use for session creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	BoardCards   int    `json:"board_cards"`
	Cards        int    `json:"cards"`
	TimerSeconds int    `json:"timer_seconds"`
	BuiltIn      bool   `json:"built_in,omitempty"`
}
