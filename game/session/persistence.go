package session

import (
	"context"
	"time"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
)

// Outcomes a finished match can have
const (
	OutcomeVictory = "victory"
	OutcomeDefeat  = "defeat"
	OutcomeAborted = "aborted"
)

// ReplayStore keeps the event log of every match
type ReplayStore interface {
	// Open starts the log of a new match
	Open(matchID string) (ReplayWriter, error)

	// Load reads back every event of a match in order
	Load(matchID string) ([]engine.Event, error)

	// Delete removes a match log
	Delete(matchID string) error

	// ListAll returns the ids of every stored match log
	ListAll() ([]string, error)

	// Exists checks if a match log exists
	Exists(matchID string) bool
}

// ReplayWriter appends events to one match log
type ReplayWriter interface {
	Write(ev engine.Event) error
	Close() error
}

// ResultStore indexes finished matches
type ResultStore interface {
	Save(ctx context.Context, result *Result) error
	Get(ctx context.Context, matchID string) (*Result, error)
	List(ctx context.Context, limit int) ([]*Result, error)
}

// Result is the summary of a finished match
type Result struct {
	MatchID    string        `json:"match_id"`
	Deck       string        `json:"deck"`
	Outcome    string        `json:"outcome"`
	Players    int           `json:"players"`
	TimeLeft   int           `json:"time_left"`
	Moves      int           `json:"moves"`
	Attempts   int           `json:"attempts"`
	Tokens     int           `json:"tokens"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Agents     []AgentResult `json:"agents,omitempty"`
}

// AgentResult holds the final counters of one agent seat
type AgentResult struct {
	Agent   string      `json:"agent"`
	Profile string      `json:"profile"`
	Stats   agent.Stats `json:"stats"`
}
