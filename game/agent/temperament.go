package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/magic-maze/game/planner"
)

// Temperament tunes how an agent thinks. Profiles are loaded from YAML.
type Temperament struct {
	Name string `yaml:"name" json:"name"`
	// ProcessingRatio speeds up (>1) or slows down (<1) the tick cadence.
	ProcessingRatio float64 `yaml:"processing_ratio" json:"processing_ratio"`
	// Blindness is how many moves of another pawn it takes before the agent
	// starts planning for that pawn instead.
	Blindness int `yaml:"blindness" json:"blindness"`
	// Patience is how many idle ticks pass before a do-something token.
	Patience int `yaml:"patience" json:"patience"`
	// Stubbornness is how many idle ticks pass before switching pawn.
	Stubbornness int                  `yaml:"stubbornness" json:"stubbornness"`
	Heuristic    planner.Heuristic    `yaml:"heuristic" json:"heuristic"`
	ChunkSize    int                  `yaml:"chunk_size" json:"chunk_size"`
	MemoryChunks int                  `yaml:"memory_chunks" json:"memory_chunks"`
	Completeness planner.Completeness `yaml:"completeness" json:"completeness"`
	// SettleDelay pauses the agent after the timer flips.
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
}

// DefaultTemperament is a balanced profile.
func DefaultTemperament() Temperament {
	return Temperament{
		Name:            "balanced",
		ProcessingRatio: 1,
		Blindness:       3,
		Patience:        6,
		Stubbornness:    3,
		Heuristic:       planner.Manhattan,
		ChunkSize:       3,
		MemoryChunks:    8,
		Completeness:    planner.GoalsFound,
		SettleDelay:     200 * time.Millisecond,
	}
}

// Validate checks every field and fills the enum defaults.
func (t *Temperament) Validate() error {
	var errs []error
	if t.ProcessingRatio <= 0 {
		errs = append(errs, fmt.Errorf("processing_ratio must be positive, got %v", t.ProcessingRatio))
	}
	if t.Blindness < 0 {
		errs = append(errs, fmt.Errorf("blindness cannot be negative, got %d", t.Blindness))
	}
	if t.Patience < 1 {
		errs = append(errs, fmt.Errorf("patience must be at least 1, got %d", t.Patience))
	}
	if t.Stubbornness < 1 {
		errs = append(errs, fmt.Errorf("stubbornness must be at least 1, got %d", t.Stubbornness))
	}
	if t.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk_size must be at least 1, got %d", t.ChunkSize))
	}
	if t.MemoryChunks < 1 {
		errs = append(errs, fmt.Errorf("memory_chunks must be at least 1, got %d", t.MemoryChunks))
	}
	if t.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("settle_delay cannot be negative, got %s", t.SettleDelay))
	}
	h, err := planner.ParseHeuristic(string(t.Heuristic))
	if err != nil {
		errs = append(errs, err)
	}
	c, err := planner.ParseCompleteness(string(t.Completeness))
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("temperament %q: %w", t.Name, errors.Join(errs...))
	}
	t.Heuristic, t.Completeness = h, c
	return nil
}

// Cadence is the tick period for a given base period.
func (t Temperament) Cadence(base time.Duration) time.Duration {
	ratio := t.ProcessingRatio
	if ratio <= 0 {
		ratio = 1
	}
	d := time.Duration(float64(base) / ratio)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// blindness treats zero as "switch on the first foreign move".
func (t Temperament) blindness() int {
	if t.Blindness < 1 {
		return 1
	}
	return t.Blindness
}
