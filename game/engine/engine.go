package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/magic-maze/logging"
)

// Delegator is the only path through which players and agents touch the
// board. Every mutation is serialized and validated against the live state.
type Delegator interface {
	// Planning
	Snapshot() *Snapshot
	Subscribe() *Subscription

	// Actions
	Perform(actor string, pawn Color, action Action) bool
	MovePawn(actor string, pawn Color, move ActionType) bool
	UseEscalator(actor string, pawn Color) bool
	UseVortex(actor string, pawn Color, id int) bool
	DiscoverCard(actor string, pawn Color) int
	IsPerformable(pawn Color, action Action) bool
	BlockingPawn(pawn Color, action Action) (Color, bool)
	PlaceDoSomethingToken(actor string, t ActionType)

	// Status
	IsFirstPhase() bool
	IsOver() bool
}

// historyLimit bounds the action log kept for state queries.
const historyLimit = 1000

// ActionRecord is one attempted action in the board history
type ActionRecord struct {
	Actor     string    `json:"actor"`
	Pawn      Color     `json:"pawn"`
	Action    Action    `json:"action"`
	Success   bool      `json:"success"`
	TimeLeft  int       `json:"time_left"`
	Timestamp time.Time `json:"timestamp"`
}

// Board is the authoritative game state and the Delegator implementation.
type Board struct {
	mu sync.RWMutex

	deckName   string
	grid       *Grid
	deck       []*Card
	pawns      map[Color]*Pawn
	firstPhase bool
	timerMax   int
	timeLeft   int
	over       bool
	victory    bool

	moves    int
	attempts int
	tokens   int
	history  []ActionRecord

	bus    *Bus
	logger *slog.Logger
}

// BoardOption customizes a Board at construction time.
type BoardOption func(*Board)

// WithLogger replaces the board logger.
func WithLogger(l *slog.Logger) BoardOption {
	return func(b *Board) {
		b.logger = l
	}
}

// WithBus makes the board publish to an existing bus.
func WithBus(bus *Bus) BoardOption {
	return func(b *Board) {
		b.bus = bus
	}
}

// NewBoard lays the start card at the center slot and puts one pawn on each
// start tile in seating order.
func NewBoard(deck *Deck, opts ...BoardOption) (*Board, error) {
	if deck == nil || deck.Start == nil {
		return nil, fmt.Errorf("deck with a start card is required")
	}
	deck = deck.Clone()

	b := &Board{
		deckName:   deck.Name,
		grid:       NewGrid(deck.BoardCards),
		deck:       deck.Cards,
		pawns:      make(map[Color]*Pawn, len(Colors)),
		firstPhase: true,
		timerMax:   deck.TimerSeconds,
		timeLeft:   deck.TimerSeconds,
		logger:     logging.New("board"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.bus == nil {
		b.bus = NewBus()
	}

	center := b.grid.CenterSlot()
	if err := b.grid.Place(deck.Start, center); err != nil {
		return nil, fmt.Errorf("failed to place start card: %w", err)
	}

	starts := FindTiles(b.grid, StartTile, None)
	if len(starts) < len(Colors) {
		return nil, fmt.Errorf("start card has %d start tiles, need %d", len(starts), len(Colors))
	}
	for i, color := range Colors {
		at := starts[i]
		b.pawns[color] = &Pawn{Color: color, At: at}
		b.grid.TileAt(at).Occupied = true
	}

	b.logger.Debug("board created", "deck", deck.Name, "cards", len(deck.Cards), "timer", deck.TimerSeconds)
	return b, nil
}

// Bus returns the event bus the board publishes to.
func (b *Board) Bus() *Bus {
	return b.bus
}

// Subscribe registers a new event subscriber.
func (b *Board) Subscribe() *Subscription {
	return b.bus.Subscribe()
}

// Snapshot returns a deep copy of the board for planning.
func (b *Board) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	pawns := make(map[Color]Pawn, len(b.pawns))
	for c, p := range b.pawns {
		pawns[c] = *p
	}
	return &Snapshot{
		Grid:          b.grid.Clone(),
		Pawns:         pawns,
		FirstPhase:    b.firstPhase,
		TimeLeft:      b.timeLeft,
		TimerMax:      b.timerMax,
		DeckRemaining: len(b.deck),
		Over:          b.over,
		Victory:       b.victory,
	}
}

// IsOver returns whether the game has ended
func (b *Board) IsOver() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.over
}

// IsVictory returns whether every pawn escaped in time
func (b *Board) IsVictory() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.victory
}

// IsFirstPhase returns whether the pawns are still collecting items
func (b *Board) IsFirstPhase() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.firstPhase
}

// TimeLeft returns the seconds remaining on the sand timer
func (b *Board) TimeLeft() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.timeLeft
}

// PawnPosition returns where a pawn stands
func (b *Board) PawnPosition(color Color) (Coordinate, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pawns[color]
	if !ok {
		return Coordinate{}, false
	}
	return p.At, true
}

// History returns a copy of the recorded actions, oldest first
func (b *Board) History() []ActionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ActionRecord, len(b.history))
	copy(out, b.history)
	return out
}

// IsPerformable reports whether the action would currently succeed.
func (b *Board) IsPerformable(pawn Color, action Action) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p := b.activePawn(pawn)
	if p == nil {
		return false
	}
	if action.Type == Discover {
		_, _, ok := b.discoverySlot(p)
		return ok
	}
	to, ok := b.destination(p, action)
	return ok && !b.grid.IsOccupied(to)
}

// BlockingPawn returns the pawn standing on the destination of an otherwise
// legal action.
func (b *Board) BlockingPawn(pawn Color, action Action) (Color, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p := b.activePawn(pawn)
	if p == nil || action.Type == Discover {
		return None, false
	}
	to, ok := b.destination(p, action)
	if !ok || !b.grid.IsOccupied(to) {
		return None, false
	}
	return b.pawnAt(to)
}

// AdvanceClock runs the sand timer down and ends the game in defeat when it
// empties. It reports whether the game is over.
func (b *Board) AdvanceClock(seconds int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.over {
		return true
	}
	b.timeLeft -= seconds
	if b.timeLeft <= 0 {
		b.timeLeft = 0
		b.finish(false)
	}
	return b.over
}

// RunClock advances the timer by one second every step until the game ends
// or ctx is cancelled.
func (b *Board) RunClock(ctx context.Context, step time.Duration) error {
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.AdvanceClock(1) {
				return nil
			}
		}
	}
}

// Abort ends a running game without a victory.
func (b *Board) Abort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.over {
		b.finish(false)
	}
}

func (b *Board) activePawn(color Color) *Pawn {
	if b.over {
		return nil
	}
	p, ok := b.pawns[color]
	if !ok || p.Exited {
		return nil
	}
	return p
}

func (b *Board) pawnAt(at Coordinate) (Color, bool) {
	for _, color := range Colors {
		if p, ok := b.pawns[color]; ok && !p.Exited && p.At == at {
			return color, true
		}
	}
	return None, false
}

func (b *Board) finish(victory bool) {
	b.over = true
	b.victory = victory
	b.bus.Publish(Event{Kind: EventGameOver, Victory: victory, TimeLeft: b.timeLeft})
	b.logger.Info("game over", "deck", b.deckName, "victory", victory, "time_left", b.timeLeft, "moves", b.moves)
}
