package engine

// Snapshot is a point-in-time copy of the board that planners may read
// without holding any lock.
type Snapshot struct {
	Grid          *Grid
	Pawns         map[Color]Pawn
	FirstPhase    bool
	TimeLeft      int
	TimerMax      int
	DeckRemaining int
	Over          bool
	Victory       bool
}

// PawnAt returns the pawn standing on c.
func (s *Snapshot) PawnAt(c Coordinate) (Color, bool) {
	for _, color := range Colors {
		if p, ok := s.Pawns[color]; ok && !p.Exited && p.At == c {
			return color, true
		}
	}
	return None, false
}

// Active returns the pawns still on the board in seating order.
func (s *Snapshot) Active() []Color {
	var out []Color
	for _, color := range Colors {
		if p, ok := s.Pawns[color]; ok && !p.Exited {
			out = append(out, color)
		}
	}
	return out
}

// PlacedTile is a discovered tile together with its coordinate.
type PlacedTile struct {
	At Coordinate `json:"at"`
	Tile
}

// BoardState is the serializable view of a board used by the transports.
type BoardState struct {
	Deck          string         `json:"deck"`
	Size          int            `json:"size"`
	Tiles         []PlacedTile   `json:"tiles"`
	Pawns         []Pawn         `json:"pawns"`
	FirstPhase    bool           `json:"first_phase"`
	TimeLeft      int            `json:"time_left"`
	TimerMax      int            `json:"timer_max"`
	DeckRemaining int            `json:"deck_remaining"`
	GameOver      bool           `json:"game_over"`
	Victory       bool           `json:"victory"`
	Moves         int            `json:"moves"`
	Attempts      int            `json:"attempts"`
	Tokens        int            `json:"tokens"`
	Recent        []ActionRecord `json:"recent,omitempty"`
}

// recentActions is how many history entries a BoardState carries.
const recentActions = 20

// State builds the serializable view of the board.
func (b *Board) State() *BoardState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state := &BoardState{
		Deck:          b.deckName,
		Size:          b.grid.Size(),
		FirstPhase:    b.firstPhase,
		TimeLeft:      b.timeLeft,
		TimerMax:      b.timerMax,
		DeckRemaining: len(b.deck),
		GameOver:      b.over,
		Victory:       b.victory,
		Moves:         b.moves,
		Attempts:      b.attempts,
		Tokens:        b.tokens,
	}
	size := b.grid.Size()
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			at := Coordinate{Row: r, Col: c}
			if t := b.grid.TileAt(at); t != nil {
				state.Tiles = append(state.Tiles, PlacedTile{At: at, Tile: *t})
			}
		}
	}
	for _, color := range Colors {
		if p, ok := b.pawns[color]; ok {
			state.Pawns = append(state.Pawns, *p)
		}
	}
	start := len(b.history) - recentActions
	if start < 0 {
		start = 0
	}
	state.Recent = append([]ActionRecord(nil), b.history[start:]...)
	return state
}
