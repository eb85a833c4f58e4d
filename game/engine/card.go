package engine

// Card is a CardSize x CardSize block of tiles laid onto the board as a unit.
// Cards are authored with their entry edge facing south.
type Card struct {
	ID    int                      `json:"id"`
	Tiles [CardSize][CardSize]Tile `json:"tiles"`
}

// Rotate returns a copy of the card turned clockwise by the given number of
// quarter turns. Walls and discovery sides turn with the tiles.
func (c *Card) Rotate(quarterTurns int) *Card {
	q := ((quarterTurns % 4) + 4) % 4
	out := *c
	for ; q > 0; q-- {
		var next [CardSize][CardSize]Tile
		for r := 0; r < CardSize; r++ {
			for col := 0; col < CardSize; col++ {
				next[r][col] = rotateTile(out.Tiles[CardSize-1-col][r])
			}
		}
		out.Tiles = next
	}
	return &out
}

func rotateTile(t Tile) Tile {
	var walls [4]bool
	for _, d := range Directions {
		walls[d.Rotate(1)] = t.Walls[d]
	}
	t.Walls = walls
	t.Side = t.Side.Rotate(1)
	return t
}

// EntryRotation is the number of clockwise quarter turns that makes a card
// authored with a southern entry face back toward a card discovered from side.
func EntryRotation(side Direction) int {
	return int(side)
}

// Deck is a validated, ready-to-play card set.
type Deck struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	BoardCards   int     `json:"board_cards"`
	TimerSeconds int     `json:"timer_seconds"`
	Start        *Card   `json:"start"`
	Cards        []*Card `json:"cards"`
}

// Clone returns an independent copy of the deck.
func (d *Deck) Clone() *Deck {
	out := *d
	start := *d.Start
	out.Start = &start
	out.Cards = make([]*Card, len(d.Cards))
	for i, c := range d.Cards {
		copied := *c
		out.Cards[i] = &copied
	}
	return &out
}
