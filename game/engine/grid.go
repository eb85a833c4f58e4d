package engine

import (
	"fmt"
	"sort"
)

// CardSize is the edge length of a card in tiles.
const CardSize = 4

// GridView is the read-only surface the planner searches over.
type GridView interface {
	Size() int
	TileAt(c Coordinate) *Tile
	IsOccupied(c Coordinate) bool
	WallBetween(a, b Coordinate) bool
	EscalatorPartner(c Coordinate) (Coordinate, bool)
	EscalatorPairs() [][2]Coordinate
	VortexCoordinates(color Color) []VortexRef
	IsEnclosed(c Coordinate) bool
}

// VortexRef locates a vortex tile by its id.
type VortexRef struct {
	ID int        `json:"id"`
	At Coordinate `json:"at"`
}

// Slot addresses a card position on the board, in card units.
type Slot struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Origin returns the top-left tile coordinate of the slot.
func (s Slot) Origin() Coordinate {
	return Coordinate{Row: s.Row * CardSize, Col: s.Col * CardSize}
}

// Neighbor returns the adjacent slot in direction d.
func (s Slot) Neighbor(d Direction) Slot {
	dr, dc := d.Delta()
	return Slot{Row: s.Row + dr, Col: s.Col + dc}
}

// Grid is the board surface. Undiscovered tiles are nil.
type Grid struct {
	cards      int
	tiles      [][]*Tile
	filled     map[Slot]int
	escalators map[int][]Coordinate
	vortexes   map[Color][]VortexRef
}

// NewGrid creates an empty grid of cards x cards card slots.
func NewGrid(cards int) *Grid {
	size := cards * CardSize
	tiles := make([][]*Tile, size)
	for r := range tiles {
		tiles[r] = make([]*Tile, size)
	}
	return &Grid{
		cards:      cards,
		tiles:      tiles,
		filled:     make(map[Slot]int),
		escalators: make(map[int][]Coordinate),
		vortexes:   make(map[Color][]VortexRef),
	}
}

// Size returns the edge length of the grid in tiles.
func (g *Grid) Size() int {
	return g.cards * CardSize
}

// Cards returns the edge length of the grid in card slots.
func (g *Grid) Cards() int {
	return g.cards
}

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Coordinate) bool {
	size := g.Size()
	return c.Row >= 0 && c.Row < size && c.Col >= 0 && c.Col < size
}

// TileAt returns the tile at c, or nil when c is out of bounds or undiscovered.
func (g *Grid) TileAt(c Coordinate) *Tile {
	if !g.InBounds(c) {
		return nil
	}
	return g.tiles[c.Row][c.Col]
}

// IsOccupied reports whether a pawn stands on c.
func (g *Grid) IsOccupied(c Coordinate) bool {
	t := g.TileAt(c)
	return t != nil && t.Occupied
}

// WallBetween reports whether a wall separates two orthogonally adjacent
// tiles. Non-adjacent or undiscovered pairs count as walled.
func (g *Grid) WallBetween(a, b Coordinate) bool {
	d, ok := a.DirectionTo(b)
	if !ok {
		return true
	}
	from, to := g.TileAt(a), g.TileAt(b)
	if from == nil || to == nil {
		return true
	}
	return from.Walls[d] || to.Walls[d.Opposite()]
}

// EscalatorPartner returns the other end of the escalator at c.
func (g *Grid) EscalatorPartner(c Coordinate) (Coordinate, bool) {
	t := g.TileAt(c)
	if t == nil || t.Escalator == 0 {
		return Coordinate{}, false
	}
	ends := g.escalators[t.Escalator]
	if len(ends) != 2 {
		return Coordinate{}, false
	}
	if ends[0] == c {
		return ends[1], true
	}
	return ends[0], true
}

// EscalatorPairs returns every complete escalator ordered by id.
func (g *Grid) EscalatorPairs() [][2]Coordinate {
	ids := make([]int, 0, len(g.escalators))
	for id, ends := range g.escalators {
		if len(ends) == 2 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	pairs := make([][2]Coordinate, 0, len(ids))
	for _, id := range ids {
		ends := g.escalators[id]
		pairs = append(pairs, [2]Coordinate{ends[0], ends[1]})
	}
	return pairs
}

// VortexCoordinates returns the vortexes of the given color ordered by id.
func (g *Grid) VortexCoordinates(color Color) []VortexRef {
	refs := g.vortexes[color]
	out := make([]VortexRef, len(refs))
	copy(out, refs)
	return out
}

// VortexByID finds the vortex of the given color and id.
func (g *Grid) VortexByID(color Color, id int) (Coordinate, bool) {
	for _, ref := range g.vortexes[color] {
		if ref.ID == id {
			return ref.At, true
		}
	}
	return Coordinate{}, false
}

// SlotOf returns the card slot that contains c.
func (g *Grid) SlotOf(c Coordinate) Slot {
	return Slot{Row: floorDiv(c.Row, CardSize), Col: floorDiv(c.Col, CardSize)}
}

// SlotInBounds reports whether s is a valid card slot.
func (g *Grid) SlotInBounds(s Slot) bool {
	return s.Row >= 0 && s.Row < g.cards && s.Col >= 0 && s.Col < g.cards
}

// SlotFree reports whether s is on the board and holds no card.
func (g *Grid) SlotFree(s Slot) bool {
	if !g.SlotInBounds(s) {
		return false
	}
	_, taken := g.filled[s]
	return !taken
}

// CenterSlot is where the start card is placed.
func (g *Grid) CenterSlot() Slot {
	return Slot{Row: g.cards / 2, Col: g.cards / 2}
}

// Place lays a card, already rotated, into a free slot and registers its
// escalators and vortexes.
func (g *Grid) Place(card *Card, slot Slot) error {
	if !g.SlotFree(slot) {
		return fmt.Errorf("slot (%d,%d) is not available", slot.Row, slot.Col)
	}
	origin := slot.Origin()
	for r := 0; r < CardSize; r++ {
		for c := 0; c < CardSize; c++ {
			tile := card.Tiles[r][c]
			at := Coordinate{Row: origin.Row + r, Col: origin.Col + c}
			g.tiles[at.Row][at.Col] = &tile
			if tile.Escalator != 0 {
				g.escalators[tile.Escalator] = append(g.escalators[tile.Escalator], at)
			}
			if tile.Type == VortexTile && tile.Color != None {
				g.vortexes[tile.Color] = append(g.vortexes[tile.Color], VortexRef{ID: tile.Vortex, At: at})
				sort.SliceStable(g.vortexes[tile.Color], func(i, j int) bool {
					return g.vortexes[tile.Color][i].ID < g.vortexes[tile.Color][j].ID
				})
			}
		}
	}
	g.filled[slot] = card.ID
	return nil
}

// IsEnclosed reports whether every orthogonal neighbour of c is discovered.
// Out-of-bounds neighbours count as discovered.
func (g *Grid) IsEnclosed(c Coordinate) bool {
	for _, d := range Directions {
		n := c.Step(d)
		if g.InBounds(n) && g.tiles[n.Row][n.Col] == nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.cards)
	for r, row := range g.tiles {
		for c, t := range row {
			if t != nil {
				copied := *t
				out.tiles[r][c] = &copied
			}
		}
	}
	for s, id := range g.filled {
		out.filled[s] = id
	}
	for id, ends := range g.escalators {
		out.escalators[id] = append([]Coordinate(nil), ends...)
	}
	for color, refs := range g.vortexes {
		out.vortexes[color] = append([]VortexRef(nil), refs...)
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
