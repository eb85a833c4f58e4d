package engine

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	MinBoardCards   = 3
	MaxBoardCards   = 15
	MinTimerSeconds = 10
	MaxTimerSeconds = 3600
)

//go:embed decks/classic.json
var classicDeckJSON []byte

// DeckSpec is the on-disk JSON form of a deck.
type DeckSpec struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	BoardCards   int        `json:"board_cards"`
	TimerSeconds int        `json:"timer_seconds"`
	Start        CardSpec   `json:"start"`
	Cards        []CardSpec `json:"cards"`
}

// CardSpec describes one card. Layout characters are '.' path, '#' obstacle,
// 'S' start and 'T' timer; colored tiles are listed separately.
type CardSpec struct {
	ID         int         `json:"id"`
	Layout     []string    `json:"layout"`
	Tiles      []TileSpec  `json:"tiles,omitempty"`
	Walls      []WallSpec  `json:"walls,omitempty"`
	Escalators [][2][2]int `json:"escalators,omitempty"`
}

// TileSpec places a colored tile on a card.
type TileSpec struct {
	At    [2]int   `json:"at"`
	Type  TileType `json:"type"`
	Color Color    `json:"color"`
	Side  string   `json:"side,omitempty"`
}

// WallSpec lists the walled edges of one tile, e.g. "NE".
type WallSpec struct {
	At    [2]int `json:"at"`
	Sides string `json:"sides"`
}

const deckSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "board_cards", "timer_seconds", "start", "cards"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "board_cards": {"type": "integer"},
    "timer_seconds": {"type": "integer"},
    "start": {"$ref": "#/definitions/card"},
    "cards": {"type": "array", "items": {"$ref": "#/definitions/card"}}
  },
  "definitions": {
    "coord": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0, "maximum": 3},
      "minItems": 2,
      "maxItems": 2
    },
    "card": {
      "type": "object",
      "required": ["id", "layout"],
      "properties": {
        "id": {"type": "integer", "minimum": 1},
        "layout": {
          "type": "array",
          "items": {"type": "string", "pattern": "^[.#ST]{4}$"},
          "minItems": 4,
          "maxItems": 4
        },
        "tiles": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["at", "type", "color"],
            "properties": {
              "at": {"$ref": "#/definitions/coord"},
              "type": {"enum": ["item", "exit", "vortex", "discovery"]},
              "color": {"enum": ["green", "purple", "orange", "yellow"]},
              "side": {"enum": ["N", "E", "S", "W"]}
            }
          }
        },
        "walls": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["at", "sides"],
            "properties": {
              "at": {"$ref": "#/definitions/coord"},
              "sides": {"type": "string", "pattern": "^[NESW]{1,4}$"}
            }
          }
        },
        "escalators": {
          "type": "array",
          "items": {
            "type": "array",
            "items": {"$ref": "#/definitions/coord"},
            "minItems": 2,
            "maxItems": 2
          }
        }
      }
    }
  }
}`

var deckSchema = jsonschema.MustCompileString("deck.schema.json", deckSchemaJSON)

// ParseDeck checks raw deck JSON against the deck schema, validates the
// result and builds the playable deck.
func ParseDeck(data []byte) (*Deck, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("deck is not valid JSON: %w", err)
	}
	if err := deckSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("deck schema validation: %w", err)
	}

	var spec DeckSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode deck: %w", err)
	}
	if err := ValidateDeck(&spec); err != nil {
		return nil, err
	}
	return spec.Build(), nil
}

// ValidateDeck validates a deck for correctness and playability
func ValidateDeck(spec *DeckSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("deck validation: name is required")
	}
	if spec.BoardCards < MinBoardCards || spec.BoardCards > MaxBoardCards {
		return fmt.Errorf("deck validation: board_cards must be between %d and %d, got %d",
			MinBoardCards, MaxBoardCards, spec.BoardCards)
	}
	if spec.TimerSeconds < MinTimerSeconds || spec.TimerSeconds > MaxTimerSeconds {
		return fmt.Errorf("deck validation: timer_seconds must be between %d and %d, got %d",
			MinTimerSeconds, MaxTimerSeconds, spec.TimerSeconds)
	}

	ids := make(map[int]bool)
	if err := validateCard(&spec.Start, ids); err != nil {
		return fmt.Errorf("deck validation: start card: %w", err)
	}
	if starts := countLayout(&spec.Start, 'S'); starts != len(Colors) {
		return fmt.Errorf("deck validation: start card must have %d start tiles, got %d", len(Colors), starts)
	}

	items := make(map[Color]int)
	exits := make(map[Color]int)
	count := func(card *CardSpec) {
		for _, ts := range card.Tiles {
			switch ts.Type {
			case ItemTile:
				items[ts.Color]++
			case ExitTile:
				exits[ts.Color]++
			}
		}
	}
	count(&spec.Start)

	for i := range spec.Cards {
		card := &spec.Cards[i]
		if err := validateCard(card, ids); err != nil {
			return fmt.Errorf("deck validation: card %d: %w", card.ID, err)
		}
		if countLayout(card, 'S') != 0 {
			return fmt.Errorf("deck validation: card %d: only the start card may hold start tiles", card.ID)
		}
		count(card)
	}

	// Every pawn needs exactly one item and one exit somewhere in the deck
	for _, color := range Colors {
		if items[color] != 1 {
			return fmt.Errorf("deck validation: deck must hold exactly one %s item, got %d", color, items[color])
		}
		if exits[color] != 1 {
			return fmt.Errorf("deck validation: deck must hold exactly one %s exit, got %d", color, exits[color])
		}
	}

	if len(spec.Cards) >= spec.BoardCards*spec.BoardCards {
		return fmt.Errorf("deck validation: %d cards cannot fit on a %dx%d board",
			len(spec.Cards)+1, spec.BoardCards, spec.BoardCards)
	}
	return nil
}

func validateCard(card *CardSpec, ids map[int]bool) error {
	if card.ID < 1 {
		return fmt.Errorf("id must be positive, got %d", card.ID)
	}
	if ids[card.ID] {
		return fmt.Errorf("duplicate card id %d", card.ID)
	}
	ids[card.ID] = true

	if len(card.Layout) != CardSize {
		return fmt.Errorf("layout must have %d rows, got %d", CardSize, len(card.Layout))
	}
	for i, row := range card.Layout {
		if len(row) != CardSize {
			return fmt.Errorf("row %d must have %d characters, got %d", i+1, CardSize, len(row))
		}
		for j, char := range row {
			switch char {
			case '.', '#', 'S', 'T':
			default:
				return fmt.Errorf("invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
		}
	}

	special := make(map[[2]int]bool)
	for _, ts := range card.Tiles {
		if !inCard(ts.At) {
			return fmt.Errorf("tile at %v is outside the card", ts.At)
		}
		if special[ts.At] {
			return fmt.Errorf("tile at %v is listed twice", ts.At)
		}
		special[ts.At] = true
		if card.Layout[ts.At[0]][ts.At[1]] != '.' {
			return fmt.Errorf("%s tile at %v must sit on a path cell", ts.Type, ts.At)
		}
		switch ts.Type {
		case ItemTile, ExitTile, VortexTile:
		case DiscoveryTile:
			side, err := ParseDirection(ts.Side)
			if err != nil {
				return fmt.Errorf("discovery tile at %v: %w", ts.At, err)
			}
			if !onEdge(ts.At, side) {
				return fmt.Errorf("discovery tile at %v does not lie on its %s edge", ts.At, side)
			}
		default:
			return fmt.Errorf("unsupported tile type %q at %v", ts.Type, ts.At)
		}
		if _, err := ParseColor(string(ts.Color)); err != nil || ts.Color == None {
			return fmt.Errorf("tile at %v needs a pawn color, got %q", ts.At, ts.Color)
		}
	}

	for _, ws := range card.Walls {
		if !inCard(ws.At) {
			return fmt.Errorf("wall at %v is outside the card", ws.At)
		}
		for _, s := range ws.Sides {
			if _, err := ParseDirection(string(s)); err != nil {
				return fmt.Errorf("wall at %v: %w", ws.At, err)
			}
		}
	}

	for i, esc := range card.Escalators {
		for _, end := range esc {
			if !inCard(end) {
				return fmt.Errorf("escalator %d end %v is outside the card", i+1, end)
			}
			if card.Layout[end[0]][end[1]] != '.' || special[end] {
				return fmt.Errorf("escalator %d end %v must sit on a plain path cell", i+1, end)
			}
			special[end] = true
		}
		if esc[0] == esc[1] {
			return fmt.Errorf("escalator %d connects a tile to itself", i+1)
		}
	}
	return nil
}

func inCard(at [2]int) bool {
	return at[0] >= 0 && at[0] < CardSize && at[1] >= 0 && at[1] < CardSize
}

func onEdge(at [2]int, side Direction) bool {
	switch side {
	case North:
		return at[0] == 0
	case South:
		return at[0] == CardSize-1
	case East:
		return at[1] == CardSize-1
	default:
		return at[1] == 0
	}
}

func countLayout(card *CardSpec, char byte) int {
	n := 0
	for _, row := range card.Layout {
		n += strings.Count(row, string(char))
	}
	return n
}

// Build converts a validated spec into a playable deck.
func (spec *DeckSpec) Build() *Deck {
	deck := &Deck{
		Name:         spec.Name,
		Description:  spec.Description,
		BoardCards:   spec.BoardCards,
		TimerSeconds: spec.TimerSeconds,
		Start:        spec.Start.Build(),
		Cards:        make([]*Card, 0, len(spec.Cards)),
	}
	for i := range spec.Cards {
		deck.Cards = append(deck.Cards, spec.Cards[i].Build())
	}
	return deck
}

// Build converts a validated card spec into a Card. Vortex ids equal the
// card id and escalator ids are card id * 100 plus the escalator's index.
func (card *CardSpec) Build() *Card {
	out := &Card{ID: card.ID}
	for r, row := range card.Layout {
		for c, char := range row {
			tile := Tile{Type: PathTile, Color: None}
			switch char {
			case '#':
				tile.Type = ObstacleTile
			case 'S':
				tile.Type = StartTile
			case 'T':
				tile.Type = TimerTile
			}
			out.Tiles[r][c] = tile
		}
	}
	for _, ts := range card.Tiles {
		tile := &out.Tiles[ts.At[0]][ts.At[1]]
		tile.Type = ts.Type
		tile.Color = ts.Color
		if ts.Type == DiscoveryTile {
			tile.Side, _ = ParseDirection(ts.Side)
		}
		if ts.Type == VortexTile {
			tile.Vortex = card.ID
		}
	}
	for _, ws := range card.Walls {
		for _, s := range ws.Sides {
			d, _ := ParseDirection(string(s))
			out.Tiles[ws.At[0]][ws.At[1]].Walls[d] = true
		}
	}
	for i, esc := range card.Escalators {
		id := card.ID*100 + i + 1
		for _, end := range esc {
			out.Tiles[end[0]][end[1]].Escalator = id
		}
	}
	return out
}

// LoadDeck loads and validates a deck from a JSON file
func LoadDeck(filename string) (*Deck, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	deck, err := ParseDeck(data)
	if err != nil {
		return nil, fmt.Errorf("invalid deck '%s': %w", filepath.Base(filename), err)
	}
	return deck, nil
}

// ClassicDeck returns the built-in deck.
func ClassicDeck() *Deck {
	deck, err := ParseDeck(classicDeckJSON)
	if err != nil {
		panic(fmt.Sprintf("built-in deck is invalid: %v", err))
	}
	return deck
}
