package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color identifies a pawn and the tiles that belong to it.
type Color string

const (
	None   Color = "none"
	Green  Color = "green"
	Purple Color = "purple"
	Orange Color = "orange"
	Yellow Color = "yellow"
)

// Colors lists the pawn colors in seating order.
var Colors = []Color{Green, Purple, Orange, Yellow}

// ParseColor converts a color name into a Color
func ParseColor(s string) (Color, error) {
	switch c := Color(strings.ToLower(strings.TrimSpace(s))); c {
	case Green, Purple, Orange, Yellow:
		return c, nil
	case "", None:
		return None, nil
	default:
		return None, fmt.Errorf("unknown color %q", s)
	}
}

// Direction is one of the four card edges, clockwise from north.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

var directionNames = [...]string{"N", "E", "S", "W"}

// Directions lists the four directions in clockwise order
var Directions = []Direction{North, East, South, West}

func (d Direction) String() string {
	if d < North || d > West {
		return "?"
	}
	return directionNames[d]
}

// Opposite returns the direction facing d.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// Rotate turns d clockwise by the given number of quarter turns.
func (d Direction) Rotate(quarterTurns int) Direction {
	return Direction(((int(d)+quarterTurns)%4 + 4) % 4)
}

// Delta returns the row and column offsets of one step in direction d.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return -1, 0
	case East:
		return 0, 1
	case South:
		return 1, 0
	default:
		return 0, -1
	}
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts N/E/S/W or the full direction names.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH":
		return North, nil
	case "E", "EAST":
		return East, nil
	case "S", "SOUTH":
		return South, nil
	case "W", "WEST":
		return West, nil
	}
	return North, fmt.Errorf("unknown direction %q", s)
}

// TileType represents the different kinds of board tiles
type TileType string

const (
	StartTile     TileType = "start"
	PathTile      TileType = "path"
	ObstacleTile  TileType = "obstacle"
	ItemTile      TileType = "item"
	ExitTile      TileType = "exit"
	VortexTile    TileType = "vortex"
	DiscoveryTile TileType = "discovery"
	TimerTile     TileType = "timer"
)

// Coordinate is a (row, column) position on the board grid
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Step returns the neighbouring coordinate in direction d.
func (c Coordinate) Step(d Direction) Coordinate {
	dr, dc := d.Delta()
	return Coordinate{Row: c.Row + dr, Col: c.Col + dc}
}

// DirectionTo returns the direction of an orthogonally adjacent coordinate.
func (c Coordinate) DirectionTo(other Coordinate) (Direction, bool) {
	for _, d := range Directions {
		if c.Step(d) == other {
			return d, true
		}
	}
	return North, false
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Tile represents a single discovered board cell.
// Only Occupied and Used change after the tile is placed.
type Tile struct {
	Type      TileType  `json:"type"`
	Color     Color     `json:"color,omitempty"`
	Walls     [4]bool   `json:"walls"`
	Escalator int       `json:"escalator,omitempty"`
	Vortex    int       `json:"vortex,omitempty"`
	Side      Direction `json:"side,omitempty"`
	Occupied  bool      `json:"occupied,omitempty"`
	Used      bool      `json:"used,omitempty"`
}

// Walkable reports whether a pawn may stand on the tile.
func (t *Tile) Walkable() bool {
	return t != nil && t.Type != ObstacleTile
}

// HasWall reports whether the tile has a wall on edge d.
func (t *Tile) HasWall(d Direction) bool {
	return t != nil && t.Walls[d]
}

// ActionType enumerates the actions a pawn can be given
type ActionType int

const (
	ActionNone ActionType = iota
	MoveNorth
	MoveEast
	MoveSouth
	MoveWest
	Discover
	Vortex
	Escalator
)

// ActionTypes lists every playable action type in seating order.
var ActionTypes = []ActionType{MoveNorth, MoveEast, MoveSouth, MoveWest, Discover, Vortex, Escalator}

var actionNames = map[ActionType]string{
	ActionNone: "none",
	MoveNorth:  "move-north",
	MoveEast:   "move-east",
	MoveSouth:  "move-south",
	MoveWest:   "move-west",
	Discover:   "discover",
	Vortex:     "vortex",
	Escalator:  "escalator",
}

func (t ActionType) String() string {
	if name, ok := actionNames[t]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(t))
}

// ParseActionType converts an action name such as "move-north" into an ActionType
func ParseActionType(s string) (ActionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range actionNames {
		if name == s && t != ActionNone {
			return t, nil
		}
	}
	switch s {
	case "up", "north", "n":
		return MoveNorth, nil
	case "right", "east", "e":
		return MoveEast, nil
	case "down", "south", "s":
		return MoveSouth, nil
	case "left", "west", "w":
		return MoveWest, nil
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t ActionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts "none" so
// recorded events round-trip.
func (t *ActionType) UnmarshalText(b []byte) error {
	if string(b) == actionNames[ActionNone] {
		*t = ActionNone
		return nil
	}
	parsed, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Direction returns the move direction of a directional action.
func (t ActionType) Direction() (Direction, bool) {
	switch t {
	case MoveNorth:
		return North, true
	case MoveEast:
		return East, true
	case MoveSouth:
		return South, true
	case MoveWest:
		return West, true
	}
	return North, false
}

// MoveToward returns the directional action that moves one step in direction d.
func MoveToward(d Direction) ActionType {
	return MoveNorth + ActionType(d)
}

// Action is one step of a plan. Target is only meaningful for vortex actions,
// where it names the destination vortex tile.
type Action struct {
	Type   ActionType `json:"type"`
	Target Coordinate `json:"target"`
}

// NewAction builds a target-less action.
func NewAction(t ActionType) Action {
	return Action{Type: t}
}

// VortexTo builds a vortex action toward the given vortex tile.
func VortexTo(target Coordinate) Action {
	return Action{Type: Vortex, Target: target}
}

func (a Action) String() string {
	if a.Type == Vortex {
		return fmt.Sprintf("vortex->%s", a.Target)
	}
	return a.Type.String()
}

// MarshalJSON omits the target for actions that do not use it.
func (a Action) MarshalJSON() ([]byte, error) {
	if a.Type != Vortex {
		return json.Marshal(struct {
			Type ActionType `json:"type"`
		}{a.Type})
	}
	type plain Action
	return json.Marshal(plain(a))
}

// Pawn is a colored token on the board
type Pawn struct {
	Color  Color      `json:"color"`
	At     Coordinate `json:"at"`
	Exited bool       `json:"exited,omitempty"`
}

// DistributeActions deals the playable action types round-robin over n players.
func DistributeActions(players int) [][]ActionType {
	if players < 1 {
		return nil
	}
	hands := make([][]ActionType, players)
	for i, t := range ActionTypes {
		hands[i%players] = append(hands[i%players], t)
	}
	return hands
}
