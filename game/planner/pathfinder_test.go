package planner

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wricardo/magic-maze/game/engine"
)

// testGrid lays rows out as 4x4 cards. A card whose rows are all '?' stays
// undiscovered. Layout characters: '.' path, '#' obstacle, 'T' timer,
// 'i' green item, 'x' green exit, 'v' green vortex, 'n' green discovery on
// the north edge. Equal digits inside one card mark the two ends of an
// escalator.
func testGrid(t *testing.T, rows ...string) *engine.Grid {
	t.Helper()
	if len(rows) == 0 || len(rows)%engine.CardSize != 0 {
		t.Fatalf("rows must come in multiples of %d, got %d", engine.CardSize, len(rows))
	}
	cards := len(rows) / engine.CardSize
	grid := engine.NewGrid(cards)
	for sr := 0; sr < cards; sr++ {
		for sc := 0; sc < cards; sc++ {
			spec := engine.CardSpec{ID: sr*cards + sc + 1}
			ends := map[rune][][2]int{}
			hidden := true
			for r := 0; r < engine.CardSize; r++ {
				row := rows[sr*engine.CardSize+r]
				if len(row) != cards*engine.CardSize {
					t.Fatalf("row %q has wrong length", row)
				}
				part := row[sc*engine.CardSize : (sc+1)*engine.CardSize]
				spec.Layout = append(spec.Layout, part)
				for c, char := range part {
					at := [2]int{r, c}
					if char != '?' {
						hidden = false
					}
					switch char {
					case 'i':
						spec.Tiles = append(spec.Tiles, engine.TileSpec{At: at, Type: engine.ItemTile, Color: engine.Green})
					case 'x':
						spec.Tiles = append(spec.Tiles, engine.TileSpec{At: at, Type: engine.ExitTile, Color: engine.Green})
					case 'v':
						spec.Tiles = append(spec.Tiles, engine.TileSpec{At: at, Type: engine.VortexTile, Color: engine.Green})
					case 'n':
						spec.Tiles = append(spec.Tiles, engine.TileSpec{At: at, Type: engine.DiscoveryTile, Color: engine.Green, Side: "N"})
					}
					if char >= '0' && char <= '9' {
						ends[char] = append(ends[char], at)
					}
				}
			}
			if hidden {
				continue
			}
			for digit := '0'; digit <= '9'; digit++ {
				if pair := ends[digit]; len(pair) == 2 {
					spec.Escalators = append(spec.Escalators, [2][2]int{pair[0], pair[1]})
				}
			}
			if err := grid.Place(spec.Build(), engine.Slot{Row: sr, Col: sc}); err != nil {
				t.Fatalf("place card: %v", err)
			}
		}
	}
	return grid
}

func at(row, col int) engine.Coordinate {
	return engine.Coordinate{Row: row, Col: col}
}

func wall(g *engine.Grid, c engine.Coordinate, d engine.Direction) {
	g.TileAt(c).Walls[d] = true
}

// bfsDistance is the reference shortest path length, or -1.
func bfsDistance(g engine.GridView, start, goal engine.Coordinate) int {
	if !g.TileAt(start).Walkable() || !g.TileAt(goal).Walkable() {
		return -1
	}
	dist := map[engine.Coordinate]int{start: 0}
	queue := []engine.Coordinate{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == goal {
			return dist[c]
		}
		var next []engine.Coordinate
		for _, d := range engine.Directions {
			n := c.Step(d)
			if g.TileAt(n).Walkable() && !g.WallBetween(c, n) {
				next = append(next, n)
			}
		}
		if p, ok := g.EscalatorPartner(c); ok && g.TileAt(p).Walkable() {
			next = append(next, p)
		}
		for _, n := range next {
			if _, seen := dist[n]; !seen {
				dist[n] = dist[c] + 1
				queue = append(queue, n)
			}
		}
	}
	return -1
}

// checkPath verifies that every step of path is a legal single action.
func checkPath(t *testing.T, g engine.GridView, path SearchPath, start, goal engine.Coordinate) {
	t.Helper()
	if len(path) == 0 || path[0].At != start || path.End() != goal {
		t.Fatalf("path %v does not run from %s to %s", path, start, goal)
	}
	for i := 1; i < len(path); i++ {
		prev, cur := path[i-1].At, path[i].At
		if !g.TileAt(cur).Walkable() {
			t.Fatalf("step %d lands on unwalkable %s", i, cur)
		}
		if d, ok := path[i].Via.Type.Direction(); ok {
			if prev.Step(d) != cur || g.WallBetween(prev, cur) {
				t.Fatalf("step %d: %s from %s to %s is not a legal move", i, path[i].Via, prev, cur)
			}
			continue
		}
		if path[i].Via.Type != engine.Escalator {
			t.Fatalf("step %d uses unexpected action %s", i, path[i].Via)
		}
		if partner, ok := g.EscalatorPartner(prev); !ok || partner != cur {
			t.Fatalf("step %d rides no escalator from %s to %s", i, prev, cur)
		}
	}
}

func TestFindStraightLine(t *testing.T) {
	g := testGrid(t,
		"....",
		"....",
		"....",
		"....",
	)
	path, ok := NewPathFinder(Manhattan).Find(g, at(0, 0), at(0, 3))
	if !ok {
		t.Fatal("expected a path")
	}
	want := []engine.Action{
		engine.NewAction(engine.MoveEast),
		engine.NewAction(engine.MoveEast),
		engine.NewAction(engine.MoveEast),
	}
	if diff := cmp.Diff(want, path.Actions()); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if path.Len() != 3 {
		t.Errorf("Expected length 3, got %d", path.Len())
	}
}

func TestFindStartIsGoal(t *testing.T) {
	g := testGrid(t, "....", "....", "....", "....")
	path, ok := NewPathFinder(Manhattan).Find(g, at(1, 1), at(1, 1))
	if !ok || path.Len() != 0 || path.End() != at(1, 1) {
		t.Fatalf("Expected an empty path at the start, got %v (%v)", path, ok)
	}
	if path.Actions() != nil {
		t.Errorf("Expected no actions, got %v", path.Actions())
	}
}

func TestFindRespectsWalls(t *testing.T) {
	g := testGrid(t,
		"....",
		"....",
		"....",
		"....",
	)
	// Wall off (0,0)-(0,1) from the west tile's side and (1,0)-(1,1) from
	// the east tile's side; both must block.
	wall(g, at(0, 0), engine.East)
	wall(g, at(1, 1), engine.West)

	path, ok := NewPathFinder(Manhattan).Find(g, at(0, 0), at(0, 1))
	if !ok {
		t.Fatal("expected a detour")
	}
	checkPath(t, g, path, at(0, 0), at(0, 1))
	if path.Len() != 5 {
		t.Errorf("Expected detour of length 5, got %d: %v", path.Len(), path.Actions())
	}
}

func TestFindUnreachable(t *testing.T) {
	tests := []struct {
		name  string
		rows  []string
		start engine.Coordinate
		goal  engine.Coordinate
	}{
		{
			name:  "obstacle ring",
			rows:  []string{".#..", "#...", "....", "...."},
			start: at(0, 0),
			goal:  at(3, 3),
		},
		{
			name:  "goal is an obstacle",
			rows:  []string{"....", ".#..", "....", "...."},
			start: at(0, 0),
			goal:  at(1, 1),
		},
		{
			name: "goal undiscovered",
			rows: []string{
				"....????", "....????", "....????", "....????",
				"????????", "????????", "????????", "????????",
			},
			start: at(0, 0),
			goal:  at(0, 5),
		},
		{
			name:  "goal off the board",
			rows:  []string{"....", "....", "....", "...."},
			start: at(0, 0),
			goal:  at(9, 9),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGrid(t, tt.rows...)
			path, ok := NewPathFinder(Manhattan).Find(g, tt.start, tt.goal)
			if ok || path != nil {
				t.Errorf("Expected no path, got %v", path)
			}
		})
	}
}

func TestFindUsesEscalator(t *testing.T) {
	g := testGrid(t,
		"1##.",
		".##.",
		".##.",
		".#.1",
	)
	path, ok := NewPathFinder(Manhattan).Find(g, at(3, 0), at(0, 3))
	if !ok {
		t.Fatal("expected a path over the escalator")
	}
	checkPath(t, g, path, at(3, 0), at(0, 3))
	want := []engine.Action{
		engine.NewAction(engine.MoveNorth),
		engine.NewAction(engine.MoveNorth),
		engine.NewAction(engine.MoveNorth),
		engine.NewAction(engine.Escalator),
		engine.NewAction(engine.MoveNorth),
		engine.NewAction(engine.MoveNorth),
		engine.NewAction(engine.MoveNorth),
	}
	if diff := cmp.Diff(want, path.Actions()); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestFindChainedEscalators(t *testing.T) {
	// Two escalator rides beat walking across the board.
	g := testGrid(t,
		"1.......",
		"........",
		"........",
		"...1....",
		"....2...",
		"........",
		"........",
		".......2",
	)
	start, goal := at(0, 0), at(7, 6)
	for _, h := range []Heuristic{Manhattan, Euclidean} {
		t.Run(string(h), func(t *testing.T) {
			path, ok := NewPathFinder(h).Find(g, start, goal)
			if !ok {
				t.Fatal("expected a path")
			}
			checkPath(t, g, path, start, goal)
			if path.Len() != 5 || bfsDistance(g, start, goal) != 5 {
				t.Errorf("Expected optimal length 5, got %d: %v", path.Len(), path.Actions())
			}
		})
	}
}

func TestFindAvoidOccupied(t *testing.T) {
	g := testGrid(t,
		"....",
		"....",
		"....",
		"....",
	)
	g.TileAt(at(0, 1)).Occupied = true

	lenient := NewPathFinder(Manhattan)
	path, ok := lenient.Find(g, at(0, 0), at(0, 2))
	if !ok || path.Len() != 2 {
		t.Fatalf("occupancy is advisory by default, got %v", path.Actions())
	}

	strict := NewPathFinder(Manhattan)
	strict.AvoidOccupied = true
	path, ok = strict.Find(g, at(0, 0), at(0, 2))
	if !ok {
		t.Fatal("expected a detour")
	}
	for _, s := range path {
		if s.At == at(0, 1) {
			t.Fatalf("path crosses occupied tile: %v", path)
		}
	}
	if path.Len() != 4 {
		t.Errorf("Expected detour of length 4, got %d", path.Len())
	}

	// An occupied goal is still a valid destination.
	path, ok = strict.Find(g, at(0, 0), at(0, 1))
	if !ok || path.Len() != 1 {
		t.Errorf("Expected to reach the occupied goal, got %v", path)
	}
}

func TestFindIsDeterministic(t *testing.T) {
	g := testGrid(t,
		"........",
		"........",
		"...#....",
		"........",
		"........",
		"....#...",
		"........",
		"........",
	)
	first, ok := NewPathFinder(Manhattan).Find(g, at(0, 0), at(7, 7))
	if !ok {
		t.Fatal("expected a path")
	}
	for i := 0; i < 20; i++ {
		again, _ := NewPathFinder(Manhattan).Find(g, at(0, 0), at(7, 7))
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

// TestFindMatchesBFS compares path lengths against breadth-first search on
// random boards with obstacles, walls and escalators.
func TestFindMatchesBFS(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		rows := randomRows(rng)
		g := testGrid(t, rows...)
		for i := 0; i < 12; i++ {
			c := at(rng.Intn(8), rng.Intn(8))
			if g.TileAt(c).Walkable() {
				wall(g, c, engine.Directions[rng.Intn(4)])
			}
		}
		for _, h := range []Heuristic{Manhattan, Euclidean} {
			finder := NewPathFinder(h)
			for i := 0; i < 30; i++ {
				start, goal := at(rng.Intn(8), rng.Intn(8)), at(rng.Intn(8), rng.Intn(8))
				name := fmt.Sprintf("round %d %s %s->%s", round, h, start, goal)
				want := bfsDistance(g, start, goal)
				path, ok := finder.Find(g, start, goal)
				if want < 0 {
					if ok {
						t.Fatalf("%s: found %v where BFS found nothing\n%s", name, path.Actions(), strings.Join(rows, "\n"))
					}
					continue
				}
				if !ok {
					t.Fatalf("%s: no path, BFS length %d\n%s", name, want, strings.Join(rows, "\n"))
				}
				checkPath(t, g, path, start, goal)
				if path.Len() != want {
					t.Fatalf("%s: length %d, BFS %d\n%s", name, path.Len(), want, strings.Join(rows, "\n"))
				}
			}
		}
	}
}

// randomRows builds a fully discovered 8x8 board with one escalator per card.
func randomRows(rng *rand.Rand) []string {
	cells := make([][]byte, 8)
	for r := range cells {
		cells[r] = make([]byte, 8)
		for c := range cells[r] {
			cells[r][c] = '.'
			if rng.Intn(4) == 0 {
				cells[r][c] = '#'
			}
		}
	}
	for sr := 0; sr < 2; sr++ {
		for sc := 0; sc < 2; sc++ {
			a := [2]int{sr*4 + rng.Intn(4), sc*4 + rng.Intn(4)}
			b := [2]int{sr*4 + rng.Intn(4), sc*4 + rng.Intn(4)}
			if a == b {
				continue
			}
			cells[a[0]][a[1]] = '1'
			cells[b[0]][b[1]] = '1'
		}
	}
	rows := make([]string, 8)
	for r := range cells {
		rows[r] = string(cells[r])
	}
	return rows
}

func TestParseHeuristic(t *testing.T) {
	tests := []struct {
		in      string
		want    Heuristic
		wantErr bool
	}{
		{"", Manhattan, false},
		{"manhattan", Manhattan, false},
		{"euclidean", Euclidean, false},
		{"chebyshev", Manhattan, true},
	}
	for _, tt := range tests {
		got, err := ParseHeuristic(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHeuristic(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseHeuristic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
