// Command validate checks the deck files in ../configs/decks, or the files
// and directories given as arguments. For every deck it checks:
//   - JSON structure against the deck schema
//   - Board size, timer bounds and card ids
//   - Exactly one item and one exit per pawn color
//   - Connectivity: every special tile of a card is reachable from its
//     entry edge (from the start tiles on the start card)
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/magic-maze/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// validateDeck loads and validates a single deck file.
func validateDeck(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	deck, err := engine.ParseDeck(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	connectivity := validateConnectivity(deck.Start, true)
	for _, card := range deck.Cards {
		connectivity = append(connectivity, validateConnectivity(card, false)...)
	}
	if len(connectivity) > 0 {
		result.fail("Connectivity failure: %d unreachable tiles", len(connectivity))
		result.Messages = append(result.Messages, connectivity...)
		return result
	}

	counts := countTiles(deck)
	result.Messages = append(result.Messages,
		fmt.Sprintf("✓ Name: %s", deck.Name),
		fmt.Sprintf("✓ Board: %dx%d cards", deck.BoardCards, deck.BoardCards),
		fmt.Sprintf("✓ Cards: %d + start", len(deck.Cards)),
		fmt.Sprintf("✓ Timer: %ds", deck.TimerSeconds),
		fmt.Sprintf("✓ Doors: %d, Vortexes: %d, Escalators: %d, Timers: %d",
			counts[engine.DiscoveryTile], counts[engine.VortexTile], counts["escalator"]/2, counts[engine.TimerTile]),
		fmt.Sprintf("✓ Connectivity: every special tile reachable on all %d cards", len(deck.Cards)+1),
	)
	return result
}

// validateConnectivity flood-fills one card laid on its own and reports each
// special tile the fill cannot reach. Cards are entered from their southern
// edge; the start card is entered from its start tiles.
func validateConnectivity(card *engine.Card, start bool) []string {
	grid := engine.NewGrid(1)
	if err := grid.Place(card, engine.Slot{}); err != nil {
		return []string{fmt.Sprintf("Card %d: %v", card.ID, err)}
	}

	var queue []engine.Coordinate
	for r := 0; r < engine.CardSize; r++ {
		for c := 0; c < engine.CardSize; c++ {
			at := engine.Coordinate{Row: r, Col: c}
			t := grid.TileAt(at)
			if (start && t.Type == engine.StartTile) || (!start && r == engine.CardSize-1 && t.Walkable()) {
				queue = append(queue, at)
			}
		}
	}

	visited := make(map[engine.Coordinate]bool)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		for _, d := range engine.Directions {
			next := current.Step(d)
			if !visited[next] && grid.TileAt(next).Walkable() && !grid.WallBetween(current, next) {
				queue = append(queue, next)
			}
		}
		if partner, ok := grid.EscalatorPartner(current); ok && !visited[partner] {
			queue = append(queue, partner)
		}
	}

	var unreachable []string
	for r := 0; r < engine.CardSize; r++ {
		for c := 0; c < engine.CardSize; c++ {
			at := engine.Coordinate{Row: r, Col: c}
			t := grid.TileAt(at)
			if !special(t) || visited[at] {
				continue
			}
			label := string(t.Type)
			if t.Color != "" && t.Color != engine.None {
				label = string(t.Color) + " " + label
			}
			unreachable = append(unreachable, fmt.Sprintf("Unreachable: card %d %s at %s", card.ID, label, at))
		}
	}
	return unreachable
}

func special(t *engine.Tile) bool {
	if t == nil {
		return false
	}
	switch t.Type {
	case engine.ItemTile, engine.ExitTile, engine.VortexTile, engine.DiscoveryTile, engine.TimerTile:
		return true
	}
	return t.Escalator > 0
}

// countTiles tallies special tiles by type over the whole deck; escalator
// ends are counted under "escalator".
func countTiles(deck *engine.Deck) map[engine.TileType]int {
	counts := make(map[engine.TileType]int)
	cards := append([]*engine.Card{deck.Start}, deck.Cards...)
	for _, card := range cards {
		for r := range card.Tiles {
			for c := range card.Tiles[r] {
				t := &card.Tiles[r][c]
				counts[t.Type]++
				if t.Escalator > 0 {
					counts["escalator"]++
				}
			}
		}
	}
	return counts
}

// deckFiles expands the arguments into deck files; directories contribute
// their *.json files.
func deckFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// main validates every deck, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{filepath.Join("..", "configs", "decks")}
	}

	files, err := deckFiles(args)
	if err != nil {
		fmt.Printf("Error finding deck files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateDeck(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, msg := range result.Messages {
				fmt.Println("  ❌ " + msg)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All decks are valid!")
	} else {
		fmt.Println("❌ Some decks have errors")
		os.Exit(1)
	}
}
