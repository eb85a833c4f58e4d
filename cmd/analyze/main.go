// Command analyze prints quick, human-readable heuristics about the decks in
// the project's configs/decks directory and the built-in classic deck. It
// summarizes card counts, doors and vortexes per pawn color, escalators and
// timers, and highlights decks whose doors cannot lay every card.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wricardo/magic-maze/game/engine"
)

// DeckAnalysis holds the counts analysis reports for one deck.
type DeckAnalysis struct {
	Name         string
	BoardCards   int
	Cards        int
	TimerSeconds int
	Doors        map[engine.Color]int
	Vortexes     map[engine.Color]int
	Escalators   int
	Timers       int
	// ItemCards and ExitCards are the draw positions (1-based, 0 for the
	// start card) of the cards holding each color's item and exit.
	ItemCards map[engine.Color]int
	ExitCards map[engine.Color]int
}

// TotalDoors is the number of discovery tiles in the deck.
func (a *DeckAnalysis) TotalDoors() int {
	n := 0
	for _, d := range a.Doors {
		n += d
	}
	return n
}

// MaxGameSeconds is the longest a match can last if every timer tile is
// reached with the sand timer full.
func (a *DeckAnalysis) MaxGameSeconds() int {
	return a.TimerSeconds * (a.Timers + 1)
}

func analyzeDeck(deck *engine.Deck) *DeckAnalysis {
	a := &DeckAnalysis{
		Name:         deck.Name,
		BoardCards:   deck.BoardCards,
		Cards:        len(deck.Cards),
		TimerSeconds: deck.TimerSeconds,
		Doors:        make(map[engine.Color]int),
		Vortexes:     make(map[engine.Color]int),
		ItemCards:    make(map[engine.Color]int),
		ExitCards:    make(map[engine.Color]int),
	}

	cards := append([]*engine.Card{deck.Start}, deck.Cards...)
	for pos, card := range cards {
		for r := range card.Tiles {
			for c := range card.Tiles[r] {
				t := &card.Tiles[r][c]
				switch t.Type {
				case engine.DiscoveryTile:
					a.Doors[t.Color]++
				case engine.VortexTile:
					a.Vortexes[t.Color]++
				case engine.TimerTile:
					a.Timers++
				case engine.ItemTile:
					a.ItemCards[t.Color] = pos
				case engine.ExitTile:
					a.ExitCards[t.Color] = pos
				}
				if t.Escalator > 0 {
					a.Escalators++
				}
			}
		}
	}
	a.Escalators /= 2
	return a
}

func printAnalysis(w io.Writer, a *DeckAnalysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Board: %dx%d cards\n", a.BoardCards, a.BoardCards)
	fmt.Fprintf(w, "Cards: %d + start\n", a.Cards)
	fmt.Fprintf(w, "Timer: %ds (at most %ds with %d timer tiles)\n", a.TimerSeconds, a.MaxGameSeconds(), a.Timers)
	fmt.Fprintf(w, "Escalators: %d\n", a.Escalators)

	for _, color := range engine.Colors {
		fmt.Fprintf(w, "  %-7s doors=%d vortexes=%d item on card #%d, exit on card #%d\n",
			color, a.Doors[color], a.Vortexes[color], a.ItemCards[color], a.ExitCards[color])
	}

	// Every laid card uses up one door
	if doors := a.TotalDoors(); doors < a.Cards {
		fmt.Fprintf(w, "⚠️  WARNING: %d doors cannot lay all %d cards\n", doors, a.Cards)
	} else {
		fmt.Fprintf(w, "✅ %d doors for %d cards\n", doors, a.Cards)
	}

	for _, color := range engine.Colors {
		if a.Doors[color] == 0 {
			fmt.Fprintf(w, "⚠️  WARNING: no %s door, the %s pawn can never discover\n", color, color)
		}
		if a.ExitCards[color] < a.ItemCards[color] {
			fmt.Fprintf(w, "⚠️  NOTE: the %s exit comes out before its item\n", color)
		}
	}
}

func analyzeFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	deck, err := engine.ParseDeck(data)
	if err != nil {
		return err
	}
	printAnalysis(w, analyzeDeck(deck))
	return nil
}

func main() {
	dir := filepath.Join("configs", "decks")
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	fmt.Printf("\n=== Analyzing built-in classic ===\n")
	printAnalysis(os.Stdout, analyzeDeck(engine.ClassicDeck()))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding decks: %v\n", err)
		os.Exit(1)
	}
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		if err := analyzeFile(os.Stdout, file); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}
