package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/magic-maze/game/engine"
)

func TestAnalyzeDeck_Classic(t *testing.T) {
	a := analyzeDeck(engine.ClassicDeck())

	if a.Name != "classic" {
		t.Errorf("Expected name classic, got %s", a.Name)
	}
	if a.Cards != 12 {
		t.Errorf("Expected 12 cards, got %d", a.Cards)
	}
	if a.TotalDoors() != 40 {
		t.Errorf("Expected 40 doors, got %d", a.TotalDoors())
	}
	for _, color := range engine.Colors {
		if a.Doors[color] != 10 {
			t.Errorf("Expected 10 %s doors, got %d", color, a.Doors[color])
		}
	}
	if a.Vortexes[engine.Green] != 3 || a.Vortexes[engine.Purple] != 2 {
		t.Errorf("Unexpected vortex counts %v", a.Vortexes)
	}
	if a.Timers != 4 {
		t.Errorf("Expected 4 timers, got %d", a.Timers)
	}
	if a.Escalators != 2 {
		t.Errorf("Expected 2 escalators, got %d", a.Escalators)
	}
	if a.ItemCards[engine.Yellow] != 4 || a.ExitCards[engine.Green] != 5 {
		t.Errorf("Unexpected item/exit positions %v %v", a.ItemCards, a.ExitCards)
	}
	if a.MaxGameSeconds() != 180*5 {
		t.Errorf("Expected %d max seconds, got %d", 180*5, a.MaxGameSeconds())
	}
}

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	printAnalysis(&buf, analyzeDeck(engine.ClassicDeck()))
	output := buf.String()

	for _, want := range []string{"Name: classic", "Board: 7x7 cards", "✅ 40 doors for 12 cards", "green"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "WARNING") {
		t.Errorf("Classic deck should raise no warnings:\n%s", output)
	}
}

func TestPrintAnalysis_Warnings(t *testing.T) {
	a := &DeckAnalysis{
		Name:         "thin",
		BoardCards:   3,
		Cards:        3,
		TimerSeconds: 60,
		Doors:        map[engine.Color]int{engine.Green: 1},
		Vortexes:     map[engine.Color]int{},
		ItemCards:    map[engine.Color]int{engine.Orange: 2},
		ExitCards:    map[engine.Color]int{engine.Orange: 1},
	}

	var buf bytes.Buffer
	printAnalysis(&buf, a)
	output := buf.String()

	for _, want := range []string{
		"1 doors cannot lay all 3 cards",
		"no purple door",
		"the orange exit comes out before its item",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
}

func TestAnalyzeFile(t *testing.T) {
	var buf bytes.Buffer
	if err := analyzeFile(&buf, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"name": "broken"`), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := analyzeFile(&buf, path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestAnalyzeFile_ShippedDecks(t *testing.T) {
	dir := filepath.Join("..", "..", "configs", "decks")
	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(files) == 0 {
		t.Skip("Skipping test - no shipped decks found")
	}

	for _, file := range files {
		var buf bytes.Buffer
		if err := analyzeFile(&buf, file); err != nil {
			t.Errorf("%s: %v", filepath.Base(file), err)
		}
	}
}
