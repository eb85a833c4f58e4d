package planner

import "fmt"

// Completeness decides when exploring stops being worth anything.
type Completeness string

const (
	// GoalsFound stops exploration once every item and exit is registered.
	GoalsFound Completeness = "goals-found"
	// BoardFull stops exploration once the deck is empty.
	BoardFull Completeness = "board-full"
)

// ParseCompleteness validates a completeness mode. Empty means GoalsFound.
func ParseCompleteness(s string) (Completeness, error) {
	switch c := Completeness(s); c {
	case "":
		return GoalsFound, nil
	case GoalsFound, BoardFull:
		return c, nil
	}
	return GoalsFound, fmt.Errorf("unknown completeness mode %q", s)
}

// discoveryBase is the value of exploring before distance is subtracted.
const discoveryBase = 5

// Situation is the board context a goal is scored in.
type Situation struct {
	FirstPhase bool
	TimeLeft   int
	TimerMax   int
	DeckEmpty  bool
	GoalsFound bool
	// OnGoal is set when the pawn already stands on the scored goal.
	OnGoal bool
}

// Model turns a goal and its path length into a priority. Positive values
// are worth pursuing.
type Model struct {
	ChunkSize    int
	Completeness Completeness
}

// Score rates reaching a goal of the given kind that is distance actions away.
func (m Model) Score(kind GoalKind, distance int, s Situation) float64 {
	chunks := float64(EstimatedChunks(distance, m.ChunkSize))
	switch kind {
	case GoalDiscovery:
		if m.complete(s) {
			return 0
		}
		return discoveryBase - chunks
	case GoalItem:
		if s.FirstPhase && !s.OnGoal {
			return 1
		}
		return -1
	case GoalExit:
		if s.FirstPhase {
			return -1
		}
		return 1
	case GoalTimer:
		return float64(TimerPayoff(s.TimerMax, s.TimeLeft)) - chunks
	}
	return 0
}

func (m Model) complete(s Situation) bool {
	if m.Completeness == BoardFull {
		return s.DeckEmpty
	}
	return s.GoalsFound || s.DeckEmpty
}

// TimerPayoff values flipping the sand timer with timeLeft of timerMax
// seconds remaining. Nothing is gained above half time; below it the payoff
// grows by one each time the remaining time halves again.
func TimerPayoff(timerMax, timeLeft int) int {
	threshold := timerMax / 2
	if timeLeft > threshold {
		return 0
	}
	payoff := 0
	for timeLeft <= threshold {
		payoff++
		if threshold <= 1 {
			break
		}
		threshold = (threshold + 1) / 2
	}
	return payoff
}

// EstimatedChunks is the number of whole chunks a plan of the given length
// fills.
func EstimatedChunks(distance, chunkSize int) int {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return distance / chunkSize
}
