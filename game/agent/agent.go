package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/game/metrics"
	"github.com/wricardo/magic-maze/game/planner"
	"github.com/wricardo/magic-maze/logging"
)

// DefaultCadence is the tick period of an agent with a processing ratio of 1.
const DefaultCadence = 250 * time.Millisecond

var (
	// ErrNoActions is returned for an agent configured without any action.
	ErrNoActions = errors.New("agent has no actions")
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("agent already running")

	errGameOver = errors.New("game over")
)

// Config describes one autonomous seat.
type Config struct {
	ID          string
	Actions     []engine.ActionType
	Temperament Temperament
	// Pawn is the pawn planned for first. Defaults to green.
	Pawn        engine.Color
	BaseCadence time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
}

// Stats are the agent's running counters.
type Stats struct {
	Ticks    int64 `json:"ticks"`
	Rebuilds int64 `json:"rebuilds"`
	Actions  int64 `json:"actions"`
	Failed   int64 `json:"failed"`
	Blocks   int64 `json:"blocks"`
	Nudges   int64 `json:"nudges"`
	Answered int64 `json:"answered"`
}

// Agent is an autonomous player. Everything below the sync fields is owned
// by the ticker goroutine and needs no locking.
type Agent struct {
	id       string
	actions  map[engine.ActionType]bool
	owned    []engine.ActionType
	temp     Temperament
	cadence  time.Duration
	board    engine.Delegator
	sub      *engine.Subscription
	planner  *planner.Planner
	unblock  *planner.Planner
	logger   *slog.Logger
	recorder *metrics.Recorder
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	stopped bool
	done    chan struct{}

	ticks, rebuilds, performed, failed, blocks, nudged, answered atomic.Int64

	registry     *planner.Registry
	tree         *planner.Tree
	pawn         engine.Color
	memoryUsed   int
	foreignMoves map[engine.Color]int
	ticksWaiting int
	idleTicks    int
	waitingFor   engine.ActionType
	stale        bool
	origins      []engine.Coordinate
	refresh      bool
	nudges       []engine.ActionType
	settleUntil  time.Time
	over         bool
}

// New creates an agent bound to board. The agent subscribes to board events
// immediately so nothing published before Run is missed.
func New(board engine.Delegator, cfg Config) (*Agent, error) {
	if len(cfg.Actions) == 0 {
		return nil, fmt.Errorf("agent %q: %w", cfg.ID, ErrNoActions)
	}
	temp := cfg.Temperament
	if err := temp.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseCadence <= 0 {
		cfg.BaseCadence = DefaultCadence
	}
	if cfg.Pawn == engine.None {
		cfg.Pawn = engine.Green
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("agent")
	}

	unblock := planner.NewPlanner(temp.Heuristic, temp.ChunkSize, temp.Completeness)
	unblock.Finder.AvoidOccupied = true

	a := &Agent{
		id:           cfg.ID,
		actions:      make(map[engine.ActionType]bool, len(cfg.Actions)),
		temp:         temp,
		cadence:      temp.Cadence(cfg.BaseCadence),
		board:        board,
		sub:          board.Subscribe(),
		planner:      planner.NewPlanner(temp.Heuristic, temp.ChunkSize, temp.Completeness),
		unblock:      unblock,
		logger:       logger.With("agent", cfg.ID),
		recorder:     cfg.Metrics,
		now:          time.Now,
		done:         make(chan struct{}),
		registry:     planner.NewRegistry(),
		pawn:         cfg.Pawn,
		foreignMoves: make(map[engine.Color]int),
		stale:        true,
	}
	for _, t := range cfg.Actions {
		if !a.actions[t] {
			a.actions[t] = true
			a.owned = append(a.owned, t)
		}
	}
	return a, nil
}

// ID returns the agent's seat id.
func (a *Agent) ID() string {
	return a.id
}

// Actions returns the action types this agent may perform.
func (a *Agent) Actions() []engine.ActionType {
	return append([]engine.ActionType(nil), a.owned...)
}

// Stats returns a copy of the agent's counters. Safe from any goroutine.
func (a *Agent) Stats() Stats {
	return Stats{
		Ticks:    a.ticks.Load(),
		Rebuilds: a.rebuilds.Load(),
		Actions:  a.performed.Load(),
		Failed:   a.failed.Load(),
		Blocks:   a.blocks.Load(),
		Nudges:   a.nudged.Load(),
		Answered: a.answered.Load(),
	}
}

// Run ticks the agent until the game ends, ctx is cancelled or Stop is
// called. Those endings return nil.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	if a.stopped {
		a.mu.Unlock()
		a.sub.Close()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true
	a.mu.Unlock()

	defer close(a.done)
	defer a.sub.Close()
	defer cancel()

	a.logger.Debug("agent starting", "actions", a.owned, "cadence", a.cadence, "pawn", a.pawn)
	a.bootstrap()

	ticker := bt.NewTicker(ctx, a.cadence, a.behaviour())
	<-ticker.Done()
	err := ticker.Err()
	a.logger.Debug("agent stopped", "stats", a.Stats())
	if errors.Is(err, errGameOver) || ctx.Err() != nil {
		return nil
	}
	return err
}

// Stop cancels the agent and waits for its ticker to exit. No action is
// attempted once Stop returns.
func (a *Agent) Stop() {
	a.mu.Lock()
	a.stopped = true
	cancel, running := a.cancel, a.running
	a.mu.Unlock()
	if !running {
		a.sub.Close()
		return
	}
	cancel()
	<-a.done
}

// bootstrap registers the goals already on the board and builds the first
// tree before the first tick.
func (a *Agent) bootstrap() {
	snap := a.board.Snapshot()
	a.registry.Scan(snap.Grid)
	a.rebuildFrom(snap)
}

func (a *Agent) behaviour() bt.Node {
	return bt.New(
		bt.Sequence,
		bt.New(a.tickInbox),
		bt.New(a.tickSettled),
		bt.New(a.tickPlan),
		bt.New(
			bt.Selector,
			bt.New(a.tickNudges),
			bt.New(a.tickAct),
			bt.New(a.tickWait),
		),
	)
}

// tickInbox applies every queued board event.
func (a *Agent) tickInbox([]bt.Node) (bt.Status, error) {
	a.ticks.Add(1)
	a.recorder.Tick(a.id)

	a.handle(a.sub.Drain())
	if a.over || a.board.IsOver() {
		return bt.Failure, errGameOver
	}
	return bt.Success, nil
}

// tickSettled holds the agent still while it recovers from a timer flip.
func (a *Agent) tickSettled([]bt.Node) (bt.Status, error) {
	if a.now().Before(a.settleUntil) {
		return bt.Failure, nil
	}
	return bt.Success, nil
}

func (a *Agent) tickPlan([]bt.Node) (bt.Status, error) {
	if a.stale || a.tree == nil {
		a.rebuild()
	}
	return bt.Success, nil
}

// tickNudges answers one pending do-something token.
func (a *Agent) tickNudges([]bt.Node) (bt.Status, error) {
	for len(a.nudges) > 0 {
		t := a.nudges[0]
		a.nudges = a.nudges[1:]
		if a.answer(t) {
			return bt.Success, nil
		}
	}
	return bt.Failure, nil
}

// tickAct performs the best action of the tree when the agent owns it.
func (a *Agent) tickAct([]bt.Node) (bt.Status, error) {
	best, ok := a.tree.BestAction()
	if !ok {
		if !a.replan() {
			a.waitingFor = engine.ActionNone
			return bt.Failure, nil
		}
		best, _ = a.tree.BestAction()
	}
	if !a.actions[best.Type] {
		a.waitingFor = best.Type
		return bt.Failure, nil
	}

	a.waitingFor = engine.ActionNone
	if a.execute(a.pawn, best) || (a.resolveBlock(a.pawn, best) && a.execute(a.pawn, best)) {
		a.tree.TakeAction(best)
		a.ticksWaiting, a.idleTicks = 0, 0
		a.waitingFor = engine.ActionNone
		return bt.Success, nil
	}
	if _, blocked := a.board.BlockingPawn(a.pawn, best); !blocked {
		// The board moved under the plan.
		a.stale = true
		return bt.Success, nil
	}
	// Still blocked: wait, and ask for help once patience runs out.
	if a.waitingFor == engine.ActionNone {
		a.waitingFor = best.Type
	}
	return bt.Failure, nil
}

// tickWait counts idle ticks, switching pawn when stubborn and asking for
// help when impatient.
func (a *Agent) tickWait([]bt.Node) (bt.Status, error) {
	a.ticksWaiting++
	a.idleTicks++
	if a.idleTicks >= a.temp.Stubbornness {
		a.idleTicks = 0
		a.switchPawn()
	}
	if a.ticksWaiting >= a.temp.Patience && a.waitingFor != engine.ActionNone {
		a.ticksWaiting = 0
		a.logger.Debug("asking for help", "action", a.waitingFor, "pawn", a.pawn)
		a.board.PlaceDoSomethingToken(a.id, a.waitingFor)
		a.nudged.Add(1)
		a.recorder.Nudge(a.id, a.waitingFor.String())
	}
	return bt.Success, nil
}

// notice counts another player's use of pawn and starts planning for it
// once the agent has seen it act often enough.
func (a *Agent) notice(pawn engine.Color) {
	a.foreignMoves[pawn]++
	if a.foreignMoves[pawn] < a.temp.blindness() {
		return
	}
	a.logger.Debug("following pawn", "from", a.pawn, "to", pawn)
	a.pawn = pawn
	a.foreignMoves = make(map[engine.Color]int)
	a.stale = true
}

// handle folds a batch of events into the planning state.
func (a *Agent) handle(events []engine.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case engine.EventPawnMoved:
			if ev.Actor == a.id {
				continue
			}
			if ev.Pawn == a.pawn {
				if a.tree == nil || !a.tree.TakeAction(ev.Action) {
					a.stale = true
				}
				continue
			}
			a.notice(ev.Pawn)
		case engine.EventDiscovered:
			if ev.Actor != a.id && ev.Pawn != a.pawn {
				a.notice(ev.Pawn)
			}
			a.origins = append(a.origins, ev.CardOrigin)
			a.refresh = true
			a.stale = true
		case engine.EventFirstPhaseCompleted:
			a.stale = true
		case engine.EventTimerFlipped:
			a.memoryUsed = 0
			a.settleUntil = a.now().Add(a.temp.SettleDelay)
			a.refresh = true
			a.stale = true
		case engine.EventDoSomething:
			if ev.Actor != a.id && a.actions[ev.ActionType] {
				a.nudges = append(a.nudges, ev.ActionType)
			}
		case engine.EventGameOver:
			a.over = true
		}
	}
	if !a.refresh {
		return
	}
	snap := a.board.Snapshot()
	for _, origin := range a.origins {
		a.registry.ObserveCard(snap.Grid, origin)
	}
	a.registry.Refresh(snap.Grid)
	a.origins, a.refresh = nil, false
}

func (a *Agent) rebuild() {
	a.rebuildFrom(a.board.Snapshot())
}

// rebuildFrom throws the tree away and plans again for the current pawn.
func (a *Agent) rebuildFrom(snap *engine.Snapshot) {
	a.stale = false
	clear(a.foreignMoves)
	if p, ok := snap.Pawns[a.pawn]; !ok || p.Exited {
		if active := snap.Active(); len(active) > 0 {
			a.pawn = active[0]
		}
	}
	budget := a.temp.MemoryChunks - a.memoryUsed
	if budget < 1 {
		budget = 1
	}
	plan := a.planner.Build(snap, a.registry, a.pawn, budget)
	a.memoryUsed += plan.ChunksUsed
	a.tree = plan.Tree
	a.rebuilds.Add(1)
	a.recorder.Rebuild(a.id)
	a.logger.Debug("plan rebuilt", "pawn", a.pawn, "routes", plan.Routes, "chunks", plan.ChunksUsed, "truncated", plan.Truncated)
}

// replan tries the other pawns round-robin, at most one rebuild each, until
// one of them has something worth doing.
func (a *Agent) replan() bool {
	snap := a.board.Snapshot()
	active := snap.Active()
	for range active {
		a.pawn = nextPawn(active, a.pawn)
		a.rebuildFrom(snap)
		if _, ok := a.tree.BestAction(); ok {
			return true
		}
	}
	return false
}

func (a *Agent) switchPawn() {
	active := a.board.Snapshot().Active()
	if len(active) < 2 {
		return
	}
	a.pawn = nextPawn(active, a.pawn)
	a.stale = true
}

// nextPawn returns the pawn after current in seating order.
func nextPawn(active []engine.Color, current engine.Color) engine.Color {
	for i, c := range active {
		if c == current {
			return active[(i+1)%len(active)]
		}
	}
	if len(active) == 0 {
		return current
	}
	return active[0]
}

func (a *Agent) execute(pawn engine.Color, action engine.Action) bool {
	ok := a.board.Perform(a.id, pawn, action)
	if ok {
		a.performed.Add(1)
	} else {
		a.failed.Add(1)
	}
	a.recorder.Action(a.id, action.Type.String(), ok)
	return ok
}

// answer performs any legal action of type t on the first pawn accepting it.
func (a *Agent) answer(t engine.ActionType) bool {
	snap := a.board.Snapshot()
	for _, pawn := range snap.Active() {
		for _, action := range candidates(snap, pawn, t) {
			if !a.board.IsPerformable(pawn, action) {
				continue
			}
			if a.execute(pawn, action) {
				a.logger.Debug("answered do-something", "action", action, "pawn", pawn)
				a.answered.Add(1)
				a.stale = true
				return true
			}
		}
	}
	return false
}

// candidates lists the concrete actions of type t available to pawn.
func candidates(snap *engine.Snapshot, pawn engine.Color, t engine.ActionType) []engine.Action {
	if t != engine.Vortex {
		return []engine.Action{engine.NewAction(t)}
	}
	var out []engine.Action
	for _, ref := range snap.Grid.VortexCoordinates(pawn) {
		out = append(out, engine.VortexTo(ref.At))
	}
	return out
}
