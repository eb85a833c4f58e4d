package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/magic-maze/game/agent"
	"github.com/wricardo/magic-maze/game/engine"
	"github.com/wricardo/magic-maze/game/metrics"
	"github.com/wricardo/magic-maze/game/service"
	"github.com/wricardo/magic-maze/logging"
)

var (
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidMatchID       = errors.New("invalid match ID")
	ErrReplayNotFound       = errors.New("replay not found")
	ErrResultNotFound       = errors.New("result not found")
	ErrNoPlayers            = errors.New("match needs at least one player")
)

// Broadcaster receives every board event of every match, together with the
// board state right after it
type Broadcaster interface {
	BroadcastEvent(sessionID string, ev engine.Event, state *engine.BoardState)
}

// Options wires a Manager to its optional collaborators. Nil fields are
// skipped.
type Options struct {
	Replays     ReplayStore
	Results     ResultStore
	Metrics     *metrics.Recorder
	Broadcaster Broadcaster
	Logger      *slog.Logger
}

type match struct {
	session *service.Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager runs matches: one board, its agents, its clock and an event pump
// per session
type Manager struct {
	sessions map[string]*match
	opts     Options
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("session")
	}
	return &Manager{
		sessions: make(map[string]*match),
		opts:     opts,
		logger:   logger,
	}
}

// Create seats the players, starts every agent and the clock, and returns
// the running session
func (m *Manager) Create(opts service.MatchOptions) (*service.Session, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	if strings.ContainsAny(id, "/\\ \t\n") {
		return nil, fmt.Errorf("%w: %q", service.ErrSessionIDInvalid, id)
	}
	seats := len(opts.Humans) + len(opts.Bots)
	if seats == 0 {
		return nil, ErrNoPlayers
	}
	if seats > service.MaxPlayers {
		return nil, fmt.Errorf("%w: %d seats", service.ErrTooManyPlayers, seats)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if session already exists (case-insensitive)
	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}

	logger := m.logger.With("session", id)
	board, err := engine.NewBoard(opts.Deck, engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	players, err := seatPlayers(opts)
	if err != nil {
		return nil, err
	}

	var agents []*agent.Agent
	stopAll := func() {
		for _, a := range agents {
			a.Stop()
		}
	}
	for i, p := range players[len(opts.Humans):] {
		a, err := agent.New(board, agent.Config{
			ID:          p.Name,
			Actions:     p.Actions,
			Temperament: opts.Bots[i],
			Pawn:        engine.Colors[i%len(engine.Colors)],
			BaseCadence: opts.Cadence,
			Logger:      logger,
			Metrics:     m.opts.Metrics,
		})
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("failed to create agent %s: %w", p.Name, err)
		}
		agents = append(agents, a)
	}

	var replay ReplayWriter
	if m.opts.Replays != nil {
		if replay, err = m.opts.Replays.Open(id); err != nil {
			logger.Warn("replay disabled for match", "error", err)
			replay = nil
		}
	}

	now := time.Now()
	done := make(chan struct{})
	sess := &service.Session{
		ID:             id,
		DeckID:         opts.DeckID,
		Board:          board,
		Players:        players,
		Agents:         agents,
		CreatedAt:      now,
		LastAccessedAt: now,
		Done:           done,
	}

	ctx, cancel := context.WithCancel(context.Background())
	mt := &match{session: sess, cancel: cancel, done: done}
	m.sessions[strings.ToLower(id)] = mt

	sub := board.Subscribe()
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range agents {
		g.Go(func() error { return a.Run(gctx) })
	}
	if opts.ClockStep > 0 {
		g.Go(func() error {
			if err := board.RunClock(gctx, opts.ClockStep); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error { return m.pump(gctx, sess, sub, replay) })

	m.opts.Metrics.MatchStarted()
	logger.Info("match started", "deck", opts.DeckID, "humans", len(opts.Humans), "agents", len(agents), "clock_step", opts.ClockStep)

	go func() {
		defer close(done)
		err := g.Wait()
		cancel()
		sub.Close()
		if err != nil {
			logger.Error("match stopped with error", "error", err)
		}
		m.finish(sess, replay)
	}()

	return sess, nil
}

// seatPlayers deals the action types over the humans first, then the agents.
func seatPlayers(opts service.MatchOptions) ([]service.Player, error) {
	hands := engine.DistributeActions(len(opts.Humans) + len(opts.Bots))
	players := make([]service.Player, 0, len(hands))
	names := map[string]bool{}

	for i, name := range opts.Humans {
		if names[name] {
			return nil, fmt.Errorf("%w: %q", service.ErrDuplicatePlayer, name)
		}
		names[name] = true
		players = append(players, service.Player{Name: name, Kind: service.HumanPlayer, Actions: hands[i]})
	}
	for i, temp := range opts.Bots {
		name := fmt.Sprintf("%s-%d", temp.Name, i+1)
		if names[name] {
			return nil, fmt.Errorf("%w: %q", service.ErrDuplicatePlayer, name)
		}
		names[name] = true
		players = append(players, service.Player{
			Name:    name,
			Kind:    service.AgentPlayer,
			Actions: hands[len(opts.Humans)+i],
			Profile: temp.Name,
		})
	}
	return players, nil
}

// pump forwards board events to the replay log and the broadcaster until
// the game ends or ctx is cancelled.
func (m *Manager) pump(ctx context.Context, sess *service.Session, sub *engine.Subscription, replay ReplayWriter) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Ready():
		}
		for _, ev := range sub.Drain() {
			if replay != nil {
				if err := replay.Write(ev); err != nil {
					m.logger.Warn("failed to write replay event", "session", sess.ID, "seq", ev.Seq, "error", err)
				}
			}
			if m.opts.Broadcaster != nil {
				m.opts.Broadcaster.BroadcastEvent(sess.ID, ev, sess.Board.State())
			}
			if ev.Kind == engine.EventGameOver {
				return nil
			}
		}
	}
}

// finish records the outcome once every goroutine of a match has returned.
func (m *Manager) finish(sess *service.Session, replay ReplayWriter) {
	outcome := OutcomeAborted
	if sess.Board.IsOver() {
		outcome = OutcomeDefeat
		if sess.Board.IsVictory() {
			outcome = OutcomeVictory
		}
	} else {
		sess.Board.Abort()
	}

	if replay != nil {
		if err := replay.Close(); err != nil {
			m.logger.Warn("failed to close replay", "session", sess.ID, "error", err)
		}
	}

	state := sess.Board.State()
	result := &Result{
		MatchID:    sess.ID,
		Deck:       sess.DeckID,
		Outcome:    outcome,
		Players:    len(sess.Players),
		TimeLeft:   state.TimeLeft,
		Moves:      state.Moves,
		Attempts:   state.Attempts,
		Tokens:     state.Tokens,
		StartedAt:  sess.CreatedAt,
		FinishedAt: time.Now(),
	}
	for i, a := range sess.Agents {
		result.Agents = append(result.Agents, AgentResult{
			Agent:   a.ID(),
			Profile: sess.Players[len(sess.Players)-len(sess.Agents)+i].Profile,
			Stats:   a.Stats(),
		})
	}

	if m.opts.Results != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.opts.Results.Save(ctx, result); err != nil {
			m.logger.Error("failed to save match result", "session", sess.ID, "error", err)
		}
	}
	m.opts.Metrics.MatchFinished(outcome)
	m.logger.Info("match finished", "session", sess.ID, "outcome", outcome, "time_left", result.TimeLeft, "moves", result.Moves)
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if mt, exists := m.sessions[strings.ToLower(id)]; exists {
		return mt.session, nil
	}
	return nil, service.ErrSessionNotFound
}

// List returns all sessions, running or finished
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, mt := range m.sessions {
		result = append(result, mt.session)
	}
	return result
}

// Delete stops a match, waits for it to wind down and forgets it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	key := strings.ToLower(id)
	mt, exists := m.sessions[key]
	if exists {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if !exists {
		return service.ErrSessionNotFound
	}
	mt.cancel()
	<-mt.done
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return service.ErrSessionNotFound
	}
	mt.session.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpiredSessions stops and removes sessions that haven't been
// accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*match
	for key, mt := range m.sessions {
		if mt.session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, key)
			expired = append(expired, mt)
		}
	}
	m.mu.Unlock()

	for _, mt := range expired {
		mt.cancel()
		<-mt.done
		m.logger.Info("expired session removed", "session", mt.session.ID)
	}
	return len(expired)
}

// RunCleanup removes expired sessions every interval until ctx is done
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.CleanupExpiredSessions(maxAge); n > 0 {
				m.logger.Debug("cleanup pass", "removed", n)
			}
		}
	}
}

// Count returns the number of sessions held
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every match and waits for all of them to finish
func (m *Manager) Close() {
	m.mu.Lock()
	matches := make([]*match, 0, len(m.sessions))
	for key, mt := range m.sessions {
		matches = append(matches, mt)
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	for _, mt := range matches {
		mt.cancel()
	}
	for _, mt := range matches {
		<-mt.done
	}
}
