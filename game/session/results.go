package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteResults implements ResultStore on a SQLite file
type SQLiteResults struct {
	db *sql.DB
}

// OpenResults opens (or creates) the results index at path. ":memory:" keeps
// it in memory.
func OpenResults(path string) (*SQLiteResults, error) {
	if path == "" {
		return nil, fmt.Errorf("empty results db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteResults{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			deck TEXT NOT NULL,
			outcome TEXT NOT NULL,
			players INTEGER NOT NULL,
			time_left INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			tokens INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_finished ON matches(finished_at);`,
		`CREATE TABLE IF NOT EXISTS agent_stats (
			match_id TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
			agent TEXT NOT NULL,
			profile TEXT NOT NULL,
			ticks INTEGER NOT NULL,
			rebuilds INTEGER NOT NULL,
			actions INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			nudges INTEGER NOT NULL,
			answered INTEGER NOT NULL,
			PRIMARY KEY (match_id, agent)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a match and its agent counters, replacing an earlier row for
// the same match
func (s *SQLiteResults) Save(ctx context.Context, r *Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE match_id = ?`, r.MatchID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO matches (match_id, deck, outcome, players, time_left, moves, attempts, tokens, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID, r.Deck, r.Outcome, r.Players, r.TimeLeft, r.Moves, r.Attempts, r.Tokens,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert match %s: %w", r.MatchID, err)
	}
	for _, a := range r.Agents {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO agent_stats (match_id, agent, profile, ticks, rebuilds, actions, failed, blocks, nudges, answered)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.MatchID, a.Agent, a.Profile, a.Stats.Ticks, a.Stats.Rebuilds, a.Stats.Actions,
			a.Stats.Failed, a.Stats.Blocks, a.Stats.Nudges, a.Stats.Answered)
		if err != nil {
			return fmt.Errorf("insert agent %s of match %s: %w", a.Agent, r.MatchID, err)
		}
	}
	return tx.Commit()
}

// Get returns one match with its agents
func (s *SQLiteResults) Get(ctx context.Context, matchID string) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id = ?`, matchID)
	r, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadAgents(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the most recently finished matches first. A limit below 1
// returns every match.
func (s *SQLiteResults) List(ctx context.Context, limit int) ([]*Result, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches ORDER BY finished_at DESC, match_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		r, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, r := range out {
		if err := s.loadAgents(ctx, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Close closes the database
func (s *SQLiteResults) Close() error {
	return s.db.Close()
}

const matchColumns = `match_id, deck, outcome, players, time_left, moves, attempts, tokens, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(sc scanner) (*Result, error) {
	var (
		r                 Result
		started, finished string
	)
	err := sc.Scan(&r.MatchID, &r.Deck, &r.Outcome, &r.Players, &r.TimeLeft, &r.Moves, &r.Attempts, &r.Tokens, &started, &finished)
	if err != nil {
		return nil, err
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("match %s: bad started_at: %w", r.MatchID, err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("match %s: bad finished_at: %w", r.MatchID, err)
	}
	return &r, nil
}

func (s *SQLiteResults) loadAgents(ctx context.Context, r *Result) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent, profile, ticks, rebuilds, actions, failed, blocks, nudges, answered
		 FROM agent_stats WHERE match_id = ? ORDER BY agent`, r.MatchID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AgentResult
		if err := rows.Scan(&a.Agent, &a.Profile, &a.Stats.Ticks, &a.Stats.Rebuilds, &a.Stats.Actions,
			&a.Stats.Failed, &a.Stats.Blocks, &a.Stats.Nudges, &a.Stats.Answered); err != nil {
			return err
		}
		r.Agents = append(r.Agents, a)
	}
	return rows.Err()
}
