package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/magic-maze/game/service"
	"github.com/wricardo/magic-maze/game/session"
)

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Play one match with autonomous agents only and print the outcome",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "deck", Usage: "Deck to play (default deck when empty)"},
			&cli.StringSliceFlag{Name: "bots", Usage: "Temperament profile per agent seat (four default agents when empty)"},
			&cli.FloatFlag{Name: "speed", Value: 20, Usage: "Game seconds per real second"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Minute, Usage: "Abort the match after this long"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svcs, err := initializeServices(cmd.String("config-dir"), cmd.String("data-dir"), nil)
			if err != nil {
				return err
			}
			defer svcs.Close()

			result, err := simulate(ctx, svcs, service.CreateSessionRequest{
				Deck:  cmd.String("deck"),
				Bots:  cmd.StringSlice("bots"),
				Speed: cmd.Float("speed"),
			}, cmd.Duration("timeout"))
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			return printResult(w, result, cmd.Bool("json"))
		},
	}
}

// simulate runs one match to completion, or aborts it once timeout passes or
// ctx is cancelled, and returns its recorded result.
func simulate(ctx context.Context, svcs *services, req service.CreateSessionRequest, timeout time.Duration) (*session.Result, error) {
	info, err := svcs.game.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}
	sess, err := svcs.sessions.Get(info.ID)
	if err != nil {
		return nil, err
	}
	slog.Info("simulation started", "session", info.ID, "deck", info.Deck, "seats", len(info.Players))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-sess.Done:
	case <-timer.C:
		slog.Warn("simulation timed out", "session", info.ID, "timeout", timeout)
		svcs.sessions.Delete(info.ID)
	case <-ctx.Done():
		svcs.sessions.Delete(info.ID)
	}

	// Results are written with a fresh context so a cancelled run still reports
	resultCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return svcs.results.Get(resultCtx, info.ID)
}

func printResult(w io.Writer, r *session.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "Match %s on %s: %s\n", r.MatchID, r.Deck, r.Outcome)
	fmt.Fprintf(w, "Time left: %d, Moves: %d, Attempts: %d, Tokens: %d\n", r.TimeLeft, r.Moves, r.Attempts, r.Tokens)
	fmt.Fprintf(w, "Duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	for _, a := range r.Agents {
		fmt.Fprintf(w, "  %-14s %-10s actions=%d failed=%d rebuilds=%d blocks=%d nudges=%d answered=%d\n",
			a.Agent, a.Profile, a.Stats.Actions, a.Stats.Failed, a.Stats.Rebuilds, a.Stats.Blocks, a.Stats.Nudges, a.Stats.Answered)
	}
	return nil
}
