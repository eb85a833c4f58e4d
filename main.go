// Command magic-maze runs the Magic Maze game server.
//
// It supports three commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket spectators,
//     Prometheus metrics and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "simulate" plays one headless match with autonomous agents only and prints the outcome
//
// Flags control host/port, config and data directories, logging, and optional
// ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/magic-maze/api"
	"github.com/wricardo/magic-maze/game/config"
	"github.com/wricardo/magic-maze/game/metrics"
	"github.com/wricardo/magic-maze/game/service"
	"github.com/wricardo/magic-maze/game/session"
	"github.com/wricardo/magic-maze/logging"
	"github.com/wricardo/magic-maze/transport/mcp"
	"github.com/wricardo/magic-maze/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Magic Maze Server"
)

func main() {
	// Load .env before flags are parsed so env-backed flags see it
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCommand()
	cmd.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if err := setupLogging(cmd.Bool("debug"), cmd.String("log-format"), os.Stderr); err != nil {
			return ctx, err
		}
		switch {
		case envErr == nil:
			slog.Debug("loaded environment variables from .env file")
		case !os.IsNotExist(envErr):
			slog.Warn("error loading .env file", "error", envErr)
		}
		return ctx, nil
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("magic-maze failed", "error", err)
		os.Exit(1)
	}
}

// newCommand builds the command tree with its flags and defaults.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "magic-maze",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing decks/ and agents.yaml",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "data",
				Usage:   "Directory for replays and the results database",
				Sources: cli.EnvVars("DATA_DIR"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log format: text or json",
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			simulateCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server", "http"},
		Usage:   "Run HTTP server with API, WebSocket, metrics and MCP endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port"},
			&cli.DurationFlag{Name: "cleanup-interval", Value: time.Hour, Usage: "How often stale matches are removed"},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Matches untouched for this long are removed"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runServe,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run MCP stdio server, reusing a running API or starting an internal one",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "API server to reuse when it is reachable",
				Sources: cli.EnvVars("MAGIC_MAZE_API"),
			},
		},
		Action: runStdioMCP,
	}
}

// setupLogging configures the process-wide slog logger.
func setupLogging(debug bool, format string, w io.Writer) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown log format %q", format)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logging.Init(level, format, w)
	return nil
}

// services is everything one process needs to run matches.
type services struct {
	configs  *config.Manager
	replays  *session.FileReplay
	results  *session.SQLiteResults
	metrics  *metrics.Recorder
	sessions *session.Manager
	game     service.GameService
}

// initializeServices wires the config, storage and session layers. The
// broadcaster may be nil.
func initializeServices(configDir, dataDir string, broadcaster session.Broadcaster) (*services, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	replays, err := session.NewFileReplay(filepath.Join(dataDir, "replays"))
	if err != nil {
		return nil, fmt.Errorf("failed to create replay store: %w", err)
	}

	results, err := session.OpenResults(filepath.Join(dataDir, "results.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}

	recorder := metrics.NewRecorder()
	sessionManager := session.NewManager(session.Options{
		Replays:     replays,
		Results:     results,
		Metrics:     recorder,
		Broadcaster: broadcaster,
	})

	return &services{
		configs:  configManager,
		replays:  replays,
		results:  results,
		metrics:  recorder,
		sessions: sessionManager,
		game:     service.NewGameService(sessionManager, configManager),
	}, nil
}

// Close stops every match, then the results database.
func (s *services) Close() {
	s.sessions.Close()
	if err := s.results.Close(); err != nil {
		slog.Warn("failed to close results database", "error", err)
	}
}

// newRouter mounts the REST API at the root and the MCP proxy at /mcp.
func newRouter(svcs *services, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(svcs.game, api.Options{
		Hub:     hub,
		Decks:   svcs.configs,
		Results: svcs.results,
		Replays: svcs.replays,
		Metrics: svcs.metrics.Handler(),
		Logger:  logging.New("api"),
	})

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// mcpHandler answers one JSON-RPC message per POST.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// runServe starts the HTTP server, the websocket hub and the cleanup loop,
// and stops them all when ctx is cancelled or one of them fails.
func runServe(ctx context.Context, cmd *cli.Command) error {
	hub := websocket.NewHub(logging.New("websocket"))

	svcs, err := initializeServices(cmd.String("config-dir"), cmd.String("data-dir"), hub)
	if err != nil {
		return err
	}
	defer svcs.Close()

	addr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(int(cmd.Int("port"))))
	handler := newRouter(svcs, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return svcs.sessions.RunCleanup(ctx, cmd.Duration("cleanup-interval"), cmd.Duration("session-ttl"))
	})

	g.Go(func() error {
		slog.Info("HTTP server listening",
			"addr", addr,
			"api", "http://"+addr+"/api",
			"websocket", "ws://"+addr+"/ws?session=<session_id>",
			"mcp", "http://"+addr+"/mcp",
			"metrics", "http://"+addr+"/metrics",
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return serveNgrok(ctx, handler, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"))
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done. A
// tunnel that cannot be opened is logged and skipped.
func serveNgrok(ctx context.Context, handler http.Handler, authToken, domain string) error {
	if authToken == "" {
		slog.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		slog.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		slog.Error("failed to start ngrok tunnel", "error", err)
		return nil
	}

	ngrokURL := tun.URL()
	slog.Info("ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp",
	)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("ngrok server error", "error", err)
	}
	slog.Info("ngrok tunnel closed")
	return nil
}

// apiReachable reports whether an API server answers at baseURL.
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when
// one answers there; otherwise it starts an internal API bound to a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("api-url")
	slog.Info("checking for external API server", "url", baseURL)

	if apiReachable(baseURL) {
		slog.Info("MCP stdio server ready (using external HTTP server)", "url", baseURL)
		return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
	}

	slog.Info("no external API server found, starting internal HTTP server")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	internalURL := "http://" + listener.Addr().String()

	hub := websocket.NewHub(logging.New("websocket"))
	svcs, err := initializeServices(cmd.String("config-dir"), cmd.String("data-dir"), hub)
	if err != nil {
		listener.Close()
		return err
	}
	defer svcs.Close()

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{Handler: newRouter(svcs, hub, internalURL)}
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpServer.Close()
	})

	slog.Info("MCP stdio server ready (using internal HTTP server)", "url", internalURL)
	serveErr := server.ServeStdio(mcp.NewClient(internalURL).GetMCPServer())

	cancel()
	if err := g.Wait(); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
