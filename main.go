// Command arena starts the Typing Arena game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, log level and format, and
// optional ngrok tunneling for easy external access during development.
// Every flag can also be set from the environment or a .env file.
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
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/typing-arena/api"
	"github.com/wricardo/typing-arena/game/config"
	"github.com/wricardo/typing-arena/game/service"
	"github.com/wricardo/typing-arena/game/session"
	"github.com/wricardo/typing-arena/logger"
	"github.com/wricardo/typing-arena/transport/mcp"
	"github.com/wricardo/typing-arena/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Typing Arena Server"
)

const (
	cleanupInterval = time.Hour
	sessionMaxAge   = 24 * time.Hour
)

// options is everything the flags resolve to
type options struct {
	Port        int
	Host        string
	ConfigDir   string
	LogLevel    string
	LogJSON     bool
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Port:        int(cmd.Int("port")),
		Host:        cmd.String("host"),
		ConfigDir:   cmd.String("config-dir"),
		LogLevel:    cmd.String("log-level"),
		LogJSON:     cmd.String("log-format") == "json",
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}
}

// services holds the shared game backends of both modes
type services struct {
	games    service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
}

func (s *services) close() {
	s.hub.Close()
	s.sessions.StopAll()
}

// newApp builds the command tree. The root command runs the HTTP server.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "arena",
		Usage:   "real-time multiplayer typing arena",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "Log format (text, json)", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  stdioAction,
			},
		},
	}
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log := logger.Init(opts.LogLevel, opts.LogJSON)
	log.Info("starting", "app", AppName, "version", Version, "mode", "server")

	svc, err := initializeServices(ctx, opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.close()
	return runHTTPServer(ctx, opts, svc)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log := logger.Init(opts.LogLevel, opts.LogJSON)
	log.Info("starting", "app", AppName, "version", Version, "mode", "stdio-mcp")

	svc, err := initializeServices(ctx, opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.close()
	return runStdioMCPWithInternalServer(opts, svc)
}

// main loads .env, then hands the arguments to the command tree
func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn("error loading .env file", "error", envErr)
	}

	if err := newApp().Run(ctx, os.Args); err != nil {
		logger.Fatal("arena failed", "error", err)
	}
}

// initializeServices wires the config and session managers, the game
// service and the websocket hub. It also starts the background cleanup of
// stale sessions, which stops with ctx.
func initializeServices(ctx context.Context, configDir string) (*services, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessions := session.NewManager()
	hub := websocket.NewHub(sessions)
	sessions.OnStop(hub.DropGame)
	sessions.StartCleanup(ctx, cleanupInterval, sessionMaxAge)

	return &services{
		games:    service.NewGameService(sessions, configManager),
		sessions: sessions,
		hub:      hub,
	}, nil
}

// mcpHandler answers JSON-RPC posts on /mcp with the arena tools
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
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

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API server at the root and the MCP endpoint at /mcp
func newRouter(svc *services, mcpBaseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svc.games, svc.hub))
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(mcpBaseURL)))
	return mainRouter
}

// runHTTPServer serves until ctx is done. If ngrok is enabled it also
// provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts options, svc *services) error {
	log := logger.Get()
	addr := opts.addr()
	handler := newRouter(svc, "http://"+addr)

	// WriteTimeout stays unset so websocket streams are not cut off
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"rest", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?game=<game_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if opts.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, handler, log)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-serverErr:
		log.Error("HTTP server failed", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	log.Info("server stopped")
	return runErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, opts options, handler http.Handler, log *slog.Logger) {
	if opts.NgrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Info("using custom ngrok domain", "domain", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	ngrokURL := tun.URL()
	log.Info("🚀 ngrok tunnel established",
		"url", ngrokURL,
		"rest", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?game=<game_id>",
		"mcp", ngrokURL+"/mcp")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error("ngrok server error", "error", err)
	}
	log.Info("ngrok tunnel closed")
}

// externalAPIAvailable reports whether an arena API already answers at baseURL
func externalAPIAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an
// external API at the configured address when one is up; otherwise it
// starts an internal API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(opts options, svc *services) error {
	log := logger.Get()

	baseURL := "http://" + opts.addr()
	log.Info("checking for external API server", "url", baseURL)

	if externalAPIAvailable(baseURL) {
		log.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		log.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		baseURL = "http://" + internalAddr

		httpServer := &http.Server{Handler: api.NewServer(svc.games, svc.hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		log.Info("internal HTTP server started", "addr", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
