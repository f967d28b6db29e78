// Command tiles-server runs the tiles game server.
//
// It supports two modes:
//  1. "serve" (default): the TCP game listener, the status API with its
//     WebSocket spectator feed, and an /mcp HTTP endpoint
//  2. "mcp": an MCP stdio server proxying to a running status API
//
// Flags and TILES_* environment variables control the listeners, the rule
// preset, the game archive and logging. NGROK_* variables optionally expose
// the game listener through an ngrok TCP tunnel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/tiles-server/api"
	"github.com/wricardo/tiles-server/game/config"
	"github.com/wricardo/tiles-server/game/engine"
	"github.com/wricardo/tiles-server/game/service"
	"github.com/wricardo/tiles-server/game/session"
	"github.com/wricardo/tiles-server/transport/mcp"
	"github.com/wricardo/tiles-server/transport/tcp"
	"github.com/wricardo/tiles-server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tiles Server"
)

const shutdownTimeout = 10 * time.Second

// options holds the resolved command line
type options struct {
	Addr        string
	HTTPAddr    string
	ConfigDir   string
	Preset      string
	TurnTimeout time.Duration
	Countdown   time.Duration
	// countdown flag given explicitly; zero is a valid value
	CountdownSet bool
	Archive      string

	NgrokEnabled bool
	NgrokToken   string
	NgrokRemote  string
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("tiles-server failed")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "tiles-server",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("TILES_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "console",
				Usage:   "log output format: console or json",
				Sources: cli.EnvVars("TILES_LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, setupLogging(cmd.Bool("debug"), cmd.String("log-format"))
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the game server, status API and spectator feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   tcp.DefaultAddr,
				Usage:   "game listener address",
				Sources: cli.EnvVars("TILES_ADDR"),
			},
			&cli.StringFlag{
				Name:    "http-addr",
				Value:   "localhost:8080",
				Usage:   "status API address, empty to disable",
				Sources: cli.EnvVars("TILES_HTTP_ADDR"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory of rule presets, empty for built-ins only",
				Sources: cli.EnvVars("TILES_CONFIG_DIR", "CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "preset",
				Usage:   "rule preset name (default: the config manager default)",
				Sources: cli.EnvVars("TILES_PRESET"),
			},
			&cli.DurationFlag{
				Name:    "turn-timeout",
				Usage:   "override the preset turn timeout",
				Sources: cli.EnvVars("TILES_TURN_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "countdown",
				Usage:   "override the preset countdown before a lobby is formed",
				Sources: cli.EnvVars("TILES_COUNTDOWN"),
			},
			&cli.StringFlag{
				Name:    "archive",
				Usage:   "finished game archive: a directory or sqlite:<path>",
				Sources: cli.EnvVars("TILES_ARCHIVE"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the game listener through an ngrok TCP tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-remote-addr",
				Usage:   "reserved ngrok TCP address (optional)",
				Sources: cli.EnvVars("NGROK_REMOTE_ADDR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx, optionsFrom(cmd))
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server against a running status API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Value:   "http://localhost:8080",
				Usage:   "status API base URL",
				Sources: cli.EnvVars("TILES_API_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// stdout carries the protocol
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
			log.Info().Str("api", cmd.String("api")).Msg("MCP stdio server ready")
			return server.ServeStdio(mcp.NewClient(cmd.String("api")).GetMCPServer())
		},
	}
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Addr:         cmd.String("addr"),
		HTTPAddr:     cmd.String("http-addr"),
		ConfigDir:    cmd.String("config-dir"),
		Preset:       cmd.String("preset"),
		TurnTimeout:  cmd.Duration("turn-timeout"),
		Countdown:    cmd.Duration("countdown"),
		CountdownSet: cmd.IsSet("countdown"),
		Archive:      cmd.String("archive"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokToken:   cmd.String("ngrok-auth"),
		NgrokRemote:  cmd.String("ngrok-remote-addr"),
	}
}

func setupLogging(debug bool, format string) error {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	switch format {
	case "console", "":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// loadRules resolves the preset and applies command line overrides
func loadRules(opts options) (*engine.Rules, *config.Manager, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	rules := configManager.GetDefault()
	if opts.Preset != "" {
		rules, err = configManager.LoadConfig(opts.Preset)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load preset %q: %w", opts.Preset, err)
		}
	}
	rules = rules.Clone()

	if opts.TurnTimeout > 0 {
		rules.TurnTimeoutMS = int(opts.TurnTimeout / time.Millisecond)
	}
	if opts.CountdownSet {
		rules.CountdownDelayMS = int(opts.Countdown / time.Millisecond)
	}
	if err := engine.ValidateRules(rules); err != nil {
		return nil, nil, fmt.Errorf("invalid rules: %w", err)
	}
	return rules, configManager, nil
}

// app is the wired server
type app struct {
	rules    *engine.Rules
	manager  *session.Manager
	director *service.Director
	tcp      *tcp.Server
	hub      *websocket.Hub
	service  service.GameService
}

func newServer(opts options) (*app, error) {
	rules, configManager, err := loadRules(opts)
	if err != nil {
		return nil, err
	}

	archive, err := session.OpenArchive(opts.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	manager := session.NewManager()
	hub := websocket.NewHub(manager)
	manager.AddObserver(hub)

	return &app{
		rules:    rules,
		manager:  manager,
		director: service.NewDirector(manager, rules, service.WithArchive(archive)),
		tcp:      tcp.NewServer(manager),
		hub:      hub,
		service:  service.NewGameService(manager, rules, archive, configManager),
	}, nil
}

// handler combines the status API and the /mcp endpoint
func (a *app) handler(baseURL string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(a.service, a.hub))
	mux.Handle("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mux
}

func serve(ctx context.Context, opts options) error {
	a, err := newServer(opts)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
	}

	var httpLn net.Listener
	if opts.HTTPAddr != "" {
		httpLn, err = net.Listen("tcp", opts.HTTPAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", opts.HTTPAddr, err)
		}
	}

	return a.run(ctx, opts, ln, httpLn)
}

// run serves until ctx ends. httpLn may be nil.
func (a *app) run(ctx context.Context, opts options, ln, httpLn net.Listener) error {
	log.Info().
		Str("version", Version).
		Str("addr", ln.Addr().String()).
		Str("rules", a.rules.Name).
		Msg("starting " + AppName)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.tcp.Serve(ctx, ln) })
	g.Go(func() error { return ignoreCanceled(a.tcp.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(a.director.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(a.hub.Run(ctx)) })

	if httpLn != nil {
		baseURL := localURL(httpLn.Addr().String())
		httpServer := &http.Server{
			Handler:     a.handler(baseURL),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		}

		log.Info().Str("url", baseURL+"/api").Msg("status API listening")
		log.Info().Str("url", "ws"+baseURL[len("http"):]+"/ws").Msg("spectator feed listening")
		log.Info().Str("url", baseURL+"/mcp").Msg("MCP endpoint listening")

		g.Go(func() error {
			if err := httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if opts.NgrokEnabled {
		g.Go(func() error { return a.serveNgrok(ctx, opts) })
	}

	err := g.Wait()
	a.manager.CloseAll()
	log.Info().Msg("server stopped")
	return err
}

// serveNgrok accepts game connections through an ngrok TCP tunnel. A
// missing token or a failed tunnel only disables the tunnel.
func (a *app) serveNgrok(ctx context.Context, opts options) error {
	if opts.NgrokToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return nil
	}

	var endpointOpts []ngrokConfig.TCPEndpointOption
	if opts.NgrokRemote != "" {
		endpointOpts = append(endpointOpts, ngrokConfig.WithRemoteAddr(opts.NgrokRemote))
	}

	tun, err := ngrok.Listen(ctx, ngrokConfig.TCPEndpoint(endpointOpts...), ngrok.WithAuthtoken(opts.NgrokToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return nil
	}
	log.Info().Str("url", tun.URL()).Msg("ngrok tunnel established")

	err = a.tcp.Serve(ctx, tun)
	log.Info().Msg("ngrok tunnel closed")
	return err
}

// mcpHandler serves MCP JSON-RPC messages over HTTP POST
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

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// localURL turns a listen address into a URL reachable from this host
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
