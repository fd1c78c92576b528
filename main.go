// Command chessbroker runs the live chess session broker.
//
// It supports two commands:
//  1. "serve" (default) runs the HTTP server exposing SSE and WebSocket
//     event streams, the REST API, and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server against a running broker, starting an
//     internal one on a loopback port if none answers
//
// Settings come from the environment (and .env); flags override the listen
// address, debug logging and the optional ngrok tunnel.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/chessbroker/api"
	"github.com/wricardo/chessbroker/auth"
	"github.com/wricardo/chessbroker/game/config"
	"github.com/wricardo/chessbroker/game/service"
	"github.com/wricardo/chessbroker/game/session"
	"github.com/wricardo/chessbroker/transport/mcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chess Session Broker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "chessbroker",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP server with event streams, REST API and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address host:port (overrides HOST and PORT)"},
					&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
					&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd.String("addr"), cmd.Bool("debug"), cmd.Bool("ngrok"))
					if err != nil {
						return err
					}
					logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
					if err != nil {
						return err
					}
					defer logger.Sync()

					ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
					defer stop()
					return runServe(ctx, cfg, logger)
				},
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server proxying to the broker API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api", Value: "http://localhost:8080", Usage: "broker API base URL", Sources: cli.EnvVars("BROKER_API_URL")},
					&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runMCP(ctx, cmd.String("api"), cmd.Bool("debug"))
				},
			},
		},
	}
}

// loadConfig reads the environment and applies flag overrides
func loadConfig(addr string, debug, ngrok bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if addr != "" {
		if err := cfg.SetAddr(addr); err != nil {
			return nil, err
		}
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if ngrok {
		cfg.Ngrok.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds a zap logger; json selects the production encoder
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

// broker is the wired server and the registry behind it
type broker struct {
	server   *api.Server
	registry *session.Registry
}

// newBroker wires registry, service, identity and API. selfURL is where the
// MCP endpoint reaches the REST API.
func newBroker(cfg *config.Config, selfURL string, logger *zap.Logger) (*broker, error) {
	registry := session.NewRegistry(session.Options{
		BufferSize:       cfg.Broker.ConnBuffer,
		ProbeTimeout:     cfg.Broker.ProbeTimeout,
		SweepInterval:    cfg.Broker.SweepInterval,
		SweepConcurrency: cfg.Broker.SweepConcurrency,
		Logger:           logger.Named("registry"),
	})

	identity, err := auth.NewJWT(auth.Config{
		Secret:   []byte(cfg.Auth.Secret),
		Issuer:   cfg.Auth.Issuer,
		GuestTTL: cfg.Auth.GuestTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	server := api.NewServer(service.NewBrokerService(registry), identity, api.Options{
		Logger:       logger.Named("api"),
		CookieSecure: cfg.Auth.CookieSecure,
		MCP:          mcp.NewClient(selfURL).Handler(),
	})
	return &broker{server: server, registry: registry}, nil
}

// selfURL is a loopback URL for the listen address
func selfURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// runServe serves until ctx is cancelled, then closes every stream and
// shuts the listeners down.
func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	addr := cfg.Addr()
	b, err := newBroker(cfg, selfURL(addr), logger)
	if err != nil {
		return err
	}
	b.registry.Start(ctx)
	defer b.registry.Stop()

	httpServer := newHTTPServer(b.server)
	httpServer.Addr = addr
	// streams only end when their conn closes
	httpServer.RegisterOnShutdown(b.registry.Stop)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("sse", "http://"+addr+"/api/board"),
			zap.String("websocket", "ws://"+addr+"/ws/board"),
			zap.String("mcp", "http://"+addr+"/mcp"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			serveNgrok(gctx, cfg.Ngrok, b.server, logger.Named("ngrok"))
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// no WriteTimeout: event streams stay open for the whole game
	}
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged and leave the local listener running.
func serveNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, logger *zap.Logger) {
	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		logger.Info("using custom ngrok domain", zap.String("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("sse", url+"/api/board"),
		zap.String("mcp", url+"/mcp"))

	srv := newHTTPServer(handler)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// runMCP serves MCP over stdio. It uses the broker at apiURL when it answers;
// otherwise it starts an internal broker on a random loopback port.
func runMCP(ctx context.Context, apiURL string, debug bool) error {
	if apiReachable(ctx, apiURL) {
		return mcp.NewClient(apiURL).ServeStdio()
	}

	cfg, err := loadConfig("", debug, false)
	if err != nil {
		return err
	}
	// stdout belongs to the MCP protocol; zap writes to stderr
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	internalURL := "http://" + listener.Addr().String()
	logger.Info("no broker at API URL, starting internal server",
		zap.String("api", apiURL), zap.String("internal", internalURL))

	b, err := newBroker(cfg, internalURL, logger)
	if err != nil {
		listener.Close()
		return err
	}
	b.registry.Start(ctx)
	defer b.registry.Stop()

	httpServer := newHTTPServer(b.server)
	httpServer.RegisterOnShutdown(b.registry.Stop)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	return mcp.NewClient(internalURL).ServeStdio()
}

func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
