package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/ckan-mcp/pkg/api"
	"github.com/hazyhaar/ckan-mcp/pkg/chassis"
	"github.com/hazyhaar/ckan-mcp/pkg/ckan"
	"github.com/hazyhaar/ckan-mcp/pkg/kit"
	"github.com/hazyhaar/ckan-mcp/pkg/mcpquic"
	"github.com/hazyhaar/ckan-mcp/pkg/portal"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var (
	flagTransport string
	flagAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the MCP server on one transport:
  stdio    JSON-RPC over stdin/stdout (default)
  http     streamable HTTP on /mcp, health on /health
  quic     MCP over QUIC (ALPN ` + mcpquic.ALPNProtocol + `)
  chassis  TLS HTTP/1.1+HTTP/2, HTTP/3 and MCP over QUIC on one port`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("transport") {
			cfg.Transport = flagTransport
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr = flagAddr
		}
		if err := cfg.validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagTransport, "transport", transportStdio, "stdio, http, quic or chassis")
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":3000", "listen address for http and quic")
}

// newDeps builds the shared CKAN client and portal table.
func newDeps(cfg config, logger *slog.Logger) (api.Deps, error) {
	reg, err := portal.Load(cfg.PortalsFile)
	if err != nil {
		return api.Deps{}, err
	}
	client := ckan.NewClient(
		ckan.WithLogger(logger),
		ckan.WithTimeout(cfg.Timeout),
		ckan.WithUserAgent(cfg.UserAgent),
	)
	return api.Deps{Client: client, Portals: reg, Logger: logger}, nil
}

func serve(ctx context.Context, cfg config, logger *slog.Logger) error {
	deps, err := newDeps(cfg, logger)
	if err != nil {
		return err
	}
	srv := api.NewMCPServer(deps)

	if cfg.CheckInterval > 0 {
		checker := portal.NewChecker(deps.Portals, deps.Client, logger, cfg.CheckInterval)
		go checker.Start(ctx)
	}

	logger.Info("ckan-mcp starting",
		"version", api.Version,
		"transport", cfg.Transport,
		"portals", len(deps.Portals.Portals()),
	)

	switch cfg.Transport {
	case transportHTTP:
		return serveHTTP(ctx, srv, cfg.Addr, logger)
	case transportQUIC:
		return serveQUIC(ctx, srv, cfg, logger)
	case transportChassis:
		return serveChassis(ctx, srv, cfg, logger)
	default:
		return serveStdio(ctx, srv, logger)
	}
}

func serveStdio(ctx context.Context, srv *server.MCPServer, logger *slog.Logger) error {
	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	err := stdio.Listen(kit.WithTransport(ctx, transportStdio), os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio: %w", err)
	}
	logger.Info("stdio session closed")
	return nil
}

func serveHTTP(ctx context.Context, srv *server.MCPServer, addr string, logger *slog.Logger) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.NewStreamableHandler(srv), api.HealthInfo(transportHTTP)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", addr, "endpoint", "/mcp")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func serveQUIC(ctx context.Context, srv *server.MCPServer, cfg config, logger *slog.Logger) error {
	tlsCfg, selfSigned, err := mcpquic.ListenerTLSConfig(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		return err
	}
	if selfSigned {
		logger.Warn("no tls_cert configured, using a self-signed certificate")
	}

	l, err := mcpquic.NewListener(cfg.Addr, tlsCfg, srv, logger)
	if err != nil {
		return fmt.Errorf("quic listen %s: %w", cfg.Addr, err)
	}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		l.Close()
	}()

	if err := l.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("quic: %w", err)
	}
	return nil
}

func serveChassis(ctx context.Context, srv *server.MCPServer, cfg config, logger *slog.Logger) error {
	c, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		CertFile:  cfg.TLSCert,
		KeyFile:   cfg.TLSKey,
		Handler:   api.NewRouter(api.NewStreamableHandler(srv), api.HealthInfo(transportChassis)),
		MCPServer: srv,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	return c.Serve(ctx)
}
