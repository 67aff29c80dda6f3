// CLAUDE:SUMMARY ckan-mcp entry point: cobra root with serve, portals, call and version commands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	portalsPath string
)

var rootCmd = &cobra.Command{
	Use:           "ckan-mcp",
	Short:         "MCP server for CKAN open data portals",
	Long:          "ckan-mcp exposes the read-only CKAN Action API (package search, datasets, organizations, DataStore) as MCP tools over stdio, streamable HTTP or QUIC.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&portalsPath, "portals", "", "portal table (YAML); built-in table when empty")
	rootCmd.AddCommand(serveCmd, portalsCmd, callCmd, versionCmd)
}

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the config and builds the stderr logger. Stdout is reserved
// for the stdio transport and command output.
func setup(cmd *cobra.Command) (config, *slog.Logger, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return cfg, nil, err
	}
	cfg.applyEnv(os.Getenv)
	if cmd.Flags().Changed("portals") {
		cfg.PortalsFile = portalsPath
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
