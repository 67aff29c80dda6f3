package main

import (
	"fmt"

	"github.com/hazyhaar/ckan-mcp/pkg/api"
	"github.com/hazyhaar/ckan-mcp/pkg/mcpquic"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (quic alpn %s)\n", api.ServerName, api.Version, mcpquic.ALPNProtocol)
	},
}
