package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/hazyhaar/ckan-mcp/pkg/api"
	"github.com/hazyhaar/ckan-mcp/pkg/mcpquic"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	callArgs string
	callRaw  bool
	callQUIC string
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Run one tool in-process and print its output",
	Example: `  ckan-mcp call ckan_status_show --args '{"server_url":"https://demo.ckan.org"}'
  ckan-mcp call ckan_package_search --args '{"server_url":"https://www.dati.gov.it/opendata","q":"ambiente","rows":5}'
  ckan-mcp call ckan_status_show --quic localhost:3000 --args '{"server_url":"https://demo.ckan.org"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		var toolArgs map[string]any
		if strings.TrimSpace(callArgs) != "" {
			if err := json.Unmarshal([]byte(callArgs), &toolArgs); err != nil {
				return fmt.Errorf("--args: %w", err)
			}
		}

		var res *mcp.CallToolResult
		if callQUIC != "" {
			res, err = callRemote(cmd.Context(), callQUIC, args[0], toolArgs)
		} else {
			var deps api.Deps
			if deps, err = newDeps(cfg, logger); err != nil {
				return err
			}
			res, err = callInProcess(cmd.Context(), api.NewMCPServer(deps), args[0], toolArgs)
		}
		if err != nil {
			return err
		}
		text := contentText(res)
		if res.IsError {
			pterm.Error.Println(text)
			return fmt.Errorf("tool %s failed", args[0])
		}
		if callRaw {
			fmt.Fprintln(os.Stdout, text)
			return nil
		}
		fmt.Fprint(os.Stdout, string(markdown.Render(text, 80, 2)))
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callArgs, "args", "", "tool arguments as a JSON object")
	callCmd.Flags().BoolVar(&callRaw, "raw", false, "print the tool output without terminal rendering")
	callCmd.Flags().StringVar(&callQUIC, "quic", "", "call a running quic or chassis server at host:port instead of in-process")
}

func callInProcess(ctx context.Context, srv *server.MCPServer, name string, args map[string]any) (*mcp.CallToolResult, error) {
	c, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	var init mcp.InitializeRequest
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "ckan-mcp-cli", Version: api.Version}
	if _, err := c.Initialize(ctx, init); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return c.CallTool(ctx, req)
}

// callRemote calls a tool on a running server over MCP-over-QUIC. Server
// certificates are not verified.
func callRemote(ctx context.Context, addr, name string, args map[string]any) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	c := mcpquic.NewClient(addr, nil, mcpquic.WithClientInfo("ckan-mcp-cli", api.Version))
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	defer c.Close()
	return c.CallTool(ctx, name, args)
}

// contentText joins the text blocks of a tool result.
func contentText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if t, ok := c.(mcp.TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}
