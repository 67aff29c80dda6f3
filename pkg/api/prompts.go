package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/ckan-mcp/pkg/toolspec"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// PromptRecentDatasets guides a client through listing recently updated datasets.
const PromptRecentDatasets = "ckan-recent-datasets"

const defaultPromptRows = 10

func registerPrompts(srv *server.MCPServer) {
	srv.AddPrompt(mcp.NewPrompt(PromptRecentDatasets,
		mcp.WithPromptDescription("Guided prompt to list recently updated datasets on a CKAN portal."),
		mcp.WithArgument("server_url",
			mcp.ArgumentDescription("Base URL of the CKAN server"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("rows",
			mcp.ArgumentDescription("Max results to return (default 10)"),
		),
	), recentDatasetsPrompt)
}

func recentDatasetsPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	serverURL := strings.TrimSpace(req.Params.Arguments["server_url"])
	if !toolspec.IsAbsoluteURL(serverURL) {
		return nil, errors.New("server_url: must be a valid URL")
	}
	rows := defaultPromptRows
	if v := strings.TrimSpace(req.Params.Arguments["rows"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, errors.New("rows: must be a positive integer")
		}
		rows = n
	}
	return mcp.NewGetPromptResult(
		"Find recently updated datasets",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(recentDatasetsText(serverURL, rows))),
		},
	), nil
}

func recentDatasetsText(serverURL string, rows int) string {
	return fmt.Sprintf(`# Guided search: recent datasets

Use `+"`%[3]s`"+` sorted by modification date:

%[3]s({
  server_url: "%[1]s",
  q: "*:*",
  sort: "metadata_modified desc",
  rows: %[2]d
})

Optional: add a date filter for the last N days:

%[3]s({
  server_url: "%[1]s",
  q: "metadata_modified:[NOW-30DAYS TO *]",
  sort: "metadata_modified desc",
  rows: %[2]d
})`, serverURL, rows, ToolPackageSearch)
}
