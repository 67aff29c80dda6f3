package api

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/ckan-mcp/pkg/ckan"
	"github.com/hazyhaar/ckan-mcp/pkg/kit"
	"github.com/hazyhaar/ckan-mcp/pkg/portal"
	"github.com/hazyhaar/ckan-mcp/pkg/toolspec"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName = "ckan-mcp-server"
	Version    = "0.4.0"
)

const instructions = `Read-only access to CKAN open data portals (dati.gov.it, data.gov, open.canada.ca, data.gov.uk and any other CKAN instance).
Every tool takes the portal base URL as server_url. Start with ckan_status_show to check a portal, search with ckan_package_search, then drill down with ckan_package_show and ckan_datastore_search.`

// Deps are the collaborators shared by every tool.
type Deps struct {
	Client  *ckan.Client
	Portals *portal.Registry
	Logger  *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Client == nil {
		d.Client = ckan.NewClient(ckan.WithLogger(d.Logger))
	}
	if d.Portals == nil {
		reg, err := portal.Default()
		if err != nil {
			// The built-in table is embedded at build time.
			panic(err)
		}
		d.Portals = reg
	}
	return d
}

// NewMCPServer builds a fresh MCP server with every CKAN tool, resource
// template and prompt registered. Each call returns an independent instance.
func NewMCPServer(deps Deps) *server.MCPServer {
	deps = deps.withDefaults()
	srv := server.NewMCPServer(ServerName, Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)
	RegisterMCPTools(srv, deps)
	registerResources(srv, deps)
	registerPrompts(srv)
	return srv
}

// RegisterMCPTools registers the six CKAN tools on the server.
func RegisterMCPTools(srv *server.MCPServer, deps Deps) {
	mw := kit.Chain(kit.RequestID(), kit.Logging(deps.Logger), classifyFailures(deps.Logger))
	endpoints := map[string]kit.Endpoint{
		ToolPackageSearch:    packageSearchEndpoint(deps),
		ToolPackageShow:      packageShowEndpoint(deps),
		ToolOrganizationList: organizationListEndpoint(deps),
		ToolOrganizationShow: organizationShowEndpoint(deps),
		ToolDatastoreSearch:  datastoreSearchEndpoint(deps),
		ToolStatusShow:       statusShowEndpoint(deps),
	}
	for _, spec := range Specs() {
		kit.RegisterMCPTool(srv, spec.Tool(), mw(endpoints[spec.Name]), decodeWith(spec))
	}
}

// decodeWith validates raw MCP arguments against the tool's compiled input
// schema.
func decodeWith(spec toolspec.Spec) func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	v := toolspec.MustCompile(spec)
	return func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args, err := v.Validate(req.GetArguments())
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: args}, nil
	}
}

// classifyFailures logs the kind of CKAN failure behind a tool error.
func classifyFailures(logger *slog.Logger) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			resp, err := next(ctx, request)
			if kind := ckanErrorKind(err); kind != "" {
				logger.Debug("ckan call failed",
					"tool", kit.GetTool(ctx),
					"request_id", kit.GetRequestID(ctx),
					"kind", kind,
				)
			}
			return resp, err
		}
	}
}
