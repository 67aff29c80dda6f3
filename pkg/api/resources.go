package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hazyhaar/ckan-mcp/pkg/ckan"
	"github.com/hazyhaar/ckan-mcp/pkg/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const resourceScheme = "ckan"

// resourceKind describes one ckan://{host}/<kind>/{id} template.
type resourceKind struct {
	segment     string
	name        string
	description string
	fetch       func(ctx context.Context, c *ckan.Client, serverURL, id string) ([]byte, error)
}

var resourceKinds = []resourceKind{
	{
		segment:     "dataset",
		name:        "CKAN dataset",
		description: "Full package_show metadata of a dataset as JSON",
		fetch: func(ctx context.Context, c *ckan.Client, serverURL, id string) ([]byte, error) {
			return c.PackageShow(ctx, serverURL, ckan.PackageShowOptions{ID: id})
		},
	},
	{
		segment:     "resource",
		name:        "CKAN resource",
		description: "resource_show metadata of a single resource (file or API) as JSON",
		fetch: func(ctx context.Context, c *ckan.Client, serverURL, id string) ([]byte, error) {
			return c.ResourceShow(ctx, serverURL, id)
		},
	},
	{
		segment:     "organization",
		name:        "CKAN organization",
		description: "organization_show metadata of an organization as JSON",
		fetch: func(ctx context.Context, c *ckan.Client, serverURL, id string) ([]byte, error) {
			return c.OrganizationShow(ctx, serverURL, ckan.OrganizationShowOptions{ID: id})
		},
	},
}

func registerResources(srv *server.MCPServer, deps Deps) {
	for _, k := range resourceKinds {
		param := "{id}"
		if k.segment == "organization" {
			param = "{name}"
		}
		tmpl := mcp.NewResourceTemplate(
			fmt.Sprintf("%s://{host}/%s/%s", resourceScheme, k.segment, param),
			k.name,
			mcp.WithTemplateDescription(k.description+". The host is resolved against the known portals, otherwise https://{host} is used."),
			mcp.WithTemplateMIMEType("application/json"),
		)
		srv.AddResourceTemplate(tmpl, resourceHandler(deps, k))
	}
}

func resourceHandler(deps Deps, k resourceKind) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		host, id, err := parseResourceURI(req.Params.URI, k.segment)
		if err != nil {
			return nil, err
		}
		serverURL := deps.Portals.ServerForHost(host)
		raw, err := k.fetch(ctx, deps.Client, serverURL, id)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", req.Params.URI, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     render.JSON(raw),
			},
		}, nil
	}
}

// parseResourceURI splits ckan://host/<segment>/<id> into host and id.
func parseResourceURI(uri, segment string) (host, id string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid resource URI %q: %w", uri, err)
	}
	if u.Scheme != resourceScheme || u.Host == "" {
		return "", "", fmt.Errorf("invalid resource URI %q: want %s://{host}/%s/{id}", uri, resourceScheme, segment)
	}
	rest, ok := strings.CutPrefix(u.Path, "/"+segment+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", "", fmt.Errorf("invalid resource URI %q: want %s://{host}/%s/{id}", uri, resourceScheme, segment)
	}
	return u.Host, rest, nil
}
