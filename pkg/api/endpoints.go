package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hazyhaar/ckan-mcp/pkg/ckan"
	"github.com/hazyhaar/ckan-mcp/pkg/kit"
	"github.com/hazyhaar/ckan-mcp/pkg/render"
	"github.com/hazyhaar/ckan-mcp/pkg/toolspec"
	"github.com/mark3labs/mcp-go/mcp"
)

// Every tool request is the toolspec.Args produced by its Spec. Endpoints
// translate them into CKAN options, call the portal once and render.

// Error prefixes shown to the model, one per tool.
const (
	prefixPackageSearch    = "Error searching packages: "
	prefixPackageShow      = "Error fetching package: "
	prefixOrganizationList = "Error listing organizations: "
	prefixOrganizationShow = "Error fetching organization: "
	prefixDatastoreSearch  = "Error querying DataStore: "
	prefixStatusShow       = "Server appears to be offline or not a valid CKAN instance:\n"
)

// toolError is a failure reported to the caller with a tool-specific prefix.
type toolError struct {
	prefix string
	err    error
}

func (e *toolError) Error() string { return e.prefix + e.err.Error() }
func (e *toolError) Unwrap() error { return e.err }

func failed(prefix string, err error) error {
	return &toolError{prefix: prefix, err: err}
}

func packageSearchEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		args := request.(toolspec.Args)
		server := args.String("server_url")
		raw, err := d.Client.PackageSearch(ctx, server, ckan.PackageSearchOptions{
			Q:             args.String("q"),
			FQ:            args.StringPtr("fq"),
			Rows:          args.Int("rows"),
			Start:         args.Int("start"),
			Sort:          args.StringPtr("sort"),
			FacetField:    args.Strings("facet_field"),
			FacetLimit:    args.Int("facet_limit"),
			IncludeDrafts: args.Bool("include_drafts"),
		})
		if err != nil {
			return nil, failed(prefixPackageSearch, err)
		}
		if wantsJSON(args) {
			return jsonResult(raw), nil
		}
		return render.PackageSearch(raw, render.SearchQuery{
			ServerURL: server,
			Q:         args.String("q"),
			FQ:        args.String("fq"),
			Start:     args.Int("start"),
			Rows:      args.Int("rows"),
		}, d.Portals), nil
	}
}

func packageShowEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		args := request.(toolspec.Args)
		server := args.String("server_url")
		raw, err := d.Client.PackageShow(ctx, server, ckan.PackageShowOptions{
			ID:              args.String("id"),
			IncludeTracking: args.Bool("include_tracking"),
		})
		if err != nil {
			return nil, failed(prefixPackageShow, err)
		}
		if wantsJSON(args) {
			return jsonResult(raw), nil
		}
		return render.PackageShow(raw, server, d.Portals), nil
	}
}

func organizationListEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		args := request.(toolspec.Args)
		server := args.String("server_url")
		raw, err := d.Client.OrganizationList(ctx, server, ckan.OrganizationListOptions{
			AllFields: args.Bool("all_fields"),
			Sort:      args.String("sort"),
			Limit:     args.Int("limit"),
			Offset:    args.Int("offset"),
		})
		if err != nil {
			return nil, failed(prefixOrganizationList, err)
		}
		if wantsJSON(args) {
			return jsonResult(raw), nil
		}
		return render.OrganizationList(raw, server, args.Bool("all_fields"), d.Portals), nil
	}
}

func organizationShowEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		args := request.(toolspec.Args)
		server := args.String("server_url")
		raw, err := d.Client.OrganizationShow(ctx, server, ckan.OrganizationShowOptions{
			ID:              args.String("id"),
			IncludeDatasets: args.Bool("include_datasets"),
			IncludeUsers:    args.Bool("include_users"),
		})
		if err != nil {
			return nil, failed(prefixOrganizationShow, err)
		}
		if wantsJSON(args) {
			return jsonResult(raw), nil
		}
		return render.OrganizationShow(raw, server, d.Portals), nil
	}
}

func datastoreSearchEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		args := request.(toolspec.Args)
		server := args.String("server_url")
		opts := ckan.DatastoreSearchOptions{
			ResourceID: args.String("resource_id"),
			Q:          args.StringPtr("q"),
			Filters:    args.Object("filters"),
			Limit:      args.Int("limit"),
			Offset:     args.Int("offset"),
			Sort:       args.StringPtr("sort"),
			Distinct:   args.Bool("distinct"),
		}
		if args.Has("fields") {
			opts.Fields = args.Strings("fields")
		}
		raw, err := d.Client.DatastoreSearch(ctx, server, opts)
		if err != nil {
			return nil, failed(prefixDatastoreSearch, err)
		}
		if wantsJSON(args) {
			return jsonResult(raw), nil
		}
		return render.DatastoreSearch(raw, render.DatastoreQuery{
			ServerURL:  server,
			ResourceID: opts.ResourceID,
			Offset:     opts.Offset,
			Limit:      opts.Limit,
		}), nil
	}
}

func statusShowEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		args := request.(toolspec.Args)
		server := args.String("server_url")
		raw, err := d.Client.StatusShow(ctx, server)
		if err != nil {
			return nil, failed(prefixStatusShow, err)
		}
		text := render.Status(raw, server)
		if obj, ok := asObject(raw); ok {
			return mcp.NewToolResultStructured(obj, text), nil
		}
		return text, nil
	}
}

func wantsJSON(args toolspec.Args) bool {
	return args.String("response_format") == formatJSON
}

// jsonResult returns the pretty-printed result as text. Objects are also
// attached as structured content; arrays and scalars are not, since MCP
// structured content must be an object.
func jsonResult(raw json.RawMessage) *mcp.CallToolResult {
	text := render.JSON(raw)
	if obj, ok := asObject(raw); ok {
		return mcp.NewToolResultStructured(obj, text)
	}
	return mcp.NewToolResultText(text)
}

func asObject(raw json.RawMessage) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ckanErrorKind returns the classification of a failed call, or "" when err
// did not come from the CKAN client.
func ckanErrorKind(err error) string {
	var ce *ckan.Error
	if errors.As(err, &ce) {
		return ce.Kind.String()
	}
	return ""
}
