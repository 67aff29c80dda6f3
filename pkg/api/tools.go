package api

import (
	"github.com/hazyhaar/ckan-mcp/pkg/toolspec"
)

// Tool names as advertised to MCP clients.
const (
	ToolPackageSearch     = "ckan_package_search"
	ToolPackageShow       = "ckan_package_show"
	ToolOrganizationList  = "ckan_organization_list"
	ToolOrganizationShow  = "ckan_organization_show"
	ToolDatastoreSearch   = "ckan_datastore_search"
	ToolStatusShow        = "ckan_status_show"
	formatMarkdown        = "markdown"
	formatJSON            = "json"
	serverURLDescription  = "Base URL of the CKAN server (e.g. https://www.dati.gov.it/opendata)"
	responseFormatDetails = "Output format: 'markdown' for human-readable or 'json' for machine-readable"
)

var serverURLParam = toolspec.Param{
	Name:        "server_url",
	Kind:        toolspec.KindString,
	Required:    true,
	URL:         true,
	Description: serverURLDescription,
}

var responseFormatParam = toolspec.Param{
	Name:        "response_format",
	Kind:        toolspec.KindString,
	Default:     formatMarkdown,
	Enum:        []string{formatMarkdown, formatJSON},
	Description: responseFormatDetails,
}

var packageSearchSpec = toolspec.Spec{
	Name:  ToolPackageSearch,
	Title: "Search CKAN Datasets",
	Description: `Search for datasets (packages) on a CKAN server using Solr query syntax.

Supports filters, facets, sorting and pagination. Use this to discover datasets matching specific criteria.

Examples:
  - Search all: { server_url: "https://www.dati.gov.it/opendata", q: "*:*" }
  - By tag: { server_url: "...", q: "tags:sanità" }
  - Filter org: { server_url: "...", fq: "organization:regione-siciliana" }
  - Get facets only: { server_url: "...", facet_field: ["organization"], rows: 0 }`,
	OpenWorld: true,
	Params: []toolspec.Param{
		serverURLParam,
		{Name: "q", Kind: toolspec.KindString, Default: "*:*", Description: "Search query in Solr syntax"},
		{Name: "fq", Kind: toolspec.KindString, Description: "Filter query in Solr syntax"},
		{Name: "rows", Kind: toolspec.KindInteger, Default: 10, Min: toolspec.Bound(0), Max: toolspec.Bound(1000), Description: "Number of results to return"},
		{Name: "start", Kind: toolspec.KindInteger, Default: 0, Min: toolspec.Bound(0), Description: "Offset for pagination"},
		{Name: "sort", Kind: toolspec.KindString, Description: "Sort field and direction (e.g. 'metadata_modified desc')"},
		{Name: "facet_field", Kind: toolspec.KindStringList, Description: "Fields to facet on (e.g. [\"organization\", \"tags\"])"},
		{Name: "facet_limit", Kind: toolspec.KindInteger, Default: 50, Min: toolspec.Bound(1), Description: "Maximum facet values per field"},
		{Name: "include_drafts", Kind: toolspec.KindBoolean, Default: false, Description: "Include draft datasets"},
		responseFormatParam,
	},
}

var packageShowSpec = toolspec.Spec{
	Name:  ToolPackageShow,
	Title: "Show CKAN Dataset Details",
	Description: `Get complete metadata for a specific dataset (package).

Returns full details including resources, organization, tags, groups and extra fields.`,
	Params: []toolspec.Param{
		serverURLParam,
		{Name: "id", Kind: toolspec.KindString, Required: true, MinLength: 1, Description: "Dataset ID or name (machine-readable slug)"},
		{Name: "include_tracking", Kind: toolspec.KindBoolean, Default: false, Description: "Include view/download statistics"},
		responseFormatParam,
	},
}

var organizationListSpec = toolspec.Spec{
	Name:  ToolOrganizationList,
	Title: "List CKAN Organizations",
	Description: `List all organizations on a CKAN server.

Organizations are entities that publish and manage datasets.`,
	Params: []toolspec.Param{
		serverURLParam,
		{Name: "all_fields", Kind: toolspec.KindBoolean, Default: false, Description: "Return full objects instead of names only"},
		{Name: "sort", Kind: toolspec.KindString, Default: "name asc", Description: "Sort field and direction"},
		{Name: "limit", Kind: toolspec.KindInteger, Default: 100, Min: toolspec.Bound(1), Description: "Maximum results"},
		{Name: "offset", Kind: toolspec.KindInteger, Default: 0, Min: toolspec.Bound(0), Description: "Pagination offset"},
		responseFormatParam,
	},
}

var organizationShowSpec = toolspec.Spec{
	Name:        ToolOrganizationShow,
	Title:       "Show CKAN Organization Details",
	Description: "Get details of a specific organization, optionally with its datasets and users.",
	Params: []toolspec.Param{
		serverURLParam,
		{Name: "id", Kind: toolspec.KindString, Required: true, MinLength: 1, Description: "Organization ID or name"},
		{Name: "include_datasets", Kind: toolspec.KindBoolean, Default: true, Description: "Include the list of datasets"},
		{Name: "include_users", Kind: toolspec.KindBoolean, Default: false, Description: "Include the list of users"},
		responseFormatParam,
	},
}

var datastoreSearchSpec = toolspec.Spec{
	Name:  ToolDatastoreSearch,
	Title: "Search CKAN DataStore",
	Description: `Query tabular data from a CKAN DataStore resource. Not all resources have the DataStore enabled.

Examples:
  - { server_url: "...", resource_id: "abc-123", limit: 50 }
  - { server_url: "...", resource_id: "...", filters: { "regione": "Sicilia" } }
  - { server_url: "...", resource_id: "...", sort: "anno desc", limit: 100 }`,
	Params: []toolspec.Param{
		serverURLParam,
		{Name: "resource_id", Kind: toolspec.KindString, Required: true, MinLength: 1, Description: "ID of the DataStore resource"},
		{Name: "q", Kind: toolspec.KindString, Description: "Full-text search query"},
		{Name: "filters", Kind: toolspec.KindObject, Description: "Key-value filters (e.g. { \"anno\": 2023 })"},
		{Name: "limit", Kind: toolspec.KindInteger, Default: 100, Min: toolspec.Bound(1), Max: toolspec.Bound(32000), Description: "Maximum rows to return"},
		{Name: "offset", Kind: toolspec.KindInteger, Default: 0, Min: toolspec.Bound(0), Description: "Pagination offset"},
		{Name: "fields", Kind: toolspec.KindStringList, Description: "Specific fields to return"},
		{Name: "sort", Kind: toolspec.KindString, Description: "Sort field with direction (e.g. 'anno desc')"},
		{Name: "distinct", Kind: toolspec.KindBoolean, Default: false, Description: "Return distinct values"},
		responseFormatParam,
	},
}

var statusShowSpec = toolspec.Spec{
	Name:        ToolStatusShow,
	Title:       "Check CKAN Server Status",
	Description: "Check if a CKAN server is available and get version information. Useful to verify a portal before making other requests.",
	Params:      []toolspec.Param{serverURLParam},
}

// Specs returns the declarations of every tool, in registration order.
func Specs() []toolspec.Spec {
	return []toolspec.Spec{
		packageSearchSpec,
		packageShowSpec,
		organizationListSpec,
		organizationShowSpec,
		datastoreSearchSpec,
		statusShowSpec,
	}
}
