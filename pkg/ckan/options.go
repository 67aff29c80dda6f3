package ckan

// Option structs translate validated tool inputs into CKAN Action API parameters.
// Pointer fields are optional: nil means the parameter is not sent at all,
// which CKAN treats differently from an empty value.

// Action names.
const (
	ActionPackageSearch    = "package_search"
	ActionPackageShow      = "package_show"
	ActionOrganizationList = "organization_list"
	ActionOrganizationShow = "organization_show"
	ActionDatastoreSearch  = "datastore_search"
	ActionStatusShow       = "status_show"
	ActionResourceShow     = "resource_show"
)

// PackageSearchOptions maps to package_search.
type PackageSearchOptions struct {
	Q          string
	FQ         *string
	Rows       int
	Start      int
	Sort       *string
	FacetField []string
	FacetLimit int
	// IncludeDrafts is sent as include_private, as the tool contract documents.
	IncludeDrafts bool
}

// Params builds the package_search query.
func (o PackageSearchOptions) Params() (*Params, error) {
	p := NewParams()
	p.Set("q", o.Q)
	p.SetInt("rows", o.Rows)
	p.SetInt("start", o.Start)
	p.SetBool("include_private", o.IncludeDrafts)
	if o.FQ != nil && *o.FQ != "" {
		p.Set("fq", *o.FQ)
	}
	if o.Sort != nil && *o.Sort != "" {
		p.Set("sort", *o.Sort)
	}
	if len(o.FacetField) > 0 {
		if err := p.SetJSON("facet.field", o.FacetField); err != nil {
			return nil, err
		}
		p.SetInt("facet.limit", o.FacetLimit)
	}
	return p, nil
}

// PackageShowOptions maps to package_show.
type PackageShowOptions struct {
	ID              string
	IncludeTracking bool
}

func (o PackageShowOptions) Params() (*Params, error) {
	p := NewParams()
	p.Set("id", o.ID)
	p.SetBool("include_tracking", o.IncludeTracking)
	return p, nil
}

// OrganizationListOptions maps to organization_list.
type OrganizationListOptions struct {
	AllFields bool
	Sort      string
	Limit     int
	Offset    int
}

func (o OrganizationListOptions) Params() (*Params, error) {
	p := NewParams()
	p.SetBool("all_fields", o.AllFields)
	p.Set("sort", o.Sort)
	p.SetInt("limit", o.Limit)
	p.SetInt("offset", o.Offset)
	return p, nil
}

// OrganizationShowOptions maps to organization_show.
type OrganizationShowOptions struct {
	ID              string
	IncludeDatasets bool
	IncludeUsers    bool
}

func (o OrganizationShowOptions) Params() (*Params, error) {
	p := NewParams()
	p.Set("id", o.ID)
	p.SetBool("include_datasets", o.IncludeDatasets)
	p.SetBool("include_users", o.IncludeUsers)
	return p, nil
}

// DatastoreSearchOptions maps to datastore_search.
type DatastoreSearchOptions struct {
	ResourceID string
	Q          *string
	// Filters is passed through uninterpreted and sent JSON-stringified.
	Filters  map[string]any
	Limit    int
	Offset   int
	Fields   []string
	Sort     *string
	Distinct bool
}

func (o DatastoreSearchOptions) Params() (*Params, error) {
	p := NewParams()
	p.Set("resource_id", o.ResourceID)
	p.SetInt("limit", o.Limit)
	p.SetInt("offset", o.Offset)
	p.SetBool("distinct", o.Distinct)
	if o.Q != nil && *o.Q != "" {
		p.Set("q", *o.Q)
	}
	if o.Filters != nil {
		if err := p.SetJSON("filters", o.Filters); err != nil {
			return nil, err
		}
	}
	if o.Fields != nil {
		p.SetList("fields", o.Fields)
	}
	if o.Sort != nil && *o.Sort != "" {
		p.Set("sort", *o.Sort)
	}
	return p, nil
}
