package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Linker builds human-facing portal links. The portal registry implements it.
type Linker interface {
	DatasetURL(serverURL, id, name string) string
	OrganizationURL(serverURL, id, name string) string
}

type defaultLinker struct{}

func (defaultLinker) DatasetURL(serverURL, _, name string) string {
	return strings.TrimSuffix(serverURL, "/") + "/dataset/" + name
}

func (defaultLinker) OrganizationURL(serverURL, _, name string) string {
	return strings.TrimSuffix(serverURL, "/") + "/organization/" + name
}

func linkerOr(l Linker) Linker {
	if l == nil {
		return defaultLinker{}
	}
	return l
}

const (
	maxFacetValues  = 10
	maxNotesLength  = 200
	maxTagsInSearch = 5
)

// SearchQuery carries the request values the search rendering refers to.
type SearchQuery struct {
	ServerURL string
	Q         string
	FQ        string
	Start     int
	Rows      int
}

// PackageSearch renders a package_search result as markdown.
func PackageSearch(raw json.RawMessage, q SearchQuery, links Linker) string {
	links = linkerOr(links)
	result := decodeObject(raw)
	results := result.list("results")
	count := result.int("count")

	var b strings.Builder
	b.WriteString("# CKAN Package Search Results\n\n")
	fmt.Fprintf(&b, "**Server**: %s\n", q.ServerURL)
	fmt.Fprintf(&b, "**Query**: %s\n", q.Q)
	if q.FQ != "" {
		fmt.Fprintf(&b, "**Filter**: %s\n", q.FQ)
	}
	fmt.Fprintf(&b, "**Total Results**: %d\n", count)
	fmt.Fprintf(&b, "**Showing**: %d results (from %d)\n\n", len(results), q.Start)

	writeFacets(&b, result.obj("facets"))

	if len(results) > 0 {
		b.WriteString("## Datasets\n\n")
		for _, item := range results {
			writeSearchEntry(&b, asObject(item), q.ServerURL, links)
		}
	} else {
		b.WriteString("No datasets found matching your query.\n")
	}

	if count > q.Start+q.Rows {
		fmt.Fprintf(&b, "\n---\n**More results available**: Use `start: %d` to see next page.\n", q.Start+q.Rows)
	}

	return Truncate(b.String())
}

type facetValue struct {
	value string
	count float64
}

// writeFacets lists each facet field with its values by descending count.
// Fields are emitted in name order so the output is deterministic.
func writeFacets(b *strings.Builder, facets object) {
	if len(facets) == 0 {
		return
	}
	fields := make([]string, 0, len(facets))
	for f := range facets {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	b.WriteString("## Facets\n\n")
	for _, field := range fields {
		values := facets.obj(field)
		fmt.Fprintf(b, "### %s\n\n", field)

		sorted := make([]facetValue, 0, len(values))
		for v := range values {
			sorted = append(sorted, facetValue{value: v, count: values.num(v)})
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].count != sorted[j].count {
				return sorted[i].count > sorted[j].count
			}
			return sorted[i].value < sorted[j].value
		})
		if len(sorted) > maxFacetValues {
			sorted = sorted[:maxFacetValues]
		}
		for _, fv := range sorted {
			fmt.Fprintf(b, "- **%s**: %s\n", fv.value, text(fv.count))
		}
		b.WriteString("\n")
	}
}

func writeSearchEntry(b *strings.Builder, pkg object, serverURL string, links Linker) {
	fmt.Fprintf(b, "### %s\n\n", pkg.first("title", "name"))
	fmt.Fprintf(b, "- **ID**: `%s`\n", pkg.str("id"))
	fmt.Fprintf(b, "- **Name**: `%s`\n", pkg.str("name"))
	if org := pkg.obj("organization"); len(org) > 0 {
		fmt.Fprintf(b, "- **Organization**: %s\n", org.first("title", "name"))
	}
	if notes := pkg.str("notes"); notes != "" {
		short, cutOff := cut(notes, maxNotesLength)
		if cutOff {
			short += "..."
		}
		fmt.Fprintf(b, "- **Description**: %s\n", short)
	}
	if tags := pkg.list("tags"); len(tags) > 0 {
		names := make([]string, 0, maxTagsInSearch)
		for i, t := range tags {
			if i == maxTagsInSearch {
				break
			}
			names = append(names, asObject(t).str("name"))
		}
		suffix := ""
		if len(tags) > maxTagsInSearch {
			suffix = ", ..."
		}
		fmt.Fprintf(b, "- **Tags**: %s%s\n", strings.Join(names, ", "), suffix)
	}
	fmt.Fprintf(b, "- **Resources**: %d\n", pkg.int("num_resources"))
	fmt.Fprintf(b, "- **Modified**: %s\n", FormatDate(pkg.str("metadata_modified")))
	fmt.Fprintf(b, "- **Link**: %s\n\n", links.DatasetURL(serverURL, pkg.str("id"), pkg.str("name")))
}
