package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxOrgDatasets = 20

// OrganizationList renders an organization_list result. With allFields the
// result holds full organization objects, otherwise bare names.
func OrganizationList(raw json.RawMessage, serverURL string, allFields bool, links Linker) string {
	links = linkerOr(links)

	var items []any
	isList := json.Unmarshal(raw, &items) == nil && items != nil

	var b strings.Builder
	b.WriteString("# CKAN Organizations\n\n")
	fmt.Fprintf(&b, "**Server**: %s\n", serverURL)
	if isList {
		fmt.Fprintf(&b, "**Total**: %d\n\n", len(items))
	} else {
		b.WriteString("**Total**: Unknown\n\n")
	}

	if isList {
		if allFields {
			for _, item := range items {
				writeOrganizationBlock(&b, asObject(item), serverURL, links)
			}
		} else {
			names := make([]string, 0, len(items))
			for _, item := range items {
				names = append(names, "- "+text(item))
			}
			b.WriteString(strings.Join(names, "\n"))
		}
	}

	return Truncate(b.String())
}

func writeOrganizationBlock(b *strings.Builder, org object, serverURL string, links Linker) {
	fmt.Fprintf(b, "## %s\n\n", org.first("title", "name"))
	fmt.Fprintf(b, "- **ID**: `%s`\n", org.str("id"))
	fmt.Fprintf(b, "- **Name**: `%s`\n", org.str("name"))
	if desc := org.str("description"); desc != "" {
		short, _ := cut(desc, maxNotesLength)
		fmt.Fprintf(b, "- **Description**: %s\n", short)
	}
	fmt.Fprintf(b, "- **Datasets**: %d\n", org.int("package_count"))
	fmt.Fprintf(b, "- **Created**: %s\n", FormatDate(org.str("created")))
	fmt.Fprintf(b, "- **Link**: %s\n\n", links.OrganizationURL(serverURL, org.str("id"), org.str("name")))
}

// OrganizationShow renders an organization_show result.
func OrganizationShow(raw json.RawMessage, serverURL string, links Linker) string {
	links = linkerOr(links)
	org := decodeObject(raw)

	var b strings.Builder
	fmt.Fprintf(&b, "# Organization: %s\n\n", org.first("title", "name"))
	fmt.Fprintf(&b, "**Server**: %s\n", serverURL)
	fmt.Fprintf(&b, "**Link**: %s\n\n", links.OrganizationURL(serverURL, org.str("id"), org.str("name")))

	b.WriteString("## Details\n\n")
	fmt.Fprintf(&b, "- **ID**: `%s`\n", org.str("id"))
	fmt.Fprintf(&b, "- **Name**: `%s`\n", org.str("name"))
	fmt.Fprintf(&b, "- **Datasets**: %d\n", org.int("package_count"))
	fmt.Fprintf(&b, "- **Created**: %s\n", FormatDate(org.str("created")))
	fmt.Fprintf(&b, "- **State**: %s\n\n", org.str("state"))

	if desc := org.str("description"); desc != "" {
		fmt.Fprintf(&b, "## Description\n\n%s\n\n", desc)
	}

	if pkgs := org.list("packages"); len(pkgs) > 0 {
		fmt.Fprintf(&b, "## Datasets (%d)\n\n", len(pkgs))
		for i, p := range pkgs {
			if i == maxOrgDatasets {
				break
			}
			pkg := asObject(p)
			fmt.Fprintf(&b, "- **%s** (`%s`)\n", pkg.first("title", "name"), pkg.str("name"))
		}
		if len(pkgs) > maxOrgDatasets {
			fmt.Fprintf(&b, "\n... and %d more datasets\n", len(pkgs)-maxOrgDatasets)
		}
		b.WriteString("\n")
	}

	if users := org.list("users"); len(users) > 0 {
		fmt.Fprintf(&b, "## Users (%d)\n\n", len(users))
		for _, u := range users {
			user := asObject(u)
			fmt.Fprintf(&b, "- **%s** (%s)\n", user.str("name"), user.str("capacity"))
		}
		b.WriteString("\n")
	}

	return Truncate(b.String())
}
