package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PackageShow renders a package_show result as markdown. Sections whose
// source fields are missing are left out.
func PackageShow(raw json.RawMessage, serverURL string, links Linker) string {
	links = linkerOr(links)
	pkg := decodeObject(raw)

	var b strings.Builder
	fmt.Fprintf(&b, "# Dataset: %s\n\n", pkg.first("title", "name"))
	fmt.Fprintf(&b, "**Server**: %s\n", serverURL)
	fmt.Fprintf(&b, "**Link**: %s\n\n", links.DatasetURL(serverURL, pkg.str("id"), pkg.str("name")))

	b.WriteString("## Basic Information\n\n")
	fmt.Fprintf(&b, "- **ID**: `%s`\n", pkg.str("id"))
	fmt.Fprintf(&b, "- **Name**: `%s`\n", pkg.str("name"))
	optionalLine(&b, "Author", pkg.str("author"))
	optionalLine(&b, "Author Email", pkg.str("author_email"))
	optionalLine(&b, "Maintainer", pkg.str("maintainer"))
	optionalLine(&b, "Maintainer Email", pkg.str("maintainer_email"))
	license := pkg.first("license_title", "license_id")
	if license == "" {
		license = "Not specified"
	}
	fmt.Fprintf(&b, "- **License**: %s\n", license)
	fmt.Fprintf(&b, "- **State**: %s\n", pkg.str("state"))
	fmt.Fprintf(&b, "- **Created**: %s\n", FormatDate(pkg.str("metadata_created")))
	fmt.Fprintf(&b, "- **Modified**: %s\n\n", FormatDate(pkg.str("metadata_modified")))

	if org := pkg.obj("organization"); len(org) > 0 {
		b.WriteString("## Organization\n\n")
		fmt.Fprintf(&b, "- **Name**: %s\n", org.first("title", "name"))
		fmt.Fprintf(&b, "- **ID**: `%s`\n\n", org.str("id"))
	}

	if notes := pkg.str("notes"); notes != "" {
		fmt.Fprintf(&b, "## Description\n\n%s\n\n", notes)
	}

	if tags := pkg.list("tags"); len(tags) > 0 {
		b.WriteString("## Tags\n\n")
		for _, t := range tags {
			fmt.Fprintf(&b, "- %s\n", asObject(t).str("name"))
		}
		b.WriteString("\n")
	}

	if groups := pkg.list("groups"); len(groups) > 0 {
		b.WriteString("## Groups\n\n")
		for _, g := range groups {
			group := asObject(g)
			fmt.Fprintf(&b, "- **%s** (`%s`)\n", group.first("title", "name"), group.str("name"))
		}
		b.WriteString("\n")
	}

	if resources := pkg.list("resources"); len(resources) > 0 {
		fmt.Fprintf(&b, "## Resources (%d)\n\n", len(resources))
		for _, r := range resources {
			writeResource(&b, asObject(r))
		}
	}

	if extras := pkg.list("extras"); len(extras) > 0 {
		b.WriteString("## Extra Fields\n\n")
		for _, e := range extras {
			extra := asObject(e)
			fmt.Fprintf(&b, "- **%s**: %s\n", extra.str("key"), extra.str("value"))
		}
		b.WriteString("\n")
	}

	return Truncate(b.String())
}

func writeResource(b *strings.Builder, res object) {
	name := res.str("name")
	if name == "" {
		name = "Unnamed Resource"
	}
	format := res.str("format")
	if format == "" {
		format = "Unknown"
	}

	fmt.Fprintf(b, "### %s\n\n", name)
	fmt.Fprintf(b, "- **ID**: `%s`\n", res.str("id"))
	fmt.Fprintf(b, "- **Format**: %s\n", format)
	optionalLine(b, "Description", res.str("description"))
	fmt.Fprintf(b, "- **URL**: %s\n", res.str("url"))
	if size := res.num("size"); size > 0 {
		fmt.Fprintf(b, "- **Size**: %s\n", FormatBytes(size))
	}
	optionalLine(b, "MIME Type", res.str("mimetype"))
	fmt.Fprintf(b, "- **Created**: %s\n", FormatDate(res.str("created")))
	if modified := res.str("last_modified"); modified != "" {
		fmt.Fprintf(b, "- **Modified**: %s\n", FormatDate(modified))
	}
	if _, ok := res["datastore_active"]; ok {
		status := "❌ Not available"
		if res.boolean("datastore_active") {
			status = "✅ Available"
		}
		fmt.Fprintf(b, "- **DataStore**: %s\n", status)
	}
	b.WriteString("\n")
}

func optionalLine(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- **%s**: %s\n", label, value)
	}
}
