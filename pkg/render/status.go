package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status renders a status_show result. Reaching this point means the portal
// answered, so the status line is always online.
func Status(raw json.RawMessage, serverURL string) string {
	st := decodeObject(raw)
	orDefault := func(key, def string) string {
		if v := st.str(key); v != "" {
			return v
		}
		return def
	}

	var b strings.Builder
	b.WriteString("# CKAN Server Status\n\n")
	fmt.Fprintf(&b, "**Server**: %s\n", serverURL)
	b.WriteString("**Status**: ✅ Online\n")
	fmt.Fprintf(&b, "**CKAN Version**: %s\n", orDefault("ckan_version", "Unknown"))
	fmt.Fprintf(&b, "**Site Title**: %s\n", orDefault("site_title", "N/A"))
	fmt.Fprintf(&b, "**Site URL**: %s\n", orDefault("site_url", "N/A"))
	return Truncate(b.String())
}
