package api

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestListTools(t *testing.T) {
	c := newTestClient(t, newTestServer(t))
	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	want := map[string]bool{
		ToolPackageSearch: true, ToolPackageShow: true, ToolOrganizationList: true,
		ToolOrganizationShow: true, ToolDatastoreSearch: true, ToolStatusShow: true,
	}
	if len(res.Tools) != len(want) {
		t.Fatalf("tools = %d, want %d", len(res.Tools), len(want))
	}
	for _, tool := range res.Tools {
		if !want[tool.Name] {
			t.Errorf("unexpected tool %q", tool.Name)
		}
		if tool.Annotations.ReadOnlyHint == nil || !*tool.Annotations.ReadOnlyHint {
			t.Errorf("%s is not annotated read-only", tool.Name)
		}
	}
}

func TestPackageSearch_Markdown(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("package_search", `{"count": 25, "results": [{"id": "1", "name": "air", "title": "Air", "num_resources": 2, "metadata_modified": "2024-01-15T10:30:00"}]}`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolPackageSearch, map[string]any{
		"server_url":  fake.URL,
		"q":           "air",
		"facet_field": []any{"organization"},
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}

	q := fake.lastQuery(t)
	for key, want := range map[string]string{
		"q":               "air",
		"rows":            "10",
		"start":           "0",
		"include_private": "false",
		"facet.field":     `["organization"]`,
		"facet.limit":     "50",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
	if q.Has("fq") || q.Has("sort") {
		t.Errorf("absent optional params were sent: %v", q)
	}

	text := resultText(res)
	for _, want := range []string{
		"**Total Results**: 25",
		"### Air",
		"- **Link**: " + fake.URL + "/dataset/air",
		"Use `start: 10` to see next page.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}
}

func TestPackageSearch_JSON(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("package_search", `{"count": 1, "results": [{"name": "air"}]}`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolPackageSearch, map[string]any{
		"server_url":      fake.URL,
		"response_format": "json",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "\n  \"count\": 1") {
		t.Errorf("expected indented JSON, got:\n%s", resultText(res))
	}
	structured, ok := res.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("structured content = %T, want object", res.StructuredContent)
	}
	if structured["count"] != float64(1) {
		t.Errorf("structured count = %v", structured["count"])
	}
}

func TestValidation_NoNetworkCall(t *testing.T) {
	fake := newFakeCKAN(t)
	c := newTestClient(t, newTestServer(t))

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{ToolPackageSearch, map[string]any{"server_url": fake.URL, "rows": 2000}, "invalid arguments: rows: must be <= 1000"},
		{ToolPackageSearch, map[string]any{"server_url": fake.URL, "bogus": true}, "invalid arguments: bogus: unknown field"},
		{ToolPackageShow, map[string]any{"server_url": "not a url", "id": "x"}, "invalid arguments: server_url: must be a valid URL"},
		{ToolPackageShow, map[string]any{"server_url": fake.URL, "id": ""}, "invalid arguments: id: must be at least 1 characters"},
		{ToolDatastoreSearch, map[string]any{"server_url": fake.URL, "resource_id": "r", "limit": 32001}, "invalid arguments: limit: must be <= 32000"},
		{ToolOrganizationList, map[string]any{"server_url": fake.URL, "limit": 0}, "invalid arguments: limit: must be >= 1"},
		{ToolStatusShow, map[string]any{}, "invalid arguments: server_url: required"},
		{ToolStatusShow, map[string]any{"server_url": nil}, "invalid arguments: server_url: expected string, got null"},
		{ToolPackageSearch, map[string]any{"server_url": fake.URL, "fq": nil}, "invalid arguments: fq: expected string, got null"},
	}
	for _, tt := range tests {
		res := callTool(t, c, tt.tool, tt.args)
		if !res.IsError || resultText(res) != tt.want {
			t.Errorf("%s %v: isError=%v text=%q, want %q", tt.tool, tt.args, res.IsError, resultText(res), tt.want)
		}
	}
	if n := fake.callCount(); n != 0 {
		t.Errorf("CKAN received %d requests for invalid input", n)
	}
}

func TestPackageSearch_LargeStart(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("package_search", `{"count": 0, "results": []}`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolPackageSearch, map[string]any{
		"server_url": fake.URL,
		"start":      3e9,
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	if got := fake.lastQuery(t).Get("start"); got != "3000000000" {
		t.Errorf("start = %q, want 3000000000", got)
	}
}

func TestPackageShow_NotFound(t *testing.T) {
	fake := newFakeCKAN(t)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolPackageShow, map[string]any{"server_url": fake.URL, "id": "missing"})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	if got := resultText(res); got != "Error fetching package: CKAN API error (404): Not found" {
		t.Errorf("text = %q", got)
	}
}

func TestPackageShow_Markdown(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("package_show", `{"id": "1", "name": "air", "title": "Air", "resources": [{"id": "r1", "name": "CSV", "format": "CSV", "url": "https://x/a.csv", "size": 1500}]}`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolPackageShow, map[string]any{"server_url": fake.URL, "id": "air", "include_tracking": true})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	q := fake.lastQuery(t)
	if q.Get("id") != "air" || q.Get("include_tracking") != "true" {
		t.Errorf("query = %v", q)
	}
	text := resultText(res)
	if !strings.Contains(text, "# Dataset: Air") || !strings.Contains(text, "- **Size**: 1.46 KB") {
		t.Errorf("unexpected output:\n%s", text)
	}
	if strings.Contains(text, "## Tags") {
		t.Error("dataset without tags rendered a Tags section")
	}
}

func TestOrganizationList(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("organization_list", `["env", "health"]`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolOrganizationList, map[string]any{"server_url": fake.URL})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	q := fake.lastQuery(t)
	if q.Get("all_fields") != "false" || q.Get("sort") != "name asc" || q.Get("limit") != "100" || q.Get("offset") != "0" {
		t.Errorf("query = %v", q)
	}
	if !strings.Contains(resultText(res), "- env\n- health") {
		t.Errorf("output:\n%s", resultText(res))
	}

	res = callTool(t, c, ToolOrganizationList, map[string]any{"server_url": fake.URL, "response_format": "json"})
	if res.StructuredContent != nil {
		t.Errorf("array results must not be attached as structured content, got %T", res.StructuredContent)
	}
}

func TestOrganizationShow(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("organization_show", `{"id": "1", "name": "env", "title": "Environment", "package_count": 3}`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolOrganizationShow, map[string]any{"server_url": fake.URL, "id": "env"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	q := fake.lastQuery(t)
	if q.Get("include_datasets") != "true" || q.Get("include_users") != "false" {
		t.Errorf("query = %v", q)
	}
	if !strings.Contains(resultText(res), "# Organization: Environment") {
		t.Errorf("output:\n%s", resultText(res))
	}
}

func TestDatastoreSearch(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("datastore_search", `{"total": 500, "fields": [{"id": "anno", "type": "int"}], "records": [{"anno": 2023}]}`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolDatastoreSearch, map[string]any{
		"server_url":  fake.URL,
		"resource_id": "abc",
		"filters":     map[string]any{"regione": "Sicilia"},
		"fields":      []any{"anno", "regione"},
		"sort":        "anno desc",
		"limit":       50,
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	q := fake.lastQuery(t)
	for key, want := range map[string]string{
		"resource_id": "abc",
		"limit":       "50",
		"offset":      "0",
		"distinct":    "false",
		"filters":     `{"regione":"Sicilia"}`,
		"fields":      "anno,regione",
		"sort":        "anno desc",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
	if q.Has("q") {
		t.Error("q sent although absent")
	}
	text := resultText(res)
	if !strings.Contains(text, "| anno |") || !strings.Contains(text, "Use `offset: 50` for next page.") {
		t.Errorf("output:\n%s", text)
	}
}

func TestDatastoreSearch_Error(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.bodies["datastore_search"] = `{"success": false, "error": {"message": "Resource not in DataStore"}}`
	fake.status["datastore_search"] = 409
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolDatastoreSearch, map[string]any{"server_url": fake.URL, "resource_id": "abc"})
	if !res.IsError || resultText(res) != "Error querying DataStore: CKAN API error (409): Resource not in DataStore" {
		t.Errorf("isError=%v text=%q", res.IsError, resultText(res))
	}
}

func TestStatusShow(t *testing.T) {
	fake := newFakeCKAN(t)
	fake.on("status_show", `{"ckan_version": "2.10.4", "site_title": "Demo", "site_url": "https://demo.ckan.org"}`)
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolStatusShow, map[string]any{"server_url": fake.URL})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "**CKAN Version**: 2.10.4") {
		t.Errorf("output:\n%s", resultText(res))
	}
	structured, ok := res.StructuredContent.(map[string]any)
	if !ok || structured["site_title"] != "Demo" {
		t.Errorf("structured content = %v", res.StructuredContent)
	}
}

func TestStatusShow_Offline(t *testing.T) {
	fake := newFakeCKAN(t)
	url := fake.URL
	fake.Close()
	c := newTestClient(t, newTestServer(t))

	res := callTool(t, c, ToolStatusShow, map[string]any{"server_url": url})
	if !res.IsError {
		t.Fatal("expected tool error for an offline server")
	}
	if !strings.HasPrefix(resultText(res), "Server appears to be offline or not a valid CKAN instance:\n") {
		t.Errorf("text = %q", resultText(res))
	}
}
