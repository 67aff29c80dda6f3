package portal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(reg.Portals()) == 0 {
		t.Fatal("built-in table is empty")
	}
	if _, ok := reg.Lookup("https://demo.ckan.org"); !ok {
		t.Error("demo.ckan.org missing from built-in table")
	}
}

func TestLookup_Aliases(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.dati.gov.it/opendata", "dati.gov.it", true},
		{"https://www.dati.gov.it/opendata/", "dati.gov.it", true},
		{"http://dati.gov.it/opendata", "dati.gov.it", true},
		{"HTTPS://WWW.Dati.Gov.IT/opendata", "dati.gov.it", true},
		{"https://www.dati.gov.it/OpenData", "", false},
		{"https://unknown.example.org", "", false},
	}
	for _, tt := range tests {
		p, ok := reg.Lookup(tt.url)
		if ok != tt.ok || p.Name != tt.want {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.url, p.Name, ok, tt.want, tt.ok)
		}
	}
}

func TestViewURLs(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"portal template by alias",
			reg.DatasetURL("http://dati.gov.it/opendata/", "abc-123", "air-quality"),
			"https://www.dati.gov.it/view-dataset/dataset?id=abc-123",
		},
		{
			"default dataset template",
			reg.DatasetURL("https://unknown.example.org/", "abc-123", "air-quality"),
			"https://unknown.example.org/dataset/air-quality",
		},
		{
			"portal without organization template falls back",
			reg.OrganizationURL("https://data.gov.uk", "1", "defra"),
			"https://data.gov.uk/organization/defra",
		},
		{
			"portal organization template",
			reg.OrganizationURL("https://open.canada.ca/data", "1", "statcan"),
			"https://open.canada.ca/data/en/organization/statcan",
		},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestParse_CustomDefaults(t *testing.T) {
	reg, err := Parse([]byte(`
defaults:
  dataset_view_url: "{server_url}/ds/{id}"
portals:
  - name: local
    api_url: http://localhost:5000
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := reg.DatasetURL("http://localhost:5000", "x1", "x"); got != "http://localhost:5000/ds/x1" {
		t.Errorf("DatasetURL = %q", got)
	}
	if got := reg.OrganizationURL("http://localhost:5000", "o1", "org"); got != "http://localhost:5000/organization/org" {
		t.Errorf("OrganizationURL = %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte("portals: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := Parse([]byte("portals:\n  - name: broken\n")); err == nil {
		t.Error("expected error for portal without api_url")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.yaml")
	if err := os.WriteFile(path, []byte("portals:\n  - name: one\n    api_url: https://one.example.org\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := len(reg.Portals()); n != 1 {
		t.Errorf("portals = %d, want 1", n)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	reg, err = Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if len(reg.Portals()) < 2 {
		t.Error("empty path should load the built-in table")
	}
}

func TestServerForHost(t *testing.T) {
	reg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		host, want string
	}{
		{"www.dati.gov.it", "https://www.dati.gov.it/opendata"},
		{"WWW.DATI.GOV.IT", "https://www.dati.gov.it/opendata"},
		{"open.canada.ca", "https://open.canada.ca/data"},
		{"demo.ckan.org", "https://demo.ckan.org"},
		{"ckan.example.org", "https://ckan.example.org"},
	}
	for _, tt := range tests {
		if got := reg.ServerForHost(tt.host); got != tt.want {
			t.Errorf("ServerForHost(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}
