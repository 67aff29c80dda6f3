// CLAUDE:SUMMARY Static table of known CKAN portals: alias matching on server URLs and human-facing dataset/organization links.
package portal

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed portals.yaml
var builtin []byte

// Default templates when neither the file nor the portal sets one.
const (
	DefaultDatasetViewURL      = "{server_url}/dataset/{name}"
	DefaultOrganizationViewURL = "{server_url}/organization/{name}"
)

// Portal is one known CKAN instance.
type Portal struct {
	Name                string   `yaml:"name" json:"name"`
	APIURL              string   `yaml:"api_url" json:"api_url"`
	Aliases             []string `yaml:"api_url_aliases" json:"api_url_aliases,omitempty"`
	DatasetViewURL      string   `yaml:"dataset_view_url" json:"dataset_view_url,omitempty"`
	OrganizationViewURL string   `yaml:"organization_view_url" json:"organization_view_url,omitempty"`
}

// Templates are the fallback view URL templates.
type Templates struct {
	DatasetViewURL      string `yaml:"dataset_view_url"`
	OrganizationViewURL string `yaml:"organization_view_url"`
}

type file struct {
	Defaults Templates `yaml:"defaults"`
	Portals  []Portal  `yaml:"portals"`
}

// Registry resolves server URLs to known portals. It is built once and never
// modified, so it is safe for concurrent use.
type Registry struct {
	defaults Templates
	portals  []Portal
	index    map[string]int
}

// Parse builds a Registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse portals: %w", err)
	}
	if f.Defaults.DatasetViewURL == "" {
		f.Defaults.DatasetViewURL = DefaultDatasetViewURL
	}
	if f.Defaults.OrganizationViewURL == "" {
		f.Defaults.OrganizationViewURL = DefaultOrganizationViewURL
	}

	r := &Registry{
		defaults: f.Defaults,
		portals:  f.Portals,
		index:    make(map[string]int),
	}
	for i, p := range f.Portals {
		if p.APIURL == "" {
			return nil, fmt.Errorf("parse portals: portal %d (%s): missing api_url", i, p.Name)
		}
		for _, u := range append([]string{p.APIURL}, p.Aliases...) {
			key := matchKey(u)
			if _, dup := r.index[key]; !dup {
				r.index[key] = i
			}
		}
	}
	return r, nil
}

// Load reads a portals file. An empty path yields the built-in table.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portals %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the registry for the built-in portal table.
func Default() (*Registry, error) {
	return Parse(builtin)
}

// Portals returns the configured portals in file order.
func (r *Registry) Portals() []Portal {
	out := make([]Portal, len(r.portals))
	copy(out, r.portals)
	return out
}

// Lookup finds the portal whose api_url or alias matches serverURL.
func (r *Registry) Lookup(serverURL string) (Portal, bool) {
	i, ok := r.index[matchKey(serverURL)]
	if !ok {
		return Portal{}, false
	}
	return r.portals[i], true
}

// DatasetURL returns the web page of a dataset on serverURL.
func (r *Registry) DatasetURL(serverURL, id, name string) string {
	tpl := r.defaults.DatasetViewURL
	if p, ok := r.Lookup(serverURL); ok && p.DatasetViewURL != "" {
		tpl = p.DatasetViewURL
	}
	return expand(tpl, serverURL, id, name)
}

// OrganizationURL returns the web page of an organization on serverURL.
func (r *Registry) OrganizationURL(serverURL, id, name string) string {
	tpl := r.defaults.OrganizationViewURL
	if p, ok := r.Lookup(serverURL); ok && p.OrganizationViewURL != "" {
		tpl = p.OrganizationViewURL
	}
	return expand(tpl, serverURL, id, name)
}

// ServerForHost returns the API base of the first portal served from host,
// or https://host when no portal matches.
func (r *Registry) ServerForHost(host string) string {
	want := matchKey("https://" + host)
	for _, p := range r.portals {
		if hostKey(p.APIURL) == want {
			return trimSlash(p.APIURL)
		}
	}
	return "https://" + host
}

// hostKey reduces a URL to its folded https://host form.
func hostKey(u string) string {
	key := matchKey(u)
	i := strings.Index(key, "://")
	if i < 0 {
		return key
	}
	rest := key[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return "https://" + rest
}

func expand(tpl, serverURL, id, name string) string {
	return strings.NewReplacer(
		"{server_url}", trimSlash(serverURL),
		"{id}", id,
		"{name}", name,
	).Replace(tpl)
}

func trimSlash(u string) string {
	return strings.TrimSuffix(u, "/")
}

// matchKey drops one trailing slash and case-folds scheme and host. A Caser
// holds state, so each call builds its own.
func matchKey(u string) string {
	u = trimSlash(strings.TrimSpace(u))
	i := strings.Index(u, "://")
	if i < 0 {
		return u
	}
	rest := u[i+3:]
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		j = len(rest)
	}
	return cases.Fold().String(u[:i+3+j]) + rest[j:]
}
