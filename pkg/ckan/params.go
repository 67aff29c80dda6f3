// CLAUDE:SUMMARY Ordered CKAN query parameters with per-parameter encodings (plain, JSON-stringified, comma-joined).
package ckan

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Params is the ordered set of query-string parameters sent to one CKAN action.
// The encoding of compound values is chosen by the setter, not by the value:
// CKAN expects facet.field as a JSON array but fields as a comma-joined list.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Set stores a plain string value.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// SetInt stores a decimal integer.
func (p *Params) SetInt(key string, v int) {
	p.Set(key, strconv.Itoa(v))
}

// SetBool stores true or false.
func (p *Params) SetBool(key string, v bool) {
	p.Set(key, strconv.FormatBool(v))
}

// SetJSON stores v JSON-stringified.
func (p *Params) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	p.Set(key, string(data))
	return nil
}

// SetList stores the items joined with commas.
func (p *Params) SetList(key string, items []string) {
	p.Set(key, strings.Join(items, ","))
}

// Get returns the encoded value for key, or "" when absent.
func (p *Params) Get(key string) string {
	if p == nil {
		return ""
	}
	return p.values[key]
}

// Has reports whether key was set.
func (p *Params) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[key]
	return ok
}

// Keys returns the parameter names in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Values converts the set to url.Values.
func (p *Params) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	for _, k := range p.keys {
		v.Set(k, p.values[k])
	}
	return v
}

// Encode returns the URL-encoded query string, keys in insertion order.
func (p *Params) Encode() string {
	if p == nil || len(p.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}
