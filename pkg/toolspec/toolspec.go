// CLAUDE:SUMMARY Declared input records for MCP tools: one source for the advertised JSON schema, compiled once per tool into the strict argument validator.
package toolspec

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Kind is the value type of a tool parameter.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindBoolean
	KindStringList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindStringList:
		return "array of strings"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Param declares one tool input.
type Param struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string
	// Default is applied when the argument is absent. Its Go type matches
	// Kind: string, int, bool.
	Default   any
	Min       *int
	Max       *int
	MinLength int
	// URL requires an absolute URL with scheme and host.
	URL  bool
	Enum []string
}

// Spec declares a read-only tool and its inputs.
type Spec struct {
	Name        string
	Title       string
	Description string
	Params      []Param
	// OpenWorld marks tools that reach external systems.
	OpenWorld bool
}

// Bound returns a pointer to v, for Param.Min and Param.Max.
func Bound(v int) *int { return &v }

// Tool builds the MCP tool definition advertised to clients.
func (s Spec) Tool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(s.Description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(s.OpenWorld),
	}
	if s.Title != "" {
		opts = append(opts, mcp.WithTitleAnnotation(s.Title))
	}
	for _, p := range s.Params {
		opts = append(opts, p.toolOption())
	}
	return mcp.NewTool(s.Name, opts...)
}

// Param returns the declaration for name.
func (s Spec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (p Param) toolOption() mcp.ToolOption {
	var props []mcp.PropertyOption
	if p.Description != "" {
		props = append(props, mcp.Description(p.Description))
	}
	if p.Required {
		props = append(props, mcp.Required())
	}

	switch p.Kind {
	case KindString:
		if p.MinLength > 0 {
			props = append(props, mcp.MinLength(p.MinLength))
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}
		if p.URL {
			props = append(props, schemaValue("format", "uri"), schemaValue("pattern", absoluteURLPattern))
		}
		if d, ok := p.Default.(string); ok {
			props = append(props, mcp.DefaultString(d))
		}
		return mcp.WithString(p.Name, props...)

	case KindInteger:
		props = append(props, schemaValue("type", "integer"))
		if p.Min != nil {
			props = append(props, mcp.Min(float64(*p.Min)))
		}
		if p.Max != nil {
			props = append(props, mcp.Max(float64(*p.Max)))
		}
		if d, ok := p.Default.(int); ok {
			props = append(props, mcp.DefaultNumber(float64(d)))
		}
		return mcp.WithNumber(p.Name, props...)

	case KindBoolean:
		if d, ok := p.Default.(bool); ok {
			props = append(props, mcp.DefaultBool(d))
		}
		return mcp.WithBoolean(p.Name, props...)

	case KindStringList:
		props = append(props, mcp.Items(map[string]any{"type": "string"}))
		return mcp.WithArray(p.Name, props...)

	default:
		return mcp.WithObject(p.Name, props...)
	}
}

// absoluteURLPattern requires a scheme followed by an authority.
const absoluteURLPattern = `^[A-Za-z][A-Za-z0-9+.-]*://[^/?#\s]+`

// schemaValue sets a raw JSON schema keyword on a property.
func schemaValue(key string, value any) mcp.PropertyOption {
	return func(schema map[string]any) {
		schema[key] = value
	}
}
