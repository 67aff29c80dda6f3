package toolspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"slices"
	"sort"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ValidationError reports the first argument that violates its declaration.
type ValidationError struct {
	Field   string
	Problem string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Problem
	}
	return e.Field + ": " + e.Problem
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Problem: fmt.Sprintf(format, args...)}
}

// Validator checks tool arguments against the JSON schema advertised for the
// tool. The schema is compiled once; Validate is safe for concurrent use.
type Validator struct {
	spec   Spec
	schema *jsonschema.Schema
}

// Compile derives the strict input schema from s and compiles it. Properties
// not declared in s are rejected.
func Compile(s Spec) (*Validator, error) {
	raw, err := json.Marshal(s.Tool().InputSchema)
	if err != nil {
		return nil, fmt.Errorf("toolspec: marshal %s schema: %w", s.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("toolspec: decode %s schema: %w", s.Name, err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("toolspec: %s schema is not an object", s.Name)
	}
	root["additionalProperties"] = false

	loc := "https://ckan-mcp.local/tools/" + s.Name + ".json"
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(loc, root); err != nil {
		return nil, fmt.Errorf("toolspec: add %s schema: %w", s.Name, err)
	}
	sch, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("toolspec: compile %s schema: %w", s.Name, err)
	}
	return &Validator{spec: s, schema: sch}, nil
}

// MustCompile is Compile for specs declared at init; it panics on error.
func MustCompile(s Spec) *Validator {
	v, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Spec returns the declaration the validator was compiled from.
func (v *Validator) Spec() Spec { return v.spec }

// Validate checks args and returns them normalized, with defaults applied.
// Optional params without a default stay absent. An explicit null is a type
// error, not an absent argument.
func (v *Validator) Validate(args map[string]any) (Args, error) {
	inst, err := normalize(args)
	if err != nil {
		return nil, invalid("", "arguments: %s", err)
	}
	if err := v.schema.Validate(inst); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, invalid("", "%s", err)
		}
		return nil, v.describe(inst, verr)
	}

	out := make(Args, len(v.spec.Params))
	for _, p := range v.spec.Params {
		raw, present := inst[p.Name]
		if !present {
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		val, err := p.convert(raw)
		if err != nil {
			return nil, err
		}
		out[p.Name] = val
	}
	return out, nil
}

// normalize round-trips args through JSON so Go-typed values from in-process
// callers look like decoded wire values.
func normalize(args map[string]any) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// violation is one leaf schema failure, ranked for reporting.
type violation struct {
	rank int
	err  *ValidationError
}

// describe reduces the schema error tree to the first violation: unknown
// fields before anything else, then params in declaration order.
func (v *Validator) describe(inst map[string]any, verr *jsonschema.ValidationError) *ValidationError {
	var leaves []*jsonschema.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)

	var found []violation
	for _, leaf := range leaves {
		found = append(found, v.violation(inst, leaf))
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].rank < found[j].rank })
	if len(found) == 0 {
		return invalid("", "%s", verr)
	}
	return found[0].err
}

func (v *Validator) violation(inst map[string]any, e *jsonschema.ValidationError) violation {
	switch e.ErrorKind.(type) {
	case *kind.AdditionalProperties:
		var unknown []string
		for name := range inst {
			if _, ok := v.spec.Param(name); !ok {
				unknown = append(unknown, name)
			}
		}
		sort.Strings(unknown)
		if len(unknown) > 0 {
			return violation{rank: -1, err: invalid(unknown[0], "unknown field")}
		}
	case *kind.Required:
		for i, p := range v.spec.Params {
			if _, ok := inst[p.Name]; p.Required && !ok {
				return violation{rank: i, err: invalid(p.Name, "required")}
			}
		}
	}

	if len(e.InstanceLocation) == 0 {
		return violation{rank: len(v.spec.Params), err: invalid("", "%s", localized(e))}
	}
	name := e.InstanceLocation[0]
	field := name
	value := inst[name]
	item := len(e.InstanceLocation) > 1
	if item {
		field = fmt.Sprintf("%s[%s]", name, e.InstanceLocation[1])
		if l, ok := value.([]any); ok {
			if i, err := strconv.Atoi(e.InstanceLocation[1]); err == nil && i < len(l) {
				value = l[i]
			}
		}
	}
	rank := slices.IndexFunc(v.spec.Params, func(p Param) bool { return p.Name == name })
	p, _ := v.spec.Param(name)
	return violation{rank: rank, err: p.problem(field, item, value, e)}
}

// problem phrases a schema failure on one param in the server's own terms.
func (p Param) problem(field string, item bool, value any, e *jsonschema.ValidationError) *ValidationError {
	switch e.ErrorKind.(type) {
	case *kind.Type:
		want := p.Kind.schemaType()
		if item {
			want = "string"
		}
		return invalid(field, "expected %s, got %s", want, typeName(value))
	case *kind.Minimum:
		if p.Min != nil {
			return invalid(field, "must be >= %d", *p.Min)
		}
	case *kind.Maximum:
		if p.Max != nil {
			return invalid(field, "must be <= %d", *p.Max)
		}
	case *kind.MinLength:
		return invalid(field, "must be at least %d characters", p.MinLength)
	case *kind.Enum:
		return invalid(field, "must be one of %v", p.Enum)
	case *kind.Format, *kind.Pattern:
		if p.URL {
			return invalid(field, "must be a valid URL")
		}
	}
	return invalid(field, "%s", localized(e))
}

func localized(e *jsonschema.ValidationError) string {
	return e.ErrorKind.LocalizedString(message.NewPrinter(language.English))
}

// convert maps a schema-valid JSON value to the Go type of the param's Kind.
func (p Param) convert(raw any) (any, error) {
	switch p.Kind {
	case KindInteger:
		f, ok := raw.(float64)
		if !ok {
			return nil, invalid(p.Name, "expected integer, got %s", typeName(raw))
		}
		if f >= math.MaxInt || f < math.MinInt {
			return nil, invalid(p.Name, "integer out of range")
		}
		return int(f), nil
	case KindStringList:
		l, _ := raw.([]any)
		out := make([]string, len(l))
		for i, item := range l {
			out[i], _ = item.(string)
		}
		return out, nil
	}
	return raw, nil
}

func (k Kind) schemaType() string {
	switch k {
	case KindStringList:
		return "array"
	default:
		return k.String()
	}
}

// IsAbsoluteURL reports whether s parses as a URL with scheme and host.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func typeName(v any) string {
	switch n := v.(type) {
	case string:
		return "string"
	case float64:
		if n == math.Trunc(n) {
			return "integer"
		}
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
