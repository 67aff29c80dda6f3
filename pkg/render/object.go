package render

import (
	"encoding/json"
	"strconv"
	"strings"
)

// object is a lenient view over a decoded CKAN JSON object. Portals differ in
// which fields they fill and with which types, so every accessor degrades to
// a zero value instead of failing.
type object map[string]any

func decodeObject(raw json.RawMessage) object {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return object{}
	}
	return object(m)
}

func asObject(v any) object {
	m, _ := v.(map[string]any)
	return object(m)
}

func (o object) has(key string) bool {
	v, ok := o[key]
	return ok && v != nil
}

// str returns the value as display text; numbers and booleans are formatted,
// objects and arrays are JSON-encoded.
func (o object) str(key string) string {
	return text(o[key])
}

// first returns the first non-empty string among keys.
func (o object) first(keys ...string) string {
	for _, k := range keys {
		if s := o.str(k); s != "" {
			return s
		}
	}
	return ""
}

func (o object) num(key string) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (o object) int(key string) int {
	return int(o.num(key))
}

func (o object) boolean(key string) bool {
	b, _ := o[key].(bool)
	return b
}

func (o object) list(key string) []any {
	l, _ := o[key].([]any)
	return l
}

func (o object) obj(key string) object {
	return asObject(o[key])
}

// text formats any decoded JSON value for display.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
