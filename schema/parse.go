package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

// Decode reads a JSON or YAML document into a canonical tree. The document
// must already be composed; Decode does not resolve drafts or external refs.
func Decode(data []byte) (*Node, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	return FromValue(v), nil
}

// DecodeValue reads JSON or YAML into plain Go values: map[string]any,
// []any, string, float64, bool and nil.
func DecodeValue(data []byte) (any, error) {
	var v any
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&v); err == nil {
			return Normalize(v), nil
		}
		v = nil
	}
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode schema document: %w", err)
	}
	return Normalize(v), nil
}

// Normalize converts decoder output into the plain JSON value shapes the
// rest of the module expects: integer kinds become float64, json.Number is
// parsed, and map[any]any keys are stringified.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	}
}

// FromValue builds a node from a decoded JSON value. Anything that is not an
// object or a boolean yields the permissive schema, matching how validators
// treat unknown shapes; FromValue never fails.
func FromValue(v any) *Node {
	switch t := v.(type) {
	case bool:
		b := t
		return &Node{Bool: &b}
	case map[string]any:
		return fromMap(t)
	default:
		return &Node{Raw: map[string]any{}}
	}
}

func fromMap(m map[string]any) *Node {
	n := &Node{Raw: m}

	switch t := m["type"].(type) {
	case string:
		n.Type = []string{t}
	case []any, []string:
		n.Type = stringList(t)
	}
	if v, ok := m["const"]; ok {
		n.Const, n.HasConst = Normalize(v), true
	}
	if v, ok := m["enum"].([]any); ok {
		n.Enum, n.HasEnum = Normalize(v).([]any), true
	}
	if v, ok := m["default"]; ok {
		n.Default, n.HasDefault = Normalize(v), true
	}
	n.Format = stringPtr(m["format"])
	n.Pattern = stringPtr(m["pattern"])

	n.Minimum = floatPtr(m["minimum"])
	n.Maximum = floatPtr(m["maximum"])
	n.MultipleOf = floatPtr(m["multipleOf"])
	// Draft-04 boolean exclusivity folds into the numeric form.
	switch ex := m["exclusiveMinimum"].(type) {
	case bool:
		if ex && n.Minimum != nil {
			n.ExclusiveMinimum, n.Minimum = n.Minimum, nil
		}
	default:
		n.ExclusiveMinimum = floatPtr(ex)
	}
	switch ex := m["exclusiveMaximum"].(type) {
	case bool:
		if ex && n.Maximum != nil {
			n.ExclusiveMaximum, n.Maximum = n.Maximum, nil
		}
	default:
		n.ExclusiveMaximum = floatPtr(ex)
	}

	n.MinLength = intPtr(m["minLength"])
	n.MaxLength = intPtr(m["maxLength"])
	n.MinItems = intPtr(m["minItems"])
	n.MaxItems = intPtr(m["maxItems"])
	n.MinProperties = intPtr(m["minProperties"])
	n.MaxProperties = intPtr(m["maxProperties"])
	n.MinContains = intPtr(m["minContains"])
	n.MaxContains = intPtr(m["maxContains"])
	n.UniqueItems, _ = m["uniqueItems"].(bool)

	n.Properties = schemaMap(m["properties"])
	n.PatternProperties = schemaMap(m["patternProperties"])
	n.AdditionalProperties = optionalSchema(m, "additionalProperties")
	n.PropertyNames = optionalSchema(m, "propertyNames")
	n.UnevaluatedProperties = optionalSchema(m, "unevaluatedProperties")
	n.Required = stringList(m["required"])
	n.DependentRequired = dependentRequired(m["dependentRequired"])
	n.DependentSchemas = schemaMap(m["dependentSchemas"])
	// Draft-07 "dependencies" splits by value shape.
	if deps, ok := m["dependencies"].(map[string]any); ok {
		for _, k := range sortedAnyKeys(deps) {
			switch d := deps[k].(type) {
			case []any:
				if n.DependentRequired == nil {
					n.DependentRequired = make(map[string][]string)
				}
				n.DependentRequired[k] = append(n.DependentRequired[k], stringList(d)...)
			case map[string]any, bool:
				if n.DependentSchemas == nil {
					n.DependentSchemas = sequencedmap.New[string, *Node]()
				}
				if _, exists := n.DependentSchemas.Get(k); !exists {
					n.DependentSchemas.Set(k, FromValue(d))
				}
			}
		}
	}

	switch items := m["items"].(type) {
	case []any:
		// Draft-07 tuple form: items is the prefix, additionalItems the rest.
		n.PrefixItems = schemaList(items)
		n.Items = optionalSchema(m, "additionalItems")
	case nil:
	default:
		n.Items = FromValue(items)
	}
	if prefix, ok := m["prefixItems"].([]any); ok {
		n.PrefixItems = schemaList(prefix)
	}
	n.Contains = optionalSchema(m, "contains")

	n.AllOf = schemaList(m["allOf"])
	n.AnyOf = schemaList(m["anyOf"])
	n.OneOf = schemaList(m["oneOf"])
	n.Not = optionalSchema(m, "not")
	n.If = optionalSchema(m, "if")
	n.Then = optionalSchema(m, "then")
	n.Else = optionalSchema(m, "else")

	n.Ref, _ = m["$ref"].(string)
	n.DynamicRef, _ = m["$dynamicRef"].(string)
	n.ID, _ = m["$id"].(string)
	n.Anchor, _ = m["$anchor"].(string)
	n.DynamicAnchor, _ = m["$dynamicAnchor"].(string)
	n.Defs = schemaMap(m["$defs"])
	n.Definitions = schemaMap(m["definitions"])

	if d, ok := m["discriminator"].(map[string]any); ok {
		n.Discriminator, _ = d["propertyName"].(string)
	}
	return n
}

func optionalSchema(m map[string]any, key string) *Node {
	v, ok := m[key]
	if !ok {
		return nil
	}
	return FromValue(v)
}

func schemaMap(v any) *sequencedmap.Map[string, *Node] {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := sequencedmap.New[string, *Node]()
	for _, k := range sortedAnyKeys(obj) {
		out.Set(k, FromValue(obj[k]))
	}
	return out
}

func schemaList(v any) []*Node {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(list))
	for _, e := range list {
		out = append(out, FromValue(e))
	}
	return out
}

func dependentRequired(v any) map[string][]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(obj))
	for k, deps := range obj {
		out[k] = stringList(deps)
	}
	return out
}

func stringList(v any) []string {
	if strs, ok := v.([]string); ok {
		return append([]string(nil), strs...)
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func floatPtr(v any) *float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func intPtr(v any) *int {
	f, ok := toFloat(v)
	if !ok || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	i := int(math.Floor(f))
	return &i
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ToFloat exposes the numeric coercion used when decoding schemas.
func ToFloat(v any) (float64, bool) {
	return toFloat(v)
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m *sequencedmap.Map[string, *Node]) []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.Len())
	for k := range m.All() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedKeys returns the keys of an ordered schema map in sorted order.
func SortedKeys(m *sequencedmap.Map[string, *Node]) []string {
	return sortedKeys(m)
}
