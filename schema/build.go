package schema

import (
	"fmt"
	"sort"
)

// ============================================================================
// CONSTRUCTORS
// ============================================================================
// Small builders for canonical nodes. They go through FromValue so a built
// node is indistinguishable from a decoded one.

// Top returns the permissive schema {}.
func Top() *Node {
	return FromValue(map[string]any{})
}

// False returns the boolean schema false.
func False() *Node {
	return FromValue(false)
}

// StringType creates {type: string}.
func StringType() *Node {
	return FromValue(map[string]any{"type": "string"})
}

// IntegerType creates {type: integer}.
func IntegerType() *Node {
	return FromValue(map[string]any{"type": "integer"})
}

// NumberType creates {type: number}.
func NumberType() *Node {
	return FromValue(map[string]any{"type": "number"})
}

// BoolType creates {type: boolean}.
func BoolType() *Node {
	return FromValue(map[string]any{"type": "boolean"})
}

// Const creates {const: v}.
func Const(v any) *Node {
	return FromValue(map[string]any{"const": v})
}

// ArrayType creates {type: array, items: items}. A nil items leaves the
// keyword out.
func ArrayType(items *Node) *Node {
	m := map[string]any{"type": "array"}
	if items != nil {
		m["items"] = Raw(items)
	}
	return FromValue(m)
}

// ObjectType creates an object schema with the given properties and
// required names (sorted for determinism).
func ObjectType(props map[string]*Node, required ...string) *Node {
	m := map[string]any{"type": "object"}
	if len(props) > 0 {
		pm := make(map[string]any, len(props))
		for k, v := range props {
			pm[k] = Raw(v)
		}
		m["properties"] = pm
	}
	if len(required) > 0 {
		req := append([]string(nil), required...)
		sort.Strings(req)
		list := make([]any, len(req))
		for i, r := range req {
			list[i] = r
		}
		m["required"] = list
	}
	return FromValue(m)
}

// Raw returns the JSON value a node was built from.
func Raw(n *Node) any {
	if n == nil {
		return map[string]any{}
	}
	if n.Bool != nil {
		return *n.Bool
	}
	if n.Raw == nil {
		return map[string]any{}
	}
	return n.Raw
}

// MustDecode is Decode for literals known to be valid, mostly in tests.
func MustDecode(doc string) *Node {
	n, err := Decode([]byte(doc))
	if err != nil {
		panic(fmt.Sprintf("schema: MustDecode: %v", err))
	}
	return n
}
