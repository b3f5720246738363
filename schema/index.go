package schema

import (
	"strconv"

	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Child is one applicator edge of a node: the keyword path from the parent
// (one or two segments, e.g. ["properties","a"] or ["items"]) and the target.
type Child struct {
	Path []string
	Node *Node
}

// Children lists the subschemas of n in a fixed keyword order, with map
// keys in insertion order. The order is what makes the pointer index
// deterministic.
func (n *Node) Children() []Child {
	if n == nil || n.Bool != nil {
		return nil
	}
	var out []Child
	appendMap := func(keyword string, m *sequencedmap.Map[string, *Node]) {
		if m == nil {
			return
		}
		for k, v := range m.All() {
			out = append(out, Child{Path: []string{keyword, k}, Node: v})
		}
	}
	appendOne := func(keyword string, c *Node) {
		if c != nil {
			out = append(out, Child{Path: []string{keyword}, Node: c})
		}
	}
	appendList := func(keyword string, list []*Node) {
		for i, c := range list {
			out = append(out, Child{Path: []string{keyword, strconv.Itoa(i)}, Node: c})
		}
	}

	appendMap("$defs", n.Defs)
	appendMap("definitions", n.Definitions)
	appendMap("properties", n.Properties)
	appendMap("patternProperties", n.PatternProperties)
	appendOne("additionalProperties", n.AdditionalProperties)
	appendOne("propertyNames", n.PropertyNames)
	appendOne("unevaluatedProperties", n.UnevaluatedProperties)
	appendMap("dependentSchemas", n.DependentSchemas)
	appendList("prefixItems", n.PrefixItems)
	appendOne("items", n.Items)
	appendOne("contains", n.Contains)
	appendList("allOf", n.AllOf)
	appendList("anyOf", n.AnyOf)
	appendList("oneOf", n.OneOf)
	appendOne("not", n.Not)
	appendOne("if", n.If)
	appendOne("then", n.Then)
	appendOne("else", n.Else)
	return out
}

// Child resolves a single keyword path below n, as used when walking a
// pointer that is not in the index.
func (n *Node) Child(segments []string) (*Node, int) {
	if n == nil || len(segments) == 0 {
		return nil, 0
	}
	lookup := func(m *sequencedmap.Map[string, *Node]) (*Node, int) {
		if m == nil || len(segments) < 2 {
			return nil, 0
		}
		if c, ok := m.Get(segments[1]); ok {
			return c, 2
		}
		return nil, 0
	}
	index := func(list []*Node) (*Node, int) {
		if len(segments) < 2 {
			return nil, 0
		}
		i, err := strconv.Atoi(segments[1])
		if err != nil || i < 0 || i >= len(list) {
			return nil, 0
		}
		return list[i], 2
	}
	one := func(c *Node) (*Node, int) {
		if c == nil {
			return nil, 0
		}
		return c, 1
	}

	switch segments[0] {
	case "$defs":
		return lookup(n.Defs)
	case "definitions":
		return lookup(n.Definitions)
	case "properties":
		return lookup(n.Properties)
	case "patternProperties":
		return lookup(n.PatternProperties)
	case "dependentSchemas":
		return lookup(n.DependentSchemas)
	case "additionalProperties":
		return one(n.AdditionalProperties)
	case "propertyNames":
		return one(n.PropertyNames)
	case "unevaluatedProperties":
		return one(n.UnevaluatedProperties)
	case "items":
		if len(segments) > 1 {
			// Draft-07 tuple addressing.
			if c, used := index(n.PrefixItems); c != nil {
				return c, used
			}
		}
		return one(n.Items)
	case "prefixItems":
		return index(n.PrefixItems)
	case "contains":
		return one(n.Contains)
	case "allOf":
		return index(n.AllOf)
	case "anyOf":
		return index(n.AnyOf)
	case "oneOf":
		return index(n.OneOf)
	case "not":
		return one(n.Not)
	case "if":
		return one(n.If)
	case "then":
		return one(n.Then)
	case "else":
		return one(n.Else)
	}
	return nil, 0
}

// PointerIndex maps nodes to canonical pointers and back. It is built once
// per run and only read afterwards.
type PointerIndex struct {
	root           *Node
	byNode         map[*Node]string
	byPtr          map[string]*Node
	anchors        map[string]string
	dynamicAnchors map[string][]string
	ids            map[string]string
}

// NewPointerIndex walks root depth-first in Children order. A node shared by
// several parents keeps the first pointer it was reached by.
func NewPointerIndex(root *Node) *PointerIndex {
	idx := &PointerIndex{
		root:           root,
		byNode:         make(map[*Node]string, 256),
		byPtr:          make(map[string]*Node, 256),
		anchors:        make(map[string]string),
		dynamicAnchors: make(map[string][]string),
		ids:            make(map[string]string),
	}
	if root != nil {
		idx.walk(root, "")
	}
	return idx
}

func (idx *PointerIndex) walk(n *Node, ptr string) {
	if n == nil {
		return
	}
	if _, seen := idx.byNode[n]; seen {
		if _, ok := idx.byPtr[ptr]; !ok {
			idx.byPtr[ptr] = n
		}
		return
	}
	idx.byNode[n] = ptr
	idx.byPtr[ptr] = n
	if n.Anchor != "" {
		if _, ok := idx.anchors[n.Anchor]; !ok {
			idx.anchors[n.Anchor] = ptr
		}
	}
	if n.DynamicAnchor != "" {
		idx.dynamicAnchors[n.DynamicAnchor] = append(idx.dynamicAnchors[n.DynamicAnchor], ptr)
		if _, ok := idx.anchors[n.DynamicAnchor]; !ok {
			idx.anchors[n.DynamicAnchor] = ptr
		}
	}
	if n.ID != "" {
		if _, ok := idx.ids[n.ID]; !ok {
			idx.ids[n.ID] = ptr
		}
	}
	for _, c := range n.Children() {
		idx.walk(c.Node, Join(ptr, c.Path...))
	}
}

// Root returns the indexed root node.
func (idx *PointerIndex) Root() *Node {
	return idx.root
}

// PointerOf returns the canonical pointer of n.
func (idx *PointerIndex) PointerOf(n *Node) (string, bool) {
	if idx == nil || n == nil {
		return "", false
	}
	p, ok := idx.byNode[n]
	return p, ok
}

// PointerOr returns the canonical pointer of n, or fallback when n was not
// reached by the index walk.
func (idx *PointerIndex) PointerOr(n *Node, fallback string) string {
	if p, ok := idx.PointerOf(n); ok {
		return p
	}
	return fallback
}

// Lookup returns the node at ptr. Pointers outside the index are walked
// segment by segment from the root.
func (idx *PointerIndex) Lookup(ptr string) (*Node, bool) {
	if idx == nil {
		return nil, false
	}
	if n, ok := idx.byPtr[ptr]; ok {
		return n, true
	}
	cur := idx.root
	segs := Split(ptr)
	for len(segs) > 0 && cur != nil {
		next, used := cur.Child(segs)
		if used == 0 {
			return nil, false
		}
		cur, segs = next, segs[used:]
	}
	return cur, cur != nil
}

// Len returns the number of indexed nodes.
func (idx *PointerIndex) Len() int {
	return len(idx.byNode)
}
