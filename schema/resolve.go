package schema

import (
	"strings"
)

// Resolve finds the target of a local $ref. Supported forms are "#",
// "#/json/pointer", "#anchor", an $id seen in the tree, and "$id#fragment".
// Anything else (external documents) is reported as unresolved.
func (idx *PointerIndex) Resolve(ref string) (*Node, string, bool) {
	if idx == nil || ref == "" {
		return nil, "", false
	}
	if ptr, ok := FromFragment(ref); ok {
		n, found := idx.Lookup(ptr)
		return n, ptr, found
	}
	if strings.HasPrefix(ref, "#") {
		ptr, ok := idx.anchors[ref[1:]]
		if !ok {
			return nil, "", false
		}
		n, found := idx.Lookup(ptr)
		return n, ptr, found
	}

	base, frag, _ := strings.Cut(ref, "#")
	basePtr, ok := idx.ids[base]
	if !ok {
		return nil, "", false
	}
	switch {
	case frag == "":
		n, found := idx.Lookup(basePtr)
		return n, basePtr, found
	case strings.HasPrefix(frag, "/"):
		ptr := basePtr + frag
		n, found := idx.Lookup(ptr)
		return n, ptr, found
	default:
		ptr, ok := idx.anchors[frag]
		if !ok {
			return nil, "", false
		}
		n, found := idx.Lookup(ptr)
		return n, ptr, found
	}
}

// ResolveDynamic resolves a $dynamicRef seen at pointer from. For "#name"
// references it looks at the nodes declaring $dynamicAnchor "name" that
// enclose from, considering at most maxHops of them (nearest first) and
// picking the outermost, which is the dynamic-scope winner. When no
// enclosing anchor exists it falls back to static resolution.
func (idx *PointerIndex) ResolveDynamic(ref, from string, maxHops int) (*Node, string, bool) {
	if idx == nil {
		return nil, "", false
	}
	name, isAnchor := strings.CutPrefix(ref, "#")
	if isAnchor && name != "" && !strings.HasPrefix(name, "/") {
		candidates := idx.dynamicAnchors[name]
		var enclosing []string
		for cur, ok := from, true; ok; cur, ok = Parent(cur) {
			for _, c := range candidates {
				if c == cur {
					enclosing = append(enclosing, c)
				}
			}
			if cur == "" {
				break
			}
		}
		if maxHops > 0 && len(enclosing) > maxHops {
			enclosing = enclosing[:maxHops]
		}
		if len(enclosing) > 0 {
			ptr := enclosing[len(enclosing)-1]
			n, found := idx.Lookup(ptr)
			return n, ptr, found
		}
	}
	return idx.Resolve(ref)
}
