package generate

import (
	"math"
	"unicode/utf8"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/schema"
)

// uniqueAttempts bounds the unique filler per missing element.
const uniqueAttempts = 64

type arrayNeed struct {
	compose.ContainsNeed
	ptr string
}

// containsNeeds returns the contains obligations of the array at ptr: the
// composed bag when present, otherwise one derived from contains and
// minContains.
func (e *engine) containsNeeds(n *schema.Node, ptr string) []arrayNeed {
	if bag := e.composed.ContainsFor(ptr); len(bag) > 0 {
		out := make([]arrayNeed, 0, len(bag))
		for _, need := range bag {
			out = append(out, arrayNeed{ContainsNeed: need, ptr: e.pointer(need.Schema, schema.Join(ptr, "contains"))})
		}
		return out
	}
	if n.Contains == nil || n.Contains.IsFalse() {
		return nil
	}
	min := 1
	if n.MinContains != nil {
		min = *n.MinContains
	}
	if min == 0 {
		return nil
	}
	return []arrayNeed{{
		ContainsNeed: compose.ContainsNeed{Schema: n.Contains, Min: min, Max: n.MaxContains},
		ptr:          e.pointer(n.Contains, schema.Join(ptr, "contains")),
	}}
}

// generateArray emits prefixItems, contains obligations, then items-schema
// padding up to the target length. items:false and maxItems cap the
// length; uniqueItems de-duplicates by structural fingerprint and refills.
func (e *engine) generateArray(n *schema.Node, ptr string, item, depth int) any {
	limit := math.MaxInt
	if n.Items.IsFalse() {
		limit = len(n.PrefixItems)
	}
	if n.MaxItems != nil && *n.MaxItems < limit {
		limit = *n.MaxItems
	}
	hardCap := n.Items.IsFalse()

	out := make([]any, 0)
	for i, p := range n.PrefixItems {
		if len(out) >= limit {
			break
		}
		out = append(out, e.generateValue(p, e.pointer(p, schema.JoinIndex(ptr, "prefixItems", i)), item, depth+1))
	}

	needs := e.containsNeeds(n, ptr)
	contribution := len(out)
	if n.UniqueItems {
		for _, need := range needs {
			contribution += need.Min
		}
	} else {
		for _, need := range needs {
			for k := 0; k < need.Min && need.allows(k) && len(out) < limit; k++ {
				out = append(out, e.generateValue(need.Schema, need.ptr, item, depth+1))
			}
		}
		contribution = len(out)
	}

	target := len(n.PrefixItems)
	if n.MinItems != nil && *n.MinItems > target {
		target = *n.MinItems
	}
	if contribution > target {
		target = contribution
	}
	if target > limit {
		target = limit
	}

	pad, padPtr := n.Items, schema.Join(ptr, "items")
	fromNeed := false
	if pad != nil {
		padPtr = e.pointer(pad, padPtr)
	} else if len(needs) > 0 {
		pad, padPtr, fromNeed = needs[0].Schema, needs[0].ptr, true
	}
	// fallback replaces contains-schema padding once it stops fitting.
	fallback := func() bool {
		if !fromNeed {
			return false
		}
		pad, padPtr, fromNeed = nil, schema.Join(ptr, "items"), false
		return true
	}

	counts := e.needCounts(needs, out)
	if !n.UniqueItems {
		for len(out) < target && !pad.IsFalse() {
			v := e.generateValue(pad, padPtr, item, depth+1)
			if !e.fitsMax(needs, counts, v) {
				if fallback() {
					continue
				}
				break
			}
			out = append(out, v)
			e.countMatches(needs, counts, v)
		}
		return out
	}

	// uniqueItems
	seen := make(map[string]bool)
	out = e.dedupe(out, seen)
	for _, need := range needs {
		have := 0
		for _, v := range out {
			if e.matchesNeed(need, v) {
				have++
			}
		}
		for have < need.Min && need.allows(have) && len(out) < limit {
			v, ok := e.uniqueFiller(need.Schema, need.ptr, seen, item, depth)
			if !ok {
				break
			}
			seen[e.fp.key(v)] = true
			out = append(out, v)
			have++
		}
	}
	out = e.dedupe(out, make(map[string]bool))
	if hardCap {
		return out
	}
	for k := range out {
		seen[e.fp.key(out[k])] = true
	}
	counts = e.needCounts(needs, out)
	for len(out) < target && !pad.IsFalse() {
		var v any
		ok := false
		if pad == nil {
			// true schema: its only generated value is null.
			ok = !seen[e.fp.key(nil)]
		} else {
			v, ok = e.uniqueFiller(pad, padPtr, seen, item, depth)
		}
		if !ok || !e.fitsMax(needs, counts, v) {
			if fallback() {
				continue
			}
			break
		}
		seen[e.fp.key(v)] = true
		out = append(out, v)
		e.countMatches(needs, counts, v)
	}
	return out
}

// allows reports whether one more match keeps the need within maxContains.
func (n arrayNeed) allows(have int) bool {
	return n.Max == nil || have < *n.Max
}

func (e *engine) needCounts(needs []arrayNeed, values []any) []int {
	counts := make([]int, len(needs))
	for _, v := range values {
		e.countMatches(needs, counts, v)
	}
	return counts
}

func (e *engine) countMatches(needs []arrayNeed, counts []int, v any) {
	for i, need := range needs {
		if e.matchesNeed(need, v) {
			counts[i]++
		}
	}
}

// fitsMax reports whether appending v keeps every need within its maximum.
func (e *engine) fitsMax(needs []arrayNeed, counts []int, v any) bool {
	for i, need := range needs {
		if !need.allows(counts[i]) && e.matchesNeed(need, v) {
			return false
		}
	}
	return true
}

// dedupe keeps the first occurrence of every structurally distinct value
// and records the fingerprints in seen.
func (e *engine) dedupe(values []any, seen map[string]bool) []any {
	out := values[:0]
	for _, v := range values {
		k := e.fp.key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// matchesNeed checks a value against a contains schema using the merged
// scalar constraints. Non-scalar needs only match structurally equal
// generated values.
func (e *engine) matchesNeed(need arrayNeed, v any) bool {
	switch classify(need.Schema) {
	case kindConst, kindScalar, kindRef, kindAllOf:
		return e.satisfies(e.collectScalar(need.Schema, need.ptr), v)
	}
	return false
}

// uniqueFiller looks for a value of n that is not in seen: first the plain
// generated value, then offsets of it by attempt count.
func (e *engine) uniqueFiller(n *schema.Node, ptr string, seen map[string]bool, item, depth int) (any, bool) {
	base := e.generateValue(n, ptr, item, depth+1)
	if !seen[e.fp.key(base)] {
		return base, true
	}
	switch classify(n) {
	case kindConst, kindScalar, kindRef, kindAllOf:
	default:
		return nil, false
	}
	sc := e.collectScalar(n, ptr)
	for a := 1; a <= uniqueAttempts; a++ {
		cand, ok := e.offsetCandidate(base, sc, a)
		if !ok {
			continue
		}
		if seen[e.fp.key(cand)] || !e.satisfies(sc, cand) {
			continue
		}
		return cand, true
	}
	return nil, false
}

// offsetCandidate derives attempt a's variation of base.
func (e *engine) offsetCandidate(base any, sc *scalarConstraints, a int) (any, bool) {
	if sc.hasEnum {
		if a < len(sc.enum) {
			return cloneValue(sc.enum[a]), true
		}
		return nil, false
	}
	switch t := base.(type) {
	case bool:
		return !t, a == 1
	case string:
		return e.offsetString(t, sc, a)
	case float64:
		step := 1.0
		if r, _ := e.rat.step(sc.multipleOf); r != nil {
			step, _ = r.Float64()
		}
		if hasType(sc.types, "integer") && step < 1 {
			step = 1
		}
		up := t + float64(a)*step
		if (sc.max != nil && up > *sc.max) || (sc.exMax != nil && up >= *sc.exMax) {
			return t - float64(a)*step, true
		}
		return up, true
	}
	return nil, false
}

// offsetString appends (or, at maxLength, overwrites the tail with) the
// base-|alphabet| digits of a.
func (e *engine) offsetString(s string, sc *scalarConstraints, a int) (any, bool) {
	if len(e.alphabet) == 0 {
		return nil, false
	}
	var tail []rune
	for k := a; k > 0; k /= len(e.alphabet) {
		tail = append([]rune{e.alphabet[k%len(e.alphabet)]}, tail...)
	}
	runes := []rune(s)
	if sc.maxLen != nil && len(runes)+len(tail) > *sc.maxLen {
		keep := *sc.maxLen - len(tail)
		if keep < 0 {
			return nil, false
		}
		runes = runes[:keep]
	}
	out := string(runes) + string(tail)
	if utf8.RuneCountInString(out) == 0 {
		return nil, false
	}
	return out, true
}

func hasType(types []string, t string) bool {
	for _, have := range types {
		if have == t {
			return true
		}
	}
	return false
}
