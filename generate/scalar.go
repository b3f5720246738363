package generate

import (
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/foundrydata/foundrygen/schema"
)

// scalarConstraints is the merged leaf view of a node and everything it
// pulls in through allOf and $ref.
type scalarConstraints struct {
	types []string

	hasConst bool
	constVal any
	hasEnum  bool
	enum     []any
	hasDef   bool
	def      any

	format  *string
	pattern *string

	min, max     *float64
	exMin, exMax *float64
	multipleOf   *big.Rat

	minLen, maxLen *int
}

func numberValue(v any) (float64, bool) {
	return schema.ToFloat(v)
}

// hasScalarConstraints reports whether n carries leaf keywords of its own.
func hasScalarConstraints(n *schema.Node) bool {
	if n == nil || n.Bool != nil {
		return false
	}
	return len(n.Type) > 0 || n.HasConst || n.HasEnum || n.Format != nil || n.Pattern != nil ||
		n.Minimum != nil || n.Maximum != nil || n.ExclusiveMinimum != nil || n.ExclusiveMaximum != nil ||
		n.MultipleOf != nil || n.MinLength != nil || n.MaxLength != nil
}

// collectScalar merges leaf constraints of n, its allOf branches and its
// reference targets. Bounds tighten, multipleOf combines by LCM, and the
// first writer wins for const, enum, default, format, pattern and type.
func (e *engine) collectScalar(n *schema.Node, ptr string) *scalarConstraints {
	sc := &scalarConstraints{}
	visited := make(map[*schema.Node]bool)
	var walk func(n *schema.Node, ptr string)
	walk = func(n *schema.Node, ptr string) {
		if n == nil || n.Bool != nil || visited[n] {
			return
		}
		visited[n] = true
		sc.absorb(n, e.rat)
		for i, b := range n.AllOf {
			walk(b, e.pointer(b, schema.JoinIndex(ptr, "allOf", i)))
		}
		if n.Ref != "" || n.DynamicRef != "" {
			if t, tptr, ok := e.resolveRef(n, ptr); ok {
				walk(t, tptr)
			}
		}
	}
	walk(n, ptr)
	return sc
}

func (sc *scalarConstraints) absorb(n *schema.Node, rm rationalMath) {
	if len(sc.types) == 0 && len(n.Type) > 0 {
		sc.types = n.Type
	}
	if !sc.hasConst && n.HasConst {
		sc.hasConst, sc.constVal = true, n.Const
	}
	if !sc.hasEnum && n.HasEnum {
		sc.hasEnum, sc.enum = true, n.Enum
	}
	if !sc.hasDef && n.HasDefault {
		sc.hasDef, sc.def = true, n.Default
	}
	if sc.format == nil {
		sc.format = n.Format
	}
	if sc.pattern == nil {
		sc.pattern = n.Pattern
	}
	sc.min = tighter(sc.min, n.Minimum, math.Max)
	sc.exMin = tighter(sc.exMin, n.ExclusiveMinimum, math.Max)
	sc.max = tighter(sc.max, n.Maximum, math.Min)
	sc.exMax = tighter(sc.exMax, n.ExclusiveMaximum, math.Min)
	if m := n.MultipleOfRat(); m != nil {
		sc.multipleOf = rm.lcm(sc.multipleOf, m)
	}
	if n.MinLength != nil && (sc.minLen == nil || *n.MinLength > *sc.minLen) {
		sc.minLen = n.MinLength
	}
	if n.MaxLength != nil && (sc.maxLen == nil || *n.MaxLength < *sc.maxLen) {
		sc.maxLen = n.MaxLength
	}
}

func tighter(have, next *float64, pick func(a, b float64) float64) *float64 {
	switch {
	case next == nil:
		return have
	case have == nil:
		v := *next
		return &v
	}
	v := pick(*have, *next)
	return &v
}

// primaryType returns the type to synthesize: the first declared non-null
// type, "null" when that is all there is, or one inferred from keywords.
func (sc *scalarConstraints) primaryType() string {
	for _, t := range sc.types {
		if t != "null" {
			return t
		}
	}
	if len(sc.types) > 0 {
		return "null"
	}
	switch {
	case sc.pattern != nil || sc.minLen != nil || sc.maxLen != nil || sc.format != nil:
		return "string"
	case sc.min != nil || sc.max != nil || sc.exMin != nil || sc.exMax != nil || sc.multipleOf != nil:
		return "number"
	}
	return ""
}

// synthScalar returns one value for a leaf node. It never fails; the value
// may not satisfy every constraint.
func (e *engine) synthScalar(n *schema.Node, ptr string, item int) any {
	if n == nil || n.Bool != nil {
		return nil
	}
	sc := e.collectScalar(n, ptr)

	if sc.hasConst {
		return cloneValue(sc.constVal)
	}
	if sc.hasEnum && len(sc.enum) > 0 {
		for _, v := range sc.enum {
			if typeFits(v, sc.types) {
				return cloneValue(v)
			}
		}
		return cloneValue(sc.enum[0])
	}
	typ := sc.primaryType()
	if sc.format != nil && (typ == "string" || typ == "") {
		if s, ok := e.formatValue(*sc.format, sc, ptr, item); ok {
			return s
		}
	}

	switch typ {
	case "string":
		return e.stringDefault(sc, ptr)
	case "integer":
		return e.numberDefault(sc, true)
	case "number":
		return e.numberDefault(sc, false)
	case "boolean":
		if b, ok := sc.def.(bool); ok && sc.hasDef {
			return b
		}
		return false
	case "object":
		return map[string]any{}
	case "array":
		return []any{}
	case "null":
		return nil
	}
	if sc.hasDef {
		return cloneValue(sc.def)
	}
	return nil
}

// stringDefault pads with the first alphabet character to minLength and
// truncates by code point to maxLength. A non-matching pattern triggers a
// length-compatible witness search.
func (e *engine) stringDefault(sc *scalarConstraints, ptr string) string {
	minLen := 0
	if sc.minLen != nil {
		minLen = *sc.minLen
	}
	var s string
	if pad := e.padRune(); minLen > 0 && pad != 0 {
		s = strings.Repeat(string(pad), minLen)
	}
	if sc.maxLen != nil {
		s = truncateRunes(s, *sc.maxLen)
	}
	if sc.pattern == nil {
		return s
	}
	re := e.regex(*sc.pattern)
	if re != nil && re.MatchString(s) {
		return s
	}
	en := e.witness(*sc.pattern, schema.Join(ptr, "pattern"))
	if en == nil {
		return s
	}
	w, ok := en.next(func(c string) bool {
		return lengthFits(c, sc.minLen, sc.maxLen)
	})
	if ok {
		return w
	}
	return s
}

// padRune is the first character of the configured alphabet, in the order
// it was given.
func (e *engine) padRune() rune {
	r, size := utf8.DecodeRuneInString(e.opts.Plan.PatternWitness.Alphabet)
	if size == 0 || r == utf8.RuneError {
		if len(e.alphabet) > 0 {
			return e.alphabet[0]
		}
		return 0
	}
	return r
}

func lengthFits(s string, minLen, maxLen *int) bool {
	n := utf8.RuneCountInString(s)
	if minLen != nil && n < *minLen {
		return false
	}
	if maxLen != nil && n > *maxLen {
		return false
	}
	return true
}

func truncateRunes(s string, max int) string {
	if max < 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// numberDefault starts at 0, clamps into the bounds and aligns to
// multipleOf.
func (e *engine) numberDefault(sc *scalarConstraints, integer bool) float64 {
	lo, hi := math.Inf(-1), math.Inf(1)
	loOpen, hiOpen := false, false
	if sc.min != nil {
		lo = *sc.min
	}
	if sc.exMin != nil && *sc.exMin >= lo {
		lo, loOpen = *sc.exMin, true
	}
	if sc.max != nil {
		hi = *sc.max
	}
	if sc.exMax != nil && *sc.exMax <= hi {
		hi, hiOpen = *sc.exMax, true
	}
	aboveLo := func(x float64) bool { return x > lo || (!loOpen && x == lo) }
	belowHi := func(x float64) bool { return x < hi || (!hiOpen && x == hi) }

	v := 0.0
	if !aboveLo(v) {
		switch {
		case !loOpen:
			v = lo
		case integer:
			v = math.Floor(lo) + 1
		case math.IsInf(hi, 1):
			v = lo + 1
		default:
			v = lo + math.Min(1, (hi-lo)/2)
		}
	}
	if !belowHi(v) {
		switch {
		case !hiOpen:
			v = hi
		case integer:
			v = math.Ceil(hi) - 1
		case math.IsInf(lo, -1):
			v = hi - 1
		default:
			v = hi - math.Min(1, (hi-lo)/2)
		}
	}
	if integer {
		v = math.Ceil(v)
		if !belowHi(v) && !math.IsInf(hi, 1) {
			v = math.Floor(hi)
			if hiOpen && v == hi {
				v--
			}
		}
	}

	m := sc.multipleOf
	if integer && m != nil {
		m = e.rat.lcm(m, big.NewRat(1, 1))
	}
	if m != nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		up := e.rat.alignUp(v, m)
		switch {
		case belowHi(up):
			v = up
		case !math.IsInf(hi, 1):
			down := e.rat.alignDown(hi, m)
			if !belowHi(down) {
				step, _ := m.Float64()
				down = e.rat.alignDown(hi-step, m)
			}
			if aboveLo(down) {
				v = down
			} else {
				v = up
			}
		default:
			v = up
		}
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	return v
}

// satisfies reports whether v meets the merged leaf constraints. It backs
// the unique filler, which must not trade uniqueness for validity.
func (e *engine) satisfies(sc *scalarConstraints, v any) bool {
	if sc.hasConst {
		return e.fp.equal(sc.constVal, v)
	}
	if sc.hasEnum {
		found := false
		for _, ev := range sc.enum {
			if e.fp.equal(ev, v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !typeFits(v, sc.types) {
		return false
	}
	switch t := v.(type) {
	case string:
		if !lengthFits(t, sc.minLen, sc.maxLen) {
			return false
		}
		if sc.pattern != nil {
			if re := e.regex(*sc.pattern); re != nil && !re.MatchString(t) {
				return false
			}
		}
	case float64:
		if sc.min != nil && t < *sc.min {
			return false
		}
		if sc.max != nil && t > *sc.max {
			return false
		}
		if sc.exMin != nil && t <= *sc.exMin {
			return false
		}
		if sc.exMax != nil && t >= *sc.exMax {
			return false
		}
		if sc.multipleOf != nil && !e.rat.isMultiple(t, sc.multipleOf) {
			return false
		}
	}
	return true
}

// typeFits reports whether v is an instance of one of types (any type when
// types is empty).
func typeFits(v any, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		switch t {
		case "null":
			if v == nil {
				return true
			}
		case "boolean":
			if _, ok := v.(bool); ok {
				return true
			}
		case "string":
			if _, ok := v.(string); ok {
				return true
			}
		case "number":
			if _, ok := numberValue(v); ok {
				return true
			}
		case "integer":
			if f, ok := numberValue(v); ok && f == math.Trunc(f) {
				return true
			}
		case "object":
			if _, ok := v.(map[string]any); ok {
				return true
			}
		case "array":
			if _, ok := v.([]any); ok {
				return true
			}
		}
	}
	return false
}

// cloneValue deep-copies a JSON value so callers never share const or enum
// storage with the schema.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		if f, ok := numberValue(v); ok {
			return f
		}
		return v
	}
}
