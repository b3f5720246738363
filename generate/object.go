package generate

import (
	"sort"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/diag"
	"github.com/foundrydata/foundrygen/schema"
)

type propEntry struct {
	node *schema.Node
	ptr  string
}

type patternEntry struct {
	source string
	node   *schema.Node
	ptr    string
}

type condEntry struct {
	node *schema.Node // the node declaring if/then/else
	ptr  string
}

// objectView is the combined object view of a node and its merge set
// (allOf, the selected oneOf branch, reference targets, and whatever
// dependent schemas or conditional branches were merged in later).
type objectView struct {
	visited map[*schema.Node]bool

	props       map[string]propEntry
	propOrder   []string
	patterns    []patternEntry
	patternSeen map[string]bool

	additional    *schema.Node // last seen
	additionalPtr string

	required    map[string]bool
	depRequired map[string][]string
	depSchemas  map[string][]propEntry

	propertyNames    *schema.Node
	minProps         *int
	maxProps         *int
	unevaluatedFalse bool
	conditionals     []condEntry
	discriminator    string
}

func newObjectView() *objectView {
	return &objectView{
		visited:     make(map[*schema.Node]bool),
		props:       make(map[string]propEntry),
		patternSeen: make(map[string]bool),
		required:    make(map[string]bool),
		depRequired: make(map[string][]string),
		depSchemas:  make(map[string][]propEntry),
	}
}

// mergeInto folds n (and, recursively, its merge set) into v. Properties
// and patterns are first-writer-wins; required and dependency lists are
// unions; additionalProperties is last-writer-wins.
func (e *engine) mergeInto(v *objectView, n *schema.Node, ptr string) {
	if n == nil || n.Bool != nil || v.visited[n] {
		return
	}
	v.visited[n] = true

	if n.Properties != nil {
		for k, c := range n.Properties.All() {
			if _, ok := v.props[k]; ok {
				continue
			}
			v.props[k] = propEntry{node: c, ptr: e.pointer(c, schema.Join(ptr, "properties", k))}
			v.propOrder = append(v.propOrder, k)
		}
	}
	if n.PatternProperties != nil {
		for src, c := range n.PatternProperties.All() {
			if v.patternSeen[src] {
				continue
			}
			v.patternSeen[src] = true
			v.patterns = append(v.patterns, patternEntry{source: src, node: c, ptr: e.pointer(c, schema.Join(ptr, "patternProperties", src))})
		}
	}
	if n.AdditionalProperties != nil {
		v.additional = n.AdditionalProperties
		v.additionalPtr = e.pointer(n.AdditionalProperties, schema.Join(ptr, "additionalProperties"))
	}
	for _, r := range n.Required {
		v.required[r] = true
	}
	for trigger, deps := range n.DependentRequired {
		v.depRequired[trigger] = unionStrings(v.depRequired[trigger], deps)
	}
	if n.DependentSchemas != nil {
		for trigger, c := range n.DependentSchemas.All() {
			v.depSchemas[trigger] = append(v.depSchemas[trigger], propEntry{node: c, ptr: e.pointer(c, schema.Join(ptr, "dependentSchemas", trigger))})
			if c != nil {
				v.depRequired[trigger] = unionStrings(v.depRequired[trigger], c.Required)
			}
		}
	}
	if v.propertyNames == nil && n.PropertyNames != nil {
		v.propertyNames = n.PropertyNames
	}
	if n.MinProperties != nil && (v.minProps == nil || *n.MinProperties > *v.minProps) {
		v.minProps = n.MinProperties
	}
	if n.MaxProperties != nil && (v.maxProps == nil || *n.MaxProperties < *v.maxProps) {
		v.maxProps = n.MaxProperties
	}
	if n.UnevaluatedProperties.IsFalse() {
		v.unevaluatedFalse = true
	}
	if n.If != nil {
		v.conditionals = append(v.conditionals, condEntry{node: n, ptr: ptr})
	}
	if v.discriminator == "" {
		v.discriminator = n.Discriminator
	}

	for i, b := range n.AllOf {
		e.mergeInto(v, b, e.pointer(b, schema.JoinIndex(ptr, "allOf", i)))
	}
	if len(n.OneOf) > 0 {
		i := e.selectOneOf(n, ptr)
		b := n.OneOf[i]
		e.mergeInto(v, b, e.pointer(b, schema.JoinIndex(ptr, "oneOf", i)))
	}
	if n.Ref != "" || n.DynamicRef != "" {
		if t, tptr, ok := e.resolveRef(n, ptr); ok {
			e.mergeInto(v, t, tptr)
		}
	}
}

func unionStrings(have, add []string) []string {
	for _, a := range add {
		found := false
		for _, h := range have {
			if h == a {
				found = true
				break
			}
		}
		if !found {
			have = append(have, a)
		}
	}
	return have
}

// objectBuild is the state of assembling one object.
type objectBuild struct {
	e        *engine
	node     *schema.Node
	ptr      string
	view     *objectView
	out      map[string]any
	coverage compose.Coverage
	blocked  map[string]bool
	merged   map[string]bool // dependentSchemas triggers already merged
	item     int
	depth    int
}

func hasOwnObjectKeywords(n *schema.Node) bool {
	return n.Properties != nil || len(n.Required) > 0 || n.PatternProperties != nil
}

// generateObject assembles an object: required keys, dependency
// obligations, conditional hints, then top-up towards minProperties.
func (e *engine) generateObject(n *schema.Node, ptr string, item, depth int) any {
	if !hasOwnObjectKeywords(n) && len(n.OneOf) > 0 {
		return e.generateOneOf(n, ptr, item, depth)
	}
	view := newObjectView()
	e.mergeInto(view, n, ptr)

	b := &objectBuild{
		e:        e,
		node:     n,
		ptr:      ptr,
		view:     view,
		out:      make(map[string]any),
		coverage: e.composed.CoverageFor(ptr),
		blocked:  make(map[string]bool),
		merged:   make(map[string]bool),
		item:     item,
		depth:    depth,
	}
	for _, name := range b.requiredNames() {
		b.admit(name, false)
	}
	b.applyDependencies()
	b.applyConditionals()
	b.applyDependencies()
	b.topUp()
	return b.out
}

func (b *objectBuild) requiredNames() []string {
	names := make([]string, 0, len(b.view.required)+1)
	for r := range b.view.required {
		names = append(names, r)
	}
	if d := b.view.discriminator; b.e.opts.Discriminator && d != "" && !b.view.required[d] {
		if _, ok := b.view.props[d]; ok {
			names = append(names, d)
		}
	}
	sort.Strings(names)
	return names
}

// admit tries to add name. Coverage and (under unevaluatedProperties:false)
// the evaluation gate always apply; the conditional blocklist applies to
// optional keys only. It reports whether the key was added.
func (b *objectBuild) admit(name string, optional bool) bool {
	if _, ok := b.out[name]; ok {
		return false
	}
	if b.coverage != nil && !b.coverage.Has(name) {
		return false
	}
	if optional && b.blocked[name] {
		return false
	}
	var proof []string
	if b.view.unevaluatedFalse || b.e.opts.Plan.Metrics {
		proof = b.e.findEvaluationProof(b.node, b.ptr, b.out, name)
		if proof == nil && b.view.unevaluatedFalse {
			return false
		}
	}
	child, childPtr := b.subschema(name)
	if child.IsFalse() {
		return false
	}
	b.out[name] = b.e.generateValue(child, childPtr, b.item, b.depth+1)
	if proof != nil && b.e.opts.Plan.Metrics {
		via := make([]any, len(proof))
		for i, p := range proof {
			via[i] = p
		}
		b.e.emit(diag.New(diag.EvalTracePropSource, b.ptr, map[string]any{"name": name, "via": via}))
	}
	return true
}

// subschema resolves the schema of name: properties, then the first
// matching patternProperties entry, then additionalProperties.
func (b *objectBuild) subschema(name string) (*schema.Node, string) {
	if p, ok := b.view.props[name]; ok {
		return p.node, p.ptr
	}
	for _, pe := range b.view.patterns {
		if re := b.e.regex(pe.source); re != nil && re.MatchString(name) {
			return pe.node, pe.ptr
		}
	}
	if b.view.additional != nil {
		return b.view.additional, b.view.additionalPtr
	}
	return nil, schema.Join(b.ptr, "additionalProperties")
}

// applyDependencies runs dependentRequired and dependentSchemas obligations
// of present triggers until nothing changes.
func (b *objectBuild) applyDependencies() {
	for changed := true; changed; {
		changed = false
		for _, trigger := range b.triggers() {
			if _, present := b.out[trigger]; !present {
				continue
			}
			if !b.merged[trigger] {
				b.merged[trigger] = true
				for _, ds := range b.view.depSchemas[trigger] {
					b.e.mergeInto(b.view, ds.node, ds.ptr)
				}
				changed = true
			}
			deps := append([]string(nil), b.view.depRequired[trigger]...)
			sort.Strings(deps)
			for _, d := range deps {
				if b.admit(d, false) {
					changed = true
				}
			}
		}
	}
}

func (b *objectBuild) triggers() []string {
	seen := make(map[string]bool, len(b.view.depRequired)+len(b.view.depSchemas))
	out := make([]string, 0, len(seen))
	for t := range b.view.depRequired {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for t := range b.view.depSchemas {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func (b *objectBuild) belowMin() bool {
	if b.view.minProps == nil || len(b.out) >= *b.view.minProps {
		return false
	}
	return b.view.maxProps == nil || len(b.out) < *b.view.maxProps
}

// topUp adds optional keys while the object is below minProperties:
// declared properties, then pattern witnesses, then propertyNames enum
// values.
func (b *objectBuild) topUp() {
	if !b.belowMin() {
		return
	}

	names := append([]string(nil), b.view.propOrder...)
	sort.Strings(names)
	for _, name := range names {
		if !b.belowMin() {
			return
		}
		b.admit(name, true)
	}

	b.topUpPatterns()

	if !b.belowMin() || b.view.propertyNames == nil || !b.view.propertyNames.HasEnum {
		return
	}
	closed := b.view.additional.IsFalse()
	if closed && !b.e.composed.HasNote(b.ptr, compose.NotePNamesRewriteApplied) {
		return
	}
	for _, name := range enumNames(b.view.propertyNames.Enum) {
		if !b.belowMin() {
			return
		}
		b.admit(name, true)
	}
}

// topUpPatterns round-robins one witness enumerator per patternProperties
// entry, admitting one accepted candidate per turn.
func (b *objectBuild) topUpPatterns() {
	if !b.belowMin() || len(b.view.patterns) == 0 {
		return
	}
	var live []*patternEnumerator
	for _, pe := range b.view.patterns {
		if en := b.e.witness(pe.source, pe.ptr); en != nil {
			live = append(live, en)
		}
	}
	accept := func(c string) bool {
		if _, ok := b.out[c]; ok {
			return false
		}
		if _, declared := b.view.props[c]; declared {
			return false
		}
		if b.blocked[c] || (b.coverage != nil && !b.coverage.Has(c)) {
			return false
		}
		return true
	}
	for turn := 0; len(live) > 0 && b.belowMin(); {
		i := turn % len(live)
		c, ok := live[i].next(accept)
		if !ok {
			live = append(live[:i], live[i+1:]...)
			continue
		}
		if b.admit(c, true) {
			turn++
		}
	}
}

// enumNames returns the string members of an enum, sorted and deduplicated.
func enumNames(enum []any) []string {
	seen := make(map[string]bool, len(enum))
	out := make([]string, 0, len(enum))
	for _, v := range enum {
		if s, ok := v.(string); ok && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
