package generate

import (
	"regexp"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/diag"
	"github.com/foundrydata/foundrygen/schema"
)

// nodeKind is the closed set of generation strategies a node dispatches to.
type nodeKind int

const (
	kindNever  nodeKind = iota // boolean schema false
	kindConst                  // const or enum
	kindObject                 // object assembly
	kindArray                  // array assembly
	kindOneOf                  // precomputed oneOf branch
	kindAnyOf                  // anyOf branch 0
	kindAllOf                  // merged allOf
	kindRef                    // $ref / $dynamicRef target
	kindScalar                 // leaf value
)

func (k nodeKind) String() string {
	switch k {
	case kindNever:
		return "never"
	case kindConst:
		return "const"
	case kindObject:
		return "object"
	case kindArray:
		return "array"
	case kindOneOf:
		return "oneOf"
	case kindAnyOf:
		return "anyOf"
	case kindAllOf:
		return "allOf"
	case kindRef:
		return "ref"
	case kindScalar:
		return "scalar"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// classify picks the strategy for n.
func classify(n *schema.Node) nodeKind {
	switch {
	case n == nil || n.IsTrue():
		return kindScalar
	case n.IsFalse():
		return kindNever
	case n.HasConst || n.HasEnum:
		return kindConst
	case looksLikeObject(n):
		return kindObject
	case looksLikeArray(n):
		return kindArray
	case len(n.OneOf) > 0:
		return kindOneOf
	case len(n.AnyOf) > 0:
		return kindAnyOf
	case len(n.AllOf) > 0:
		return kindAllOf
	case n.Ref != "" || n.DynamicRef != "":
		return kindRef
	}
	return kindScalar
}

func looksLikeObject(n *schema.Node) bool {
	if n.HasType("object") {
		return true
	}
	if len(n.Type) > 0 {
		return false
	}
	return n.Properties != nil || n.PatternProperties != nil || len(n.Required) > 0 ||
		n.AdditionalProperties != nil || n.MinProperties != nil || n.MaxProperties != nil ||
		len(n.DependentRequired) > 0 || n.DependentSchemas != nil ||
		n.UnevaluatedProperties != nil || n.PropertyNames != nil
}

func looksLikeArray(n *schema.Node) bool {
	if n.HasType("array") {
		return true
	}
	if len(n.Type) > 0 {
		return false
	}
	return n.Items != nil || len(n.PrefixItems) > 0 || n.Contains != nil ||
		n.MinItems != nil || n.MaxItems != nil
}

// engine owns all state of one run. Nothing here is shared across runs.
type engine struct {
	composed *compose.Result
	opts     Options
	index    *schema.PointerIndex
	seed     uint32
	log      Logger
	diags    *diag.Log
	metrics  Metrics

	alphabet []rune
	rat      rationalMath
	formats  *FormatRegistry
	fp       *fingerprinter

	regexes     map[string]*regexp.Regexp // nil entry: invalid pattern
	depthCapped map[string]bool

	// anyOf branch validators over SourceSchema, keyed by canonical pointer.
	// A nil entry records a failed compile.
	compiler    *jsonschema.Compiler
	compilerErr error
	validators  map[string]*jsonschema.Schema
}

const sourceURL = "mem://foundrygen/source.json"

func newEngine(composed *compose.Result, opts Options) (*engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(ParseLogLevel(opts.LogLevel), nil)
	}
	validator := opts.Diagnostics
	if validator == nil {
		reg, err := diag.NewRegistry()
		if err != nil {
			return nil, err
		}
		validator = reg
	}
	formats := opts.Formats
	if formats == nil {
		formats = DefaultFormats()
	}

	e := &engine{
		composed:    composed,
		opts:        opts,
		index:       schema.NewPointerIndex(composed.Canonical.Schema),
		seed:        seedFromOptions(opts),
		log:         logger.With(map[string]any{"component": "generate"}),
		alphabet:    prepareAlphabet(opts.Plan.PatternWitness.Alphabet),
		rat:         rationalMath{opts: opts.Plan.Rational},
		formats:     formats,
		fp:          newFingerprinter(),
		regexes:     make(map[string]*regexp.Regexp),
		depthCapped: make(map[string]bool),
		validators:  make(map[string]*jsonschema.Schema),
	}
	e.diags = diag.NewLog(validator, func(d diag.Diagnostic, err error) {
		e.metrics.DiagnosticsRejected++
		e.log.Warnf("dropping invalid diagnostic %s at %q: %v", d.Code, d.CanonPath, err)
	})
	return e, nil
}

// generateItem produces item i from the root.
func (e *engine) generateItem(i int) any {
	root := e.index.Root()
	return e.generateValue(root, "", i, 0)
}

// generateValue dispatches n by kind. depth counts nested generateValue
// calls; the guard turns runaway recursion into null.
func (e *engine) generateValue(n *schema.Node, ptr string, item, depth int) any {
	if limit := e.opts.Plan.Guards.MaxGeneratedDepth; depth > limit {
		if !e.depthCapped[ptr] {
			e.depthCapped[ptr] = true
			e.emit(diag.New(diag.GenerateDepthCap, ptr, map[string]any{"depth": depth, "limit": limit}))
			e.log.Debugf("depth guard reached at %q", ptr)
		}
		return nil
	}

	switch k := classify(n); k {
	case kindNever:
		return nil
	case kindConst, kindScalar:
		return e.synthScalar(n, ptr, item)
	case kindObject:
		return e.generateObject(n, ptr, item, depth)
	case kindArray:
		return e.generateArray(n, ptr, item, depth)
	case kindOneOf:
		return e.generateOneOf(n, ptr, item, depth)
	case kindAnyOf:
		return e.generateAnyOf(n, ptr, item, depth)
	case kindAllOf:
		return e.generateAllOf(n, ptr, item, depth)
	case kindRef:
		return e.generateRef(n, ptr, item, depth)
	default:
		e.log.Errorf("unhandled node kind %s at %q", k, ptr)
		return nil
	}
}

// generateRef follows $ref/$dynamicRef. Siblings that constrain a scalar are
// merged with the target; otherwise the target is generated as is.
func (e *engine) generateRef(n *schema.Node, ptr string, item, depth int) any {
	target, targetPtr, ok := e.resolveRef(n, ptr)
	if !ok {
		return nil
	}
	if hasScalarConstraints(n) && classify(target) == kindScalar {
		return e.synthScalar(n, ptr, item)
	}
	return e.generateValue(target, targetPtr, item, depth+1)
}

// generateAllOf handles an untyped allOf node: an object or array shaped
// branch decides the assembler (which merges allOf itself); otherwise the
// scalar constraints of all branches are merged.
func (e *engine) generateAllOf(n *schema.Node, ptr string, item, depth int) any {
	for _, b := range e.allOfTargets(n, ptr) {
		switch classify(b.node) {
		case kindObject:
			return e.generateObject(n, ptr, item, depth)
		case kindArray:
			return e.generateArray(b.node, b.ptr, item, depth+1)
		case kindOneOf:
			if !hasScalarConstraints(n) {
				return e.generateOneOf(b.node, b.ptr, item, depth+1)
			}
		}
	}
	return e.synthScalar(n, ptr, item)
}

type located struct {
	node *schema.Node
	ptr  string
}

// allOfTargets lists the allOf branches of n with refs followed one level.
func (e *engine) allOfTargets(n *schema.Node, ptr string) []located {
	out := make([]located, 0, len(n.AllOf))
	for i, b := range n.AllOf {
		bptr := e.pointer(b, schema.JoinIndex(ptr, "allOf", i))
		if classify(b) == kindRef {
			if t, tptr, ok := e.resolveRef(b, bptr); ok {
				b, bptr = t, tptr
			}
		}
		out = append(out, located{b, bptr})
	}
	return out
}

// resolveRef resolves the $ref (or $dynamicRef) of n, logging failures.
func (e *engine) resolveRef(n *schema.Node, ptr string) (*schema.Node, string, bool) {
	var (
		target    *schema.Node
		targetPtr string
		ok        bool
	)
	switch {
	case n.DynamicRef != "":
		target, targetPtr, ok = e.index.ResolveDynamic(n.DynamicRef, ptr, e.opts.Plan.Guards.MaxDynamicScopeHops)
	case n.Ref != "":
		target, targetPtr, ok = e.index.Resolve(n.Ref)
	}
	if !ok || target == nil {
		e.log.Debugf("unresolved reference at %q: ref=%q dynamicRef=%q", ptr, n.Ref, n.DynamicRef)
		return nil, "", false
	}
	return target, e.pointer(target, targetPtr), true
}

// pointer returns the canonical pointer of n, or derived when the node was
// not reached by the index walk.
func (e *engine) pointer(n *schema.Node, derived string) string {
	return e.index.PointerOr(n, derived)
}

// regex compiles and caches a pattern. Invalid patterns are cached as nil.
func (e *engine) regex(src string) *regexp.Regexp {
	if re, ok := e.regexes[src]; ok {
		return re
	}
	re, err := regexp.Compile(src)
	if err != nil {
		e.log.Debugf("ignoring pattern %q: %v", src, err)
		re = nil
	}
	e.regexes[src] = re
	return re
}

func (e *engine) emit(d diag.Diagnostic) {
	e.diags.Add(d)
}

// emitPatternCap reports a stopped witness search at ptr.
func (e *engine) emitPatternCap(ptr, reason string, tried int) {
	d := diag.New(diag.ComplexityCapPatterns, ptr, map[string]any{
		"reason":    reason,
		"alphabet":  string(e.alphabet),
		"maxLength": e.opts.Plan.PatternWitness.MaxLength,
		"tried":     tried,
	})
	d.Budget = &diag.Budget{
		Tried:   tried,
		Limit:   e.opts.Plan.PatternWitness.MaxCandidates,
		Skipped: true,
		Reason:  diag.ReasonComplexityCap,
	}
	e.log.Debugf("pattern witness capped at %q: %s after %d trials", ptr, reason, tried)
	e.emit(d)
}

// witness builds an enumerator for a pattern located at ptr.
func (e *engine) witness(src, ptr string) *patternEnumerator {
	var re *regexp.Regexp
	if len(src) <= maxPatternSource {
		re = e.regex(src)
	}
	return newPatternEnumerator(re, src, e.alphabet, e.opts.Plan.PatternWitness, &e.metrics.PatternWitnessTried,
		func(reason string, tried int) { e.emitPatternCap(ptr, reason, tried) })
}
