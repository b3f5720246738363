package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/foundrydata/foundrygen/schema"
)

// Applicator tags used in evaluation proofs.
const (
	viaProperties           = "properties"
	viaPatternProperties    = "patternProperties"
	viaAdditionalProperties = "additionalProperties"
	viaRef                  = "$ref"
	viaAllOf                = "allOf"
	viaOneOf                = "oneOf"
	viaAnyOf                = "anyOf"
	viaThen                 = "then"
	viaElse                 = "else"
	viaDependentSchemas     = "dependentSchemas"
)

type traceItem struct {
	node *schema.Node
	ptr  string
	via  []string
}

// findEvaluationProof searches breadth-first from obj for a node that
// evaluates name, following only the applicators active for built. It
// returns the chain of applicator tags ending in the evaluating keyword, or
// nil when no active applicator evaluates name. Visits are keyed by
// (pointer, last tag), a finite set, so cyclic references terminate.
func (e *engine) findEvaluationProof(obj *schema.Node, ptr string, built map[string]any, name string) []string {
	e.metrics.EvalTraceChecks++

	queue := []traceItem{{node: obj, ptr: ptr}}
	visited := make(map[string]bool)
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		n := it.node
		if n == nil || n.Bool != nil {
			continue
		}
		last := ""
		if len(it.via) > 0 {
			last = it.via[len(it.via)-1]
		}
		key := it.ptr + "\x00" + last
		if visited[key] {
			continue
		}
		visited[key] = true

		if tag := e.evaluatesName(n, name); tag != "" {
			return appendVia(it.via, tag)
		}

		enqueue := func(c *schema.Node, derived, tag string) {
			queue = append(queue, traceItem{node: c, ptr: e.pointer(c, derived), via: appendVia(it.via, tag)})
		}
		for i, b := range n.AllOf {
			enqueue(b, schema.JoinIndex(it.ptr, "allOf", i), viaAllOf)
		}
		if len(n.OneOf) > 0 {
			i := e.chosenIndex(it.ptr, len(n.OneOf))
			enqueue(n.OneOf[i], schema.JoinIndex(it.ptr, "oneOf", i), viaOneOf)
		}
		for i, b := range n.AnyOf {
			bptr := e.pointer(b, schema.JoinIndex(it.ptr, "anyOf", i))
			if e.anyOfBranchValidates(bptr, built) {
				enqueue(b, bptr, viaAnyOf)
			}
		}
		if n.If != nil {
			switch outcome, _ := e.evalConditional(n.If, built); outcome {
			case condSatisfied:
				if n.Then != nil {
					enqueue(n.Then, schema.Join(it.ptr, "then"), viaThen)
				}
			case condUnsatisfied:
				if n.Else != nil {
					enqueue(n.Else, schema.Join(it.ptr, "else"), viaElse)
				}
			}
		}
		if n.Ref != "" || n.DynamicRef != "" {
			if t, tptr, ok := e.resolveRef(n, it.ptr); ok {
				enqueue(t, tptr, viaRef)
			}
		}
		if n.DependentSchemas != nil {
			for trigger, ds := range n.DependentSchemas.All() {
				if _, present := built[trigger]; present {
					enqueue(ds, schema.Join(it.ptr, "dependentSchemas", trigger), viaDependentSchemas)
				}
			}
		}
	}
	return nil
}

// evaluatesName returns the keyword of n that evaluates name directly, or "".
func (e *engine) evaluatesName(n *schema.Node, name string) string {
	if _, ok := n.Property(name); ok {
		return viaProperties
	}
	if n.PatternProperties != nil {
		for src := range n.PatternProperties.All() {
			if re := e.regex(src); re != nil && re.MatchString(name) {
				return viaPatternProperties
			}
		}
	}
	if n.AdditionalProperties != nil && !n.AdditionalProperties.IsFalse() {
		return viaAdditionalProperties
	}
	return ""
}

func appendVia(via []string, tag string) []string {
	out := make([]string, len(via), len(via)+1)
	copy(out, via)
	return append(out, tag)
}

// anyOfBranchValidates reports whether the original (pre-composition)
// subschema behind the canonical branch at ptr accepts built. Without a
// source schema no anyOf branch is ever considered active.
func (e *engine) anyOfBranchValidates(ptr string, built map[string]any) bool {
	if e.opts.SourceSchema == nil {
		return false
	}
	v, ok := e.validators[ptr]
	if !ok {
		var err error
		v, err = e.compileBranch(ptr)
		if err != nil {
			e.log.Debugf("no validator for anyOf branch %q: %v", ptr, err)
		}
		e.validators[ptr] = v
	}
	if v == nil {
		return false
	}
	return v.Validate(map[string]any(built)) == nil
}

func (e *engine) compileBranch(ptr string) (*jsonschema.Schema, error) {
	orig, ok := e.composed.Canonical.PtrMap[ptr]
	if !ok {
		return nil, fmt.Errorf("pointer %q has no original location", ptr)
	}
	if e.compiler == nil {
		if e.compilerErr != nil {
			return nil, e.compilerErr
		}
		c, err := newSourceCompiler(e.opts.SourceSchema)
		if err != nil {
			e.compilerErr = err
			return nil, err
		}
		e.compiler = c
	}
	e.metrics.BranchValidatorCompiles++
	frag := strings.TrimPrefix(orig, "#")
	s, err := e.compiler.Compile(sourceURL + "#" + frag)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", orig, err)
	}
	return s, nil
}

// newSourceCompiler registers the source schema as an in-memory resource.
// The document is round-tripped through JSON so the compiler sees its own
// number representation.
func newSourceCompiler(source any) (*jsonschema.Compiler, error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("failed to encode source schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(sourceURL, doc); err != nil {
		return nil, fmt.Errorf("failed to register source schema: %w", err)
	}
	return c, nil
}
