package generate

import (
	"sort"

	"github.com/foundrydata/foundrygen/diag"
	"github.com/foundrydata/foundrygen/schema"
)

type condOutcome int

const (
	condUnknown condOutcome = iota
	condSatisfied
	condUnsatisfied
)

func (o condOutcome) String() string {
	switch o {
	case condSatisfied:
		return "satisfied"
	case condUnsatisfied:
		return "unsatisfied"
	}
	return "unknown"
}

// discriminant is an if.properties entry declaring const or a non-empty enum.
type discriminant struct {
	name string
	node *schema.Node
}

func discriminants(ifNode *schema.Node) []discriminant {
	if ifNode == nil || ifNode.Properties == nil {
		return nil
	}
	var out []discriminant
	for _, name := range ifNode.PropertyNamesSorted() {
		p, _ := ifNode.Property(name)
		if p == nil {
			continue
		}
		if p.HasConst || (p.HasEnum && len(p.Enum) > 0) {
			out = append(out, discriminant{name: name, node: p})
		}
	}
	return out
}

// evalConditional decides an if against the object built so far. A present
// mismatching discriminant decides unsatisfied even when others are missing.
func (e *engine) evalConditional(ifNode *schema.Node, built map[string]any) (condOutcome, []discriminant) {
	ds := discriminants(ifNode)
	if len(ds) == 0 {
		return condUnknown, nil
	}
	missing := false
	for _, d := range ds {
		v, ok := built[d.name]
		if !ok {
			missing = true
			continue
		}
		if !e.discriminantMatches(d.node, v) {
			return condUnsatisfied, ds
		}
	}
	if missing {
		return condUnknown, ds
	}
	return condSatisfied, ds
}

func (e *engine) discriminantMatches(n *schema.Node, v any) bool {
	if n.HasConst {
		return e.fp.equal(n.Const, v)
	}
	for _, ev := range n.Enum {
		if e.fp.equal(ev, v) {
			return true
		}
	}
	return false
}

// applyConditionals runs the if-aware hints of every conditional in the
// merge set, including conditionals merged in by earlier hints.
func (b *objectBuild) applyConditionals() {
	c := b.e.opts.Plan.Conditionals
	if c.Strategy != StrategyIfAwareLite {
		return
	}
	for i := 0; i < len(b.view.conditionals); i++ {
		ce := b.view.conditionals[i]
		outcome, ds := b.e.evalConditional(ce.node.If, b.out)
		switch outcome {
		case condSatisfied:
			if t := ce.node.Then; t != nil {
				b.applyBranch(t, b.e.pointer(t, schema.Join(ce.ptr, "then")), ds)
			}
			b.emitHintApplied(ce.ptr, outcome)
		case condUnsatisfied:
			for _, d := range ds {
				if _, present := b.out[d.name]; !present {
					b.blocked[d.name] = true
				}
			}
			if el := ce.node.Else; el != nil {
				// discriminants are only forced when the branch is satisfied
				b.applyBranch(el, b.e.pointer(el, schema.Join(ce.ptr, "else")), nil)
			}
			b.emitHintApplied(ce.ptr, outcome)
		default:
			reason := "missingDiscriminant"
			if len(ds) == 0 {
				reason = "noDiscriminant"
			}
			b.e.emit(diag.New(diag.IfAwareHintSkippedInsufficientInfo, ce.ptr, map[string]any{"reason": reason}))
		}
	}
}

// applyBranch merges a then/else branch into the admissible view and forces
// keys according to the minimum-satisfaction policy.
func (b *objectBuild) applyBranch(branch *schema.Node, ptr string, ds []discriminant) {
	policy := b.e.opts.Plan.Conditionals.MinThenSatisfaction
	minProps := b.view.minProps
	b.e.mergeInto(b.view, branch, ptr)
	if policy != MinThenRequiredBounds {
		b.view.minProps = minProps
	}

	switch policy {
	case MinThenDiscriminantsOnly:
		for _, d := range ds {
			b.admit(d.name, false)
		}
	case MinThenRequiredOnly, MinThenRequiredBounds:
		req := append([]string(nil), branch.Required...)
		sort.Strings(req)
		for _, name := range req {
			b.admit(name, false)
		}
	}
}

func (b *objectBuild) emitHintApplied(ptr string, outcome condOutcome) {
	c := b.e.opts.Plan.Conditionals
	b.e.emit(diag.New(diag.IfAwareHintApplied, ptr, map[string]any{
		"strategy":            c.Strategy,
		"minThenSatisfaction": c.MinThenSatisfaction,
		"outcome":             outcome.String(),
	}))
}
