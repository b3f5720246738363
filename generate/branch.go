package generate

import (
	"github.com/foundrydata/foundrygen/diag"
	"github.com/foundrydata/foundrygen/schema"
)

// chosenIndex returns the precomputed oneOf branch for ptr, or 0 when none
// was recorded or it is out of range. It has no side effects.
func (e *engine) chosenIndex(ptr string, branches int) int {
	if nd, ok := e.composed.Node(ptr); ok && nd.ChosenBranch != nil {
		if i := nd.ChosenBranch.Index; i >= 0 && i < branches {
			return i
		}
	}
	return 0
}

// selectOneOf picks the branch to generate from and, for a real choice,
// emits the exclusivity record of ptr.
func (e *engine) selectOneOf(n *schema.Node, ptr string) int {
	idx := e.chosenIndex(ptr, len(n.OneOf))
	if len(n.OneOf) > 1 {
		e.emitExclusivity(ptr)
	}
	return idx
}

// emitExclusivity draws exclusivityRand from a fresh RNG seeded by
// (baseSeed, ptr). tiebreakRand is only ever copied from upstream.
func (e *engine) emitExclusivity(ptr string) {
	r := newRNG(pathSeed(e.seed, ptr)).float()
	ch := "a"
	if len(e.alphabet) > 0 {
		i := int(r * float64(len(e.alphabet)))
		if i >= len(e.alphabet) {
			i = len(e.alphabet) - 1
		}
		ch = string(e.alphabet[i])
	}
	sd := &diag.ScoreDetails{ExclusivityRand: &r}
	if nd, ok := e.composed.Node(ptr); ok && nd.ScoreDetails != nil && nd.ScoreDetails.TiebreakRand != nil {
		t := *nd.ScoreDetails.TiebreakRand
		sd.TiebreakRand = &t
	}
	d := diag.New(diag.ExclusivityTweakString, ptr, map[string]any{"char": ch})
	d.ScoreDetails = sd
	e.emit(d)
}

func (e *engine) generateOneOf(n *schema.Node, ptr string, item, depth int) any {
	idx := e.selectOneOf(n, ptr)
	b := n.OneOf[idx]
	return e.generateValue(b, e.pointer(b, schema.JoinIndex(ptr, "oneOf", idx)), item, depth+1)
}

// generateAnyOf always generates from branch 0. Other branches only matter
// to evaluation proofs.
func (e *engine) generateAnyOf(n *schema.Node, ptr string, item, depth int) any {
	b := n.AnyOf[0]
	return e.generateValue(b, e.pointer(b, schema.JoinIndex(ptr, "anyOf", 0)), item, depth+1)
}
