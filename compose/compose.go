// Package compose describes the input of the generator: the canonical
// schema produced by the composition step together with its side tables
// (pointer map, notes, per-node branch decisions, coverage and contains
// obligations).
package compose

import (
	"errors"
	"sort"

	"github.com/foundrydata/foundrygen/diag"
	"github.com/foundrydata/foundrygen/schema"
)

// ErrNoSchema is returned when a compose document has no canonical schema.
var ErrNoSchema = errors.New("compose: canonical schema is missing")

// NotePNamesRewriteApplied marks a path whose propertyNames enum was
// rewritten into explicit patternProperties by the normalizer.
const NotePNamesRewriteApplied = "PNAMES_REWRITE_APPLIED"

// Result is the composition output consumed by the generator.
type Result struct {
	Canonical     Canonical
	Diag          Diag
	CoverageIndex map[string]Coverage
	ContainsBag   map[string][]ContainsNeed
}

// Canonical holds the merged tree and its provenance tables.
type Canonical struct {
	Schema *schema.Node
	// PtrMap maps canonical pointers to pointers in the original schema.
	PtrMap map[string]string
	Notes  []Note
}

// Note is a normalizer remark attached to a canonical path.
type Note struct {
	CanonPath string         `json:"canonPath" yaml:"canonPath"`
	Code      string         `json:"code" yaml:"code"`
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Diag carries per-node composition decisions.
type Diag struct {
	Nodes map[string]NodeDiag
}

// NodeDiag is what composition decided for one node.
type NodeDiag struct {
	ChosenBranch *ChosenBranch     `json:"chosenBranch,omitempty" yaml:"chosenBranch,omitempty"`
	ScoreDetails *diag.ScoreDetails `json:"scoreDetails,omitempty" yaml:"scoreDetails,omitempty"`
	Budget       *diag.Budget       `json:"budget,omitempty" yaml:"budget,omitempty"`
}

// ChosenBranch is a pre-scored branch decision.
type ChosenBranch struct {
	Index int     `json:"index" yaml:"index"`
	Score float64 `json:"score" yaml:"score"`
}

// ContainsNeed is a contains obligation of an array.
type ContainsNeed struct {
	Schema *schema.Node
	Min    int
	Max    *int
}

// Coverage restricts which property names may be synthesized at a path.
type Coverage interface {
	Has(name string) bool
	// Enumerate returns the finite name set, if the coverage has one.
	Enumerate() ([]string, bool)
	Provenance() []string
}

// HasNote reports whether a note with code exists for canonPath.
func (r *Result) HasNote(canonPath, code string) bool {
	if r == nil {
		return false
	}
	for _, n := range r.Canonical.Notes {
		if n.CanonPath == canonPath && n.Code == code {
			return true
		}
	}
	return false
}

// Node returns the composition decision recorded for canonPath.
func (r *Result) Node(canonPath string) (NodeDiag, bool) {
	if r == nil || r.Diag.Nodes == nil {
		return NodeDiag{}, false
	}
	nd, ok := r.Diag.Nodes[canonPath]
	return nd, ok
}

// CoverageFor returns the coverage set of canonPath, or nil when unrestricted.
func (r *Result) CoverageFor(canonPath string) Coverage {
	if r == nil || r.CoverageIndex == nil {
		return nil
	}
	return r.CoverageIndex[canonPath]
}

// ContainsFor returns the contains obligations of canonPath.
func (r *Result) ContainsFor(canonPath string) []ContainsNeed {
	if r == nil || r.ContainsBag == nil {
		return nil
	}
	return r.ContainsBag[canonPath]
}

// FromSchema wraps a canonical tree that needs no side tables: the pointer
// map is the identity over every indexed node.
func FromSchema(root *schema.Node) *Result {
	idx := schema.NewPointerIndex(root)
	ptrMap := make(map[string]string, idx.Len())
	var walk func(n *schema.Node, ptr string)
	seen := make(map[*schema.Node]bool)
	walk = func(n *schema.Node, ptr string) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		ptrMap[ptr] = ptr
		for _, c := range n.Children() {
			walk(c.Node, schema.Join(ptr, c.Path...))
		}
	}
	walk(root, "")
	return &Result{
		Canonical: Canonical{Schema: root, PtrMap: ptrMap},
		Diag:      Diag{Nodes: map[string]NodeDiag{}},
	}
}

// StaticCoverage is a finite, allow-list coverage set.
type StaticCoverage struct {
	names  map[string]struct{}
	source []string
}

// NewStaticCoverage builds a coverage set over names.
func NewStaticCoverage(names []string, provenance ...string) *StaticCoverage {
	c := &StaticCoverage{names: make(map[string]struct{}, len(names)), source: provenance}
	for _, n := range names {
		c.names[n] = struct{}{}
	}
	return c
}

// Has reports whether name is in the set.
func (c *StaticCoverage) Has(name string) bool {
	_, ok := c.names[name]
	return ok
}

// Enumerate returns the names in sorted order.
func (c *StaticCoverage) Enumerate() ([]string, bool) {
	out := make([]string, 0, len(c.names))
	for n := range c.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, true
}

// Provenance returns where the set came from.
func (c *StaticCoverage) Provenance() []string {
	return c.source
}
