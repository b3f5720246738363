// Package schema holds the canonical schema tree consumed by the generator:
// a typed, read-only view over a composed JSON Schema document, the
// canonical pointer scheme used to address its nodes, and the pointer index
// that maps node identity back to those pointers.
package schema

import (
	"math/big"
	"strconv"

	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Node is one schema object (or boolean schema) of the canonical tree.
//
// Nodes are produced once by FromValue and never mutated afterwards; the
// generator only reads them. Identity matters: the pointer index is keyed by
// *Node, so the same node reached through $ref or allOf flattening still maps
// to one canonical pointer.
type Node struct {
	// Raw is the keyword map the node was decoded from. Nil for boolean schemas.
	Raw map[string]any
	// Bool is set for the boolean schemas true and false.
	Bool *bool

	Type       []string
	Const      any
	HasConst   bool
	Enum       []any
	HasEnum    bool
	Default    any
	HasDefault bool
	Format     *string
	Pattern    *string

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64

	MinLength     *int
	MaxLength     *int
	MinItems      *int
	MaxItems      *int
	MinProperties *int
	MaxProperties *int
	MinContains   *int
	MaxContains   *int
	UniqueItems   bool

	Properties            *sequencedmap.Map[string, *Node]
	PatternProperties     *sequencedmap.Map[string, *Node]
	AdditionalProperties  *Node
	PropertyNames         *Node
	UnevaluatedProperties *Node
	Required              []string
	DependentRequired     map[string][]string
	DependentSchemas      *sequencedmap.Map[string, *Node]

	Items       *Node
	PrefixItems []*Node
	Contains    *Node

	AllOf []*Node
	AnyOf []*Node
	OneOf []*Node
	Not   *Node
	If    *Node
	Then  *Node
	Else  *Node

	Ref           string
	DynamicRef    string
	ID            string
	Anchor        string
	DynamicAnchor string

	Defs        *sequencedmap.Map[string, *Node]
	Definitions *sequencedmap.Map[string, *Node]

	// Discriminator is the OpenAPI discriminator.propertyName, if any.
	Discriminator string
}

// IsFalse reports whether n is the boolean schema false.
func (n *Node) IsFalse() bool {
	return n != nil && n.Bool != nil && !*n.Bool
}

// IsTrue reports whether n is the boolean schema true.
func (n *Node) IsTrue() bool {
	return n != nil && n.Bool != nil && *n.Bool
}

// HasType reports whether t is one of the declared types. "number" also
// matches a declared "integer".
func (n *Node) HasType(t string) bool {
	if n == nil {
		return false
	}
	for _, have := range n.Type {
		if have == t || (t == "number" && have == "integer") {
			return true
		}
	}
	return false
}

// Has reports whether the keyword appears in the raw node.
func (n *Node) Has(keyword string) bool {
	if n == nil || n.Raw == nil {
		return false
	}
	_, ok := n.Raw[keyword]
	return ok
}

// Property returns the properties entry for name.
func (n *Node) Property(name string) (*Node, bool) {
	if n == nil || n.Properties == nil {
		return nil, false
	}
	return n.Properties.Get(name)
}

// PropertyNamesSorted returns the keys of properties in sorted order.
func (n *Node) PropertyNamesSorted() []string {
	return sortedKeys(n.propertiesMap())
}

func (n *Node) propertiesMap() *sequencedmap.Map[string, *Node] {
	if n == nil {
		return nil
	}
	return n.Properties
}

// MultipleOfRat returns multipleOf as an exact rational built from its
// shortest decimal representation, so 0.1 becomes 1/10 rather than the
// binary float approximation.
func (n *Node) MultipleOfRat() *big.Rat {
	if n == nil || n.MultipleOf == nil || *n.MultipleOf <= 0 {
		return nil
	}
	return FloatRat(*n.MultipleOf)
}

// FloatRat converts f to a rational through its shortest decimal form.
func FloatRat(f float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return new(big.Rat).SetFloat64(f)
	}
	return r
}

// Len returns the number of entries of an ordered schema map, tolerating nil.
func Len(m *sequencedmap.Map[string, *Node]) int {
	if m == nil {
		return 0
	}
	return m.Len()
}
