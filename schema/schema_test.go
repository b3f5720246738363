package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEscapeToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a/b", "a~1b"},
		{"a~b", "a~0b"},
		{"~/", "~0~1"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := EscapeToken(tc.in)
			if got != tc.want {
				t.Fatalf("EscapeToken(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if back := UnescapeToken(got); back != tc.in {
				t.Fatalf("UnescapeToken(%q) = %q, want %q", got, back, tc.in)
			}
		})
	}
}

func TestSplitAndJoin(t *testing.T) {
	ptr := Join("", "properties", "a/b", "items")
	if ptr != "/properties/a~1b/items" {
		t.Fatalf("Join = %q", ptr)
	}
	if diff := cmp.Diff([]string{"properties", "a/b", "items"}, Split(ptr)); diff != "" {
		t.Fatalf("Split mismatch (-want +got):\n%s", diff)
	}
	if Split("") != nil {
		t.Fatal("root pointer should have no segments")
	}
	parent, ok := Parent(ptr)
	if !ok || parent != "/properties/a~1b" {
		t.Fatalf("Parent = %q, %v", parent, ok)
	}
}

func TestFromFragment(t *testing.T) {
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"#", "", true},
		{"#/$defs/a%20b", "/$defs/a b", true},
		{"#/$defs/%41", "/$defs/A", true},
		{"#/$defs/100%25", "/$defs/100%", true},
		{"#/$defs/%zz", "/$defs/%zz", true},
		{"#anchor", "", false},
		{"other.json#/a", "", false},
	}
	for _, tt := range tests {
		got, ok := FromFragment(tt.ref)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FromFragment(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFromValueKeywords(t *testing.T) {
	n := MustDecode(`{
		"type": ["integer", "null"],
		"minimum": 1,
		"exclusiveMaximum": 10,
		"multipleOf": 0.1,
		"required": ["a"],
		"properties": {"b": {"type": "string"}, "a": {"const": 1}},
		"dependencies": {"a": ["b"], "c": {"required": ["d"]}},
		"items": [{"type": "string"}],
		"additionalItems": false
	}`)
	if !n.HasType("integer") || !n.HasType("number") || !n.HasType("null") {
		t.Fatalf("types = %v", n.Type)
	}
	if n.Minimum == nil || *n.Minimum != 1 {
		t.Fatalf("minimum = %v", n.Minimum)
	}
	if n.ExclusiveMaximum == nil || *n.ExclusiveMaximum != 10 {
		t.Fatalf("exclusiveMaximum = %v", n.ExclusiveMaximum)
	}
	if got := n.MultipleOfRat().String(); got != "1/10" {
		t.Fatalf("multipleOf rat = %s, want 1/10", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, n.PropertyNamesSorted()); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string][]string{"a": {"b"}}, n.DependentRequired); diff != "" {
		t.Fatalf("dependentRequired mismatch (-want +got):\n%s", diff)
	}
	if _, ok := n.DependentSchemas.Get("c"); !ok {
		t.Fatal("dependencies object form should become dependentSchemas")
	}
	if len(n.PrefixItems) != 1 || !n.Items.IsFalse() {
		t.Fatal("tuple items should split into prefixItems and items=false")
	}
	a, _ := n.Property("a")
	if !a.HasConst || a.Const != float64(1) {
		t.Fatalf("const = %#v, want float64(1)", a.Const)
	}
}

func TestDraft4ExclusiveBounds(t *testing.T) {
	n := MustDecode(`{"minimum": 2, "exclusiveMinimum": true, "maximum": 5}`)
	if n.Minimum != nil || n.ExclusiveMinimum == nil || *n.ExclusiveMinimum != 2 {
		t.Fatalf("boolean exclusiveMinimum not folded: min=%v exMin=%v", n.Minimum, n.ExclusiveMinimum)
	}
	if n.Maximum == nil || *n.Maximum != 5 {
		t.Fatalf("maximum = %v", n.Maximum)
	}
}

func TestPointerIndex(t *testing.T) {
	root := MustDecode(`{
		"$defs": {"Name": {"$anchor": "name", "type": "string"}},
		"properties": {
			"a/b": {"$ref": "#/$defs/Name"},
			"list": {"type": "array", "items": {"type": "integer"}}
		},
		"allOf": [{"required": ["list"]}]
	}`)
	idx := NewPointerIndex(root)

	tests := []struct {
		ptr string
	}{
		{""},
		{"/$defs/Name"},
		{"/properties/a~1b"},
		{"/properties/list/items"},
		{"/allOf/0"},
	}
	for _, tc := range tests {
		n, ok := idx.Lookup(tc.ptr)
		if !ok {
			t.Fatalf("Lookup(%q) failed", tc.ptr)
		}
		if got, _ := idx.PointerOf(n); got != tc.ptr {
			t.Fatalf("PointerOf(Lookup(%q)) = %q", tc.ptr, got)
		}
	}

	target, ptr, ok := idx.Resolve("#/$defs/Name")
	if !ok || ptr != "/$defs/Name" || !target.HasType("string") {
		t.Fatalf("Resolve pointer ref: ok=%v ptr=%q", ok, ptr)
	}
	byAnchor, ptr, ok := idx.Resolve("#name")
	if !ok || byAnchor != target || ptr != "/$defs/Name" {
		t.Fatalf("Resolve anchor ref: ok=%v ptr=%q", ok, ptr)
	}
	if _, _, ok := idx.Resolve("https://example.com/other.json"); ok {
		t.Fatal("external refs must stay unresolved")
	}
}

func TestResolveDynamicPrefersOutermost(t *testing.T) {
	root := MustDecode(`{
		"$dynamicAnchor": "node",
		"type": "object",
		"properties": {
			"inner": {
				"$dynamicAnchor": "node",
				"properties": {"leaf": {"$dynamicRef": "#node"}}
			}
		}
	}`)
	idx := NewPointerIndex(root)
	from := "/properties/inner/properties/leaf"

	_, ptr, ok := idx.ResolveDynamic("#node", from, 2)
	if !ok || ptr != "" {
		t.Fatalf("two hops should reach the root anchor, got %q ok=%v", ptr, ok)
	}
	_, ptr, ok = idx.ResolveDynamic("#node", from, 1)
	if !ok || ptr != "/properties/inner" {
		t.Fatalf("one hop should stop at the nearest anchor, got %q ok=%v", ptr, ok)
	}
}

func TestBuilders(t *testing.T) {
	obj := ObjectType(map[string]*Node{
		"id":   StringType(),
		"tags": ArrayType(StringType()),
	}, "tags", "id")
	if diff := cmp.Diff([]string{"id", "tags"}, obj.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	tags, ok := obj.Property("tags")
	if !ok || tags.Items == nil || !tags.Items.HasType("string") {
		t.Fatal("tags should be an array of strings")
	}
	if !False().IsFalse() || Top().IsFalse() {
		t.Fatal("boolean builders mismatch")
	}
}
