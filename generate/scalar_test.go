package generate

import (
	"math"
	"math/big"
	"testing"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/schema"
)

func newTestEngine(t *testing.T, doc string, opts Options) *engine {
	t.Helper()
	opts.Logger = NopLogger()
	e, err := newEngine(compose.FromSchema(schema.MustDecode(doc)), opts.withDefaults())
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}
	return e
}

// TestNumberDefault tests clamping and multipleOf alignment of numeric leaves.
func TestNumberDefault(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want float64
	}{
		{"unconstrained", `{"type": "number"}`, 0},
		{"integer minimum and multipleOf", `{"type": "integer", "minimum": 1, "multipleOf": 3}`, 3},
		{"open lower bound", `{"type": "number", "exclusiveMinimum": 0, "maximum": 10}`, 1},
		{"narrow open interval", `{"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1}`, 0.5},
		{"integer open upper bound", `{"type": "integer", "exclusiveMaximum": 0}`, -1},
		{"decimal multipleOf", `{"type": "number", "minimum": 0.15, "multipleOf": 0.1}`, 0.2},
		{"integer with fractional multipleOf", `{"type": "integer", "minimum": 0.2, "multipleOf": 0.5}`, 1},
		{"upper bound forces alignDown", `{"type": "number", "minimum": -10, "maximum": -4, "multipleOf": 3}`, -6},
		{"allOf bounds tighten", `{"allOf": [{"type": "integer", "minimum": 2}, {"minimum": 5}]}`, 5},
		{"allOf multipleOf lcm", `{"allOf": [{"type": "integer", "multipleOf": 4}, {"multipleOf": 6}], "minimum": 1}`, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.doc, DefaultOptions())
			got := e.synthScalar(e.index.Root(), "", 0)
			f, ok := got.(float64)
			if !ok {
				t.Fatalf("Expected a number, got %T (%v)", got, got)
			}
			if math.Abs(f-tt.want) > 1e-12 {
				t.Errorf("Expected %v, got %v", tt.want, f)
			}
			if math.Signbit(f) && f == 0 {
				t.Error("Expected positive zero")
			}
		})
	}
}

// TestSynthScalarPriority tests const, enum, format and type default order.
func TestSynthScalarPriority(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want any
	}{
		{"const wins", `{"type": "string", "const": "c", "enum": ["e"]}`, "c"},
		{"enum picks type-compatible member", `{"type": "integer", "enum": ["x", 4]}`, 4.0},
		{"enum falls back to first", `{"type": "boolean", "enum": ["x", 4]}`, "x"},
		{"boolean default", `{"type": "boolean", "default": true}`, true},
		{"null", `{"type": "null"}`, nil},
		{"nullable string", `{"type": ["null", "string"], "minLength": 2}`, "aa"},
		{"string pad", `{"type": "string", "minLength": 3}`, "aaa"},
		{"pattern witness", `{"type": "string", "pattern": "^b[0-9]$"}`, "b0"},
		{"unanchored pattern keeps pad", `{"type": "string", "pattern": "z+", "minLength": 1}`, "a"},
		{"untyped default", `{"default": {"k": 1}}`, map[string]any{"k": 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, tt.doc, DefaultOptions())
			got := e.synthScalar(e.index.Root(), "", 0)
			if !e.fp.equal(tt.want, got) {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

// TestFormatValues tests that built-in formats validate against strfmt.
func TestFormatValues(t *testing.T) {
	for _, format := range []string{"date-time", "date", "uuid", "email", "uri", "hostname", "ipv4", "ipv6"} {
		t.Run(format, func(t *testing.T) {
			opts := DefaultOptions()
			opts.ValidateFormats = true
			e := newTestEngine(t, `{"type": "string", "format": "`+format+`"}`, opts)
			s, ok := e.formatValue(format, &scalarConstraints{}, "", 3)
			if !ok {
				t.Fatalf("Expected a valid %s value, got %q", format, s)
			}
			again, _ := e.formatValue(format, &scalarConstraints{}, "", 3)
			if again != s {
				t.Errorf("Expected a stable value, got %q then %q", s, again)
			}
		})
	}
}

// TestFormatRegistry tests custom generators and the fallback for unknown
// formats.
func TestFormatRegistry(t *testing.T) {
	reg := DefaultFormats()
	reg.Register("sku", func(seed uint32) string { return "SKU-1" })

	opts := DefaultOptions()
	opts.Formats = reg
	e := newTestEngine(t, `{"type": "string", "format": "sku"}`, opts)
	if got := e.synthScalar(e.index.Root(), "", 0); got != "SKU-1" {
		t.Errorf("Expected custom format value, got %v", got)
	}

	e = newTestEngine(t, `{"type": "string", "format": "no-such-format", "minLength": 1}`, DefaultOptions())
	if got := e.synthScalar(e.index.Root(), "", 0); got != "a" {
		t.Errorf("Expected the padded default for an unknown format, got %v", got)
	}

	names := reg.Names()
	if len(names) == 0 || names[0] != "date" {
		t.Errorf("Expected sorted names starting with date, got %v", names)
	}
}

// TestRationalMath tests exact lcm and the bit-cap fallback.
func TestRationalMath(t *testing.T) {
	rm := rationalMath{opts: DefaultOptions().Plan.Rational}

	third := new(big.Rat).SetFrac64(1, 3)
	if got := rm.lcm(schema.FloatRat(0.5), third); got.RatString() != "1" {
		t.Errorf("Expected lcm(1/2, 1/3) = 1, got %s", got.RatString())
	}
	if got := rm.lcm(schema.FloatRat(0.4), schema.FloatRat(0.6)); got.RatString() != "6/5" {
		t.Errorf("Expected lcm(0.4, 0.6) = 6/5, got %s", got.RatString())
	}
	if got := rm.alignUp(0.15, schema.FloatRat(0.1)); got != 0.2 {
		t.Errorf("Expected 0.2, got %v", got)
	}
	if got := rm.alignDown(-0.15, schema.FloatRat(0.1)); got != -0.2 {
		t.Errorf("Expected -0.2, got %v", got)
	}
	if !rm.isMultiple(0.3, schema.FloatRat(0.1)) {
		t.Error("Expected 0.3 to be a multiple of 0.1")
	}

	tiny := rationalMath{opts: RationalOptions{Fallback: RationalFallbackFloat, MaxRatBits: 1}}
	if _, exact := tiny.step(schema.FloatRat(2)); exact {
		t.Error("Expected the float fallback past the bit cap")
	}
	if got := tiny.alignUp(7, schema.FloatRat(2)); got != 8 {
		t.Errorf("Expected 8, got %v", got)
	}
}

// TestPadUsesAlphabetAsGiven tests that string padding takes the first
// configured character, not the first in sorted order.
func TestPadUsesAlphabetAsGiven(t *testing.T) {
	opts := DefaultOptions()
	opts.Plan.PatternWitness.Alphabet = "zab"
	e := newTestEngine(t, `{"type": "string", "minLength": 2}`, opts)
	if got := e.generateItem(0); got != "zz" {
		t.Errorf("Expected %q, got %v", "zz", got)
	}
}
