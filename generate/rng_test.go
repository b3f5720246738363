package generate

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/foundrydata/foundrygen/schema"
)

// TestRNGDeterminism tests that equal seeds give equal streams.
func TestRNGDeterminism(t *testing.T) {
	a, b := newRNG(42), newRNG(42)
	for i := 0; i < 100; i++ {
		x, y := a.next(), b.next()
		if x != y {
			t.Fatalf("streams diverged at %d: %d != %d", i, x, y)
		}
	}
	zero := newRNG(0)
	if zero.next() == 0 {
		t.Error("Expected the zero seed to be remapped")
	}
	r := newRNG(7)
	for i := 0; i < 1000; i++ {
		if f := r.float(); f < 0 || f >= 1 {
			t.Fatalf("float out of range: %v", f)
		}
	}
}

// TestDerivedSeeds tests that path and item seeds separate streams.
func TestDerivedSeeds(t *testing.T) {
	if pathSeed(1, "/a") == pathSeed(1, "/b") {
		t.Error("Expected distinct path seeds")
	}
	if pathSeed(1, "/a") == pathSeed(2, "/a") {
		t.Error("Expected the base seed to matter")
	}
	if pathSeed(9, "/oneOf") != pathSeed(9, "/oneOf") {
		t.Error("Expected path seeds to be stable")
	}
	seen := map[uint32]bool{}
	for i := 0; i < 64; i++ {
		seen[itemSeed(DefaultSeed, i)] = true
	}
	if len(seen) != 64 {
		t.Errorf("Expected 64 distinct item seeds, got %d", len(seen))
	}
}

// TestNormalizeSeed tests the number-to-seed mapping.
func TestNormalizeSeed(t *testing.T) {
	tests := []struct {
		in   float64
		want uint32
	}{
		{math.NaN(), DefaultSeed},
		{math.Inf(1), DefaultSeed},
		{-1, 4294967295},
		{4294967301, 5},
		{12.9, 12},
		{-12.9, 4294967284},
		{0, 0},
	}
	for _, tt := range tests {
		if got := NormalizeSeed(tt.in); got != tt.want {
			t.Errorf("NormalizeSeed(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestFingerprint tests structural equality of generated values.
func TestFingerprint(t *testing.T) {
	fp := newFingerprinter()
	a := map[string]any{"a": 1, "b": []any{1.0, "x"}}
	b := map[string]any{"b": []any{1, "x"}, "a": 1.0}
	if fp.key(a) != fp.key(b) {
		t.Error("Expected key order and number representation to be irrelevant")
	}
	if !fp.equal(0.0, math.Copysign(0, -1)) {
		t.Error("Expected 0 and -0 to be equal")
	}
	if fp.equal("1", 1.0) {
		t.Error("Expected a string and a number to differ")
	}
	if fp.equal([]any{1.0, 2.0}, []any{2.0, 1.0}) {
		t.Error("Expected array order to matter")
	}
	if fp.equal(nil, false) {
		t.Error("Expected null and false to differ")
	}
}

// TestLogger tests level filtering and fields.
func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LevelInfo, &buf).With(map[string]any{"component": "generate", "note": "two words"})
	log.Debugf("hidden")
	log.Infof("hello %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked: %q", out)
	}
	if !strings.HasPrefix(out, "[INFO] ") || !strings.Contains(out, `hello 1 component=generate note="two words"`) {
		t.Errorf("unexpected log line %q", out)
	}

	for in, want := range map[string]LogLevel{"debug": LevelDebug, "WARNING": LevelWarn, "error": LevelError, "bogus": LevelWarn} {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

// TestNodeSummary tests the compact node descriptions used in debug logs.
func TestNodeSummary(t *testing.T) {
	if got := nodeSummary(nil); got == "" {
		t.Error("Expected a summary for nil")
	}
	got := nodeSummary(schema.MustDecode(`{"type": "object", "properties": {"b": true, "a": true}}`))
	if !strings.Contains(got, "object") {
		t.Errorf("Expected the type in %q", got)
	}
}
