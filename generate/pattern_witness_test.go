package generate

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/foundrydata/foundrygen/diag"
)

// TestAnchoredSafe tests the linear anchored-safety scan.
func TestAnchoredSafe(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`^abc$`, true},
		{`^[a-z]{1,3}$`, true},
		{`^a|b$`, true},
		{`abc$`, false},
		{`^abc`, false},
		{`^abc\$`, false},
		{`^abc\\$`, true},
		{`^(?=a)a$`, false},
		{`^(?!a)b$`, false},
		{`^(?<=a)b$`, false},
		{`^(?<name>a)$`, true},
		{`^(a)\1$`, false},
		{`^(?<n>a)\k<n>$`, false},
		{`^[\1]$`, true},
		{`^[]a]$`, true},
		{`^[^]a]$`, true},
		{`^[a$`, false},
		{`^`, false},
	}
	for _, tt := range tests {
		if got := anchoredSafe(tt.src); got != tt.want {
			t.Errorf("anchoredSafe(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

// TestPrepareAlphabet tests sorting, deduplication and surrogate removal.
func TestPrepareAlphabet(t *testing.T) {
	got := string(prepareAlphabet("cbaab\xffé"))
	if got != "abcé" {
		t.Errorf("Expected %q, got %q", "abcé", got)
	}
}

type capRecord struct {
	reason string
	tried  int
}

func newTestEnumerator(t *testing.T, src, alphabet string, maxLength, maxCandidates int, caps *[]capRecord, tried *int) *patternEnumerator {
	t.Helper()
	opts := PatternWitnessOptions{Alphabet: alphabet, MaxLength: maxLength, MaxCandidates: maxCandidates}
	en := newPatternEnumerator(regexp.MustCompile(src), src, prepareAlphabet(alphabet), opts, tried,
		func(reason string, n int) { *caps = append(*caps, capRecord{reason, n}) })
	if en == nil {
		t.Fatalf("Expected an enumerator for %q", src)
	}
	return en
}

// TestPatternEnumerationOrder tests length-then-lexicographic order over the
// sorted alphabet and exhaustion at maxLength.
func TestPatternEnumerationOrder(t *testing.T) {
	var caps []capRecord
	tried := 0
	en := newTestEnumerator(t, `^[ab]{2}$`, "ba", 2, 100, &caps, &tried)

	var got []string
	for {
		s, ok := en.next(nil)
		if !ok {
			break
		}
		got = append(got, s)
	}
	if diff := cmp.Diff([]string{"aa", "ab", "ba", "bb"}, got); diff != "" {
		t.Fatalf("unexpected witnesses (-want +got):\n%s", diff)
	}
	// "", a, b, aa, ab, ba, bb
	want := []capRecord{{diag.ReasonWitnessDomainExhausted, 7}}
	if diff := cmp.Diff(want, caps, cmp.AllowUnexported(capRecord{})); diff != "" {
		t.Errorf("unexpected caps (-want +got):\n%s", diff)
	}
	if tried != 7 {
		t.Errorf("Expected 7 shared trials, got %d", tried)
	}
	if _, ok := en.next(nil); ok {
		t.Error("Expected a stopped enumerator to stay stopped")
	}
	if len(caps) != 1 {
		t.Errorf("Expected the cap to be reported once, got %d", len(caps))
	}
}

// TestPatternCandidateBudget tests that the trial budget stops the search.
func TestPatternCandidateBudget(t *testing.T) {
	var caps []capRecord
	tried := 0
	en := newTestEnumerator(t, `^c$`, "ab", 5, 3, &caps, &tried)
	if _, ok := en.next(nil); ok {
		t.Fatal("Expected no witness")
	}
	want := []capRecord{{diag.ReasonCandidateBudget, 3}}
	if diff := cmp.Diff(want, caps, cmp.AllowUnexported(capRecord{})); diff != "" {
		t.Errorf("unexpected caps (-want +got):\n%s", diff)
	}
}

// TestPatternPredicate tests that rejected candidates still count as trials.
func TestPatternPredicate(t *testing.T) {
	var caps []capRecord
	tried := 0
	en := newTestEnumerator(t, `^[ab]+$`, "ab", 3, 100, &caps, &tried)
	s, ok := en.next(func(c string) bool { return len(c) == 2 })
	if !ok || s != "aa" {
		t.Fatalf("Expected aa, got %q (%v)", s, ok)
	}
	if tried != 4 {
		t.Errorf("Expected 4 trials, got %d", tried)
	}
}

// TestPatternIneligible tests patterns that get no enumerator.
func TestPatternIneligible(t *testing.T) {
	var caps []capRecord
	onCap := func(reason string, n int) { caps = append(caps, capRecord{reason, n}) }
	opts := PatternWitnessOptions{MaxLength: 4, MaxCandidates: 10}
	alpha := prepareAlphabet("ab")

	if en := newPatternEnumerator(regexp.MustCompile(`a+`), `a+`, alpha, opts, nil, onCap); en != nil {
		t.Error("Expected no enumerator for an unanchored pattern")
	}
	if en := newPatternEnumerator(nil, `^(a$`, alpha, opts, nil, onCap); en != nil {
		t.Error("Expected no enumerator for an invalid pattern")
	}
	if len(caps) != 0 {
		t.Errorf("Expected no caps yet, got %v", caps)
	}

	long := "^" + strings.Repeat("a", maxPatternSource) + "$"
	if en := newPatternEnumerator(nil, long, alpha, opts, nil, onCap); en != nil {
		t.Error("Expected no enumerator for an oversized pattern")
	}
	want := []capRecord{{diag.ReasonRegexComplexityCap, 0}}
	if diff := cmp.Diff(want, caps, cmp.AllowUnexported(capRecord{})); diff != "" {
		t.Errorf("unexpected caps (-want +got):\n%s", diff)
	}
}

// TestPatternCapDiagnostic tests the COMPLEXITY_CAP_PATTERNS record emitted
// when a pattern property has no witness.
func TestPatternCapDiagnostic(t *testing.T) {
	opts := testOptions(1)
	opts.Plan.PatternWitness.Alphabet = "ab"
	opts.Plan.PatternWitness.MaxLength = 2
	res := mustGenerate(t, `{
		"patternProperties": {"^z$": {"type": "string"}},
		"minProperties": 1
	}`, opts)

	if diff := cmp.Diff([]any{map[string]any{}}, res.Items); diff != "" {
		t.Fatalf("unexpected items (-want +got):\n%s", diff)
	}
	var caps []diag.Diagnostic
	for _, d := range res.Diagnostics {
		if d.Code == diag.ComplexityCapPatterns {
			caps = append(caps, d)
		}
	}
	if len(caps) != 1 {
		t.Fatalf("Expected one cap record, got %v", res.Diagnostics)
	}
	d := caps[0]
	if d.CanonPath != "/patternProperties/^z$" {
		t.Errorf("unexpected canonPath %q", d.CanonPath)
	}
	if d.Details["reason"] != diag.ReasonWitnessDomainExhausted {
		t.Errorf("unexpected reason %v", d.Details["reason"])
	}
	if d.Budget == nil || !d.Budget.Skipped || d.Budget.Reason != diag.ReasonComplexityCap || d.Budget.Tried != 7 {
		t.Errorf("unexpected budget %+v", d.Budget)
	}
}

// TestPatternCapUsesIndexedPointer tests that a pattern merged through allOf
// is reported at the pointer the index assigned to it.
func TestPatternCapUsesIndexedPointer(t *testing.T) {
	opts := DefaultOptions()
	opts.Plan.PatternWitness.Alphabet = "ab"
	opts.Plan.PatternWitness.MaxLength = 1
	e := newTestEngine(t, `{
		"allOf": [{"patternProperties": {"^zz$": {"type": "string"}}}],
		"minProperties": 1
	}`, opts)
	e.generateItem(0)

	var caps []diag.Diagnostic
	for _, d := range e.diags.Entries() {
		if d.Code == diag.ComplexityCapPatterns {
			caps = append(caps, d)
		}
	}
	if len(caps) != 1 {
		t.Fatalf("Expected one cap record, got %v", caps)
	}
	if got, want := caps[0].CanonPath, "/allOf/0/patternProperties/^zz$"; got != want {
		t.Errorf("Expected canonPath %q, got %q", want, got)
	}
	if _, ok := e.index.Lookup(caps[0].CanonPath); !ok {
		t.Errorf("canonPath %q is not in the pointer index", caps[0].CanonPath)
	}
}
