// Package playground runs the generator on string inputs and renders
// diagnostics as user-facing explanations, for the browser build.
package playground

import (
	"fmt"
	"sort"
	"strings"

	"github.com/foundrydata/foundrygen/diag"
	"github.com/foundrydata/foundrygen/schema"
)

// ExplainDiagnostics turns generator diagnostics into a readable report.
// Records sharing a code and location are reported once.
func ExplainDiagnostics(diags []diag.Diagnostic) string {
	if len(diags) == 0 {
		return "Generation finished without diagnostics."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generation finished with %d diagnostic(s).\n", len(diags))

	seen := make(map[string]bool, len(diags))
	for _, d := range diags {
		key := string(d.Code) + "\x00" + d.CanonPath
		if seen[key] {
			continue
		}
		seen[key] = true

		msg, hint := classifyAndHint(d)
		fmt.Fprintf(&b, "- %s\n", msg)
		fmt.Fprintf(&b, "  Location: %s\n", deriveLocation(d.CanonPath))
		if hint != "" {
			fmt.Fprintf(&b, "  How to fix: %s\n", hint)
		}
		if details := extractDetails(d); details != "" {
			fmt.Fprintf(&b, "  Details: %s\n", details)
		}
	}
	return b.String()
}

// deriveLocation renders a canonical pointer as a dot path.
func deriveLocation(ptr string) string {
	if ptr == "" {
		return "(root)"
	}
	tokens := schema.Split(ptr)
	return strings.Join(tokens, ".")
}

func classifyAndHint(d diag.Diagnostic) (msg, hint string) {
	switch d.Code {
	case diag.ComplexityCapPatterns:
		msg = "No string matching the pattern was found within the search limits."
		switch d.Details["reason"] {
		case diag.ReasonRegexComplexityCap:
			hint = "The pattern is too long to search. Shorten it, or add a const or enum."
		case diag.ReasonCandidateBudget:
			hint = "Raise maxCandidates, or narrow the pattern so matches appear earlier."
		default:
			hint = "Add the characters the pattern needs to the alphabet, or raise maxLength."
		}
	case diag.GenerateDepthCap:
		msg = "Recursion stopped at the depth limit and null was generated."
		hint = "Make the recursive reference optional, or raise the depth limit."
	case diag.IfAwareHintSkippedInsufficientInfo:
		msg = "A conditional could not be decided from the object built so far."
		hint = "Require the discriminating property named in \"if\", or give it a const."
	case diag.IfAwareHintApplied:
		msg = "A conditional was evaluated and its branch applied."
	case diag.ExclusivityTweakString:
		msg = "A oneOf branch was selected; its exclusivity value is recorded."
	case diag.EvalTracePropSource:
		msg = "A property was proven evaluated by a sibling keyword."
	default:
		msg = "Generator diagnostic " + string(d.Code) + "."
	}
	return msg, hint
}

func extractDetails(d diag.Diagnostic) string {
	keys := make([]string, 0, len(d.Details))
	for k := range d.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, d.Details[k]))
	}
	return strings.Join(parts, ", ")
}
