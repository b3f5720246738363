package playground

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/foundrydata/foundrygen/diag"
)

func TestGenerateJSON(t *testing.T) {
	input := `{"type": "object", "required": ["a"], "properties": {"a": {"type": "integer", "minimum": 3}}}`

	out, err := GenerateJSON(input, `{"count": 2, "seed": 9}`)
	if err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	want := []any{map[string]any{"a": 3.0}, map[string]any{"a": 3.0}}
	if diff := cmp.Diff(want, resp.Items); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}
	if resp.Seed != 9 {
		t.Errorf("Expected seed 9, got %d", resp.Seed)
	}
	if resp.Explanation != "" {
		t.Errorf("Expected no explanation, got %q", resp.Explanation)
	}

	again, err := GenerateJSON(input, `{"count": 2, "seed": 9}`)
	if err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}
	if again != out {
		t.Error("Expected identical output for identical input")
	}
}

func TestGenerateJSONDefaults(t *testing.T) {
	out, err := GenerateJSON(`{"type": "string", "minLength": 2}`, "")
	if err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}
	var resp Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if diff := cmp.Diff([]any{"aa"}, resp.Items); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}
	if resp.Seed != 424242 {
		t.Errorf("Expected default seed, got %d", resp.Seed)
	}
}

func TestGenerateJSONNormalizesSeed(t *testing.T) {
	tests := []struct {
		request string
		want    uint32
	}{
		{`{"seed": 1.5}`, 1},
		{`{"seed": -12.9}`, 4294967284},
		{`{"seed": 4294967298}`, 2},
	}
	for _, tt := range tests {
		out, err := GenerateJSON(`{"type": "null"}`, tt.request)
		if err != nil {
			t.Fatalf("GenerateJSON(%s) failed: %v", tt.request, err)
		}
		var resp Response
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.Seed != tt.want {
			t.Errorf("%s: got seed %d, want %d", tt.request, resp.Seed, tt.want)
		}
	}
}

func TestGenerateJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		request string
		wantErr string
	}{
		{"bad request", `{"type": "null"}`, `{"count": "x"}`, "invalid request"},
		{"negative count", `{"type": "null"}`, `{"count": -1}`, "count must be >= 0"},
		{"no schema", `{"canonical": {}}`, "", "failed to load schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateJSON(tt.input, tt.request)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGenerateOpenAPI(t *testing.T) {
	oas := `openapi: 3.1.0
info:
  title: Shop
  version: 1.0.0
paths: {}
components:
  schemas:
    Item:
      x-foundry-generate: {count: 2, seed: 11}
      type: object
      required: [sku]
      properties:
        sku: {type: string, pattern: '^[a-c]{2}$'}
    Color:
      x-foundry-generate: true
      enum: [blue, red]
`
	out, err := GenerateOpenAPI(oas, `{"targets": ["Item"], "alphabet": "c", "maxLength": 1}`)
	if err != nil {
		t.Fatalf("GenerateOpenAPI failed: %v", err)
	}
	var resp OpenAPIResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Targets) != 1 {
		t.Fatalf("Expected only the Item target, got %d", len(resp.Targets))
	}
	item := resp.Targets["Item"]
	if len(item.Items) != 2 || item.Seed != 11 {
		t.Fatalf("Expected count and seed from the extension, got %d items seed %d", len(item.Items), item.Seed)
	}
	if !strings.Contains(item.Explanation, "Item.properties.sku.pattern") {
		t.Errorf("Expected the capped pattern to be explained, got:\n%s", item.Explanation)
	}

	if _, err := GenerateOpenAPI(oas, `{"targets": ["Nope"]}`); err == nil {
		t.Error("Expected an error for an unknown target")
	}
}

func TestExplainDiagnostics(t *testing.T) {
	if got := ExplainDiagnostics(nil); got != "Generation finished without diagnostics." {
		t.Errorf("unexpected empty report: %q", got)
	}

	depth := diag.New(diag.GenerateDepthCap, "/properties/child", map[string]any{"depth": 6, "limit": 6})
	budget := diag.New(diag.ComplexityCapPatterns, "", map[string]any{"reason": diag.ReasonCandidateBudget})
	got := ExplainDiagnostics([]diag.Diagnostic{depth, depth, budget})

	want := `Generation finished with 3 diagnostic(s).
- Recursion stopped at the depth limit and null was generated.
  Location: properties.child
  How to fix: Make the recursive reference optional, or raise the depth limit.
  Details: depth=6, limit=6
- No string matching the pattern was found within the search limits.
  Location: (root)
  How to fix: Raise maxCandidates, or narrow the pattern so matches appear earlier.
  Details: reason=candidateBudget
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected report (-want +got):\n%s", diff)
	}
}
