package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrUnknownCode is returned for codes without a registered envelope.
var ErrUnknownCode = errors.New("diag: unknown diagnostic code")

// Validator checks a diagnostic before it is surfaced.
type Validator interface {
	Validate(d Diagnostic) error
}

const envelopeBase = `{
  "type": "object",
  "required": ["code", "phase", "canonPath"],
  "properties": {
    "code": {"type": "string"},
    "phase": {"const": "generate"},
    "canonPath": {"type": "string"},
    "budget": {
      "type": "object",
      "required": ["tried", "limit", "skipped", "reason"],
      "properties": {
        "tried": {"type": "integer", "minimum": 0},
        "limit": {"type": "integer", "minimum": 0},
        "skipped": {"type": "boolean"},
        "reason": {"type": "string"}
      }
    }
  }
}`

// detailSchemas are the per-code mini-schemas applied on top of the base
// envelope.
var detailSchemas = map[Code]string{
	EvalTracePropSource: `{
  "required": ["details"],
  "properties": {"details": {
    "type": "object",
    "required": ["name", "via"],
    "properties": {
      "name": {"type": "string"},
      "via": {"type": "array", "minItems": 1, "items": {"type": "string"}}
    }
  }}
}`,
	ExclusivityTweakString: `{
  "required": ["details", "scoreDetails"],
  "properties": {
    "details": {"type": "object", "required": ["char"], "properties": {"char": {"type": "string", "minLength": 1}}},
    "scoreDetails": {
      "type": "object",
      "required": ["exclusivityRand"],
      "properties": {
        "exclusivityRand": {"type": "number", "minimum": 0, "exclusiveMaximum": 1},
        "tiebreakRand": {"type": "number", "minimum": 0, "exclusiveMaximum": 1}
      }
    }
  }
}`,
	ComplexityCapPatterns: `{
  "required": ["details", "budget"],
  "properties": {
    "details": {
      "type": "object",
      "required": ["reason"],
      "properties": {
        "reason": {"enum": ["witnessDomainExhausted", "candidateBudget", "regexComplexityCap"]},
        "alphabet": {"type": "string"},
        "maxLength": {"type": "integer", "minimum": 0},
        "tried": {"type": "integer", "minimum": 0}
      }
    },
    "budget": {"properties": {"skipped": {"const": true}, "reason": {"const": "complexityCap"}}}
  }
}`,
	IfAwareHintApplied: `{
  "required": ["details"],
  "properties": {"details": {
    "type": "object",
    "required": ["strategy", "minThenSatisfaction"],
    "properties": {
      "strategy": {"type": "string"},
      "minThenSatisfaction": {"enum": ["discriminants-only", "required-only", "required+bounds"]}
    }
  }}
}`,
	IfAwareHintSkippedInsufficientInfo: `{
  "required": ["details"],
  "properties": {"details": {
    "type": "object",
    "required": ["reason"],
    "properties": {"reason": {"type": "string"}}
  }}
}`,
	GenerateDepthCap: `{
  "required": ["details"],
  "properties": {"details": {
    "type": "object",
    "required": ["depth", "limit"],
    "properties": {
      "depth": {"type": "integer", "minimum": 0},
      "limit": {"type": "integer", "minimum": 0}
    }
  }}
}`,
}

// Registry validates diagnostics against compiled envelope schemas. A
// Registry is built per run; it holds no package-level state.
type Registry struct {
	byCode map[Code]*jsonschema.Schema
}

// NewRegistry compiles the envelope schema for every known code.
func NewRegistry() (*Registry, error) {
	c := jsonschema.NewCompiler()
	base, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeBase))
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope schema: %w", err)
	}
	if err := c.AddResource("mem://diag/envelope.json", base); err != nil {
		return nil, fmt.Errorf("failed to add envelope schema: %w", err)
	}

	r := &Registry{byCode: make(map[Code]*jsonschema.Schema, len(detailSchemas))}
	for code, src := range detailSchemas {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s schema: %w", code, err)
		}
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s schema is not an object", code)
		}
		obj["allOf"] = []any{map[string]any{"$ref": "mem://diag/envelope.json"}}
		url := "mem://diag/" + string(code) + ".json"
		if err := c.AddResource(url, obj); err != nil {
			return nil, fmt.Errorf("failed to add %s schema: %w", code, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", code, err)
		}
		r.byCode[code] = sch
	}
	return r, nil
}

// Validate checks d against the envelope registered for its code.
func (r *Registry) Validate(d Diagnostic) error {
	sch, ok := r.byCode[d.Code]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCode, d.Code)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostic: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode diagnostic: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("diagnostic %s at %q violates envelope: %w", d.Code, d.CanonPath, err)
	}
	return nil
}

// Codes lists the registered codes.
func (r *Registry) Codes() []Code {
	out := make([]Code, 0, len(r.byCode))
	for c := range r.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
