// Package oasload builds generation inputs from an OpenAPI 3.1 document.
//
// Schemas under components.schemas that carry the x-foundry-generate
// extension become targets. Each target is wrapped as a canonical schema
// whose $defs hold every component schema, so local references between
// components keep resolving:
//
//	components:
//	  schemas:
//	    Pet:
//	      x-foundry-generate: {count: 3, seed: 7}
//	      type: object
//	      properties:
//	        owner: {$ref: '#/components/schemas/Owner'}
package oasload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/speakeasy-api/openapi/jsonschema/oas3"
	"github.com/speakeasy-api/openapi/openapi"
	"gopkg.in/yaml.v3"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/schema"
)

// Extension marks a component schema as a generation target. Its value is
// either a boolean or a mapping with optional count and seed.
const Extension = "x-foundry-generate"

const componentRefPrefix = "#/components/schemas/"

// ErrNoTargets is returned when no component schema is marked.
var ErrNoTargets = errors.New("oasload: no schema is marked with " + Extension)

// Options configures Load.
type Options struct {
	// Strict turns OpenAPI validation errors into a load failure instead of
	// warnings.
	Strict bool
}

// Target is one marked component schema, ready for generation.
type Target struct {
	Name  string
	Count int      // 0 when the extension does not set one
	Seed  *float64 // nil when the extension does not set one

	Compose *compose.Result
	// Source is the wrapped document the canonical pointers refer to. It
	// doubles as the source schema for branch validation.
	Source map[string]any
}

// Result is the outcome of loading one document.
type Result struct {
	Targets  []Target
	Warnings []string
}

type targetConfig struct {
	Count *int     `yaml:"count"`
	Seed  *float64 `yaml:"seed"`
}

// Load parses an OpenAPI document (YAML or JSON) and returns its targets in
// name order.
func Load(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI document: %w", err)
	}

	doc, validationErrs, err := openapi.Unmarshal(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	res := &Result{}
	if len(validationErrs) > 0 {
		if opts.Strict {
			return nil, fmt.Errorf("OpenAPI validation failed: %v", validationErrs[0])
		}
		for _, verr := range validationErrs {
			res.Warnings = append(res.Warnings, verr.Error())
		}
	}

	configs, err := markedComponents(doc)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, strayMarks(ctx, doc)...)
	if len(configs) == 0 {
		return nil, ErrNoTargets
	}

	defs, err := componentSchemas(data)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := defs[name]; !ok {
			return nil, fmt.Errorf("component schema %q not found in document", name)
		}
		source := map[string]any{
			"$defs": defs,
			"$ref":  "#/$defs/" + schema.EscapeToken(name),
		}
		t := Target{
			Name:    name,
			Compose: compose.FromSchema(schema.FromValue(source)),
			Source:  source,
		}
		cfg := configs[name]
		if cfg.Count != nil {
			t.Count = *cfg.Count
		}
		t.Seed = cfg.Seed
		res.Targets = append(res.Targets, t)
	}
	return res, nil
}

// markedComponents returns the extension config of every marked component
// schema. A false extension value unmarks the schema.
func markedComponents(doc *openapi.OpenAPI) (map[string]targetConfig, error) {
	out := make(map[string]targetConfig)
	if doc == nil || doc.Components == nil || doc.Components.Schemas == nil {
		return out, nil
	}
	for name, js := range doc.Components.Schemas.All() {
		node, ok := extension(js)
		if !ok {
			continue
		}
		cfg, enabled, err := decodeConfig(node)
		if err != nil {
			return nil, fmt.Errorf("components.schemas.%s: %w", name, err)
		}
		if enabled {
			out[name] = cfg
		}
	}
	return out, nil
}

// strayMarks reports schemas carrying the extension outside
// components.schemas, where it has no effect.
func strayMarks(ctx context.Context, doc *openapi.OpenAPI) []string {
	components := make(map[*oas3.JSONSchema[oas3.Referenceable]]bool)
	if doc.Components != nil && doc.Components.Schemas != nil {
		for _, js := range doc.Components.Schemas.All() {
			components[js] = true
		}
	}

	var warnings []string
	for item := range openapi.Walk(ctx, doc) {
		err := item.Match(openapi.Matcher{
			Schema: func(js *oas3.JSONSchema[oas3.Referenceable]) error {
				if _, ok := extension(js); ok && !components[js] {
					warnings = append(warnings, fmt.Sprintf("%v: %s is ignored outside components.schemas", item.Location, Extension))
				}
				return nil
			},
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("walk error: %v", err))
		}
	}
	return warnings
}

func extension(js *oas3.JSONSchema[oas3.Referenceable]) (*yaml.Node, bool) {
	if js == nil || js.GetExtensions() == nil {
		return nil, false
	}
	return js.GetExtensions().Get(Extension)
}

func decodeConfig(node *yaml.Node) (targetConfig, bool, error) {
	var cfg targetConfig
	switch node.Kind {
	case yaml.ScalarNode:
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return cfg, false, fmt.Errorf("%s must be a boolean or a mapping: %w", Extension, err)
		}
		return cfg, enabled, nil
	case yaml.MappingNode:
		if err := node.Decode(&cfg); err != nil {
			return cfg, false, fmt.Errorf("invalid %s: %w", Extension, err)
		}
		if cfg.Count != nil && *cfg.Count < 0 {
			return cfg, false, fmt.Errorf("invalid %s: count must not be negative", Extension)
		}
		return cfg, true, nil
	}
	return cfg, false, fmt.Errorf("%s must be a boolean or a mapping", Extension)
}

// componentSchemas decodes components.schemas from the raw document with
// component references rewritten to $defs references.
func componentSchemas(data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAPI document: %w", err)
	}
	top, _ := schema.Normalize(raw).(map[string]any)
	components, _ := top["components"].(map[string]any)
	schemas, _ := components["schemas"].(map[string]any)
	if schemas == nil {
		return map[string]any{}, nil
	}
	return rewriteRefs(schemas).(map[string]any), nil
}

func rewriteRefs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if s, ok := val.(string); ok && (k == "$ref" || k == "$dynamicRef") && strings.HasPrefix(s, componentRefPrefix) {
				out[k] = "#/$defs/" + strings.TrimPrefix(s, componentRefPrefix)
				continue
			}
			out[k] = rewriteRefs(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = rewriteRefs(val)
		}
		return out
	}
	return v
}
