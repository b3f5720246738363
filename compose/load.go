package compose

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/foundrydata/foundrygen/schema"
)

// Load reads a compose document (JSON or YAML). A document without a
// "canonical" member is taken to be a bare canonical schema and wrapped with
// FromSchema.
//
// Layout:
//
//	canonical:
//	  schema: {...}
//	  ptrMap: {"/anyOf/0": "/anyOf/0"}
//	  notes: [{canonPath: "", code: PNAMES_REWRITE_APPLIED}]
//	diag:
//	  nodes: {"/oneOf": {chosenBranch: {index: 1, score: 0.5}}}
//	coverageIndex:
//	  "": {names: [a, b], provenance: [properties]}
//	containsBag:
//	  "/properties/list": [{schema: {const: 3}, min: 1, max: 2}]
func Load(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose document: %w", err)
	}
	doc, err := schema.DecodeValue(data)
	if err != nil {
		return nil, err
	}
	top, ok := doc.(map[string]any)
	if !ok {
		if b, isBool := doc.(bool); isBool {
			return FromSchema(schema.FromValue(b)), nil
		}
		return nil, ErrNoSchema
	}
	canonical, ok := top["canonical"].(map[string]any)
	if !ok {
		return FromSchema(schema.FromValue(top)), nil
	}
	rawSchema, ok := canonical["schema"]
	if !ok {
		return nil, ErrNoSchema
	}

	root := schema.FromValue(rawSchema)
	res := FromSchema(root)

	if pm, ok := canonical["ptrMap"].(map[string]any); ok {
		res.Canonical.PtrMap = make(map[string]string, len(pm))
		for k, v := range pm {
			if s, ok := v.(string); ok {
				res.Canonical.PtrMap[k] = s
			}
		}
	}
	if notes, ok := canonical["notes"]; ok {
		if err := remarshal(notes, &res.Canonical.Notes); err != nil {
			return nil, fmt.Errorf("invalid canonical.notes: %w", err)
		}
	}
	if d, ok := top["diag"].(map[string]any); ok {
		if nodes, ok := d["nodes"]; ok {
			if err := remarshal(nodes, &res.Diag.Nodes); err != nil {
				return nil, fmt.Errorf("invalid diag.nodes: %w", err)
			}
		}
	}
	if cov, ok := top["coverageIndex"].(map[string]any); ok {
		res.CoverageIndex = make(map[string]Coverage, len(cov))
		for path, entry := range cov {
			var names struct {
				Names      []string `yaml:"names"`
				Provenance []string `yaml:"provenance"`
			}
			if err := remarshal(entry, &names); err != nil {
				return nil, fmt.Errorf("invalid coverageIndex[%q]: %w", path, err)
			}
			res.CoverageIndex[path] = NewStaticCoverage(names.Names, names.Provenance...)
		}
	}
	if bag, ok := top["containsBag"].(map[string]any); ok {
		res.ContainsBag = make(map[string][]ContainsNeed, len(bag))
		for _, path := range sortedKeys(bag) {
			list, ok := bag[path].([]any)
			if !ok {
				return nil, fmt.Errorf("invalid containsBag[%q]: not a list", path)
			}
			for _, e := range list {
				need, err := decodeNeed(e)
				if err != nil {
					return nil, fmt.Errorf("invalid containsBag[%q]: %w", path, err)
				}
				res.ContainsBag[path] = append(res.ContainsBag[path], need)
			}
		}
	}
	return res, nil
}

func decodeNeed(v any) (ContainsNeed, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return ContainsNeed{}, fmt.Errorf("contains need is not an object")
	}
	need := ContainsNeed{Schema: schema.FromValue(m["schema"]), Min: 1}
	if f, ok := schema.ToFloat(m["min"]); ok && f >= 0 {
		need.Min = int(f)
	}
	if f, ok := schema.ToFloat(m["max"]); ok && f >= 0 {
		max := int(f)
		need.Max = &max
	}
	return need, nil
}

// remarshal converts a decoded generic value into a typed struct through
// YAML, reusing the struct tags.
func remarshal(in any, out any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
