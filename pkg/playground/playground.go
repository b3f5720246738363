package playground

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/diag"
	"github.com/foundrydata/foundrygen/generate"
	"github.com/foundrydata/foundrygen/oasload"
)

// Request carries the playground settings. Zero fields keep the generator
// defaults.
type Request struct {
	Count         *int     `json:"count,omitempty"`
	Seed          *float64 `json:"seed,omitempty"`
	Alphabet      string   `json:"alphabet,omitempty"`
	MaxLength     int      `json:"maxLength,omitempty"`
	MaxCandidates int      `json:"maxCandidates,omitempty"`
	Conditionals  string   `json:"conditionals,omitempty"`
	ThenPolicy    string   `json:"thenPolicy,omitempty"`
	Metrics       bool     `json:"metrics,omitempty"`
	Strict        bool     `json:"strict,omitempty"`
	Targets       []string `json:"targets,omitempty"`
}

// Response is the payload returned for one generated schema.
type Response struct {
	Items       []any             `json:"items"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Metrics     generate.Metrics  `json:"metrics"`
	Seed        uint32            `json:"seed"`
	Explanation string            `json:"explanation,omitempty"`
}

// OpenAPIResponse holds one Response per marked component schema.
type OpenAPIResponse struct {
	Targets  map[string]Response `json:"targets"`
	Warnings []string            `json:"warnings,omitempty"`
}

// ParseRequest decodes request JSON. An empty string is the default request.
func ParseRequest(s string) (Request, error) {
	var req Request
	if strings.TrimSpace(s) == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(s), &req); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}
	if req.Count != nil && *req.Count < 0 {
		return req, fmt.Errorf("invalid request: count must be >= 0, got %d", *req.Count)
	}
	return req, nil
}

func (r Request) options() generate.Options {
	opts := generate.DefaultOptions()
	opts.Logger = generate.NopLogger()
	opts.Count = r.Count
	opts.Seed = r.Seed
	opts.Plan.Metrics = r.Metrics
	opts.Plan.PatternWitness.Alphabet = r.Alphabet
	opts.Plan.PatternWitness.MaxLength = r.MaxLength
	opts.Plan.PatternWitness.MaxCandidates = r.MaxCandidates
	opts.Plan.Conditionals.Strategy = r.Conditionals
	opts.Plan.Conditionals.MinThenSatisfaction = r.ThenPolicy
	return opts
}

// GenerateJSON generates instances from a compose document (or a bare
// schema) and returns the Response as JSON.
func GenerateJSON(input, request string) (string, error) {
	req, err := ParseRequest(request)
	if err != nil {
		return "", err
	}
	composed, err := compose.Load(strings.NewReader(input))
	if err != nil {
		return "", fmt.Errorf("failed to load schema: %w", err)
	}
	resp, err := run(composed, req.options())
	if err != nil {
		return "", err
	}
	return marshal(resp)
}

// GenerateOpenAPI generates instances for every component schema marked
// with the generation extension and returns an OpenAPIResponse as JSON.
func GenerateOpenAPI(oasYAML, request string) (string, error) {
	req, err := ParseRequest(request)
	if err != nil {
		return "", err
	}
	loaded, err := oasload.Load(context.Background(), strings.NewReader(oasYAML), oasload.Options{Strict: req.Strict})
	if err != nil {
		return "", err
	}

	out := OpenAPIResponse{Targets: make(map[string]Response, len(loaded.Targets)), Warnings: loaded.Warnings}
	for _, t := range loaded.Targets {
		if len(req.Targets) > 0 && !slices.Contains(req.Targets, t.Name) {
			continue
		}
		opts := req.options()
		if req.Count == nil && t.Count > 0 {
			opts.Count = generate.Count(t.Count)
		}
		if opts.Seed == nil {
			opts.Seed = t.Seed
		}
		opts.SourceSchema = t.Source

		resp, err := run(t.Compose, opts)
		if err != nil {
			return "", fmt.Errorf("%s: %w", t.Name, err)
		}
		out.Targets[t.Name] = resp
	}
	if len(out.Targets) == 0 {
		return "", fmt.Errorf("no target matches %v", req.Targets)
	}
	return marshal(out)
}

func run(composed *compose.Result, opts generate.Options) (Response, error) {
	res, err := generate.GenerateFromCompose(composed, opts)
	if err != nil {
		return Response{}, err
	}
	resp := Response{
		Items:       res.Items,
		Diagnostics: res.Diagnostics,
		Metrics:     res.Metrics,
		Seed:        res.Seed,
	}
	if len(res.Diagnostics) > 0 {
		resp.Explanation = ExplainDiagnostics(res.Diagnostics)
	}
	return resp, nil
}

func marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(data), nil
}
