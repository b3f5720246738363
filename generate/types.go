package generate

import (
	"github.com/foundrydata/foundrygen/diag"
)

// DefaultSeed is used when no seed is supplied or the supplied one is not a
// finite number.
const DefaultSeed uint32 = 424242

// Conditional hint policies.
const (
	StrategyIfAwareLite = "if-aware-lite"

	MinThenDiscriminantsOnly = "discriminants-only"
	MinThenRequiredOnly      = "required-only"
	MinThenRequiredBounds    = "required+bounds"
)

// Rational fallbacks for multipleOf arithmetic that outgrows the bit cap.
const (
	RationalFallbackDecimal = "decimal"
	RationalFallbackFloat   = "float"
)

// Options configures one generation run.
type Options struct {
	Count *int     // Number of items to generate; nil means 1
	Seed  *float64 // Base seed; nil selects DefaultSeed. Normalized with NormalizeSeed.

	Plan PlanOptions

	// SourceSchema is the original (pre-composition) schema document. When
	// set, evaluation proofs may go through anyOf branches that validate the
	// object built so far.
	SourceSchema any

	ValidateFormats bool // If true, check format values with strfmt before using them
	Discriminator   bool // If true, honor OpenAPI discriminator.propertyName as required

	// Formats supplies format generators (default: DefaultFormats()).
	Formats *FormatRegistry

	// Logging configuration
	Logger   Logger // If nil, a logger at LogLevel writing to stderr is created
	LogLevel string // Log level: "error", "warn", "info", "debug" (default: "warn")

	// Diagnostics validates records before they are surfaced
	// (default: the envelope registry from diag.NewRegistry).
	Diagnostics diag.Validator
}

// PlanOptions groups the tuning knobs shared with the planning stage.
type PlanOptions struct {
	PatternWitness PatternWitnessOptions
	Conditionals   ConditionalOptions
	Rational       RationalOptions
	Guards         GuardOptions

	// Metrics enables evaluation-trace diagnostics.
	Metrics bool
}

// PatternWitnessOptions bounds anchored-pattern enumeration.
type PatternWitnessOptions struct {
	Alphabet      string // Candidate characters (default: a-z, 0-9, "_", "-")
	MaxLength     int    // Longest candidate (default: 12)
	MaxCandidates int    // Trials per enumerator (default: 32768)
}

// ConditionalOptions controls if-aware hints.
type ConditionalOptions struct {
	Strategy            string // "if-aware-lite" enables hints (default)
	MinThenSatisfaction string // "discriminants-only" | "required-only" | "required+bounds" (default: "required-only")
}

// RationalOptions controls exact multipleOf arithmetic.
type RationalOptions struct {
	Fallback         string // "decimal" or "float" (default: "decimal")
	DecimalPrecision int    // Digits kept by the decimal fallback (default: 12)
	MaxRatBits       int    // Numerator/denominator bit cap (default: 128)
}

// GuardOptions bounds reference chasing and recursion.
type GuardOptions struct {
	MaxDynamicScopeHops int // Enclosing $dynamicAnchor scopes considered (default: 2)
	MaxGeneratedDepth   int // Recursion depth before emitting null (default: 64)
}

// Metrics are run-level counters.
type Metrics struct {
	PatternWitnessTried     int `json:"patternWitnessTried,omitempty" yaml:"patternWitnessTried,omitempty"`
	EvalTraceChecks         int `json:"evalTraceChecks,omitempty" yaml:"evalTraceChecks,omitempty"`
	BranchValidatorCompiles int `json:"branchValidatorCompiles,omitempty" yaml:"branchValidatorCompiles,omitempty"`
	DiagnosticsRejected     int `json:"diagnosticsRejected,omitempty" yaml:"diagnosticsRejected,omitempty"`
}

// Result is the output of one run.
type Result struct {
	Items       []any             `json:"items" yaml:"items"`
	Diagnostics []diag.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Metrics     Metrics           `json:"metrics" yaml:"metrics"`
	Seed        uint32            `json:"seed" yaml:"seed"`
}

const defaultAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789_-"

// DefaultOptions returns the default configuration for a generation run.
func DefaultOptions() Options {
	return Options{
		Plan: PlanOptions{
			PatternWitness: PatternWitnessOptions{
				Alphabet:      defaultAlphabet,
				MaxLength:     12,
				MaxCandidates: 32768,
			},
			Conditionals: ConditionalOptions{
				Strategy:            StrategyIfAwareLite,
				MinThenSatisfaction: MinThenRequiredOnly,
			},
			Rational: RationalOptions{
				Fallback:         RationalFallbackDecimal,
				DecimalPrecision: 12,
				MaxRatBits:       128,
			},
			Guards: GuardOptions{
				MaxDynamicScopeHops: 2,
				MaxGeneratedDepth:   64,
			},
		},
		LogLevel: "warn",
	}
}

// Count returns a pointer to n, for Options.Count.
func Count(n int) *int {
	return &n
}

// count is the number of items to generate. Negative counts generate none.
func (o Options) count() int {
	if o.Count == nil {
		return 1
	}
	return max(*o.Count, 0)
}

// withDefaults fills zero-valued tuning fields from DefaultOptions. Count
// and the boolean switches are taken as given.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	pw := &o.Plan.PatternWitness
	if pw.Alphabet == "" {
		pw.Alphabet = d.Plan.PatternWitness.Alphabet
	}
	if pw.MaxLength <= 0 {
		pw.MaxLength = d.Plan.PatternWitness.MaxLength
	}
	if pw.MaxCandidates <= 0 {
		pw.MaxCandidates = d.Plan.PatternWitness.MaxCandidates
	}
	c := &o.Plan.Conditionals
	if c.Strategy == "" {
		c.Strategy = d.Plan.Conditionals.Strategy
	}
	switch c.MinThenSatisfaction {
	case MinThenDiscriminantsOnly, MinThenRequiredOnly, MinThenRequiredBounds:
	default:
		c.MinThenSatisfaction = d.Plan.Conditionals.MinThenSatisfaction
	}
	r := &o.Plan.Rational
	if r.Fallback != RationalFallbackFloat {
		r.Fallback = RationalFallbackDecimal
	}
	if r.DecimalPrecision <= 0 {
		r.DecimalPrecision = d.Plan.Rational.DecimalPrecision
	}
	if r.MaxRatBits <= 0 {
		r.MaxRatBits = d.Plan.Rational.MaxRatBits
	}
	g := &o.Plan.Guards
	if g.MaxDynamicScopeHops <= 0 {
		g.MaxDynamicScopeHops = d.Plan.Guards.MaxDynamicScopeHops
	}
	if g.MaxGeneratedDepth <= 0 {
		g.MaxGeneratedDepth = d.Plan.Guards.MaxGeneratedDepth
	}
	if o.LogLevel == "" {
		o.LogLevel = d.LogLevel
	}
	return o
}
