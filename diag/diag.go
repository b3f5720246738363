// Package diag defines the diagnostic records emitted while generating
// instances, and the append-only log that checks each record against its
// envelope schema before accepting it.
package diag

// Phase names the pipeline stage a diagnostic belongs to.
type Phase string

// PhaseGenerate is the only phase this module emits.
const PhaseGenerate Phase = "generate"

// Code identifies a diagnostic kind.
type Code string

const (
	// EvalTracePropSource records why a key was considered evaluated.
	EvalTracePropSource Code = "EVALTRACE_PROP_SOURCE"
	// ExclusivityTweakString carries the per-location exclusivity random value.
	ExclusivityTweakString Code = "EXCLUSIVITY_TWEAK_STRING"
	// ComplexityCapPatterns reports a capped or exhausted pattern witness search.
	ComplexityCapPatterns Code = "COMPLEXITY_CAP_PATTERNS"
	// IfAwareHintApplied reports a satisfied or unsatisfied conditional hint.
	IfAwareHintApplied Code = "IF_AWARE_HINT_APPLIED"
	// IfAwareHintSkippedInsufficientInfo reports a conditional whose outcome
	// could not be decided from the object built so far.
	IfAwareHintSkippedInsufficientInfo Code = "IF_AWARE_HINT_SKIPPED_INSUFFICIENT_INFO"
	// GenerateDepthCap reports that recursion stopped at the depth guard.
	GenerateDepthCap Code = "GENERATE_DEPTH_CAP"
)

// Cap reasons used in COMPLEXITY_CAP_PATTERNS.
const (
	ReasonWitnessDomainExhausted = "witnessDomainExhausted"
	ReasonCandidateBudget        = "candidateBudget"
	ReasonRegexComplexityCap     = "regexComplexityCap"
	ReasonComplexityCap          = "complexityCap"
)

// Budget describes a bounded search that stopped early.
type Budget struct {
	Tried   int    `json:"tried" yaml:"tried"`
	Limit   int    `json:"limit" yaml:"limit"`
	Skipped bool   `json:"skipped" yaml:"skipped"`
	Reason  string `json:"reason" yaml:"reason"`
}

// ScoreDetails carries branch-scoring values. The composition step fills
// OrderedIndices, TopScoreIndices and TiebreakRand; the generator only adds
// ExclusivityRand.
type ScoreDetails struct {
	OrderedIndices  []int    `json:"orderedIndices,omitempty" yaml:"orderedIndices,omitempty"`
	TopScoreIndices []int    `json:"topScoreIndices,omitempty" yaml:"topScoreIndices,omitempty"`
	TiebreakRand    *float64 `json:"tiebreakRand,omitempty" yaml:"tiebreakRand,omitempty"`
	ExclusivityRand *float64 `json:"exclusivityRand,omitempty" yaml:"exclusivityRand,omitempty"`
}

// Diagnostic is one immutable record.
type Diagnostic struct {
	Code         Code           `json:"code" yaml:"code"`
	Phase        Phase          `json:"phase" yaml:"phase"`
	CanonPath    string         `json:"canonPath" yaml:"canonPath"`
	Details      map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Budget       *Budget        `json:"budget,omitempty" yaml:"budget,omitempty"`
	ScoreDetails *ScoreDetails  `json:"scoreDetails,omitempty" yaml:"scoreDetails,omitempty"`
}

// New builds a generate-phase diagnostic.
func New(code Code, canonPath string, details map[string]any) Diagnostic {
	return Diagnostic{
		Code:      code,
		Phase:     PhaseGenerate,
		CanonPath: canonPath,
		Details:   details,
	}
}
