package main

import (
	"github.com/spf13/cobra"

	"github.com/foundrydata/foundrygen/generate"
)

// runFlags are shared by every command that runs the generator.
type runFlags struct {
	openapi  bool
	strict   bool
	targets  []string
	source   string
	parallel int

	count           int
	seed            float64
	logLevel        string
	metrics         bool
	validateFormats bool
	discriminator   bool

	alphabet      string
	maxLength     int
	maxCandidates int
	strategy      string
	policy        string
	maxDepth      int
}

type generateFlags struct {
	runFlags
	output string
	pretty bool
	items  bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "foundrygen",
		Short: "Deterministic JSON instance generator for composed schemas",
		Long: `foundrygen turns a composed canonical schema (or the marked component
schemas of an OpenAPI 3.1 document) into JSON instances. The same input,
options and seed always produce the same items.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd(), newDiagnosticsCmd())
	return root
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	d := generate.DefaultOptions()
	fs := cmd.Flags()
	fs.BoolVar(&f.openapi, "openapi", false, "treat the input as an OpenAPI 3.1 document")
	fs.BoolVar(&f.strict, "strict", false, "fail on OpenAPI validation errors")
	fs.StringSliceVar(&f.targets, "target", nil, "only generate these component schemas (with --openapi)")
	fs.StringVar(&f.source, "source", "", "original schema document used to validate anyOf branches")
	fs.IntVar(&f.parallel, "parallel", 4, "targets generated concurrently (with --openapi)")

	fs.IntVarP(&f.count, "count", "n", 1, "number of items per target")
	fs.Float64Var(&f.seed, "seed", float64(generate.DefaultSeed), "base seed (wrapped to uint32; NaN or Inf selects the default)")
	fs.StringVar(&f.logLevel, "log-level", d.LogLevel, "log level: error, warn, info, debug")
	fs.BoolVar(&f.metrics, "metrics", false, "emit evaluation-trace diagnostics")
	fs.BoolVar(&f.validateFormats, "validate-formats", false, "check format values before using them")
	fs.BoolVar(&f.discriminator, "discriminator", false, "treat OpenAPI discriminator properties as required")

	fs.StringVar(&f.alphabet, "alphabet", d.Plan.PatternWitness.Alphabet, "pattern witness alphabet")
	fs.IntVar(&f.maxLength, "max-length", d.Plan.PatternWitness.MaxLength, "longest pattern witness")
	fs.IntVar(&f.maxCandidates, "max-candidates", d.Plan.PatternWitness.MaxCandidates, "pattern witness trial budget")
	fs.StringVar(&f.strategy, "conditionals", d.Plan.Conditionals.Strategy, "conditional strategy (if-aware-lite enables hints)")
	fs.StringVar(&f.policy, "then-policy", d.Plan.Conditionals.MinThenSatisfaction, "discriminants-only, required-only or required+bounds")
	fs.IntVar(&f.maxDepth, "max-depth", d.Plan.Guards.MaxGeneratedDepth, "recursion depth before emitting null")
}

func newGenerateCmd() *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate [file|-]",
		Short: "Generate instances from a compose document or an OpenAPI document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, f)
		},
	}
	bindRunFlags(cmd, &f.runFlags)
	cmd.Flags().StringVarP(&f.output, "output", "o", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent JSON output (default when writing to a terminal)")
	cmd.Flags().BoolVar(&f.items, "items", false, "print only the generated items")
	return cmd
}

func newDiagnosticsCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "diagnostics [file|-]",
		Short: "Run the generator and print its diagnostics as a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnostics(cmd, args, f)
		},
	}
	bindRunFlags(cmd, f)
	return cmd
}
