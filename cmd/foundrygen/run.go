package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/generate"
	"github.com/foundrydata/foundrygen/oasload"
	"github.com/foundrydata/foundrygen/schema"
)

// run is one independent generation: a compose input and its options.
type run struct {
	name     string // component name; empty for a compose document
	composed *compose.Result
	opts     generate.Options
}

type runResult struct {
	name   string
	result *generate.Result
}

func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// baseOptions maps flags onto generator options. Count and seed are only
// taken from flags the user set, so OpenAPI extension values can fill them.
func (f *runFlags) baseOptions(cmd *cobra.Command) generate.Options {
	opts := generate.DefaultOptions()
	opts.Count = generate.Count(f.count)
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		opts.Seed = &seed
	}
	opts.LogLevel = f.logLevel
	opts.Logger = generate.NewLogger(generate.ParseLogLevel(f.logLevel), cmd.ErrOrStderr())
	opts.ValidateFormats = f.validateFormats
	opts.Discriminator = f.discriminator
	opts.Plan.Metrics = f.metrics
	opts.Plan.PatternWitness.Alphabet = f.alphabet
	opts.Plan.PatternWitness.MaxLength = f.maxLength
	opts.Plan.PatternWitness.MaxCandidates = f.maxCandidates
	opts.Plan.Conditionals.Strategy = f.strategy
	opts.Plan.Conditionals.MinThenSatisfaction = f.policy
	opts.Plan.Guards.MaxGeneratedDepth = f.maxDepth
	return opts
}

// loadRuns reads the input and prepares one run per target.
func (f *runFlags) loadRuns(cmd *cobra.Command, args []string) ([]run, error) {
	in, err := openInput(cmd, args)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	base := f.baseOptions(cmd)
	if !f.openapi {
		composed, err := compose.Load(in)
		if err != nil {
			return nil, fmt.Errorf("failed to load compose document: %w", err)
		}
		if f.source != "" {
			data, err := os.ReadFile(f.source)
			if err != nil {
				return nil, fmt.Errorf("failed to read source schema: %w", err)
			}
			src, err := schema.DecodeValue(data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode source schema: %w", err)
			}
			base.SourceSchema = src
		}
		return []run{{composed: composed, opts: base}}, nil
	}

	loaded, err := oasload.Load(cmd.Context(), in, oasload.Options{Strict: f.strict})
	if err != nil {
		return nil, err
	}
	for _, w := range loaded.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	var runs []run
	for _, t := range loaded.Targets {
		if len(f.targets) > 0 && !slices.Contains(f.targets, t.Name) {
			continue
		}
		opts := base
		if !cmd.Flags().Changed("count") && t.Count > 0 {
			opts.Count = generate.Count(t.Count)
		}
		if opts.Seed == nil && t.Seed != nil {
			seed := *t.Seed
			opts.Seed = &seed
		}
		opts.SourceSchema = t.Source
		runs = append(runs, run{name: t.Name, composed: t.Compose, opts: opts})
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no target matches %v", f.targets)
	}
	return runs, nil
}

// execute generates every run, at most parallel at a time. Each run owns
// its engine; results keep the order of runs.
func execute(ctx context.Context, runs []run, parallel int) ([]runResult, error) {
	results := make([]runResult, len(runs))
	g, gCtx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, r := range runs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := generate.GenerateFromCompose(r.composed, r.opts)
			if err != nil {
				if r.name != "" {
					return fmt.Errorf("%s: %w", r.name, err)
				}
				return err
			}
			results[i] = runResult{name: r.name, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
