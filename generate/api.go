// Package generate turns a composed canonical schema into deterministic
// JSON instances.
//
// Generation is a best-effort recursive descent: it never fails on schema
// shape, it only degrades (an unresolvable reference contributes nothing,
// an exhausted pattern search leaves a key out) and reports what it did as
// diagnostics. Output depends only on the compose input, the options and
// the seed, so two runs with the same inputs are identical and a run of N
// items is a prefix of any longer run.
package generate

import (
	"fmt"

	"github.com/foundrydata/foundrygen/compose"
	"github.com/foundrydata/foundrygen/schema"
)

// GenerateFromCompose generates items from a composition result. With no
// options, DefaultOptions() is used; an explicit Options value has its zero
// tuning fields filled from the defaults. A nil Count generates one item.
//
// The only error is a missing canonical schema or a diagnostics registry
// that fails to build.
func GenerateFromCompose(composed *compose.Result, opts ...Options) (*Result, error) {
	if composed == nil || composed.Canonical.Schema == nil {
		return nil, fmt.Errorf("cannot generate: %w", compose.ErrNoSchema)
	}
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0].withDefaults()
	}

	e, err := newEngine(composed, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	count := opt.count()
	e.log.Debugf("generating %d item(s) seed=%d root=%s", count, e.seed, nodeSummary(composed.Canonical.Schema))

	items := make([]any, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, e.generateItem(i))
	}

	return &Result{
		Items:       items,
		Diagnostics: e.diags.Entries(),
		Metrics:     e.metrics,
		Seed:        e.seed,
	}, nil
}

// Generate is GenerateFromCompose for a canonical tree without side tables.
func Generate(root *schema.Node, opts ...Options) (*Result, error) {
	if root == nil {
		return nil, fmt.Errorf("cannot generate: %w", compose.ErrNoSchema)
	}
	return GenerateFromCompose(compose.FromSchema(root), opts...)
}
