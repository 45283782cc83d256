// Package scan evaluates rule templates against an ingested forest.
package scan

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/agentic-research/radar/api"
	"github.com/agentic-research/radar/internal/finding"
	"github.com/agentic-research/radar/internal/graph"
	"github.com/agentic-research/radar/internal/sandbox"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// ErrLanguageMismatch marks templates skipped because the forest holds no
// file of their language.
var ErrLanguageMismatch = errors.New("template language not present")

// Result is the outcome of one template.
type Result struct {
	Template api.RuleTemplate
	Finding  api.Finding
	// Stopped is set when the rule ended through a query terminator.
	Stopped  bool
	Err      error
	Duration time.Duration
}

// Options tunes a Runner. Zero values pick defaults.
type Options struct {
	// Concurrency bounds the rules evaluated at once (default NumCPU).
	Concurrency int
	// RuleTimeout bounds one rule evaluation (0 for none).
	RuleTimeout time.Duration
}

type Runner struct {
	executor *sandbox.Executor
	opts     Options
	logger   hclog.Logger
}

func NewRunner(logger hclog.Logger, executor *sandbox.Executor, opts Options) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if executor == nil {
		executor = sandbox.NewExecutor(logger.Named("sandbox"), 0)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	return &Runner{executor: executor, opts: opts, logger: logger}
}

// Run evaluates every template concurrently. Results keep template order. A
// failing or timed-out rule is recorded on its own Result and never affects
// the others.
func (r *Runner) Run(ctx context.Context, forest *graph.Forest, tmpls []api.RuleTemplate) []Result {
	results := make([]Result, len(tmpls))
	languages := forest.Languages()

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Concurrency)
	for i, t := range tmpls {
		results[i].Template = t
		if t.Language != "" && !slices.Contains(languages, graph.Language(t.Language)) {
			results[i].Err = fmt.Errorf("%w: %s", ErrLanguageMismatch, t.Language)
			r.logger.Debug("skipping template", "template", t.Name, "language", t.Language)
			continue
		}
		i, t := i, t
		g.Go(func() error {
			results[i] = r.runOne(ctx, forest, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) runOne(ctx context.Context, forest *graph.Forest, t api.RuleTemplate) Result {
	start := time.Now()
	if r.opts.RuleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RuleTimeout)
		defer cancel()
	}

	res := Result{Template: t}
	out, err := r.executor.Evaluate(ctx, t.Rule, forest)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("template %s: %w", t.Name, err)
		r.logger.Warn("rule failed", "template", t.Name, "error", err, "duration", res.Duration)
		return res
	}

	res.Stopped = out.Stopped
	res.Finding = finding.Extract(t, out.Lines)
	r.logger.Debug("rule evaluated",
		"template", t.Name,
		"locations", len(res.Finding.Locations),
		"debug", len(res.Finding.Debug),
		"stopped", out.Stopped,
		"duration", res.Duration)
	return res
}

// Findings returns the findings of the successful results, in order.
// Findings with neither locations nor debug output are dropped unless
// keepEmpty is set.
func Findings(results []Result, keepEmpty bool) []api.Finding {
	out := []api.Finding{}
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if !keepEmpty && res.Finding.Empty() && len(res.Finding.Debug) == 0 {
			continue
		}
		out = append(out, res.Finding)
	}
	return out
}
