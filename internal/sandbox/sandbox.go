// Package sandbox evaluates rule scripts against a node forest.
//
// Rules are written in a restricted Starlark dialect. A script is parsed and
// statically checked before anything runs: imports, dunder attribute access
// and built-ins outside a small allow-list are rejected. Each evaluation runs
// on its own thread with fresh bindings, so concurrent evaluations against
// one forest share nothing but the read-only nodes.
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentic-research/radar/internal/graph"
	"github.com/hashicorp/go-hclog"
	"go.starlark.net/starlark"
)

var (
	// ErrSecurityViolation is returned when a script uses a disallowed construct.
	ErrSecurityViolation = errors.New("rule security violation")
	// ErrRuleRuntime is returned when an allowed script fails to parse or run.
	ErrRuleRuntime = errors.New("rule runtime error")
)

// Output is what one evaluation printed.
type Output struct {
	Lines []string
	// Stopped is set when the script ended through a query terminator
	// (first, exit_on_none, exit_on_value). Lines is then empty.
	Stopped bool
}

// Executor evaluates rule scripts. It is safe for concurrent use.
type Executor struct {
	// MaxSteps bounds the Starlark computation steps of one evaluation
	// (0 for unlimited).
	MaxSteps uint64
	logger   hclog.Logger
}

func NewExecutor(logger hclog.Logger, maxSteps uint64) *Executor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Executor{MaxSteps: maxSteps, logger: logger}
}

// Evaluate checks and runs script with the forest bound as "ast".
func (e *Executor) Evaluate(ctx context.Context, script string, forest *graph.Forest) (Output, error) {
	prog, err := compile(script)
	if err != nil {
		e.logger.Debug("rule rejected", "error", err)
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrRuleRuntime, err)
	}

	st := &evalState{}
	thread := &starlark.Thread{Name: "rule"}
	thread.SetLocal(stateKey, st)
	if e.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(e.MaxSteps)
	}
	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	_, err = prog.Init(thread, predeclared(forest))
	if st.stopped {
		e.logger.Debug("rule stopped", "steps", thread.ExecutionSteps())
		return Output{Stopped: true}, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, fmt.Errorf("%w: %w", ErrRuleRuntime, ctxErr)
		}
		return Output{}, fmt.Errorf("%w: %v", ErrRuleRuntime, err)
	}
	e.logger.Debug("rule finished", "lines", len(st.lines), "steps", thread.ExecutionSteps())
	return Output{Lines: st.lines}, nil
}

const stateKey = "radar.state"

// evalState is owned by one thread.
type evalState struct {
	lines   []string
	stopped bool
}

func stateOf(thread *starlark.Thread) *evalState {
	st, _ := thread.Local(stateKey).(*evalState)
	return st
}

// halt marks the evaluation as deliberately stopped and returns the error
// that unwinds the script.
func halt(thread *starlark.Thread) error {
	if st := stateOf(thread); st != nil {
		st.stopped = true
	}
	return graph.ErrStop
}

func isPredeclared(name string) bool {
	return name == "ast" || name == "print"
}

// predeclared builds fresh bindings for one evaluation.
func predeclared(forest *graph.Forest) starlark.StringDict {
	var files []starlark.Value
	if forest != nil {
		for _, file := range forest.Files() {
			root, _ := forest.Root(file)
			files = append(files, starlark.Tuple{starlark.String(file), nodeValue{root}})
		}
	}
	ast := starlark.NewList(files)
	ast.Freeze()
	return starlark.StringDict{
		"ast":   ast,
		"print": starlark.NewBuiltin("print", printBuiltin),
	}
}
