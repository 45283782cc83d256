package ingest

import (
	"context"
	"errors"

	"github.com/agentic-research/radar/internal/graph"
	"github.com/hashicorp/go-hclog"
)

// Engine drives ingestion: adapter then builder, per unit.
type Engine struct {
	adapters map[graph.Language]Adapter
	logger   hclog.Logger
}

// NewEngine registers the given adapters. With none, the Rust and Solidity
// adapters are used with their defaults.
func NewEngine(logger hclog.Logger, adapters ...Adapter) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if len(adapters) == 0 {
		adapters = []Adapter{&RustAdapter{}, &SolidityAdapter{}}
	}
	e := &Engine{adapters: map[graph.Language]Adapter{}, logger: logger}
	for _, a := range adapters {
		e.adapters[a.Language()] = a
	}
	return e
}

// Ingest builds a forest from units. Every file that adapts cleanly is kept;
// failures are logged and returned joined, without stopping other units.
func (e *Engine) Ingest(ctx context.Context, units ...Unit) (*graph.Forest, error) {
	forest := graph.NewForest()
	var errs []error
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return forest, err
		}

		a, ok := e.adapters[u.Language]
		if !ok {
			err := &ParseError{File: u.Path, Message: "unsupported language " + string(u.Language)}
			e.logger.Warn("skipping unit", "unit", u.Path, "error", err)
			errs = append(errs, err)
			continue
		}

		trees, err := a.Adapt(ctx, u)
		if err != nil {
			e.logger.Warn("adapt failed", "unit", u.Path, "language", u.Language, "error", err)
			errs = append(errs, err)
		}

		b := NewBuilder(a.Profile())
		for _, t := range trees {
			before := forest.Len()
			b.Build(forest, t)
			e.logger.Debug("built file", "file", t.Path, "nodes", forest.Len()-before)
		}
	}
	return forest, errors.Join(errs...)
}
