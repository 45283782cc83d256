package scan

import (
	"fmt"
	"reflect"

	"github.com/agentic-research/radar/api"
	"github.com/google/cel-go/cel"
)

// Selector chooses templates with a CEL expression over their metadata, e.g.
//
//	language == "rust" && severity_rank >= 3
//
// Available variables: name, author, accent, language, severity, certainty
// (strings) and severity_rank (0 for Info through 4 for Critical).
type Selector struct {
	expr string
	prg  cel.Program
}

func NewSelector(expr string) (*Selector, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("author", cel.StringType),
		cel.Variable("accent", cel.StringType),
		cel.Variable("language", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("certainty", cel.StringType),
		cel.Variable("severity_rank", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("filter %q must be a boolean expression, got %v", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program construction: %w", err)
	}
	return &Selector{expr: expr, prg: prg}, nil
}

// Match evaluates the expression for t. A nil Selector matches everything.
func (s *Selector) Match(t api.RuleTemplate) (bool, error) {
	if s == nil {
		return true, nil
	}
	out, _, err := s.prg.Eval(map[string]any{
		"name":          t.Name,
		"author":        t.Author,
		"accent":        t.Accent,
		"language":      t.Language,
		"severity":      string(t.Severity),
		"certainty":     t.Certainty,
		"severity_rank": int64(t.Severity.Rank()),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q on %s: %w", s.expr, t.Name, err)
	}
	ok, _ := out.Value().(bool)
	return ok, nil
}

// Filter keeps the templates the expression matches, preserving order.
func (s *Selector) Filter(ts []api.RuleTemplate) ([]api.RuleTemplate, error) {
	var out []api.RuleTemplate
	for _, t := range ts {
		ok, err := s.Match(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}
