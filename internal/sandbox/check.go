package sandbox

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// fileOptions is the rule dialect: top-level loops and conditionals, global
// reassignment and sets. While loops and recursion stay disabled.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// allowedUniversal is every built-in a rule may call besides the bindings
// installed by the executor.
var allowedUniversal = map[string]bool{
	"len": true, "range": true,
	"dict": true, "list": true, "tuple": true, "set": true, "type": true,
	"True": true, "False": true, "None": true,
}

var importLine = regexp.MustCompile(`(?m)^\s*(import|from)\s+\S`)

// Check reports whether script would be accepted for evaluation, without
// running it.
func Check(script string) error {
	_, err := compile(script)
	return err
}

// compile parses and statically checks script. Nothing in the script runs
// before compile returns successfully.
func compile(script string) (*starlark.Program, error) {
	f, err := fileOptions.Parse("rule.star", script, 0)
	if err != nil {
		if importLine.MatchString(script) {
			return nil, fmt.Errorf("%w: import statements are not allowed", ErrSecurityViolation)
		}
		return nil, fmt.Errorf("%w: %v", ErrRuleRuntime, err)
	}
	if err := checkSyntax(f); err != nil {
		return nil, err
	}

	prog, err := starlark.FileProgram(f, isPredeclared)
	if err != nil {
		if undefined := undefinedNames(err); undefined != nil {
			return nil, fmt.Errorf("%w: %v", ErrSecurityViolation, undefined)
		}
		return nil, fmt.Errorf("%w: %v", ErrRuleRuntime, err)
	}
	if err := checkResolved(f); err != nil {
		return nil, err
	}
	return prog, nil
}

// undefinedNames returns the first resolver error about a name that is
// neither defined by the script nor bound by the executor.
func undefinedNames(err error) error {
	var list resolve.ErrorList
	if !errors.As(err, &list) {
		return nil
	}
	for _, e := range list {
		if strings.HasPrefix(e.Msg, "undefined:") {
			return e
		}
	}
	return nil
}

// checkSyntax rejects loads and dunder attribute selection.
func checkSyntax(f *syntax.File) error {
	var violation error
	syntax.Walk(f, func(n syntax.Node) bool {
		if violation != nil {
			return false
		}
		switch n := n.(type) {
		case *syntax.LoadStmt:
			violation = violationAt(n, "load of %v", n.Module.Value)
		case *syntax.DotExpr:
			if strings.HasPrefix(n.Name.Name, "__") {
				violation = violationAt(n, "access to attribute %s", n.Name.Name)
			}
		}
		return violation == nil
	})
	return violation
}

// checkResolved rejects any name that resolved to a built-in outside the
// allow-list. Names the script defines itself shadow built-ins and are fine.
func checkResolved(f *syntax.File) error {
	var violation error
	syntax.Walk(f, func(n syntax.Node) bool {
		if violation != nil {
			return false
		}
		id, ok := n.(*syntax.Ident)
		if !ok {
			return true
		}
		b, ok := id.Binding.(*resolve.Binding)
		if ok && b.Scope == resolve.Universal && !allowedUniversal[id.Name] {
			violation = violationAt(id, "call to built-in %s", id.Name)
		}
		return violation == nil
	})
	return violation
}

func violationAt(n syntax.Node, format string, args ...any) error {
	start, _ := n.Span()
	return fmt.Errorf("%w: %s: %s", ErrSecurityViolation, start, fmt.Sprintf(format, args...))
}
