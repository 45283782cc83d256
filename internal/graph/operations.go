package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownOperation = errors.New("unknown query operation")
	ErrArity            = errors.New("wrong number of arguments")
	ErrSelfReference    = errors.New("operation cannot negate itself")
)

const negativeOp = "find_negative_of_operation"

// Operation is a query exposed to rule scripts by its snake_case name.
// All operations take string arguments.
type Operation struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	Apply   func(q Queryable, args []string) (Matches, error)
}

var registry = map[string]Operation{}

func register(op Operation) { registry[op.Name] = op }

// Lookup returns the operation registered under name.
func Lookup(name string) (Operation, bool) {
	op, ok := registry[name]
	return op, ok
}

// Operations returns every registered operation sorted by name.
func Operations() []Operation {
	out := make([]Operation, 0, len(registry))
	for _, op := range registry {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke applies the named operation to q after checking its arity.
func Invoke(q Queryable, name string, args ...string) (Matches, error) {
	op, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	if len(args) < op.MinArgs || (op.MaxArgs >= 0 && len(args) > op.MaxArgs) {
		return nil, fmt.Errorf("%w: %s takes %s, got %d", ErrArity, name, arity(op), len(args))
	}
	return op.Apply(q, args)
}

func arity(op Operation) string {
	switch {
	case op.MaxArgs < 0:
		return fmt.Sprintf("at least %d", op.MinArgs)
	case op.MinArgs == op.MaxArgs:
		return fmt.Sprintf("%d", op.MinArgs)
	default:
		return fmt.Sprintf("%d to %d", op.MinArgs, op.MaxArgs)
	}
}

func list(fn func(q Queryable, args []string) NodeList) func(Queryable, []string) (Matches, error) {
	return func(q Queryable, args []string) (Matches, error) { return fn(q, args), nil }
}

func group(fn func(q Queryable, args []string) NodeListGroup) func(Queryable, []string) (Matches, error) {
	return func(q Queryable, args []string) (Matches, error) { return fn(q, args), nil }
}

func init() {
	for _, op := range []Operation{
		{Name: "find_by_names", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindByNames(a...) })},
		{Name: "find_by_parent", MinArgs: 1, MaxArgs: 1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindByParent(a[0]) })},
		{Name: "find_chained_calls", MaxArgs: -1, Apply: group(func(q Queryable, a []string) NodeListGroup { return q.FindChainedCalls(a...) })},
		{Name: "find_by_access_path", MinArgs: 2, MaxArgs: 2, Apply: list(func(q Queryable, a []string) NodeList { return q.FindByAccessPath(a[0], a[1]) })},
		{Name: "find_comparisons_between", MinArgs: 2, MaxArgs: 2, Apply: group(func(q Queryable, a []string) NodeListGroup { return q.FindComparisonsBetween(a[0], a[1]) })},
		{Name: "find_comparisons", MinArgs: 2, MaxArgs: 2, Apply: group(func(q Queryable, a []string) NodeListGroup { return q.FindComparisonsBetween(a[0], a[1]) })},
		{Name: "find_comparison_involving", MinArgs: 1, MaxArgs: 1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindComparisonInvolving(a[0]) })},
		{Name: "find_comparison_to_any", MinArgs: 1, MaxArgs: 1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindComparisonInvolving(a[0]) })},
		{Name: "find_mutables", Apply: list(func(q Queryable, _ []string) NodeList { return q.FindMutables() })},
		{Name: "find_assignments", MinArgs: 2, MaxArgs: 2, Apply: group(func(q Queryable, a []string) NodeListGroup { return q.FindAssignments(a[0], a[1]) })},
		{Name: negativeOp, MinArgs: 1, MaxArgs: -1, Apply: func(q Queryable, a []string) (Matches, error) {
			return q.FindNegativeOfOperation(a[0], a[1:]...)
		}},
		{Name: "find_all_functions", Apply: list(func(q Queryable, _ []string) NodeList { return q.FindAllFunctions() })},
		{Name: "find_functions_by_names", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindFunctionsByNames(a...) })},
		{Name: "find_functions_by_name_patterns", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindFunctionsByNamePatterns(a...) })},
		{Name: "find_method_calls", MinArgs: 2, MaxArgs: 2, Apply: list(func(q Queryable, a []string) NodeList { return q.FindMethodCalls(a[0], a[1]) })},
		{Name: "find_account_typed_nodes", MinArgs: 1, MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindAccountTypedNodes(a[0], a[1:]...) })},
		{Name: "find_member_accesses", MinArgs: 1, MaxArgs: 1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindMemberAccesses(a[0]) })},

		{Name: "find_modifiers_by_names", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindModifiersByNames(a...) })},
		{Name: "find_external_calls", Apply: list(func(q Queryable, _ []string) NodeList { return q.FindExternalCalls() })},
		{Name: "find_functions_with_address_assignments", Apply: list(func(q Queryable, _ []string) NodeList { return q.FindFunctionsWithAddressAssignments() })},
		{Name: "find_setters_and_constructors", Apply: list(func(q Queryable, _ []string) NodeList { return q.FindSettersAndConstructors() })},
		{Name: "find_nodes_by_names", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindNodesByNames(a...) })},
		{Name: "find_nodes_by_types", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindNodesByTypes(a...) })},
		{Name: "find_nodes_by_type_strings", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindNodesByTypeStrings(a...) })},
		{Name: "find_nodes_by_type_identifiers", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindNodesByTypeIdentifiers(a...) })},
		{Name: "find_nodes_by_member_names", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindNodesByMemberNames(a...) })},
		{Name: "find_nodes_by_operators", MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindNodesByOperators(a...) })},
		{Name: "find_nodes_by_metadata_key", MinArgs: 1, MaxArgs: -1, Apply: list(func(q Queryable, a []string) NodeList { return q.FindNodesByMetadataKey(a[0], a[1:]...) })},
		{Name: "find_similar_function_definitions", Apply: group(func(q Queryable, _ []string) NodeListGroup { return q.FindSimilarFunctionDefinitions() })},
	} {
		register(op)
	}
}
