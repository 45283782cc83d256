package graph

// Queryable is the query vocabulary shared by a single node and both
// collection kinds. Collections forward each operation to their elements and
// flatten the per-element results, preserving order.
type Queryable interface {
	FindByNames(names ...string) NodeList
	FindByParent(parent string) NodeList
	FindChainedCalls(names ...string) NodeListGroup
	FindByAccessPath(path, keyword string) NodeList
	FindComparisonsBetween(a, b string) NodeListGroup
	FindComparisonInvolving(ident string) NodeList
	FindMutables() NodeList
	FindAssignments(ident, value string) NodeListGroup
	FindNegativeOfOperation(op string, args ...string) (NodeList, error)
	FindAllFunctions() NodeList
	FindFunctionsByNames(names ...string) NodeList
	FindFunctionsByNamePatterns(patterns ...string) NodeList
	FindMethodCalls(caller, method string) NodeList
	FindAccountTypedNodes(ident string, typeNames ...string) NodeList
	FindMemberAccesses(ident string) NodeList

	FindModifiersByNames(names ...string) NodeList
	FindExternalCalls() NodeList
	FindFunctionsWithAddressAssignments() NodeList
	FindSettersAndConstructors() NodeList
	FindNodesByNames(names ...string) NodeList
	FindNodesByTypes(types ...string) NodeList
	FindNodesByTypeStrings(patterns ...string) NodeList
	FindNodesByTypeIdentifiers(patterns ...string) NodeList
	FindNodesByMemberNames(names ...string) NodeList
	FindNodesByOperators(ops ...string) NodeList
	FindNodesByMetadataKey(key string, patterns ...string) NodeList
	FindSimilarFunctionDefinitions() NodeListGroup
}

var (
	_ Queryable = (*Node)(nil)
	_ Queryable = NodeList(nil)
	_ Queryable = NodeListGroup(nil)
)

// Matches is the value produced by a query operation.
type Matches interface {
	// Nodes flattens the matches into one list.
	Nodes() NodeList
}

// NodeList is an ordered, possibly empty sequence of nodes.
type NodeList []*Node

// NodeListGroup is an ordered sequence of node lists, one per multi-node match.
type NodeListGroup []NodeList

// Nodes implements Matches.
func (l NodeList) Nodes() NodeList { return l }

// Nodes implements Matches.
func (g NodeListGroup) Nodes() NodeList {
	out := NodeList{}
	for _, l := range g {
		out = append(out, l...)
	}
	return out
}

// First returns the first node, or ErrStop when the list is empty.
func (l NodeList) First() (*Node, error) {
	if len(l) == 0 {
		return nil, ErrStop
	}
	return l[0], nil
}

// ExitOnNone returns the list unchanged, or ErrStop when it is empty.
func (l NodeList) ExitOnNone() (NodeList, error) {
	if len(l) == 0 {
		return nil, ErrStop
	}
	return l, nil
}

// ExitOnValue returns the empty list unchanged, or ErrStop when it has matches.
func (l NodeList) ExitOnValue() (NodeList, error) {
	if len(l) > 0 {
		return nil, ErrStop
	}
	return l, nil
}

// First returns the first list, or ErrStop when the group is empty.
func (g NodeListGroup) First() (NodeList, error) {
	if len(g) == 0 {
		return nil, ErrStop
	}
	return g[0], nil
}

// ExitOnNone returns the group unchanged, or ErrStop when it is empty.
func (g NodeListGroup) ExitOnNone() (NodeListGroup, error) {
	if len(g) == 0 {
		return nil, ErrStop
	}
	return g, nil
}

// ExitOnValue returns the empty group unchanged, or ErrStop when it has matches.
func (g NodeListGroup) ExitOnValue() (NodeListGroup, error) {
	if len(g) > 0 {
		return nil, ErrStop
	}
	return g, nil
}

// -----------------------------------------------------------------------------
// Forwarding
// -----------------------------------------------------------------------------

func (l NodeList) each(fn func(*Node) NodeList) NodeList {
	out := NodeList{}
	for _, n := range l {
		out = append(out, fn(n)...)
	}
	return out
}

func (l NodeList) eachGroup(fn func(*Node) NodeListGroup) NodeListGroup {
	out := NodeListGroup{}
	for _, n := range l {
		out = append(out, fn(n)...)
	}
	return out
}

func (g NodeListGroup) each(fn func(NodeList) NodeList) NodeList {
	out := NodeList{}
	for _, l := range g {
		out = append(out, fn(l)...)
	}
	return out
}

func (g NodeListGroup) eachGroup(fn func(NodeList) NodeListGroup) NodeListGroup {
	out := NodeListGroup{}
	for _, l := range g {
		out = append(out, fn(l)...)
	}
	return out
}

func (l NodeList) FindByNames(names ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindByNames(names...) })
}

func (l NodeList) FindByParent(parent string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindByParent(parent) })
}

func (l NodeList) FindChainedCalls(names ...string) NodeListGroup {
	return l.eachGroup(func(n *Node) NodeListGroup { return n.FindChainedCalls(names...) })
}

func (l NodeList) FindByAccessPath(path, keyword string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindByAccessPath(path, keyword) })
}

func (l NodeList) FindComparisonsBetween(a, b string) NodeListGroup {
	return l.eachGroup(func(n *Node) NodeListGroup { return n.FindComparisonsBetween(a, b) })
}

func (l NodeList) FindComparisonInvolving(ident string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindComparisonInvolving(ident) })
}

func (l NodeList) FindMutables() NodeList {
	return l.each(func(n *Node) NodeList { return n.FindMutables() })
}

func (l NodeList) FindAssignments(ident, value string) NodeListGroup {
	return l.eachGroup(func(n *Node) NodeListGroup { return n.FindAssignments(ident, value) })
}

func (l NodeList) FindNegativeOfOperation(op string, args ...string) (NodeList, error) {
	out := NodeList{}
	for _, n := range l {
		res, err := n.FindNegativeOfOperation(op, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func (l NodeList) FindAllFunctions() NodeList {
	return l.each(func(n *Node) NodeList { return n.FindAllFunctions() })
}

func (l NodeList) FindFunctionsByNames(names ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindFunctionsByNames(names...) })
}

func (l NodeList) FindFunctionsByNamePatterns(patterns ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindFunctionsByNamePatterns(patterns...) })
}

func (l NodeList) FindMethodCalls(caller, method string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindMethodCalls(caller, method) })
}

func (l NodeList) FindAccountTypedNodes(ident string, typeNames ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindAccountTypedNodes(ident, typeNames...) })
}

func (l NodeList) FindMemberAccesses(ident string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindMemberAccesses(ident) })
}

func (l NodeList) FindModifiersByNames(names ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindModifiersByNames(names...) })
}

func (l NodeList) FindExternalCalls() NodeList {
	return l.each(func(n *Node) NodeList { return n.FindExternalCalls() })
}

func (l NodeList) FindFunctionsWithAddressAssignments() NodeList {
	return l.each(func(n *Node) NodeList { return n.FindFunctionsWithAddressAssignments() })
}

func (l NodeList) FindSettersAndConstructors() NodeList {
	return l.each(func(n *Node) NodeList { return n.FindSettersAndConstructors() })
}

func (l NodeList) FindNodesByNames(names ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindNodesByNames(names...) })
}

func (l NodeList) FindNodesByTypes(types ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindNodesByTypes(types...) })
}

func (l NodeList) FindNodesByTypeStrings(patterns ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindNodesByTypeStrings(patterns...) })
}

func (l NodeList) FindNodesByTypeIdentifiers(patterns ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindNodesByTypeIdentifiers(patterns...) })
}

func (l NodeList) FindNodesByMemberNames(names ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindNodesByMemberNames(names...) })
}

func (l NodeList) FindNodesByOperators(ops ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindNodesByOperators(ops...) })
}

func (l NodeList) FindNodesByMetadataKey(key string, patterns ...string) NodeList {
	return l.each(func(n *Node) NodeList { return n.FindNodesByMetadataKey(key, patterns...) })
}

func (l NodeList) FindSimilarFunctionDefinitions() NodeListGroup {
	return l.eachGroup(func(n *Node) NodeListGroup { return n.FindSimilarFunctionDefinitions() })
}

func (g NodeListGroup) FindByNames(names ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindByNames(names...) })
}

func (g NodeListGroup) FindByParent(parent string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindByParent(parent) })
}

func (g NodeListGroup) FindChainedCalls(names ...string) NodeListGroup {
	return g.eachGroup(func(l NodeList) NodeListGroup { return l.FindChainedCalls(names...) })
}

func (g NodeListGroup) FindByAccessPath(path, keyword string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindByAccessPath(path, keyword) })
}

func (g NodeListGroup) FindComparisonsBetween(a, b string) NodeListGroup {
	return g.eachGroup(func(l NodeList) NodeListGroup { return l.FindComparisonsBetween(a, b) })
}

func (g NodeListGroup) FindComparisonInvolving(ident string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindComparisonInvolving(ident) })
}

func (g NodeListGroup) FindMutables() NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindMutables() })
}

func (g NodeListGroup) FindAssignments(ident, value string) NodeListGroup {
	return g.eachGroup(func(l NodeList) NodeListGroup { return l.FindAssignments(ident, value) })
}

func (g NodeListGroup) FindNegativeOfOperation(op string, args ...string) (NodeList, error) {
	out := NodeList{}
	for _, l := range g {
		res, err := l.FindNegativeOfOperation(op, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func (g NodeListGroup) FindAllFunctions() NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindAllFunctions() })
}

func (g NodeListGroup) FindFunctionsByNames(names ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindFunctionsByNames(names...) })
}

func (g NodeListGroup) FindFunctionsByNamePatterns(patterns ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindFunctionsByNamePatterns(patterns...) })
}

func (g NodeListGroup) FindMethodCalls(caller, method string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindMethodCalls(caller, method) })
}

func (g NodeListGroup) FindAccountTypedNodes(ident string, typeNames ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindAccountTypedNodes(ident, typeNames...) })
}

func (g NodeListGroup) FindMemberAccesses(ident string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindMemberAccesses(ident) })
}

func (g NodeListGroup) FindModifiersByNames(names ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindModifiersByNames(names...) })
}

func (g NodeListGroup) FindExternalCalls() NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindExternalCalls() })
}

func (g NodeListGroup) FindFunctionsWithAddressAssignments() NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindFunctionsWithAddressAssignments() })
}

func (g NodeListGroup) FindSettersAndConstructors() NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindSettersAndConstructors() })
}

func (g NodeListGroup) FindNodesByNames(names ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindNodesByNames(names...) })
}

func (g NodeListGroup) FindNodesByTypes(types ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindNodesByTypes(types...) })
}

func (g NodeListGroup) FindNodesByTypeStrings(patterns ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindNodesByTypeStrings(patterns...) })
}

func (g NodeListGroup) FindNodesByTypeIdentifiers(patterns ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindNodesByTypeIdentifiers(patterns...) })
}

func (g NodeListGroup) FindNodesByMemberNames(names ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindNodesByMemberNames(names...) })
}

func (g NodeListGroup) FindNodesByOperators(ops ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindNodesByOperators(ops...) })
}

func (g NodeListGroup) FindNodesByMetadataKey(key string, patterns ...string) NodeList {
	return g.each(func(l NodeList) NodeList { return l.FindNodesByMetadataKey(key, patterns...) })
}

func (g NodeListGroup) FindSimilarFunctionDefinitions() NodeListGroup {
	return g.eachGroup(func(l NodeList) NodeListGroup { return l.FindSimilarFunctionDefinitions() })
}
