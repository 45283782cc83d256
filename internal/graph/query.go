package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// All node queries search the receiver's subtree, receiver included, in
// pre-order (children in builder-insertion order) and never deduplicate.
// Chained filters therefore keep the nodes they were applied to when those
// nodes match again.

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func (n *Node) filter(pred func(*Node) bool) NodeList {
	out := NodeList{}
	n.Walk(func(d *Node) {
		if pred(d) {
			out = append(out, d)
		}
	})
	return out
}

// FindByNames returns every node whose identifier is one of names.
func (n *Node) FindByNames(names ...string) NodeList {
	set := nameSet(names)
	return n.filter(func(d *Node) bool { return d.Identifier != "" && set[d.Identifier] })
}

// FindByParent returns every node whose immediate parent has the given identifier.
func (n *Node) FindByParent(parent string) NodeList {
	return n.filter(func(d *Node) bool { return d.Parent != nil && d.Parent.Identifier == parent })
}

// FindChainedCalls returns one list per contiguous run of sibling nodes whose
// identifiers equal names in order. Runs do not overlap.
func (n *Node) FindChainedCalls(names ...string) NodeListGroup {
	out := NodeListGroup{}
	if len(names) == 0 {
		return out
	}
	n.Walk(func(d *Node) {
		kids := d.Children
		for i := 0; i+len(names) <= len(kids); {
			if chainAt(kids, i, names) {
				run := make(NodeList, len(names))
				copy(run, kids[i:i+len(names)])
				out = append(out, run)
				i += len(names)
				continue
			}
			i++
		}
	})
	return out
}

func chainAt(kids []*Node, i int, names []string) bool {
	for j, name := range names {
		if kids[i+j].Identifier != name {
			return false
		}
	}
	return true
}

// FindByAccessPath truncates path after the last occurrence of keyword and
// returns every node whose rendered access path extends the truncation. When
// keyword is empty or absent the whole path is used.
func (n *Node) FindByAccessPath(path, keyword string) NodeList {
	truncated := path
	if idx := strings.LastIndex(path, keyword); keyword != "" && idx >= 0 {
		truncated = path[:idx+len(keyword)]
	}
	return n.filter(func(d *Node) bool {
		s := d.Path.String()
		return s != truncated && strings.Contains(s, truncated)
	})
}

// FindMutables returns every node marked mutable.
func (n *Node) FindMutables() NodeList {
	return n.filter(func(d *Node) bool { return d.Mutable() })
}

// FindNegativeOfOperation returns every node of the subtree, n included, that
// is not part of the result of the named operation applied to n. op may not
// name find_negative_of_operation itself.
func (n *Node) FindNegativeOfOperation(op string, args ...string) (NodeList, error) {
	if op == negativeOp {
		return nil, fmt.Errorf("%s: %w", negativeOp, ErrSelfReference)
	}
	res, err := Invoke(n, op, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", negativeOp, err)
	}
	excluded := roaring.New()
	for _, m := range res.Nodes() {
		excluded.Add(m.ID)
	}
	out := NodeList{}
	n.Walk(func(d *Node) {
		if !excluded.Contains(d.ID) {
			out = append(out, d)
		}
	})
	return out, nil
}

func isFunction(d *Node) bool {
	if d.Language == Solidity {
		return d.NodeType() == "FunctionDefinition"
	}
	return d.Path.EndsWith("fn")
}

// FindAllFunctions returns every function definition.
func (n *Node) FindAllFunctions() NodeList {
	return n.filter(isFunction)
}

// FindFunctionsByNames returns function definitions whose name is one of names.
func (n *Node) FindFunctionsByNames(names ...string) NodeList {
	set := nameSet(names)
	return n.filter(func(d *Node) bool { return isFunction(d) && set[d.Identifier] })
}

// FindFunctionsByNamePatterns returns function definitions whose name matches
// any pattern (regular expression, or substring when the pattern does not compile).
func (n *Node) FindFunctionsByNamePatterns(patterns ...string) NodeList {
	m := newMatcher(patterns)
	return n.filter(func(d *Node) bool { return isFunction(d) && m.match(d.Identifier) })
}

// FindMethodCalls returns method-call nodes named method whose receiver is caller.
func (n *Node) FindMethodCalls(caller, method string) NodeList {
	return n.filter(func(d *Node) bool {
		return d.Path.EndsWith("method_call") &&
			d.Identifier == method &&
			len(d.Children) > 0 &&
			d.Children[0].Identifier == caller
	})
}

// FindAccountTypedNodes returns nodes named ident whose declared type path
// ends in one of typeNames ("Account" when none are given).
func (n *Node) FindAccountTypedNodes(ident string, typeNames ...string) NodeList {
	if len(typeNames) == 0 {
		typeNames = []string{"Account"}
	}
	types := nameSet(typeNames)
	return n.filter(func(d *Node) bool {
		if d.Identifier != ident {
			return false
		}
		var last *Node
		for _, c := range d.Children {
			if isTypeSegmentOf(c, d) {
				last = c
			}
		}
		return last != nil && types[last.Identifier]
	})
}

// isTypeSegmentOf reports whether c sits at <parent>.ty.path.segments[i].
func isTypeSegmentOf(c, parent *Node) bool {
	if len(c.Path) != len(parent.Path)+4 || !c.Path.HasPrefix(parent.Path) {
		return false
	}
	tail := c.Path[len(parent.Path):]
	return tail[0].Is("ty") && tail[1].Is("path") && tail[2].Is("segments") && tail[3].IsIndex
}

// FindMemberAccesses returns nodes named ident that appear inside a token stream.
func (n *Node) FindMemberAccesses(ident string) NodeList {
	return n.filter(func(d *Node) bool { return d.Identifier == ident && d.Path.HasField("tokens") })
}

// -----------------------------------------------------------------------------
// Comparison and assignment sites
// -----------------------------------------------------------------------------

// site is one structural occurrence of a binary construct. lhs and rhs are
// path prefixes: every node below a prefix belongs to that operand.
type site struct {
	key      string
	lhs, rhs Path
}

var comparisonOperators = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// collectSites gathers distinct sites in order of first appearance.
func collectSites(nodes NodeList, detect func(*Node) []site) []site {
	seen := map[string]bool{}
	var out []site
	for _, d := range nodes {
		for _, s := range detect(d) {
			if !seen[s.key] {
				seen[s.key] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// pathSites finds sites marked by a run of field names in a node's own path,
// e.g. cond.binary.left. The site prefix ends at the last marker name.
func pathSites(p Path, markers []string, lhs, rhs string) []site {
	var out []site
	for _, i := range p.FieldRuns(markers...) {
		end := i + len(markers)
		if end >= len(p) || (!p[end].Is(lhs) && !p[end].Is(rhs)) {
			continue
		}
		prefix := append(Path{}, p[:end]...)
		s := site{key: prefix.Key(), lhs: prefix.Append(Field(lhs))}
		if rhs != "" {
			s.rhs = prefix.Append(Field(rhs))
		}
		out = append(out, s)
	}
	return out
}

func nodeSite(d *Node, lhs, rhs string) site {
	s := site{key: d.Path.Key(), lhs: d.Path.Append(Field(lhs))}
	if rhs != "" {
		s.rhs = d.Path.Append(Field(rhs))
	}
	return s
}

func comparisonSites(d *Node) []site {
	if d.Language == Solidity {
		if d.NodeType() == "BinaryOperation" && comparisonOperators[d.MetaString("operator")] {
			return []site{nodeSite(d, "leftExpression", "rightExpression")}
		}
		return nil
	}
	return pathSites(d.Path, []string{"cond", "binary"}, "left", "right")
}

// unarySites finds negation-style conditions. The whole operand is lhs.
func unarySites(d *Node) []site {
	if d.Language == Solidity {
		if d.NodeType() == "UnaryOperation" && d.MetaString("operator") == "!" {
			return []site{nodeSite(d, "subExpression", "")}
		}
		return nil
	}
	var out []site
	for _, i := range d.Path.FieldRuns("cond", "unary") {
		prefix := append(Path{}, d.Path[:i+2]...)
		out = append(out, site{key: prefix.Key(), lhs: prefix})
	}
	return out
}

func assignmentSites(d *Node) []site {
	if d.Language == Solidity {
		switch d.NodeType() {
		case "Assignment":
			return []site{nodeSite(d, "leftHandSide", "rightHandSide")}
		case "VariableDeclarationStatement":
			return []site{nodeSite(d, "declarations", "initialValue")}
		}
		return nil
	}
	out := pathSites(d.Path, []string{"assign"}, "left", "right")
	return append(out, pathSites(d.Path, []string{"let"}, "pat", "init")...)
}

// region returns the nodes of list that lie under prefix, in order.
func region(list NodeList, prefix Path) NodeList {
	out := NodeList{}
	if prefix == nil {
		return out
	}
	for _, d := range list {
		if d.Path.HasPrefix(prefix) {
			out = append(out, d)
		}
	}
	return out
}

func containsIdent(list NodeList, ident string) bool {
	for _, d := range list {
		if d.Identifier == ident {
			return true
		}
	}
	return false
}

// FindComparisonsBetween returns one [left, right] pair per comparison whose
// operands mention a and b, in either order. Each element is the top node of
// its operand.
func (n *Node) FindComparisonsBetween(a, b string) NodeListGroup {
	desc := n.Subtree()
	out := NodeListGroup{}
	for _, s := range collectSites(desc, comparisonSites) {
		left, right := region(desc, s.lhs), region(desc, s.rhs)
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		if (containsIdent(left, a) && containsIdent(right, b)) ||
			(containsIdent(left, b) && containsIdent(right, a)) {
			out = append(out, NodeList{left[0], right[0]})
		}
	}
	return out
}

// FindComparisonInvolving returns the top node of every comparison or negated
// condition operand that mentions ident.
func (n *Node) FindComparisonInvolving(ident string) NodeList {
	desc := n.Subtree()
	out := NodeList{}
	for _, s := range collectSites(desc, comparisonSites) {
		for _, prefix := range []Path{s.lhs, s.rhs} {
			if r := region(desc, prefix); containsIdent(r, ident) {
				out = append(out, r[0])
			}
		}
	}
	for _, s := range collectSites(desc, unarySites) {
		if r := region(desc, s.lhs); containsIdent(r, ident) {
			out = append(out, r[0])
		}
	}
	return out
}

// FindAssignments returns [left, right] pairs where a left-hand node is named
// ident and the first node of the same site's right-hand side is named value.
func (n *Node) FindAssignments(ident, value string) NodeListGroup {
	desc := n.Subtree()
	out := NodeListGroup{}
	for _, s := range collectSites(desc, assignmentSites) {
		right := region(desc, s.rhs)
		if len(right) == 0 || right[0].Identifier != value {
			continue
		}
		for _, l := range region(desc, s.lhs) {
			if l.Identifier == ident {
				out = append(out, NodeList{l, right[0]})
			}
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Pattern matching
// -----------------------------------------------------------------------------

// matcher tests a value against regular expressions, falling back to a
// substring test for patterns that do not compile.
type matcher struct {
	res  []*regexp.Regexp
	subs []string
}

func newMatcher(patterns []string) matcher {
	var m matcher
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			m.res = append(m.res, re)
		} else {
			m.subs = append(m.subs, p)
		}
	}
	return m
}

func (m matcher) match(s string) bool {
	for _, re := range m.res {
		if re.MatchString(s) {
			return true
		}
	}
	for _, sub := range m.subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
