package graph

import (
	"fmt"
	"strings"
)

// Matchers over Solidity metadata. On Rust trees they find nothing, since the
// metadata keys they read are never recorded there.

var lowLevelCalls = map[string]bool{"call": true, "delegatecall": true, "send": true, "transfer": true}

// FindModifiersByNames returns modifier invocations whose modifier name is one of names.
func (n *Node) FindModifiersByNames(names ...string) NodeList {
	set := nameSet(names)
	return n.filter(func(d *Node) bool {
		if d.NodeType() != "ModifierInvocation" {
			return false
		}
		for _, c := range d.Children {
			if c.Path.EndsWith("modifierName") && set[c.Identifier] {
				return true
			}
		}
		return false
	})
}

// FindExternalCalls returns member accesses to call, delegatecall, send or
// transfer that are invoked, with or without call options.
func (n *Node) FindExternalCalls() NodeList {
	return n.filter(func(d *Node) bool {
		if d.NodeType() != "MemberAccess" || !lowLevelCalls[d.MetaString("memberName")] {
			return false
		}
		if d.Parent == nil || !d.Path.EndsWith("expression") {
			return false
		}
		switch d.Parent.NodeType() {
		case "FunctionCall", "FunctionCallOptions":
			return true
		}
		return false
	})
}

// FindFunctionsWithAddressAssignments returns non-view functions that assign
// to an address-typed location, "address payable" included.
func (n *Node) FindFunctionsWithAddressAssignments() NodeList {
	return n.filter(func(d *Node) bool {
		if !isFunction(d) || d.MetaString("stateMutability") == "view" {
			return false
		}
		for _, a := range d.Descendants() {
			if a.NodeType() == "Assignment" && strings.HasPrefix(a.MetaString("type_string"), "address") {
				return true
			}
		}
		return false
	})
}

// FindSettersAndConstructors returns constructors and functions whose name
// starts with "init" or "set".
func (n *Node) FindSettersAndConstructors() NodeList {
	return n.filter(func(d *Node) bool {
		if !isFunction(d) {
			return false
		}
		if d.MetaString("kind") == "constructor" {
			return true
		}
		name := strings.ToLower(d.Identifier)
		return strings.HasPrefix(name, "init") || strings.HasPrefix(name, "set")
	})
}

func (n *Node) metaIn(key string, values []string) NodeList {
	set := nameSet(values)
	return n.filter(func(d *Node) bool {
		v, ok := d.Metadata[key].(string)
		return ok && set[v]
	})
}

func (n *Node) metaMatches(key string, patterns []string) NodeList {
	m := newMatcher(patterns)
	return n.filter(func(d *Node) bool {
		v, ok := d.Metadata[key]
		if !ok || v == nil {
			return false
		}
		if len(patterns) == 0 {
			return true
		}
		return m.match(metaText(v))
	})
}

func metaText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// FindNodesByNames returns nodes whose "name" attribute is one of names.
func (n *Node) FindNodesByNames(names ...string) NodeList { return n.metaIn("name", names) }

// FindNodesByTypes returns nodes of the given node types.
func (n *Node) FindNodesByTypes(types ...string) NodeList { return n.metaIn("node_type", types) }

// FindNodesByMemberNames returns member accesses to one of names.
func (n *Node) FindNodesByMemberNames(names ...string) NodeList {
	return n.metaIn("memberName", names)
}

// FindNodesByOperators returns operations using one of ops.
func (n *Node) FindNodesByOperators(ops ...string) NodeList { return n.metaIn("operator", ops) }

// FindNodesByTypeStrings matches the compiler's type string (e.g. "address payable").
func (n *Node) FindNodesByTypeStrings(patterns ...string) NodeList {
	return n.metaMatches("type_string", patterns)
}

// FindNodesByTypeIdentifiers matches the compiler's type identifier (e.g. "t_address").
func (n *Node) FindNodesByTypeIdentifiers(patterns ...string) NodeList {
	return n.metaMatches("type_identifier", patterns)
}

// FindNodesByMetadataKey returns nodes carrying key, filtered by patterns when given.
func (n *Node) FindNodesByMetadataKey(key string, patterns ...string) NodeList {
	return n.metaMatches(key, patterns)
}

// FindSimilarFunctionDefinitions pairs functions whose bodies have the same
// sequence of node types.
func (n *Node) FindSimilarFunctionDefinitions() NodeListGroup {
	fns := n.FindAllFunctions()
	shapes := make([]string, len(fns))
	for i, fn := range fns {
		if fn.Language != Solidity {
			continue
		}
		var b strings.Builder
		for _, d := range fn.Descendants() {
			b.WriteString(d.NodeType())
			b.WriteByte(',')
		}
		shapes[i] = b.String()
	}

	out := NodeListGroup{}
	for i := range fns {
		if shapes[i] == "" {
			continue
		}
		for j := i + 1; j < len(fns); j++ {
			if shapes[i] == shapes[j] {
				out = append(out, NodeList{fns[i], fns[j]})
			}
		}
	}
	return out
}
