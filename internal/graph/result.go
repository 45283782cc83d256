package graph

// ToResult renders the node as the plain map rule scripts print:
// {src, ident, access_path, metadata, children, parent}. Solidity nodes also
// carry node_type and file, and their parent is reported by node type.
func (n *Node) ToResult() map[string]any {
	res := map[string]any{
		"src":         nil,
		"ident":       nil,
		"access_path": n.Path.String(),
		"metadata":    n.Metadata,
		"parent":      nil,
	}
	if n.Span != nil {
		res["src"] = n.Span.toResult()
	}
	if n.Identifier != "" {
		res["ident"] = n.Identifier
	}

	children := make([]any, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.ToResult()
	}
	res["children"] = children

	if n.Language == Solidity {
		res["node_type"] = n.NodeType()
		res["file"] = n.File
		if n.Parent != nil && n.Parent.NodeType() != "" {
			res["parent"] = n.Parent.NodeType()
		}
		return res
	}
	if n.Parent != nil && n.Parent.Identifier != "" {
		res["parent"] = n.Parent.Identifier
	}
	return res
}

// ToResult renders every node of the list.
func (l NodeList) ToResult() []any {
	out := make([]any, len(l))
	for i, n := range l {
		out[i] = n.ToResult()
	}
	return out
}

// ToResult renders every list of the group.
func (g NodeListGroup) ToResult() []any {
	out := make([]any, len(g))
	for i, l := range g {
		out[i] = l.ToResult()
	}
	return out
}
