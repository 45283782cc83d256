package ingest

import (
	"github.com/agentic-research/radar/internal/graph"
)

// Builder reconstructs the node hierarchy of one file from its token tree.
//
// Primary objects are materialized in pre-order, each tagged with its access
// path. Parents are then resolved by stripping path segments one at a time
// until a materialized node is found; nodes with no hit hang off the file's
// synthetic root.
type Builder struct {
	profile *LanguageProfile
}

func NewBuilder(profile *LanguageProfile) *Builder {
	return &Builder{profile: profile}
}

type buildState struct {
	profile *LanguageProfile
	forest  *graph.Forest
	file    string
	nodes   []*graph.Node
	pending map[*Object]map[string]any // metadata waiting for its nearest primary object
}

// Build adds tree to forest and returns the file's synthetic root.
func (b *Builder) Build(forest *graph.Forest, tree FileTree) *graph.Node {
	root := forest.NewRoot(b.profile.Language, tree.Path)
	for k, v := range tree.Metadata {
		root.Metadata[k] = v
	}

	st := &buildState{
		profile: b.profile,
		forest:  forest,
		file:    tree.Path,
		pending: map[*Object]map[string]any{},
	}

	// 1. Materialize
	st.walk(Canonicalize(tree.Root), graph.Path{})

	// 2. Link
	byPath := make(map[string]*graph.Node, len(st.nodes))
	for _, n := range st.nodes {
		byPath[n.Path.Key()] = n
	}
	for _, n := range st.nodes {
		parent := root
		for p := n.Path; len(p) > 0; {
			p = p[:len(p)-1]
			if cand, ok := byPath[p.Key()]; ok {
				parent = cand
				break
			}
		}
		parent.AddChild(n)
	}
	return root
}

func (st *buildState) walk(v any, path graph.Path) {
	switch t := v.(type) {
	case *Object:
		if st.profile.IsPrimary(t) {
			st.materialize(t, path)
		} else if st.profile.Mutability != nil {
			if m, ok := st.profile.Mutability(t); ok {
				if target := st.firstPrimaryBelow(t); target != nil {
					if st.pending[target] == nil {
						st.pending[target] = map[string]any{}
					}
					if _, set := st.pending[target]["mut"]; !set {
						st.pending[target]["mut"] = m
					}
				}
			}
		}
		for _, f := range t.Fields {
			st.walk(f.Value, path.Append(graph.Field(f.Key)))
		}
	case []any:
		for i, e := range t {
			st.walk(e, path.Append(graph.Index(i)))
		}
	}
}

func (st *buildState) materialize(obj *Object, path graph.Path) {
	n := st.forest.NewNode(st.profile.Language, st.file, path)
	n.Identifier = st.profile.Identifier(obj)
	span := *obj.Span
	n.Span = &span
	for k, v := range st.profile.Metadata(obj) {
		n.Metadata[k] = v
	}
	for k, v := range st.pending[obj] {
		if _, own := n.Metadata[k]; !own {
			n.Metadata[k] = v
		}
	}
	st.nodes = append(st.nodes, n)
}

// firstPrimaryBelow returns the first primary object strictly below obj in
// traversal order.
func (st *buildState) firstPrimaryBelow(obj *Object) *Object {
	var search func(v any) *Object
	search = func(v any) *Object {
		switch t := v.(type) {
		case *Object:
			if st.profile.IsPrimary(t) {
				return t
			}
			for _, f := range t.Fields {
				if found := search(f.Value); found != nil {
					return found
				}
			}
		case []any:
			for _, e := range t {
				if found := search(e); found != nil {
					return found
				}
			}
		}
		return nil
	}
	for _, f := range obj.Fields {
		if found := search(f.Value); found != nil {
			return found
		}
	}
	return nil
}
