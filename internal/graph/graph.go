package graph

import (
	"encoding/json"
	"errors"
	"sort"
)

// ErrStop is returned by query terminators (First, ExitOnNone, ExitOnValue)
// when a rule should end with zero findings. It is not a failure.
var ErrStop = errors.New("rule stopped: no further matches")

// Language tags the ecosystem a node was built from.
type Language string

const (
	Rust     Language = "rust"
	Solidity Language = "solidity"
)

// Node is the universal primitive: one primary token of a parsed source file.
// Nodes are immutable once the builder returns them.
type Node struct {
	ID         uint32         // Unique within a Forest
	Identifier string         // Empty when the token carries no identifier
	Span       *SourceSpan    // nil for the synthetic root
	Path       Path           // Structural position inside the file's raw tree
	Metadata   map[string]any // Ecosystem-specific attributes (mut, operator, node_type, ...)
	Children   []*Node
	Parent     *Node // nil only for synthetic roots
	Language   Language
	File       string
}

// IsRoot reports whether n is a synthetic per-file root.
func (n *Node) IsRoot() bool { return n.Parent == nil && n.Span == nil && len(n.Path) == 0 && n.Metadata["root"] == true }

// AddChild appends child and sets its parent. A child that already has a
// parent is left untouched.
func (n *Node) AddChild(child *Node) {
	if child.Parent != nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Meta returns a metadata value.
func (n *Node) Meta(key string) (any, bool) {
	v, ok := n.Metadata[key]
	return v, ok
}

// MetaString returns a string metadata value or "".
func (n *Node) MetaString(key string) string {
	s, _ := n.Metadata[key].(string)
	return s
}

// NodeType returns the ecosystem node kind (Solidity nodeType), if recorded.
func (n *Node) NodeType() string { return n.MetaString("node_type") }

// Mutable reports whether the node is marked mutable in its ecosystem's terms.
func (n *Node) Mutable() bool {
	switch n.Language {
	case Solidity:
		return n.MetaString("mutability") == "mutable"
	default:
		v, _ := n.Metadata["mut"].(bool)
		return v
	}
}

// Walk visits n and all of its descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Descendants returns every node below n in pre-order, n excluded.
func (n *Node) Descendants() NodeList {
	out := NodeList{}
	for _, c := range n.Children {
		c.Walk(func(d *Node) { out = append(out, d) })
	}
	return out
}

// Subtree returns n followed by its descendants in pre-order.
func (n *Node) Subtree() NodeList {
	out := NodeList{}
	n.Walk(func(d *Node) { out = append(out, d) })
	return out
}

// Forest holds the per-file roots built for one scan.
// It is populated single-threaded by the builder and read-only afterwards.
type Forest struct {
	roots  map[string]*Node
	nextID uint32
}

func NewForest() *Forest {
	return &Forest{roots: make(map[string]*Node)}
}

// NewNode allocates a node with a fresh ID.
func (f *Forest) NewNode(lang Language, file string, path Path) *Node {
	n := &Node{
		ID:       f.nextID,
		Path:     path,
		Metadata: map[string]any{},
		Language: lang,
		File:     file,
	}
	f.nextID++
	return n
}

// NewRoot allocates the synthetic root for a file and registers it.
// An existing root for the same file is replaced.
func (f *Forest) NewRoot(lang Language, file string) *Node {
	root := f.NewNode(lang, file, Path{})
	root.Metadata["root"] = true
	f.roots[file] = root
	return root
}

// Root returns the synthetic root for a file.
func (f *Forest) Root(file string) (*Node, bool) {
	r, ok := f.roots[file]
	return r, ok
}

// Files returns the file paths in sorted order.
func (f *Forest) Files() []string {
	files := make([]string, 0, len(f.roots))
	for file := range f.roots {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// Roots returns the per-file roots ordered by file path.
func (f *Forest) Roots() NodeList {
	out := NodeList{}
	for _, file := range f.Files() {
		out = append(out, f.roots[file])
	}
	return out
}

// Len returns the number of nodes allocated, roots included.
func (f *Forest) Len() int { return int(f.nextID) }

// Languages returns the distinct languages present, sorted.
func (f *Forest) Languages() []Language {
	seen := map[Language]bool{}
	var out []Language
	for _, r := range f.roots {
		if !seen[r.Language] {
			seen[r.Language] = true
			out = append(out, r.Language)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON renders every root's result form keyed by file.
func (f *Forest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.roots))
	for file, root := range f.roots {
		out[file] = root.ToResult()
	}
	return json.Marshal(out)
}
