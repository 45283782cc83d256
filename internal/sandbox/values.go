package sandbox

import (
	"fmt"
	"sort"

	"github.com/agentic-research/radar/internal/graph"
	"go.starlark.net/starlark"
)

// nodeValue exposes a *graph.Node to scripts. Equality is node identity.
type nodeValue struct{ n *graph.Node }

// listValue exposes a NodeList; groupValue a NodeListGroup.
type (
	listValue  struct{ l graph.NodeList }
	groupValue struct{ g graph.NodeListGroup }
)

var (
	_ starlark.HasAttrs  = nodeValue{}
	_ starlark.Indexable = (*listValue)(nil)
	_ starlark.Iterable  = (*listValue)(nil)
	_ starlark.HasAttrs  = (*listValue)(nil)
	_ starlark.Indexable = (*groupValue)(nil)
	_ starlark.Iterable  = (*groupValue)(nil)
	_ starlark.HasAttrs  = (*groupValue)(nil)
)

// operationNames is every query method, plus the terminators and to_result.
var operationNames = func() []string {
	var names []string
	for _, op := range graph.Operations() {
		names = append(names, op.Name)
	}
	return names
}()

func (v nodeValue) String() string {
	if v.n.IsRoot() {
		return fmt.Sprintf("<node root %s>", v.n.File)
	}
	return fmt.Sprintf("<node %s %s>", v.n.Identifier, v.n.Path)
}
func (v nodeValue) Type() string          { return "node" }
func (v nodeValue) Freeze()               {}
func (v nodeValue) Truth() starlark.Bool  { return starlark.True }
func (v nodeValue) Hash() (uint32, error) { return v.n.ID, nil }

var nodeAttrs = []string{"access_path", "children", "file", "ident", "language", "metadata", "node_type", "parent", "src"}

func (v nodeValue) AttrNames() []string {
	names := append(append([]string{}, nodeAttrs...), operationNames...)
	names = append(names, "to_result")
	sort.Strings(names)
	return names
}

func (v nodeValue) Attr(name string) (starlark.Value, error) {
	n := v.n
	switch name {
	case "ident":
		if n.Identifier == "" {
			return starlark.None, nil
		}
		return starlark.String(n.Identifier), nil
	case "src":
		if n.Span == nil {
			return starlark.None, nil
		}
		return fromGo(map[string]any{
			"file": n.Span.File, "line": n.Span.Line,
			"start_col": n.Span.StartColumn, "end_col": n.Span.EndColumn,
		}), nil
	case "access_path":
		return starlark.String(n.Path.String()), nil
	case "metadata":
		return fromGo(n.Metadata), nil
	case "children":
		return &listValue{append(graph.NodeList{}, n.Children...)}, nil
	case "parent":
		if n.Parent == nil {
			return starlark.None, nil
		}
		return nodeValue{n.Parent}, nil
	case "language":
		return starlark.String(n.Language), nil
	case "node_type":
		return starlark.String(n.NodeType()), nil
	case "file":
		return starlark.String(n.File), nil
	case "to_result":
		return method(v, name, func(*starlark.Thread) (starlark.Value, error) {
			return fromGo(n.ToResult()), nil
		}), nil
	}
	return queryMethod(v, name), nil
}

func (v *listValue) String() string {
	return fmt.Sprintf("<node_list len=%d>", len(v.l))
}
func (v *listValue) Type() string          { return "node_list" }
func (v *listValue) Freeze()               {}
func (v *listValue) Truth() starlark.Bool  { return len(v.l) > 0 }
func (v *listValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: node_list") }
func (v *listValue) Len() int              { return len(v.l) }
func (v *listValue) Index(i int) starlark.Value {
	return nodeValue{v.l[i]}
}
func (v *listValue) Iterate() starlark.Iterator {
	return &iterator{n: len(v.l), at: v.Index}
}

func (v *listValue) AttrNames() []string { return collectionAttrs() }

func (v *listValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "first":
		return method(v, name, func(thread *starlark.Thread) (starlark.Value, error) {
			n, err := v.l.First()
			if err != nil {
				return nil, halt(thread)
			}
			return nodeValue{n}, nil
		}), nil
	case "exit_on_none":
		return method(v, name, func(thread *starlark.Thread) (starlark.Value, error) {
			if _, err := v.l.ExitOnNone(); err != nil {
				return nil, halt(thread)
			}
			return v, nil
		}), nil
	case "exit_on_value":
		return method(v, name, func(thread *starlark.Thread) (starlark.Value, error) {
			if _, err := v.l.ExitOnValue(); err != nil {
				return nil, halt(thread)
			}
			return v, nil
		}), nil
	case "to_result":
		return method(v, name, func(*starlark.Thread) (starlark.Value, error) {
			return fromGo(v.l.ToResult()), nil
		}), nil
	}
	return queryMethod(v, name), nil
}

func (v *groupValue) String() string {
	return fmt.Sprintf("<node_list_group len=%d>", len(v.g))
}
func (v *groupValue) Type() string          { return "node_list_group" }
func (v *groupValue) Freeze()               {}
func (v *groupValue) Truth() starlark.Bool  { return len(v.g) > 0 }
func (v *groupValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: node_list_group") }
func (v *groupValue) Len() int              { return len(v.g) }
func (v *groupValue) Index(i int) starlark.Value {
	return &listValue{v.g[i]}
}
func (v *groupValue) Iterate() starlark.Iterator {
	return &iterator{n: len(v.g), at: v.Index}
}

func (v *groupValue) AttrNames() []string { return collectionAttrs() }

func (v *groupValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "first":
		return method(v, name, func(thread *starlark.Thread) (starlark.Value, error) {
			l, err := v.g.First()
			if err != nil {
				return nil, halt(thread)
			}
			return &listValue{l}, nil
		}), nil
	case "exit_on_none":
		return method(v, name, func(thread *starlark.Thread) (starlark.Value, error) {
			if _, err := v.g.ExitOnNone(); err != nil {
				return nil, halt(thread)
			}
			return v, nil
		}), nil
	case "exit_on_value":
		return method(v, name, func(thread *starlark.Thread) (starlark.Value, error) {
			if _, err := v.g.ExitOnValue(); err != nil {
				return nil, halt(thread)
			}
			return v, nil
		}), nil
	case "to_result":
		return method(v, name, func(*starlark.Thread) (starlark.Value, error) {
			return fromGo(v.g.ToResult()), nil
		}), nil
	}
	return queryMethod(v, name), nil
}

func collectionAttrs() []string {
	names := append([]string{"exit_on_none", "exit_on_value", "first", "to_result"}, operationNames...)
	sort.Strings(names)
	return names
}

type iterator struct {
	i, n int
	at   func(int) starlark.Value
}

func (it *iterator) Next(p *starlark.Value) bool {
	if it.i >= it.n {
		return false
	}
	*p = it.at(it.i)
	it.i++
	return true
}

func (it *iterator) Done() {}

// method binds a no-argument method to recv.
func method(recv starlark.Value, name string, fn func(*starlark.Thread) (starlark.Value, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return fn(thread)
	}).BindReceiver(recv)
}

// queryMethod returns the registered query operation name bound to recv, or
// nil so the interpreter reports a missing attribute.
func queryMethod(recv starlark.Value, name string) starlark.Value {
	if _, ok := graph.Lookup(name); !ok {
		return nil
	}
	return starlark.NewBuiltin(name, callQuery).BindReceiver(recv)
}

func callQuery(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	strs, err := stringArgs(b.Name(), args)
	if err != nil {
		return nil, err
	}

	var q graph.Queryable
	switch r := b.Receiver().(type) {
	case nodeValue:
		q = r.n
	case *listValue:
		q = r.l
	case *groupValue:
		q = r.g
	default:
		return nil, fmt.Errorf("%s: unsupported receiver %s", b.Name(), b.Receiver().Type())
	}

	m, err := graph.Invoke(q, b.Name(), strs...)
	if err != nil {
		return nil, err
	}
	switch m := m.(type) {
	case graph.NodeList:
		return &listValue{m}, nil
	case graph.NodeListGroup:
		return &groupValue{m}, nil
	}
	return &listValue{m.Nodes()}, nil
}

// stringArgs accepts strings, and lists or tuples of strings flattened in
// order.
func stringArgs(name string, args starlark.Tuple) ([]string, error) {
	var out []string
	for i, a := range args {
		switch a := a.(type) {
		case starlark.String:
			out = append(out, string(a))
		case *starlark.List, starlark.Tuple:
			it := a.(starlark.Iterable).Iterate()
			var elem starlark.Value
			for it.Next(&elem) {
				s, ok := elem.(starlark.String)
				if !ok {
					it.Done()
					return nil, fmt.Errorf("%s: argument %d: want string, got %s", name, i+1, elem.Type())
				}
				out = append(out, string(s))
			}
			it.Done()
		default:
			return nil, fmt.Errorf("%s: argument %d: want string, got %s", name, i+1, a.Type())
		}
	}
	return out, nil
}
