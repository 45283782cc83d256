package sandbox

import (
	"fmt"
	"math"
	"sort"

	"github.com/agentic-research/radar/internal/graph"
	"go.starlark.net/starlark"
)

// fromGo converts plain Go data (as produced by ToResult and node metadata)
// into frozen Starlark values. Map keys are inserted in sorted order.
func fromGo(v any) starlark.Value {
	switch t := v.(type) {
	case nil:
		return starlark.None
	case starlark.Value:
		return t
	case string:
		return starlark.String(t)
	case bool:
		return starlark.Bool(t)
	case int:
		return starlark.MakeInt(t)
	case int64:
		return starlark.MakeInt64(t)
	case uint32:
		return starlark.MakeUint(uint(t))
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return starlark.MakeInt64(int64(t))
		}
		return starlark.Float(t)
	case []any:
		elems := make([]starlark.Value, len(t))
		for i, e := range t {
			elems[i] = fromGo(e)
		}
		l := starlark.NewList(elems)
		l.Freeze()
		return l
	case []string:
		elems := make([]starlark.Value, len(t))
		for i, e := range t {
			elems[i] = starlark.String(e)
		}
		l := starlark.NewList(elems)
		l.Freeze()
		return l
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := starlark.NewDict(len(t))
		for _, k := range keys {
			_ = d.SetKey(starlark.String(k), fromGo(t[k]))
		}
		d.Freeze()
		return d
	case *graph.Node:
		return nodeValue{t}
	case graph.NodeList:
		return &listValue{t}
	case graph.NodeListGroup:
		return &groupValue{t}
	default:
		return starlark.String(fmt.Sprint(t))
	}
}

// toGo converts a Starlark value into plain Go data for JSON rendering.
// Nodes and node collections render as their results.
func toGo(v starlark.Value) any {
	switch t := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.String:
		return string(t)
	case starlark.Bool:
		return bool(t)
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return i
		}
		return t.String()
	case starlark.Float:
		return float64(t)
	case nodeValue:
		return t.n.ToResult()
	case *listValue:
		return t.l.ToResult()
	case *groupValue:
		return t.g.ToResult()
	case *starlark.Dict:
		m := make(map[string]any, t.Len())
		for _, item := range t.Items() {
			key := item[0].String()
			if s, ok := item[0].(starlark.String); ok {
				key = string(s)
			}
			m[key] = toGo(item[1])
		}
		return m
	case starlark.Iterable:
		out := []any{}
		it := t.Iterate()
		defer it.Done()
		var elem starlark.Value
		for it.Next(&elem) {
			out = append(out, toGo(elem))
		}
		return out
	default:
		return v.String()
	}
}
