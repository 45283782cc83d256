package ingest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agentic-research/radar/internal/graph"
	"github.com/buger/jsonparser"
)

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is a decoded JSON object whose fields keep document order, so the
// builder's traversal is fixed by the input's structure. Span is attached by
// the adapter when the object names a source token.
type Object struct {
	Fields []Field
	Span   *graph.SourceSpan
}

// Get returns the value of the first field named key.
func (o *Object) Get(key string) (any, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns a string-valued field.
func (o *Object) String(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Decode parses JSON into *Object / []any / string / float64 / bool / nil,
// preserving object field order.
func Decode(data []byte) (any, error) {
	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return decodeValue(value, typ)
}

func decodeValue(v []byte, t jsonparser.ValueType) (any, error) {
	switch t {
	case jsonparser.Object:
		obj := &Object{}
		err := jsonparser.ObjectEach(v, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
			val, err := decodeValue(value, dt)
			if err != nil {
				return err
			}
			obj.Fields = append(obj.Fields, Field{Key: string(key), Value: val})
			return nil
		})
		if err != nil {
			return nil, err
		}
		return obj, nil
	case jsonparser.Array:
		arr := []any{}
		var inner error
		_, err := jsonparser.ArrayEach(v, func(value []byte, dt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			val, err := decodeValue(value, dt)
			if err != nil {
				inner = err
				return
			}
			arr = append(arr, val)
		})
		if err != nil {
			return nil, err
		}
		if inner != nil {
			return nil, inner
		}
		return arr, nil
	case jsonparser.String:
		return jsonparser.ParseString(v)
	case jsonparser.Number:
		return jsonparser.ParseFloat(v)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(v)
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, errors.New("malformed json value")
	}
}

// Canonicalize converts plain map[string]any values into Objects with fields
// in sorted key order, recursively. A "src" key holding a graph.SourceSpan
// becomes the object's Span. Ordered Objects are kept as they are.
func Canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := &Object{}
		for _, k := range keys {
			if k == "src" {
				switch s := t[k].(type) {
				case graph.SourceSpan:
					obj.Span = &s
					continue
				case *graph.SourceSpan:
					obj.Span = s
					continue
				}
			}
			obj.Fields = append(obj.Fields, Field{Key: k, Value: Canonicalize(t[k])})
		}
		return obj
	case *Object:
		obj := &Object{Span: t.Span, Fields: make([]Field, len(t.Fields))}
		for i, f := range t.Fields {
			obj.Fields[i] = Field{Key: f.Key, Value: Canonicalize(f.Value)}
		}
		return obj
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Canonicalize(t[i])
		}
		return out
	default:
		return v
	}
}

// Plain converts Objects back into map[string]any for storage in node metadata.
func Plain(v any) any {
	switch t := v.(type) {
	case *Object:
		m := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			m[f.Key] = Plain(f.Value)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Plain(t[i])
		}
		return out
	default:
		return v
	}
}
