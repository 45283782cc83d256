package sandbox

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.starlark.net/starlark"
)

// printBuiltin captures one line per call. Strings print raw; nodes and
// containers print as JSON so the finding extractor can read them back.
func printBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	sep := " "
	if err := starlark.UnpackArgs(b.Name(), nil, kwargs, "sep?", &sep); err != nil {
		return nil, err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := render(a)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	if st := stateOf(thread); st != nil {
		st.lines = append(st.lines, strings.Join(parts, sep))
	}
	return starlark.None, nil
}

func render(v starlark.Value) (string, error) {
	switch v := v.(type) {
	case starlark.String:
		return string(v), nil
	case nodeValue, *listValue, *groupValue, *starlark.Dict, *starlark.List, starlark.Tuple:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(toGo(v)); err != nil {
			return "", err
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	default:
		return v.String(), nil
	}
}
