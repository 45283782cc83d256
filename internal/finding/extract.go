// Package finding turns the lines printed by a rule into a Finding.
package finding

import (
	"fmt"
	"math"
	"strings"

	"github.com/agentic-research/radar/api"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

var (
	srcFile  = jp.C("src").C("file")
	srcLine  = jp.C("src").C("line")
	srcStart = jp.C("src").C("start_col")
	srcEnd   = jp.C("src").C("end_col")
)

// Extract classifies lines. A printed node (an object with ident and src)
// becomes one location; a printed list of nodes one location per element.
// Every other line is kept verbatim under Debug.
func Extract(tmpl api.RuleTemplate, lines []string) api.Finding {
	f := api.Finding{
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Severity:    tmpl.Severity,
		Certainty:   tmpl.Certainty,
		Locations:   []string{},
	}
	for _, line := range lines {
		locs, ok := classify(line)
		if !ok {
			f.Debug = append(f.Debug, line)
			continue
		}
		f.Locations = append(f.Locations, locs...)
	}
	return f
}

func classify(line string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	data, err := oj.ParseString(trimmed)
	if err != nil {
		return nil, false
	}
	switch v := data.(type) {
	case map[string]any:
		loc, ok := Location(v)
		if !ok {
			return nil, false
		}
		return []string{loc}, true
	case []any:
		locs := make([]string, 0, len(v))
		for _, e := range v {
			loc, ok := Location(e)
			if !ok {
				return nil, false
			}
			locs = append(locs, loc)
		}
		return locs, true
	}
	return nil, false
}

// Location renders a printed node result as "file:line:start_col-end_col".
func Location(node any) (string, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return "", false
	}
	if _, ok := m["ident"]; !ok {
		return "", false
	}
	file, ok := srcFile.First(m).(string)
	if !ok {
		return "", false
	}
	line, ok1 := asInt(srcLine.First(m))
	start, ok2 := asInt(srcStart.First(m))
	end, ok3 := asInt(srcEnd.First(m))
	if !ok1 || !ok2 || !ok3 {
		return "", false
	}
	return fmt.Sprintf("%s:%d:%d-%d", file, line, start, end), true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}
