package graph

import "fmt"

// SourceSpan locates a token in its source file.
// Line and columns are 1-based; EndColumn is exclusive.
type SourceSpan struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	StartColumn int    `json:"start_col"`
	EndColumn   int    `json:"end_col"`
}

// Location renders the span as "file:line:start-end".
func (s SourceSpan) Location() string {
	return fmt.Sprintf("%s:%d:%d-%d", s.File, s.Line, s.StartColumn, s.EndColumn)
}

func (s SourceSpan) toResult() map[string]any {
	return map[string]any{
		"file":      s.File,
		"line":      s.Line,
		"start_col": s.StartColumn,
		"end_col":   s.EndColumn,
	}
}
