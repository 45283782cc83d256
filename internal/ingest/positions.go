package ingest

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/agentic-research/radar/internal/graph"
)

// lineIndex converts byte offsets of one source text into line/column spans.
type lineIndex struct {
	file   string
	src    string
	starts []int // byte offset of each line start
}

func newLineIndex(file, src string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{file: file, src: src, starts: starts}
}

// span returns the span of src[start:end]. Columns count characters; an end
// beyond the first line is clamped to that line's end.
func (li *lineIndex) span(start, end int) graph.SourceSpan {
	start = min(max(start, 0), len(li.src))
	end = min(max(end, start), len(li.src))

	line := sort.SearchInts(li.starts, start+1) - 1
	lineStart := li.starts[line]
	lineEnd := len(li.src)
	if line+1 < len(li.starts) {
		lineEnd = li.starts[line+1] - 1
	}
	if lineEnd > lineStart && li.src[lineEnd-1] == '\r' {
		lineEnd--
	}
	end = min(end, max(lineEnd, start))

	return graph.SourceSpan{
		File:        li.file,
		Line:        line + 1,
		StartColumn: utf8.RuneCountInString(li.src[lineStart:start]) + 1,
		EndColumn:   utf8.RuneCountInString(li.src[lineStart:end]) + 1,
	}
}

// occurrences hands out source positions for identifiers of a parser that
// does not emit any. The first node naming an identifier gets its first
// whole-word occurrence, later nodes the next unused one. When occurrences run
// out the first one is reused. Scoping and shadowing are not considered.
type occurrences struct {
	index *lineIndex
	seen  map[string]*identSpans
}

type identSpans struct {
	spans []graph.SourceSpan
	next  int
}

func newOccurrences(file, src string) *occurrences {
	return &occurrences{index: newLineIndex(file, src), seen: map[string]*identSpans{}}
}

// next returns the span for the next node named ident, or nil when ident does
// not occur in the source.
func (o *occurrences) next(ident string) *graph.SourceSpan {
	s, ok := o.seen[ident]
	if !ok {
		s = &identSpans{spans: o.find(ident)}
		o.seen[ident] = s
	}
	if len(s.spans) == 0 {
		return nil
	}
	span := s.spans[0]
	if s.next < len(s.spans) {
		span = s.spans[s.next]
		s.next++
	}
	return &span
}

func (o *occurrences) find(ident string) []graph.SourceSpan {
	if ident == "" {
		return nil
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(ident) + `\b`)
	if err != nil {
		return nil
	}
	var out []graph.SourceSpan
	for _, loc := range re.FindAllStringIndex(o.index.src, -1) {
		out = append(out, o.index.span(loc[0], loc[1]))
	}
	return out
}
