package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentic-research/radar/internal/graph"
	"github.com/buger/jsonparser"
)

// SolidityAdapter adapts solc standard-json output. Every AST object carries
// src = "start:length:fileIndex" in bytes, which is normalised to line/column.
type SolidityAdapter struct{}

func (a *SolidityAdapter) Language() graph.Language { return graph.Solidity }

func (a *SolidityAdapter) Profile() *LanguageProfile { return SolidityProfile() }

// Adapt returns one tree per source of the compiler output. Compiler errors
// fail the whole unit; a file that cannot be normalised fails alone.
func (a *SolidityAdapter) Adapt(_ context.Context, u Unit) ([]FileTree, error) {
	raw, err := Decode(u.AST)
	if err != nil {
		return nil, &ParseError{File: u.Path, Message: "decode solc output", Err: err}
	}
	out, ok := raw.(*Object)
	if !ok {
		return nil, &ParseError{File: u.Path, Message: "solc output is not an object"}
	}

	if msgs := compileErrors(out); len(msgs) > 0 {
		return nil, &ParseError{File: u.Path, Message: "compilation failed: " + strings.Join(msgs, "; ")}
	}

	sv, _ := out.Get("sources")
	sources, ok := sv.(*Object)
	if !ok || len(sources.Fields) == 0 {
		return nil, &ParseError{File: u.Path, Message: "no sources generated"}
	}

	// 1. Map compiler file indexes to source paths.
	byID := map[int]string{}
	for _, f := range sources.Fields {
		if entry, ok := f.Value.(*Object); ok {
			if id, ok := entry.Get("id"); ok {
				if n, ok := id.(float64); ok {
					byID[int(n)] = f.Key
				}
			}
		}
	}

	// 2. Normalise spans per file.
	conv := &spanConverter{byID: byID, texts: u.Sources, indexes: map[string]*lineIndex{}}
	var trees []FileTree
	var errs []error
	for _, f := range sources.Fields {
		entry, _ := f.Value.(*Object)
		var ast *Object
		if entry != nil {
			v, _ := entry.Get("ast")
			ast, _ = v.(*Object)
		}
		if ast == nil {
			errs = append(errs, &ParseError{File: f.Key, Message: "no ast in compiler output"})
			continue
		}
		if _, ok := u.Sources[f.Key]; !ok {
			errs = append(errs, &ParseError{File: f.Key, Message: "missing source text"})
			continue
		}
		if err := conv.normalize(ast, f.Key); err != nil {
			errs = append(errs, err)
			continue
		}
		meta := rootMetadata(u)
		if u.Version != "" {
			meta["compiler_version"] = u.Version
		}
		trees = append(trees, FileTree{Path: f.Key, Language: graph.Solidity, Root: ast, Metadata: meta})
	}
	return trees, errors.Join(errs...)
}

func compileErrors(out *Object) []string {
	v, _ := out.Get("errors")
	list, _ := v.([]any)
	var msgs []string
	for _, e := range list {
		obj, ok := e.(*Object)
		if !ok {
			continue
		}
		if sev, _ := obj.String("severity"); sev != "error" {
			continue
		}
		msg, ok := obj.String("formattedMessage")
		if !ok {
			msg, _ = obj.String("message")
		}
		msgs = append(msgs, strings.TrimSpace(msg))
	}
	return msgs
}

type spanConverter struct {
	byID    map[int]string
	texts   map[string]string
	indexes map[string]*lineIndex
}

func (c *spanConverter) index(file string) *lineIndex {
	li, ok := c.indexes[file]
	if !ok {
		li = newLineIndex(file, c.texts[file])
		c.indexes[file] = li
	}
	return li
}

// normalize attaches a Span to every object of v carrying a src string.
// Spans pointing at another known source use that file's text.
func (c *spanConverter) normalize(v any, current string) error {
	switch t := v.(type) {
	case *Object:
		if src, ok := t.String("src"); ok {
			start, length, fileIdx, err := parseSrc(src)
			if err != nil {
				return &ParseError{File: current, Message: "malformed src", Err: err}
			}
			file := current
			if other, ok := c.byID[fileIdx]; ok {
				if _, ok := c.texts[other]; ok {
					file = other
				}
			}
			span := c.index(file).span(start, start+length)
			t.Span = &span
		}
		for _, f := range t.Fields {
			if err := c.normalize(f.Value, current); err != nil {
				return err
			}
		}
	case []any:
		for _, e := range t {
			if err := c.normalize(e, current); err != nil {
				return err
			}
		}
	}
	return nil
}

// SourcePaths lists the source keys of solc standard-json output, in
// document order, so callers can load the matching texts.
func SourcePaths(output []byte) ([]string, error) {
	var paths []string
	err := jsonparser.ObjectEach(output, func(key, _ []byte, _ jsonparser.ValueType, _ int) error {
		paths = append(paths, string(key))
		return nil
	}, "sources")
	if err != nil {
		return nil, &ParseError{File: "solc output", Message: "list sources", Err: err}
	}
	return paths, nil
}

// parseSrc splits "start:length:fileIndex".
func parseSrc(src string) (start, length, fileIdx int, err error) {
	parts := strings.Split(src, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected start:length:file, got %q", src)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("src %q: %w", src, err)
		}
		nums[i] = n
	}
	if nums[0] < 0 || nums[1] < 0 {
		return 0, 0, 0, fmt.Errorf("src %q: negative offset", src)
	}
	return nums[0], nums[1], nums[2], nil
}
