package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentic-research/radar/internal/graph"
)

// ErrParse classifies every adapter failure. *ParseError matches it with errors.Is.
var ErrParse = errors.New("parse error")

// ParseError reports malformed source or parser output for one file or unit.
type ParseError struct {
	File    string
	Line    int // 1-based, 0 when unknown
	Column  int // 1-based, 0 when unknown
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, msg)
	}
	return fmt.Sprintf("%s: %s", e.File, msg)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// Unit is one ingestion input as handed over by the orchestration layer.
type Unit struct {
	Language graph.Language

	// Path names the source file (Rust) or the compilation unit (Solidity).
	Path string
	// Source is the Rust source text.
	Source string
	// AST is the raw parser output: syn-serde JSON of a file, or solc
	// standard-json output.
	AST []byte

	// Optional grouping information. For Solidity, Version is the compiler
	// version the unit was built with.
	Package string
	Version string
	// Metadata is copied onto every file root the unit produces.
	Metadata map[string]any

	// Sources maps Solidity source paths, as keyed in the compiler output,
	// to their text. Needed to turn byte offsets into lines and columns.
	Sources map[string]string
}

// FileTree is the adapted token tree of one source file.
type FileTree struct {
	Path     string
	Language graph.Language
	Root     any            // *Object or []any, spans attached
	Metadata map[string]any // copied onto the file's synthetic root
}

// Adapter turns one ecosystem's raw parser output into span-annotated token trees.
type Adapter interface {
	Language() graph.Language
	Profile() *LanguageProfile
	// Adapt returns every file it could adapt together with a joined error
	// of *ParseError for the files it could not.
	Adapt(ctx context.Context, u Unit) ([]FileTree, error)
}

func rootMetadata(u Unit) map[string]any {
	meta := make(map[string]any, len(u.Metadata))
	for k, v := range u.Metadata {
		meta[k] = v
	}
	return meta
}
