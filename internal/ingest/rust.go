package ingest

import (
	"context"
	"errors"

	"github.com/agentic-research/radar/internal/graph"
)

// RustAdapter adapts syn-serde JSON (the serialized syn::File of one source
// file). syn carries no positions, so identifiers are located in the source
// text.
type RustAdapter struct {
	// SkipValidation disables the tree-sitter syntax check of the source.
	SkipValidation bool
}

func (a *RustAdapter) Language() graph.Language { return graph.Rust }

func (a *RustAdapter) Profile() *LanguageProfile { return RustProfile() }

// Adapt validates the source, decodes the syn output and attaches a span to
// every object carrying an ident.
func (a *RustAdapter) Adapt(ctx context.Context, u Unit) ([]FileTree, error) {
	if !a.SkipValidation {
		if err := ValidateRust(ctx, []byte(u.Source), u.Path); err != nil {
			return nil, err
		}
	}
	if len(u.AST) == 0 {
		return nil, &ParseError{File: u.Path, Message: "empty syn output"}
	}

	raw, err := Decode(u.AST)
	if err != nil {
		return nil, &ParseError{File: u.Path, Message: "decode syn output", Err: err}
	}

	items := raw
	if obj, ok := raw.(*Object); ok {
		v, ok := obj.Get("items")
		if !ok {
			return nil, &ParseError{File: u.Path, Message: "syn output has no items"}
		}
		items = v
	}
	arr, ok := items.([]any)
	if !ok {
		return nil, &ParseError{File: u.Path, Message: "syn items is not a list", Err: errors.New("unexpected shape")}
	}

	enrichIdents(arr, newOccurrences(u.Path, u.Source))

	meta := rootMetadata(u)
	if u.Package != "" {
		meta["package"] = u.Package
	}
	if u.Version != "" {
		meta["version"] = u.Version
	}
	return []FileTree{{Path: u.Path, Language: graph.Rust, Root: arr, Metadata: meta}}, nil
}

// enrichIdents walks v in document order and attaches spans to objects with
// a string ident.
func enrichIdents(v any, occ *occurrences) {
	switch t := v.(type) {
	case *Object:
		for _, f := range t.Fields {
			switch val := f.Value.(type) {
			case *Object, []any:
				enrichIdents(val, occ)
			case string:
				if f.Key == "ident" {
					t.Span = occ.next(val)
				}
			}
		}
	case []any:
		for _, e := range t {
			enrichIdents(e, occ)
		}
	}
}
