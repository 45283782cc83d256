package ingest

import (
	"path/filepath"
	"strings"

	"github.com/agentic-research/radar/internal/graph"
)

// DetectLanguage maps a source file extension to the ecosystem that parses it.
func DetectLanguage(path string) (graph.Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rs":
		return graph.Rust, true
	case ".sol":
		return graph.Solidity, true
	default:
		return "", false
	}
}

// LanguageProfile tells the builder which raw objects become nodes and what
// they carry.
type LanguageProfile struct {
	Language graph.Language
	// IsPrimary reports whether obj becomes a node.
	IsPrimary func(obj *Object) bool
	// Identifier extracts the node identifier ("" for none).
	Identifier func(obj *Object) string
	// Metadata extracts the semantic attributes copied onto the node.
	Metadata func(obj *Object) map[string]any
	// Mutability returns a mutability marker carried by a non-primary
	// object. nil when the ecosystem co-locates the two.
	Mutability func(obj *Object) (any, bool)
}

// RustProfile reads syn-serde objects: a node is anything with an ident and a span.
func RustProfile() *LanguageProfile {
	return &LanguageProfile{
		Language: graph.Rust,
		IsPrimary: func(obj *Object) bool {
			_, ok := obj.String("ident")
			return ok && obj.Span != nil
		},
		Identifier: func(obj *Object) string {
			s, _ := obj.String("ident")
			return s
		},
		Metadata: func(obj *Object) map[string]any {
			meta := map[string]any{}
			if v, ok := obj.Get("mut"); ok {
				meta["mut"] = v
			}
			return meta
		},
		Mutability: func(obj *Object) (any, bool) {
			return obj.Get("mut")
		},
	}
}

// solidityFields are the solc AST attributes kept as node metadata.
var solidityFields = []string{
	"name", "operator", "kind", "value", "visibility", "stateMutability",
	"mutability", "virtual", "isConstant", "constant", "isPure", "stateVariable",
	"isLValue", "lValueRequested", "memberName", "absolutePath", "literals",
}

// SolidityProfile reads solc AST objects: a node is anything with a nodeType and a span.
func SolidityProfile() *LanguageProfile {
	return &LanguageProfile{
		Language: graph.Solidity,
		IsPrimary: func(obj *Object) bool {
			_, ok := obj.String("nodeType")
			return ok && obj.Span != nil
		},
		Identifier: func(obj *Object) string {
			if s, ok := obj.String("name"); ok && s != "" {
				return s
			}
			s, _ := obj.String("memberName")
			return s
		},
		Metadata: func(obj *Object) map[string]any {
			meta := map[string]any{}
			if t, ok := obj.String("nodeType"); ok {
				meta["node_type"] = t
			}
			for _, key := range solidityFields {
				if v, ok := obj.Get(key); ok && v != nil {
					meta[key] = Plain(v)
				}
			}
			if td, ok := obj.Get("typeDescriptions"); ok {
				if td, ok := td.(*Object); ok {
					if s, ok := td.String("typeIdentifier"); ok {
						meta["type_identifier"] = s
					}
					if s, ok := td.String("typeString"); ok {
						meta["type_string"] = s
					}
				}
			}
			return meta
		},
	}
}
