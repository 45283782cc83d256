package ingest

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// ValidateRust parses content with tree-sitter and returns a *ParseError
// pointing at the first ERROR or MISSING node, if any.
func ValidateRust(ctx context.Context, content []byte, filePath string) error {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return &ParseError{File: filePath, Message: "tree-sitter parse failed", Err: err}
	}

	root := tree.RootNode()
	if root == nil {
		return &ParseError{File: filePath, Message: "tree-sitter returned nil root"}
	}
	if !root.HasError() {
		return nil
	}

	if errNode := findFirstError(root); errNode != nil {
		pt := errNode.StartPoint()
		return &ParseError{
			File:    filePath,
			Line:    int(pt.Row) + 1,
			Column:  int(pt.Column) + 1,
			Message: fmt.Sprintf("syntax error near %q", snippet(errNode.Content(content))),
		}
	}
	return &ParseError{File: filePath, Message: "source contains syntax errors"}
}

// findFirstError does a depth-first search for the first ERROR node.
func findFirstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := findFirstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func snippet(s string) string {
	const limit = 40
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
