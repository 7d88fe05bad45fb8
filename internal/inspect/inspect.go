// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inspect lists the C functions defined in an extracted block body.
// It reports what the tree-sitter C grammar recognizes and never rejects a
// block: bodies that do not parse cleanly simply yield fewer functions.
package inspect

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/pdiddy/cblocks/pkg/types"
)

var language = sitter.NewLanguage(c.Language())

// Functions returns the function definitions found in text, in source order.
func Functions(ctx context.Context, text string) ([]types.CFunction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("loading C grammar: %w", err)
	}

	source := []byte(text)
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsing block body failed")
	}
	defer tree.Close()

	var funcs []types.CFunction
	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}
		name := functionName(n.ChildByFieldName("declarator"), source)
		if name != "" {
			funcs = append(funcs, types.CFunction{
				Name:      name,
				Signature: signature(n, source),
				Line:      int(n.StartPosition().Row) + 1,
				Static:    isStatic(n, source),
			})
		}
		// Nested function definitions are not C.
		return false
	})
	return funcs, nil
}

// Annotate fills Functions on every cblock and cshare block of doc.
func Annotate(ctx context.Context, doc *types.Document) error {
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		if b.Kind != types.KeywordCBlock && b.Kind != types.KeywordCShare {
			continue
		}
		funcs, err := Functions(ctx, b.Text)
		if err != nil {
			return fmt.Errorf("inspecting %s at line %d: %w", b.Kind, b.Line, err)
		}
		b.Functions = funcs
	}
	return nil
}

// functionName finds the identifier inside a (possibly pointer-returning)
// function declarator.
func functionName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "identifier":
		return nodeText(node, source)
	case "function_declarator", "pointer_declarator", "parenthesized_declarator":
		if d := node.ChildByFieldName("declarator"); d != nil {
			return functionName(d, source)
		}
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == "identifier" {
			return nodeText(child, source)
		}
	}
	return ""
}

// signature is the definition text up to its body, whitespace collapsed.
func signature(node *sitter.Node, source []byte) string {
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	return strings.Join(strings.Fields(string(source[node.StartByte():end])), " ")
}

func isStatic(node *sitter.Node, source []byte) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == "storage_class_specifier" && nodeText(child, source) == "static" {
			return true
		}
	}
	return false
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree visits node and its descendants depth first. Returning false
// from visit skips the node's children.
func walkTree(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walkTree(node.Child(i), visit)
	}
}
