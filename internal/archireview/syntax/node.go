package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// Node wraps a tree-sitter node as a review.Unit. Comments are reported as
// trivia with a single- or multi-line comment kind; every other node keeps
// its grammar type as kind.
type Node struct {
	n    *sitter.Node
	tree *Tree
}

var _ review.Unit = (*Node)(nil)

func wrap(n *sitter.Node, t *Tree) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n, tree: t}
}

func isCommentType(t string) bool {
	switch t {
	case "comment", "line_comment", "block_comment":
		return true
	}
	return false
}

func (n *Node) Kind() review.Kind {
	t := n.n.Type()
	if !isCommentType(t) {
		return review.Kind(t)
	}
	if t == "block_comment" || strings.HasPrefix(n.Text(), "/*") {
		return review.KindMultiLineComment
	}
	return review.KindSingleLineComment
}

func (n *Node) IsTrivia() bool { return isCommentType(n.n.Type()) }

func (n *Node) Text() string { return n.n.Content(n.tree.src) }

func (n *Node) Span() review.Span {
	start, end := n.n.StartPoint(), n.n.EndPoint()
	return review.Span{
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column) + 1,
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column) + 1,
	}
}

// Children returns the named children in document order. Anonymous tokens
// such as punctuation are skipped.
func (n *Node) Children() []review.Unit {
	count := int(n.n.NamedChildCount())
	out := make([]review.Unit, 0, count)
	for i := 0; i < count; i++ {
		if c := n.n.NamedChild(i); c != nil {
			out = append(out, wrap(c, n.tree))
		}
	}
	return out
}

// Type is the raw grammar type, also for comments.
func (n *Node) Type() string { return n.n.Type() }

// Language is the language of the tree the node belongs to.
func (n *Node) Language() Language { return n.tree.lang }

// Path is the file the node was parsed from.
func (n *Node) Path() string { return n.tree.path }

// Field returns the child stored under a grammar field name, or nil.
func (n *Node) Field(name string) *Node {
	return wrap(n.n.ChildByFieldName(name), n.tree)
}

func (n *Node) Parent() *Node {
	return wrap(n.n.Parent(), n.tree)
}

// Sitter exposes the underlying tree-sitter node.
func (n *Node) Sitter() *sitter.Node { return n.n }

// Named returns the named children as nodes.
func (n *Node) Named() []*Node {
	count := int(n.n.NamedChildCount())
	out := make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.n.NamedChild(i); c != nil {
			out = append(out, wrap(c, n.tree))
		}
	}
	return out
}

// Walk visits n and its descendants in pre-order, including anonymous
// nodes, until fn returns false for a subtree.
func (n *Node) Walk(fn func(*sitter.Node) bool) {
	walk(n.n, fn)
}

func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}

// Source returns the source bytes of the tree.
func (n *Node) Source() []byte { return n.tree.src }

// LineCount is the number of lines the node spans.
func (n *Node) LineCount() int {
	return int(n.n.EndPoint().Row-n.n.StartPoint().Row) + 1
}

// FindAncestor returns the nearest ancestor whose grammar type is in types.
func (n *Node) FindAncestor(types ...string) *Node {
	for p := n.n.Parent(); p != nil; p = p.Parent() {
		for _, t := range types {
			if p.Type() == t {
				return wrap(p, n.tree)
			}
		}
	}
	return nil
}
