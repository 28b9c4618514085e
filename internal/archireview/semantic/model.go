// Package semantic builds the semantic context handed to semantic rules:
// a Model per parsed file and a Solution spanning the whole project.
package semantic

import (
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/metrics"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/syntax"
)

// Member is a function or method declared in a file.
type Member struct {
	Name    string          `json:"name"`
	Owner   string          `json:"owner,omitempty"`
	Span    review.Span     `json:"span"`
	Metrics metrics.Metrics `json:"metrics"`
}

// Type is a type declared in a file.
type Type struct {
	Name string      `json:"name"`
	Span review.Span `json:"span"`
}

// Model is the semantic view of one file. It is immutable once built and
// safe for concurrent reads.
type Model struct {
	path     string
	language syntax.Language
	types    []Type
	members  []Member
	imports  []string
	byStart  map[spanKey]int
}

type spanKey struct{ line, col int }

var _ review.SemanticModel = (*Model)(nil)

// NewModel extracts the declarations, member metrics and imports of tree.
func NewModel(tree *syntax.Tree) (*Model, error) {
	imports, err := tree.Imports()
	if err != nil {
		return nil, err
	}
	m := &Model{
		path:     tree.Path(),
		language: tree.Language(),
		imports:  imports,
		byStart:  make(map[spanKey]int),
	}
	for _, d := range tree.Types() {
		if d.Name == "" {
			continue
		}
		m.types = append(m.types, Type{Name: d.Name, Span: d.Node.Span()})
	}
	for _, d := range tree.Members() {
		span := d.Node.Span()
		m.byStart[spanKey{span.StartLine, span.StartColumn}] = len(m.members)
		m.members = append(m.members, Member{
			Name:    d.Name,
			Owner:   d.Owner,
			Span:    span,
			Metrics: metrics.Measure(d.Node),
		})
	}
	return m, nil
}

func (m *Model) Path() string            { return m.path }
func (m *Model) Language() string        { return string(m.language) }
func (m *Model) Types() []Type           { return m.types }
func (m *Model) Members() []Member       { return m.members }
func (m *Model) Imports() []string       { return m.imports }
func (m *Model) Syntax() syntax.Language { return m.language }

// MemberAt returns the member whose declaration starts where span starts.
func (m *Model) MemberAt(span review.Span) (Member, bool) {
	i, ok := m.byStart[spanKey{span.StartLine, span.StartColumn}]
	if !ok {
		return Member{}, false
	}
	return m.members[i], true
}

// MemberMetrics returns the metrics of the member declared at span.
func (m *Model) MemberMetrics(span review.Span) (metrics.Metrics, bool) {
	mem, ok := m.MemberAt(span)
	return mem.Metrics, ok
}
