package rules

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/syntax"
)

// base carries the immutable metadata and matched kinds of a rule.
type base struct {
	meta  review.Metadata
	kinds map[review.Kind]struct{}
}

func newBase(meta review.Metadata, kinds ...review.Kind) base {
	b := base{meta: meta, kinds: make(map[review.Kind]struct{}, len(kinds))}
	for _, k := range kinds {
		b.kinds[k] = struct{}{}
	}
	return b
}

func (b base) Metadata() review.Metadata { return b.meta }

func (b base) Matches(kind review.Kind) bool {
	_, ok := b.kinds[kind]
	return ok
}

// memberKinds are the function and method declaration kinds of every
// supported grammar.
var memberKinds = func() []review.Kind {
	seen := map[string]bool{}
	var out []review.Kind
	for _, lang := range []syntax.Language{
		syntax.LangGo, syntax.LangTypeScript, syntax.LangJavaScript,
		syntax.LangPython, syntax.LangRust, syntax.LangPHP,
	} {
		for _, t := range syntax.MemberTypes(lang) {
			if !seen[t] {
				seen[t] = true
				out = append(out, review.Kind(t))
			}
		}
	}
	return out
}()

var errNilUnit = fmt.Errorf("%w: nil unit", review.ErrInvalidArgument)

// asNode returns the syntax node behind unit. Units from other parsers
// are not inspected.
func asNode(unit review.Unit) (*syntax.Node, bool) {
	n, ok := unit.(*syntax.Node)
	return n, ok && n != nil
}
