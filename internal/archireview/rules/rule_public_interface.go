package rules

import (
	"strings"
	"unicode"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/syntax"
)

// publicInterfaceImplementationRule flags public classes whose first
// implemented interface is I-prefixed and unknown to the type catalogue,
// i.e. an interface of the project itself.
type publicInterfaceImplementationRule struct {
	base
	types TypeLookup
}

func newPublicInterfaceImplementationRule(deps Dependencies) review.SyntaxRule {
	return &publicInterfaceImplementationRule{
		base: newBase(review.Metadata{
			ID:               "public-interface-implementation",
			Title:            "Public Interface Implementation",
			Suggestion:       "Consider whether the interface implementation also needs to be public.",
			Quality:          review.QualityNeedsReview,
			QualityAttribute: review.AttributeModifiability,
			ImpactLevel:      review.ImpactProject,
		}, "class_declaration", "class_definition"),
		types: deps.Types,
	}
}

func (r *publicInterfaceImplementationRule) Evaluate(unit review.Unit) (review.Outcome, error) {
	if unit == nil {
		return review.NoResult, errNilUnit
	}
	n, ok := asNode(unit)
	if !ok || !isPublicClass(n) {
		return review.NoResult, nil
	}
	iface := firstInterface(n)
	if !interfaceName(iface) || r.types.Lookup(iface) {
		return review.NoResult, nil
	}
	return review.Fired(unit.Text()), nil
}

func interfaceName(name string) bool {
	runes := []rune(name)
	return len(runes) > 1 && runes[0] == 'I' && unicode.IsUpper(runes[1])
}

func isPublicClass(n *syntax.Node) bool {
	switch n.Language() {
	case syntax.LangTypeScript, syntax.LangJavaScript:
		p := n.Parent()
		return p != nil && p.Type() == "export_statement"
	case syntax.LangPython:
		return !strings.HasPrefix(n.Name(), "_")
	case syntax.LangPHP:
		return true
	}
	return false
}

// firstInterface returns the name of the first implemented interface, or
// "" when the class implements none.
func firstInterface(n *syntax.Node) string {
	switch n.Language() {
	case syntax.LangTypeScript, syntax.LangJavaScript:
		for _, c := range n.Named() {
			if c.Type() != "class_heritage" {
				continue
			}
			for _, clause := range c.Named() {
				if clause.Type() == "implements_clause" {
					if types := clause.Named(); len(types) > 0 {
						return typeName(types[0])
					}
				}
			}
		}
	case syntax.LangPHP:
		for _, c := range n.Named() {
			if c.Type() == "class_interface_clause" {
				if names := c.Named(); len(names) > 0 {
					return typeName(names[0])
				}
			}
		}
	case syntax.LangPython:
		if supers := n.Field("superclasses"); supers != nil {
			for _, c := range supers.Named() {
				if c.Type() == "identifier" || c.Type() == "attribute" {
					if name := typeName(c); interfaceName(name) {
						return name
					}
				}
			}
		}
	}
	return ""
}

func typeName(n *syntax.Node) string {
	if f := n.Field("name"); f != nil && n.Type() != "type_identifier" {
		return f.Text()
	}
	text := n.Text()
	if i := strings.LastIndexAny(text, `.\`); i >= 0 {
		text = text[i+1:]
	}
	if i := strings.Index(text, "<"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
