package syntax

import sitter "github.com/smacker/go-tree-sitter"

// Member kinds per language: the grammar types that declare functions and
// methods, and the ones that declare types.
var (
	memberTypes = map[Language][]string{
		LangGo:         {"function_declaration", "method_declaration"},
		LangTypeScript: {"function_declaration", "method_definition", "generator_function_declaration"},
		LangJavaScript: {"function_declaration", "method_definition", "generator_function_declaration"},
		LangPython:     {"function_definition"},
		LangRust:       {"function_item"},
		LangPHP:        {"function_definition", "method_declaration"},
	}
	typeTypes = map[Language][]string{
		LangGo:         {"type_spec"},
		LangTypeScript: {"class_declaration", "interface_declaration", "type_alias_declaration", "enum_declaration"},
		LangJavaScript: {"class_declaration"},
		LangPython:     {"class_definition"},
		LangRust:       {"struct_item", "enum_item", "trait_item"},
		LangPHP:        {"class_declaration", "interface_declaration", "trait_declaration"},
	}
)

// MemberTypes returns the grammar types of function-like declarations.
func MemberTypes(lang Language) []string { return memberTypes[lang] }

// TypeTypes returns the grammar types of type declarations.
func TypeTypes(lang Language) []string { return typeTypes[lang] }

// IsMember reports whether grammar type t declares a function or method.
func IsMember(lang Language, t string) bool { return contains(memberTypes[lang], t) }

// IsType reports whether grammar type t declares a type.
func IsType(lang Language, t string) bool { return contains(typeTypes[lang], t) }

// Declaration is a named member or type found in a tree.
type Declaration struct {
	Name  string
	Owner string
	Node  *Node
}

// Members returns the function-like declarations of the tree in document
// order. Owner is set for methods declared inside a type.
func (t *Tree) Members() []Declaration {
	return t.collect(memberTypes[t.lang])
}

// Types returns the type declarations of the tree in document order.
func (t *Tree) Types() []Declaration {
	return t.collect(typeTypes[t.lang])
}

func (t *Tree) collect(kinds []string) []Declaration {
	var out []Declaration
	root := t.Root()
	var visit func(n *Node)
	visit = func(n *Node) {
		if contains(kinds, n.Type()) {
			out = append(out, Declaration{Name: n.Name(), Owner: n.Owner(), Node: n})
		}
		for _, c := range n.Named() {
			visit(c)
		}
	}
	visit(root)
	return out
}

// Name returns the declared name of a member or type node, or "".
func (n *Node) Name() string {
	if f := n.Field("name"); f != nil {
		return f.Text()
	}
	return ""
}

// Owner returns the name of the type a method belongs to, or "".
func (n *Node) Owner() string {
	if n.tree.lang == LangGo && n.Type() == "method_declaration" {
		recv := n.Field("receiver")
		if recv == nil {
			return ""
		}
		var owner string
		recv.Walk(func(s *sitter.Node) bool {
			if owner == "" && s.Type() == "type_identifier" {
				owner = s.Content(n.tree.src)
			}
			return owner == ""
		})
		return owner
	}
	if a := n.FindAncestor(typeTypes[n.tree.lang]...); a != nil {
		return a.Name()
	}
	if n.tree.lang == LangRust {
		if impl := n.FindAncestor("impl_item"); impl != nil {
			if ty := impl.Field("type"); ty != nil {
				return ty.Text()
			}
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
