// Package syntax adapts tree-sitter parse trees to review units.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
	LangUnknown    Language = "unknown"
)

var (
	// ErrUnsupportedLanguage indicates that no grammar is available for the
	// requested language or file extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed indicates that tree-sitter produced no tree.
	ErrParseFailed = errors.New("parse failed")
)

// DetectLanguage maps a file name to a language by extension.
func DetectLanguage(filename string) Language {
	switch filepath.Ext(filename) {
	case ".ts", ".tsx", ".mts", ".cts":
		return LangTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript
	case ".go":
		return LangGo
	case ".py", ".pyi":
		return LangPython
	case ".rs":
		return LangRust
	case ".php":
		return LangPHP
	}
	return LangUnknown
}

// Supported reports whether files in lang can be parsed.
func Supported(lang Language) bool {
	return getLanguage(lang) != nil
}

func getLanguage(lang Language) *sitter.Language {
	switch lang {
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangGo:
		return golang.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	case LangPHP:
		return php.GetLanguage()
	default:
		return nil
	}
}

// Tree is a parsed file. Nodes are only valid until Close.
type Tree struct {
	path string
	lang Language
	src  []byte
	tree *sitter.Tree
}

// Parse parses content, choosing the grammar from the file extension.
func Parse(ctx context.Context, content []byte, path string) (*Tree, error) {
	return ParseLanguage(ctx, content, path, DetectLanguage(path))
}

// ParseLanguage parses content with the grammar of lang. A fresh
// tree-sitter parser is created per call, so concurrent calls are safe.
func ParseLanguage(ctx context.Context, content []byte, path string, lang Language) (*Tree, error) {
	sl := getLanguage(lang)
	if sl == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedLanguage)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sl)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrParseFailed, err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("%s: %w: no root node", path, ErrParseFailed)
	}
	return &Tree{path: path, lang: lang, src: content, tree: tree}, nil
}

func (t *Tree) Path() string         { return t.path }
func (t *Tree) Language() Language   { return t.lang }
func (t *Tree) Source() []byte       { return t.src }
func (t *Tree) Root() *Node          { return wrap(t.tree.RootNode(), t) }
func (t *Tree) HasErrors() bool      { return t.tree.RootNode().HasError() }
func (t *Tree) LineCount() int       { return strings.Count(string(t.src), "\n") + 1 }
func (t *Tree) Sitter() *sitter.Tree { return t.tree }

// Close releases the tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Imports returns the import paths of the file.
func (t *Tree) Imports() ([]string, error) {
	var queryStr string
	switch t.lang {
	case LangTypeScript, LangJavaScript:
		queryStr = `
		(import_statement source: (string (string_fragment) @path))
		(export_statement source: (string (string_fragment) @path))
		`
	case LangGo:
		queryStr = `
		(import_spec path: (interpreted_string_literal) @path)
		`
	case LangPython:
		queryStr = `
		(import_from_statement module_name: (dotted_name) @path)
		(import_statement name: (dotted_name) @path)
		`
	case LangRust:
		queryStr = `
		(use_declaration argument: (scoped_identifier) @path)
		`
	case LangPHP:
		queryStr = `
		(namespace_use_clause (qualified_name) @path)
		`
	}
	if queryStr == "" {
		return nil, nil
	}

	q, err := sitter.NewQuery([]byte(queryStr), getLanguage(t.lang))
	if err != nil {
		return nil, err
	}
	defer q.Close()
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, t.tree.RootNode())

	var imports []string
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			if c.Node != nil {
				text := c.Node.Content(t.src)
				imports = append(imports, strings.Trim(text, "\"'`"))
			}
		}
	}
	return imports, nil
}
