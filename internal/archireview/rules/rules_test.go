package rules

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/graph"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/resource"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/semantic"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/syntax"
)

func testDeps(t *testing.T) Dependencies {
	t.Helper()
	dict, err := resource.NewDictionary()
	require.NoError(t, err)
	return Dependencies{
		Spelling: dict,
		Types: resource.NewTypeCatalogue(resource.StaticSource{
			Name:  "test",
			Names: []string{"System.IDisposable", "IComparable"},
		}, nil),
	}
}

func syntaxRule(t *testing.T, id string) review.SyntaxRule {
	t.Helper()
	all, err := GetSyntaxRules(testDeps(t))
	require.NoError(t, err)
	for _, r := range all {
		if r.Metadata().ID == id {
			return r
		}
	}
	t.Fatalf("no syntax rule %q", id)
	return nil
}

func parse(t *testing.T, path, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), []byte(src), path)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func reviewWith(t *testing.T, syn []review.SyntaxRule, sem []review.SemanticRule, path, src string) *review.Report {
	t.Helper()
	tree := parse(t, path, src)
	req := review.Request{Project: "test", File: path, Root: tree.Root()}
	if len(sem) > 0 {
		model, err := semantic.NewModel(tree)
		require.NoError(t, err)
		sol := semantic.NewSolution("test", graph.NewGraph(nil), nil)
		sol.Index(model)
		req.Model, req.Solution = model, sol
	}
	report, err := review.NewReviewer(syn, sem).Review(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, report.Faults)
	return report
}

func ids(report *review.Report) []string {
	out := []string{}
	for _, r := range report.Results {
		out = append(out, r.Rule.ID)
	}
	return out
}

func TestMissingDependency(t *testing.T) {
	deps := testDeps(t)

	noSpelling := deps
	noSpelling.Spelling = nil
	rules, err := GetSyntaxRules(noSpelling)
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.ErrorIs(t, err, review.ErrMissingDependency)
	assert.Empty(t, rules)

	noTypes := deps
	noTypes.Types = nil
	semRules, err := GetSemanticRules(noTypes)
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Empty(t, semRules)

	reg := NewRegistry(noSpelling)
	syn, err := reg.SyntaxRules()
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Empty(t, syn)
	_, err = reg.Catalogue()
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestRegistryOrderIsDeterministic(t *testing.T) {
	want := []string{
		"method-name-spelling",
		"single-line-comment-language",
		"multi-line-comment-language",
		"public-interface-implementation",
		"too-deep-nesting",
		"too-many-parameters",
		"too-high-cyclomatic-complexity",
		"todo-comment",
		"goto-statement",
		"too-low-maintainability-index",
		"member-size-outlier",
	}
	for i := 0; i < 2; i++ {
		cat, err := NewRegistry(testDeps(t)).Catalogue()
		require.NoError(t, err)
		var got []string
		for _, m := range cat {
			got = append(got, m.ID)
		}
		assert.Equal(t, want, got)
	}

	reg := NewRegistry(testDeps(t))
	first, err := reg.SyntaxRules()
	require.NoError(t, err)
	second, err := reg.SyntaxRules()
	require.NoError(t, err)
	assert.Same(t, first[0], second[0])

	syn, sem, err := reg.Without("todo-comment", "member-size-outlier")
	require.NoError(t, err)
	assert.Len(t, syn, 8)
	assert.Len(t, sem, 1)
	assert.Equal(t, "goto-statement", syn[7].Metadata().ID)
}

func TestSettingsDefaults(t *testing.T) {
	assert.Equal(t, DefaultSettings, Settings{}.withDefaults())
	custom := Settings{MaxParameters: 2}.withDefaults()
	assert.Equal(t, 2, custom.MaxParameters)
	assert.Equal(t, 3, custom.MaxNestingDepth)
}

func TestMethodNameSpelling(t *testing.T) {
	rule := syntaxRule(t, "method-name-spelling")
	tests := []struct {
		name string
		want int
	}{
		{"SomMethod", 1},
		{"CalclateValue", 1},
		{"GetValu", 1},
		{"Calculate", 0},
		{"parseHTTPResponse", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fmt.Sprintf("package p\n\nfunc %s() {}\n", tt.name)
			report := reviewWith(t, []review.SyntaxRule{rule}, nil, "p.go", src)
			require.Len(t, report.Results, tt.want)
			if tt.want > 0 {
				assert.Equal(t, fmt.Sprintf("func %s() {}", tt.name), report.Results[0].Snippet)
				assert.Equal(t, 3, report.Results[0].Location.Span.StartLine)
			}
		})
	}
}

func TestSplitIdentifier(t *testing.T) {
	assert.Equal(t, []string{"parse", "HTTP", "Response"}, SplitIdentifier("parseHTTPResponse2"))
	assert.Equal(t, []string{"Som", "Method"}, SplitIdentifier("SomMethod"))
	assert.Equal(t, []string{"init"}, SplitIdentifier("__init__"))
	assert.Empty(t, SplitIdentifier(""))
}

func TestMultiLineCommentLanguage(t *testing.T) {
	rule := syntaxRule(t, "multi-line-comment-language")
	tests := []struct {
		comment string
		fires   bool
	}{
		{"Donde esta la cerveza?", true},
		{"Dette er ikke en engelsk kommentar.", true},
		{".NET has syntactic sugar the iterator pattern.", false},
		{"This comment is in English.", false},
		{"<summary>Returns a string.</summary>", false},
		{"<returns>A string.</returns>", false},
		{"ASP.NET MVC is a .NET acronym.", false},
	}
	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			src := fmt.Sprintf("package p\n\nfunc SomeMethod() {\n/* %s */\n}\n", tt.comment)
			report := reviewWith(t, []review.SyntaxRule{rule}, nil, "p.go", src)
			if tt.fires {
				require.Len(t, report.Results, 1)
				assert.Equal(t, "/* "+tt.comment+" */", report.Results[0].Snippet)
			} else {
				assert.Empty(t, report.Results)
			}
		})
	}
}

func TestSingleLineCommentLanguage(t *testing.T) {
	rule := syntaxRule(t, "single-line-comment-language")
	tests := []struct {
		comment string
		fires   bool
	}{
		{"Dette er ikke en engelsk kommentar.", true},
		{"<returns>Noget tekst.</returns>", true},
		{"Returns the value.", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			src := fmt.Sprintf("package p\n\nfunc SomeMethod() {\n\t// %s\n}\n", tt.comment)
			report := reviewWith(t, []review.SyntaxRule{rule}, nil, "p.go", src)
			if tt.fires {
				assert.Len(t, report.Results, 1)
			} else {
				assert.Empty(t, report.Results)
			}
		})
	}
}

func TestCommentWords(t *testing.T) {
	assert.Equal(t, []string{"Returns", "a", "string"}, CommentWords("/** <summary>Returns a string.</summary> */"))
	assert.Equal(t, []string{"is", "a", "acronym"}, CommentWords("// ASP.NET MVC is a .NET acronym."))
	assert.Equal(t, []string{"see", "for", "details"}, CommentWords("# see parseHTTP2 for details"))
	assert.Empty(t, CommentWords("/* <br/> */"))
}

func TestPublicInterfaceImplementation(t *testing.T) {
	rule := syntaxRule(t, "public-interface-implementation")
	tests := []struct {
		name  string
		path  string
		src   string
		fires bool
	}{
		{"exported ts class with project interface", "a.ts", "export class Square implements IShape {}\n", true},
		{"exported ts class with known interface", "a.ts", "export class Handle implements IDisposable {}\n", false},
		{"internal ts class", "a.ts", "class Square implements IShape {}\n", false},
		{"ts class without interface", "a.ts", "export class Square extends Base {}\n", false},
		{"ts name that is not an interface", "a.ts", "export class Box implements Iterable<number> {}\n", false},
		{"php class", "a.php", "<?php\nclass Repo implements IRepository {}\n", true},
		{"python class", "a.py", "class Repo(IRepository):\n    pass\n", true},
		{"private python class", "a.py", "class _Repo(IRepository):\n    pass\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := reviewWith(t, []review.SyntaxRule{rule}, nil, tt.path, tt.src)
			if tt.fires {
				assert.Len(t, report.Results, 1)
			} else {
				assert.Empty(t, report.Results)
			}
		})
	}
}

func TestThresholdRules(t *testing.T) {
	deps := testDeps(t)
	syn, err := GetSyntaxRules(deps)
	require.NoError(t, err)

	src := `package p

func deep(a, b, c, d, e, f int) int {
	if a > 0 {
		if b > 0 {
			if c > 0 {
				if d > 0 {
					return e
				}
			}
		}
	}
	return f
}

func shallow(a int) int {
	if a > 0 {
		return 1
	}
	return 0
}
`
	report := reviewWith(t, syn, nil, "p.go", src)
	assert.Equal(t, []string{"too-deep-nesting", "too-many-parameters"}, ids(report))
	for _, r := range report.Results {
		assert.Equal(t, 3, r.Location.Span.StartLine)
	}

	var b strings.Builder
	b.WriteString("def branchy(x):\n")
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&b, "    if x == %d:\n        return %d\n", i, i)
	}
	b.WriteString("    return -1\n")
	report = reviewWith(t, []review.SyntaxRule{syntaxRule(t, "too-high-cyclomatic-complexity")}, nil, "p.py", b.String())
	assert.Equal(t, []string{"too-high-cyclomatic-complexity"}, ids(report))
}

func TestMarkerRules(t *testing.T) {
	src := `package p

// TODO: handle the error
// Todos are fine in prose.
func run() {
	goto end
end:
	println()
}
`
	report := reviewWith(t, []review.SyntaxRule{syntaxRule(t, "todo-comment"), syntaxRule(t, "goto-statement")}, nil, "p.go", src)
	require.Equal(t, []string{"todo-comment", "goto-statement"}, ids(report))
	assert.Equal(t, "// TODO: handle the error", report.Results[0].Snippet)
	assert.Equal(t, "goto end", report.Results[1].Snippet)
}

func TestTooLowMaintainabilityIndex(t *testing.T) {
	sem, err := GetSemanticRules(testDeps(t))
	require.NoError(t, err)
	mi := sem[:1]

	report := reviewWith(t, nil, mi, "p.go", "package p\n\nfunc DoSomething() {\n\tprintln(\"Hello World\")\n}\n")
	assert.Empty(t, report.Results)

	var b strings.Builder
	b.WriteString("package p\n\nfunc Huge(x int) int {\n\ty := 0\n")
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "\tif x == %d {\n\t\ty += x * %d\n\t}\n", i, i)
	}
	b.WriteString("\treturn y\n}\n")
	report = reviewWith(t, nil, mi, "p.go", b.String())
	assert.Equal(t, []string{"too-low-maintainability-index"}, ids(report))
}

func TestSemanticRulesRejectNilModel(t *testing.T) {
	sem, err := GetSemanticRules(testDeps(t))
	require.NoError(t, err)
	tree := parse(t, "p.go", "package p\n\nfunc f() {}\n")
	unit := tree.Members()[0].Node
	for _, rule := range sem {
		_, err := rule.EvaluateSemantic(context.Background(), unit, nil, nil)
		assert.ErrorIs(t, err, review.ErrInvalidArgument, rule.Metadata().ID)
	}
}

func TestMemberSizeOutlier(t *testing.T) {
	sem, err := GetSemanticRules(testDeps(t))
	require.NoError(t, err)
	sigma := sem[1:]

	var b strings.Builder
	b.WriteString("package p\n\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "func small%d() {\n\tprintln(%d)\n}\n\n", i, i)
	}
	b.WriteString("func large() {\n")
	for i := 0; i < 198; i++ {
		fmt.Fprintf(&b, "\tprintln(%d)\n", i)
	}
	b.WriteString("}\n")

	report := reviewWith(t, nil, sigma, "p.go", b.String())
	require.Equal(t, []string{"member-size-outlier"}, ids(report))
	assert.True(t, strings.HasPrefix(report.Results[0].Snippet, "func large()"))

	// Below the minimum sample size nothing is flagged.
	report = reviewWith(t, nil, sigma, "p.go", "package p\n\nfunc a() {}\n\nfunc b() {\n\tprintln()\n\tprintln()\n\tprintln()\n}\n")
	assert.Empty(t, report.Results)
}

func TestFullRegistryReview(t *testing.T) {
	reg := NewRegistry(testDeps(t))
	syn, err := reg.SyntaxRules()
	require.NoError(t, err)
	sem, err := reg.SemanticRules()
	require.NoError(t, err)

	src := `package demo

// Dette er ikke en engelsk kommentar.
func SomMethod(a, b, c, d, e, f int) int {
	// TODO remove
	return a
}
`
	report := reviewWith(t, syn, sem, "demo.go", src)
	assert.Equal(t, []string{
		"single-line-comment-language",
		"method-name-spelling",
		"too-many-parameters",
		"todo-comment",
	}, ids(report))
	assert.Equal(t, review.QualityNeedsRefactoring, report.Worst())
	for _, r := range report.Results {
		assert.Equal(t, "test", r.Location.Project)
		assert.Equal(t, "demo.go", r.Location.File)
	}

	again := reviewWith(t, syn, sem, "demo.go", src)
	assert.Equal(t, report.Results, again.Results)
}
