// Package metrics computes size and complexity measures over syntax nodes:
// cyclomatic complexity, nesting depth, parameter count, lines of code,
// Halstead volume and the maintainability index derived from them.
package metrics

import (
	"math"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/syntax"
)

// Metrics holds the measures of a single member.
type Metrics struct {
	LinesOfCode          int     `json:"lines_of_code"`
	Cyclomatic           int     `json:"cyclomatic"`
	MaxNesting           int     `json:"max_nesting"`
	Parameters           int     `json:"parameters"`
	HalsteadVolume       float64 `json:"halstead_volume"`
	MaintainabilityIndex float64 `json:"maintainability_index"`
}

var decisionTypes = map[syntax.Language][]string{
	syntax.LangGo: {"if_statement", "for_statement", "expression_case", "type_case", "communication_case"},
	syntax.LangTypeScript: {"if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause", "ternary_expression"},
	syntax.LangJavaScript: {"if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause", "ternary_expression"},
	syntax.LangPython: {"if_statement", "elif_clause", "for_statement", "while_statement",
		"except_clause", "conditional_expression", "boolean_operator", "for_in_clause", "if_clause"},
	syntax.LangRust: {"if_expression", "for_expression", "while_expression", "loop_expression", "match_arm"},
	syntax.LangPHP: {"if_statement", "else_if_clause", "for_statement", "foreach_statement",
		"while_statement", "do_statement", "case_statement", "catch_clause", "conditional_expression"},
}

var nestingTypes = map[syntax.Language][]string{
	syntax.LangGo: {"if_statement", "for_statement", "expression_switch_statement",
		"type_switch_statement", "select_statement", "func_literal"},
	syntax.LangTypeScript: {"if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_statement", "try_statement", "arrow_function"},
	syntax.LangJavaScript: {"if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_statement", "try_statement", "arrow_function"},
	syntax.LangPython: {"if_statement", "for_statement", "while_statement", "try_statement",
		"with_statement", "lambda"},
	syntax.LangRust: {"if_expression", "for_expression", "while_expression", "loop_expression",
		"match_expression", "closure_expression"},
	syntax.LangPHP: {"if_statement", "for_statement", "foreach_statement", "while_statement",
		"do_statement", "switch_statement", "try_statement", "anonymous_function_creation_expression"},
}

func isOneOf(t string, list []string) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

// Measure computes every metric for a member node.
func Measure(n *syntax.Node) Metrics {
	m := Metrics{
		LinesOfCode:    LinesOfCode(n),
		Cyclomatic:     Cyclomatic(n),
		MaxNesting:     MaxNesting(n),
		Parameters:     Parameters(n),
		HalsteadVolume: HalsteadVolume(n),
	}
	m.MaintainabilityIndex = MaintainabilityIndex(m.HalsteadVolume, m.Cyclomatic, m.LinesOfCode)
	return m
}

// Cyclomatic returns 1 plus the number of decision points below n. Short
// circuit && and || count as decisions.
func Cyclomatic(n *syntax.Node) int {
	decisions := decisionTypes[n.Language()]
	src := n.Source()
	cc := 1
	n.Walk(func(s *sitter.Node) bool {
		t := s.Type()
		switch {
		case isOneOf(t, decisions):
			cc++
		case t == "binary_expression":
			if op := s.ChildByFieldName("operator"); op != nil {
				switch op.Content(src) {
				case "&&", "||", "and", "or":
					cc++
				}
			}
		}
		return true
	})
	return cc
}

// MaxNesting returns the deepest nesting of control structures below n.
// A function body with a single if has depth 1.
func MaxNesting(n *syntax.Node) int {
	kinds := nestingTypes[n.Language()]
	var deepest int
	var visit func(s *sitter.Node, depth int)
	visit = func(s *sitter.Node, depth int) {
		if isOneOf(s.Type(), kinds) {
			depth++
			if depth > deepest {
				deepest = depth
			}
		}
		for i := 0; i < int(s.NamedChildCount()); i++ {
			visit(s.NamedChild(i), depth)
		}
	}
	for _, c := range n.Named() {
		visit(c.Sitter(), 0)
	}
	return deepest
}

// Parameters returns the number of declared parameters of a member node.
// Go groups such as (a, b int) count each name; Python self and cls are
// not counted.
func Parameters(n *syntax.Node) int {
	params := n.Field("parameters")
	if params == nil {
		return 0
	}
	var count int
	for _, p := range params.Named() {
		switch p.Type() {
		case "comment", "line_comment", "block_comment":
			continue
		case "parameter_declaration":
			names := 0
			for _, c := range p.Named() {
				if c.Type() == "identifier" {
					names++
				}
			}
			if names == 0 {
				names = 1
			}
			count += names
		case "identifier":
			if n.Language() == syntax.LangPython && (p.Text() == "self" || p.Text() == "cls") {
				continue
			}
			count++
		case "self_parameter":
			continue
		default:
			count++
		}
	}
	return count
}

// LinesOfCode counts the non-blank lines of n that are not comment-only.
func LinesOfCode(n *syntax.Node) int {
	var loc int
	inBlock := false
	for _, line := range strings.Split(n.Text(), "\n") {
		line = strings.TrimSpace(line)
		if inBlock {
			if strings.Contains(line, "*/") {
				inBlock = false
			}
			continue
		}
		switch {
		case line == "":
		case strings.HasPrefix(line, "//"), strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "/*"):
			inBlock = !strings.Contains(line, "*/")
		default:
			loc++
		}
	}
	return loc
}

// HalsteadVolume computes N*log2(n) where operands are the named leaves
// (identifiers and literals) and operators are the anonymous leaves
// (keywords and punctuation).
func HalsteadVolume(n *syntax.Node) float64 {
	src := n.Source()
	distinct := make(map[string]struct{})
	var total int
	n.Walk(func(s *sitter.Node) bool {
		if s.ChildCount() > 0 {
			return true
		}
		t := s.Type()
		if t == "comment" || t == "line_comment" || t == "block_comment" {
			return false
		}
		var key string
		if s.IsNamed() {
			key = "o:" + s.Content(src)
		} else {
			key = "p:" + t
		}
		distinct[key] = struct{}{}
		total++
		return true
	})
	if len(distinct) < 2 {
		return 0
	}
	return float64(total) * math.Log2(float64(len(distinct)))
}

// MaintainabilityIndex returns the normalized maintainability index in
// [0, 100]: max(0, (171 - 5.2 ln V - 0.23 CC - 16.2 ln LOC) * 100 / 171).
func MaintainabilityIndex(volume float64, cyclomatic, loc int) float64 {
	lnV := 0.0
	if volume > 0 {
		lnV = math.Log(volume)
	}
	lnLOC := 0.0
	if loc > 0 {
		lnLOC = math.Log(float64(loc))
	}
	mi := (171 - 5.2*lnV - 0.23*float64(cyclomatic) - 16.2*lnLOC) * 100 / 171
	return math.Max(0, math.Min(100, mi))
}

// Stats summarizes a sample of member sizes.
type Stats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Describe returns the mean and population standard deviation of values.
func Describe(values []int) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return Stats{N: len(values), Mean: mean, StdDev: math.Sqrt(sq / float64(len(values)))}
}

// Sigma returns how many standard deviations v lies above the mean, or 0
// when the sample has no spread.
func (s Stats) Sigma(v int) float64 {
	if s.StdDev == 0 {
		return 0
	}
	return (float64(v) - s.Mean) / s.StdDev
}
