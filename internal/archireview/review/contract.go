package review

import "context"

// Kind is the discriminant of a tree unit, used for rule matching.
// For tree-sitter backed trees it is the node type ("method_declaration",
// "class_declaration", ...) or one of the comment trivia kinds below.
type Kind string

const (
	KindSingleLineComment Kind = "single_line_comment"
	KindMultiLineComment  Kind = "multi_line_comment"
)

// Span locates a unit in its source file. Lines and columns are 1-based.
type Span struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// Unit is a node or trivia token produced by an external parser.
// The engine never mutates units and never owns the tree behind them.
type Unit interface {
	Kind() Kind
	// IsTrivia reports whether the unit is trivia (comments). Trivia
	// units have no children.
	IsTrivia() bool
	Text() string
	Span() Span
	// Children returns the direct children in document order, trivia
	// included at their document position.
	Children() []Unit
}

// SemanticModel is the semantic view of the file being reviewed.
type SemanticModel interface {
	Path() string
	Language() string
}

// Solution is the project-wide context available to semantic rules.
type Solution interface {
	Name() string
}

// Rule is the metadata and match half of the evaluation contract.
//
// Metadata must not change after construction and Matches must give the
// same answer for a kind for the whole lifetime of the rule.
type Rule interface {
	Metadata() Metadata
	Matches(kind Kind) bool
}

// SyntaxRule inspects a single unit without semantic context.
//
// Evaluate is only called with units whose kind the rule matches. It
// returns NoResult when the rule does not fire. An error is reserved for
// contract violations such as a nil unit (ErrInvalidArgument); failures in
// secondary lookups degrade to NoResult.
type SyntaxRule interface {
	Rule
	Evaluate(unit Unit) (Outcome, error)
}

// SemanticRule inspects a unit with the file's semantic model and the
// solution. Implementations may block (dictionary lookups, statistics over
// the solution) and should honor ctx.
type SemanticRule interface {
	Rule
	EvaluateSemantic(ctx context.Context, unit Unit, model SemanticModel, solution Solution) (Outcome, error)
}

// Outcome is the optional result of one evaluation. The zero value is
// NoResult.
type Outcome struct {
	snippet string
	fired   bool
}

// NoResult is returned when a rule's condition is not met.
var NoResult = Outcome{}

// Fired returns an outcome carrying the offending snippet.
func Fired(snippet string) Outcome {
	return Outcome{snippet: snippet, fired: true}
}

// OK reports whether the rule fired.
func (o Outcome) OK() bool { return o.fired }

// Snippet returns the offending code; empty when the rule did not fire.
func (o Outcome) Snippet() string { return o.snippet }
