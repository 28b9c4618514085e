package rules

import (
	"regexp"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

var todoMarker = regexp.MustCompile(`\b(TODO|FIXME|HACK|XXX)\b`)

type todoCommentRule struct{ base }

func newTodoCommentRule(Dependencies) review.SyntaxRule {
	return &todoCommentRule{base: newBase(review.Metadata{
		ID:               "todo-comment",
		Title:            "Unresolved Work Marker",
		Suggestion:       "Resolve the marked work or track it in an issue.",
		Quality:          review.QualityNeedsCleanup,
		QualityAttribute: review.AttributeCodeQuality,
		ImpactLevel:      review.ImpactLine,
	}, review.KindSingleLineComment, review.KindMultiLineComment)}
}

func (r *todoCommentRule) Evaluate(unit review.Unit) (review.Outcome, error) {
	if unit == nil {
		return review.NoResult, errNilUnit
	}
	if todoMarker.MatchString(unit.Text()) {
		return review.Fired(unit.Text()), nil
	}
	return review.NoResult, nil
}

type gotoStatementRule struct{ base }

func newGotoStatementRule(Dependencies) review.SyntaxRule {
	return &gotoStatementRule{base: newBase(review.Metadata{
		ID:               "goto-statement",
		Title:            "Goto Statement",
		Suggestion:       "Replace goto with structured control flow.",
		Quality:          review.QualityNeedsReEngineering,
		QualityAttribute: review.AttributeModifiability,
		ImpactLevel:      review.ImpactMember,
	}, "goto_statement")}
}

func (r *gotoStatementRule) Evaluate(unit review.Unit) (review.Outcome, error) {
	if unit == nil {
		return review.NoResult, errNilUnit
	}
	return review.Fired(unit.Text()), nil
}
