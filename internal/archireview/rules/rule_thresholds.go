package rules

import (
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/metrics"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/syntax"
)

// thresholdRule fires when a metric of a member exceeds a limit.
type thresholdRule struct {
	base
	limit  int
	metric func(n *syntax.Node) int
}

func (r *thresholdRule) Evaluate(unit review.Unit) (review.Outcome, error) {
	if unit == nil {
		return review.NoResult, errNilUnit
	}
	n, ok := asNode(unit)
	if !ok {
		return review.NoResult, nil
	}
	if r.metric(n) > r.limit {
		return review.Fired(unit.Text()), nil
	}
	return review.NoResult, nil
}

func newTooDeepNestingRule(deps Dependencies) review.SyntaxRule {
	return &thresholdRule{
		base: newBase(review.Metadata{
			ID:               "too-deep-nesting",
			Title:            "Too Deep Nesting",
			Suggestion:       "Reduce nesting by returning early or extracting blocks into functions.",
			Quality:          review.QualityNeedsRefactoring,
			QualityAttribute: review.AttributeModifiability,
			ImpactLevel:      review.ImpactMember,
		}, memberKinds...),
		limit:  deps.Settings.MaxNestingDepth,
		metric: metrics.MaxNesting,
	}
}

func newTooManyParametersRule(deps Dependencies) review.SyntaxRule {
	return &thresholdRule{
		base: newBase(review.Metadata{
			ID:               "too-many-parameters",
			Title:            "Too Many Parameters",
			Suggestion:       "Group related parameters into a struct or split the function.",
			Quality:          review.QualityNeedsRefactoring,
			QualityAttribute: review.AttributeTestability,
			ImpactLevel:      review.ImpactMember,
		}, memberKinds...),
		limit:  deps.Settings.MaxParameters,
		metric: metrics.Parameters,
	}
}

func newTooHighCyclomaticComplexityRule(deps Dependencies) review.SyntaxRule {
	return &thresholdRule{
		base: newBase(review.Metadata{
			ID:               "too-high-cyclomatic-complexity",
			Title:            "Too High Cyclomatic Complexity",
			Suggestion:       "Split the function into smaller functions with fewer branches.",
			Quality:          review.QualityNeedsRefactoring,
			QualityAttribute: review.AttributeTestability,
			ImpactLevel:      review.ImpactMember,
		}, memberKinds...),
		limit:  deps.Settings.MaxCyclomaticComplexity,
		metric: metrics.Cyclomatic,
	}
}
