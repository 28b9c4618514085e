package rules

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/metrics"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// memberMetrics is implemented by semantic models that know the metrics
// of the members they declare.
type memberMetrics interface {
	MemberMetrics(span review.Span) (metrics.Metrics, bool)
}

// memberStats is implemented by solutions that summarize member sizes.
type memberStats interface {
	MemberStats() (metrics.Stats, error)
}

func checkSemanticArgs(ctx context.Context, unit review.Unit, model review.SemanticModel) error {
	if unit == nil {
		return errNilUnit
	}
	if model == nil {
		return fmt.Errorf("%w: nil semantic model", review.ErrInvalidArgument)
	}
	return ctx.Err()
}

type tooLowMaintainabilityIndexRule struct {
	base
	min float64
}

func newTooLowMaintainabilityIndexRule(deps Dependencies) review.SemanticRule {
	return &tooLowMaintainabilityIndexRule{
		base: newBase(review.Metadata{
			ID:               "too-low-maintainability-index",
			Title:            "Too Low Maintainability Index",
			Suggestion:       "Refactor the member into smaller, simpler members.",
			Quality:          review.QualityNeedsReEngineering,
			QualityAttribute: review.AttributeModifiability,
			ImpactLevel:      review.ImpactMember,
		}, memberKinds...),
		min: deps.Settings.MinMaintainabilityIndex,
	}
}

func (r *tooLowMaintainabilityIndexRule) EvaluateSemantic(ctx context.Context, unit review.Unit, model review.SemanticModel, _ review.Solution) (review.Outcome, error) {
	if err := checkSemanticArgs(ctx, unit, model); err != nil {
		return review.NoResult, err
	}
	mm, ok := model.(memberMetrics)
	if !ok {
		return review.NoResult, nil
	}
	m, ok := mm.MemberMetrics(unit.Span())
	if !ok || m.MaintainabilityIndex >= r.min {
		return review.NoResult, nil
	}
	return review.Fired(unit.Text()), nil
}

type memberSizeOutlierRule struct {
	base
	sigma     float64
	minSample int
}

func newMemberSizeOutlierRule(deps Dependencies) review.SemanticRule {
	return &memberSizeOutlierRule{
		base: newBase(review.Metadata{
			ID:               "member-size-outlier",
			Title:            "Member Size Outlier",
			Suggestion:       "The member is much longer than the other members of the project. Consider splitting it.",
			Quality:          review.QualityNeedsRefactoring,
			QualityAttribute: review.AttributeModifiability,
			ImpactLevel:      review.ImpactMember,
		}, memberKinds...),
		sigma:     deps.Settings.MemberSizeSigma,
		minSample: deps.Settings.MinSigmaSample,
	}
}

func (r *memberSizeOutlierRule) EvaluateSemantic(ctx context.Context, unit review.Unit, model review.SemanticModel, solution review.Solution) (review.Outcome, error) {
	if err := checkSemanticArgs(ctx, unit, model); err != nil {
		return review.NoResult, err
	}
	mm, ok := model.(memberMetrics)
	if !ok {
		return review.NoResult, nil
	}
	ms, ok := solution.(memberStats)
	if !ok {
		return review.NoResult, nil
	}
	m, ok := mm.MemberMetrics(unit.Span())
	if !ok {
		return review.NoResult, nil
	}
	stats, err := ms.MemberStats()
	if err != nil || stats.N < r.minSample {
		return review.NoResult, nil
	}
	if stats.Sigma(m.LinesOfCode) > r.sigma {
		return review.Fired(unit.Text()), nil
	}
	return review.NoResult, nil
}
