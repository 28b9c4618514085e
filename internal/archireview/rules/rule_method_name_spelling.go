package rules

import (
	"unicode"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/resource"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

type methodNameSpellingRule struct {
	base
	spelling resource.SpellChecker
}

func newMethodNameSpellingRule(deps Dependencies) review.SyntaxRule {
	return &methodNameSpellingRule{
		base: newBase(review.Metadata{
			ID:               "method-name-spelling",
			Title:            "Method Name Spelling",
			Suggestion:       "Check the spelling of the words in the method name.",
			Quality:          review.QualityNeedsReview,
			QualityAttribute: review.AttributeConformance,
			ImpactLevel:      review.ImpactMember,
		}, memberKinds...),
		spelling: deps.Spelling,
	}
}

type named interface {
	Name() string
}

func (r *methodNameSpellingRule) Evaluate(unit review.Unit) (review.Outcome, error) {
	if unit == nil {
		return review.NoResult, errNilUnit
	}
	n, ok := unit.(named)
	if !ok {
		return review.NoResult, nil
	}
	for _, word := range SplitIdentifier(n.Name()) {
		if len([]rune(word)) < 3 {
			continue
		}
		if !r.spelling.Spell(word) {
			return review.Fired(unit.Text()), nil
		}
	}
	return review.NoResult, nil
}

// SplitIdentifier splits an identifier into words on case boundaries,
// underscores and digits: "parseHTTPResponse2" becomes
// [parse HTTP Response].
func SplitIdentifier(name string) []string {
	runes := []rune(name)
	var words []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return words
}
