package rules

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/resource"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// minRecognizedRatio is the share of recognized words below which a
// comment is considered not to be written in English.
const minRecognizedRatio = 0.5

var markupTag = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

type commentLanguageRule struct {
	base
	spelling resource.SpellChecker
}

func newSingleLineCommentLanguageRule(deps Dependencies) review.SyntaxRule {
	return &commentLanguageRule{
		base: newBase(review.Metadata{
			ID:               "single-line-comment-language",
			Title:            "Single Line Comment Language",
			Suggestion:       "Write comments in English.",
			Quality:          review.QualityNeedsReview,
			QualityAttribute: review.AttributeConformance,
			ImpactLevel:      review.ImpactLine,
		}, review.KindSingleLineComment),
		spelling: deps.Spelling,
	}
}

func newMultiLineCommentLanguageRule(deps Dependencies) review.SyntaxRule {
	return &commentLanguageRule{
		base: newBase(review.Metadata{
			ID:               "multi-line-comment-language",
			Title:            "Multi Line Comment Language",
			Suggestion:       "Write comments in English.",
			Quality:          review.QualityNeedsReview,
			QualityAttribute: review.AttributeConformance,
			ImpactLevel:      review.ImpactMember,
		}, review.KindMultiLineComment),
		spelling: deps.Spelling,
	}
}

func (r *commentLanguageRule) Evaluate(unit review.Unit) (review.Outcome, error) {
	if unit == nil {
		return review.NoResult, errNilUnit
	}
	words := CommentWords(unit.Text())
	if len(words) == 0 {
		return review.NoResult, nil
	}
	var recognized int
	for _, w := range words {
		if r.spelling.Spell(w) {
			recognized++
		}
	}
	if float64(recognized)/float64(len(words)) < minRecognizedRatio {
		return review.Fired(unit.Text()), nil
	}
	return review.NoResult, nil
}

// CommentWords extracts the natural-language words of a comment. Comment
// delimiters and markup tags are removed. Technical tokens are skipped:
// dotted names such as .NET or ASP.NET, identifiers with digits,
// underscores, slashes or inner capitals, and upper-case acronyms.
func CommentWords(text string) []string {
	text = stripDelimiters(text)
	text = markupTag.ReplaceAllString(text, " ")

	var words []string
	for _, field := range strings.Fields(text) {
		field = strings.TrimRight(field, ".,;:!?)]}\"'")
		field = strings.TrimLeft(field, "([{\"'")
		if field == "" || technical(field) {
			continue
		}
		for _, w := range strings.FieldsFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && r != '\''
		}) {
			if w = strings.Trim(w, "'"); w != "" {
				words = append(words, w)
			}
		}
	}
	return words
}

func technical(field string) bool {
	if strings.Contains(field, ".") || strings.ContainsAny(field, "_/\\@#$%=<>`") {
		return true
	}
	var upper, lower, digit bool
	for i, r := range field {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			if i > 0 && lower {
				return true
			}
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return digit || (upper && !lower && len(field) > 1)
}

func stripDelimiters(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimLeft(strings.TrimSpace(l), "*")
		}
		return strings.Join(lines, "\n")
	case strings.HasPrefix(text, "//"):
		return strings.TrimLeft(text, "/!")
	case strings.HasPrefix(text, "#"):
		return strings.TrimLeft(text, "#!")
	}
	return text
}
