package review

import (
	"fmt"
	"strings"
)

// Quality classifies how urgently a finding needs attention. The order is
// significant: Broken is the worst, Good the best.
type Quality int

const (
	QualityBroken Quality = iota
	QualityNeedsReEngineering
	QualityNeedsRefactoring
	QualityNeedsCleanup
	QualityNeedsReview
	QualityGood
)

var qualityNames = [...]string{
	QualityBroken:             "Broken",
	QualityNeedsReEngineering: "NeedsReEngineering",
	QualityNeedsRefactoring:   "NeedsRefactoring",
	QualityNeedsCleanup:       "NeedsCleanup",
	QualityNeedsReview:        "NeedsReview",
	QualityGood:               "Good",
}

// Qualities lists every quality from worst to best.
func Qualities() []Quality {
	return []Quality{
		QualityBroken,
		QualityNeedsReEngineering,
		QualityNeedsRefactoring,
		QualityNeedsCleanup,
		QualityNeedsReview,
		QualityGood,
	}
}

func (q Quality) String() string {
	if q < QualityBroken || q > QualityGood {
		return fmt.Sprintf("Quality(%d)", int(q))
	}
	return qualityNames[q]
}

// ParseQuality parses the name of a quality, ignoring case.
func ParseQuality(s string) (Quality, error) {
	for i, name := range qualityNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Quality(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown quality %q", ErrInvalidArgument, s)
}

func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *Quality) UnmarshalText(b []byte) error {
	v, err := ParseQuality(string(b))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// QualityAttribute is the quality characteristic a rule protects.
type QualityAttribute string

const (
	AttributeCodeQuality   QualityAttribute = "CodeQuality"
	AttributeModifiability QualityAttribute = "Modifiability"
	AttributeTestability   QualityAttribute = "Testability"
	AttributeReusability   QualityAttribute = "Reusability"
	AttributeConformance   QualityAttribute = "Conformance"
)

// ImpactLevel is the scope affected by a finding.
type ImpactLevel string

const (
	ImpactLine    ImpactLevel = "Line"
	ImpactMember  ImpactLevel = "Member"
	ImpactType    ImpactLevel = "Type"
	ImpactProject ImpactLevel = "Project"
)

// Metadata describes a rule. It is a plain value: results hold a copy, so
// nothing a rule does later can change a result already produced.
type Metadata struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Suggestion       string           `json:"suggestion"`
	Quality          Quality          `json:"quality"`
	QualityAttribute QualityAttribute `json:"quality_attribute"`
	ImpactLevel      ImpactLevel      `json:"impact_level"`
}
