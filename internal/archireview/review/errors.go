package review

import (
	"errors"
	"fmt"
)

// Sentinel errors of the review engine. Check them with errors.Is.
var (
	// ErrInvalidArgument indicates a malformed or absent required input to
	// a public operation, for example a nil root unit.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingDependency indicates that a rule could not be constructed
	// because a shared resource it needs was not supplied.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrCancelled indicates that the caller cancelled the review. Partial
	// results are never returned alongside it.
	ErrCancelled = errors.New("review cancelled")

	// ErrRuleEvaluationFault marks a single (unit, rule) evaluation that
	// failed. It is recorded in Report.Faults and never fails a review.
	ErrRuleEvaluationFault = errors.New("rule evaluation fault")
)

// ReviewError is returned by Reviewer.Review when the whole call fails.
// It carries the identity of the reviewed file.
type ReviewError struct {
	Project string
	File    string
	Err     error
}

func (e *ReviewError) Error() string {
	switch {
	case e.Project != "" && e.File != "":
		return fmt.Sprintf("review %s/%s: %v", e.Project, e.File, e.Err)
	case e.File != "":
		return fmt.Sprintf("review %s: %v", e.File, e.Err)
	default:
		return fmt.Sprintf("review: %v", e.Err)
	}
}

func (e *ReviewError) Unwrap() error {
	return e.Err
}
