package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Request is the input of one review invocation.
type Request struct {
	Project string
	File    string
	// Root is the tree to review. Required.
	Root Unit
	// Model and Solution enable semantic rules. Both must be set,
	// otherwise semantic rules are skipped.
	Model    SemanticModel
	Solution Solution
}

func (r Request) semantic() bool {
	return r.Model != nil && r.Solution != nil
}

// Reviewer dispatches registered rules over a tree and aggregates their
// results into a Report.
//
// Thread Safety: a Reviewer is immutable after construction and safe for
// concurrent use.
type Reviewer struct {
	syntax      []SyntaxRule
	semantic    []SemanticRule
	concurrency int
	logger      *slog.Logger
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithConcurrency bounds the number of semantic evaluations in flight.
// Values below one select GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(r *Reviewer) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger used for faults and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reviewer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReviewer creates a Reviewer over the given rules. The order of each
// slice is the registry order and decides result order within a unit.
func NewReviewer(syntax []SyntaxRule, semantic []SemanticRule, opts ...Option) *Reviewer {
	r := &Reviewer{
		syntax:      append([]SyntaxRule(nil), syntax...),
		semantic:    append([]SemanticRule(nil), semantic...),
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// slot is one matching (unit, rule) pair and, after evaluation, its outcome.
type slot struct {
	unit     Unit
	kind     Kind
	rule     Metadata
	syntax   SyntaxRule
	semantic SemanticRule
	out      Outcome
	fault    error
}

// Review evaluates every matching (unit, rule) pair of req.Root exactly once.
//
// Syntax rules run inline. Semantic rules run on a bounded errgroup and
// write only to their own slot, so the report order is unit order, then
// registry order, whatever order the evaluations finish in.
//
// A failing pair is recorded in Report.Faults and the review continues.
// The call itself fails only for a nil root or a malformed tree
// (ErrInvalidArgument) or when
// ctx is cancelled (ErrCancelled); no partial report is returned then.
func (r *Reviewer) Review(ctx context.Context, req Request) (*Report, error) {
	if ctx == nil {
		return nil, r.fail(req, fmt.Errorf("%w: context must not be nil", ErrInvalidArgument))
	}
	if req.Root == nil {
		return nil, r.fail(req, fmt.Errorf("%w: root unit must not be nil", ErrInvalidArgument))
	}

	ctx, span := startReviewSpan(ctx, req)
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordReviewMetrics(ctx, time.Since(start), 0, nil, false)
		return nil, r.cancelled(req, err)
	}

	units, kinds, err := flatten(req.Root)
	if err != nil {
		recordReviewMetrics(ctx, time.Since(start), 0, nil, false)
		return nil, r.fail(req, err)
	}
	slots := r.plan(units, kinds, req.semantic())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range slots {
		if ctx.Err() != nil {
			break
		}
		s := &slots[i]
		if s.fault != nil {
			continue
		}
		if s.syntax != nil {
			s.out, s.fault = evaluateSyntax(s.syntax, s.unit)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.out, s.fault = evaluateSemantic(gctx, s.semantic, s.unit, req.Model, req.Solution)
			if s.fault != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}

	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		recordReviewMetrics(ctx, time.Since(start), len(slots), nil, false)
		return nil, r.cancelled(req, err)
	}
	if waitErr != nil {
		// Only cancellation is ever returned from the group.
		recordReviewMetrics(ctx, time.Since(start), len(slots), nil, false)
		return nil, r.cancelled(req, waitErr)
	}

	agg := newAggregator(req.Project, req.File)
	for i := range slots {
		s := &slots[i]
		if s.fault != nil {
			r.logger.Warn("rule evaluation failed",
				slog.String("rule", s.rule.ID),
				slog.String("file", req.File),
				slog.String("kind", string(s.kind)),
				slog.Int("line", s.unit.Span().StartLine),
				slog.String("error", s.fault.Error()))
		}
		agg.add(s)
	}
	report := agg.finish()

	setReviewSpanResult(span, len(units), len(slots), report)
	recordReviewMetrics(ctx, time.Since(start), len(slots), report, true)
	r.logger.Debug("review finished",
		slog.String("project", req.Project),
		slog.String("file", req.File),
		slog.Int("units", len(units)),
		slog.Int("evaluations", len(slots)),
		slog.Int("results", len(report.Results)),
		slog.Int("faults", len(report.Faults)),
		slog.Duration("elapsed", time.Since(start)))

	return report, nil
}

// plan lists the matching pairs in unit-then-rule order. Syntax rules come
// before semantic rules within a unit. A rule whose Matches or Metadata
// panics gets a faulted slot for that unit and is not evaluated there.
func (r *Reviewer) plan(units []Unit, kinds []Kind, semantic bool) []slot {
	var slots []slot
	for i, u := range units {
		kind := kinds[i]
		for _, rule := range r.syntax {
			md, ok, err := match(rule, kind)
			if err != nil {
				slots = append(slots, slot{unit: u, kind: kind, rule: md, fault: err})
			} else if ok {
				slots = append(slots, slot{unit: u, kind: kind, rule: md, syntax: rule})
			}
		}
		if !semantic {
			continue
		}
		for _, rule := range r.semantic {
			md, ok, err := match(rule, kind)
			if err != nil {
				slots = append(slots, slot{unit: u, kind: kind, rule: md, fault: err})
			} else if ok {
				slots = append(slots, slot{unit: u, kind: kind, rule: md, semantic: rule})
			}
		}
	}
	return slots
}

// match asks rule whether it applies to kind and, if so, copies its
// metadata. Panics become ErrRuleEvaluationFault.
func match(rule Rule, kind Kind) (md Metadata, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if md.ID == "" {
				md.ID = fmt.Sprintf("%T", rule)
			}
			ok, err = false, fmt.Errorf("%w: panic in match: %v", ErrRuleEvaluationFault, rec)
		}
	}()
	if !rule.Matches(kind) {
		return Metadata{}, false, nil
	}
	return rule.Metadata(), true, nil
}

func (r *Reviewer) fail(req Request, err error) error {
	return &ReviewError{Project: req.Project, File: req.File, Err: err}
}

func (r *Reviewer) cancelled(req Request, cause error) error {
	return r.fail(req, fmt.Errorf("%w: %w", ErrCancelled, cause))
}

func evaluateSyntax(rule SyntaxRule, unit Unit) (out Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = NoResult, fmt.Errorf("%w: panic: %v", ErrRuleEvaluationFault, rec)
		}
	}()
	out, err = rule.Evaluate(unit)
	if err != nil {
		return NoResult, fmt.Errorf("%w: %w", ErrRuleEvaluationFault, err)
	}
	return out, nil
}

func evaluateSemantic(ctx context.Context, rule SemanticRule, unit Unit, model SemanticModel, solution Solution) (out Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = NoResult, fmt.Errorf("%w: panic: %v", ErrRuleEvaluationFault, rec)
		}
	}()
	out, err = rule.EvaluateSemantic(ctx, unit, model, solution)
	if err != nil {
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return NoResult, err
		}
		return NoResult, fmt.Errorf("%w: %w", ErrRuleEvaluationFault, err)
	}
	return out, nil
}

// Flatten lists root and all of its descendants in pre-order, left to
// right. Trivia units are listed but not descended into. A unit that
// cannot report its kind or children, such as a typed nil, yields
// ErrInvalidArgument.
func Flatten(root Unit) ([]Unit, error) {
	units, _, err := flatten(root)
	return units, err
}

func flatten(root Unit) (units []Unit, kinds []Kind, err error) {
	if root == nil {
		return nil, nil, nil
	}
	var cur Unit
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: malformed unit %T at position %d: %v", ErrInvalidArgument, cur, len(units), rec)
			units, kinds = nil, nil
		}
	}()
	stack := []Unit{root}
	for len(stack) > 0 {
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			continue
		}
		kind := cur.Kind()
		units = append(units, cur)
		kinds = append(kinds, kind)
		if cur.IsTrivia() {
			continue
		}
		children := cur.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return units, kinds, nil
}
