package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUnit struct {
	kind     Kind
	text     string
	line     int
	trivia   bool
	children []Unit
}

func (u *fakeUnit) Kind() Kind       { return u.kind }
func (u *fakeUnit) IsTrivia() bool   { return u.trivia }
func (u *fakeUnit) Text() string     { return u.text }
func (u *fakeUnit) Span() Span       { return Span{StartLine: u.line, EndLine: u.line} }
func (u *fakeUnit) Children() []Unit { return u.children }

func node(kind Kind, line int, text string, children ...Unit) *fakeUnit {
	return &fakeUnit{kind: kind, line: line, text: text, children: children}
}

type fakeModel struct{}

func (fakeModel) Path() string     { return "a.go" }
func (fakeModel) Language() string { return "go" }

type fakeSolution struct{}

func (fakeSolution) Name() string { return "project" }

// countingRule fires on every unit of its kind and counts evaluations per unit.
type countingRule struct {
	meta  *Metadata
	kind  Kind
	mu    sync.Mutex
	calls map[Unit]int
	eval  func(Unit) (Outcome, error)
	delay time.Duration
}

func newCountingRule(id string, kind Kind) *countingRule {
	return &countingRule{
		meta:  &Metadata{ID: id, Title: id, Quality: QualityNeedsReview},
		kind:  kind,
		calls: make(map[Unit]int),
	}
}

func (r *countingRule) Metadata() Metadata     { return *r.meta }
func (r *countingRule) Matches(kind Kind) bool { return kind == r.kind }

func (r *countingRule) Evaluate(unit Unit) (Outcome, error) {
	r.mu.Lock()
	r.calls[unit]++
	r.mu.Unlock()
	if r.eval != nil {
		return r.eval(unit)
	}
	return Fired(fmt.Sprintf("%s@%s", r.meta.ID, unit.Text())), nil
}

func (r *countingRule) EvaluateSemantic(ctx context.Context, unit Unit, _ SemanticModel, _ Solution) (Outcome, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return NoResult, ctx.Err()
		}
	}
	return r.Evaluate(unit)
}

func snippets(r *Report) []string {
	out := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, res.Snippet)
	}
	return out
}

func twoUnitTree() Unit {
	return node("file", 1, "root",
		node("K", 2, "U1"),
		node("other", 3, "x",
			node("K", 4, "U2"),
		),
	)
}

func TestReviewOrdersResultsByUnitThenRule(t *testing.T) {
	r1 := newCountingRule("R1", "K")
	r2 := newCountingRule("R2", "K")
	reviewer := NewReviewer([]SyntaxRule{r1, r2}, nil)

	report, err := reviewer.Review(context.Background(), Request{Project: "p", File: "f.go", Root: twoUnitTree()})
	require.NoError(t, err)

	assert.Equal(t, []string{"R1@U1", "R2@U1", "R1@U2", "R2@U2"}, snippets(report))
	assert.Equal(t, "p", report.Project)
	assert.Equal(t, "f.go", report.File)
	assert.Equal(t, Location{Project: "p", File: "f.go", Span: Span{StartLine: 2, EndLine: 2}}, report.Results[0].Location)
}

func TestReviewSemanticOrderIsStableUnderConcurrency(t *testing.T) {
	fast := newCountingRule("S1", "K")
	slow := newCountingRule("S2", "K")
	slow.delay = 20 * time.Millisecond
	syn := newCountingRule("R1", "K")
	reviewer := NewReviewer([]SyntaxRule{syn}, []SemanticRule{slow, fast}, WithConcurrency(4))

	report, err := reviewer.Review(context.Background(), Request{
		Root:     twoUnitTree(),
		Model:    fakeModel{},
		Solution: fakeSolution{},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"R1@U1", "S2@U1", "S1@U1", "R1@U2", "S2@U2", "S1@U2"}, snippets(report))
}

func TestReviewSkipsSemanticRulesWithoutModel(t *testing.T) {
	sem := newCountingRule("S1", "K")
	reviewer := NewReviewer(nil, []SemanticRule{sem})

	report, err := reviewer.Review(context.Background(), Request{Root: twoUnitTree(), Solution: fakeSolution{}})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, sem.calls)
}

func TestReviewEvaluatesEachMatchingPairOnce(t *testing.T) {
	k := newCountingRule("K", "K")
	other := newCountingRule("O", "other")
	never := newCountingRule("N", "missing")
	reviewer := NewReviewer([]SyntaxRule{k, other, never}, nil)

	root := twoUnitTree()
	_, err := reviewer.Review(context.Background(), Request{Root: root})
	require.NoError(t, err)

	assert.Len(t, k.calls, 2)
	for u, n := range k.calls {
		assert.Equal(t, 1, n, "unit %s", u.Text())
		assert.Equal(t, Kind("K"), u.Kind())
	}
	assert.Len(t, other.calls, 1)
	assert.Empty(t, never.calls)
}

func TestReviewRecordsFaultsAndContinues(t *testing.T) {
	panicking := newCountingRule("P", "K")
	panicking.eval = func(u Unit) (Outcome, error) {
		if u.Text() == "U1" {
			panic("boom")
		}
		return Fired("P@" + u.Text()), nil
	}
	failing := newCountingRule("E", "K")
	failing.eval = func(Unit) (Outcome, error) {
		return NoResult, errors.New("lookup exploded")
	}
	healthy := newCountingRule("H", "K")
	reviewer := NewReviewer([]SyntaxRule{panicking, failing, healthy}, nil)

	report, err := reviewer.Review(context.Background(), Request{Root: twoUnitTree()})
	require.NoError(t, err)

	assert.Equal(t, []string{"H@U1", "P@U2", "H@U2"}, snippets(report))
	require.Len(t, report.Faults, 3)
	assert.Equal(t, "P", report.Faults[0].RuleID)
	assert.Contains(t, report.Faults[0].Message, "boom")
	assert.Equal(t, "E", report.Faults[1].RuleID)
	assert.Contains(t, report.Faults[1].Message, "lookup exploded")
	assert.Equal(t, 4, report.Faults[2].Span.StartLine)
}

func TestReviewIsDeterministic(t *testing.T) {
	reviewer := NewReviewer(
		[]SyntaxRule{newCountingRule("R1", "K"), newCountingRule("R2", "other")},
		[]SemanticRule{newCountingRule("S1", "K")},
	)
	req := Request{Project: "p", File: "f", Root: twoUnitTree(), Model: fakeModel{}, Solution: fakeSolution{}}

	first, err := reviewer.Review(context.Background(), req)
	require.NoError(t, err)
	second, err := reviewer.Review(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReviewCopiesRuleMetadata(t *testing.T) {
	rule := newCountingRule("R1", "K")
	reviewer := NewReviewer([]SyntaxRule{rule}, nil)

	report, err := reviewer.Review(context.Background(), Request{Root: twoUnitTree()})
	require.NoError(t, err)

	rule.meta.Title = "changed"
	assert.Equal(t, "R1", report.Results[0].Rule.Title)
}

func TestReviewRejectsNilRoot(t *testing.T) {
	reviewer := NewReviewer(nil, nil)

	report, err := reviewer.Review(context.Background(), Request{Project: "p", File: "f.go"})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var reviewErr *ReviewError
	require.ErrorAs(t, err, &reviewErr)
	assert.Equal(t, "f.go", reviewErr.File)
	assert.Contains(t, err.Error(), "p/f.go")
}

func TestReviewWithCancelledContext(t *testing.T) {
	rule := newCountingRule("R1", "K")
	reviewer := NewReviewer([]SyntaxRule{rule}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := reviewer.Review(ctx, Request{Root: twoUnitTree()})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rule.calls)
}

func TestReviewCancelledWhileSemanticInFlight(t *testing.T) {
	var started atomic.Int32
	slow := newCountingRule("S1", "K")
	slow.delay = time.Minute
	slow.eval = func(Unit) (Outcome, error) {
		started.Add(1)
		return Fired("late"), nil
	}
	reviewer := NewReviewer(nil, []SemanticRule{slow})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := reviewer.Review(ctx, Request{Root: twoUnitTree(), Model: fakeModel{}, Solution: fakeSolution{}})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, started.Load())
}

func TestReviewEmptyReportIsNotNil(t *testing.T) {
	reviewer := NewReviewer(nil, nil)

	report, err := reviewer.Review(context.Background(), Request{Root: node("file", 1, "")})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotNil(t, report.Results)
	assert.Empty(t, report.Results)
	assert.Equal(t, QualityGood, report.Worst())
}

func TestFlattenSkipsTriviaChildren(t *testing.T) {
	comment := &fakeUnit{kind: KindSingleLineComment, trivia: true, text: "c",
		children: []Unit{node("hidden", 9, "h")}}
	root := node("file", 1, "a", node("b", 2, "b"), comment, node("d", 3, "d"))

	units, err := Flatten(root)
	require.NoError(t, err)

	var texts []string
	for _, u := range units {
		texts = append(texts, u.Text())
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, texts)
}

// matchPanicRule panics when asked whether it applies to a unit.
type matchPanicRule struct{}

func (matchPanicRule) Metadata() Metadata             { return Metadata{ID: "broken-match"} }
func (matchPanicRule) Matches(Kind) bool              { panic("broken predicate") }
func (matchPanicRule) Evaluate(Unit) (Outcome, error) { return Fired("never"), nil }

func TestReviewRecordsMatchPanicAsFault(t *testing.T) {
	good := newCountingRule("R1", "K")
	reviewer := NewReviewer([]SyntaxRule{matchPanicRule{}, good}, nil)

	report, err := reviewer.Review(context.Background(), Request{Root: twoUnitTree()})
	require.NoError(t, err)

	assert.Equal(t, []string{"R1@U1", "R1@U2"}, snippets(report))
	// One fault per unit of the tree: file, K, other, K.
	require.Len(t, report.Faults, 4)
	for _, f := range report.Faults {
		assert.Equal(t, "review.matchPanicRule", f.RuleID)
		assert.Contains(t, f.Message, ErrRuleEvaluationFault.Error())
		assert.Contains(t, f.Message, "broken predicate")
	}
	assert.Equal(t, Kind("K"), report.Faults[1].Kind)
	assert.Equal(t, 2, report.Faults[1].Span.StartLine)
}

// selfTimeoutRule gives up on its own short deadline while the review
// context is still live.
type selfTimeoutRule struct{}

func (selfTimeoutRule) Metadata() Metadata  { return Metadata{ID: "self-timeout"} }
func (selfTimeoutRule) Matches(k Kind) bool { return k == "K" }

func (selfTimeoutRule) EvaluateSemantic(ctx context.Context, _ Unit, _ SemanticModel, _ Solution) (Outcome, error) {
	inner, cancel := context.WithTimeout(ctx, time.Nanosecond)
	defer cancel()
	<-inner.Done()
	return NoResult, inner.Err()
}

func TestReviewWrapsRuleOwnDeadlineAsFault(t *testing.T) {
	reviewer := NewReviewer(nil, []SemanticRule{selfTimeoutRule{}})

	report, err := reviewer.Review(context.Background(), Request{
		Root: twoUnitTree(), Model: fakeModel{}, Solution: fakeSolution{},
	})
	require.NoError(t, err)

	require.Len(t, report.Faults, 2)
	for _, f := range report.Faults {
		assert.Equal(t, "self-timeout", f.RuleID)
		assert.Contains(t, f.Message, ErrRuleEvaluationFault.Error())
		assert.Contains(t, f.Message, context.DeadlineExceeded.Error())
	}
}

func TestReviewRejectsTypedNilChild(t *testing.T) {
	var missing *fakeUnit
	root := node("file", 1, "root", node("K", 2, "U1"), missing)
	reviewer := NewReviewer([]SyntaxRule{newCountingRule("R1", "K")}, nil)

	report, err := reviewer.Review(context.Background(), Request{File: "f.go", Root: root})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Flatten(root)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestQualityOrderingAndParsing(t *testing.T) {
	assert.Less(t, QualityBroken, QualityNeedsReEngineering)
	assert.Less(t, QualityNeedsReview, QualityGood)

	q, err := ParseQuality("needsrefactoring")
	require.NoError(t, err)
	assert.Equal(t, QualityNeedsRefactoring, q)

	_, err = ParseQuality("terrible")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSummarize(t *testing.T) {
	reports := []*Report{
		{Results: []Result{{Rule: Metadata{Quality: QualityBroken}}, {Rule: Metadata{Quality: QualityNeedsReview}}}},
		{Results: []Result{{Rule: Metadata{Quality: QualityNeedsReview}}}, Faults: []Fault{{RuleID: "x"}}},
		nil,
	}
	s := Summarize(reports)
	assert.Equal(t, 2, s.Files)
	assert.Equal(t, 3, s.Results)
	assert.Equal(t, 1, s.Faults)
	assert.Equal(t, 2, s.ByQuality[QualityNeedsReview])
	assert.Equal(t, QualityBroken, reports[0].Worst())
}
