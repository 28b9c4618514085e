package review

// Location is attached to a result by the aggregator, never by the rule.
type Location struct {
	Project string `json:"project"`
	File    string `json:"file"`
	Span    Span   `json:"span"`
}

// Result is produced when a rule fires on a unit.
type Result struct {
	Rule     Metadata `json:"rule"`
	Snippet  string   `json:"snippet"`
	Location Location `json:"location"`
}

// Fault records a (unit, rule) evaluation that returned an error or
// panicked. The review carried on without a result for that pair.
type Fault struct {
	RuleID  string `json:"rule_id"`
	Kind    Kind   `json:"kind"`
	Span    Span   `json:"span"`
	Message string `json:"message"`
}

// Report is the ordered outcome of reviewing one tree. Results are in
// document order of their units, then in registry order of their rules.
type Report struct {
	Project string   `json:"project"`
	File    string   `json:"file"`
	Results []Result `json:"results"`
	Faults  []Fault  `json:"faults,omitempty"`
}

// Worst returns the worst quality among the results, or QualityGood for a
// clean report.
func (r *Report) Worst() Quality {
	worst := QualityGood
	for _, res := range r.Results {
		if res.Rule.Quality < worst {
			worst = res.Rule.Quality
		}
	}
	return worst
}

// Summary counts results per quality over a set of reports.
type Summary struct {
	Files     int             `json:"files"`
	Results   int             `json:"results"`
	Faults    int             `json:"faults"`
	ByQuality map[Quality]int `json:"by_quality"`
}

// Summarize aggregates reports into a Summary.
func Summarize(reports []*Report) Summary {
	s := Summary{ByQuality: make(map[Quality]int)}
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Files++
		s.Results += len(r.Results)
		s.Faults += len(r.Faults)
		for _, res := range r.Results {
			s.ByQuality[res.Rule.Quality]++
		}
	}
	return s
}

// aggregator turns evaluated slots into a report. Slots must be added in
// unit-then-rule order; the aggregator preserves that order.
type aggregator struct {
	report Report
}

func newAggregator(project, file string) *aggregator {
	return &aggregator{report: Report{
		Project: project,
		File:    file,
		Results: []Result{},
	}}
}

func (a *aggregator) add(s *slot) {
	if s.fault != nil {
		a.report.Faults = append(a.report.Faults, Fault{
			RuleID:  s.rule.ID,
			Kind:    s.kind,
			Span:    s.unit.Span(),
			Message: s.fault.Error(),
		})
		return
	}
	if !s.out.OK() {
		return
	}
	a.report.Results = append(a.report.Results, Result{
		Rule:    s.rule,
		Snippet: s.out.Snippet(),
		Location: Location{
			Project: a.report.Project,
			File:    a.report.File,
			Span:    s.unit.Span(),
		},
	})
}

func (a *aggregator) finish() *Report {
	r := a.report
	return &r
}
