package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

func reports() []*review.Report {
	return []*review.Report{
		{File: "a.go"},
		{File: "b.go", Results: []review.Result{{
			Rule: review.Metadata{
				ID:         "too-many-parameters",
				Title:      "Too Many Parameters",
				Suggestion: "Group related parameters.",
				Quality:    review.QualityNeedsRefactoring,
			},
			Snippet:  "func f(a, b, c, d, e, f int) {\n}",
			Location: review.Location{File: "b.go", Span: review.Span{StartLine: 4}},
		}}},
	}
}

func TestItemsWorstFirst(t *testing.T) {
	m := NewModel("demo", reports())
	items := m.items()
	require.Len(t, items, 2)
	assert.Equal(t, "b.go", items[0].(item).Title())
	assert.Equal(t, "a.go", items[1].(item).Title())
}

func TestUpdateMessages(t *testing.T) {
	var model tea.Model = NewModel("demo", reports())
	model, _ = model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Contains(t, model.View(), "Too Many Parameters")

	model, _ = model.Update(ReportMsg{Report: &review.Report{File: "c.go"}})
	assert.Len(t, model.(Model).reports, 3)

	model, _ = model.Update(RemovedMsg{File: "b.go"})
	m := model.(Model)
	assert.Len(t, m.reports, 2)
	assert.NotContains(t, m.View(), "Too Many Parameters")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderReport(t *testing.T) {
	out := renderReport(reports()[1])
	assert.Contains(t, out, "line 4")
	assert.Contains(t, out, "Group related parameters.")
	assert.Contains(t, out, "func f(a, b, c, d, e, f int) { …")

	assert.Contains(t, renderReport(&review.Report{File: "a.go"}), "No results.")
}
