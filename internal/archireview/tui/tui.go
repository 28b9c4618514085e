package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

var (
	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true)

	faultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5555")).
			Bold(true)

	qualityStyles = map[review.Quality]lipgloss.Style{
		review.QualityBroken:             lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true),
		review.QualityNeedsReEngineering: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8c42")).Bold(true),
		review.QualityNeedsRefactoring:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f1c40f")),
		review.QualityNeedsCleanup:       lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c")),
		review.QualityNeedsReview:        lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")),
		review.QualityGood:               lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b")),
	}
)

// ReportMsg delivers a fresh report, e.g. from the file watcher.
type ReportMsg struct{ Report *review.Report }

// RemovedMsg tells the browser a file no longer exists.
type RemovedMsg struct{ File string }

type item struct {
	report *review.Report
}

func (i item) Title() string { return i.report.File }
func (i item) Description() string {
	q := i.report.Worst()
	return fmt.Sprintf("%s · %d results", qualityStyles[q].Render(q.String()), len(i.report.Results))
}
func (i item) FilterValue() string { return i.report.File }

// Model browses review reports: a file list on the left and the selected
// report's results on the right.
type Model struct {
	project  string
	reports  map[string]*review.Report
	list     list.Model
	viewport viewport.Model

	ready  bool
	width  int
	height int
}

func NewModel(project string, reports []*review.Report) Model {
	m := Model{
		project: project,
		reports: make(map[string]*review.Report, len(reports)),
	}
	for _, r := range reports {
		if r != nil {
			m.reports[r.File] = r
		}
	}
	m.list = list.New(m.items(), list.NewDefaultDelegate(), 0, 0)
	m.list.Title = project
	m.list.SetShowHelp(false)
	return m
}

// items orders files worst first, then by path.
func (m Model) items() []list.Item {
	reports := make([]*review.Report, 0, len(m.reports))
	for _, r := range m.reports {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		wi, wj := reports[i].Worst(), reports[j].Worst()
		if wi != wj {
			return wi < wj
		}
		return reports[i].File < reports[j].File
	})
	items := make([]list.Item, len(reports))
	for i, r := range reports {
		items[i] = item{report: r}
	}
	return items
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}
		}
	case ReportMsg:
		if msg.Report != nil {
			m.reports[msg.Report.File] = msg.Report
			cmds = append(cmds, m.list.SetItems(m.items()))
		}
	case RemovedMsg:
		delete(m.reports, msg.File)
		cmds = append(cmds, m.list.SetItems(m.items()))
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		listWidth := msg.Width * 2 / 5
		detailWidth := msg.Width - listWidth - 4
		if !m.ready {
			m.viewport = viewport.New(detailWidth, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = detailWidth
			m.viewport.Height = msg.Height - 2
		}
		m.list.SetSize(listWidth-2, msg.Height-2)
	}

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	if selected, ok := m.list.SelectedItem().(item); ok {
		m.viewport.SetContent(renderReport(selected.report))
	} else {
		m.viewport.SetContent("No reports.")
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	left := listStyle.Render(m.list.View())
	right := detailStyle.Render(m.viewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func renderReport(r *review.Report) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(r.File) + "\n")
	q := r.Worst()
	sb.WriteString(fmt.Sprintf("Worst: %s\n", qualityStyles[q].Render(q.String())))

	if len(r.Results) == 0 {
		sb.WriteString("\nNo results.\n")
	}
	for _, res := range r.Results {
		style := qualityStyles[res.Rule.Quality]
		sb.WriteString(fmt.Sprintf("\n%s %s (line %d)\n",
			style.Render("["+res.Rule.Quality.String()+"]"),
			res.Rule.Title,
			res.Location.Span.StartLine))
		sb.WriteString(fmt.Sprintf("  %s · %s\n", res.Rule.QualityAttribute, res.Rule.ImpactLevel))
		if res.Rule.Suggestion != "" {
			sb.WriteString("  " + res.Rule.Suggestion + "\n")
		}
		if snippet := firstLine(res.Snippet); snippet != "" {
			sb.WriteString("  > " + snippet + "\n")
		}
	}

	if len(r.Faults) > 0 {
		sb.WriteString("\nFaults:\n")
		for _, f := range r.Faults {
			sb.WriteString(faultStyle.Render(fmt.Sprintf("- %s at line %d: %s", f.RuleID, f.Span.StartLine, f.Message)) + "\n")
		}
	}
	return sb.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
