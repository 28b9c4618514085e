package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/export"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/mcp"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/tui"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/watcher"
)

var (
	fileStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f1c40f"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b"))
)

func qualityStyle(q review.Quality) lipgloss.Style {
	switch {
	case q <= review.QualityNeedsReEngineering:
		return badStyle
	case q < review.QualityGood:
		return warnStyle
	}
	return goodStyle
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "archireview [root]",
		Short: "Review source code against architecture and code quality rules",
		Long: `archireview parses a project with tree-sitter, runs its rule set over every
file and reports findings graded by quality. Without a subcommand it serves
the reviews over MCP on stdio.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Review the project and serve results over MCP on stdio",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}

	reviewCmd := &cobra.Command{
		Use:   "review [root]",
		Short: "Review the project once and print the reports",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReview,
	}
	reviewCmd.Flags().String("format", "text", "Output format (text, json)")
	reviewCmd.Flags().String("fail-on", "", "Exit non-zero when a result is at or below this quality")
	reviewCmd.Flags().Bool("no-persist", false, "Do not record the reviews in the history database")

	watchCmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Review the project and re-review files as they change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}

	tuiCmd := &cobra.Command{
		Use:   "tui [root]",
		Short: "Browse reports in the terminal, refreshed as files change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTUI,
	}

	exportCmd := &cobra.Command{
		Use:   "export [root]",
		Short: "Export the reports as JSON or as an Excalidraw board",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().String("format", export.FormatJSON, "Export format (json, excalidraw)")
	exportCmd.Flags().String("out", "", "Output file path (default archireview.<format>)")

	rulesCmd := &cobra.Command{
		Use:   "rules [root]",
		Short: "List the review rules and whether they are enabled",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRules,
	}

	historyCmd := &cobra.Command{
		Use:   "history <file>",
		Short: "Show past reviews of a file, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().String("root", ".", "Project root")
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs")

	root.AddCommand(serveCmd, reviewCmd, watchCmd, tuiCmd, exportCmd, rulesCmd, historyCmd)
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd.Context(), rootArg(args), true)
	if err != nil {
		return err
	}
	defer p.Close()
	ctx := cmd.Context()

	p.logger.Info("starting archireview server", slog.String("root", p.analyzer.Root()))
	if _, err := p.analyzer.Run(ctx); err != nil {
		return err
	}

	w, err := watcher.NewWatcher(p.analyzer, p.logger)
	if err != nil {
		p.logger.Warn("failed to start file watcher", slog.String("error", err.Error()))
	} else {
		defer w.Close()
		w.Start(ctx)
	}

	server := mcp.NewServer(p.analyzer, p.store, p.logger)
	return server.Run(ctx, &sdk.StdioTransport{})
}

func runReview(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	failOn, _ := cmd.Flags().GetString("fail-on")
	noPersist, _ := cmd.Flags().GetBool("no-persist")

	var threshold review.Quality
	if failOn != "" {
		q, err := review.ParseQuality(failOn)
		if err != nil {
			return err
		}
		threshold = q
	}

	p, err := openProject(cmd.Context(), rootArg(args), !noPersist)
	if err != nil {
		return err
	}
	defer p.Close()

	reports, err := p.analyzer.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		err = export.WriteJSON(out, p.cfg.Project, reports)
	case "text":
		printReports(out, reports)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}

	if failOn != "" {
		for _, r := range reports {
			if len(r.Results) > 0 && r.Worst() <= threshold {
				return fmt.Errorf("%s: results at or below %s", r.File, threshold)
			}
		}
	}
	return nil
}

func printReports(w io.Writer, reports []*review.Report) {
	for _, r := range reports {
		if len(r.Results) == 0 && len(r.Faults) == 0 {
			continue
		}
		fmt.Fprintln(w, fileStyle.Render(r.File))
		for _, res := range r.Results {
			q := res.Rule.Quality
			fmt.Fprintf(w, "  %d:%d %s %s %s\n",
				res.Location.Span.StartLine, res.Location.Span.StartColumn,
				qualityStyle(q).Render(q.String()),
				res.Rule.Title,
				faintStyle.Render(res.Rule.ID))
		}
		for _, f := range r.Faults {
			fmt.Fprintf(w, "  %d:%d %s %s\n", f.Span.StartLine, f.Span.StartColumn, badStyle.Render("fault"), f.Message)
		}
	}
	s := review.Summarize(reports)
	fmt.Fprintf(w, "%d files, %d results, %d faults\n", s.Files, s.Results, s.Faults)
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd.Context(), rootArg(args), true)
	if err != nil {
		return err
	}
	defer p.Close()
	ctx := cmd.Context()

	reports, err := p.analyzer.Run(ctx)
	if err != nil {
		return err
	}
	printReports(cmd.OutOrStdout(), reports)

	w, err := watcher.NewWatcher(p.analyzer, p.logger)
	if err != nil {
		return err
	}
	defer w.Close()
	w.OnReport = func(r *review.Report) {
		printReports(cmd.OutOrStdout(), []*review.Report{r})
	}
	w.Start(ctx)

	p.logger.Info("watching for changes", slog.String("root", p.analyzer.Root()))
	<-ctx.Done()
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd.Context(), rootArg(args), true)
	if err != nil {
		return err
	}
	defer p.Close()
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reports, err := p.analyzer.Run(ctx)
	if err != nil {
		return err
	}

	program := tea.NewProgram(tui.NewModel(p.cfg.Project, reports), tea.WithAltScreen(), tea.WithContext(ctx))

	w, err := watcher.NewWatcher(p.analyzer, p.logger)
	if err != nil {
		p.logger.Warn("failed to start file watcher", slog.String("error", err.Error()))
	} else {
		defer w.Close()
		w.OnReport = func(r *review.Report) { program.Send(tui.ReportMsg{Report: r}) }
		w.OnRemove = func(file string) { program.Send(tui.RemovedMsg{File: file}) }
		w.Start(ctx)
	}

	_, err = program.Run()
	return err
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = "archireview." + format
	}

	p, err := openProject(cmd.Context(), rootArg(args), false)
	if err != nil {
		return err
	}
	defer p.Close()

	reports, err := p.analyzer.Run(cmd.Context())
	if err != nil {
		return err
	}
	if err := export.Write(format, out, p.cfg.Project, reports, p.analyzer.Graph()); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d reports to %s\n", len(reports), out)
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd.Context(), rootArg(args), false)
	if err != nil {
		return err
	}
	defer p.Close()

	catalogue, err := p.analyzer.Registry().Catalogue()
	if err != nil {
		return err
	}
	disabled := make(map[string]bool)
	for _, id := range p.cfg.DisabledRules {
		disabled[id] = true
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUALITY\tATTRIBUTE\tIMPACT\tENABLED")
	for _, md := range catalogue {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", md.ID, md.Quality, md.QualityAttribute, md.ImpactLevel, !disabled[md.ID])
	}
	return tw.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	rootDir, _ := cmd.Flags().GetString("root")
	limit, _ := cmd.Flags().GetInt("limit")

	p, err := openProject(cmd.Context(), rootDir, true)
	if err != nil {
		return err
	}
	defer p.Close()

	file := args[0]
	if !filepath.IsAbs(file) {
		file = filepath.Join(p.analyzer.Root(), file)
	}
	rel, err := p.analyzer.Rel(file)
	if err != nil {
		return err
	}
	runs, err := p.store.History(cmd.Context(), rel, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}
